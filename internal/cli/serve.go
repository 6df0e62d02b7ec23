package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"seatplan/internal/api"
	"seatplan/internal/catalog"
	"seatplan/internal/domain"
	"seatplan/internal/service"
	"seatplan/internal/storage"
	"seatplan/internal/storage/mongostore"
)

// serveCommand creates the "serve" command: the persistence API.
func (c *CLI) serveCommand() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the seating-plan HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				c.cfg.Server.Listen = listen
			}
			return c.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (default server.listen)")
	return cmd
}

func (c *CLI) serve(ctx context.Context) error {
	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	cat, err := c.loadCatalog()
	if err != nil {
		return err
	}

	plans := service.NewPlanService(store, c.Logger.WithPrefix("plans"))
	srv := api.New(plans, cat, api.Options{
		Listen:  c.cfg.Server.Listen,
		Users:   c.cfg.UserDB(),
		Realm:   c.cfg.Server.ServerName,
		Timeout: c.cfg.Server.Timeout,
		Logger:  c.Logger.WithPrefix("api"),
	})

	var watcher *catalog.Watcher
	if c.cfg.Catalog.Path != "" {
		if watcher, err = catalog.NewWatcher(c.cfg.Catalog.Path, cat, c.Logger.WithPrefix("catalog")); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	if watcher != nil {
		g.Go(func() error { return watcher.Run(ctx) })
	}
	return g.Wait()
}

// openStore connects the configured backend.
func (c *CLI) openStore(ctx context.Context) (domain.Store, error) {
	sc := c.cfg.Storage
	switch sc.Driver {
	case "mongodb":
		c.Logger.Info("opening store", "driver", sc.Driver)
		ms, err := mongostore.Open(ctx, sc.Mongo.URI, sc.Mongo.Database)
		if err != nil {
			return nil, err
		}
		return ms, nil
	case "sqlite":
		path := sc.SQLitePath
		if path == "" {
			path = defaultSQLitePath()
		}
		c.Logger.Info("opening store", "driver", sc.Driver, "path", path)
		db, err := storage.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return storage.NewStore(db), nil
	}

	dialect := storage.Dialect(sc.Driver)
	dsn := sc.DSN
	if dsn == "" {
		var err error
		if dsn, err = storage.BuildDSN(dialect, sc.ConnParams); err != nil {
			return nil, err
		}
	}
	c.Logger.Info("opening store", "driver", sc.Driver, "host", sc.Host, "database", sc.Database)
	db, err := storage.Open(ctx, dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return storage.NewStore(db), nil
}

// defaultSQLitePath is ~/.local/share/seatplan/seatplan.db.
func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "seatplan.db"
	}
	return filepath.Join(home, ".local", "share", "seatplan", "seatplan.db")
}
