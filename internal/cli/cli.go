// Package cli implements the seatplan command-line interface.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"seatplan/internal/app"
	"seatplan/internal/catalog"
	"seatplan/internal/client"
	"seatplan/internal/config"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger  *log.Logger
	Version string

	configPath string
	verbose    bool
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		Version: "dev",
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "seatplan",
		Short:        "Seatplan lays out classroom seating plans",
		Long:         `Seatplan stores classroom seating plans, serves them over HTTP and lets people or agents arrange students and furniture on a collision-free grid.`,
		Version:      c.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default $"+config.EnvConfigFile+")")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.mcpCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.rosterCommand())
	root.AddCommand(c.exportCommand())

	return root
}

// loadConfig reads the config once and applies its log level unless
// --verbose asked for debug.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	if c.verbose {
		c.SetLogLevel(LogDebug)
		return nil
	}
	level, err := log.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("%w: log.level %q", config.ErrInvalid, cfg.Log.Level)
	}
	c.SetLogLevel(level)
	return nil
}

// newClient builds an API client from the client section.
func (c *CLI) newClient() *client.Client {
	return client.New(client.Options{
		BaseURL:  c.cfg.Client.BaseURL,
		Timeout:  c.cfg.Client.Timeout,
		Username: c.cfg.Client.Username,
		Password: c.cfg.Client.Password,
		Attempts: c.cfg.Client.Attempts,
		Logger:   c.Logger.WithPrefix("client"),
	})
}

// classroomID resolves --classroom, falling back to client.classroom_id.
func (c *CLI) classroomID(flag int64) (int64, error) {
	if flag > 0 {
		return flag, nil
	}
	if c.cfg.Client.ClassroomID > 0 {
		return c.cfg.Client.ClassroomID, nil
	}
	return 0, fmt.Errorf("no classroom: pass --classroom or set client.classroom_id")
}

// loadCatalog returns the built-in catalog with the override file applied.
func (c *CLI) loadCatalog() (*catalog.Catalog, error) {
	if c.cfg.Catalog.Path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(c.cfg.Catalog.Path)
}

// newSession opens an editing session on a classroom through the API.
func (c *CLI) newSession(classroomID int64, cat *catalog.Catalog) *app.Session {
	return app.NewSession(c.newClient(), app.Options{
		ClassroomID: classroomID,
		Catalog:     cat,
		Debounce:    c.cfg.Sync.Debounce,
		SyncTimeout: c.cfg.Sync.Timeout,
		Reconcile:   c.cfg.Sync.Reconcile,
		Emitter:     app.LogEmitter{Logger: c.Logger.WithPrefix("layout")},
		Logger:      c.Logger.WithPrefix("session"),
	})
}

func addClassroomFlag(cmd *cobra.Command, id *int64) {
	cmd.Flags().Int64Var(id, "classroom", 0, "classroom ID (default client.classroom_id)")
}
