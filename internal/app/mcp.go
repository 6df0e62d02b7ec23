package app

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"seatplan/internal/catalog"
	"seatplan/internal/domain"
	mcpserver "seatplan/internal/mcp"
)

// LogEmitter writes layout events to a logger. It stands in for a renderer
// when the session runs headless.
type LogEmitter struct {
	Logger *log.Logger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	e.Logger.Debug(event, "data", data)
}

// ServeMCP exposes sess to an agent on stdin/stdout until the client
// disconnects or ctx is cancelled, then saves what is pending. The active
// plan is opened first; a classroom with no plan yet is not an error since
// the agent can create one.
func ServeMCP(ctx context.Context, sess *Session, cat *catalog.Catalog, version string, logger *log.Logger) error {
	if err := sess.Open(ctx, nil); err != nil {
		if !errors.Is(err, domain.ErrNoActivePlan) {
			return err
		}
		logger.Warn("classroom has no active plan", "classroom", sess.ClassroomID())
	}

	srv := mcpserver.New(mcpserver.Deps{
		Session: sess,
		Catalog: cat,
		Logger:  logger.WithPrefix("mcp"),
		Version: version,
	})

	done := make(chan error, 1)
	go func() { done <- srv.ServeStdio() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
	}
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reloadTimeout)
	defer cancel()
	if cerr := sess.Close(closeCtx); cerr != nil {
		logger.Error("final save failed", "err", cerr)
		err = errors.Join(err, cerr)
	}
	return err
}
