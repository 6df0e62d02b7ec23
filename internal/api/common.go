package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"seatplan/internal/domain"
)

/* Errors */
type HttpErrResponse struct {
	Err            error  `json:"-"`
	HTTPStatusCode int    `json:"-"`
	ErrorText      string `json:"error"`
	Detail         string `json:"detail,omitempty"`
}

func (e *HttpErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func httpErrNotFound(err error) render.Renderer {
	return &HttpErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusNotFound,
		ErrorText:      "Not Found",
		Detail:         err.Error(),
	}
}

func httpErrInvalidRequest(err error) render.Renderer {
	return &HttpErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		ErrorText:      "Invalid Request",
		Detail:         err.Error(),
	}
}

func httpErrUnexpected(err error) render.Renderer {
	return &HttpErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		ErrorText:      "Internal Server Error",
	}
}

// renderError picks the response for a service error. Unexpected errors are
// logged; their text is not sent.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		render.Render(w, r, httpErrNotFound(err))
	case errors.Is(err, domain.ErrInvalidInput):
		render.Render(w, r, httpErrInvalidRequest(err))
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		render.Render(w, r, httpErrUnexpected(err))
	}
}

/* URL params */
type ctxKey string

const (
	ctxPlanID      ctxKey = "planID"
	ctxClassroomID ctxKey = "classroomID"
)

// idCtx parses the {param} path segment as a positive id and stores it under key.
func (s *Server) idCtx(param string, key ctxKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
			if err != nil || id <= 0 {
				render.Render(w, r, httpErrInvalidRequest(errors.New("bad "+param+" param")))
				return
			}
			ctx := context.WithValue(r.Context(), key, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ctxID(ctx context.Context, key ctxKey) int64 {
	id, _ := ctx.Value(key).(int64)
	return id
}

// urlID parses a trailing id segment that has no middleware of its own.
func urlID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("bad " + param + " param")
	}
	return id, nil
}

/* Logging */
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"took", time.Since(start),
					"id", middleware.GetReqID(r.Context()))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
