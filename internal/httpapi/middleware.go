package httpapi

import (
	"context"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/cuemby/crld/internal/metrics"
	"github.com/cuemby/crld/internal/namecheck"
	"github.com/google/uuid"
)

// withWorldArgs mirrors the @validate_world_args decorator: it extracts
// and validates {event}/{user}, lower-cases them, and responds 415
// before next ever runs if either name fails namecheck.Validate.
func (s *Server) withWorldArgs(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := namecheck.Validate(r.PathValue("event"))
		if err != nil {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		user, err := namecheck.Validate(r.PathValue("user"))
		if err != nil {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}

		key := worldKey{Event: event, User: user}
		ctx := context.WithValue(r.Context(), worldKeyContextKey{}, key)
		next(w, r.WithContext(ctx))
	}
}

// recoverMiddleware converts a panicking handler into a 500 instead of a
// dropped connection, the HTTP-layer counterpart to the executor's panic
// recovery for blocking ops (spec.md 7, item 5). It also records every
// request's outcome into metrics.HTTPRequestsTotal.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := serverLogger.With().Str("request_id", uuid.New().String()).Logger()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if rec := recover(); rec != nil {
				reqLogger.Error().
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("handler panicked")
				sw.WriteHeader(http.StatusInternalServerError)
			}
			metrics.HTTPRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(sw.status)).Inc()
		}()
		next.ServeHTTP(sw, r)
	})
}

// statusWriter captures the status code written through it so the
// deferred metrics recording above can label the request outcome.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}
