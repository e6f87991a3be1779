package httpapi

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/logging"
	"github.com/dmitrijs2005/hobbyvault/internal/server/auth"
	"github.com/dmitrijs2005/hobbyvault/internal/server/metrics"
	"github.com/gorilla/mux"
)

// Authenticator is the Inbound Gatekeeper for HTTP. It verifies the bearer
// access token and attaches the caller identity to the request context, or
// answers 401 without calling next. It never refreshes.
func Authenticator(codec *auth.Codec, m *metrics.Metrics, logger logging.Logger) mux.MiddlewareFunc {
	logger = logger.With("module", "gatekeeper")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := auth.Authenticate(codec, r.Header.Get(common.AuthorizationHeader))
			if err != nil {
				m.Auth("gatekeeper", metrics.OutcomeDenied)
				logger.Debug(r.Context(), "request rejected", "path", r.URL.Path)
				writeUnauthorized(w)
				return
			}
			m.Auth("gatekeeper", metrics.OutcomeSuccess)
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per request. Only the route template is
// logged, never headers or bodies.
func RequestLogger(logger logging.Logger) mux.MiddlewareFunc {
	logger = logger.With("module", "http_server")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info(r.Context(), "request",
				"method", r.Method,
				"route", routeName(r),
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}

func Recovery(logger logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					logger.Error(r.Context(), "panic in handler", "panic", p, "stack", string(debug.Stack()))
					writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
