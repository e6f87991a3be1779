package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/hobbyvault/internal/logging"
	"github.com/dmitrijs2005/hobbyvault/internal/server/auth"
	"github.com/dmitrijs2005/hobbyvault/internal/server/metrics"
	"github.com/gorilla/mux"
)

// AuthPathPrefix groups the endpoints that never carry an access token.
const AuthPathPrefix = "/api/auth/"

// NewRouter builds the API. /api/auth/* is public; everything else under
// /api passes the Gatekeeper. Collaborator services mount their own
// protected routes on the returned Protected subrouter.
func NewRouter(h *Handlers, access *auth.Codec, m *metrics.Metrics, logger logging.Logger) *Router {
	r := mux.NewRouter()
	r.Use(Recovery(logger), RequestLogger(logger))
	if m != nil {
		r.Use(m.Middleware(routeName))
		r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	public := r.PathPrefix("/api/auth").Subrouter()
	public.HandleFunc("/signup", h.signup).Methods(http.MethodPost)
	public.HandleFunc("/login", h.login).Methods(http.MethodPost)
	public.HandleFunc("/refresh", h.refresh).Methods(http.MethodPost)
	public.HandleFunc("/logout", h.logout).Methods(http.MethodPost)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(Authenticator(access, m, logger))
	protected.HandleFunc("/me", h.me).Methods(http.MethodGet)
	protected.HandleFunc("/me", h.deleteMe).Methods(http.MethodDelete)

	return &Router{Router: r, Protected: protected}
}

type Router struct {
	*mux.Router
	Protected *mux.Router
}
