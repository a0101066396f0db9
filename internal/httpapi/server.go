package httpapi

import (
	"context"
	"net/http"

	"github.com/cuemby/crld/internal/configstore"
	"github.com/cuemby/crld/internal/fsm"
	"github.com/cuemby/crld/internal/health"
	"github.com/cuemby/crld/internal/log"
	"github.com/cuemby/crld/internal/metrics"
	"github.com/cuemby/crld/internal/orchestrator"
)

// Server is the WLD HTTP API described in spec.md 4.H, wired to the FSM
// funnel, the config store, and the orchestrator adapter for the
// network/wireguard read-only endpoints.
type Server struct {
	fsm     *fsm.FSM
	store   *configstore.Store
	reconc  *health.Reconciler
	adapter *orchestrator.Adapter
	mux     *http.ServeMux
}

// New builds a Server and registers its routes.
func New(f *fsm.FSM, store *configstore.Store, reconc *health.Reconciler, adapter *orchestrator.Adapter) *Server {
	s := &Server{fsm: f, store: store, reconc: reconc, adapter: adapter, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /{event}/create/{user}", s.withWorldArgs(s.handleCreate))
	s.mux.HandleFunc("POST /{event}/reset/{user}", s.withWorldArgs(s.handleReset))
	s.mux.HandleFunc("GET /{event}/status/{user}", s.withWorldArgs(s.handleStatus))
	s.mux.HandleFunc("GET /{event}/config/{user}", s.withWorldArgs(s.handleConfig))
	s.mux.HandleFunc("GET /{event}/wireguard/{user}/config", s.withWorldArgs(s.handleWireguardConfig))
	s.mux.HandleFunc("GET /{event}/wireguard/{user}/network", s.withWorldArgs(s.handleWireguardNetwork))
	s.mux.Handle("GET /metrics", metrics.Handler())
}

// ServeHTTP implements http.Handler, wrapping the route mux with the
// panic-recovery middleware so no handler panic ever reaches the client
// as a dropped connection instead of a 500.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	recoverMiddleware(s.mux).ServeHTTP(w, r)
}

var serverLogger = log.WithComponent("httpapi")

// worldKey is the validated, lowercase (event, user) pair a handler acts
// on, attached to the request by withWorldArgs.
type worldKey = fsm.WorldKey

func worldKeyFromContext(ctx context.Context) worldKey {
	k, _ := ctx.Value(worldKeyContextKey{}).(worldKey)
	return k
}

type worldKeyContextKey struct{}
