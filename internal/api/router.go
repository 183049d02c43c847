package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/basel-ax/pixelart/internal/metrics"
	"github.com/basel-ax/pixelart/internal/ratelimit"
)

const apiPrefix = "/api/"

// RouterOptions holds the cross-cutting settings of the HTTP surface
type RouterOptions struct {
	AllowedOrigins []string
	TrustProxy     bool
}

// NewRouter wires the proxy routes and middleware.
// Every request under /api/ is rate limited, including unknown paths; /healthz and /metrics are not.
func NewRouter(h *Handler, limiter *ratelimit.FixedWindow, collector *metrics.Collector, logger *zap.Logger, opts RouterOptions) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.HandleHealth).Methods(http.MethodGet)
	if collector != nil {
		r.Handle("/metrics", collector.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/api/generate", h.HandleGenerate).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	return Chain(r,
		Recovery(logger),
		RequestID(),
		RequestLogger(logger, collector),
		SecurityHeaders(),
		CORS(opts.AllowedOrigins),
		forPrefix(apiPrefix, RateLimit(limiter, opts.TrustProxy, collector, logger)),
	)
}

// forPrefix applies m only to requests whose path starts with prefix
func forPrefix(prefix string, m Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		wrapped := m(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, prefix) {
				wrapped.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
