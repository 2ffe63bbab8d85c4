package server

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// RouterOptions controls the construction of the HTTP router.
// Only Decisions is required.
type RouterOptions struct {
	Decisions Decider

	// Logger receives request logs. Nil uses chi's default stderr logger.
	Logger *zap.Logger

	// Gatherer backs /metrics. Nil leaves /metrics unmounted.
	Gatherer prometheus.Gatherer

	// HealthCheck probes dependencies for /health. Nil always reports ok.
	HealthCheck func(ctx context.Context) error

	// CORSOptions enables CORS handling when set. A copy is used.
	CORSOptions *cors.Options

	// Middleware are appended after the default middleware stack
	// (RequestID, RealIP, Logger, Recoverer).
	Middleware []func(http.Handler) http.Handler

	ConnectInterceptors []connect.Interceptor
}

// CORSOptionsFor returns the policy for the given browser origins.
func CORSOptionsFor(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
		},
		ExposedHeaders: []string{
			"Connect-Protocol-Version",
		},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

// NewRouter assembles a chi.Router with the shared middleware, the proxy
// procedures, /health and /metrics.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Logger != nil {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  zap.NewStdLog(opts.Logger.Named("http")),
			NoColor: true,
		}))
	} else {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	if opts.CORSOptions != nil {
		r.Use(cors.Handler(*opts.CORSOptions))
	}

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	if opts.Decisions != nil {
		path, handler := NewProxyServiceHandler(
			NewProxyHandler(opts.Decisions),
			connect.WithInterceptors(opts.ConnectInterceptors...),
		)
		r.Mount(path, handler)
	}

	r.Get("/health", healthHandler(opts.HealthCheck))

	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// NewH2CHandler wraps the router so Connect clients can use HTTP/2 over
// cleartext.
func NewH2CHandler(opts RouterOptions) http.Handler {
	return h2c.NewHandler(NewRouter(opts), &http2.Server{})
}

type healthStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := healthStatus{Status: "ok"}, http.StatusOK
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				status, code = healthStatus{Status: "unavailable", Error: err.Error()}, http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
