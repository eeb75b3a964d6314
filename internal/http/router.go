package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Usages     *UsageHandler
	Access     *AccessHandler
	Metrics    http.Handler
	Middleware []func(http.Handler) http.Handler
	// APIMiddleware wraps only the /api routes, typically RequireActor.
	APIMiddleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		for _, mw := range cfg.APIMiddleware {
			if mw != nil {
				r.Use(mw)
			}
		}

		if cfg.Usages != nil {
			r.Route("/usages", func(r chi.Router) {
				r.Get("/", cfg.Usages.List)
				r.Post("/", cfg.Usages.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.Usages.Get)
					r.Patch("/", cfg.Usages.Update)
					r.Delete("/", cfg.Usages.Delete)
				})
			})
		}
		if cfg.Access != nil {
			r.Post("/access-grants", cfg.Access.Grant)
		}
	})

	return r
}
