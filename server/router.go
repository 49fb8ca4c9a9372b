package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes constructs the HTTP router with all publication endpoints.
func (a *App) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(a.Logger))
	r.Use(RecoveryMiddleware(a.Logger))
	r.Use(MetricsMiddleware(a.Metrics))
	if !a.Config.Server.DevMode {
		r.Use(SecurityHeadersMiddleware(31536000))
	}

	r.Get("/favicon.ico", a.handleFavicon)
	r.Get("/healthz", a.handleHealthz)
	r.Method(http.MethodGet, "/metrics", a.Metrics.Handler())

	r.Get(selectOrgPath, a.handleSelectOrgPage)
	r.Post(selectOrgPath, a.handleSelectOrgSubmit)

	r.Route("/{variety}", func(r chi.Router) {
		r.Get("/", a.handleRoot)
		r.Get("/meta.json", a.handleMeta)
		r.Get("/configure/", a.handleConfigure)
		r.Get("/return/", a.handleCallback)
		r.Get("/edition/", a.handleEdition)
		r.Get("/sample/", a.handleSample)
		r.Post("/validate_config/", a.handleValidateConfig)
	})

	return r
}
