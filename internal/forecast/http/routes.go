package forecasthttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers forecast endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/healthz", h.handleHealth)
	r.Get("/forecast/scenarios", h.handleScenarios)
	r.Get("/forecast/runs", h.handleHistory)
	r.Get("/forecast/runs/{id}", h.handleRunByID)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Post("/forecast/run", h.handleRun)
		gr.Get("/forecast/rates.csv", h.handleRatesCSV)
		gr.Post("/imports/{table}", h.handleImport)
	})
}
