package reportshttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers productivity report endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Route("/reports/productivity", func(gr chi.Router) {
		gr.Get("/invoice-progress", h.handleInvoiceProgress)
		gr.Get("/monthly-detail", h.handleMonthlyDetail)
		gr.Get("/period-summary", h.handlePeriodSummary)

		gr.Group(func(er chi.Router) {
			er.Use(limiter)
			er.Get("/invoice-progress/export.csv", h.handleInvoiceProgressCSV)
			er.Get("/monthly-detail/export.csv", h.handleMonthlyDetailCSV)
			er.Get("/period-summary/export.csv", h.handlePeriodSummaryCSV)
		})
	})
}
