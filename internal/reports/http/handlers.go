package reportshttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/reports"
	"github.com/meridian-erp/meridian-erp/internal/reports/export"
)

const requestTimeout = 5 * time.Second

// ReportService defines the report building contract used by the handler.
type ReportService interface {
	InvoiceProgress(ctx context.Context, f reports.Filters) (reports.InvoiceProgressView, []string, error)
	MonthlyDetail(ctx context.Context, f reports.Filters) (reports.MonthlyDetailView, []string, error)
	PeriodSummary(ctx context.Context, f reports.Filters) (reports.PeriodSummaryView, []string, error)
}

// Handler coordinates HTTP requests for productivity reports.
type Handler struct {
	logger  *slog.Logger
	service ReportService
	csvPool sync.Pool
}

// NewHandler constructs the reports HTTP handler.
func NewHandler(logger *slog.Logger, service ReportService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, service: service}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

type viewEnvelope struct {
	Report   any      `json:"report"`
	Warnings []string `json:"warnings,omitempty"`
}

func (h *Handler) handleInvoiceProgress(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, warnings, err := h.service.InvoiceProgress(ctx, filters)
	if err != nil {
		h.respondError(w, "invoice progress", err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewEnvelope{Report: view, Warnings: warnings})
}

func (h *Handler) handleMonthlyDetail(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, warnings, err := h.service.MonthlyDetail(ctx, filters)
	if err != nil {
		h.respondError(w, "monthly detail", err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewEnvelope{Report: view, Warnings: warnings})
}

func (h *Handler) handlePeriodSummary(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, warnings, err := h.service.PeriodSummary(ctx, filters)
	if err != nil {
		h.respondError(w, "period summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewEnvelope{Report: view, Warnings: warnings})
}

func (h *Handler) handleInvoiceProgressCSV(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, _, err := h.service.InvoiceProgress(ctx, filters)
	if err != nil {
		h.respondError(w, "invoice progress export", err)
		return
	}
	h.writeCSV(w, "invoice-progress.csv", func(buf *bytes.Buffer) error {
		return export.WriteInvoiceProgressCSV(buf, view)
	})
}

func (h *Handler) handleMonthlyDetailCSV(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, _, err := h.service.MonthlyDetail(ctx, filters)
	if err != nil {
		h.respondError(w, "monthly detail export", err)
		return
	}
	h.writeCSV(w, "monthly-detail.csv", func(buf *bytes.Buffer) error {
		return export.WriteMonthlyDetailCSV(buf, view)
	})
}

func (h *Handler) handlePeriodSummaryCSV(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, _, err := h.service.PeriodSummary(ctx, filters)
	if err != nil {
		h.respondError(w, "period summary export", err)
		return
	}
	h.writeCSV(w, "period-summary.csv", func(buf *bytes.Buffer) error {
		return export.WritePeriodSummaryCSV(buf, view)
	})
}

func (h *Handler) writeCSV(w http.ResponseWriter, filename string, write func(*bytes.Buffer) error) {
	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer h.csvPool.Put(buf)

	if err := write(buf); err != nil {
		h.respondError(w, "render csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

// parseFilters reads company_id, sales_invoice_id, from and to query
// parameters. Missing values stay unset so the service can emit its warnings;
// malformed values are rejected outright.
func parseFilters(w http.ResponseWriter, r *http.Request) (reports.Filters, bool) {
	var filters reports.Filters

	if v := r.URL.Query().Get("company_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "company_id must be an integer")
			return filters, false
		}
		filters.CompanyID = id
	}
	if v := r.URL.Query().Get("sales_invoice_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "sales_invoice_id must be an integer")
			return filters, false
		}
		filters.SalesInvoiceID = id
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "from must be YYYY-MM-DD")
			return filters, false
		}
		filters.From = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "to must be YYYY-MM-DD")
			return filters, false
		}
		filters.To = &t
	}
	if filters.From != nil && filters.To != nil && filters.To.Before(*filters.From) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "to must not precede from")
		return filters, false
	}
	return filters, true
}
