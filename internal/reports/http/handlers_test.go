package reportshttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/reports"
)

type stubService struct {
	progress reports.InvoiceProgressView
	detail   reports.MonthlyDetailView
	summary  reports.PeriodSummaryView
	warnings []string
	filters  reports.Filters
}

func (s *stubService) InvoiceProgress(ctx context.Context, f reports.Filters) (reports.InvoiceProgressView, []string, error) {
	s.filters = f
	return s.progress, s.warnings, nil
}

func (s *stubService) MonthlyDetail(ctx context.Context, f reports.Filters) (reports.MonthlyDetailView, []string, error) {
	s.filters = f
	return s.detail, s.warnings, nil
}

func (s *stubService) PeriodSummary(ctx context.Context, f reports.Filters) (reports.PeriodSummaryView, []string, error) {
	s.filters = f
	return s.summary, s.warnings, nil
}

func newTestRouter(svc ReportService) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)
	return r
}

func TestHandlePeriodSummaryParsesFilters(t *testing.T) {
	svc := &stubService{summary: reports.PeriodSummaryView{
		Rows: []reports.PeriodSummaryRow{{Period: "2026-01", ExecutedValue: 1000}},
	}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet,
		"/reports/productivity/period-summary?company_id=3&from=2026-01-01&to=2026-03-31", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), svc.filters.CompanyID)
	require.NotNil(t, svc.filters.From)
	assert.Equal(t, "2026-01-01", svc.filters.From.Format("2006-01-02"))

	var envelope struct {
		Report   reports.PeriodSummaryView `json:"report"`
		Warnings []string                  `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Report.Rows, 1)
	assert.Equal(t, "2026-01", envelope.Report.Rows[0].Period)
}

func TestHandleInvoiceProgressParsesInvoiceFilter(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet,
		"/reports/productivity/invoice-progress?company_id=1&sales_invoice_id=42&from=2026-01-01&to=2026-03-31", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), svc.filters.SalesInvoiceID)
}

func TestHandleInvoiceProgressSurfacesWarnings(t *testing.T) {
	svc := &stubService{warnings: []string{"company filter is required, showing no data"}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/reports/productivity/invoice-progress", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Warnings []string `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Warnings, 1)
}

func TestHandleRejectsMalformedFilters(t *testing.T) {
	router := newTestRouter(&stubService{})

	cases := []struct {
		name string
		url  string
	}{
		{"bad company", "/reports/productivity/monthly-detail?company_id=abc"},
		{"bad invoice", "/reports/productivity/invoice-progress?sales_invoice_id=abc"},
		{"bad from", "/reports/productivity/monthly-detail?from=January"},
		{"inverted range", "/reports/productivity/monthly-detail?from=2026-02-01&to=2026-01-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleCSVExport(t *testing.T) {
	svc := &stubService{summary: reports.PeriodSummaryView{
		Columns: []reports.Column{{Key: "period", Label: "Period", Type: "text"}},
		Rows:    []reports.PeriodSummaryRow{{Period: "2026-01", ExecutedValue: 1000, Profit: 700}},
	}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet,
		"/reports/productivity/period-summary/export.csv?company_id=1&from=2026-01-01&to=2026-01-31", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "period-summary.csv")
	assert.Contains(t, rec.Body.String(), "2026-01")
	assert.Contains(t, rec.Body.String(), "1000.00")
}
