package productivity

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler manages productivity report endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers productivity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports", h.listReports)
	r.Post("/reports", h.createReport)
	r.Get("/reports/{id}", h.getReport)
	r.Put("/reports/{id}", h.updateReport)
	r.Post("/reports/{id}/submit", h.submitReport)
	r.Post("/reports/{id}/cancel", h.cancelReport)
}

type listReportsResponse struct {
	Reports    []ProductivityReport `json:"reports"`
	Pagination shared.Pagination    `json:"pagination"`
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	req := ListReportsRequest{Limit: 50}

	if v := r.URL.Query().Get("company_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "company_id must be an integer")
			return
		}
		req.CompanyID = id
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := ReportStatus(v)
		req.Status = &status
	}
	if v := r.URL.Query().Get("month_from"); v != "" {
		t, err := time.Parse("2006-01", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "month_from must be YYYY-MM")
			return
		}
		req.MonthFrom = &t
	}
	if v := r.URL.Query().Get("month_to"); v != "" {
		t, err := time.Parse("2006-01", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "month_to must be YYYY-MM")
			return
		}
		req.MonthTo = &t
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			req.Limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			req.Offset = parsed
		}
	}

	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}

	reports, total, err := h.service.ListReports(r.Context(), req)
	if err != nil {
		h.logger.Error("list reports failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	page := req.Offset/req.Limit + 1
	httpx.JSON(w, http.StatusOK, listReportsResponse{
		Reports:    reports,
		Pagination: shared.NewPagination(page, req.Limit, total),
	})
}

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	report, err := h.service.GetReport(r.Context(), id)
	if err != nil {
		h.respondError(w, "get report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) createReport(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}

	report, err := h.service.CreateReport(r.Context(), req, currentUserID(r))
	if err != nil {
		h.respondError(w, "create report", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, report)
}

func (h *Handler) updateReport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	var req UpdateReportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}

	report, err := h.service.UpdateReport(r.Context(), id, req)
	if err != nil {
		h.respondError(w, "update report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) submitReport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	report, err := h.service.SubmitReport(r.Context(), id)
	if err != nil {
		h.respondError(w, "submit report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) cancelReport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	report, err := h.service.CancelReport(r.Context(), id)
	if err != nil {
		h.respondError(w, "cancel report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) reportID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Report ID", "report id must be an integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "report not found")
	case errors.Is(err, ErrAlreadyExists):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusConflict, "Invalid Status", err.Error())
	case errors.Is(err, shared.ErrLockNotAcquired):
		httpx.Problem(w, http.StatusConflict, "Busy", "another submit is touching the same invoices, retry shortly")
	case errors.Is(err, ErrNegativePercentage),
		errors.Is(err, ErrOverAllocation),
		errors.Is(err, ErrMissingSalesPerson),
		errors.Is(err, ErrMissingCommissionRate):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Error", err.Error())
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// currentUserID reads the authenticated principal injected by the host
// gateway. Authorization itself happens upstream.
func currentUserID(r *http.Request) int64 {
	if v := r.Header.Get("X-User-ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			return id
		}
	}
	return 0
}
