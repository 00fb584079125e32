package masterdata

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler manages master data endpoints.
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

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales-persons", h.listSalesPersons)
	r.Post("/sales-persons", h.createSalesPerson)
	r.Get("/sales-persons/{id}", h.getSalesPerson)
	r.Put("/sales-persons/{id}", h.updateSalesPerson)

	r.Get("/shareholders", h.listShareholders)
	r.Post("/shareholders", h.createShareholder)
	r.Get("/shareholders/{id}", h.getShareholder)
	r.Put("/shareholders/{id}", h.updateShareholder)
}

func (h *Handler) listSalesPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := h.service.ListSalesPersons(r.Context())
	if err != nil {
		h.respondError(w, "list sales persons", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sales_persons": persons})
}

func (h *Handler) getSalesPerson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	sp, err := h.service.GetSalesPerson(r.Context(), id)
	if err != nil {
		h.respondError(w, "get sales person", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sp)
}

func (h *Handler) createSalesPerson(w http.ResponseWriter, r *http.Request) {
	var req CreateSalesPersonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	sp, err := h.service.CreateSalesPerson(r.Context(), req)
	if err != nil {
		h.respondError(w, "create sales person", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sp)
}

func (h *Handler) updateSalesPerson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req UpdateSalesPersonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	sp, err := h.service.UpdateSalesPerson(r.Context(), id, req)
	if err != nil {
		h.respondError(w, "update sales person", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sp)
}

func (h *Handler) listShareholders(w http.ResponseWriter, r *http.Request) {
	shareholders, err := h.service.ListShareholders(r.Context())
	if err != nil {
		h.respondError(w, "list shareholders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shareholders": shareholders})
}

func (h *Handler) getShareholder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	sh, err := h.service.GetShareholder(r.Context(), id)
	if err != nil {
		h.respondError(w, "get shareholder", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sh)
}

func (h *Handler) createShareholder(w http.ResponseWriter, r *http.Request) {
	var req CreateShareholderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	sh, err := h.service.CreateShareholder(r.Context(), req)
	if err != nil {
		h.respondError(w, "create shareholder", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sh)
}

func (h *Handler) updateShareholder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req UpdateShareholderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	sh, err := h.service.UpdateShareholder(r.Context(), id, req)
	if err != nil {
		h.respondError(w, "update shareholder", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sh)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be an integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "record not found")
	case errors.Is(err, ErrAlreadyExists):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "code already in use")
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
