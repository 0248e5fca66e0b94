package deliveryorders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nusantara-erp/nusantara-erp/internal/platform/httpx"
	"github.com/nusantara-erp/nusantara-erp/internal/shared"
)

// Handler manages delivery order endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency *shared.IdempotencyStore
	validate    *validator.Validate
}

// NewHandler builds Handler instance. idempotency may be nil, in which case
// the Idempotency-Key header is ignored.
func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{logger: logger, service: service, idempotency: idempotency, validate: validator.New()}
}

// MountRoutes registers delivery order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/report", h.handleReport)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/post", h.handlePost)
	r.Post("/{id}/reapply", h.handleReapply)
	r.Delete("/{id}", h.handleDelete)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), idemKey, "purchasing:delivery_orders"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate", "request already processed")
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
	}

	id, err := h.service.Create(r.Context(), req)
	if err != nil {
		// nothing was stored, free the key so the caller can retry
		if id == uuid.Nil && idemKey != "" && h.idempotency != nil {
			if delErr := h.idempotency.Delete(r.Context(), idemKey); delErr != nil {
				h.logger.Warn("idempotency rollback", slog.Any("error", delErr))
			}
		}
		// Propagation failures after insert still carry the stored id.
		if id != uuid.Nil {
			h.logger.Error("delivery order stored but propagation failed",
				slog.String("id", id.String()), slog.Any("error", err))
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, ErrReferenceNotFound):
				status = http.StatusUnprocessableEntity
			case errors.Is(err, ErrInvariantViolation):
				status = http.StatusConflict
			}
			httpx.JSON(w, status, map[string]any{
				"id":    id,
				"error": "delivery order stored but fulfillment propagation failed",
			})
			return
		}
		h.respondError(w, "create delivery order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	if err := h.service.Post(r.Context(), id, req); err != nil {
		h.respondError(w, "post delivery order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "is_posted": true})
}

func (h *Handler) handleReapply(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	if err := h.service.Reapply(r.Context(), id); err != nil {
		h.respondError(w, "reapply delivery order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	do, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, "get delivery order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, do)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.urlID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete delivery order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reportQuery carries the parsed report filters; identifiers are validated
// before hitting the store.
type reportQuery struct {
	No         string `validate:"-"`
	SupplierID string `validate:"omitempty,uuid"`
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rq := reportQuery{No: q.Get("no"), SupplierID: q.Get("supplier_id")}
	if err := h.validate.Struct(rq); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "supplier_id is not a valid identifier")
		return
	}

	filter := QueryFilter{No: rq.No, SupplierID: rq.SupplierID}
	var bad string
	filter.DateFrom, bad = parseDate(q.Get("date_from"), bad, "date_from")
	filter.DateTo, bad = parseDate(q.Get("date_to"), bad, "date_to")
	if bad != "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", bad+" is not a valid date")
		return
	}

	orders, err := h.service.Query(r.Context(), filter)
	if err != nil {
		h.respondError(w, "delivery order report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": orders})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	req := ListRequest{Keyword: q.Get("keyword"), Page: page, PerPage: perPage}

	orders, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondError(w, "list delivery orders", err)
		return
	}
	p := shared.NewPagination(req.Page, req.PerPage, total)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data": orders,
		"pagination": map[string]int{
			"page":        p.Page,
			"per_page":    p.PerPage,
			"total":       p.Total,
			"total_pages": p.TotalPages,
		},
	})
}

// respondError maps domain errors onto the problem-details responses.
func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if verr, ok := AsValidationError(err); ok {
		httpx.ProblemWithFields(w, http.StatusUnprocessableEntity,
			"Validation Failed", verr.Error(), verr.Fields)
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrReferenceNotFound):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Reference Not Found", err.Error())
	case errors.Is(err, ErrDuplicateNo):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvariantViolation):
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusConflict, "Invariant Violation", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) urlID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if err := h.validate.Var(raw, "required,uuid"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "id is not a valid identifier")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "id is not a valid identifier")
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(raw, bad, field string) (*time.Time, string) {
	if raw == "" || bad != "" {
		return nil, bad
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, field
	}
	return &t, ""
}
