package targets

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/salespulse/salespulse/internal/platform/httpx"
)

// Invalidator drops cached dashboard aggregates once a lifecycle
// transition changes which targets contribute to sums.
type Invalidator interface {
	Bump(ctx context.Context) error
}

type Handler struct {
	logger     *slog.Logger
	service    *Service
	validate   *validator.Validate
	invalidate Invalidator
}

func NewHandler(logger *slog.Logger, service *Service, invalidate Invalidator) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		validate:   validator.New(),
		invalidate: invalidate,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListTargetsRequest{Limit: 50}

	q := r.URL.Query()
	if v := q.Get("level"); v != "" {
		level := Level(v)
		req.Level = &level
	}
	if id, ok := parseQueryID(q.Get("department_id")); ok {
		req.DepartmentID = &id
	}
	if id, ok := parseQueryID(q.Get("employee_id")); ok {
		req.EmployeeID = &id
	}
	if v := q.Get("active_at"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "active_at must be YYYY-MM-DD")
			return
		}
		req.ActiveAt = &d
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		req.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		req.Offset = n
	}

	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list targets failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Target{}
	}
	httpx.JSON(w, http.StatusOK, ListTargetsResponse{Items: items, Total: total})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get target failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTargetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	t, err := req.Target()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), t)
	if err != nil {
		h.respondError(w, "create target failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req UpdateTargetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	updated, err := h.service.Update(r.Context(), id, func(t *Target) error {
		return req.Apply(t)
	})
	if err != nil {
		h.respondError(w, "update target failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	t, err := h.service.Submit(r.Context(), id)
	if err != nil {
		h.respondError(w, "submit target failed", err)
		return
	}
	h.bumpCaches(r.Context())
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	t, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.respondError(w, "cancel target failed", err)
		return
	}
	h.bumpCaches(r.Context())
	httpx.JSON(w, http.StatusOK, t)
}

// Refresh recomputes one target on demand, outside the scheduled tick.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	t, err := h.service.Refresh(r.Context(), id, time.Now().UTC())
	if err != nil {
		h.respondError(w, "refresh target failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) bumpCaches(ctx context.Context) {
	if h.invalidate == nil {
		return
	}
	if err := h.invalidate.Bump(ctx); err != nil {
		h.logger.Warn("cache bump failed", slog.Any("error", err))
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "target not found")
	case errors.Is(err, ErrInvalidScope), errors.Is(err, ErrInvalidPeriod), errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	default:
		h.logger.Error(msg, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parseQueryID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
