package dashboard

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/salespulse/salespulse/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Company(w http.ResponseWriter, r *http.Request) {
	mode, err := ParseViewMode(r.URL.Query().Get("mode"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	var companyID *int64
	if v := r.URL.Query().Get("company_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id must be a positive integer")
			return
		}
		companyID = &id
	}

	overview, err := h.service.CompanyOverview(r.Context(), companyID, mode)
	if err != nil {
		h.logger.Error("company dashboard failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) Department(w http.ResponseWriter, r *http.Request) {
	departmentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || departmentID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive integer")
		return
	}
	mode, err := ParseViewMode(r.URL.Query().Get("mode"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	overview, err := h.service.DepartmentOverview(r.Context(), departmentID, mode)
	if err != nil {
		h.logger.Error("department dashboard failed",
			slog.Int64("department_id", departmentID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	options, err := h.service.FilterOptions(r.Context())
	if err != nil {
		h.logger.Error("dashboard options failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, options)
}

func (h *Handler) PersonalByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "userID must be a positive integer")
		return
	}

	overview, err := h.service.PersonalOverviewForUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no employee record for this user")
			return
		}
		h.logger.Error("personal dashboard failed",
			slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) Personal(w http.ResponseWriter, r *http.Request) {
	employeeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || employeeID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive integer")
		return
	}

	overview, err := h.service.PersonalOverview(r.Context(), employeeID)
	if err != nil {
		h.logger.Error("personal dashboard failed",
			slog.Int64("employee_id", employeeID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}
