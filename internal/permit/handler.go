package permit

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/safetyops/permit-management/internal"
	"github.com/safetyops/permit-management/internal/auth"
	"github.com/safetyops/permit-management/internal/transport"
	"github.com/safetyops/permit-management/pkg/logger"
)

type ServiceAPI interface {
	Create(scope auth.Scope, dto CreatePermitDTO) (*Permit, error)
	GetByID(scope auth.Scope, id int64) (*Permit, error)
	GetAll(scope auth.Scope) ([]*Permit, error)
	Update(scope auth.Scope, id int64, dto UpdatePermitDTO) (*Permit, error)
	Delete(scope auth.Scope, id int64) (*Permit, error)
	Search(scope auth.Scope, q SearchQuery) ([]*Permit, error)
	Stats(scope auth.Scope) (*Stats, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.L()),
		Service:     service,
	}
}

type permitResponse struct {
	Message string  `json:"message"`
	Permit  *Permit `json:"permit"`
}

type permitListResponse struct {
	Message string    `json:"message"`
	Permits []*Permit `json:"permits"`
}

func (h *Handler) CreatePermit(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("missing credentials", internal.ErrCodeNoCredential))
		return
	}

	var dto CreatePermitDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreatePermit: invalid request body", "error", err)
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	p, err := h.Service.Create(scope, dto)
	if err != nil {
		h.Logger.Error("CreatePermit: service error", "error", err, "user_id", scope.UserID)
		h.writePermitError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, permitResponse{
		Message: "Permit created successfully",
		Permit:  p,
	})
}

func (h *Handler) GetAllPermits(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("missing credentials", internal.ErrCodeNoCredential))
		return
	}

	permits, err := h.Service.GetAll(scope)
	if err != nil {
		h.Logger.Error("GetAllPermits: service error", "error", err, "user_id", scope.UserID)
		h.writePermitError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, permitListResponse{
		Message: "Permits fetched successfully",
		Permits: permits,
	})
}

func (h *Handler) GetPermit(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("missing credentials", internal.ErrCodeNoCredential))
		return
	}

	id, err := h.permitID(r)
	if err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid permit ID", internal.ErrCodeValidationFailed))
		return
	}

	p, err := h.Service.GetByID(scope, id)
	if err != nil {
		h.Logger.Error("GetPermit: service error", "error", err, "permit_id", id, "user_id", scope.UserID)
		h.writePermitError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, permitResponse{
		Message: "Permit fetched successfully",
		Permit:  p,
	})
}

func (h *Handler) UpdatePermit(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("missing credentials", internal.ErrCodeNoCredential))
		return
	}

	id, err := h.permitID(r)
	if err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid permit ID", internal.ErrCodeValidationFailed))
		return
	}

	var dto UpdatePermitDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdatePermit: invalid request body", "error", err)
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	p, err := h.Service.Update(scope, id, dto)
	if err != nil {
		h.Logger.Error("UpdatePermit: service error", "error", err, "permit_id", id, "user_id", scope.UserID)
		h.writePermitError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, permitResponse{
		Message: "Permit updated successfully",
		Permit:  p,
	})
}

func (h *Handler) DeletePermit(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("missing credentials", internal.ErrCodeNoCredential))
		return
	}

	id, err := h.permitID(r)
	if err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid permit ID", internal.ErrCodeValidationFailed))
		return
	}

	p, err := h.Service.Delete(scope, id)
	if err != nil {
		h.Logger.Error("DeletePermit: service error", "error", err, "permit_id", id, "user_id", scope.UserID)
		h.writePermitError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, permitResponse{
		Message: "Permit deleted successfully",
		Permit:  p,
	})
}

func (h *Handler) SearchPermits(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("missing credentials", internal.ErrCodeNoCredential))
		return
	}

	q, err := ParseSearchQuery(r.URL.Query())
	if err != nil {
		h.writePermitError(w, err)
		return
	}

	permits, err := h.Service.Search(scope, q)
	if err != nil {
		h.Logger.Error("SearchPermits: service error", "error", err, "user_id", scope.UserID)
		h.writePermitError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, permitListResponse{
		Message: "Search results fetched successfully",
		Permits: permits,
	})
}

func (h *Handler) PermitStats(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("missing credentials", internal.ErrCodeNoCredential))
		return
	}

	stats, err := h.Service.Stats(scope)
	if err != nil {
		h.Logger.Error("PermitStats: service error", "error", err, "user_id", scope.UserID)
		h.writePermitError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) permitID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) writePermitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPermitNotFound):
		h.WriteAppError(w, internal.NewNotFoundError("permit not found", internal.ErrCodePermitNotFound))
	case errors.Is(err, ErrImmutableField):
		h.WriteAppError(w, internal.NewValidationError("id and created_by cannot be modified", internal.ErrCodeImmutableField))
	default:
		var vErr ValidationError
		if errors.As(err, &vErr) {
			h.WriteAppError(w, internal.NewValidationError(vErr.Error(), internal.ErrCodeValidationFailed))
			return
		}
		h.HandleServiceError(w, err)
	}
}
