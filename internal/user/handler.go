package user

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/CodingTam/requesthtml/internal"
	"github.com/CodingTam/requesthtml/internal/transport"
	"github.com/CodingTam/requesthtml/pkg/logger"
)

type ServiceAPI interface {
	List(ctx context.Context) ([]*User, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// ListUsers handles GET /api/admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	views := make([]View, len(users))
	for i, u := range users {
		views[i] = u.ToView()
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{Success: true, Users: views})
}

// UpdateUserStatus handles PUT /api/admin/users/{id}/status
func (h *Handler) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.Logger.Warn("UpdateUserStatus: invalid user ID", "id", idStr)
		h.HandleServiceError(w, internal.ErrUserNotFound)
		return
	}

	var dto UpdateStatusDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.UpdateStatus(r.Context(), id, dto.Status)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, StatusResponse{
		Success: true,
		Message: fmt.Sprintf("User status updated to %s", u.Status),
	})
}
