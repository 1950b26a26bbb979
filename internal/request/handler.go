package request

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/CodingTam/requesthtml/internal/ledger"
	"github.com/CodingTam/requesthtml/internal/transport"
	"github.com/CodingTam/requesthtml/pkg/logger"
)

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateRequestDTO) (*Request, error)
	Transition(ctx context.Context, ref string, dto TransitionDTO) (*Request, error)
	List(ctx context.Context, q ListQuery) ([]*Request, error)
	History(ctx context.Context, ref string) ([]*ledger.Entry, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var dto CreateRequestDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	req, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, CreateResponse{
		Success:   true,
		Message:   "Request created successfully",
		RequestID: req.RequestID,
	})
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	isAdmin, _ := strconv.ParseBool(r.URL.Query().Get("isAdmin"))
	requests, err := h.Service.List(r.Context(), ListQuery{
		Username: r.URL.Query().Get("username"),
		IsAdmin:  isAdmin,
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ListResponse{Success: true, Data: requests})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if entries == nil {
		entries = []*ledger.Entry{}
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    entries,
	})
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var dto TransitionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	req, err := h.Service.Transition(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, TransitionResponse{
		Success:       true,
		Message:       fmt.Sprintf("Request status updated to %s", req.Status),
		AdminComments: req.AdminComments,
	})
}
