package analytics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/CodingTam/requesthtml/internal/transport"
	"github.com/CodingTam/requesthtml/pkg/logger"
)

type ServiceAPI interface {
	Overview(ctx context.Context) (*Overview, error)
	Trends(ctx context.Context, period string) ([]TrendBucket, error)
	StatusSummary(ctx context.Context) ([]StatusSummary, error)
	RecentActivity(ctx context.Context) ([]Activity, error)
	Statistics(ctx context.Context) (*Statistics, error)
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

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.Overview(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) GetTrends(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = PeriodMonthly
	}
	out, err := h.Service.Trends(r.Context(), period)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) GetStatusSummary(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.StatusSummary(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) GetRecentActivity(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.RecentActivity(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.Statistics(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, StatisticsResponse{Success: true, Data: *out})
}
