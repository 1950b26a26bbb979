package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CodingTam/requesthtml/internal/datastore"
	"github.com/CodingTam/requesthtml/internal/transport"
)

type DatabaseStatus struct {
	Mode   datastore.Mode `json:"mode"`
	Driver string         `json:"driver"`
	Ping   string         `json:"ping"`
}

type HealthResponse struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Database  DatabaseStatus `json:"database"`
	Users     int64          `json:"users"`
	Requests  int64          `json:"requests"`
	Timestamp time.Time      `json:"timestamp"`
}

type HealthHandler struct {
	*transport.BaseHandler
	store *datastore.Adapter
	now   func() time.Time
}

func NewHealthHandler(store *datastore.Adapter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		BaseHandler: transport.NewBaseHandler(logger),
		store:       store,
		now:         time.Now,
	}
}

func (h *HealthHandler) pingHandler(w http.ResponseWriter, _ *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// healthCheckHandler reports which store is serving traffic. A fallback
// store answering requests is still a healthy server.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Success: true,
		Message: "Server is running",
		Database: DatabaseStatus{
			Mode:   h.store.Mode(),
			Driver: h.store.Driver(),
			Ping:   "skipped",
		},
		Timestamp: h.now(),
	}

	if h.store.PrimaryAvailable() {
		users, requests, err := h.primaryCounts(ctx)
		if err == nil {
			resp.Database.Ping = "ok"
			resp.Users, resp.Requests = users, requests
			h.WriteJSON(w, http.StatusOK, resp)
			return
		}
		h.Logger.Warn("health check primary query failed", "error", err)
		resp.Database.Ping = "failed"
	}

	mem := h.store.Memory()
	resp.Users = int64(len(mem.Users()))
	resp.Requests = int64(len(mem.Requests()))
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) primaryCounts(ctx context.Context) (int64, int64, error) {
	rows, err := h.store.Query(ctx, `SELECT
		(SELECT COUNT(*) FROM users) AS users,
		(SELECT COUNT(*) FROM requests) AS requests`)
	if err != nil {
		return 0, 0, err
	}
	if len(rows) != 1 {
		return 0, 0, fmt.Errorf("count query returned %d rows", len(rows))
	}
	users, err := toInt64(rows[0]["users"])
	if err != nil {
		return 0, 0, err
	}
	requests, err := toInt64(rows[0]["requests"])
	if err != nil {
		return 0, 0, err
	}
	return users, requests, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
