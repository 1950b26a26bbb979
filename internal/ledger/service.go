package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/CodingTam/requesthtml/internal/core/datamodel/statushistory"
)

type RepositoryAPI interface {
	Append(ctx context.Context, entry *statushistory.Entry) error
	ListByRequestID(ctx context.Context, requestID string) ([]*statushistory.Entry, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Record appends one transition. requestID must name a request the caller
// has already resolved; Record checks only that it is non-empty. It never
// fails the caller: problems are logged and the entry is dropped. The
// entry goes to the backend ctx is pinned to, if any.
func (s *Service) Record(ctx context.Context, requestID string, oldStatus *string, newStatus, actor, notes string) {
	if err := s.record(ctx, requestID, oldStatus, newStatus, actor, notes); err != nil {
		s.logger.Error("failed to record status history",
			"error", err,
			"request_id", requestID,
			"new_status", newStatus,
			"actor", actor)
		return
	}

	s.logger.Info("status history recorded",
		"request_id", requestID,
		"old_status", deref(oldStatus),
		"new_status", newStatus,
		"actor", actor)
}

func (s *Service) record(ctx context.Context, requestID string, oldStatus *string, newStatus, actor, notes string) error {
	if strings.TrimSpace(requestID) == "" {
		return errors.New("request id is required")
	}
	if strings.TrimSpace(actor) == "" {
		return errors.New("actor is required")
	}
	if strings.TrimSpace(newStatus) == "" {
		return errors.New("new status is required")
	}

	entry := &statushistory.Entry{
		RequestID:      requestID,
		OldStatus:      oldStatus,
		NewStatus:      newStatus,
		ChangedBy:      actor,
		ChangeDatetime: s.now(),
	}
	if notes != "" {
		entry.Notes = &notes
	}
	return s.repo.Append(ctx, entry)
}

// History returns the entries for requestID, newest first.
func (s *Service) History(ctx context.Context, requestID string) ([]*Entry, error) {
	entries, err := s.repo.ListByRequestID(ctx, requestID)
	if err != nil {
		s.logger.Error("failed to load status history", "error", err, "request_id", requestID)
		return nil, err
	}
	return FromDataModelSlice(entries), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
