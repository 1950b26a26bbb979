package analytics

import (
	"context"
	"log/slog"
	"time"
)

type RepositoryAPI interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

type Service struct {
	repo   RepositoryAPI
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo RepositoryAPI, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := ComputeOverview(snap, s.now())
	return &out, nil
}

func (s *Service) Trends(ctx context.Context, period string) ([]TrendBucket, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeTrends(snap, period, s.now()), nil
}

func (s *Service) StatusSummary(ctx context.Context) ([]StatusSummary, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeStatusSummary(snap), nil
}

func (s *Service) RecentActivity(ctx context.Context) ([]Activity, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeRecentActivity(snap), nil
}

func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := ComputeStatistics(snap)
	return &out, nil
}

func (s *Service) snapshot(ctx context.Context) (Snapshot, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		s.logger.Error("failed to load analytics snapshot", "error", err)
		return Snapshot{}, err
	}
	return snap, nil
}
