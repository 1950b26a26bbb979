package user

import (
	"context"
	"log/slog"

	userDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/user"
)

type RepositoryAPI interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	List(ctx context.Context) ([]*userDatamodel.User, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*userDatamodel.User, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, err
	}
	return FromDataModelSlice(users), nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return FromDataModel(u), nil
}

// UpdateStatus approves, disables or resets an account to pending.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*User, error) {
	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.UpdateStatus(ctx, id, parsed)
	if err != nil {
		s.logger.Warn("failed to update user status", "error", err, "user_id", id, "status", parsed)
		return nil, err
	}

	s.logger.Info("user status updated", "user_id", id, "username", u.Username, "status", parsed)
	return FromDataModel(u), nil
}
