package auth

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/CodingTam/requesthtml/internal"
	userDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/user"
	"github.com/CodingTam/requesthtml/internal/user"
)

type UserRepository interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
}

// Service is the main auth service with dependencies
type Service struct {
	users          UserRepository
	tokenGenerator TokenGeneratorAPI
	bcryptCost     int
	logger         *slog.Logger
}

func NewService(users UserRepository, tokenGen TokenGeneratorAPI, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:          users,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

// Register creates a pending account. An admin must approve it before the
// user can log in.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*user.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("Failed to hash password", err)
	}

	row := &userDatamodel.User{
		Name:        dto.Name,
		Username:    dto.Username,
		Email:       dto.Email,
		Password:    hash,
		Team:        dto.Team,
		Description: dto.Description,
		Status:      userDatamodel.StatusPending,
	}
	if err := s.users.Create(ctx, row); err != nil {
		s.logger.Warn("registration failed", "username", dto.Username, "error", err)
		return nil, err
	}

	s.logger.Info("user registered", "user_id", row.ID, "username", row.Username)
	return user.FromDataModel(row), nil
}

// Login checks credentials and account status and issues an access token.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*user.User, string, error) {
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}

	row, err := s.users.GetByUsername(ctx, dto.Username)
	if err != nil {
		if internal.IsNotFound(err) {
			return nil, "", internal.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.Password), []byte(dto.Password)); err != nil {
		s.logger.Warn("login rejected", "username", dto.Username, "reason", "bad password")
		return nil, "", internal.ErrInvalidCredentials
	}

	switch row.Status {
	case userDatamodel.StatusPending:
		return nil, "", internal.ErrAccountPending
	case userDatamodel.StatusDisabled:
		return nil, "", internal.ErrAccountDisabled
	}

	token, err := s.tokenGenerator.GenerateAccessToken(row.ID, row.Username, row.IsAdmin)
	if err != nil {
		return nil, "", internal.NewInternalError("Failed to issue token", err)
	}

	s.logger.Info("user logged in", "user_id", row.ID, "username", row.Username)
	return user.FromDataModel(row), token, nil
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
