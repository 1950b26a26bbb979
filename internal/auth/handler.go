package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/CodingTam/requesthtml/internal"
	"github.com/CodingTam/requesthtml/internal/transport"
	"github.com/CodingTam/requesthtml/internal/user"
	"github.com/CodingTam/requesthtml/pkg/logger"
)

const registeredMessage = "Registration successful! Your account is pending admin approval."

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*user.User, error)
	Login(ctx context.Context, dto LoginDTO) (*user.User, string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
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

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, token, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		User: LoginUser{
			ID:          u.ID,
			Name:        u.Name,
			Username:    u.Username,
			Email:       u.Email,
			Team:        u.Team,
			IsAdmin:     u.IsAdmin,
			Description: u.Description,
		},
		Token: token,
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, RegisterResponse{
		Success: true,
		Message: registeredMessage,
		User: RegisteredUser{
			Username: u.Username,
			Email:    u.Email,
			Team:     u.Team,
			Status:   u.Status,
		},
	})
}

// AuthMiddleware reads an optional bearer token and puts its username in the
// request context as the acting user. When enforceAdmin is set the route
// requires a valid admin token.
func (h *Handler) AuthMiddleware(enforceAdmin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := h.ExtractTokenFromHeader(r)
			if token == "" {
				if enforceAdmin {
					h.HandleServiceError(w, internal.NewUnauthorizedError("Missing authorization token", internal.ErrCodeInvalidToken))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := h.Service.ValidateAccessToken(token)
			if err != nil {
				if enforceAdmin {
					h.HandleServiceError(w, err)
					return
				}
				h.Logger.Warn("auth middleware: ignoring invalid token", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if enforceAdmin && !claims.IsAdmin {
				h.Logger.Warn("auth middleware: admin access denied", "username", claims.Username)
				h.HandleServiceError(w, internal.ErrAdminRequired)
				return
			}

			ctx := internal.ContextWithActor(r.Context(), claims.Username)
			ctx = logger.With(ctx, "actor", claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
