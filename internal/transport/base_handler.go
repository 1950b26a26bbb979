package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/CodingTam/requesthtml/internal"
	"github.com/CodingTam/requesthtml/pkg/logger"
)

const maxBodyBytes = 1 << 20

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes the standard error envelope for a plain message.
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Error("http error", "status", status, "message", message)
	h.WriteJSON(w, status, internal.Response{
		Success: false,
		Error:   message,
		Code:    codeForStatus(status),
	})
}

// HandleServiceError maps an error returned by a service to a response.
// Anything that is not an *internal.AppError becomes a 500.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		h.Logger.Error("unhandled service error", "error", err)
		appErr = internal.NewInternalError("Internal server error", err)
	}

	status, body := appErr.ToHTTPResponse()
	if status >= http.StatusInternalServerError {
		h.Logger.Error("service error", "status", status, "code", appErr.Code, "error", err)
	} else {
		h.Logger.Warn("request rejected", "status", status, "code", appErr.Code, "error", appErr.GetDetailedMessage())
	}
	h.WriteJSON(w, status, body)
}

// DecodeJSON reads a JSON body into v. A malformed body is reported as a
// validation error.
func (h *BaseHandler) DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return internal.NewValidationError("Request body is required", internal.ErrCodeValidationFailed)
		}
		return internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed).WithCause(err)
	}
	return nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	return BearerToken(r)
}

func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}
	return authHeader[7:]
}

func codeForStatus(status int) internal.ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return internal.ErrCodeValidationFailed
	case http.StatusUnauthorized:
		return internal.ErrCodeInvalidToken
	case http.StatusForbidden:
		return internal.ErrCodeAdminRequired
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return internal.ErrCodeNotFound
	case http.StatusTooManyRequests:
		return internal.ErrCodeRateLimited
	case http.StatusServiceUnavailable:
		return internal.ErrCodeBackendUnavailable
	default:
		return internal.ErrCodeInternal
	}
}
