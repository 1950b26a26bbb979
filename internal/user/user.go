package user

import (
	"strings"
	"time"

	"github.com/CodingTam/requesthtml/internal"
	userDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/user"
)

const (
	StatusPending  = userDatamodel.StatusPending
	StatusApproved = userDatamodel.StatusApproved
	StatusDisabled = userDatamodel.StatusDisabled
)

var ErrInvalidStatus = internal.NewValidationError("Invalid status", internal.ErrCodeInvalidStatus)

// User is the account model. PasswordHash never leaves the service layer.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Team         string    `json:"team"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) IsApproved() bool {
	return u.Status == StatusApproved
}

// ParseStatus accepts pending, approved or disabled in any case.
func ParseStatus(s string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case StatusPending, StatusApproved, StatusDisabled:
		return v, nil
	}
	return "", ErrInvalidStatus
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Name:         u.Name,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.Password,
		Team:         u.Team,
		Description:  u.Description,
		Status:       u.Status,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModelSlice(users []*userDatamodel.User) []*User {
	result := make([]*User, len(users))
	for i, u := range users {
		result[i] = FromDataModel(u)
	}
	return result
}
