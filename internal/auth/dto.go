package auth

import (
	"strings"

	"github.com/CodingTam/requesthtml/internal"
	"github.com/CodingTam/requesthtml/internal/core/common/validation"
)

type LoginDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (d *LoginDTO) Validate() error {
	d.Username = strings.TrimSpace(d.Username)
	if d.Username == "" || d.Password == "" {
		return internal.NewValidationError("Username and password are required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type RegisterDTO struct {
	Name        string `json:"name"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Team        string `json:"team"`
	Description string `json:"description"`
}

// Validate sanitizes the free-text fields in place. The password is left
// untouched.
func (d *RegisterDTO) Validate() error {
	d.Name = validation.Sanitize(d.Name)
	d.Username = strings.TrimSpace(d.Username)
	d.Email = strings.ToLower(validation.Sanitize(d.Email))
	d.Team = validation.Sanitize(d.Team)
	d.Description = validation.Sanitize(d.Description)

	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("username", d.Username).Required().MaxLength(50).NoSpaces()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(6).MaxLength(255)
	v.Field("team", d.Team).MaxLength(100)
	v.Field("description", d.Description).MaxLength(500)

	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type LoginUser struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Team        string `json:"team"`
	IsAdmin     bool   `json:"isAdmin"`
	Description string `json:"description"`
}

type LoginResponse struct {
	Success bool      `json:"success"`
	User    LoginUser `json:"user"`
	Token   string    `json:"token"`
}

type RegisteredUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Team     string `json:"team"`
	Status   string `json:"status"`
}

type RegisterResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	User    RegisteredUser `json:"user"`
}
