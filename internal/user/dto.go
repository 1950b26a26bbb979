package user

import "time"

type UpdateStatusDTO struct {
	Status string `json:"status"`
}

// View is the admin listing shape of a user.
type View struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Team        string    `json:"team"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	IsAdmin     bool      `json:"isAdmin"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) ToView() View {
	return View{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Team:        u.Team,
		Description: u.Description,
		Status:      u.Status,
		IsAdmin:     u.IsAdmin,
		CreatedAt:   u.CreatedAt,
	}
}

type ListResponse struct {
	Success bool   `json:"success"`
	Users   []View `json:"users"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
