package user

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDisabled = "disabled"
)

type User struct {
	ID          int64     `gorm:"primaryKey" db:"id"`
	Name        string    `gorm:"column:name;not null" db:"name"`
	Username    string    `gorm:"column:username;uniqueIndex;not null" db:"username"`
	Email       string    `gorm:"column:email;not null" db:"email"`
	Password    string    `gorm:"column:password;not null" db:"password"`
	Team        string    `gorm:"column:team" db:"team"`
	Description string    `gorm:"column:description" db:"description"`
	Status      string    `gorm:"column:status;not null;default:pending" db:"status"`
	IsAdmin     bool      `gorm:"column:is_admin;not null;default:false" db:"is_admin"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" db:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" db:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
