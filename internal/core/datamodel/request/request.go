package request

import "time"

type Request struct {
	ID                   int64      `gorm:"primaryKey" db:"id"`
	RequestID            string     `gorm:"column:request_id;uniqueIndex;not null" db:"request_id"`
	RequestorName        string     `gorm:"column:requestor_name;not null" db:"requestor_name"`
	RequestorEmail       string     `gorm:"column:requestor_email;not null" db:"requestor_email"`
	CCEmail              *string    `gorm:"column:cc_email" db:"cc_email"`
	TeamName             string     `gorm:"column:team_name;not null" db:"team_name"`
	CategoryName         string     `gorm:"column:category_name;not null" db:"category_name"`
	RequestDates         string     `gorm:"column:request_dates;not null" db:"request_dates"`
	AcctNumber           string     `gorm:"column:acct_number;not null" db:"acct_number"`
	RequestName          string     `gorm:"column:request_name;not null" db:"request_name"`
	Currency             string     `gorm:"column:currency;not null" db:"currency"`
	Amount               float64    `gorm:"column:amount;not null" db:"amount"`
	Adjustment           int64      `gorm:"column:adjustment;not null;default:0" db:"adjustment"`
	Description          *string    `gorm:"column:description" db:"description"`
	Status               string     `gorm:"column:status;not null;default:submitted" db:"status"`
	UserID               int64      `gorm:"column:user_id;not null" db:"user_id"`
	RequestDatetime      time.Time  `gorm:"column:request_datetime" db:"request_datetime"`
	StatusUpdateDatetime *time.Time `gorm:"column:status_update_datetime" db:"status_update_datetime"`
	CreatedAt            time.Time  `gorm:"column:created_at;autoCreateTime" db:"created_at"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;autoUpdateTime" db:"updated_at"`
	FailedMessage        *string    `gorm:"column:failed_message" db:"failed_message"`
	AdminComments        *string    `gorm:"column:admin_comments" db:"admin_comments"`
}

func (Request) TableName() string {
	return "requests"
}
