package statushistory

import "time"

// Entry is one row of the append-only request_status_history table.
// RequestID holds the human readable request id, not requests.id.
type Entry struct {
	ID             int64     `gorm:"primaryKey" db:"id"`
	RequestID      string    `gorm:"column:request_id;index;not null" db:"request_id"`
	OldStatus      *string   `gorm:"column:old_status" db:"old_status"`
	NewStatus      string    `gorm:"column:new_status;not null" db:"new_status"`
	ChangedBy      string    `gorm:"column:changed_by;not null" db:"changed_by"`
	ChangeDatetime time.Time `gorm:"column:change_datetime;not null" db:"change_datetime"`
	Notes          *string   `gorm:"column:notes" db:"notes"`
}

func (Entry) TableName() string {
	return "request_status_history"
}
