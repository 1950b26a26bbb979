// Package request implements the request lifecycle: creation, status
// transitions and per-request history.
package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CodingTam/requesthtml/internal"
	requestDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/request"
)

type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"

	// legacyRejected is accepted on input and stored as failed.
	legacyRejected = "rejected"

	// DefaultUserID owns requests submitted without a userId.
	DefaultUserID int64 = 2
	DefaultActor        = "admin"
)

var Statuses = []Status{StatusSubmitted, StatusProcessing, StatusCompleted, StatusFailed}

// ParseStatus accepts any recognized token regardless of case or
// surrounding space.
func ParseStatus(s string) (Status, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	if token == legacyRejected {
		return StatusFailed, nil
	}
	for _, st := range Statuses {
		if string(st) == token {
			return st, nil
		}
	}
	return "", internal.ErrInvalidStatus
}

func (s Status) String() string {
	return string(s)
}

type Request struct {
	ID                   int64      `json:"id"`
	RequestID            string     `json:"request_id"`
	RequestorName        string     `json:"requestor_name"`
	RequestorEmail       string     `json:"requestor_email"`
	CCEmail              *string    `json:"cc_email"`
	TeamName             string     `json:"team_name"`
	CategoryName         string     `json:"category_name"`
	RequestDates         string     `json:"request_dates"`
	AcctNumber           string     `json:"acct_number"`
	RequestName          string     `json:"request_name"`
	Currency             string     `json:"currency"`
	Amount               float64    `json:"amount"`
	Adjustment           int64      `json:"adjustment"`
	Description          *string    `json:"description"`
	Status               Status     `json:"status"`
	UserID               int64      `json:"user_id"`
	RequestDatetime      time.Time  `json:"request_datetime"`
	StatusUpdateDatetime *time.Time `json:"status_update_datetime"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	FailedMessage        *string    `json:"failed_message"`
	AdminComments        *string    `json:"admin_comments"`
}

// GenerateRequestID builds REQ<unix millis><first uuid segment, upper>.
func GenerateRequestID(now time.Time) string {
	segment := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("REQ%d%s", now.UnixMilli(), strings.ToUpper(segment))
}

func FromDataModel(r *requestDatamodel.Request) *Request {
	return &Request{
		ID:                   r.ID,
		RequestID:            r.RequestID,
		RequestorName:        r.RequestorName,
		RequestorEmail:       r.RequestorEmail,
		CCEmail:              r.CCEmail,
		TeamName:             r.TeamName,
		CategoryName:         r.CategoryName,
		RequestDates:         r.RequestDates,
		AcctNumber:           r.AcctNumber,
		RequestName:          r.RequestName,
		Currency:             r.Currency,
		Amount:               r.Amount,
		Adjustment:           r.Adjustment,
		Description:          r.Description,
		Status:               Status(r.Status),
		UserID:               r.UserID,
		RequestDatetime:      r.RequestDatetime,
		StatusUpdateDatetime: r.StatusUpdateDatetime,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
		FailedMessage:        r.FailedMessage,
		AdminComments:        r.AdminComments,
	}
}

func FromDataModelSlice(requests []*requestDatamodel.Request) []*Request {
	result := make([]*Request, len(requests))
	for i, r := range requests {
		result[i] = FromDataModel(r)
	}
	return result
}
