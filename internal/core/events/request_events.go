package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeRequestCreated       = "request.created"
	EventTypeRequestStatusChanged = "request.status_changed"
)

type RequestCreatedEvent struct {
	BaseEvent
	RequestID     string  `json:"request_id"`
	RequestorName string  `json:"requestor_name"`
	TeamName      string  `json:"team_name"`
	Currency      string  `json:"currency"`
	Amount        float64 `json:"amount"`
	UserID        int64   `json:"user_id"`
}

func NewRequestCreatedEvent(requestID, requestorName, teamName, currency string, amount float64, userID int64) *RequestCreatedEvent {
	return &RequestCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRequestCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"request_id":     requestID,
				"requestor_name": requestorName,
				"team_name":      teamName,
				"currency":       currency,
				"amount":         amount,
				"user_id":        userID,
			},
		},
		RequestID:     requestID,
		RequestorName: requestorName,
		TeamName:      teamName,
		Currency:      currency,
		Amount:        amount,
		UserID:        userID,
	}
}

// RequestStatusChangedEvent is published after a transition is persisted.
// OldStatus equals NewStatus when a status is re-applied.
type RequestStatusChangedEvent struct {
	BaseEvent
	RequestID     string  `json:"request_id"`
	RequestName   string  `json:"request_name"`
	OldStatus     string  `json:"old_status"`
	NewStatus     string  `json:"new_status"`
	ChangedBy     string  `json:"changed_by"`
	AdminComments *string `json:"admin_comments,omitempty"`
}

func NewRequestStatusChangedEvent(requestID, requestName, oldStatus, newStatus, changedBy string, adminComments *string) *RequestStatusChangedEvent {
	data := map[string]interface{}{
		"request_id":   requestID,
		"request_name": requestName,
		"old_status":   oldStatus,
		"new_status":   newStatus,
		"changed_by":   changedBy,
	}
	if adminComments != nil {
		data["admin_comments"] = *adminComments
	}

	return &RequestStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRequestStatusChanged,
			Timestamp: time.Now(),
			Data:      data,
		},
		RequestID:     requestID,
		RequestName:   requestName,
		OldStatus:     oldStatus,
		NewStatus:     newStatus,
		ChangedBy:     changedBy,
		AdminComments: adminComments,
	}
}
