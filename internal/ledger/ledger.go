// Package ledger keeps the append-only audit trail of request status
// transitions.
package ledger

import (
	"time"

	"github.com/CodingTam/requesthtml/internal/core/datamodel/statushistory"
)

type Entry struct {
	ID             int64     `json:"id"`
	RequestID      string    `json:"request_id"`
	OldStatus      *string   `json:"old_status"`
	NewStatus      string    `json:"new_status"`
	ChangedBy      string    `json:"changed_by"`
	ChangeDatetime time.Time `json:"change_datetime"`
	Notes          *string   `json:"notes"`
}

func FromDataModel(e *statushistory.Entry) *Entry {
	return &Entry{
		ID:             e.ID,
		RequestID:      e.RequestID,
		OldStatus:      e.OldStatus,
		NewStatus:      e.NewStatus,
		ChangedBy:      e.ChangedBy,
		ChangeDatetime: e.ChangeDatetime,
		Notes:          e.Notes,
	}
}

func FromDataModelSlice(entries []*statushistory.Entry) []*Entry {
	result := make([]*Entry, len(entries))
	for i, e := range entries {
		result[i] = FromDataModel(e)
	}
	return result
}
