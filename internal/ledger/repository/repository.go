package repository

import (
	"context"

	"github.com/CodingTam/requesthtml/internal/core/datamodel/statushistory"
	"github.com/CodingTam/requesthtml/internal/datastore"
	"github.com/CodingTam/requesthtml/internal/datastore/memory"
)

// HistoryRepository stores ledger rows in request_status_history, or in the
// fallback store when the primary is down.
type HistoryRepository struct {
	store *datastore.Adapter
}

func NewHistoryRepository(store *datastore.Adapter) *HistoryRepository {
	return &HistoryRepository{store: store}
}

func (r *HistoryRepository) Append(ctx context.Context, entry *statushistory.Entry) error {
	saved, err := datastore.Write(ctx, r.store, "history.append",
		func(ctx context.Context) (statushistory.Entry, error) {
			db, err := r.store.DB(ctx)
			if err != nil {
				return statushistory.Entry{}, err
			}
			row := *entry
			if err := db.Create(&row).Error; err != nil {
				return statushistory.Entry{}, err
			}
			return row, nil
		},
		func(m *memory.Store) (statushistory.Entry, error) {
			return m.AppendHistory(*entry), nil
		})
	if err != nil {
		return err
	}
	*entry = saved
	return nil
}

func (r *HistoryRepository) ListByRequestID(ctx context.Context, requestID string) ([]*statushistory.Entry, error) {
	return datastore.Read(ctx, r.store, "history.list",
		func(ctx context.Context) ([]*statushistory.Entry, error) {
			db, err := r.store.DB(ctx)
			if err != nil {
				return nil, err
			}
			var entries []*statushistory.Entry
			err = db.Where("request_id = ?", requestID).
				Order("change_datetime DESC").
				Order("id DESC").
				Find(&entries).Error
			return entries, err
		},
		func(m *memory.Store) ([]*statushistory.Entry, error) {
			rows := m.History(requestID)
			entries := make([]*statushistory.Entry, len(rows))
			for i := range rows {
				entries[i] = &rows[i]
			}
			return entries, nil
		})
}
