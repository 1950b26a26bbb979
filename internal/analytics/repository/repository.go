package repository

import (
	"context"

	"github.com/CodingTam/requesthtml/internal/analytics"
	requestDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/request"
	userDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/user"
	"github.com/CodingTam/requesthtml/internal/datastore"
	"github.com/CodingTam/requesthtml/internal/datastore/memory"
)

const (
	selectUsers = `SELECT id, name, username, email, team, description, status, is_admin, created_at, updated_at
		FROM users`

	selectRequests = `SELECT id, request_id, requestor_name, requestor_email, cc_email, team_name, category_name,
		request_dates, acct_number, request_name, currency, amount, adjustment, description, status, user_id,
		request_datetime, status_update_datetime, created_at, updated_at, failed_message, admin_comments
		FROM requests`
)

// SnapshotRepository reads whole tables for aggregation. Both reads come
// from the same backend so the numbers stay consistent with each other.
type SnapshotRepository struct {
	store *datastore.Adapter
}

func NewSnapshotRepository(store *datastore.Adapter) *SnapshotRepository {
	return &SnapshotRepository{store: store}
}

func (r *SnapshotRepository) Snapshot(ctx context.Context) (analytics.Snapshot, error) {
	return datastore.Read(ctx, r.store, "analytics.snapshot",
		func(ctx context.Context) (analytics.Snapshot, error) {
			db := r.store.SQLX()
			if db == nil {
				return analytics.Snapshot{}, datastore.ErrPrimaryUnavailable
			}

			snap := analytics.Snapshot{
				Users:    make([]userDatamodel.User, 0),
				Requests: make([]requestDatamodel.Request, 0),
			}
			if err := db.SelectContext(ctx, &snap.Users, selectUsers); err != nil {
				return analytics.Snapshot{}, err
			}
			if err := db.SelectContext(ctx, &snap.Requests, selectRequests); err != nil {
				return analytics.Snapshot{}, err
			}
			return snap, nil
		},
		func(m *memory.Store) (analytics.Snapshot, error) {
			return analytics.Snapshot{
				Users:    m.Users(),
				Requests: m.Requests(),
			}, nil
		})
}
