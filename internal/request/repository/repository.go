package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/CodingTam/requesthtml/internal"
	requestDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/request"
	"github.com/CodingTam/requesthtml/internal/datastore"
	"github.com/CodingTam/requesthtml/internal/datastore/memory"
)

type RequestRepository struct {
	store *datastore.Adapter
}

func NewRequestRepository(store *datastore.Adapter) *RequestRepository {
	return &RequestRepository{store: store}
}

func (r *RequestRepository) Create(ctx context.Context, req *requestDatamodel.Request) error {
	saved, err := datastore.Write(ctx, r.store, "requests.create",
		func(ctx context.Context) (requestDatamodel.Request, error) {
			db, err := r.store.DB(ctx)
			if err != nil {
				return requestDatamodel.Request{}, err
			}
			row := *req
			if err := db.Create(&row).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return requestDatamodel.Request{}, internal.NewConflictError("Request id already exists", internal.ErrCodeValidationFailed).WithCause(err)
				}
				return requestDatamodel.Request{}, err
			}
			return row, nil
		},
		func(m *memory.Store) (requestDatamodel.Request, error) {
			return m.CreateRequest(*req)
		})
	if err != nil {
		return err
	}
	*req = saved
	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*requestDatamodel.Request, error) {
	return datastore.Read(ctx, r.store, "requests.get",
		func(ctx context.Context) (*requestDatamodel.Request, error) {
			return r.first(ctx, "id = ?", id)
		},
		func(m *memory.Store) (*requestDatamodel.Request, error) {
			row, err := m.RequestByID(id)
			if err != nil {
				return nil, err
			}
			return &row, nil
		})
}

// GetByRequestID also finds requests the fallback took while the primary
// was failing. Numeric ids are per backend, so GetByID does not.
func (r *RequestRepository) GetByRequestID(ctx context.Context, requestID string) (*requestDatamodel.Request, error) {
	return datastore.Lookup(ctx, r.store, "requests.get",
		func(ctx context.Context) (*requestDatamodel.Request, error) {
			return r.first(ctx, "request_id = ?", requestID)
		},
		func(m *memory.Store) (*requestDatamodel.Request, error) {
			row, err := m.RequestByRequestID(requestID)
			if err != nil {
				return nil, err
			}
			return &row, nil
		})
}

func (r *RequestRepository) first(ctx context.Context, query string, arg interface{}) (*requestDatamodel.Request, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var row requestDatamodel.Request
	if err := db.Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRequestNotFound
		}
		return nil, err
	}
	return &row, nil
}

// ListAll returns every request, newest first.
func (r *RequestRepository) ListAll(ctx context.Context) ([]*requestDatamodel.Request, error) {
	return datastore.Read(ctx, r.store, "requests.list",
		func(ctx context.Context) ([]*requestDatamodel.Request, error) {
			return r.list(ctx, nil)
		},
		func(m *memory.Store) ([]*requestDatamodel.Request, error) {
			return pointers(m.Requests()), nil
		})
}

func (r *RequestRepository) ListByUserID(ctx context.Context, userID int64) ([]*requestDatamodel.Request, error) {
	return datastore.Read(ctx, r.store, "requests.list_by_user",
		func(ctx context.Context) ([]*requestDatamodel.Request, error) {
			return r.list(ctx, &userID)
		},
		func(m *memory.Store) ([]*requestDatamodel.Request, error) {
			return pointers(m.RequestsByUser(userID)), nil
		})
}

func (r *RequestRepository) list(ctx context.Context, userID *int64) ([]*requestDatamodel.Request, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	q := db.Model(&requestDatamodel.Request{})
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	rows := make([]*requestDatamodel.Request, 0)
	err = q.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// UpdateStatus sets the status and timestamps of current. comments replaces
// admin_comments only when non-nil. When the write lands on the fallback,
// the fallback takes a copy of current first if it does not hold it.
func (r *RequestRepository) UpdateStatus(ctx context.Context, current *requestDatamodel.Request, status string, comments *string, at time.Time) (*requestDatamodel.Request, error) {
	requestID := current.RequestID
	return datastore.Write(ctx, r.store, "requests.update_status",
		func(ctx context.Context) (*requestDatamodel.Request, error) {
			db, err := r.store.DB(ctx)
			if err != nil {
				return nil, err
			}
			columns := map[string]interface{}{
				"status":                 status,
				"status_update_datetime": at,
				"updated_at":             at,
			}
			if comments != nil {
				columns["admin_comments"] = *comments
			}
			res := db.Model(&requestDatamodel.Request{}).
				Where("request_id = ?", requestID).
				UpdateColumns(columns)
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 0 {
				return nil, internal.ErrRequestNotFound
			}
			return r.first(ctx, "request_id = ?", requestID)
		},
		func(m *memory.Store) (*requestDatamodel.Request, error) {
			m.AdoptRequest(*current)
			row, err := m.UpdateRequest(requestID, func(req *requestDatamodel.Request) {
				req.Status = status
				stamp := at
				req.StatusUpdateDatetime = &stamp
				req.UpdatedAt = at
				if comments != nil {
					c := *comments
					req.AdminComments = &c
				}
			})
			if err != nil {
				return nil, err
			}
			return &row, nil
		})
}

func pointers(rows []requestDatamodel.Request) []*requestDatamodel.Request {
	out := make([]*requestDatamodel.Request, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}
