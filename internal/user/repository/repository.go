package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/CodingTam/requesthtml/internal"
	userDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/user"
	"github.com/CodingTam/requesthtml/internal/datastore"
	"github.com/CodingTam/requesthtml/internal/datastore/memory"
)

type UserRepository struct {
	store *datastore.Adapter
	now   func() time.Time
}

func NewUserRepository(store *datastore.Adapter) *UserRepository {
	return &UserRepository{store: store, now: time.Now}
}

func (r *UserRepository) WithClock(now func() time.Time) *UserRepository {
	r.now = now
	return r
}

// Create inserts u and fills in its id. A taken username is a conflict.
func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	saved, err := datastore.Write(ctx, r.store, "users.create",
		func(ctx context.Context) (userDatamodel.User, error) {
			db, err := r.store.DB(ctx)
			if err != nil {
				return userDatamodel.User{}, err
			}

			var taken int64
			if err := db.Model(&userDatamodel.User{}).Where("username = ?", u.Username).Count(&taken).Error; err != nil {
				return userDatamodel.User{}, err
			}
			if taken > 0 {
				return userDatamodel.User{}, internal.ErrUsernameTaken
			}

			row := *u
			if row.Status == "" {
				row.Status = userDatamodel.StatusPending
			}
			if err := db.Create(&row).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return userDatamodel.User{}, internal.ErrUsernameTaken
				}
				return userDatamodel.User{}, err
			}
			return row, nil
		},
		func(m *memory.Store) (userDatamodel.User, error) {
			return m.CreateUser(*u)
		})
	if err != nil {
		return err
	}
	*u = saved
	return nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error) {
	return datastore.Read(ctx, r.store, "users.get_by_username",
		func(ctx context.Context) (*userDatamodel.User, error) {
			return r.first(ctx, "username = ?", username)
		},
		func(m *memory.Store) (*userDatamodel.User, error) {
			u, err := m.UserByUsername(username)
			if err != nil {
				return nil, err
			}
			return &u, nil
		})
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	return datastore.Read(ctx, r.store, "users.get",
		func(ctx context.Context) (*userDatamodel.User, error) {
			return r.first(ctx, "id = ?", id)
		},
		func(m *memory.Store) (*userDatamodel.User, error) {
			u, err := m.UserByID(id)
			if err != nil {
				return nil, err
			}
			return &u, nil
		})
}

func (r *UserRepository) first(ctx context.Context, query string, arg interface{}) (*userDatamodel.User, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	var u userDatamodel.User
	if err := db.Where(query, arg).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// List returns every user, newest first.
func (r *UserRepository) List(ctx context.Context) ([]*userDatamodel.User, error) {
	return datastore.Read(ctx, r.store, "users.list",
		func(ctx context.Context) ([]*userDatamodel.User, error) {
			db, err := r.store.DB(ctx)
			if err != nil {
				return nil, err
			}
			users := make([]*userDatamodel.User, 0)
			err = db.Order("created_at DESC").Order("id DESC").Find(&users).Error
			return users, err
		},
		func(m *memory.Store) ([]*userDatamodel.User, error) {
			rows := m.Users()
			users := make([]*userDatamodel.User, len(rows))
			for i := range rows {
				users[i] = &rows[i]
			}
			return users, nil
		})
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id int64, status string) (*userDatamodel.User, error) {
	return datastore.Write(ctx, r.store, "users.update_status",
		func(ctx context.Context) (*userDatamodel.User, error) {
			db, err := r.store.DB(ctx)
			if err != nil {
				return nil, err
			}
			res := db.Model(&userDatamodel.User{}).
				Where("id = ?", id).
				UpdateColumns(map[string]interface{}{
					"status":     status,
					"updated_at": r.now(),
				})
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 0 {
				return nil, internal.ErrUserNotFound
			}
			return r.first(ctx, "id = ?", id)
		},
		func(m *memory.Store) (*userDatamodel.User, error) {
			u, err := m.UpdateUserStatus(id, status)
			if err != nil {
				return nil, err
			}
			return &u, nil
		})
}
