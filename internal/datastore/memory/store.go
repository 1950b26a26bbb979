// Package memory is the in-process fallback backend. It holds the same
// logical rows as the SQL schema and is seeded with demo data on first use.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/CodingTam/requesthtml/internal"
	requestDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/request"
	"github.com/CodingTam/requesthtml/internal/core/datamodel/statushistory"
	userDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/user"
)

// Store serializes every read and write through one mutex. Records are
// copied on the way in and out.
type Store struct {
	mu       sync.Mutex
	seedOnce sync.Once
	now      func() time.Time
	skipSeed bool

	users    []userDatamodel.User
	requests []requestDatamodel.Request
	history  []statushistory.Entry

	nextUserID    int64
	nextRequestID int64
	nextHistoryID int64
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithoutSeed starts the store empty.
func WithoutSeed() Option {
	return func(s *Store) {
		s.skipSeed = true
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		now:           time.Now,
		nextUserID:    1,
		nextRequestID: 1,
		nextHistoryID: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ensureSeeded() {
	s.seedOnce.Do(s.seed)
}

func (s *Store) seed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.skipSeed {
		return
	}

	data := DefaultSeed(s.now())
	s.users = append(s.users, data.Users...)
	s.requests = append(s.requests, data.Requests...)
	s.history = append(s.history, data.History...)

	s.nextUserID = int64(len(s.users)) + 1
	s.nextRequestID = int64(len(s.requests)) + 1
	s.nextHistoryID = int64(len(s.history)) + 1
}

// ----------------- USERS -----------------

func (s *Store) CreateUser(u userDatamodel.User) (userDatamodel.User, error) {
	s.ensureSeeded()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return userDatamodel.User{}, internal.ErrUsernameTaken
		}
	}

	now := s.now()
	u.ID = s.nextUserID
	s.nextUserID++
	if u.Status == "" {
		u.Status = userDatamodel.StatusPending
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	s.users = append(s.users, u)
	return u, nil
}

func (s *Store) UserByUsername(username string) (userDatamodel.User, error) {
	s.ensureSeeded()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return userDatamodel.User{}, internal.ErrUserNotFound
}

func (s *Store) UserByID(id int64) (userDatamodel.User, error) {
	s.ensureSeeded()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return userDatamodel.User{}, internal.ErrUserNotFound
}

func (s *Store) UpdateUserStatus(id int64, status string) (userDatamodel.User, error) {
	s.ensureSeeded()
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].ID == id {
			s.users[i].Status = status
			s.users[i].UpdatedAt = s.now()
			return s.users[i], nil
		}
	}
	return userDatamodel.User{}, internal.ErrUserNotFound
}

// Users returns every user, newest first.
func (s *Store) Users() []userDatamodel.User {
	s.ensureSeeded()
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]userDatamodel.User, len(s.users))
	copy(out, s.users)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ----------------- REQUESTS -----------------

func (s *Store) CreateRequest(r requestDatamodel.Request) (requestDatamodel.Request, error) {
	s.ensureSeeded()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.RequestID == r.RequestID {
			return requestDatamodel.Request{}, internal.NewConflictError("Request id already exists", internal.ErrCodeValidationFailed)
		}
	}

	now := s.now()
	r = cloneRequest(r)
	r.ID = s.nextRequestID
	s.nextRequestID++
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	if r.RequestDatetime.IsZero() {
		r.RequestDatetime = r.CreatedAt
	}
	s.requests = append(s.requests, r)
	return cloneRequest(r), nil
}

func (s *Store) RequestByID(id int64) (requestDatamodel.Request, error) {
	return s.findRequest(func(r *requestDatamodel.Request) bool { return r.ID == id })
}

func (s *Store) RequestByRequestID(requestID string) (requestDatamodel.Request, error) {
	return s.findRequest(func(r *requestDatamodel.Request) bool { return r.RequestID == requestID })
}

func (s *Store) findRequest(match func(*requestDatamodel.Request) bool) (requestDatamodel.Request, error) {
	s.ensureSeeded()
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.requests {
		if match(&s.requests[i]) {
			return cloneRequest(s.requests[i]), nil
		}
	}
	return requestDatamodel.Request{}, internal.ErrRequestNotFound
}

// AdoptRequest stores a copy of r unless a request with the same request_id
// is already held. r keeps its id when no other request uses it.
func (s *Store) AdoptRequest(r requestDatamodel.Request) {
	s.ensureSeeded()
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := false
	for _, existing := range s.requests {
		if existing.RequestID == r.RequestID {
			return
		}
		if existing.ID == r.ID {
			taken = true
		}
	}

	r = cloneRequest(r)
	if r.ID <= 0 || taken {
		r.ID = s.nextRequestID
	}
	if r.ID >= s.nextRequestID {
		s.nextRequestID = r.ID + 1
	}
	s.requests = append(s.requests, r)
}

// UpdateRequest applies mutate to the stored request under the store lock.
func (s *Store) UpdateRequest(requestID string, mutate func(*requestDatamodel.Request)) (requestDatamodel.Request, error) {
	s.ensureSeeded()
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.requests {
		if s.requests[i].RequestID == requestID {
			updated := cloneRequest(s.requests[i])
			mutate(&updated)
			s.requests[i] = cloneRequest(updated)
			return updated, nil
		}
	}
	return requestDatamodel.Request{}, internal.ErrRequestNotFound
}

// Requests returns every request, newest first.
func (s *Store) Requests() []requestDatamodel.Request {
	s.ensureSeeded()
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]requestDatamodel.Request, len(s.requests))
	for i, r := range s.requests {
		out[i] = cloneRequest(r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) RequestsByUser(userID int64) []requestDatamodel.Request {
	all := s.Requests()
	out := make([]requestDatamodel.Request, 0, len(all))
	for _, r := range all {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// ----------------- HISTORY -----------------

func (s *Store) AppendHistory(e statushistory.Entry) statushistory.Entry {
	s.ensureSeeded()
	s.mu.Lock()
	defer s.mu.Unlock()

	e = cloneEntry(e)
	e.ID = s.nextHistoryID
	s.nextHistoryID++
	if e.ChangeDatetime.IsZero() {
		e.ChangeDatetime = s.now()
	}
	s.history = append(s.history, e)
	return cloneEntry(e)
}

// History returns the entries for one request, newest first with ties
// broken by descending id.
func (s *Store) History(requestID string) []statushistory.Entry {
	s.ensureSeeded()
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]statushistory.Entry, 0)
	for _, e := range s.history {
		if e.RequestID == requestID {
			out = append(out, cloneEntry(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ChangeDatetime.Equal(out[j].ChangeDatetime) {
			return out[i].ID > out[j].ID
		}
		return out[i].ChangeDatetime.After(out[j].ChangeDatetime)
	})
	return out
}

func cloneRequest(r requestDatamodel.Request) requestDatamodel.Request {
	r.CCEmail = cloneString(r.CCEmail)
	r.Description = cloneString(r.Description)
	r.FailedMessage = cloneString(r.FailedMessage)
	r.AdminComments = cloneString(r.AdminComments)
	if r.StatusUpdateDatetime != nil {
		t := *r.StatusUpdateDatetime
		r.StatusUpdateDatetime = &t
	}
	return r
}

func cloneEntry(e statushistory.Entry) statushistory.Entry {
	e.OldStatus = cloneString(e.OldStatus)
	e.Notes = cloneString(e.Notes)
	return e
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
