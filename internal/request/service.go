package request

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/CodingTam/requesthtml/internal"
	requestDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/request"
	userDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/user"
	"github.com/CodingTam/requesthtml/internal/core/events"
	"github.com/CodingTam/requesthtml/internal/datastore"
	"github.com/CodingTam/requesthtml/internal/ledger"
)

const initialSubmissionNote = "Initial request submission"

type RepositoryAPI interface {
	Create(ctx context.Context, req *requestDatamodel.Request) error
	GetByID(ctx context.Context, id int64) (*requestDatamodel.Request, error)
	GetByRequestID(ctx context.Context, requestID string) (*requestDatamodel.Request, error)
	ListAll(ctx context.Context) ([]*requestDatamodel.Request, error)
	ListByUserID(ctx context.Context, userID int64) ([]*requestDatamodel.Request, error)
	UpdateStatus(ctx context.Context, current *requestDatamodel.Request, status string, comments *string, at time.Time) (*requestDatamodel.Request, error)
}

type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
}

type HistoryAPI interface {
	Record(ctx context.Context, requestID string, oldStatus *string, newStatus, actor, notes string)
	History(ctx context.Context, requestID string) ([]*ledger.Entry, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo      RepositoryAPI
	users     UserLookup
	history   HistoryAPI
	publisher Publisher
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPublisher sets where lifecycle events go. Without one events are
// dropped.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func NewService(repo RepositoryAPI, users UserLookup, history HistoryAPI, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		users:   users,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, dto CreateRequestDTO) (*Request, error) {
	in, err := dto.Validate()
	if err != nil {
		s.logger.Warn("request validation failed", "error", err)
		return nil, err
	}

	now := s.now()
	row := &requestDatamodel.Request{
		RequestID:       GenerateRequestID(now),
		RequestorName:   in.requestorName,
		RequestorEmail:  in.requestorEmail,
		CCEmail:         in.ccEmail,
		TeamName:        in.teamName,
		CategoryName:    in.categoryName,
		RequestDates:    in.requestDates,
		AcctNumber:      in.acctNumber,
		RequestName:     in.requestName,
		Currency:        in.currency,
		Amount:          in.amount.InexactFloat64(),
		Adjustment:      in.adjustment,
		Description:     in.description,
		Status:          string(StatusSubmitted),
		UserID:          in.userID,
		RequestDatetime: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	writeCtx, wrote := datastore.Track(ctx)
	if err := s.repo.Create(writeCtx, row); err != nil {
		s.logger.Error("failed to create request", "error", err, "requestor", in.requestorName)
		return nil, err
	}

	s.history.Record(datastore.Pin(ctx, wrote.Mode()), row.RequestID, nil, row.Status, row.RequestorName, initialSubmissionNote)
	s.metrics.observeCreated()
	s.publish(ctx, events.NewRequestCreatedEvent(row.RequestID, row.RequestorName, row.TeamName, row.Currency, row.Amount, row.UserID))

	s.logger.Info("request created",
		"request_id", row.RequestID,
		"user_id", row.UserID,
		"currency", row.Currency,
		"amount", in.amount.String())

	return FromDataModel(row), nil
}

// Transition moves the request identified by ref to the status in dto. ref
// is the numeric id or the request_id. The update goes to the store that
// answered the lookup, and the ledger entry to the store that took the
// update.
func (s *Service) Transition(ctx context.Context, ref string, dto TransitionDTO) (*Request, error) {
	status, err := dto.Validate()
	if err != nil {
		return nil, err
	}

	readCtx, read := datastore.Track(ctx)
	current, err := s.resolve(readCtx, ref)
	if err != nil {
		return nil, err
	}

	actor := dto.ChangedBy
	if actor == "" {
		actor = internal.ActorFromContext(ctx)
	}
	if actor == "" {
		actor = DefaultActor
	}

	writeCtx, wrote := datastore.Track(datastore.Pin(ctx, read.Mode()))
	updated, err := s.repo.UpdateStatus(writeCtx, current, string(status), dto.AdminComments, s.now())
	if err != nil {
		s.logger.Error("failed to update request status", "error", err, "request_id", current.RequestID, "status", status)
		return nil, err
	}

	oldStatus := current.Status
	notes := ""
	if dto.Notes != nil {
		notes = *dto.Notes
	} else if dto.AdminComments != nil {
		notes = *dto.AdminComments
	}
	s.history.Record(datastore.Pin(ctx, wrote.Mode()), current.RequestID, &oldStatus, string(status), actor, notes)
	s.metrics.observeTransition(Status(oldStatus), status)
	s.publish(ctx, events.NewRequestStatusChangedEvent(updated.RequestID, updated.RequestName, oldStatus, string(status), actor, updated.AdminComments))

	s.logger.Info("request status updated",
		"request_id", current.RequestID,
		"old_status", oldStatus,
		"new_status", status,
		"actor", actor)

	return FromDataModel(updated), nil
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]*Request, error) {
	if q.IsAdmin {
		rows, err := s.repo.ListAll(ctx)
		if err != nil {
			s.logger.Error("failed to list requests", "error", err)
			return nil, err
		}
		return FromDataModelSlice(rows), nil
	}

	username := strings.TrimSpace(q.Username)
	if username == "" {
		return nil, internal.NewValidationError("Username is required for non-admin users", internal.ErrCodeValidationFailed)
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListByUserID(ctx, u.ID)
	if err != nil {
		s.logger.Error("failed to list user requests", "error", err, "user_id", u.ID)
		return nil, err
	}
	return FromDataModelSlice(rows), nil
}

func (s *Service) History(ctx context.Context, ref string) ([]*ledger.Entry, error) {
	readCtx, read := datastore.Track(ctx)
	req, err := s.resolve(readCtx, ref)
	if err != nil {
		return nil, err
	}
	return s.history.History(datastore.Pin(ctx, read.Mode()), req.RequestID)
}

func (s *Service) resolve(ctx context.Context, ref string) (*requestDatamodel.Request, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, internal.ErrRequestNotFound
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.GetByRequestID(ctx, ref)
}

// publish hands the event off without tying subscribers to the caller's
// request lifetime.
func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
