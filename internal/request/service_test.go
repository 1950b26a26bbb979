package request_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/CodingTam/requesthtml/internal"
	userDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/user"
	"github.com/CodingTam/requesthtml/internal/core/events"
	"github.com/CodingTam/requesthtml/internal/datastore"
	"github.com/CodingTam/requesthtml/internal/datastore/datastoretest"
	"github.com/CodingTam/requesthtml/internal/datastore/memory"
	"github.com/CodingTam/requesthtml/internal/ledger"
	ledgerRepository "github.com/CodingTam/requesthtml/internal/ledger/repository"
	"github.com/CodingTam/requesthtml/internal/request"
	requestRepository "github.com/CodingTam/requesthtml/internal/request/repository"
	"github.com/CodingTam/requesthtml/pkg/logger"
)

type mockUserLookup struct {
	users      map[string]*userDatamodel.User
	shouldFail bool
}

func (m *mockUserLookup) SetShouldFail(fail bool) {
	m.shouldFail = fail
}

func (m *mockUserLookup) GetByUsername(_ context.Context, username string) (*userDatamodel.User, error) {
	if m.shouldFail {
		return nil, errors.New("lookup failed")
	}
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, internal.ErrUserNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func strPtr(s string) *string { return &s }

func validCreateDTO() request.CreateRequestDTO {
	adjustment := request.NewNumber("0")
	return request.CreateRequestDTO{
		RequestorName:  "Alice Johnson",
		RequestorEmail: "alice@company.com",
		TeamName:       "Marketing Team",
		CategoryName:   "Campaign",
		RequestDates:   "2024-01-01:2024-01-03",
		AcctNumber:     "ACC-1001",
		RequestName:    "Spring launch",
		Currency:       "usd",
		Amount:         request.NewNumber("5000"),
		Adjustment:     &adjustment,
		UserID:         request.NewNumber("2"),
	}
}

func counterValue(c prometheus.Collector) float64 {
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := &dto.Metric{}
	Expect((<-ch).Write(m)).To(Succeed())
	return m.GetCounter().GetValue()
}

func newService(adapter *datastore.Adapter, now *time.Time, pub *recordingPublisher, metrics *request.Metrics) *request.Service {
	clock := func() time.Time { return *now }
	history := ledger.NewService(ledgerRepository.NewHistoryRepository(adapter), logger.Discard()).WithClock(clock)
	users := &mockUserLookup{users: map[string]*userDatamodel.User{
		"alice.johnson": {ID: 2, Username: "alice.johnson", Status: userDatamodel.StatusApproved},
		"bob":           {ID: 3, Username: "bob", Status: userDatamodel.StatusApproved},
	}}
	return request.NewService(
		requestRepository.NewRequestRepository(adapter),
		users,
		history,
		logger.Discard(),
		request.WithClock(clock),
		request.WithPublisher(pub),
		request.WithMetrics(metrics),
	)
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		adapter   *datastore.Adapter
		service   *request.Service
		publisher *recordingPublisher
		metrics   *request.Metrics
		now       time.Time
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		now = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
		adapter, err = datastoretest.NewSQLite()
		Expect(err).NotTo(HaveOccurred())
		publisher = &recordingPublisher{}
		metrics = request.NewMetrics(nil)
		service = newService(adapter, &now, publisher, metrics)
	})

	AfterEach(func() {
		_ = adapter.Close()
	})

	Describe("Create", func() {
		It("persists a submitted request with expanded dates", func() {
			// When
			req, err := service.Create(ctx, validCreateDTO())

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(req.RequestID).To(MatchRegexp(`^REQ\d{13}[0-9A-F]{8}$`))
			Expect(req.Status).To(Equal(request.StatusSubmitted))
			Expect(req.RequestDates).To(Equal("2024-01-01,2024-01-02,2024-01-03"))
			Expect(req.Currency).To(Equal("USD"))
			Expect(req.Amount).To(Equal(5000.0))
			Expect(req.UserID).To(Equal(int64(2)))
			Expect(publisher.Types()).To(Equal([]string{events.EventTypeRequestCreated}))
			Expect(counterValue(metrics.Created())).To(Equal(1.0))
		})

		It("records the initial ledger entry", func() {
			req, err := service.Create(ctx, validCreateDTO())
			Expect(err).NotTo(HaveOccurred())

			history, err := service.History(ctx, req.RequestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].OldStatus).To(BeNil())
			Expect(history[0].NewStatus).To(Equal("submitted"))
			Expect(history[0].ChangedBy).To(Equal("Alice Johnson"))
			Expect(*history[0].Notes).To(Equal("Initial request submission"))
		})

		It("defaults the owner when userId is absent", func() {
			in := validCreateDTO()
			in.UserID = request.Number{}

			req, err := service.Create(ctx, in)

			Expect(err).NotTo(HaveOccurred())
			Expect(req.UserID).To(Equal(request.DefaultUserID))
		})

		It("accepts numeric strings and strips script blocks", func() {
			in := validCreateDTO()
			in.Amount = request.NewNumber("250.50")
			adjustment := request.NewNumber("-3")
			in.Adjustment = &adjustment
			in.RequestName = "  Offsite <script>alert(1)</script>lunch "

			req, err := service.Create(ctx, in)

			Expect(err).NotTo(HaveOccurred())
			Expect(req.Amount).To(Equal(250.5))
			Expect(req.Adjustment).To(Equal(int64(-3)))
			Expect(req.RequestName).To(Equal("Offsite lunch"))
		})

		It("reports missing fields", func() {
			in := validCreateDTO()
			in.TeamName = "   "
			in.Adjustment = nil

			_, err := service.Create(ctx, in)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("Missing required fields"))
			fields := []string{}
			for _, fe := range appErr.Details.(internal.ValidationErrors).Errors {
				fields = append(fields, fe.Field)
			}
			Expect(fields).To(ConsistOf("teamName", "adjustment"))
			Expect(publisher.Types()).To(BeEmpty())
		})

		DescribeTable("rejects malformed values",
			func(mutate func(*request.CreateRequestDTO), code internal.ErrorCode) {
				in := validCreateDTO()
				mutate(&in)

				_, err := service.Create(ctx, in)

				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
				codes := []string{}
				for _, fe := range appErr.Details.(internal.ValidationErrors).Errors {
					codes = append(codes, fe.Code)
				}
				Expect(codes).To(ContainElement(string(code)))
			},
			Entry("zero amount", func(d *request.CreateRequestDTO) { d.Amount = request.NewNumber("0") }, internal.ErrCodeInvalidAmount),
			Entry("negative amount", func(d *request.CreateRequestDTO) { d.Amount = request.NewNumber("-10") }, internal.ErrCodeInvalidAmount),
			Entry("text amount", func(d *request.CreateRequestDTO) { d.Amount = request.NewNumber("lots") }, internal.ErrCodeInvalidAmount),
			Entry("fractional adjustment", func(d *request.CreateRequestDTO) {
				adj := request.NewNumber("1.5")
				d.Adjustment = &adj
			}, internal.ErrCodeInvalidAdjustment),
			Entry("bad email", func(d *request.CreateRequestDTO) { d.RequestorEmail = "alice.company.com" }, internal.ErrCodeValidationFailed),
			Entry("bad cc email", func(d *request.CreateRequestDTO) { d.CCEmail = strPtr("nobody@") }, internal.ErrCodeValidationFailed),
			Entry("reversed date range", func(d *request.CreateRequestDTO) { d.RequestDates = "2024-02-02:2024-02-01" }, internal.ErrCodeInvalidDateRange),
		)
	})

	Describe("Transition", func() {
		var created *request.Request

		BeforeEach(func() {
			var err error
			created, err = service.Create(ctx, validCreateDTO())
			Expect(err).NotTo(HaveOccurred())
		})

		It("runs the create, processing, completed scenario", func() {
			// Given
			now = now.Add(time.Hour)

			// When
			_, err := service.Transition(ctx, created.RequestID, request.TransitionDTO{Status: "processing"})
			Expect(err).NotTo(HaveOccurred())
			now = now.Add(time.Hour)
			done, err := service.Transition(ctx, created.RequestID, request.TransitionDTO{Status: "completed", AdminComments: strPtr("paid")})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(done.Status).To(Equal(request.StatusCompleted))
			Expect(*done.AdminComments).To(Equal("paid"))
			Expect(done.StatusUpdateDatetime).NotTo(BeNil())
			Expect(done.StatusUpdateDatetime.Equal(now)).To(BeTrue())
			Expect(done.UpdatedAt.Equal(now)).To(BeTrue())

			history, err := service.History(ctx, created.RequestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(3))
			Expect(history[0].NewStatus).To(Equal("completed"))
			Expect(*history[0].OldStatus).To(Equal("processing"))
			Expect(history[0].ChangedBy).To(Equal("admin"))
			Expect(history[1].NewStatus).To(Equal("processing"))
			Expect(history[2].NewStatus).To(Equal("submitted"))

			Expect(counterValue(metrics.Transitions().WithLabelValues("processing", "completed"))).To(Equal(1.0))
			Expect(publisher.Types()).To(Equal([]string{
				events.EventTypeRequestCreated,
				events.EventTypeRequestStatusChanged,
				events.EventTypeRequestStatusChanged,
			}))
		})

		It("accepts the numeric id as the reference", func() {
			updated, err := service.Transition(ctx, "1", request.TransitionDTO{Status: "failed"})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.RequestID).To(Equal(created.RequestID))
			Expect(updated.Status).To(Equal(request.StatusFailed))
		})

		It("records one entry per repeated transition", func() {
			for i := 0; i < 2; i++ {
				_, err := service.Transition(ctx, created.RequestID, request.TransitionDTO{Status: "processing"})
				Expect(err).NotTo(HaveOccurred())
			}

			history, err := service.History(ctx, created.RequestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(3))
			Expect(*history[0].OldStatus).To(Equal("processing"))
			Expect(history[0].NewStatus).To(Equal("processing"))
		})

		It("keeps admin comments when none are supplied", func() {
			_, err := service.Transition(ctx, created.RequestID, request.TransitionDTO{Status: "processing", AdminComments: strPtr("checking")})
			Expect(err).NotTo(HaveOccurred())

			updated, err := service.Transition(ctx, created.RequestID, request.TransitionDTO{Status: "completed"})

			Expect(err).NotTo(HaveOccurred())
			Expect(*updated.AdminComments).To(Equal("checking"))
		})

		It("maps rejected to failed and uses the legacy actor fields", func() {
			_, err := service.Transition(ctx, created.RequestID, request.TransitionDTO{Status: "rejected", ChangedBy: "Dana", Notes: strPtr("over budget")})
			Expect(err).NotTo(HaveOccurred())

			history, err := service.History(ctx, created.RequestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history[0].NewStatus).To(Equal("failed"))
			Expect(history[0].ChangedBy).To(Equal("Dana"))
			Expect(*history[0].Notes).To(Equal("over budget"))
		})

		It("takes the actor from the context", func() {
			actorCtx := internal.ContextWithActor(ctx, "root")
			_, err := service.Transition(actorCtx, created.RequestID, request.TransitionDTO{Status: "processing"})
			Expect(err).NotTo(HaveOccurred())

			history, err := service.History(ctx, created.RequestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history[0].ChangedBy).To(Equal("root"))
		})

		It("rejects unknown statuses", func() {
			_, err := service.Transition(ctx, created.RequestID, request.TransitionDTO{Status: "archived"})
			Expect(err).To(MatchError(internal.ErrInvalidStatus))
		})

		It("requires a status", func() {
			_, err := service.Transition(ctx, created.RequestID, request.TransitionDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("Status is required"))
		})

		It("reports unknown requests", func() {
			_, err := service.Transition(ctx, "REQ0000000000000DEADBEEF", request.TransitionDTO{Status: "processing"})
			Expect(internal.IsNotFound(err)).To(BeTrue())

			_, err = service.Transition(ctx, "999", request.TransitionDTO{Status: "processing"})
			Expect(internal.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			first := validCreateDTO()
			_, err := service.Create(ctx, first)
			Expect(err).NotTo(HaveOccurred())

			now = now.Add(time.Minute)
			second := validCreateDTO()
			second.RequestName = "Bob's request"
			second.UserID = request.NewNumber("3")
			_, err = service.Create(ctx, second)
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns everything newest first for admins", func() {
			all, err := service.List(ctx, request.ListQuery{IsAdmin: true})

			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
			Expect(all[0].RequestName).To(Equal("Bob's request"))
		})

		It("returns only the caller's requests", func() {
			mine, err := service.List(ctx, request.ListQuery{Username: "bob"})

			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(HaveLen(1))
			Expect(mine[0].UserID).To(Equal(int64(3)))
		})

		It("requires a username for non-admins", func() {
			_, err := service.List(ctx, request.ListQuery{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("Username is required for non-admin users"))
		})

		It("reports unknown users", func() {
			_, err := service.List(ctx, request.ListQuery{Username: "ghost"})
			Expect(err).To(MatchError(internal.ErrUserNotFound))
		})
	})

	Describe("when the primary fails between the lookup and the update", func() {
		var created *request.Request

		BeforeEach(func() {
			var err error
			created, err = service.Create(ctx, validCreateDTO())
			Expect(err).NotTo(HaveOccurred())
			_, err = adapter.Exec(ctx, `CREATE TRIGGER fail_update BEFORE UPDATE ON requests BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END`)
			Expect(err).NotTo(HaveOccurred())
		})

		It("applies the transition instead of reporting the request missing", func() {
			updated, err := service.Transition(ctx, created.RequestID, request.TransitionDTO{Status: "processing"})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.RequestID).To(Equal(created.RequestID))
			Expect(updated.Status).To(Equal(request.StatusProcessing))
		})

		It("records the ledger entry next to the update", func() {
			_, err := service.Transition(ctx, created.RequestID, request.TransitionDTO{Status: "processing"})
			Expect(err).NotTo(HaveOccurred())

			entries := adapter.Memory().History(created.RequestID)
			Expect(entries).To(HaveLen(1))
			Expect(*entries[0].OldStatus).To(Equal("submitted"))
			Expect(entries[0].NewStatus).To(Equal("processing"))
		})
	})

	Describe("after an outage the primary recovers from", func() {
		var created *request.Request

		BeforeEach(func() {
			var err error
			_, err = adapter.Exec(ctx, `CREATE TRIGGER fail_insert BEFORE INSERT ON requests BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END`)
			Expect(err).NotTo(HaveOccurred())
			created, err = service.Create(ctx, validCreateDTO())
			Expect(err).NotTo(HaveOccurred())
			_, err = adapter.Exec(ctx, `DROP TRIGGER fail_insert`)
			Expect(err).NotTo(HaveOccurred())
		})

		It("transitions requests the fallback took", func() {
			updated, err := service.Transition(ctx, created.RequestID, request.TransitionDTO{Status: "completed"})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(request.StatusCompleted))

			history, err := service.History(ctx, created.RequestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(2))
			Expect(history[0].NewStatus).To(Equal("completed"))
			Expect(history[1].NewStatus).To(Equal("submitted"))
		})

		It("still reports unknown requests", func() {
			_, err := service.Transition(ctx, "REQ-unknown", request.TransitionDTO{Status: "completed"})

			Expect(internal.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("with the primary store down", func() {
		BeforeEach(func() {
			var err error
			_ = adapter.Close()
			adapter, err = datastoretest.Broken(datastore.WithMemoryOptions(memory.WithClock(func() time.Time { return now })))
			Expect(err).NotTo(HaveOccurred())
			service = newService(adapter, &now, publisher, metrics)
		})

		It("serves reads from the seeded fallback", func() {
			all, err := service.List(ctx, request.ListQuery{IsAdmin: true})

			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
			Expect(all[0].RequestID).To(Equal(memory.SeedRequestID))
		})

		It("applies transitions and history in memory", func() {
			_, err := service.Transition(ctx, memory.SeedRequestID, request.TransitionDTO{Status: "processing"})
			Expect(err).NotTo(HaveOccurred())

			history, err := service.History(ctx, memory.SeedRequestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(2))
			Expect(history[0].NewStatus).To(Equal("processing"))
		})

		It("creates requests in memory", func() {
			req, err := service.Create(ctx, validCreateDTO())
			Expect(err).NotTo(HaveOccurred())

			found, err := service.History(ctx, req.RequestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
		})
	})
})
