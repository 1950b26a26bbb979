package analytics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/CodingTam/requesthtml/internal/analytics"
	requestDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/request"
	userDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/user"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func req(id int64, status, team string, userID int64, created, updated time.Time) requestDatamodel.Request {
	return requestDatamodel.Request{
		ID:          id,
		RequestID:   "REQ" + created.Format("20060102150405"),
		RequestName: "request",
		Status:      status,
		TeamName:    team,
		UserID:      userID,
		Currency:    "USD",
		Amount:      100,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}
}

func usr(id int64, username, team, status string, created time.Time) userDatamodel.User {
	return userDatamodel.User{ID: id, Username: username, Team: team, Status: status, CreatedAt: created}
}

var _ = Describe("Analytics aggregation", func() {
	Describe("ComputeOverview", func() {
		It("reports zero percentages when there are no requests", func() {
			// Given
			snap := analytics.Snapshot{}

			// When
			out := analytics.ComputeOverview(snap, now)

			// Then
			Expect(out.Requests.Total).To(Equal(0))
			Expect(out.Requests.CompletedPercentage).To(Equal(0))
			Expect(out.Requests.FailedPercentage).To(Equal(0))
			Expect(out.UsersBreakdown).To(BeEmpty())
			Expect(out.RequestsBreakdown).To(BeEmpty())
		})

		It("reports 100 percent when every request completed", func() {
			snap := analytics.Snapshot{Requests: []requestDatamodel.Request{
				req(1, "completed", "Ops", 2, now.Add(-time.Hour), now),
				req(2, "completed", "Ops", 2, now.Add(-time.Hour), now),
			}}

			out := analytics.ComputeOverview(snap, now)

			Expect(out.Requests.Completed).To(Equal(2))
			Expect(out.Requests.CompletedPercentage).To(Equal(100))
			Expect(out.Requests.FailedPercentage).To(Equal(0))
		})

		It("counts today, status changes and daily active users", func() {
			snap := analytics.Snapshot{
				Users: []userDatamodel.User{
					usr(1, "admin", "Administration", "approved", now.Add(-48*time.Hour)),
					usr(2, "alice", "Marketing", "approved", now.Add(-2*time.Hour)),
					usr(3, "bob", "Marketing", "pending", now.Add(-time.Hour)),
				},
				Requests: []requestDatamodel.Request{
					req(1, "submitted", "Marketing", 2, now.Add(-time.Hour), now.Add(-time.Hour)),
					req(2, "failed", "Marketing", 2, now.Add(-72*time.Hour), now.Add(-30*time.Minute)),
					req(3, "processing", "Sales", 3, now.Add(-96*time.Hour), now.Add(-48*time.Hour)),
				},
			}

			out := analytics.ComputeOverview(snap, now)

			Expect(out.Users.Total).To(Equal(3))
			Expect(out.Users.DailyActive).To(Equal(2))
			Expect(out.Requests.Today).To(Equal(1))
			Expect(out.Requests.Failed).To(Equal(1))
			Expect(out.Requests.FailedPercentage).To(Equal(33))
			Expect(out.StatusChanges.Total).To(Equal(2))
			Expect(out.StatusChanges.Last24h).To(Equal(1))
		})

		It("orders the team breakdown by users, then requests, then name", func() {
			snap := analytics.Snapshot{
				Users: []userDatamodel.User{
					usr(1, "a", "Marketing", "approved", now),
					usr(2, "b", "Marketing", "pending", now),
					usr(3, "c", "Sales", "approved", now),
					usr(4, "d", "Finance", "approved", now),
				},
				Requests: []requestDatamodel.Request{
					req(1, "submitted", "Finance", 4, now, now),
					req(2, "submitted", "Legal", 4, now, now),
				},
			}

			out := analytics.ComputeOverview(snap, now)

			Expect(out.UsersBreakdown).To(Equal([]analytics.TeamBreakdown{
				{Team: "Marketing", UserCount: 2, RequestCount: 0, ActiveUsers: 1},
				{Team: "Finance", UserCount: 1, RequestCount: 1, ActiveUsers: 1},
				{Team: "Sales", UserCount: 1, RequestCount: 0, ActiveUsers: 1},
				{Team: "Legal", UserCount: 0, RequestCount: 1, ActiveUsers: 0},
			}))
		})

		It("rounds status percentages to one decimal and ages to whole days", func() {
			snap := analytics.Snapshot{Requests: []requestDatamodel.Request{
				req(1, "submitted", "Ops", 1, now.Add(-48*time.Hour), now),
				req(2, "submitted", "Ops", 1, now.Add(-96*time.Hour), now),
				req(3, "rejected", "Ops", 1, now.Add(-24*time.Hour), now),
			}}

			out := analytics.ComputeOverview(snap, now)

			Expect(out.RequestsBreakdown).To(Equal([]analytics.StatusBreakdown{
				{Status: "submitted", Count: 2, Percentage: 66.7, AvgDays: 3},
				{Status: "failed", Count: 1, Percentage: 33.3, AvgDays: 1},
			}))
		})
	})

	Describe("ComputeTrends", func() {
		snap := analytics.Snapshot{Requests: []requestDatamodel.Request{
			req(1, "completed", "Ops", 1, now, now),
			req(2, "failed", "Ops", 1, now.AddDate(0, 0, -1), now),
			req(3, "completed", "Ops", 1, now.AddDate(0, 0, -1), now),
			req(4, "completed", "Ops", 1, now.AddDate(0, -2, 0), now),
			req(5, "completed", "Ops", 1, now.AddDate(-1, 0, 0), now),
		}}

		It("emits 30 ascending daily buckets including empty days", func() {
			out := analytics.ComputeTrends(snap, analytics.PeriodDaily, now)

			Expect(out).To(HaveLen(30))
			Expect(out[0].Day).To(Equal("2024-02-15"))
			Expect(out[29].Day).To(Equal("2024-03-15"))
			Expect(out[29]).To(Equal(analytics.TrendBucket{Day: "2024-03-15", TotalRequests: 1, Completed: 1, SuccessRate: 100}))
			Expect(out[28]).To(Equal(analytics.TrendBucket{Day: "2024-03-14", TotalRequests: 2, Completed: 1, Failed: 1, SuccessRate: 50}))
			Expect(out[10].TotalRequests).To(Equal(0))
			Expect(out[10].SuccessRate).To(Equal(0))
		})

		It("defaults to six monthly buckets", func() {
			out := analytics.ComputeTrends(snap, "weekly", now)

			Expect(out).To(HaveLen(6))
			Expect(out[0].Month).To(Equal("2023-10"))
			Expect(out[5].Month).To(Equal("2024-03"))
			Expect(out[5].TotalRequests).To(Equal(3))
			Expect(out[5].SuccessRate).To(Equal(67))
			Expect(out[3].Month).To(Equal("2024-01"))
			Expect(out[3].TotalRequests).To(Equal(1))
		})
	})

	Describe("ComputeStatusSummary", func() {
		It("groups by status with the latest change", func() {
			snap := analytics.Snapshot{Requests: []requestDatamodel.Request{
				req(1, "submitted", "Ops", 1, now, now.Add(-time.Hour)),
				req(2, "submitted", "Ops", 1, now, now),
				req(3, "completed", "Ops", 1, now, now.Add(-2*time.Hour)),
			}}

			out := analytics.ComputeStatusSummary(snap)

			Expect(out).To(Equal([]analytics.StatusSummary{
				{Status: "submitted", Count: 2, LastChange: now},
				{Status: "completed", Count: 1, LastChange: now.Add(-2 * time.Hour)},
			}))
		})
	})

	Describe("ComputeRecentActivity", func() {
		It("returns the ten most recently updated requests", func() {
			var requests []requestDatamodel.Request
			for i := 0; i < 12; i++ {
				requests = append(requests, req(int64(i+1), "submitted", "Ops", 2, now, now.Add(time.Duration(i)*time.Minute)))
			}
			requests[11].UserID = 99
			snap := analytics.Snapshot{
				Users:    []userDatamodel.User{usr(2, "alice.johnson", "Ops", "approved", now)},
				Requests: requests,
			}

			out := analytics.ComputeRecentActivity(snap)

			Expect(out).To(HaveLen(10))
			Expect(out[0].Requester).To(Equal("Unknown"))
			Expect(out[0].UpdatedAt).To(Equal(now.Add(11 * time.Minute)))
			Expect(out[1].Requester).To(Equal("alice.johnson"))
			Expect(out[9].UpdatedAt).To(Equal(now.Add(2 * time.Minute)))
		})
	})

	Describe("ComputeStatistics", func() {
		It("counts statuses and sums amounts per currency", func() {
			a := req(1, "submitted", "Ops", 1, now, now)
			a.Amount = 0.1
			b := req(2, "processing", "Ops", 1, now, now)
			b.Amount = 0.2
			c := req(3, "completed", "Ops", 1, now, now)
			c.Currency = "eur"
			c.Amount = 50
			snap := analytics.Snapshot{Requests: []requestDatamodel.Request{a, b, c, req(4, "failed", "Ops", 1, now, now)}}

			out := analytics.ComputeStatistics(snap)

			Expect(out.Total).To(Equal(4))
			Expect(out.Submitted).To(Equal(1))
			Expect(out.Processing).To(Equal(1))
			Expect(out.Completed).To(Equal(1))
			Expect(out.Failed).To(Equal(1))
			Expect(out.AmountByCurrency["USD"].Equal(decimal.RequireFromString("100.3"))).To(BeTrue())
			Expect(out.AmountByCurrency["EUR"].Equal(decimal.NewFromInt(50))).To(BeTrue())
		})
	})
})
