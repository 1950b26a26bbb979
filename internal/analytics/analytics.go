// Package analytics computes the admin dashboard aggregates. Both stores
// feed the same pure functions, so primary and fallback answers agree.
package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	requestDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/request"
	userDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/user"
)

const (
	PeriodDaily   = "daily"
	PeriodMonthly = "monthly"

	dailyBuckets   = 30
	monthlyBuckets = 6
	recentLimit    = 10
	unknownUser    = "Unknown"
)

// Snapshot is the raw material for every aggregate.
type Snapshot struct {
	Users    []userDatamodel.User
	Requests []requestDatamodel.Request
}

type Overview struct {
	Users             UserTotals        `json:"users"`
	Requests          RequestTotals     `json:"requests"`
	StatusChanges     StatusChangeCount `json:"status_changes"`
	UsersBreakdown    []TeamBreakdown   `json:"usersBreakdown"`
	RequestsBreakdown []StatusBreakdown `json:"requestsBreakdown"`
}

type UserTotals struct {
	Total       int `json:"total"`
	DailyActive int `json:"daily_active"`
}

type RequestTotals struct {
	Total               int `json:"total"`
	Today               int `json:"today"`
	Completed           int `json:"completed"`
	Failed              int `json:"failed"`
	CompletedPercentage int `json:"completed_percentage"`
	FailedPercentage    int `json:"failed_percentage"`
}

type StatusChangeCount struct {
	Total   int `json:"total"`
	Last24h int `json:"last_24h"`
}

type TeamBreakdown struct {
	Team         string `json:"team"`
	UserCount    int    `json:"userCount"`
	RequestCount int    `json:"requestCount"`
	ActiveUsers  int    `json:"activeUsers"`
}

type StatusBreakdown struct {
	Status     string  `json:"status"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	AvgDays    int     `json:"avgDays"`
}

// TrendBucket carries either Day or Month depending on the period.
type TrendBucket struct {
	Day           string `json:"day,omitempty"`
	Month         string `json:"month,omitempty"`
	TotalRequests int    `json:"total_requests"`
	Completed     int    `json:"completed"`
	Failed        int    `json:"failed"`
	SuccessRate   int    `json:"success_rate"`
}

type StatusSummary struct {
	Status     string    `json:"status"`
	Count      int       `json:"count"`
	LastChange time.Time `json:"lastChange"`
}

type Activity struct {
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Team      string    `json:"team"`
	Requester string    `json:"requester"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Statistics struct {
	Total            int                        `json:"total"`
	Submitted        int                        `json:"submitted"`
	Processing       int                        `json:"processing"`
	Completed        int                        `json:"completed"`
	Failed           int                        `json:"failed"`
	AmountByCurrency map[string]decimal.Decimal `json:"amount_by_currency"`
}

type StatisticsResponse struct {
	Success bool       `json:"success"`
	Data    Statistics `json:"data"`
}
