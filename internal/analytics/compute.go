package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	requestDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/request"
	userDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/user"
	"github.com/CodingTam/requesthtml/internal/request"
)

const (
	dayLayout    = "2006-01-02"
	monthLayout  = "2006-01"
	unassigned   = "Unassigned"
	hoursPerDay  = 24
	lookbackSpan = hoursPerDay * time.Hour
)

// ComputeOverview builds the dashboard headline numbers.
func ComputeOverview(s Snapshot, now time.Time) Overview {
	since := now.Add(-lookbackSpan)
	today := now.Format(dayLayout)

	var out Overview
	out.Users.Total = len(s.Users)
	for _, u := range s.Users {
		if !u.CreatedAt.Before(since) {
			out.Users.DailyActive++
		}
	}

	out.Requests.Total = len(s.Requests)
	for _, r := range s.Requests {
		if r.CreatedAt.In(now.Location()).Format(dayLayout) == today {
			out.Requests.Today++
		}
		switch statusOf(r) {
		case string(request.StatusCompleted):
			out.Requests.Completed++
		case string(request.StatusFailed):
			out.Requests.Failed++
		}
		if !r.UpdatedAt.Equal(r.CreatedAt) {
			out.StatusChanges.Total++
			if !r.UpdatedAt.Before(since) {
				out.StatusChanges.Last24h++
			}
		}
	}
	out.Requests.CompletedPercentage = percent(out.Requests.Completed, out.Requests.Total)
	out.Requests.FailedPercentage = percent(out.Requests.Failed, out.Requests.Total)

	out.UsersBreakdown = teamBreakdown(s)
	out.RequestsBreakdown = statusBreakdown(s.Requests, now)
	return out
}

func teamBreakdown(s Snapshot) []TeamBreakdown {
	byTeam := make(map[string]*TeamBreakdown)
	get := func(team string) *TeamBreakdown {
		team = strings.TrimSpace(team)
		if team == "" {
			team = unassigned
		}
		tb, ok := byTeam[team]
		if !ok {
			tb = &TeamBreakdown{Team: team}
			byTeam[team] = tb
		}
		return tb
	}

	for _, u := range s.Users {
		tb := get(u.Team)
		tb.UserCount++
		if u.Status == userDatamodel.StatusApproved {
			tb.ActiveUsers++
		}
	}
	for _, r := range s.Requests {
		get(r.TeamName).RequestCount++
	}

	out := make([]TeamBreakdown, 0, len(byTeam))
	for _, tb := range byTeam {
		out = append(out, *tb)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserCount != out[j].UserCount {
			return out[i].UserCount > out[j].UserCount
		}
		if out[i].RequestCount != out[j].RequestCount {
			return out[i].RequestCount > out[j].RequestCount
		}
		return out[i].Team < out[j].Team
	})
	return out
}

func statusBreakdown(requests []requestDatamodel.Request, now time.Time) []StatusBreakdown {
	type acc struct {
		count int
		days  float64
	}
	byStatus := make(map[string]*acc)
	for _, r := range requests {
		st := statusOf(r)
		a, ok := byStatus[st]
		if !ok {
			a = &acc{}
			byStatus[st] = a
		}
		a.count++
		a.days += now.Sub(r.CreatedAt).Hours() / hoursPerDay
	}

	total := len(requests)
	out := make([]StatusBreakdown, 0, len(byStatus))
	for st, a := range byStatus {
		out = append(out, StatusBreakdown{
			Status:     st,
			Count:      a.count,
			Percentage: math.Round(float64(a.count)/float64(total)*1000) / 10,
			AvgDays:    int(math.Round(a.days / float64(a.count))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Status < out[j].Status
	})
	return out
}

// ComputeTrends buckets requests by creation day or month. Unknown periods
// are treated as monthly.
func ComputeTrends(s Snapshot, period string, now time.Time) []TrendBucket {
	daily := period == PeriodDaily

	var keys []string
	if daily {
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		for i := dailyBuckets - 1; i >= 0; i-- {
			keys = append(keys, start.AddDate(0, 0, -i).Format(dayLayout))
		}
	} else {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		for i := monthlyBuckets - 1; i >= 0; i-- {
			keys = append(keys, start.AddDate(0, -i, 0).Format(monthLayout))
		}
	}

	index := make(map[string]int, len(keys))
	buckets := make([]TrendBucket, len(keys))
	for i, k := range keys {
		index[k] = i
		if daily {
			buckets[i].Day = k
		} else {
			buckets[i].Month = k
		}
	}

	layout := monthLayout
	if daily {
		layout = dayLayout
	}
	for _, r := range s.Requests {
		i, ok := index[r.CreatedAt.In(now.Location()).Format(layout)]
		if !ok {
			continue
		}
		buckets[i].TotalRequests++
		switch statusOf(r) {
		case string(request.StatusCompleted):
			buckets[i].Completed++
		case string(request.StatusFailed):
			buckets[i].Failed++
		}
	}
	for i := range buckets {
		buckets[i].SuccessRate = percent(buckets[i].Completed, buckets[i].TotalRequests)
	}
	return buckets
}

func ComputeStatusSummary(s Snapshot) []StatusSummary {
	byStatus := make(map[string]*StatusSummary)
	for _, r := range s.Requests {
		st := statusOf(r)
		ss, ok := byStatus[st]
		if !ok {
			ss = &StatusSummary{Status: st}
			byStatus[st] = ss
		}
		ss.Count++
		if r.UpdatedAt.After(ss.LastChange) {
			ss.LastChange = r.UpdatedAt
		}
	}

	out := make([]StatusSummary, 0, len(byStatus))
	for _, ss := range byStatus {
		out = append(out, *ss)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Status < out[j].Status
	})
	return out
}

func ComputeRecentActivity(s Snapshot) []Activity {
	usernames := make(map[int64]string, len(s.Users))
	for _, u := range s.Users {
		usernames[u.ID] = u.Username
	}

	sorted := make([]requestDatamodel.Request, len(s.Requests))
	copy(sorted, s.Requests)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].UpdatedAt.Equal(sorted[j].UpdatedAt) {
			return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) > recentLimit {
		sorted = sorted[:recentLimit]
	}

	out := make([]Activity, 0, len(sorted))
	for _, r := range sorted {
		requester, ok := usernames[r.UserID]
		if !ok || requester == "" {
			requester = unknownUser
		}
		out = append(out, Activity{
			Title:     r.RequestName,
			Status:    statusOf(r),
			Team:      r.TeamName,
			Requester: requester,
			UpdatedAt: r.UpdatedAt,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}

func ComputeStatistics(s Snapshot) Statistics {
	out := Statistics{
		Total:            len(s.Requests),
		AmountByCurrency: make(map[string]decimal.Decimal),
	}
	for _, r := range s.Requests {
		switch request.Status(statusOf(r)) {
		case request.StatusSubmitted:
			out.Submitted++
		case request.StatusProcessing:
			out.Processing++
		case request.StatusCompleted:
			out.Completed++
		case request.StatusFailed:
			out.Failed++
		}
		cur := strings.ToUpper(r.Currency)
		out.AmountByCurrency[cur] = out.AmountByCurrency[cur].Add(decimal.NewFromFloat(r.Amount))
	}
	return out
}

// statusOf folds legacy stored values onto the current vocabulary.
func statusOf(r requestDatamodel.Request) string {
	st, err := request.ParseStatus(r.Status)
	if err != nil {
		return r.Status
	}
	return string(st)
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
