package model

import (
	"math"
	"time"
)

// UsageReport aggregates traffic and status counters over a set of users.
// Traffic fields are GB rounded to three decimals.
type UsageReport struct {
	ID          string
	Admin       string
	Scope       string
	GeneratedAt time.Time

	TotalUsers     int
	ByStatus       map[UserStatus]int
	UsedGB         float64
	LimitGB        float64
	RemainingGB    float64
	LifetimeUsedGB float64
}

// BuildUsageReport folds users into a report. Remaining traffic only counts users
// with a finite quota and never goes negative per user.
func BuildUsageReport(users []*PanelUser) *UsageReport {
	r := &UsageReport{ByStatus: make(map[UserStatus]int, len(AllStatuses))}
	for _, st := range AllStatuses {
		r.ByStatus[st] = 0
	}

	var used, limit, remaining, lifetime int64
	for _, u := range users {
		if u == nil {
			continue
		}
		r.TotalUsers++
		r.ByStatus[u.Status]++
		used += u.UsedTraffic
		lifetime += u.LifetimeUsedTraffic
		if u.HasDataLimit() {
			limit += *u.DataLimit
			if left := *u.DataLimit - u.UsedTraffic; left > 0 {
				remaining += left
			}
		}
	}

	r.UsedGB = toGB(used)
	r.LimitGB = toGB(limit)
	r.RemainingGB = toGB(remaining)
	r.LifetimeUsedGB = toGB(lifetime)
	return r
}

func toGB(b int64) float64 {
	return math.Round(float64(b)/float64(BytesPerGB)*1000) / 1000
}
