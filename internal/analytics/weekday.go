package analytics

import (
	"math"
	"sort"
	"time"
)

// WeekdayStats summarizes one day of the week.
type WeekdayStats struct {
	Day         string  `json:"day"`
	Runs        int     `json:"runs"`
	AvgPace     string  `json:"avg_pace"`
	AvgPaceSecs float64 `json:"avg_pace_seconds"`
	AvgMiles    float64 `json:"avg_distance_miles"`
	Consistency float64 `json:"consistency_percent"`
}

// WeekdayResult is the day-of-week habit breakdown.
type WeekdayResult struct {
	TotalRuns          int            `json:"total_runs"`
	Days               []WeekdayStats `json:"days"`
	FavoriteDay        string         `json:"favorite_day"`
	PreferredDays      []string       `json:"preferred_days"`
	LeastActiveDay     string         `json:"least_active_day"`
	MostConsistentDay  string         `json:"most_consistent_day"`
	WeekdayRuns        int            `json:"weekday_runs"`
	WeekendRuns        int            `json:"weekend_runs"`
	WeekdayConsistency float64        `json:"weekday_consistency_percent"`
	WeekendConsistency float64        `json:"weekend_consistency_percent"`
	WeekendRunner      bool           `json:"weekend_runner"`
}

// AnalyzeWeekdays breaks runs down by day of the week and classifies
// weekday versus weekend habits. Consistency is the percentage of
// available day slots actually run across the observed span, using
// whole weeks rounded up as the span width.
func AnalyzeWeekdays(runs []Run) WeekdayResult {
	result := WeekdayResult{TotalRuns: len(runs)}
	if len(runs) == 0 {
		return result
	}

	grouped := make(map[time.Weekday][]Run)
	first, last := runs[0].Activity.StartDateLocal, runs[0].Activity.StartDateLocal
	for _, r := range runs {
		t := r.Activity.StartDateLocal
		grouped[t.Weekday()] = append(grouped[t.Weekday()], r)
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}

	spanDays := last.Sub(first).Hours()/24 + 1
	weeks := math.Ceil(spanDays / 7)
	if weeks < 1 {
		weeks = 1
	}

	best := 0
	mostConsistent := 0.0
	for d := time.Sunday; d <= time.Saturday; d++ {
		rs := grouped[d]
		if len(rs) == 0 {
			continue
		}
		avg := averagePace(rs)
		consistency := float64(len(rs)) / weeks * 100
		result.Days = append(result.Days, WeekdayStats{
			Day:         d.String(),
			Runs:        len(rs),
			AvgPace:     FormatPace(avg),
			AvgPaceSecs: avg,
			AvgMiles:    totalMiles(rs) / float64(len(rs)),
			Consistency: consistency,
		})
		if d == time.Saturday || d == time.Sunday {
			result.WeekendRuns += len(rs)
		} else {
			result.WeekdayRuns += len(rs)
		}
		if len(rs) > best {
			best = len(rs)
			result.FavoriteDay = d.String()
		}
		// Ties keep the earliest day in week order.
		if consistency > mostConsistent {
			mostConsistent = consistency
			result.MostConsistentDay = d.String()
		}
	}
	sort.SliceStable(result.Days, func(i, j int) bool {
		return result.Days[i].Runs > result.Days[j].Runs
	})
	for i := 0; i < len(result.Days) && i < 3; i++ {
		result.PreferredDays = append(result.PreferredDays, result.Days[i].Day)
	}
	result.LeastActiveDay = result.Days[len(result.Days)-1].Day

	result.WeekdayConsistency = float64(result.WeekdayRuns) / (weeks * 5) * 100
	result.WeekendConsistency = float64(result.WeekendRuns) / (weeks * 2) * 100

	// Weekend runner: per-day weekday rate under 80% of the per-day
	// weekend rate.
	if result.WeekendRuns > 0 {
		ratio := (float64(result.WeekdayRuns) / 5) / (float64(result.WeekendRuns) / 2)
		result.WeekendRunner = ratio < 0.8
	}
	return result
}
