package analytics

import (
	"fmt"
	"math"
	"sort"
)

// DefaultGapThreshold is the minimum break length, in days, reported
// as a training gap.
const DefaultGapThreshold = 14

// Gap is one break between consecutive runs.
type Gap struct {
	Days     int    `json:"days"`
	LastRun  string `json:"last_run"`
	LastDate string `json:"last_date"`
	NextRun  string `json:"next_run"`
	NextDate string `json:"next_date"`
	// PaceChangeSecs is pace after minus pace before; negative means
	// the runner came back faster.
	PaceChangeSecs        float64 `json:"pace_change_seconds"`
	DistanceChangePercent float64 `json:"distance_change_percent"`
	Description           string  `json:"description"`
}

// GapResult lists training breaks at or above the threshold.
type GapResult struct {
	ThresholdDays int   `json:"threshold_days"`
	TotalRuns     int   `json:"total_runs"`
	Gaps          []Gap `json:"gaps"`
}

// FindGaps scans runs in date order and reports every break of at
// least thresholdDays between consecutive runs. The description notes
// distance and pace shifts across the gap only when they exceed ten
// percent.
func FindGaps(runs []Run, thresholdDays int) GapResult {
	if thresholdDays <= 0 {
		thresholdDays = DefaultGapThreshold
	}
	result := GapResult{ThresholdDays: thresholdDays, TotalRuns: len(runs)}
	if len(runs) < 2 {
		return result
	}

	ordered := make([]Run, len(runs))
	copy(ordered, runs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Activity.StartDateLocal.Before(ordered[j].Activity.StartDateLocal)
	})

	for i := 1; i < len(ordered); i++ {
		prev, next := ordered[i-1], ordered[i]
		days := int(next.Activity.StartDateLocal.Sub(prev.Activity.StartDateLocal).Hours() / 24)
		if days < thresholdDays {
			continue
		}
		result.Gaps = append(result.Gaps, Gap{
			Days:                  days,
			LastRun:               prev.Activity.Name,
			LastDate:              prev.Activity.StartDateLocal.Format("2006-01-02"),
			NextRun:               next.Activity.Name,
			NextDate:              next.Activity.StartDateLocal.Format("2006-01-02"),
			PaceChangeSecs:        next.PaceSeconds - prev.PaceSeconds,
			DistanceChangePercent: percentChange(prev.Miles, next.Miles),
			Description:           describeGap(prev, next, days),
		})
	}
	return result
}

func describeGap(prev, next Run, days int) string {
	desc := fmt.Sprintf("%d-day break after %q", days, prev.Activity.Name)
	change := percentChange(prev.Miles, next.Miles)
	if math.Abs(change) > 10 {
		direction := "longer"
		if change < 0 {
			direction = "shorter"
		}
		desc += fmt.Sprintf(", returned with a %.0f%% %s run", math.Abs(change), direction)
	}
	paceChange := percentChange(prev.PaceSeconds, next.PaceSeconds)
	if math.Abs(paceChange) > 10 {
		direction := "slower"
		if paceChange < 0 {
			direction = "faster"
		}
		desc += fmt.Sprintf(", came back %.0f%% %s", math.Abs(paceChange), direction)
	}
	return desc
}
