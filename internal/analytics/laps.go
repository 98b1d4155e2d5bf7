package analytics

import (
	"math"
	"sort"

	"github.com/runlens/runlens/internal/activities"
)

// targetTolerance is the relative distance window for matching laps to
// a target distance.
const targetTolerance = 0.05

// LapSplit is one lap with derived pace.
type LapSplit struct {
	ActivityID  int64   `json:"activity_id"`
	LapIndex    int     `json:"lap_index"`
	Miles       float64 `json:"distance_miles"`
	MovingTime  int     `json:"moving_time"`
	Pace        string  `json:"pace"`
	PaceSeconds float64 `json:"pace_seconds"`
}

// LapResult summarizes the splits of one activity.
type LapResult struct {
	ActivityID int64      `json:"activity_id"`
	Laps       []LapSplit `json:"laps"`
	Fastest    *LapSplit  `json:"fastest,omitempty"`
	Slowest    *LapSplit  `json:"slowest,omitempty"`
	AvgPace    string     `json:"avg_pace"`
}

// AnalyzeLaps derives pace for every lap of one activity and picks out
// the fastest and slowest splits. Laps too short to pace are skipped.
func AnalyzeLaps(activityID int64, laps []activities.Lap) LapResult {
	result := LapResult{ActivityID: activityID}
	splits := toSplits(laps)
	if len(splits) == 0 {
		result.AvgPace = FormatPace(0)
		return result
	}

	result.Laps = splits
	fastest, slowest := 0, 0
	var total float64
	for i, s := range splits {
		total += s.PaceSeconds
		if s.PaceSeconds < splits[fastest].PaceSeconds {
			fastest = i
		}
		if s.PaceSeconds > splits[slowest].PaceSeconds {
			slowest = i
		}
	}
	result.Fastest = &splits[fastest]
	result.Slowest = &splits[slowest]
	result.AvgPace = FormatPace(total / float64(len(splits)))
	return result
}

// TargetLapsResult ranks laps near a target distance across
// activities.
type TargetLapsResult struct {
	TargetMiles float64    `json:"target_miles"`
	Matched     int        `json:"matched"`
	Laps        []LapSplit `json:"laps"`
}

// FindTargetDistanceLaps keeps laps within five percent of the target
// distance and ranks them by pace, fastest first.
func FindTargetDistanceLaps(laps []activities.Lap, targetMiles float64, limit int) TargetLapsResult {
	result := TargetLapsResult{TargetMiles: targetMiles}
	if targetMiles <= 0 {
		return result
	}
	targetMeters := targetMiles * MetersPerMile
	var matched []activities.Lap
	for _, l := range laps {
		if math.Abs(l.Distance-targetMeters)/targetMeters <= targetTolerance {
			matched = append(matched, l)
		}
	}

	splits := toSplits(matched)
	sort.SliceStable(splits, func(i, j int) bool {
		return splits[i].PaceSeconds < splits[j].PaceSeconds
	})
	result.Matched = len(splits)
	if limit > 0 && len(splits) > limit {
		splits = splits[:limit]
	}
	result.Laps = splits
	return result
}

func toSplits(laps []activities.Lap) []LapSplit {
	splits := make([]LapSplit, 0, len(laps))
	for _, l := range laps {
		if l.Distance <= 0 || l.MovingTime <= 0 {
			continue
		}
		miles := l.Distance / MetersPerMile
		pace := float64(l.MovingTime) / miles
		splits = append(splits, LapSplit{
			ActivityID:  l.ActivityID,
			LapIndex:    l.LapIndex,
			Miles:       miles,
			MovingTime:  l.MovingTime,
			Pace:        FormatPace(pace),
			PaceSeconds: pace,
		})
	}
	return splits
}
