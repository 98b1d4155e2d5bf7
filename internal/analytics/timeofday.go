package analytics

import "time"

// Time-of-day buckets by local start hour. Night wraps midnight.
const (
	BucketEarlyMorning = "early_morning" // [04:00, 08:00)
	BucketMorning      = "morning"       // [08:00, 12:00)
	BucketAfternoon    = "afternoon"     // [12:00, 17:00)
	BucketEvening      = "evening"       // [17:00, 21:00)
	BucketNight        = "night"         // [21:00, 04:00)
)

// bucketOrder fixes the reporting order.
var bucketOrder = []string{
	BucketEarlyMorning, BucketMorning, BucketAfternoon, BucketEvening, BucketNight,
}

// TimeOfDayBucket classifies a local start time.
func TimeOfDayBucket(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 4 && h < 8:
		return BucketEarlyMorning
	case h >= 8 && h < 12:
		return BucketMorning
	case h >= 12 && h < 17:
		return BucketAfternoon
	case h >= 17 && h < 21:
		return BucketEvening
	default:
		return BucketNight
	}
}

// BucketStats summarizes one time-of-day bucket.
type BucketStats struct {
	Bucket      string  `json:"bucket"`
	Runs        int     `json:"runs"`
	Percent     float64 `json:"percent"`
	AvgPace     string  `json:"avg_pace"`
	AvgPaceSecs float64 `json:"avg_pace_seconds"`
	AvgMiles    float64 `json:"avg_distance_miles"`
	TotalMiles  float64 `json:"total_distance_miles"`
}

// TimeOfDayResult is the full time-of-day breakdown.
type TimeOfDayResult struct {
	TotalRuns int           `json:"total_runs"`
	Buckets   []BucketStats `json:"buckets"`
	Favorite  string        `json:"favorite"`
}

// AnalyzeTimeOfDay buckets runs by local start hour and reports counts
// and averages per bucket. The favorite is the most-used bucket; ties
// go to the earlier one in day order.
func AnalyzeTimeOfDay(runs []Run) TimeOfDayResult {
	grouped := make(map[string][]Run)
	for _, r := range runs {
		b := TimeOfDayBucket(r.Activity.StartDateLocal)
		grouped[b] = append(grouped[b], r)
	}

	result := TimeOfDayResult{TotalRuns: len(runs)}
	best := 0
	for _, b := range bucketOrder {
		rs := grouped[b]
		if len(rs) == 0 {
			continue
		}
		avg := averagePace(rs)
		stats := BucketStats{
			Bucket:      b,
			Runs:        len(rs),
			AvgPace:     FormatPace(avg),
			AvgPaceSecs: avg,
		}
		if len(runs) > 0 {
			stats.Percent = float64(len(rs)) / float64(len(runs)) * 100
		}
		stats.TotalMiles = totalMiles(rs)
		stats.AvgMiles = stats.TotalMiles / float64(len(rs))
		result.Buckets = append(result.Buckets, stats)
		if len(rs) > best {
			best = len(rs)
			result.Favorite = b
		}
	}
	return result
}
