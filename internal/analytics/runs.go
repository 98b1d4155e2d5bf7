// Package analytics computes running statistics over activity records:
// rankings, time-of-day and weekday habits, title language, training
// gaps, monthly load, double days, and lap splits.
package analytics

import (
	"fmt"
	"math"

	"github.com/runlens/runlens/internal/activities"
)

// MetersPerMile converts upstream metric distances to miles.
const MetersPerMile = 1609.344

// Minimum thresholds below which an activity is noise rather than a
// run worth analyzing.
const (
	minMovingTime = 240 // seconds
	minDistance   = MetersPerMile
)

// runTypes are the activity type tags treated as runs.
var runTypes = map[string]bool{
	"Run":        true,
	"VirtualRun": true,
	"TrailRun":   true,
}

// Run is an activity that passed the run filter, with derived fields
// every analysis needs.
type Run struct {
	Activity    activities.Activity
	Miles       float64
	PaceSeconds float64 // seconds per mile
}

// FilterRuns keeps run-typed activities of at least a mile and four
// minutes of moving time, converting each to a Run. Order is preserved.
func FilterRuns(records []activities.Activity) []Run {
	runs := make([]Run, 0, len(records))
	for _, a := range records {
		if !runTypes[a.Type] {
			continue
		}
		if a.MovingTime < minMovingTime || a.Distance < minDistance {
			continue
		}
		miles := a.Distance / MetersPerMile
		runs = append(runs, Run{
			Activity:    a,
			Miles:       miles,
			PaceSeconds: float64(a.MovingTime) / miles,
		})
	}
	return runs
}

// FormatPace renders seconds-per-mile as M:SS, rounding seconds and
// carrying a 60-second remainder into the minute.
func FormatPace(secondsPerMile float64) string {
	if secondsPerMile <= 0 || math.IsInf(secondsPerMile, 0) || math.IsNaN(secondsPerMile) {
		return "0:00"
	}
	mins := int(secondsPerMile) / 60
	secs := int(math.Round(secondsPerMile - float64(mins*60)))
	if secs == 60 {
		mins++
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// FormatDuration renders a second count as H:MM:SS, or M:SS under an
// hour.
func FormatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Summary is the one-line human rendering of a run used in tool
// payloads.
func (r Run) Summary() string {
	return fmt.Sprintf("%s: %.2f mi in %s (%s/mi) on %s",
		r.Activity.Name,
		r.Miles,
		FormatDuration(r.Activity.MovingTime),
		FormatPace(r.PaceSeconds),
		r.Activity.StartDateLocal.Format("2006-01-02"),
	)
}

// averagePace returns mean seconds per mile across runs, 0 when empty.
func averagePace(runs []Run) float64 {
	if len(runs) == 0 {
		return 0
	}
	var total float64
	for _, r := range runs {
		total += r.PaceSeconds
	}
	return total / float64(len(runs))
}

// totalMiles sums run distances.
func totalMiles(runs []Run) float64 {
	var total float64
	for _, r := range runs {
		total += r.Miles
	}
	return total
}

// percentChange returns the relative change from prev to cur in
// percent, 0 when prev is 0.
func percentChange(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}
