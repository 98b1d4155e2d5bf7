package analytics

import "sort"

// RecentRuns returns up to limit runs ordered newest first.
func RecentRuns(runs []Run, limit int) []Run {
	out := make([]Run, len(runs))
	copy(out, runs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Activity.StartDateLocal.After(out[j].Activity.StartDateLocal)
	})
	return clip(out, limit)
}

// FastestRuns returns up to limit runs ordered by pace, lowest
// seconds-per-mile first.
func FastestRuns(runs []Run, limit int) []Run {
	out := make([]Run, len(runs))
	copy(out, runs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PaceSeconds < out[j].PaceSeconds
	})
	return clip(out, limit)
}

// LongestRuns returns up to limit runs ordered by distance, longest
// first.
func LongestRuns(runs []Run, limit int) []Run {
	out := make([]Run, len(runs))
	copy(out, runs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Miles > out[j].Miles
	})
	return clip(out, limit)
}

func clip(runs []Run, limit int) []Run {
	if limit > 0 && len(runs) > limit {
		return runs[:limit]
	}
	return runs
}
