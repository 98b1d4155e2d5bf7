package activities

import (
	"fmt"
	"time"
)

// allTimeFloor is the cutoff below which an "after" bound is treated as
// unbounded. No supported upstream has activities before it.
var allTimeFloor = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Query identifies one shape of activity lookup. Two queries with the
// same field values are interchangeable for caching purposes.
type Query struct {
	Year  int // 0 means any
	Month int // 1-12, 0 means any; only meaningful with Year
	// Before and After bound StartDateLocal inclusively. When set they
	// take precedence over Year and Month. Zero values mean unbounded.
	Before time.Time
	After  time.Time

	Type           string // activity type tag, "" means any
	IncludePrivate bool
}

// Fingerprint returns a stable cache key covering every field that
// affects the result set.
func (q Query) Fingerprint() string {
	return fmt.Sprintf("y=%d|m=%d|b=%d|a=%d|t=%s|p=%t",
		q.Year, q.Month, q.Before.Unix(), q.After.Unix(), q.Type, q.IncludePrivate)
}

// AllTime reports whether the query places no effective lower or upper
// date bound, so a fetch for it covers every activity the source has.
func (q Query) AllTime() bool {
	if q.Year != 0 || !q.Before.IsZero() {
		return false
	}
	return q.After.IsZero() || !q.After.After(allTimeFloor)
}

// Bounds resolves the query to a concrete inclusive date window for an
// upstream range fetch. The zero end time means "now".
func (q Query) Bounds() (start, end time.Time) {
	if !q.Before.IsZero() || !q.After.IsZero() {
		return q.After, q.Before
	}
	if q.Year != 0 {
		if q.Month != 0 {
			start = time.Date(q.Year, time.Month(q.Month), 1, 0, 0, 0, 0, time.UTC)
			end = start.AddDate(0, 1, 0).Add(-time.Second)
			return start, end
		}
		start = time.Date(q.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(q.Year, time.December, 31, 23, 59, 59, 0, time.UTC)
		return start, end
	}
	return time.Time{}, time.Time{}
}

// Matches reports whether a single activity satisfies every filter the
// query carries, date bounds included.
func (q Query) Matches(a Activity) bool {
	if q.Type != "" && a.Type != q.Type {
		return false
	}
	if !q.IncludePrivate && a.Private {
		return false
	}
	t := a.StartDateLocal
	if !q.Before.IsZero() && t.After(q.Before) {
		return false
	}
	if !q.After.IsZero() && t.Before(q.After) {
		return false
	}
	// Year and Month only apply when explicit bounds do not override.
	if q.Before.IsZero() && q.After.IsZero() && q.Year != 0 {
		if t.Year() != q.Year {
			return false
		}
		if q.Month != 0 && int(t.Month()) != q.Month {
			return false
		}
	}
	return true
}

// Filter returns the subset of records matching the query, preserving
// order.
func (q Query) Filter(records []Activity) []Activity {
	out := make([]Activity, 0, len(records))
	for _, a := range records {
		if q.Matches(a) {
			out = append(out, a)
		}
	}
	return out
}
