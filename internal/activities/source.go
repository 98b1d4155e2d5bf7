package activities

import "context"

// Source is the upstream activity provider. Implementations fetch over
// the network; the Fetcher decides when a fetch is actually needed.
type Source interface {
	// FetchAllActivities returns every activity on the account, newest
	// first.
	FetchAllActivities(ctx context.Context) ([]Activity, error)

	// FetchActivitiesByDateRange returns activities whose local start
	// falls inside [start, end], newest first. A zero end means now.
	FetchActivitiesByDateRange(ctx context.Context, start, end int64) ([]Activity, error)

	// FetchActivityLaps returns the lap splits of one activity.
	FetchActivityLaps(ctx context.Context, activityID int64) ([]Lap, error)
}

// Store is the read-through cache the Fetcher consults before going
// upstream. A Get hit returns records already filtered for the query.
type Store interface {
	Get(q Query) ([]Activity, bool)
	Set(q Query, records []Activity)
}
