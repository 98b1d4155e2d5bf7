package activities

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Fetcher resolves queries against the cache first and the upstream
// source only on a miss. Lap fetches always go upstream.
type Fetcher struct {
	source Source
	store  Store
	logger *slog.Logger
}

func NewFetcher(source Source, store Store, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{source: source, store: store, logger: logger}
}

// Activities returns the records matching q, consulting the cache
// before the source. On a miss the raw upstream result is written back
// so overlapping queries can be served without another fetch.
func (f *Fetcher) Activities(ctx context.Context, q Query) ([]Activity, error) {
	if records, ok := f.store.Get(q); ok {
		f.logger.Debug("cache hit", "query", q.Fingerprint(), "count", len(records))
		return records, nil
	}

	var (
		raw []Activity
		err error
	)
	if q.AllTime() {
		f.logger.Debug("fetching all activities", "query", q.Fingerprint())
		raw, err = f.source.FetchAllActivities(ctx)
	} else {
		start, end := q.Bounds()
		var after, before int64
		if !start.IsZero() {
			after = start.Unix()
		}
		if end.IsZero() {
			before = time.Now().Unix()
		} else {
			before = end.Unix()
		}
		f.logger.Debug("fetching activity range", "query", q.Fingerprint(), "after", after, "before", before)
		raw, err = f.source.FetchActivitiesByDateRange(ctx, after, before)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching activities: %w", err)
	}

	f.store.Set(q, raw)
	return q.Filter(raw), nil
}

// Laps returns the lap splits for one activity. Lap data is small and
// activity-specific, so it bypasses the cache entirely.
func (f *Fetcher) Laps(ctx context.Context, activityID int64) ([]Lap, error) {
	laps, err := f.source.FetchActivityLaps(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("fetching laps for activity %d: %w", activityID, err)
	}
	return laps, nil
}
