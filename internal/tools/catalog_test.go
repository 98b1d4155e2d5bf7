package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/runlens/runlens/internal/activities"
	"github.com/runlens/runlens/internal/analytics"
	"github.com/runlens/runlens/internal/cache"
)

// fakeSource is an in-memory activity source that counts fetches.
type fakeSource struct {
	records    []activities.Activity
	laps       map[int64][]activities.Lap
	lapErr     map[int64]error
	fetchCalls int
}

func (s *fakeSource) FetchAllActivities(context.Context) ([]activities.Activity, error) {
	s.fetchCalls++
	return s.records, nil
}

func (s *fakeSource) FetchActivitiesByDateRange(_ context.Context, after, before int64) ([]activities.Activity, error) {
	s.fetchCalls++
	var out []activities.Activity
	for _, a := range s.records {
		ts := a.StartDateLocal.Unix()
		if ts >= after && ts <= before {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeSource) FetchActivityLaps(_ context.Context, id int64) ([]activities.Lap, error) {
	if err := s.lapErr[id]; err != nil {
		return nil, err
	}
	return s.laps[id], nil
}

func newTestRegistry(t *testing.T, source *fakeSource) *Registry {
	t.Helper()
	fetcher := activities.NewFetcher(source, cache.New(time.Hour, 10, nil), nil)
	r := NewRegistry(nil)
	if err := RegisterAll(r, fetcher, nil); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	return r
}

func testActivity(id int64, start time.Time, meters float64, secs int) activities.Activity {
	return activities.Activity{
		ID: id, Name: "Test Run", Type: "Run",
		StartDateLocal: start, Distance: meters, MovingTime: secs,
	}
}

func TestCatalogRegistersAllTools(t *testing.T) {
	r := newTestRegistry(t, &fakeSource{})
	want := []string{
		"get_recent_runs", "get_fastest_runs", "get_longest_runs",
		"get_time_of_day_analysis", "get_day_of_week_analysis",
		"get_title_analysis", "get_activity_gaps", "get_monthly_load",
		"get_double_days", "get_lap_analysis", "get_target_distance_laps",
	}
	names := r.Names()
	if len(names) != len(want) {
		t.Fatalf("got %d tools, want %d: %v", len(names), len(want), names)
	}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("tool %d = %s, want %s", i, names[i], n)
		}
	}
}

func TestFastestRunsPayload(t *testing.T) {
	source := &fakeSource{records: []activities.Activity{
		testActivity(1, time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC), 2*analytics.MetersPerMile, 900),
		testActivity(2, time.Date(2025, 3, 2, 7, 0, 0, 0, time.UTC), analytics.MetersPerMile, 360),
	}}
	r := newTestRegistry(t, source)

	payload, _ := r.Execute(context.Background(), "get_fastest_runs", map[string]any{})
	var got rankedRunsPayload
	if err := json.Unmarshal([]byte(payload), &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.Count != 2 {
		t.Fatalf("count = %d, want 2", got.Count)
	}
	if got.Runs[0].Rank != 1 || got.Runs[0].ID != 2 || got.Runs[0].Pace != "6:00" {
		t.Errorf("top run wrong: %+v", got.Runs[0])
	}
	if got.Runs[1].Pace != "7:30" {
		t.Errorf("second pace = %s, want 7:30", got.Runs[1].Pace)
	}
}

func TestSecondCallServedFromCache(t *testing.T) {
	source := &fakeSource{records: []activities.Activity{
		testActivity(1, time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC), 5000, 1500),
	}}
	r := newTestRegistry(t, source)

	r.Execute(context.Background(), "get_recent_runs", map[string]any{})
	r.Execute(context.Background(), "get_longest_runs", map[string]any{})
	if source.fetchCalls != 1 {
		t.Errorf("fetch calls = %d, want 1 (second query should hit the superset)", source.fetchCalls)
	}
}

func TestYearFilterArgument(t *testing.T) {
	source := &fakeSource{records: []activities.Activity{
		testActivity(1, time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC), 5000, 1500),
		testActivity(2, time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC), 5000, 1500),
	}}
	r := newTestRegistry(t, source)

	payload, _ := r.Execute(context.Background(), "get_recent_runs", map[string]any{"year": float64(2025)})
	var got rankedRunsPayload
	if err := json.Unmarshal([]byte(payload), &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.Count != 1 || got.Runs[0].ID != 2 {
		t.Errorf("year filter not applied: %+v", got)
	}
}

func TestLapAnalysisTool(t *testing.T) {
	source := &fakeSource{
		laps: map[int64][]activities.Lap{
			42: {
				{ActivityID: 42, LapIndex: 1, Distance: analytics.MetersPerMile, MovingTime: 360},
				{ActivityID: 42, LapIndex: 2, Distance: analytics.MetersPerMile, MovingTime: 400},
			},
		},
	}
	r := newTestRegistry(t, source)

	payload, _ := r.Execute(context.Background(), "get_lap_analysis", map[string]any{"activity_id": float64(42)})
	var got analytics.LapResult
	if err := json.Unmarshal([]byte(payload), &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.ActivityID != 42 || len(got.Laps) != 2 {
		t.Fatalf("lap result wrong: %+v", got)
	}
	if got.Fastest.LapIndex != 1 {
		t.Errorf("fastest lap = %d, want 1", got.Fastest.LapIndex)
	}
}

func TestTargetLapsSkipsFailingActivities(t *testing.T) {
	source := &fakeSource{
		records: []activities.Activity{
			testActivity(1, time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC), 5*analytics.MetersPerMile, 4000),
			testActivity(2, time.Date(2025, 3, 2, 7, 0, 0, 0, time.UTC), 5*analytics.MetersPerMile, 4000),
		},
		laps: map[int64][]activities.Lap{
			1: {{ActivityID: 1, LapIndex: 1, Distance: analytics.MetersPerMile, MovingTime: 370}},
		},
		lapErr: map[int64]error{2: errors.New("upstream timeout")},
	}
	r := newTestRegistry(t, source)

	payload, _ := r.Execute(context.Background(), "get_target_distance_laps",
		map[string]any{"target_miles": 1.0})
	var got analytics.TargetLapsResult
	if err := json.Unmarshal([]byte(payload), &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.Matched != 1 || got.Laps[0].ActivityID != 1 {
		t.Errorf("expected the surviving activity's lap, got %+v", got)
	}
}

func TestMissingRequiredTargetMiles(t *testing.T) {
	r := newTestRegistry(t, &fakeSource{})
	payload, isErr := r.Execute(context.Background(), "get_target_distance_laps", map[string]any{})
	if !isErr {
		t.Error("missing required argument not flagged as error")
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(payload), &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got["error"] == nil {
		t.Errorf("expected validation error payload, got %v", got)
	}
}

func TestMonthWithoutYearRejected(t *testing.T) {
	source := &fakeSource{records: []activities.Activity{
		testActivity(1, time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC), 5000, 1500),
	}}
	r := newTestRegistry(t, source)

	payload, isErr := r.Execute(context.Background(), "get_recent_runs", map[string]any{"month": float64(6)})
	if !isErr {
		t.Error("month without year not flagged as error")
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(payload), &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	msg, _ := got["error"].(string)
	if !strings.Contains(msg, "month") || !strings.Contains(msg, "year") {
		t.Errorf("error = %q, want a month-requires-year message", msg)
	}
}
