package tools

import (
	"time"

	"github.com/runlens/runlens/internal/activities"
)

// dateFilterParams are the filtering parameters shared by every
// activity-backed tool. Explicit before/after bounds override year and
// month.
func dateFilterParams() []ParamSpec {
	return []ParamSpec{
		{Name: "year", Type: "integer", Description: "Restrict to a calendar year, e.g. 2025."},
		{Name: "month", Type: "integer", Description: "Restrict to a month within the year, 1-12. Requires year.",
			Minimum: ptr(1), Maximum: ptr(12)},
		{Name: "before", Type: "string", Description: "Only activities on or before this date, YYYY-MM-DD. Overrides year and month."},
		{Name: "after", Type: "string", Description: "Only activities on or after this date, YYYY-MM-DD. Overrides year and month."},
		{Name: "activity_type", Type: "string", Description: "Restrict to one activity type tag, e.g. Run or TrailRun."},
		{Name: "include_private", Type: "boolean", Description: "Include activities marked private. Defaults to false.",
			Default: false},
	}
}

func ptr(f float64) *float64 { return &f }

// queryFromArgs builds an activity query from validated arguments.
// Date strings are already shape-checked here so handlers never see a
// malformed bound.
func queryFromArgs(tool string, args map[string]any) (activities.Query, error) {
	var q activities.Query
	if y, ok := args["year"].(int); ok {
		q.Year = y
	}
	if m, ok := args["month"].(int); ok {
		q.Month = m
	}
	if q.Month != 0 && q.Year == 0 {
		return q, &ValidationError{Tool: tool, Field: "month", Reason: "requires year"}
	}
	if s, ok := args["before"].(string); ok && s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return q, &ValidationError{Tool: tool, Field: "before", Reason: "expected YYYY-MM-DD"}
		}
		// Inclusive through the end of the named day.
		q.Before = t.Add(24*time.Hour - time.Second)
	}
	if s, ok := args["after"].(string); ok && s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return q, &ValidationError{Tool: tool, Field: "after", Reason: "expected YYYY-MM-DD"}
		}
		q.After = t
	}
	if s, ok := args["activity_type"].(string); ok {
		q.Type = s
	}
	if b, ok := args["include_private"].(bool); ok {
		q.IncludePrivate = b
	}
	return q, nil
}
