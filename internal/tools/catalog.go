package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/runlens/runlens/internal/activities"
	"github.com/runlens/runlens/internal/analytics"
)

// Catalog wires every analytics tool against the activity fetcher.
type Catalog struct {
	fetcher *activities.Fetcher
	logger  *slog.Logger
}

// RegisterAll registers the full analytics catalog on a registry.
func RegisterAll(r *Registry, fetcher *activities.Fetcher, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{fetcher: fetcher, logger: logger}
	for _, t := range c.tools() {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) tools() []Tool {
	return []Tool{
		{
			Name:        "get_recent_runs",
			Description: "List the most recent runs, newest first, with distance, time, and pace.",
			Params:      append(dateFilterParams(), limitParam()),
			Handler:     c.recentRuns,
		},
		{
			Name:        "get_fastest_runs",
			Description: "Rank runs by pace, fastest first. Pace is moving time per mile.",
			Params:      append(dateFilterParams(), limitParam()),
			Handler:     c.fastestRuns,
		},
		{
			Name:        "get_longest_runs",
			Description: "Rank runs by distance, longest first.",
			Params:      append(dateFilterParams(), limitParam()),
			Handler:     c.longestRuns,
		},
		{
			Name:        "get_time_of_day_analysis",
			Description: "Break runs down by time of day (early morning through night) with counts and average pace per bucket.",
			Params:      dateFilterParams(),
			Handler:     c.timeOfDay,
		},
		{
			Name:        "get_day_of_week_analysis",
			Description: "Break runs down by day of the week, including weekday versus weekend consistency.",
			Params:      dateFilterParams(),
			Handler:     c.dayOfWeek,
		},
		{
			Name:        "get_title_analysis",
			Description: "Analyze run titles: how many are custom-named and which words, feelings, and places recur.",
			Params:      dateFilterParams(),
			Handler:     c.titles,
		},
		{
			Name:        "get_activity_gaps",
			Description: "Find breaks in training of at least a threshold number of days between consecutive runs.",
			Params: append(dateFilterParams(), ParamSpec{
				Name: "threshold_days", Type: "integer",
				Description: "Minimum break length in days to report.",
				Default:     analytics.DefaultGapThreshold, Minimum: ptr(2),
			}),
			Handler: c.gaps,
		},
		{
			Name:        "get_monthly_load",
			Description: "Aggregate training load by calendar month and flag mileage ramp-ups over ten percent.",
			Params:      dateFilterParams(),
			Handler:     c.monthlyLoad,
		},
		{
			Name:        "get_double_days",
			Description: "Find days with two or more runs and compare next-day pace to baseline training.",
			Params:      dateFilterParams(),
			Handler:     c.doubleDays,
		},
		{
			Name:        "get_lap_analysis",
			Description: "Analyze the lap splits of one activity: per-lap pace, fastest and slowest laps.",
			Params: []ParamSpec{
				{Name: "activity_id", Type: "integer", Description: "The activity to analyze.", Required: true},
			},
			Handler: c.lapAnalysis,
		},
		{
			Name:        "get_target_distance_laps",
			Description: "Find laps close to a target distance across runs and rank them by pace. Useful for repeat-interval questions.",
			Params: append(dateFilterParams(),
				ParamSpec{Name: "target_miles", Type: "number", Description: "Target lap distance in miles.", Required: true, Minimum: ptr(0.1)},
				limitParam(),
			),
			Handler: c.targetLaps,
		},
	}
}

func limitParam() ParamSpec {
	return ParamSpec{
		Name: "limit", Type: "integer",
		Description: "Maximum number of results to return.",
		Default:     10, Minimum: ptr(1), Maximum: ptr(50),
	}
}

// rankedRun is the payload shape for ranking tools.
type rankedRun struct {
	Rank          int     `json:"rank"`
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Date          string  `json:"date"`
	DistanceMiles float64 `json:"distance_miles"`
	MovingTime    string  `json:"moving_time"`
	Pace          string  `json:"pace"`
	Summary       string  `json:"summary"`
}

type rankedRunsPayload struct {
	Count int         `json:"count"`
	Runs  []rankedRun `json:"runs"`
}

func rankRuns(runs []analytics.Run) rankedRunsPayload {
	payload := rankedRunsPayload{Count: len(runs), Runs: make([]rankedRun, 0, len(runs))}
	for i, r := range runs {
		payload.Runs = append(payload.Runs, rankedRun{
			Rank:          i + 1,
			ID:            r.Activity.ID,
			Name:          r.Activity.Name,
			Date:          r.Activity.StartDateLocal.Format("2006-01-02"),
			DistanceMiles: r.Miles,
			MovingTime:    analytics.FormatDuration(r.Activity.MovingTime),
			Pace:          analytics.FormatPace(r.PaceSeconds),
			Summary:       r.Summary(),
		})
	}
	return payload
}

// fetchRuns resolves the shared date filter and applies the run
// filter.
func (c *Catalog) fetchRuns(ctx context.Context, tool string, args map[string]any) ([]analytics.Run, error) {
	q, err := queryFromArgs(tool, args)
	if err != nil {
		return nil, err
	}
	records, err := c.fetcher.Activities(ctx, q)
	if err != nil {
		return nil, err
	}
	return analytics.FilterRuns(records), nil
}

func intArg(args map[string]any, name string) int {
	v, _ := args[name].(int)
	return v
}

func (c *Catalog) recentRuns(ctx context.Context, args map[string]any) (any, error) {
	runs, err := c.fetchRuns(ctx, "get_recent_runs", args)
	if err != nil {
		return nil, err
	}
	return rankRuns(analytics.RecentRuns(runs, intArg(args, "limit"))), nil
}

func (c *Catalog) fastestRuns(ctx context.Context, args map[string]any) (any, error) {
	runs, err := c.fetchRuns(ctx, "get_fastest_runs", args)
	if err != nil {
		return nil, err
	}
	return rankRuns(analytics.FastestRuns(runs, intArg(args, "limit"))), nil
}

func (c *Catalog) longestRuns(ctx context.Context, args map[string]any) (any, error) {
	runs, err := c.fetchRuns(ctx, "get_longest_runs", args)
	if err != nil {
		return nil, err
	}
	return rankRuns(analytics.LongestRuns(runs, intArg(args, "limit"))), nil
}

func (c *Catalog) timeOfDay(ctx context.Context, args map[string]any) (any, error) {
	runs, err := c.fetchRuns(ctx, "get_time_of_day_analysis", args)
	if err != nil {
		return nil, err
	}
	return analytics.AnalyzeTimeOfDay(runs), nil
}

func (c *Catalog) dayOfWeek(ctx context.Context, args map[string]any) (any, error) {
	runs, err := c.fetchRuns(ctx, "get_day_of_week_analysis", args)
	if err != nil {
		return nil, err
	}
	return analytics.AnalyzeWeekdays(runs), nil
}

func (c *Catalog) titles(ctx context.Context, args map[string]any) (any, error) {
	runs, err := c.fetchRuns(ctx, "get_title_analysis", args)
	if err != nil {
		return nil, err
	}
	return analytics.AnalyzeTitles(runs), nil
}

func (c *Catalog) gaps(ctx context.Context, args map[string]any) (any, error) {
	runs, err := c.fetchRuns(ctx, "get_activity_gaps", args)
	if err != nil {
		return nil, err
	}
	return analytics.FindGaps(runs, intArg(args, "threshold_days")), nil
}

func (c *Catalog) monthlyLoad(ctx context.Context, args map[string]any) (any, error) {
	runs, err := c.fetchRuns(ctx, "get_monthly_load", args)
	if err != nil {
		return nil, err
	}
	return analytics.AnalyzeMonthlyLoad(runs), nil
}

func (c *Catalog) doubleDays(ctx context.Context, args map[string]any) (any, error) {
	runs, err := c.fetchRuns(ctx, "get_double_days", args)
	if err != nil {
		return nil, err
	}
	return analytics.AnalyzeDoubleDays(runs), nil
}

func (c *Catalog) lapAnalysis(ctx context.Context, args map[string]any) (any, error) {
	id := int64(intArg(args, "activity_id"))
	laps, err := c.fetcher.Laps(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("activity %d: %w", id, err)
	}
	return analytics.AnalyzeLaps(id, laps), nil
}

func (c *Catalog) targetLaps(ctx context.Context, args map[string]any) (any, error) {
	runs, err := c.fetchRuns(ctx, "get_target_distance_laps", args)
	if err != nil {
		return nil, err
	}

	// Per-activity lap failures are logged and skipped so one bad
	// activity cannot sink the whole answer.
	var all []activities.Lap
	for _, r := range runs {
		laps, err := c.fetcher.Laps(ctx, r.Activity.ID)
		if err != nil {
			c.logger.Warn("skipping laps for activity", "activity_id", r.Activity.ID, "error", err)
			continue
		}
		all = append(all, laps...)
	}

	target, _ := args["target_miles"].(float64)
	return analytics.FindTargetDistanceLaps(all, target, intArg(args, "limit")), nil
}
