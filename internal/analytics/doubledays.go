package analytics

import "sort"

// DoubleDay is one date carrying two or more runs.
type DoubleDay struct {
	Date         string   `json:"date"`
	Runs         int      `json:"runs"`
	Summaries    []string `json:"summaries"`
	FirstPace    string   `json:"first_pace"`
	SecondPace   string   `json:"second_pace"`
	TotalMiles   float64  `json:"total_distance_miles"`
	HoursBetween float64  `json:"hours_between"`
}

// DoubleDayResult reports multi-run days and how the day after one
// compares to normal training.
type DoubleDayResult struct {
	TotalRuns          int            `json:"total_runs"`
	DoubleDays         []DoubleDay    `json:"double_days"`
	AvgFirstPace       string         `json:"avg_first_pace"`
	AvgSecondPace      string         `json:"avg_second_pace"`
	AvgFirstMiles      float64        `json:"avg_first_distance_miles"`
	AvgSecondMiles     float64        `json:"avg_second_distance_miles"`
	AvgHoursBetween    float64        `json:"avg_hours_between"`
	ByMonth            map[string]int `json:"by_month"`
	ByWeekday          map[string]int `json:"by_weekday"`
	BaselinePace       string         `json:"baseline_pace"`
	BaselineMiles      float64        `json:"baseline_avg_distance_miles"`
	NextDayRuns        int            `json:"next_day_runs"`
	NextDayPace        string         `json:"next_day_pace"`
	NextDayMiles       float64        `json:"next_day_avg_distance_miles"`
	NextDayPaceVsBase  float64        `json:"next_day_pace_vs_baseline_percent"`
	NextDayMilesVsBase float64        `json:"next_day_distance_vs_baseline_percent"`
	HasDoubleDays      bool           `json:"has_double_days"`
}

// AnalyzeDoubleDays finds dates with two or more runs, ordered by start
// time within the day, and measures recovery: next-day pace and
// distance against a baseline that excludes both double days and the
// days after them.
func AnalyzeDoubleDays(runs []Run) DoubleDayResult {
	result := DoubleDayResult{TotalRuns: len(runs)}
	if len(runs) == 0 {
		return result
	}

	byDate := make(map[string][]Run)
	for _, r := range runs {
		key := r.Activity.StartDateLocal.Format("2006-01-02")
		byDate[key] = append(byDate[key], r)
	}

	doubleDates := make(map[string]bool)
	nextDates := make(map[string]bool)
	var firstPaces, secondPaces, gaps []float64
	var firstMiles, secondMiles []float64
	byMonth := make(map[string]int)
	byWeekday := make(map[string]int)
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	for _, d := range dates {
		day := byDate[d]
		if len(day) < 2 {
			continue
		}
		sort.SliceStable(day, func(i, j int) bool {
			return day[i].Activity.StartDateLocal.Before(day[j].Activity.StartDateLocal)
		})
		doubleDates[d] = true
		next := day[0].Activity.StartDateLocal.AddDate(0, 0, 1).Format("2006-01-02")
		nextDates[next] = true

		firstPaces = append(firstPaces, day[0].PaceSeconds)
		secondPaces = append(secondPaces, day[1].PaceSeconds)
		firstMiles = append(firstMiles, day[0].Miles)
		secondMiles = append(secondMiles, day[1].Miles)
		between := day[1].Activity.StartDateLocal.Sub(day[0].Activity.StartDateLocal).Hours()
		gaps = append(gaps, between)
		byMonth[day[0].Activity.StartDateLocal.Format("2006-01")]++
		byWeekday[day[0].Activity.StartDateLocal.Weekday().String()]++
		dd := DoubleDay{
			Date:         d,
			Runs:         len(day),
			FirstPace:    FormatPace(day[0].PaceSeconds),
			SecondPace:   FormatPace(day[1].PaceSeconds),
			TotalMiles:   totalMiles(day),
			HoursBetween: between,
		}
		for _, r := range day {
			dd.Summaries = append(dd.Summaries, r.Summary())
		}
		result.DoubleDays = append(result.DoubleDays, dd)
	}

	result.HasDoubleDays = len(result.DoubleDays) > 0
	result.AvgFirstPace = FormatPace(mean(firstPaces))
	result.AvgSecondPace = FormatPace(mean(secondPaces))
	result.AvgFirstMiles = mean(firstMiles)
	result.AvgSecondMiles = mean(secondMiles)
	result.AvgHoursBetween = mean(gaps)
	if result.HasDoubleDays {
		result.ByMonth = byMonth
		result.ByWeekday = byWeekday
	}

	var baseline, nextDay []Run
	for _, d := range dates {
		switch {
		case doubleDates[d]:
		case nextDates[d]:
			nextDay = append(nextDay, byDate[d]...)
		default:
			baseline = append(baseline, byDate[d]...)
		}
	}

	basePace := averagePace(baseline)
	nextPace := averagePace(nextDay)
	result.BaselinePace = FormatPace(basePace)
	result.NextDayRuns = len(nextDay)
	result.NextDayPace = FormatPace(nextPace)
	if len(baseline) > 0 {
		result.BaselineMiles = totalMiles(baseline) / float64(len(baseline))
	}
	if len(nextDay) > 0 {
		result.NextDayMiles = totalMiles(nextDay) / float64(len(nextDay))
	}
	if basePace > 0 && nextPace > 0 {
		result.NextDayPaceVsBase = percentChange(basePace, nextPace)
	}
	if result.BaselineMiles > 0 && result.NextDayMiles > 0 {
		result.NextDayMilesVsBase = percentChange(result.BaselineMiles, result.NextDayMiles)
	}
	return result
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var total float64
	for _, v := range vals {
		total += v
	}
	return total / float64(len(vals))
}
