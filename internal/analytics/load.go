package analytics

import "sort"

// rampThreshold is the month-over-month mileage increase, in percent,
// flagged as a load jump.
const rampThreshold = 10

// MonthLoad summarizes one calendar month of training.
type MonthLoad struct {
	Month         string  `json:"month"` // YYYY-MM
	Runs          int     `json:"runs"`
	TotalMiles    float64 `json:"total_miles"`
	TotalTime     string  `json:"total_time"`
	AvgPace       string  `json:"avg_pace"`
	ChangePercent float64 `json:"change_percent"`
	Flagged       bool    `json:"flagged"`
}

// RampPeriod is a streak of consecutive flagged months.
type RampPeriod struct {
	Start              string  `json:"start"`
	End                string  `json:"end"`
	Months             int     `json:"months"`
	AvgIncreasePercent float64 `json:"avg_increase_percent"`
}

// LoadResult is the monthly training load report.
type LoadResult struct {
	Months      []MonthLoad  `json:"months"`
	RampPeriods []RampPeriod `json:"ramp_periods"`
}

// AnalyzeMonthlyLoad aggregates runs by calendar month and flags
// mileage jumps over ten percent against the previous observed month.
// Consecutive flagged months form ramp-up periods.
func AnalyzeMonthlyLoad(runs []Run) LoadResult {
	byMonth := make(map[string][]Run)
	for _, r := range runs {
		key := r.Activity.StartDateLocal.Format("2006-01")
		byMonth[key] = append(byMonth[key], r)
	}

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var result LoadResult
	prevMiles := -1.0
	for _, key := range keys {
		rs := byMonth[key]
		var seconds int
		for _, r := range rs {
			seconds += r.Activity.MovingTime
		}
		miles := totalMiles(rs)
		month := MonthLoad{
			Month:      key,
			Runs:       len(rs),
			TotalMiles: miles,
			TotalTime:  FormatDuration(seconds),
			AvgPace:    FormatPace(averagePace(rs)),
		}
		if prevMiles >= 0 {
			month.ChangePercent = percentChange(prevMiles, miles)
			month.Flagged = month.ChangePercent > rampThreshold
		}
		prevMiles = miles
		result.Months = append(result.Months, month)
	}

	result.RampPeriods = rampPeriods(result.Months)
	return result
}

func rampPeriods(months []MonthLoad) []RampPeriod {
	var periods []RampPeriod
	for i := 0; i < len(months); {
		if !months[i].Flagged {
			i++
			continue
		}
		j := i
		sum := months[i].ChangePercent
		for j+1 < len(months) && months[j+1].Flagged {
			j++
			sum += months[j].ChangePercent
		}
		periods = append(periods, RampPeriod{
			Start:              months[i].Month,
			End:                months[j].Month,
			Months:             j - i + 1,
			AvgIncreasePercent: sum / float64(j-i+1),
		})
		i = j + 1
	}
	return periods
}
