package analytics

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/runlens/runlens/internal/activities"
)

func act(id int64, typ string, start time.Time, meters float64, movingSecs int) activities.Activity {
	return activities.Activity{
		ID:             id,
		Name:           "Test Activity",
		Type:           typ,
		StartDateLocal: start,
		Distance:       meters,
		MovingTime:     movingSecs,
	}
}

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func TestFilterRuns(t *testing.T) {
	records := []activities.Activity{
		act(1, "Run", day(2025, 3, 1, 7), 5000, 1500),
		act(2, "Ride", day(2025, 3, 2, 7), 20000, 3600),
		act(3, "TrailRun", day(2025, 3, 3, 7), 8000, 3000),
		act(4, "VirtualRun", day(2025, 3, 4, 7), 5000, 1500),
		act(5, "Run", day(2025, 3, 5, 7), 5000, 120),  // too short in time
		act(6, "Run", day(2025, 3, 6, 7), 1000, 1500), // under a mile
	}

	runs := FilterRuns(records)
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	for _, r := range runs {
		if r.Activity.ID == 2 || r.Activity.ID == 5 || r.Activity.ID == 6 {
			t.Errorf("activity %d should have been filtered out", r.Activity.ID)
		}
	}
}

func TestPaceDerivation(t *testing.T) {
	runs := FilterRuns([]activities.Activity{
		act(1, "Run", day(2025, 3, 1, 7), MetersPerMile, 360),
	})
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if got := runs[0].PaceSeconds; math.Abs(got-360) > 0.01 {
		t.Errorf("pace = %.2f s/mi, want 360", got)
	}
}

func TestFormatPace(t *testing.T) {
	cases := []struct {
		secs float64
		want string
	}{
		{360, "6:00"},
		{512, "8:32"},
		{479.6, "8:00"}, // 7:59.6 rounds up and carries the minute
		{59.4, "0:59"},
		{0, "0:00"},
		{-5, "0:00"},
	}
	for _, c := range cases {
		if got := FormatPace(c.secs); got != c.want {
			t.Errorf("FormatPace(%.1f) = %q, want %q", c.secs, got, c.want)
		}
	}
}

func TestFastestRunsOrdering(t *testing.T) {
	// Two-mile run at 7:30/mi versus one-mile run at 6:00/mi. Despite
	// the longer run's bigger total time, the shorter run has the
	// lower pace and ranks first.
	runs := FilterRuns([]activities.Activity{
		act(1, "Run", day(2025, 3, 1, 7), 3218.688, 900),
		act(2, "Run", day(2025, 3, 2, 7), MetersPerMile, 360),
	})

	fastest := FastestRuns(runs, 10)
	if len(fastest) != 2 {
		t.Fatalf("got %d runs, want 2", len(fastest))
	}
	if fastest[0].Activity.ID != 2 {
		t.Errorf("fastest run is %d, want 2", fastest[0].Activity.ID)
	}
	if got := FormatPace(fastest[0].PaceSeconds); got != "6:00" {
		t.Errorf("fastest pace = %q, want 6:00", got)
	}
	if got := FormatPace(fastest[1].PaceSeconds); got != "7:30" {
		t.Errorf("second pace = %q, want 7:30", got)
	}
}

func TestLongestAndRecentRuns(t *testing.T) {
	runs := FilterRuns([]activities.Activity{
		act(1, "Run", day(2025, 3, 1, 7), 5000, 1500),
		act(2, "Run", day(2025, 3, 10, 7), 10000, 3100),
		act(3, "Run", day(2025, 3, 5, 7), 8000, 2500),
	})

	longest := LongestRuns(runs, 2)
	if len(longest) != 2 || longest[0].Activity.ID != 2 || longest[1].Activity.ID != 3 {
		t.Errorf("longest order wrong: %+v", longest)
	}

	recent := RecentRuns(runs, 2)
	if len(recent) != 2 || recent[0].Activity.ID != 2 || recent[1].Activity.ID != 3 {
		t.Errorf("recent order wrong: %+v", recent)
	}
}

func TestTimeOfDayBuckets(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{4, BucketEarlyMorning},
		{7, BucketEarlyMorning},
		{8, BucketMorning},
		{11, BucketMorning},
		{12, BucketAfternoon},
		{16, BucketAfternoon},
		{17, BucketEvening},
		{20, BucketEvening},
		{21, BucketNight},
		{23, BucketNight},
		{0, BucketNight},
		{3, BucketNight},
	}
	for _, c := range cases {
		if got := TimeOfDayBucket(day(2025, 3, 1, c.hour)); got != c.want {
			t.Errorf("hour %d bucketed as %q, want %q", c.hour, got, c.want)
		}
	}
}

func TestAnalyzeTimeOfDayFavorite(t *testing.T) {
	runs := FilterRuns([]activities.Activity{
		act(1, "Run", day(2025, 3, 1, 6), 5000, 1500),
		act(2, "Run", day(2025, 3, 2, 6), 5000, 1500),
		act(3, "Run", day(2025, 3, 3, 18), 5000, 1500),
	})

	result := AnalyzeTimeOfDay(runs)
	if result.Favorite != BucketEarlyMorning {
		t.Errorf("favorite = %q, want %q", result.Favorite, BucketEarlyMorning)
	}
	if len(result.Buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(result.Buckets))
	}
	if result.Buckets[0].Runs != 2 || math.Abs(result.Buckets[0].Percent-66.67) > 0.1 {
		t.Errorf("early morning stats wrong: %+v", result.Buckets[0])
	}
	if math.Abs(result.Buckets[0].TotalMiles-10000/MetersPerMile) > 0.001 {
		t.Errorf("early morning total = %.2f miles, want %.2f", result.Buckets[0].TotalMiles, 10000/MetersPerMile)
	}
}

func TestAnalyzeWeekdaysWeekendRunner(t *testing.T) {
	// Two weeks: one weekday run, four weekend runs.
	runs := FilterRuns([]activities.Activity{
		act(1, "Run", day(2025, 3, 4, 7), 5000, 1500),  // Tue
		act(2, "Run", day(2025, 3, 1, 8), 5000, 1500),  // Sat
		act(3, "Run", day(2025, 3, 2, 8), 5000, 1500),  // Sun
		act(4, "Run", day(2025, 3, 8, 8), 5000, 1500),  // Sat
		act(5, "Run", day(2025, 3, 9, 8), 5000, 1500),  // Sun
	})

	result := AnalyzeWeekdays(runs)
	if result.WeekdayRuns != 1 || result.WeekendRuns != 4 {
		t.Fatalf("split = %d weekday / %d weekend, want 1/4", result.WeekdayRuns, result.WeekendRuns)
	}
	if !result.WeekendRunner {
		t.Error("expected weekend runner classification")
	}
	// Span is 9 days, two weeks rounded up.
	if math.Abs(result.WeekendConsistency-100) > 0.1 {
		t.Errorf("weekend consistency = %.1f, want 100", result.WeekendConsistency)
	}
	if math.Abs(result.WeekdayConsistency-10) > 0.1 {
		t.Errorf("weekday consistency = %.1f, want 10", result.WeekdayConsistency)
	}
	for _, d := range result.Days {
		want := 50.0 // one run across two weeks
		if d.Day == "Saturday" || d.Day == "Sunday" {
			want = 100
		}
		if math.Abs(d.Consistency-want) > 0.1 {
			t.Errorf("%s consistency = %.1f, want %.0f", d.Day, d.Consistency, want)
		}
	}
	// Saturday ties Sunday at 100%; the earlier day in week order wins.
	if result.MostConsistentDay != "Sunday" {
		t.Errorf("most consistent day = %q, want Sunday", result.MostConsistentDay)
	}
	if len(result.PreferredDays) != 3 || result.PreferredDays[0] != "Sunday" || result.PreferredDays[1] != "Saturday" {
		t.Errorf("preferred days = %v", result.PreferredDays)
	}
	if result.LeastActiveDay != "Tuesday" {
		t.Errorf("least active day = %q, want Tuesday", result.LeastActiveDay)
	}
}

func TestAnalyzeWeekdaysEmpty(t *testing.T) {
	result := AnalyzeWeekdays(nil)
	if result.TotalRuns != 0 || result.WeekendRunner {
		t.Errorf("empty input should yield zero result, got %+v", result)
	}
}

func TestAnalyzeTitles(t *testing.T) {
	mk := func(id int64, name string) activities.Activity {
		a := act(id, "Run", day(2025, 3, int(id), 7), 5000, 1500)
		a.Name = name
		return a
	}
	runs := FilterRuns([]activities.Activity{
		mk(1, "Morning Run"),
		mk(2, "Evening Run"),
		mk(3, "Great trail run in the park"),
		mk(4, "Tough hill repeats at the park"),
	})

	result := AnalyzeTitles(runs)
	if result.CustomTitles != 2 {
		t.Fatalf("custom titles = %d, want 2", result.CustomTitles)
	}
	if math.Abs(result.CustomPercent-50) > 0.001 {
		t.Errorf("custom percent = %.1f, want 50", result.CustomPercent)
	}
	if len(result.TopWords) == 0 || result.TopWords[0].Word != "park" || result.TopWords[0].Count != 2 {
		t.Errorf("top word wrong: %+v", result.TopWords)
	}
	foundEmotion := map[string]bool{}
	for _, w := range result.EmotionWords {
		foundEmotion[w.Word] = true
	}
	if !foundEmotion["great"] || !foundEmotion["tough"] {
		t.Errorf("emotion words wrong: %+v", result.EmotionWords)
	}
	foundLocation := map[string]bool{}
	for _, w := range result.LocationWords {
		foundLocation[w.Word] = true
	}
	if !foundLocation["park"] || !foundLocation["trail"] {
		t.Errorf("location words wrong: %+v", result.LocationWords)
	}
	if result.PositiveTitles != 1 || result.NegativeTitles != 1 || result.NeutralTitles != 0 {
		t.Errorf("sentiment = %d/%d/%d, want 1/1/0",
			result.PositiveTitles, result.NegativeTitles, result.NeutralTitles)
	}
}

func TestTitleSentimentMixedIsNeutral(t *testing.T) {
	mk := func(id int64, name string) activities.Activity {
		a := act(id, "Run", day(2025, 3, int(id), 7), 5000, 1500)
		a.Name = name
		return a
	}
	runs := FilterRuns([]activities.Activity{
		mk(1, "Tough but great tempo"), // both kinds of emotion words
		mk(2, "Tuesday easy shakeout"),
		mk(3, "Brutal long one"),
		mk(4, "Bridge loop"), // no emotion words
	})

	result := AnalyzeTitles(runs)
	if result.PositiveTitles != 1 {
		t.Errorf("positive titles = %d, want 1", result.PositiveTitles)
	}
	if result.NegativeTitles != 1 {
		t.Errorf("negative titles = %d, want 1", result.NegativeTitles)
	}
	if result.NeutralTitles != 2 {
		t.Errorf("neutral titles = %d, want 2", result.NeutralTitles)
	}
}

func TestFindGaps(t *testing.T) {
	runs := FilterRuns([]activities.Activity{
		act(1, "Run", day(2025, 1, 1, 7), 5000, 1500),
		act(2, "Run", day(2025, 1, 5, 7), 5000, 1500),
		act(3, "Run", day(2025, 1, 25, 7), 5000, 1500), // 20-day gap, same distance
		act(4, "Run", day(2025, 3, 1, 7), 10000, 3100), // 35-day gap, double distance
	})

	result := FindGaps(runs, 0)
	if result.ThresholdDays != DefaultGapThreshold {
		t.Errorf("threshold = %d, want %d", result.ThresholdDays, DefaultGapThreshold)
	}
	if len(result.Gaps) != 2 {
		t.Fatalf("got %d gaps, want 2", len(result.Gaps))
	}
	if result.Gaps[0].Days != 20 || result.Gaps[1].Days != 35 {
		t.Errorf("gap lengths = %d, %d, want 20, 35", result.Gaps[0].Days, result.Gaps[1].Days)
	}
	// Same distance across the first gap: no distance remark.
	if !strings.HasPrefix(result.Gaps[0].Description, "20-day break") {
		t.Errorf("description = %q", result.Gaps[0].Description)
	}
	if strings.Contains(result.Gaps[0].Description, "longer") || strings.Contains(result.Gaps[0].Description, "shorter") {
		t.Errorf("unexpected distance remark for stable distance: %q", result.Gaps[0].Description)
	}
	if !strings.Contains(result.Gaps[1].Description, "longer") {
		t.Errorf("expected longer-run remark: %q", result.Gaps[1].Description)
	}
	if math.Abs(result.Gaps[0].DistanceChangePercent) > 0.001 {
		t.Errorf("stable distance delta = %.1f, want 0", result.Gaps[0].DistanceChangePercent)
	}
	if math.Abs(result.Gaps[1].DistanceChangePercent-100) > 0.001 {
		t.Errorf("distance delta = %.1f, want 100", result.Gaps[1].DistanceChangePercent)
	}
	if result.Gaps[1].PaceChangeSecs <= 0 {
		t.Errorf("slower return should have positive pace change, got %.1f", result.Gaps[1].PaceChangeSecs)
	}
	// A 3% pace drift stays below the description threshold.
	if strings.Contains(result.Gaps[1].Description, "came back") {
		t.Errorf("unexpected pace remark for small drift: %q", result.Gaps[1].Description)
	}
}

func TestFindGapsPaceRemark(t *testing.T) {
	// Same distance across the gap but a 20% faster return.
	runs := FilterRuns([]activities.Activity{
		act(1, "Run", day(2025, 1, 1, 7), MetersPerMile, 600),
		act(2, "Run", day(2025, 2, 1, 7), MetersPerMile, 480),
	})

	result := FindGaps(runs, 0)
	if len(result.Gaps) != 1 {
		t.Fatalf("got %d gaps, want 1", len(result.Gaps))
	}
	g := result.Gaps[0]
	if !strings.Contains(g.Description, "came back 20% faster") {
		t.Errorf("expected faster-return remark: %q", g.Description)
	}
	if strings.Contains(g.Description, "longer") || strings.Contains(g.Description, "shorter") {
		t.Errorf("unexpected distance remark for stable distance: %q", g.Description)
	}
	if math.Abs(g.PaceChangeSecs+120) > 0.001 {
		t.Errorf("pace change = %.1f, want -120", g.PaceChangeSecs)
	}
}

func TestAnalyzeMonthlyLoad(t *testing.T) {
	runs := FilterRuns([]activities.Activity{
		act(1, "Run", day(2025, 1, 5, 7), 10*MetersPerMile, 5400),
		act(2, "Run", day(2025, 2, 5, 7), 12*MetersPerMile, 6480),
		act(3, "Run", day(2025, 3, 5, 7), 15*MetersPerMile, 8100),
		act(4, "Run", day(2025, 4, 5, 7), 15*MetersPerMile, 8100),
	})

	result := AnalyzeMonthlyLoad(runs)
	if len(result.Months) != 4 {
		t.Fatalf("got %d months, want 4", len(result.Months))
	}
	if result.Months[0].Flagged {
		t.Error("first observed month has nothing to compare against")
	}
	if !result.Months[1].Flagged || !result.Months[2].Flagged {
		t.Error("20 and 25 percent increases should be flagged")
	}
	if result.Months[3].Flagged {
		t.Error("flat month should not be flagged")
	}
	if len(result.RampPeriods) != 1 {
		t.Fatalf("got %d ramp periods, want 1", len(result.RampPeriods))
	}
	p := result.RampPeriods[0]
	if p.Start != "2025-02" || p.End != "2025-03" || p.Months != 2 {
		t.Errorf("ramp period wrong: %+v", p)
	}
	if math.Abs(p.AvgIncreasePercent-22.5) > 0.001 {
		t.Errorf("mean increase = %.1f, want 22.5", p.AvgIncreasePercent)
	}
}

func TestAnalyzeDoubleDays(t *testing.T) {
	runs := FilterRuns([]activities.Activity{
		act(1, "Run", day(2025, 3, 1, 6), MetersPerMile, 360),    // double day, first
		act(2, "Run", day(2025, 3, 1, 18), MetersPerMile, 420),   // double day, second
		act(3, "Run", day(2025, 3, 2, 7), 2*MetersPerMile, 960),  // next day, twice the distance
		act(4, "Run", day(2025, 3, 10, 7), MetersPerMile, 400),   // baseline
	})

	result := AnalyzeDoubleDays(runs)
	if !result.HasDoubleDays || len(result.DoubleDays) != 1 {
		t.Fatalf("expected one double day, got %+v", result.DoubleDays)
	}
	dd := result.DoubleDays[0]
	if dd.Date != "2025-03-01" || dd.FirstPace != "6:00" || dd.SecondPace != "7:00" {
		t.Errorf("double day wrong: %+v", dd)
	}
	if math.Abs(dd.HoursBetween-12) > 0.001 || math.Abs(result.AvgHoursBetween-12) > 0.001 {
		t.Errorf("hours between = %.1f avg %.1f, want 12", dd.HoursBetween, result.AvgHoursBetween)
	}
	if result.ByWeekday["Saturday"] != 1 || result.ByMonth["2025-03"] != 1 {
		t.Errorf("frequency maps wrong: %+v %+v", result.ByWeekday, result.ByMonth)
	}
	if result.NextDayRuns != 1 || result.NextDayPace != "8:00" {
		t.Errorf("next day stats wrong: %+v", result)
	}
	if result.BaselinePace != "6:40" {
		t.Errorf("baseline pace = %q, want 6:40", result.BaselinePace)
	}
	if math.Abs(dd.TotalMiles-2) > 0.001 {
		t.Errorf("double day total = %.1f miles, want 2", dd.TotalMiles)
	}
	if math.Abs(result.AvgFirstMiles-1) > 0.001 || math.Abs(result.AvgSecondMiles-1) > 0.001 {
		t.Errorf("avg first/second miles = %.1f/%.1f, want 1/1", result.AvgFirstMiles, result.AvgSecondMiles)
	}
	// Next day 480 against baseline 400 is a 20% slowdown.
	if math.Abs(result.NextDayPaceVsBase-20) > 0.001 {
		t.Errorf("next-day pace delta = %.1f%%, want 20%%", result.NextDayPaceVsBase)
	}
	// Next day 2 miles against a 1-mile baseline doubles the distance.
	if math.Abs(result.NextDayMilesVsBase-100) > 0.001 {
		t.Errorf("next-day distance delta = %.1f%%, want 100%%", result.NextDayMilesVsBase)
	}
}

func TestAnalyzeDoubleDaysWithout(t *testing.T) {
	runs := FilterRuns([]activities.Activity{
		act(1, "Run", day(2025, 3, 1, 7), 5000, 1500),
	})
	result := AnalyzeDoubleDays(runs)
	if result.HasDoubleDays {
		t.Error("single runs per day should not register double days")
	}
	if result.AvgFirstPace != "0:00" {
		t.Errorf("empty average should render 0:00, got %q", result.AvgFirstPace)
	}
}

func TestAnalyzeLaps(t *testing.T) {
	laps := []activities.Lap{
		{ActivityID: 9, LapIndex: 1, Distance: MetersPerMile, MovingTime: 360},
		{ActivityID: 9, LapIndex: 2, Distance: MetersPerMile, MovingTime: 390},
		{ActivityID: 9, LapIndex: 3, Distance: MetersPerMile, MovingTime: 330},
		{ActivityID: 9, LapIndex: 4, Distance: 0, MovingTime: 60}, // unpaceable
	}

	result := AnalyzeLaps(9, laps)
	if len(result.Laps) != 3 {
		t.Fatalf("got %d laps, want 3", len(result.Laps))
	}
	if result.Fastest == nil || result.Fastest.LapIndex != 3 {
		t.Errorf("fastest lap wrong: %+v", result.Fastest)
	}
	if result.Slowest == nil || result.Slowest.LapIndex != 2 {
		t.Errorf("slowest lap wrong: %+v", result.Slowest)
	}
	if result.AvgPace != "6:00" {
		t.Errorf("avg pace = %q, want 6:00", result.AvgPace)
	}
}

func TestFindTargetDistanceLaps(t *testing.T) {
	laps := []activities.Lap{
		{ActivityID: 1, LapIndex: 1, Distance: MetersPerMile, MovingTime: 360},
		{ActivityID: 1, LapIndex: 2, Distance: MetersPerMile * 1.04, MovingTime: 400},
		{ActivityID: 2, LapIndex: 1, Distance: MetersPerMile * 1.10, MovingTime: 380},
		{ActivityID: 2, LapIndex: 2, Distance: MetersPerMile * 0.96, MovingTime: 330},
	}

	result := FindTargetDistanceLaps(laps, 1.0, 10)
	if result.Matched != 3 {
		t.Fatalf("matched %d laps, want 3", result.Matched)
	}
	if result.Laps[0].ActivityID != 2 || result.Laps[0].LapIndex != 2 {
		t.Errorf("fastest matched lap wrong: %+v", result.Laps[0])
	}
	for _, l := range result.Laps {
		if l.ActivityID == 2 && l.LapIndex == 1 {
			t.Error("lap 10 percent off target should not match")
		}
	}
}
