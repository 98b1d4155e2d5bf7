package analytics

import (
	"sort"
	"strings"
	"unicode"
)

// defaultTitles are the auto-generated names the upstream assigns when
// the athlete does not rename a run.
var defaultTitles = map[string]bool{
	"morning run":   true,
	"lunch run":     true,
	"afternoon run": true,
	"evening run":   true,
	"night run":     true,
}

// titleStopwords are dropped before word counting: common English plus
// the words every run title carries.
var titleStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "at": true, "but": true,
	"for": true, "from": true, "in": true, "is": true, "it": true,
	"my": true, "of": true, "on": true, "or": true, "so": true,
	"the": true, "to": true, "with": true,
	"run": true, "running": true, "mile": true, "miles": true,
	"km": true, "k": true,
}

// positiveWords and negativeWords signal how the run felt. Together
// they form the emotion vocabulary.
var positiveWords = map[string]bool{
	"great": true, "good": true, "amazing": true, "awesome": true,
	"fun": true, "happy": true, "strong": true, "easy": true,
	"beautiful": true, "perfect": true,
}

var negativeWords = map[string]bool{
	"hard": true, "tough": true, "brutal": true, "rough": true,
	"slow": true, "tired": true, "sore": true, "painful": true,
	"terrible": true,
}

// locationWords signal where the run happened.
var locationWords = map[string]bool{
	"park": true, "trail": true, "trails": true, "loop": true,
	"river": true, "lake": true, "beach": true, "hill": true,
	"hills": true, "track": true, "bridge": true, "canal": true,
	"forest": true, "woods": true, "neighborhood": true,
	"downtown": true, "treadmill": true,
}

// WordCount pairs a title word with its frequency. Percent is the
// count relative to the number of custom titles.
type WordCount struct {
	Word    string  `json:"word"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// TitleResult summarizes naming habits across runs.
type TitleResult struct {
	TotalRuns      int         `json:"total_runs"`
	CustomTitles   int         `json:"custom_titles"`
	CustomPercent  float64     `json:"custom_percent"`
	TopWords       []WordCount `json:"top_words"`
	EmotionWords   []WordCount `json:"emotion_words"`
	LocationWords  []WordCount `json:"location_words"`
	PositiveTitles int         `json:"positive_titles"`
	NegativeTitles int         `json:"negative_titles"`
	NeutralTitles  int         `json:"neutral_titles"`
}

// AnalyzeTitles measures how often runs carry custom names and which
// words recur in them. Default upstream names do not contribute words.
// Each custom title is also classified positive, negative, or neutral
// from its emotion words.
func AnalyzeTitles(runs []Run) TitleResult {
	result := TitleResult{TotalRuns: len(runs)}
	if len(runs) == 0 {
		return result
	}

	words := make(map[string]int)
	emotions := make(map[string]int)
	locations := make(map[string]int)
	for _, r := range runs {
		title := strings.TrimSpace(r.Activity.Name)
		if defaultTitles[strings.ToLower(title)] {
			continue
		}
		result.CustomTitles++
		hasPositive, hasNegative := false, false
		for _, w := range tokenizeTitle(title) {
			if titleStopwords[w] {
				continue
			}
			words[w]++
			if positiveWords[w] {
				emotions[w]++
				hasPositive = true
			}
			if negativeWords[w] {
				emotions[w]++
				hasNegative = true
			}
			if locationWords[w] {
				locations[w]++
			}
		}
		// Mixed feelings cancel out: a title carrying both kinds of
		// emotion words stays neutral.
		switch {
		case hasPositive && !hasNegative:
			result.PositiveTitles++
		case hasNegative && !hasPositive:
			result.NegativeTitles++
		default:
			result.NeutralTitles++
		}
	}

	result.CustomPercent = float64(result.CustomTitles) / float64(len(runs)) * 100
	result.TopWords = topWords(words, 20, result.CustomTitles)
	result.EmotionWords = topWords(emotions, 0, result.CustomTitles)
	result.LocationWords = topWords(locations, 0, result.CustomTitles)
	return result
}

// tokenizeTitle lowercases and splits on anything that is not a letter
// or digit.
func tokenizeTitle(title string) []string {
	return strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// topWords sorts by count descending, then alphabetically for stable
// output. A limit of 0 returns everything.
func topWords(counts map[string]int, limit, titles int) []WordCount {
	out := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		wc := WordCount{Word: w, Count: c}
		if titles > 0 {
			wc.Percent = float64(c) / float64(titles) * 100
		}
		out = append(out, wc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
