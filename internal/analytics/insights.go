package analytics

import (
	"math"
	"sort"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
)

const (
	trendingWindow         = 10
	themeDistributionLimit = 5
	trendThreshold         = 0.1
)

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

var trendDescriptions = map[Trend]string{
	TrendImproving: "Sentiment is improving: recent feedback is more positive than earlier feedback",
	TrendDeclining: "Sentiment is declining: recent feedback is more negative than earlier feedback",
	TrendStable:    "Sentiment is stable compared to earlier feedback",
}

const noDataDescription = "Not enough feedback yet to determine a trend"

type UrgentIssue struct {
	Theme       string  `json:"theme"`
	AvgPriority float64 `json:"avgPriority"`
	Count       int     `json:"count"`
}

type TrendingTopic struct {
	Theme          string `json:"theme"`
	Count          int    `json:"count"`
	RecentMentions int    `json:"recentMentions"`
}

type SentimentTrend struct {
	Trend          Trend  `json:"trend"`
	Description    string `json:"description"`
	RecentPositive int    `json:"recentPositive"`
	RecentNegative int    `json:"recentNegative"`
}

type ThemeShare struct {
	Theme      string `json:"theme"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

type Insights struct {
	MostUrgentIssue   *UrgentIssue   `json:"mostUrgentIssue"`
	TrendingTopic     *TrendingTopic `json:"trendingTopic"`
	SentimentTrend    SentimentTrend `json:"sentimentTrend"`
	ThemeDistribution []ThemeShare   `json:"themeDistribution"`
}

// EmptyInsights is the explicit shape returned when there is no feedback
func EmptyInsights() Insights {
	return Insights{
		SentimentTrend: SentimentTrend{
			Trend:       TrendStable,
			Description: noDataDescription,
		},
		ThemeDistribution: []ThemeShare{},
	}
}

// ComputeInsights derives the four insights from records given oldest first.
// The insights are independent of each other.
func ComputeInsights(records []*models.Feedback) Insights {
	if len(records) == 0 {
		return EmptyInsights()
	}

	recent := NewestFirst(records)
	return Insights{
		MostUrgentIssue:   MostUrgentIssue(recent),
		TrendingTopic:     TrendingTopicOf(recent),
		SentimentTrend:    SentimentTrendOf(recent),
		ThemeDistribution: ThemeDistribution(records),
	}
}

// NewestFirst returns a copy ordered by created_at desc, then id desc
func NewestFirst(records []*models.Feedback) []*models.Feedback {
	sorted := append([]*models.Feedback(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	return sorted
}

// OldestFirst returns a copy ordered by created_at, then id, ascending
func OldestFirst(records []*models.Feedback) []*models.Feedback {
	sorted := append([]*models.Feedback(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// MostUrgentIssue picks the theme with the highest average priority across
// negative feedback. Ties go to the higher count, then to the first theme seen.
func MostUrgentIssue(records []*models.Feedback) *UrgentIssue {
	type acc struct {
		sum   int
		count int
	}
	stats := make(map[string]*acc)
	var order []string

	for _, fb := range records {
		if fb.Sentiment != models.SentimentNegative {
			continue
		}
		for _, raw := range fb.Themes {
			theme := models.NormalizeTheme(raw)
			if theme == "" {
				continue
			}
			a, ok := stats[theme]
			if !ok {
				a = &acc{}
				stats[theme] = a
				order = append(order, theme)
			}
			a.sum += fb.Priority
			a.count++
		}
	}

	var best *UrgentIssue
	var bestAvg float64
	for _, theme := range order {
		a := stats[theme]
		avg := float64(a.sum) / float64(a.count)
		if best == nil || avg > bestAvg || (avg == bestAvg && a.count > best.Count) {
			bestAvg = avg
			best = &UrgentIssue{Theme: theme, Count: a.count}
		}
	}
	if best == nil {
		return nil
	}
	best.AvgPriority = math.Round(bestAvg*10) / 10
	return best
}

// TrendingTopicOf counts themes across the ten newest records. The first
// theme to reach the maximum count in scan order wins ties.
func TrendingTopicOf(newestFirst []*models.Feedback) *TrendingTopic {
	window := newestFirst
	if len(window) > trendingWindow {
		window = window[:trendingWindow]
	}

	counts := make(map[string]int)
	var best string
	bestCount := 0
	for _, fb := range window {
		for _, raw := range fb.Themes {
			theme := models.NormalizeTheme(raw)
			if theme == "" {
				continue
			}
			counts[theme]++
			if counts[theme] > bestCount {
				best, bestCount = theme, counts[theme]
			}
		}
	}

	if bestCount == 0 {
		return nil
	}
	return &TrendingTopic{Theme: best, Count: bestCount, RecentMentions: bestCount}
}

// SentimentTrendOf compares the newer half of the records with the older half
func SentimentTrendOf(newestFirst []*models.Feedback) SentimentTrend {
	if len(newestFirst) == 0 {
		return EmptyInsights().SentimentTrend
	}

	mid := len(newestFirst) / 2
	if mid == 0 {
		mid = 1
	}
	recentHalf, olderHalf := newestFirst[:mid], newestFirst[mid:]

	recentPos, recentNeg := countPolarity(recentHalf)
	olderPos, olderNeg := countPolarity(olderHalf)

	diff := polarityRatio(recentPos, recentNeg, len(recentHalf)) - polarityRatio(olderPos, olderNeg, len(olderHalf))

	trend := TrendStable
	switch {
	case diff > trendThreshold:
		trend = TrendImproving
	case diff < -trendThreshold:
		trend = TrendDeclining
	}

	return SentimentTrend{
		Trend:          trend,
		Description:    trendDescriptions[trend],
		RecentPositive: recentPos,
		RecentNegative: recentNeg,
	}
}

func countPolarity(records []*models.Feedback) (positive, negative int) {
	for _, fb := range records {
		switch fb.Sentiment {
		case models.SentimentPositive:
			positive++
		case models.SentimentNegative:
			negative++
		}
	}
	return positive, negative
}

func polarityRatio(positive, negative, size int) float64 {
	if size == 0 {
		return 0
	}
	return float64(positive-negative) / float64(size)
}

// ThemeDistribution returns the five most mentioned themes with their share
// of all theme mentions, rounded independently.
func ThemeDistribution(records []*models.Feedback) []ThemeShare {
	idx := BuildThemeIndex(records, false)
	total := idx.TotalMentions()

	top := idx.Top(themeDistributionLimit)
	shares := make([]ThemeShare, 0, len(top))
	for _, tc := range top {
		shares = append(shares, ThemeShare{
			Theme:      tc.Theme,
			Count:      tc.Count,
			Percentage: int(math.Floor(100*float64(tc.Count)/float64(total) + 0.5)),
		})
	}
	return shares
}
