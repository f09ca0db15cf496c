package analytics

import (
	"sort"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
)

const (
	topThemesLimit    = 5
	highPriorityLimit = 5
)

// HighPriorityThreshold is the minimum priority listed under high priority
const HighPriorityThreshold = 4

type Stats struct {
	Total              int                      `json:"total"`
	SentimentBreakdown map[models.Sentiment]int `json:"sentimentBreakdown"`
	CategoryBreakdown  map[models.Category]int  `json:"categoryBreakdown"`
	TopThemes          []ThemeCount             `json:"topThemes"`
	HighPriority       []*models.Feedback       `json:"highPriority"`
}

// Aggregate computes the dashboard summary over records given oldest first
func Aggregate(records []*models.Feedback) Stats {
	return Stats{
		Total:              len(records),
		SentimentBreakdown: SentimentBreakdown(records),
		CategoryBreakdown:  CategoryBreakdown(records),
		TopThemes:          BuildThemeIndex(records, false).Top(topThemesLimit),
		HighPriority:       HighPriority(records, highPriorityLimit),
	}
}

// SentimentBreakdown always carries all three sentiment keys
func SentimentBreakdown(records []*models.Feedback) map[models.Sentiment]int {
	breakdown := make(map[models.Sentiment]int, len(models.Sentiments))
	for _, s := range models.Sentiments {
		breakdown[s] = 0
	}
	for _, fb := range records {
		breakdown[fb.Sentiment]++
	}
	return breakdown
}

// CategoryBreakdown only carries categories that occur
func CategoryBreakdown(records []*models.Feedback) map[models.Category]int {
	breakdown := make(map[models.Category]int)
	for _, fb := range records {
		breakdown[fb.Category]++
	}
	return breakdown
}

// HighPriority returns up to limit records with priority >= 4, most urgent
// first and most recent first within a priority.
func HighPriority(records []*models.Feedback, limit int) []*models.Feedback {
	urgent := make([]*models.Feedback, 0)
	for _, fb := range records {
		if fb.Priority >= HighPriorityThreshold {
			urgent = append(urgent, fb)
		}
	}

	sort.SliceStable(urgent, func(i, j int) bool {
		a, b := urgent[i], urgent[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if len(urgent) > limit {
		urgent = urgent[:limit]
	}
	return urgent
}
