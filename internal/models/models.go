package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Source is the channel a feedback item arrived through
type Source string

const (
	SourceTwitter Source = "twitter"
	SourceDiscord Source = "discord"
	SourceGitHub  Source = "github"
	SourceSupport Source = "support"
)

// Sources lists every valid source in display order
var Sources = []Source{SourceTwitter, SourceDiscord, SourceGitHub, SourceSupport}

func ParseSource(s string) (Source, bool) {
	for _, v := range Sources {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

// Sentiment is the emotional valence assigned by the classifier
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

var Sentiments = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}

func ParseSentiment(s string) (Sentiment, bool) {
	for _, v := range Sentiments {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

// Category is the functional classification of a feedback item
type Category string

const (
	CategoryBug       Category = "bug"
	CategoryFeature   Category = "feature"
	CategoryPraise    Category = "praise"
	CategoryComplaint Category = "complaint"
)

var Categories = []Category{CategoryBug, CategoryFeature, CategoryPraise, CategoryComplaint}

func ParseCategory(s string) (Category, bool) {
	for _, v := range Categories {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

const (
	MinPriority = 1
	MaxPriority = 5
	// MaxThemes is the most themes a single record may carry
	MaxThemes = 5
)

// Feedback represents a single annotated feedback item
type Feedback struct {
	ID          int64      `json:"id"`
	Source      Source     `json:"source"`
	Content     string     `json:"content"`
	Sentiment   Sentiment  `json:"sentiment"`
	Category    Category   `json:"category"`
	Priority    int        `json:"priority"`
	Themes      []string   `json:"themes"`
	CreatedAt   time.Time  `json:"created_at"`
	Addressed   bool       `json:"addressed"`
	AddressedAt *time.Time `json:"addressed_at"`
}

// Analysis is the canonical output of the classifier gateway
type Analysis struct {
	Sentiment Sentiment `json:"sentiment"`
	Category  Category  `json:"category"`
	Priority  int       `json:"priority"`
	Themes    []string  `json:"themes"`
}

// DefaultAnalysis is used whenever classification fails
func DefaultAnalysis() Analysis {
	return Analysis{
		Sentiment: SentimentNeutral,
		Category:  CategoryComplaint,
		Priority:  3,
		Themes:    []string{},
	}
}

// NormalizeTheme trims and lowercases a theme keyword
func NormalizeTheme(theme string) string {
	return strings.ToLower(strings.TrimSpace(theme))
}

// EncodeThemes serializes themes for storage as a JSON array
func EncodeThemes(themes []string) string {
	if len(themes) == 0 {
		return "[]"
	}
	b, err := json.Marshal(themes)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// DecodeThemes parses a stored theme blob. Anything that is not a JSON
// array yields an empty slice; non-string and empty entries are dropped.
func DecodeThemes(raw []byte) []string {
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		return []string{}
	}
	themes := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = NormalizeTheme(s); s != "" {
			themes = append(themes, s)
		}
	}
	return themes
}
