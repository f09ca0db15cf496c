package classifier

import (
	"context"
	"strings"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
)

// Classifier annotates feedback text. Implementations must not fail;
// degraded input produces models.DefaultAnalysis.
type Classifier interface {
	Analyze(ctx context.Context, content string) models.Analysis
}

type topic struct {
	theme    string
	keywords []string
}

var topics = []topic{
	{"login", []string{"login", "log in", "sign in", "password", "auth"}},
	{"performance", []string{"slow", "lag", "performance", "loading", "speed"}},
	{"crash", []string{"crash", "freeze", "frozen"}},
	{"ui", []string{"ui", "design", "layout", "button", "interface"}},
	{"pricing", []string{"price", "pricing", "expensive", "cost", "subscription"}},
	{"mobile", []string{"mobile", "ios", "android", "phone"}},
	{"dark mode", []string{"dark mode", "dark theme"}},
	{"api", []string{"api", "endpoint", "webhook", "sdk"}},
	{"documentation", []string{"docs", "documentation", "guide", "tutorial"}},
	{"notifications", []string{"notification", "alert", "email"}},
	{"search", []string{"search", "filter"}},
	{"support", []string{"support team", "customer service", "response time"}},
}

var (
	positiveWords = []string{"love", "great", "awesome", "amazing", "excellent", "thanks", "thank you", "fantastic", "helpful", "nice"}
	negativeWords = []string{"hate", "terrible", "awful", "broken", "worst", "annoying", "frustrating", "crash", "slow", "bug", "error", "fail", "can't", "cannot"}
	bugWords      = []string{"bug", "crash", "error", "broken", "fails", "failing", "doesn't work", "not working", "exception"}
	featureWords  = []string{"please add", "would love", "feature", "wish", "could you add", "request", "it would be nice", "support for"}
	urgentWords   = []string{"urgent", "asap", "critical", "data loss", "outage", "is down", "went down", "security", "can't log in", "cannot log in"}
)

// KeywordClassifier is an offline heuristic used when no model endpoint is configured
type KeywordClassifier struct {
	maxThemes int
}

func NewKeywordClassifier(maxThemes int) *KeywordClassifier {
	if maxThemes <= 0 || maxThemes > models.MaxThemes {
		maxThemes = models.MaxThemes
	}
	return &KeywordClassifier{maxThemes: maxThemes}
}

func (c *KeywordClassifier) Analyze(_ context.Context, content string) models.Analysis {
	text := strings.ToLower(content)

	themes := make([]string, 0, c.maxThemes)
	seen := make(map[string]struct{})
	add := func(theme string) {
		theme = models.NormalizeTheme(theme)
		if theme == "" || len(themes) >= c.maxThemes {
			return
		}
		if _, ok := seen[theme]; ok {
			return
		}
		seen[theme] = struct{}{}
		themes = append(themes, theme)
	}

	// Extract hashtags
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, "#") {
			add(strings.Trim(strings.TrimPrefix(word, "#"), ".,!?;:"))
		}
	}
	for _, t := range topics {
		if containsAny(text, t.keywords) {
			add(t.theme)
		}
	}

	sentiment := models.SentimentNeutral
	pos, neg := countAny(text, positiveWords), countAny(text, negativeWords)
	switch {
	case pos > neg:
		sentiment = models.SentimentPositive
	case neg > pos:
		sentiment = models.SentimentNegative
	}

	var category models.Category
	priority := 3
	switch {
	case containsAny(text, bugWords):
		category = models.CategoryBug
		priority = 4
	case containsAny(text, featureWords):
		category = models.CategoryFeature
		priority = 2
	case sentiment == models.SentimentPositive:
		category = models.CategoryPraise
		priority = 1
	default:
		category = models.CategoryComplaint
	}
	if containsAny(text, urgentWords) {
		priority = models.MaxPriority
	}

	return SanitizeAnalysis(models.Analysis{
		Sentiment: sentiment,
		Category:  category,
		Priority:  priority,
		Themes:    themes,
	})
}

func containsAny(text string, words []string) bool {
	return countAny(text, words) > 0
}

func countAny(text string, words []string) int {
	n := 0
	for _, w := range words {
		if hasTerm(text, w) {
			n++
		}
	}
	return n
}

// hasTerm reports whether term occurs in text starting at a word boundary,
// so "ui" matches "ui" and "ui's" but not "guide".
func hasTerm(text, term string) bool {
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], term)
		if i < 0 {
			return false
		}
		i += offset
		if i == 0 || !isWordByte(text[i-1]) {
			return true
		}
		offset = i + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}
