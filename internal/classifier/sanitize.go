package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
)

var errNoJSONObject = errors.New("no JSON object in response")

type rawAnalysis struct {
	Sentiment json.RawMessage `json:"sentiment"`
	Category  json.RawMessage `json:"category"`
	Priority  json.RawMessage `json:"priority"`
	Themes    json.RawMessage `json:"themes"`
}

// ParseAnalysis extracts the first {...} span from a model response and
// sanitizes every field independently. It only fails when no object can be
// located or decoded; individual bad fields fall back to their defaults.
func ParseAnalysis(response string) (models.Analysis, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end < start {
		return models.DefaultAnalysis(), errNoJSONObject
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return models.DefaultAnalysis(), fmt.Errorf("failed to decode analysis: %w", err)
	}

	return models.Analysis{
		Sentiment: sanitizeSentiment(raw.Sentiment),
		Category:  sanitizeCategory(raw.Category),
		Priority:  sanitizePriority(raw.Priority),
		Themes:    sanitizeThemes(raw.Themes),
	}, nil
}

// SanitizeAnalysis applies the same bounds as ParseAnalysis to an analysis
// built in code: unknown enums fall back to their defaults, priority is
// clamped to [MinPriority, MaxPriority] and themes are normalized, deduplicated
// and capped at MaxThemes.
func SanitizeAnalysis(a models.Analysis) models.Analysis {
	out := models.DefaultAnalysis()
	if v, ok := models.ParseSentiment(string(a.Sentiment)); ok {
		out.Sentiment = v
	}
	if v, ok := models.ParseCategory(string(a.Category)); ok {
		out.Category = v
	}
	out.Priority = min(max(a.Priority, models.MinPriority), models.MaxPriority)

	themes := make([]string, 0, min(len(a.Themes), models.MaxThemes))
	seen := make(map[string]struct{}, len(a.Themes))
	for _, t := range a.Themes {
		t = models.NormalizeTheme(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		if len(themes) == models.MaxThemes {
			break
		}
		seen[t] = struct{}{}
		themes = append(themes, t)
	}
	out.Themes = themes
	return out
}

func sanitizeSentiment(raw json.RawMessage) models.Sentiment {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.SentimentNeutral
	}
	if v, ok := models.ParseSentiment(s); ok {
		return v
	}
	return models.SentimentNeutral
}

func sanitizeCategory(raw json.RawMessage) models.Category {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.CategoryComplaint
	}
	if v, ok := models.ParseCategory(s); ok {
		return v
	}
	return models.CategoryComplaint
}

func sanitizePriority(raw json.RawMessage) int {
	if isJSONNull(raw) {
		return 3
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		// numeric strings such as "4" are accepted too
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 3
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(parsed) {
			return 3
		}
		f = parsed
	}
	f = math.Max(models.MinPriority, math.Min(models.MaxPriority, f))
	return int(math.Floor(f + 0.5))
}

// isJSONNull reports a missing or null field; json.Unmarshal treats null as a no-op
func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func sanitizeThemes(raw json.RawMessage) []string {
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil || values == nil {
		return []string{}
	}
	if len(values) > models.MaxThemes {
		values = values[:models.MaxThemes]
	}

	themes := make([]string, 0, len(values))
	for _, v := range values {
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(t)
		default:
			continue
		}
		if s = models.NormalizeTheme(s); s != "" {
			themes = append(themes, s)
		}
	}
	return themes
}
