// Package seed holds the demo feedback dataset used to reset the store.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
)

//go:embed dataset.yaml
var embeddedDataset []byte

// Item is one pre-annotated demo record. HoursAgo places it in time relative
// to the moment of seeding so date range filters have something to match.
type Item struct {
	Content   string   `yaml:"content"`
	Source    string   `yaml:"source"`
	Sentiment string   `yaml:"sentiment"`
	Category  string   `yaml:"category"`
	Priority  int      `yaml:"priority"`
	Themes    []string `yaml:"themes"`
	HoursAgo  int      `yaml:"hours_ago"`
}

type dataset struct {
	Items []Item `yaml:"items"`
}

// Default returns the embedded dataset
func Default() ([]Item, error) {
	return Parse(embeddedDataset)
}

// LoadFile reads a dataset from disk, falling back to the embedded one when
// path is empty.
func LoadFile(path string) ([]Item, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	items, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid seed file %s: %w", path, err)
	}
	return items, nil
}

// Parse decodes and validates a YAML dataset
func Parse(data []byte) ([]Item, error) {
	var ds dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse seed dataset: %w", err)
	}
	for i, item := range ds.Items {
		if err := item.validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return ds.Items, nil
}

func (it Item) validate() error {
	if strings.TrimSpace(it.Content) == "" {
		return fmt.Errorf("content is required")
	}
	if _, ok := models.ParseSource(it.Source); !ok {
		return fmt.Errorf("unknown source %q", it.Source)
	}
	if _, ok := models.ParseSentiment(it.Sentiment); !ok {
		return fmt.Errorf("unknown sentiment %q", it.Sentiment)
	}
	if _, ok := models.ParseCategory(it.Category); !ok {
		return fmt.Errorf("unknown category %q", it.Category)
	}
	if it.Priority < models.MinPriority || it.Priority > models.MaxPriority {
		return fmt.Errorf("priority %d out of range", it.Priority)
	}
	if len(it.Themes) > models.MaxThemes {
		return fmt.Errorf("too many themes (%d)", len(it.Themes))
	}
	if it.HoursAgo < 0 {
		return fmt.Errorf("hours_ago must not be negative")
	}
	return nil
}

// Record converts a validated item into a feedback record stamped relative to now
func (it Item) Record(now time.Time) *models.Feedback {
	source, _ := models.ParseSource(it.Source)
	sentiment, _ := models.ParseSentiment(it.Sentiment)
	category, _ := models.ParseCategory(it.Category)

	themes := make([]string, 0, len(it.Themes))
	for _, raw := range it.Themes {
		if theme := models.NormalizeTheme(raw); theme != "" {
			themes = append(themes, theme)
		}
	}

	return &models.Feedback{
		Source:    source,
		Content:   strings.TrimSpace(it.Content),
		Sentiment: sentiment,
		Category:  category,
		Priority:  it.Priority,
		Themes:    themes,
		CreatedAt: now.Add(-time.Duration(it.HoursAgo) * time.Hour),
	}
}
