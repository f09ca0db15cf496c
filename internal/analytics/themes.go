// Package analytics derives aggregate views from a snapshot of feedback
// records. Every function here is pure: it reads the slice it is given and
// never retains or mutates it.
package analytics

import (
	"sort"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
)

// MaxThemeExamples caps the example records kept per theme group
const MaxThemeExamples = 3

type ThemeCount struct {
	Theme string `json:"theme"`
	Count int    `json:"count"`
}

type ThemeGroup struct {
	Theme    string             `json:"theme"`
	Count    int                `json:"count"`
	Examples []*models.Feedback `json:"examples"`
}

// ThemeIndex maps normalized theme keywords to occurrence counts, remembering
// the order in which each theme was first seen.
type ThemeIndex struct {
	counts   map[string]int
	order    []string
	examples map[string][]*models.Feedback
	total    int
}

// BuildThemeIndex scans records in the given order. With withExamples set,
// up to MaxThemeExamples distinct records are kept per theme.
func BuildThemeIndex(records []*models.Feedback, withExamples bool) *ThemeIndex {
	idx := &ThemeIndex{counts: make(map[string]int)}
	if withExamples {
		idx.examples = make(map[string][]*models.Feedback)
	}
	for _, fb := range records {
		idx.add(fb)
	}
	return idx
}

func (idx *ThemeIndex) add(fb *models.Feedback) {
	var seen map[string]struct{}
	if idx.examples != nil {
		seen = make(map[string]struct{}, len(fb.Themes))
	}

	for _, raw := range fb.Themes {
		theme := models.NormalizeTheme(raw)
		if theme == "" {
			continue
		}
		if _, ok := idx.counts[theme]; !ok {
			idx.order = append(idx.order, theme)
		}
		idx.counts[theme]++
		idx.total++

		if idx.examples == nil {
			continue
		}
		if _, dup := seen[theme]; dup {
			continue
		}
		seen[theme] = struct{}{}
		if len(idx.examples[theme]) < MaxThemeExamples {
			idx.examples[theme] = append(idx.examples[theme], fb)
		}
	}
}

// Count returns the occurrences of a theme (normalized before lookup)
func (idx *ThemeIndex) Count(theme string) int {
	return idx.counts[models.NormalizeTheme(theme)]
}

// TotalMentions is the sum of counts across every theme
func (idx *ThemeIndex) TotalMentions() int {
	return idx.total
}

func (idx *ThemeIndex) Len() int {
	return len(idx.order)
}

// Ranked returns all themes by count descending; ties keep first-seen order
func (idx *ThemeIndex) Ranked() []ThemeCount {
	ranked := make([]ThemeCount, 0, len(idx.order))
	for _, theme := range idx.order {
		ranked = append(ranked, ThemeCount{Theme: theme, Count: idx.counts[theme]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}

// Top returns at most n ranked themes
func (idx *ThemeIndex) Top(n int) []ThemeCount {
	ranked := idx.Ranked()
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Groups returns ranked themes with their example records
func (idx *ThemeIndex) Groups() []ThemeGroup {
	ranked := idx.Ranked()
	groups := make([]ThemeGroup, 0, len(ranked))
	for _, tc := range ranked {
		examples := idx.examples[tc.Theme]
		if examples == nil {
			examples = []*models.Feedback{}
		}
		groups = append(groups, ThemeGroup{Theme: tc.Theme, Count: tc.Count, Examples: examples})
	}
	return groups
}
