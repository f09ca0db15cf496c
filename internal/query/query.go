// Package query turns user supplied list parameters into a store filter and
// a page window, and runs the count and data queries with the same filter.
package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/storage"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit within int range for any valid limit
	MaxPage = math.MaxInt / MaxLimit
)

var ErrInvalidFilter = errors.New("invalid filter")

// dateRanges maps the accepted dateRange values to their look-back window
var dateRanges = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// RawParams holds list parameters exactly as they arrive from a caller.
// Empty strings mean "not supplied".
type RawParams struct {
	Source    string
	Sentiment string
	Category  string
	Priority  string
	DateRange string
	Page      string
	Limit     string
}

type Params struct {
	Filter storage.Filter
	Page   int
	Limit  int
}

// Offset is the number of matching records skipped before this page
func (p Params) Offset() int {
	return (clampPage(p.Page) - 1) * clampLimit(p.Limit)
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

type Result struct {
	Records    []*models.Feedback `json:"feedback"`
	Pagination Pagination         `json:"pagination"`
}

// Store is the subset of storage.Storage a query needs
type Store interface {
	Query(ctx context.Context, filter storage.Filter, limit, offset int) ([]*models.Feedback, error)
	Count(ctx context.Context, filter storage.Filter) (int, error)
}

// ParseParams validates enum and priority filters, resolves dateRange against
// now and clamps the page window. Unknown dateRange values apply no date filter.
func ParseParams(raw RawParams, now time.Time) (Params, error) {
	var p Params

	if v := strings.TrimSpace(raw.Source); v != "" {
		source, ok := models.ParseSource(v)
		if !ok {
			return Params{}, fmt.Errorf("%w: unknown source %q", ErrInvalidFilter, v)
		}
		p.Filter.Source = &source
	}
	if v := strings.TrimSpace(raw.Sentiment); v != "" {
		sentiment, ok := models.ParseSentiment(v)
		if !ok {
			return Params{}, fmt.Errorf("%w: unknown sentiment %q", ErrInvalidFilter, v)
		}
		p.Filter.Sentiment = &sentiment
	}
	if v := strings.TrimSpace(raw.Category); v != "" {
		category, ok := models.ParseCategory(v)
		if !ok {
			return Params{}, fmt.Errorf("%w: unknown category %q", ErrInvalidFilter, v)
		}
		p.Filter.Category = &category
	}
	if v := strings.TrimSpace(raw.Priority); v != "" {
		priority, err := strconv.Atoi(v)
		if err != nil || priority < models.MinPriority || priority > models.MaxPriority {
			return Params{}, fmt.Errorf("%w: priority must be an integer from %d to %d", ErrInvalidFilter, models.MinPriority, models.MaxPriority)
		}
		p.Filter.Priority = &priority
	}
	if window, ok := dateRanges[strings.TrimSpace(raw.DateRange)]; ok {
		since := now.Add(-window)
		p.Filter.Since = &since
	}

	p.Page = clampPage(parseIntOr(raw.Page, DefaultPage))
	p.Limit = clampLimit(parseIntOr(raw.Limit, DefaultLimit))
	return p, nil
}

// Run executes the count and data queries with one filter and builds the
// pagination envelope.
func Run(ctx context.Context, store Store, p Params) (Result, error) {
	p.Page = clampPage(p.Page)
	p.Limit = clampLimit(p.Limit)

	total, err := store.Count(ctx, p.Filter)
	if err != nil {
		return Result{}, fmt.Errorf("count feedback: %w", err)
	}

	records, err := store.Query(ctx, p.Filter, p.Limit, p.Offset())
	if err != nil {
		return Result{}, fmt.Errorf("query feedback: %w", err)
	}
	if records == nil {
		records = []*models.Feedback{}
	}

	return Result{
		Records:    records,
		Pagination: NewPagination(p.Page, p.Limit, total),
	}, nil
}

func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func parseIntOr(s string, fallback int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func clampPage(page int) int {
	switch {
	case page < 1:
		return 1
	case page > MaxPage:
		return MaxPage
	}
	return page
}

func clampLimit(limit int) int {
	switch {
	case limit < 1:
		return 1
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}
