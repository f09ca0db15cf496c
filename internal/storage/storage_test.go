package storage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
)

func newFeedback(source models.Source, sentiment models.Sentiment, priority int, createdAt time.Time) *models.Feedback {
	return &models.Feedback{
		Source:    source,
		Content:   "some feedback",
		Sentiment: sentiment,
		Category:  models.CategoryBug,
		Priority:  priority,
		Themes:    []string{"login"},
		CreatedAt: createdAt,
	}
}

func TestMemoryStorage_InsertAssignsIDs(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	first := &models.Feedback{Source: models.SourceGitHub, Content: "a", Sentiment: models.SentimentNeutral, Category: models.CategoryBug, Priority: 3}
	second := &models.Feedback{Source: models.SourceGitHub, Content: "b", Sentiment: models.SentimentNeutral, Category: models.CategoryBug, Priority: 3}

	if err := s.Insert(ctx, first); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := s.Insert(ctx, second); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if first.ID != 1 || second.ID != 2 {
		t.Errorf("Expected ids 1 and 2, got %d and %d", first.ID, second.ID)
	}
	if first.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be assigned")
	}
	if first.Themes == nil {
		t.Error("Expected nil themes to be stored as empty slice")
	}
}

func TestMemoryStorage_GetByIDReturnsCopy(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	fb := newFeedback(models.SourceTwitter, models.SentimentNegative, 4, time.Now())
	_ = s.Insert(ctx, fb)

	got, err := s.GetByID(ctx, fb.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	got.Themes[0] = "mutated"

	again, _ := s.GetByID(ctx, fb.ID)
	if again.Themes[0] != "login" {
		t.Errorf("Stored record was mutated through returned copy: %v", again.Themes)
	}

	if _, err := s.GetByID(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStorage_UpdateAddressed(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	fb := newFeedback(models.SourceDiscord, models.SentimentNegative, 5, time.Now())
	_ = s.Insert(ctx, fb)

	updated, err := s.UpdateAddressed(ctx, fb.ID, true)
	if err != nil {
		t.Fatalf("UpdateAddressed failed: %v", err)
	}
	if !updated.Addressed || updated.AddressedAt == nil {
		t.Errorf("Expected addressed with timestamp, got %+v", updated)
	}

	updated, _ = s.UpdateAddressed(ctx, fb.ID, false)
	if updated.Addressed || updated.AddressedAt != nil {
		t.Errorf("Expected addressed_at cleared, got %+v", updated)
	}

	if _, err := s.UpdateAddressed(ctx, 42, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStorage_QueryAndCountShareFilter(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = s.Insert(ctx, newFeedback(models.SourceTwitter, models.SentimentNegative, 5, base.Add(-3*time.Hour)))
	_ = s.Insert(ctx, newFeedback(models.SourceTwitter, models.SentimentPositive, 2, base.Add(-2*time.Hour)))
	_ = s.Insert(ctx, newFeedback(models.SourceGitHub, models.SentimentNegative, 5, base.Add(-1*time.Hour)))
	_ = s.Insert(ctx, newFeedback(models.SourceTwitter, models.SentimentNegative, 5, base))

	source := models.SourceTwitter
	priority := 5
	filter := Filter{Source: &source, Priority: &priority}

	records, err := s.Query(ctx, filter, 10, 0)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	count, _ := s.Count(ctx, filter)

	if len(records) != count || count != 2 {
		t.Fatalf("Expected 2 matching records, got query=%d count=%d", len(records), count)
	}
	if records[0].ID != 4 || records[1].ID != 1 {
		t.Errorf("Expected newest first [4 1], got [%d %d]", records[0].ID, records[1].ID)
	}

	since := base.Add(-90 * time.Minute)
	recent, _ := s.Query(ctx, Filter{Since: &since}, 10, 0)
	if len(recent) != 2 {
		t.Errorf("Expected 2 records since cutoff, got %d", len(recent))
	}
}

func TestMemoryStorage_QueryPaging(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		_ = s.Insert(ctx, newFeedback(models.SourceSupport, models.SentimentNeutral, 3, base.Add(time.Duration(i)*time.Minute)))
	}

	page, _ := s.Query(ctx, Filter{}, 2, 4)
	if len(page) != 1 || page[0].ID != 1 {
		t.Errorf("Expected last page to hold oldest record, got %d records", len(page))
	}

	empty, _ := s.Query(ctx, Filter{}, 2, 10)
	if len(empty) != 0 {
		t.Errorf("Expected empty page past the end, got %d", len(empty))
	}

	first, err := s.Query(ctx, Filter{}, 2, -20)
	if err != nil {
		t.Fatalf("Query with negative offset failed: %v", err)
	}
	if len(first) != 2 || first[0].ID != 5 {
		t.Errorf("Expected negative offset to read the first page, got %d records", len(first))
	}
}

func TestMemoryStorage_AllAndClear(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	base := time.Now()
	_ = s.Insert(ctx, newFeedback(models.SourceSupport, models.SentimentNeutral, 3, base))
	_ = s.Insert(ctx, newFeedback(models.SourceSupport, models.SentimentNeutral, 3, base.Add(-time.Hour)))

	all, _ := s.All(ctx)
	if len(all) != 2 || all[0].ID != 1 || all[1].ID != 2 {
		t.Errorf("Expected records in id order, got %v", all)
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	all, _ = s.All(ctx)
	if len(all) != 0 {
		t.Errorf("Expected empty store after ClearAll, got %d", len(all))
	}

	fb := newFeedback(models.SourceSupport, models.SentimentNeutral, 3, base)
	_ = s.Insert(ctx, fb)
	if fb.ID != 1 {
		t.Errorf("Expected ids to restart at 1 after ClearAll, got %d", fb.ID)
	}
}

func TestBuildWhere(t *testing.T) {
	where, args := buildWhere(Filter{})
	if where != "" || len(args) != 0 {
		t.Errorf("Expected no clause for empty filter, got %q %v", where, args)
	}

	sentiment := models.SentimentNegative
	category := models.CategoryBug
	priority := 4
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	where, args = buildWhere(Filter{Sentiment: &sentiment, Category: &category, Priority: &priority, Since: &since})

	want := " WHERE sentiment = $1 AND category = $2 AND priority = $3 AND created_at >= $4"
	if where != want {
		t.Errorf("buildWhere() = %q, want %q", where, want)
	}
	wantArgs := []any{"negative", "bug", 4, since}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("buildWhere() args = %v, want %v", args, wantArgs)
	}
	if strings.Contains(where, "source") {
		t.Error("Unset source filter should not appear in clause")
	}
}

func TestFilterMatches(t *testing.T) {
	now := time.Now()
	fb := newFeedback(models.SourceGitHub, models.SentimentPositive, 2, now)

	source := models.SourceGitHub
	other := models.SourceDiscord
	later := now.Add(time.Second)

	if !(Filter{Source: &source}).Matches(fb) {
		t.Error("Expected source filter to match")
	}
	if (Filter{Source: &other}).Matches(fb) {
		t.Error("Expected mismatched source to be rejected")
	}
	if !(Filter{Since: &now}).Matches(fb) {
		t.Error("Expected record at exactly the lower bound to match")
	}
	if (Filter{Since: &later}).Matches(fb) {
		t.Error("Expected record before the lower bound to be rejected")
	}
}
