// Package feedback is the entry point for everything above the core: it
// validates input, classifies and stores new feedback, and serves the
// derived analytics views from a fresh snapshot of the store.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/analytics"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/classifier"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/query"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/seed"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/storage"
)

const defaultReseedConcurrency = 4

// ErrValidation marks caller input that was rejected before reaching the
// classifier or the store.
var ErrValidation = errors.New("validation failed")

type Config struct {
	SeedItems         []seed.Item
	ReseedConcurrency int
}

type Service struct {
	store      storage.Storage
	classifier classifier.Classifier
	logger     *zap.Logger

	seedItems         []seed.Item
	reseedConcurrency int
	now               func() time.Time
}

func NewService(store storage.Storage, cls classifier.Classifier, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.ReseedConcurrency
	if concurrency <= 0 {
		concurrency = defaultReseedConcurrency
	}
	return &Service{
		store:             store,
		classifier:        cls,
		logger:            logger,
		seedItems:         cfg.SeedItems,
		reseedConcurrency: concurrency,
		now:               time.Now,
	}
}

// Submit validates, classifies and stores a new feedback item
func (s *Service) Submit(ctx context.Context, content, source string) (*models.Feedback, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	src, ok := models.ParseSource(strings.TrimSpace(source))
	if !ok {
		return nil, fmt.Errorf("%w: source must be one of twitter, discord, github, support", ErrValidation)
	}

	analysis := s.classifier.Analyze(ctx, content)

	fb := &models.Feedback{
		Source:    src,
		Content:   content,
		Sentiment: analysis.Sentiment,
		Category:  analysis.Category,
		Priority:  analysis.Priority,
		Themes:    analysis.Themes,
	}
	if err := s.store.Insert(ctx, fb); err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}

	s.logger.Info("Feedback submitted",
		zap.Int64("feedback_id", fb.ID),
		zap.String("source", string(fb.Source)),
		zap.String("sentiment", string(fb.Sentiment)),
		zap.String("category", string(fb.Category)),
		zap.Int("priority", fb.Priority),
	)
	return fb, nil
}

func (s *Service) List(ctx context.Context, raw query.RawParams) (query.Result, error) {
	params, err := query.ParseParams(raw, s.now())
	if err != nil {
		return query.Result{}, err
	}
	return query.Run(ctx, s.store, params)
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Feedback, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) SetAddressed(ctx context.Context, id int64, addressed bool) (*models.Feedback, error) {
	fb, err := s.store.UpdateAddressed(ctx, id, addressed)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Feedback addressed state changed",
		zap.Int64("feedback_id", id),
		zap.Bool("addressed", addressed),
	)
	return fb, nil
}

func (s *Service) Stats(ctx context.Context) (analytics.Stats, error) {
	records, err := s.snapshot(ctx)
	if err != nil {
		return analytics.Stats{}, err
	}
	return analytics.Aggregate(records), nil
}

func (s *Service) Insights(ctx context.Context) (analytics.Insights, error) {
	records, err := s.snapshot(ctx)
	if err != nil {
		return analytics.Insights{}, err
	}
	return analytics.ComputeInsights(records), nil
}

func (s *Service) ThemeGroups(ctx context.Context) ([]analytics.ThemeGroup, error) {
	records, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.BuildThemeIndex(records, true).Groups(), nil
}

// Reseed clears the store and inserts the demo dataset. Inserts run
// concurrently, so a failure can leave a partial dataset behind; running
// Reseed again converges to the full set.
func (s *Service) Reseed(ctx context.Context) (int, error) {
	if err := s.store.ClearAll(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear feedback: %w", err)
	}

	now := s.now()
	var inserted atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.reseedConcurrency)
	for _, item := range s.seedItems {
		fb := item.Record(now)
		g.Go(func() error {
			if err := s.store.Insert(gctx, fb); err != nil {
				return fmt.Errorf("failed to insert seed record: %w", err)
			}
			inserted.Add(1)
			return nil
		})
	}

	err := g.Wait()
	n := int(inserted.Load())
	if err != nil {
		s.logger.Error("Reseed incomplete", zap.Int("inserted", n), zap.Error(err))
		return n, err
	}

	s.logger.Info("Feedback reseeded", zap.Int("inserted", n))
	return n, nil
}

// SeedIfEmpty reseeds only when the store holds no feedback
func (s *Service) SeedIfEmpty(ctx context.Context) (bool, error) {
	total, err := s.store.Count(ctx, storage.Filter{})
	if err != nil {
		return false, fmt.Errorf("failed to count feedback: %w", err)
	}
	if total > 0 {
		return false, nil
	}
	if _, err := s.Reseed(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// snapshot loads every record oldest-first so first-seen tie-breaks follow
// creation time rather than the order concurrent inserts were assigned ids.
func (s *Service) snapshot(ctx context.Context) ([]*models.Feedback, error) {
	records, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}
	return analytics.OldestFirst(records), nil
}
