package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
)

type MemoryStorage struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*models.Feedback
	order  []int64
	now    func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		nextID: 1,
		byID:   make(map[int64]*models.Feedback),
		now:    time.Now,
	}
}

func (s *MemoryStorage) Insert(ctx context.Context, fb *models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fb.ID = s.nextID
	s.nextID++
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = s.now()
	}
	if fb.Themes == nil {
		fb.Themes = []string{}
	}

	s.byID[fb.ID] = cloneFeedback(fb)
	s.order = append(s.order, fb.ID)
	return nil
}

func (s *MemoryStorage) GetByID(ctx context.Context, id int64) (*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if fb, exists := s.byID[id]; exists {
		return cloneFeedback(fb), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) UpdateAddressed(ctx context.Context, id int64, addressed bool) (*models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fb, exists := s.byID[id]
	if !exists {
		return nil, ErrNotFound
	}

	fb.Addressed = addressed
	if addressed {
		now := s.now()
		fb.AddressedAt = &now
	} else {
		fb.AddressedAt = nil
	}
	return cloneFeedback(fb), nil
}

func (s *MemoryStorage) Query(ctx context.Context, filter Filter, limit, offset int) ([]*models.Feedback, error) {
	s.mu.RLock()
	matched := make([]*models.Feedback, 0)
	for _, id := range s.order {
		if fb := s.byID[id]; filter.Matches(fb) {
			matched = append(matched, cloneFeedback(fb))
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(matched)

	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []*models.Feedback{}, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], nil
}

func (s *MemoryStorage) Count(ctx context.Context, filter Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, id := range s.order {
		if filter.Matches(s.byID[id]) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStorage) All(ctx context.Context) ([]*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Feedback, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneFeedback(s.byID[id]))
	}
	return out, nil
}

func (s *MemoryStorage) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[int64]*models.Feedback)
	s.order = nil
	s.nextID = 1
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

// sortNewestFirst orders by created_at desc, newer ids first on equal timestamps
func sortNewestFirst(records []*models.Feedback) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
}

func cloneFeedback(fb *models.Feedback) *models.Feedback {
	c := *fb
	c.Themes = append([]string{}, fb.Themes...)
	if fb.AddressedAt != nil {
		t := *fb.AddressedAt
		c.AddressedAt = &t
	}
	return &c
}
