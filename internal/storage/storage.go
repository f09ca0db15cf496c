package storage

import (
	"context"
	"errors"
	"time"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
)

var ErrNotFound = errors.New("feedback not found")

// Filter is a conjunctive predicate over feedback records. Nil fields do not
// constrain. Query and Count must evaluate the same Filter identically.
type Filter struct {
	Source    *models.Source
	Sentiment *models.Sentiment
	Category  *models.Category
	Priority  *int
	Since     *time.Time
}

// Matches evaluates the predicate in memory
func (f Filter) Matches(fb *models.Feedback) bool {
	if f.Source != nil && fb.Source != *f.Source {
		return false
	}
	if f.Sentiment != nil && fb.Sentiment != *f.Sentiment {
		return false
	}
	if f.Category != nil && fb.Category != *f.Category {
		return false
	}
	if f.Priority != nil && fb.Priority != *f.Priority {
		return false
	}
	if f.Since != nil && fb.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

type Storage interface {
	// Insert assigns ID (and CreatedAt when zero) on the passed record
	Insert(ctx context.Context, fb *models.Feedback) error
	GetByID(ctx context.Context, id int64) (*models.Feedback, error)
	UpdateAddressed(ctx context.Context, id int64, addressed bool) (*models.Feedback, error)

	// Query returns matching records newest first
	Query(ctx context.Context, filter Filter, limit, offset int) ([]*models.Feedback, error)
	Count(ctx context.Context, filter Filter) (int, error)
	// All returns every record in insertion (id) order
	All(ctx context.Context) ([]*models.Feedback, error)

	ClearAll(ctx context.Context) error
	Close() error
}
