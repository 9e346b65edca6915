package repository

import (
	"context"

	"github.com/mlender/goalplan/internal/models"
)

// ScheduleStore defines the interface for per-(user, date) schedule document
// operations. A document is addressed by its user ID and a YYYY-MM-DD date
// string.
type ScheduleStore interface {
	// Get returns the document for (userID, date), or (nil, nil) when no
	// document exists yet.
	Get(ctx context.Context, userID, date string) (*models.Schedule, error)
	// Upsert replaces the document's instance collection, creating the
	// document when absent. The write is atomic per document.
	Upsert(ctx context.Context, userID, date string, instances []models.BlockInstance) (*models.Schedule, error)
	// ListByUser returns all of a user's schedule documents ordered by date.
	ListByUser(ctx context.Context, userID string) ([]*models.Schedule, error)
}

// SeriesStore defines the interface for persisted series records (template +
// rule captured at creation time).
type SeriesStore interface {
	Create(ctx context.Context, series *models.Series) (*models.Series, error)
	// GetByID returns (nil, nil) when the series does not exist.
	GetByID(ctx context.Context, id string) (*models.Series, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Series, error)
	// All returns every stored series, used by the rollforward runner.
	All(ctx context.Context) ([]*models.Series, error)
	Update(ctx context.Context, series *models.Series) (*models.Series, error)
}
