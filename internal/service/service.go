package service

import (
	"github.com/sirupsen/logrus"

	"github.com/mlender/goalplan/internal/metrics"
	"github.com/mlender/goalplan/internal/recurrence"
	"github.com/mlender/goalplan/internal/repository"
)

// Service is the scheduling engine's business logic layer: series creation,
// materialization into per-date schedule documents, and occurrence-scope
// mutation.
type Service struct {
	logger        *logrus.Logger
	metrics       *metrics.Metrics
	lookaheadDays int

	Schedules repository.ScheduleStore
	Series    repository.SeriesStore
}

// New creates a Service. lookaheadDays bounds unbounded rules; values <= 0
// fall back to the default window.
func New(logger *logrus.Logger, m *metrics.Metrics,
	schedules repository.ScheduleStore,
	series repository.SeriesStore,
	lookaheadDays int,
) *Service {
	if m == nil {
		m = metrics.New()
	}
	if lookaheadDays <= 0 {
		lookaheadDays = recurrence.DefaultLookaheadDays
	}
	return &Service{
		logger:        logger,
		metrics:       m,
		lookaheadDays: lookaheadDays,
		Schedules:     schedules,
		Series:        series,
	}
}
