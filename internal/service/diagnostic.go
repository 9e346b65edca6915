package service

import (
	"context"
	"fmt"

	"github.com/mlender/goalplan/internal/models"
)

// SeriesInstance pairs an instance with the date of the document it lives in,
// for series-integrity inspection.
type SeriesInstance struct {
	Date     string               `json:"date"`
	Instance models.BlockInstance `json:"instance"`
}

// SeriesInstances scans all of a user's schedule documents and returns every
// instance that claims series membership (a non-empty seriesId or the
// recurring flag). Read-only; used to debug series integrity.
func (s *Service) SeriesInstances(ctx context.Context, userID string) ([]SeriesInstance, error) {
	docs, err := s.Schedules.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedules: %w", err)
	}

	out := make([]SeriesInstance, 0)
	for _, doc := range docs {
		for _, inst := range doc.Instances {
			if inst.SeriesID != "" || inst.Recurring {
				out = append(out, SeriesInstance{Date: doc.Date, Instance: inst})
			}
		}
	}
	return out, nil
}

// DaySchedule returns the user's document for one date, or an empty document
// when none exists yet.
func (s *Service) DaySchedule(ctx context.Context, userID, date string) (*models.Schedule, error) {
	if _, err := models.ParseDate(date); err != nil {
		return nil, err
	}
	doc, err := s.Schedules.Get(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	if doc == nil {
		doc = &models.Schedule{UserID: userID, Date: date, Instances: []models.BlockInstance{}}
	}
	return doc, nil
}
