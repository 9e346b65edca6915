package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mlender/goalplan/internal/models"
	"github.com/mlender/goalplan/internal/recurrence"
)

// CreateSeriesParams is the payload of a "create recurring task" request.
type CreateSeriesParams struct {
	Template      models.BlockTemplate  `json:"template"`
	Rule          models.RecurrenceRule `json:"rule"`
	StartDate     string                `json:"startDate"`
	LookaheadDays int                   `json:"lookaheadDays,omitempty"`
}

// MaterializeSummary reports what a materialization wrote, per date.
type MaterializeSummary struct {
	SeriesID       string         `json:"seriesId,omitempty"`
	DatesWritten   int            `json:"datesWritten"`
	InstancesAdded int            `json:"instancesAdded"`
	PerDate        map[string]int `json:"perDate"`
}

// CreateSeries validates the request, persists the series record, expands the
// rule, and materializes the occurrences into the user's schedule documents.
func (s *Service) CreateSeries(ctx context.Context, userID string, p CreateSeriesParams) (*MaterializeSummary, error) {
	if strings.TrimSpace(p.Template.Title) == "" {
		return nil, &models.ValidationError{Field: "template.title", Reason: "is required"}
	}
	if err := p.Rule.Validate(); err != nil {
		return nil, err
	}
	start, err := models.ParseDate(p.StartDate)
	if err != nil {
		return nil, &models.ValidationError{Field: "startDate", Reason: "must be a valid YYYY-MM-DD date"}
	}

	lookahead := p.LookaheadDays
	if lookahead <= 0 {
		lookahead = s.lookaheadDays
	}

	series := &models.Series{
		ID:        uuid.NewString(),
		UserID:    userID,
		Template:  p.Template,
		Rule:      p.Rule,
		StartDate: p.StartDate,
	}

	occurrences, err := recurrence.Generate(series.ID, p.Template, start, p.Rule, lookahead)
	if err != nil {
		return nil, err
	}
	s.metrics.InstancesGenerated.Add(float64(len(occurrences)))

	// The series record is written first so that single-occurrence edits can
	// link exceptions back to it even if some date writes below fail.
	if _, err := s.Series.Create(ctx, series); err != nil {
		return nil, fmt.Errorf("failed to persist series: %w", err)
	}

	summary, err := s.Materialize(ctx, userID, occurrences)
	summary.SeriesID = series.ID
	if err != nil {
		return summary, err
	}

	s.logger.Infof("Created series %s for user %s: %d instance(s) across %d date(s)",
		series.ID, userID, summary.InstancesAdded, summary.DatesWritten)
	return summary, nil
}

// Materialize fans generated occurrences out into per-date schedule
// documents. A new instance is dropped when its date already holds an
// instance of the same series, which makes repeat materialization of one
// series idempotent.
//
// Per-date writes are independent: a failed date does not roll back dates
// already committed. When any date fails the returned error is a
// PartialWriteError carrying the per-date breakdown, alongside the summary of
// what did commit.
func (s *Service) Materialize(ctx context.Context, userID string, occurrences []recurrence.Occurrence) (*MaterializeSummary, error) {
	byDate := make(map[string][]models.BlockInstance)
	for _, occ := range occurrences {
		byDate[occ.Date] = append(byDate[occ.Date], occ.Instance)
	}
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	summary := &MaterializeSummary{PerDate: make(map[string]int)}
	failed := make(map[string]error)

	for _, date := range dates {
		doc, err := s.Schedules.Get(ctx, userID, date)
		if err != nil {
			failed[date] = err
			s.metrics.ScheduleWrites.WithLabelValues("error").Inc()
			continue
		}

		var instances []models.BlockInstance
		present := make(map[string]bool)
		if doc != nil {
			instances = doc.Instances
			present = doc.SeriesIDs()
		}

		added := 0
		for _, inst := range byDate[date] {
			if inst.SeriesID != "" && present[inst.SeriesID] {
				continue
			}
			instances = append(instances, inst)
			added++
		}
		if added == 0 {
			continue
		}

		if _, err := s.Schedules.Upsert(ctx, userID, date, instances); err != nil {
			failed[date] = err
			s.metrics.ScheduleWrites.WithLabelValues("error").Inc()
			continue
		}
		s.metrics.ScheduleWrites.WithLabelValues("ok").Inc()
		s.metrics.InstancesMaterialized.Add(float64(added))
		summary.DatesWritten++
		summary.InstancesAdded += added
		summary.PerDate[date] = added
	}

	if len(failed) > 0 {
		s.logger.Errorf("Materialization for user %s: %d of %d date(s) failed", userID, len(failed), len(dates))
		return summary, &models.PartialWriteError{FailedDates: failed}
	}
	return summary, nil
}
