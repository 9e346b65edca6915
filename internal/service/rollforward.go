package service

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/mlender/goalplan/internal/models"
	"github.com/mlender/goalplan/internal/recurrence"
)

// Rollforward re-materializes every stored series out to the configured
// lookahead window from today. Unbounded series only ever materialize a
// bounded window at creation time; a periodic rollforward keeps their
// schedules populated as time passes. Materialization dedup makes the sweep
// idempotent, and recorded exceptions plus truncated rules keep it from
// resurrecting edited or deleted occurrences.
//
// Each series is processed independently; failures are aggregated and do not
// stop the sweep.
func (s *Service) Rollforward(ctx context.Context) error {
	all, err := s.Series.All(ctx)
	if err != nil {
		return err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	var errs *multierror.Error

	for _, series := range all {
		if err := s.rollforwardSeries(ctx, series, today); err != nil {
			s.logger.WithError(err).Errorf("Rollforward failed for series %s", series.ID)
			errs = multierror.Append(errs, err)
		}
	}

	s.metrics.RollforwardRuns.Inc()
	s.logger.Infof("Rollforward swept %d series", len(all))
	return errs.ErrorOrNil()
}

func (s *Service) rollforwardSeries(ctx context.Context, series *models.Series, today time.Time) error {
	start, err := models.ParseDate(series.StartDate)
	if err != nil {
		return err
	}
	if series.Rule.EndDate != "" {
		end, err := models.ParseDate(series.Rule.EndDate)
		if err != nil {
			return err
		}
		if end.Before(today) {
			return nil // series already ran out
		}
	}

	// Generation stays anchored at the series start so interval phase is
	// preserved; the window is stretched to reach lookaheadDays past today.
	lookahead := s.lookaheadDays
	if start.Before(today) {
		lookahead += int(today.Sub(start).Hours() / 24)
	}

	occurrences, err := recurrence.Generate(series.ID, series.Template, start, series.Rule, lookahead)
	if err != nil {
		return err
	}

	_, err = s.Materialize(ctx, series.UserID, occurrences)
	return err
}
