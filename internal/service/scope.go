package service

import (
	"context"
	"fmt"

	"github.com/mlender/goalplan/internal/models"
)

// Action is the kind of occurrence mutation.
type Action int

const (
	ActionUnknown Action = iota
	ActionEdit
	ActionDelete
)

// ParseAction maps the wire form of an action onto the closed set.
func ParseAction(s string) (Action, error) {
	switch s {
	case "edit":
		return ActionEdit, nil
	case "delete":
		return ActionDelete, nil
	default:
		return ActionUnknown, &models.ValidationError{Field: "action", Reason: fmt.Sprintf("must be edit or delete, got %q", s)}
	}
}

// Scope selects whether a mutation targets one instance or the series' future
// instances. The zero value means the caller did not choose; for recurring
// instances that is an error, never a default.
type Scope int

const (
	ScopeUnspecified Scope = iota
	ScopeSingle
	ScopeAll
)

// ParseScope maps the wire form of a scope onto the closed set. An empty
// string is ScopeUnspecified, not an error, so the recurring check can force
// the choice with ScopeRequiredError instead.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "":
		return ScopeUnspecified, nil
	case "single":
		return ScopeSingle, nil
	case "all":
		return ScopeAll, nil
	default:
		return ScopeUnspecified, &models.ValidationError{Field: "scope", Reason: fmt.Sprintf("must be single or all, got %q", s)}
	}
}

// MutateParams describes an edit or delete of one occurrence of a series.
type MutateParams struct {
	InstanceID string
	SeriesID   string
	Action     Action
	Scope      Scope
	Changes    *models.BlockChanges
}

// MutateResult reports what a mutation touched.
type MutateResult struct {
	InstancesAffected int `json:"instancesAffected"`
	DatesTouched      int `json:"datesTouched"`
}

// MutateOccurrence resolves and applies an occurrence mutation.
//
// Non-recurring instances bypass the scope question entirely. Recurring
// instances require an explicit scope: single-scope mutations touch only the
// target instance and record its date as a series exception so later
// materialization does not recreate a default occurrence; all-scope
// mutations sweep every instance of the series dated on or after the target.
func (s *Service) MutateOccurrence(ctx context.Context, userID string, p MutateParams) (*MutateResult, error) {
	if p.Action != ActionEdit && p.Action != ActionDelete {
		return nil, &models.ValidationError{Field: "action", Reason: "must be edit or delete"}
	}
	if p.Action == ActionEdit && p.Changes.IsEmpty() {
		return nil, &models.ValidationError{Field: "changes", Reason: "edit requires at least one change"}
	}

	docs, err := s.Schedules.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedules: %w", err)
	}

	doc, idx := locateInstance(docs, p.InstanceID)
	if doc == nil {
		return nil, &models.NotFoundError{Resource: "instance", ID: p.InstanceID}
	}
	target := doc.Instances[idx]

	if !target.Recurring {
		return s.mutateSingle(ctx, doc, idx, p)
	}

	if p.Scope == ScopeUnspecified {
		return nil, &models.ScopeRequiredError{InstanceID: p.InstanceID}
	}
	if p.SeriesID != "" && p.SeriesID != target.SeriesID {
		return nil, &models.NotFoundError{Resource: "series", ID: p.SeriesID}
	}

	switch p.Scope {
	case ScopeSingle:
		result, err := s.mutateSingle(ctx, doc, idx, p)
		if err != nil {
			return nil, err
		}
		s.recordException(ctx, target.SeriesID, instanceDate(target, doc))
		return result, nil
	default:
		return s.mutateFuture(ctx, docs, target.SeriesID, instanceDate(target, doc), p)
	}
}

// mutateSingle applies the mutation to one instance inside one document.
func (s *Service) mutateSingle(ctx context.Context, doc *models.Schedule, idx int, p MutateParams) (*MutateResult, error) {
	instances := doc.Instances
	if p.Action == ActionEdit {
		p.Changes.Apply(&instances[idx])
	} else {
		instances = append(instances[:idx], instances[idx+1:]...)
	}

	if _, err := s.Schedules.Upsert(ctx, doc.UserID, doc.Date, instances); err != nil {
		return nil, fmt.Errorf("failed to write schedule for %s: %w", doc.Date, err)
	}
	return &MutateResult{InstancesAffected: 1, DatesTouched: 1}, nil
}

// mutateFuture sweeps every instance of the series dated on or after cutoff.
// The sweep is not transactional across dates: failed dates are reported in
// a PartialWriteError while committed dates are kept.
func (s *Service) mutateFuture(ctx context.Context, docs []*models.Schedule, seriesID, cutoff string, p MutateParams) (*MutateResult, error) {
	if seriesID == "" {
		return nil, &models.NotFoundError{Resource: "series", ID: p.SeriesID}
	}

	// Future generation must agree with the sweep, so the stored series
	// record changes first: edits rewrite its template, deletes truncate its
	// rule at the day before the cutoff.
	if p.Action == ActionEdit {
		s.updateSeriesTemplate(ctx, seriesID, p.Changes)
	} else {
		s.truncateSeries(ctx, seriesID, cutoff)
	}

	result := &MutateResult{}
	failed := make(map[string]error)

	for _, doc := range docs {
		changed := 0
		kept := doc.Instances[:0:0]
		for _, inst := range doc.Instances {
			if inst.SeriesID != seriesID || instanceDate(inst, doc) < cutoff {
				kept = append(kept, inst)
				continue
			}
			if p.Action == ActionEdit {
				// Completed instances keep the shape they were completed
				// with; edits only reach pending future occurrences.
				if !inst.Completed {
					p.Changes.Apply(&inst)
					changed++
				}
				kept = append(kept, inst)
				continue
			}
			changed++ // delete: drop the instance
		}
		if changed == 0 {
			continue
		}

		if _, err := s.Schedules.Upsert(ctx, doc.UserID, doc.Date, kept); err != nil {
			failed[doc.Date] = err
			s.metrics.ScheduleWrites.WithLabelValues("error").Inc()
			continue
		}
		s.metrics.ScheduleWrites.WithLabelValues("ok").Inc()
		result.InstancesAffected += changed
		result.DatesTouched++
	}

	if len(failed) > 0 {
		s.logger.Errorf("Series %s sweep: %d date(s) failed", seriesID, len(failed))
		return result, &models.PartialWriteError{FailedDates: failed}
	}
	return result, nil
}

// ToggleComplete flips the completion flag of one instance. Completion is
// per-instance by definition, so no scope applies even for recurring blocks.
func (s *Service) ToggleComplete(ctx context.Context, userID, instanceID string) (*models.BlockInstance, error) {
	docs, err := s.Schedules.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedules: %w", err)
	}
	doc, idx := locateInstance(docs, instanceID)
	if doc == nil {
		return nil, &models.NotFoundError{Resource: "instance", ID: instanceID}
	}

	doc.Instances[idx].Completed = !doc.Instances[idx].Completed
	if _, err := s.Schedules.Upsert(ctx, userID, doc.Date, doc.Instances); err != nil {
		return nil, fmt.Errorf("failed to write schedule for %s: %w", doc.Date, err)
	}
	inst := doc.Instances[idx]
	return &inst, nil
}

// recordException links a single-occurrence mutation back into the series
// rule so re-materialization cannot recreate a stale default instance for
// that date. A missing series record is tolerated: the instance mutation has
// already committed and is the source of truth for that date.
func (s *Service) recordException(ctx context.Context, seriesID, date string) {
	if seriesID == "" {
		return
	}
	series, err := s.Series.GetByID(ctx, seriesID)
	if err != nil {
		s.logger.WithError(err).Warnf("Failed to load series %s for exception linkage", seriesID)
		return
	}
	if series == nil {
		s.logger.Warnf("Series %s has no stored rule; exception for %s not recorded", seriesID, date)
		return
	}
	if !series.Rule.AddException(date) {
		return
	}
	if _, err := s.Series.Update(ctx, series); err != nil {
		s.logger.WithError(err).Warnf("Failed to record exception %s on series %s", date, seriesID)
	}
}

// updateSeriesTemplate folds an all-scope edit into the stored template so
// future materialization produces the edited shape.
func (s *Service) updateSeriesTemplate(ctx context.Context, seriesID string, changes *models.BlockChanges) {
	series, err := s.Series.GetByID(ctx, seriesID)
	if err != nil || series == nil {
		s.logger.Warnf("Series %s has no stored template; all-scope edit applies to instances only", seriesID)
		return
	}
	changes.ApplyTemplate(&series.Template)
	if _, err := s.Series.Update(ctx, series); err != nil {
		s.logger.WithError(err).Warnf("Failed to update template of series %s", seriesID)
	}
}

// truncateSeries ends the stored rule the day before cutoff so rollforward
// cannot resurrect occurrences removed by an all-scope delete.
func (s *Service) truncateSeries(ctx context.Context, seriesID, cutoff string) {
	series, err := s.Series.GetByID(ctx, seriesID)
	if err != nil || series == nil {
		s.logger.Warnf("Series %s has no stored rule; all-scope delete applies to instances only", seriesID)
		return
	}
	cut, err := models.ParseDate(cutoff)
	if err != nil {
		s.logger.WithError(err).Warnf("Series %s has unparseable cutoff %q", seriesID, cutoff)
		return
	}
	series.Rule.EndDate = models.FormatDate(cut.AddDate(0, 0, -1))
	series.Rule.EndOccurrences = 0
	if _, err := s.Series.Update(ctx, series); err != nil {
		s.logger.WithError(err).Warnf("Failed to truncate series %s", seriesID)
	}
}

// locateInstance finds the document and index holding the given instance ID.
func locateInstance(docs []*models.Schedule, instanceID string) (*models.Schedule, int) {
	for _, doc := range docs {
		if idx := doc.FindInstance(instanceID); idx >= 0 {
			return doc, idx
		}
	}
	return nil, -1
}

// instanceDate is the date an instance is compared on for future sweeps: the
// date it was generated for, falling back to the document it lives in.
func instanceDate(inst models.BlockInstance, doc *models.Schedule) string {
	if inst.OriginalDate != "" {
		return inst.OriginalDate
	}
	return doc.Date
}
