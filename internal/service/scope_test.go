package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/mlender/goalplan/internal/models"
)

func strptr(s string) *string { return &s }

// seedDailySeries creates a 5-day daily series for u1 starting 2024-02-10 and
// returns its seriesID plus the instance materialized on each date.
func seedDailySeries(t *testing.T, svc *Service, schedules *mockScheduleStore) (string, map[string]models.BlockInstance) {
	t.Helper()
	summary := mustCreateSeries(t, svc, "u1", CreateSeriesParams{
		Template:  testTemplate,
		Rule:      models.RecurrenceRule{Type: models.RecurrenceDaily, EndOccurrences: 5},
		StartDate: "2024-02-10",
	})

	byDate := make(map[string]models.BlockInstance)
	for _, date := range []string{"2024-02-10", "2024-02-11", "2024-02-12", "2024-02-13", "2024-02-14"} {
		insts := schedules.instancesOn(t, "u1", date)
		if len(insts) != 1 {
			t.Fatalf("seed: expected 1 instance on %s, got %d", date, len(insts))
		}
		byDate[date] = insts[0]
	}
	return summary.SeriesID, byDate
}

// Mutating a recurring instance without a scope must fail before any write.
func TestMutateRecurringRequiresScope(t *testing.T) {
	svc, schedules, _ := newTestService(t)
	seriesID, byDate := seedDailySeries(t, svc, schedules)
	before := schedules.Upserts

	for _, action := range []Action{ActionEdit, ActionDelete} {
		p := MutateParams{
			InstanceID: byDate["2024-02-12"].ID,
			SeriesID:   seriesID,
			Action:     action,
		}
		if action == ActionEdit {
			p.Changes = &models.BlockChanges{Title: strptr("Changed")}
		}
		_, err := svc.MutateOccurrence(context.Background(), "u1", p)
		var sr *models.ScopeRequiredError
		if !errors.As(err, &sr) {
			t.Fatalf("expected ScopeRequiredError, got %v", err)
		}
	}

	if schedules.Upserts != before {
		t.Errorf("scope errors must not write, saw %d extra upsert(s)", schedules.Upserts-before)
	}
}

// A single-scope edit touches only the target; every sibling stays
// byte-for-byte identical.
func TestEditSingleIsolation(t *testing.T) {
	svc, schedules, series := newTestService(t)
	seriesID, byDate := seedDailySeries(t, svc, schedules)
	target := byDate["2024-02-12"]

	_, err := svc.MutateOccurrence(context.Background(), "u1", MutateParams{
		InstanceID: target.ID,
		SeriesID:   seriesID,
		Action:     ActionEdit,
		Scope:      ScopeSingle,
		Changes:    &models.BlockChanges{Title: strptr("Long run"), StartTime: strptr("06:30")},
	})
	if err != nil {
		t.Fatalf("MutateOccurrence: %v", err)
	}

	edited := schedules.instancesOn(t, "u1", "2024-02-12")[0]
	if edited.Title != "Long run" || edited.StartTime != "06:30" {
		t.Errorf("target not edited: %+v", edited)
	}
	if edited.ID != target.ID || edited.SeriesID != seriesID {
		t.Errorf("edit changed instance identity: %+v", edited)
	}

	for date, want := range byDate {
		if date == "2024-02-12" {
			continue
		}
		got := schedules.instancesOn(t, "u1", date)[0]
		if !reflect.DeepEqual(got, want) {
			t.Errorf("sibling on %s changed: %+v != %+v", date, got, want)
		}
	}

	// The edited date is recorded as a series exception so regeneration
	// cannot recreate the default occurrence.
	stored, _ := series.GetByID(context.Background(), seriesID)
	if stored == nil || !stored.Rule.ExceptionSet()["2024-02-12"] {
		t.Errorf("edited date not recorded as exception: %+v", stored)
	}
}

func TestDeleteSingle(t *testing.T) {
	svc, schedules, series := newTestService(t)
	seriesID, byDate := seedDailySeries(t, svc, schedules)

	_, err := svc.MutateOccurrence(context.Background(), "u1", MutateParams{
		InstanceID: byDate["2024-02-11"].ID,
		SeriesID:   seriesID,
		Action:     ActionDelete,
		Scope:      ScopeSingle,
	})
	if err != nil {
		t.Fatalf("MutateOccurrence: %v", err)
	}

	if got := schedules.instancesOn(t, "u1", "2024-02-11"); len(got) != 0 {
		t.Errorf("instance not removed: %+v", got)
	}
	for _, date := range []string{"2024-02-10", "2024-02-12", "2024-02-13", "2024-02-14"} {
		if got := schedules.instancesOn(t, "u1", date); len(got) != 1 {
			t.Errorf("sibling on %s disturbed", date)
		}
	}

	stored, _ := series.GetByID(context.Background(), seriesID)
	if stored == nil || !stored.Rule.ExceptionSet()["2024-02-11"] {
		t.Errorf("deleted date not recorded as exception: %+v", stored)
	}

	// Rollforward must not resurrect the deleted occurrence.
	if err := svc.Rollforward(context.Background()); err != nil {
		t.Fatalf("Rollforward: %v", err)
	}
	if got := schedules.instancesOn(t, "u1", "2024-02-11"); len(got) != 0 {
		t.Errorf("rollforward resurrected the deleted occurrence: %+v", got)
	}
}

// An all-scope delete removes the target and everything after it, and leaves
// earlier instances untouched.
func TestDeleteAllFuture(t *testing.T) {
	svc, schedules, series := newTestService(t)
	seriesID, byDate := seedDailySeries(t, svc, schedules)

	_, err := svc.MutateOccurrence(context.Background(), "u1", MutateParams{
		InstanceID: byDate["2024-02-12"].ID,
		SeriesID:   seriesID,
		Action:     ActionDelete,
		Scope:      ScopeAll,
	})
	if err != nil {
		t.Fatalf("MutateOccurrence: %v", err)
	}

	for _, date := range []string{"2024-02-12", "2024-02-13", "2024-02-14"} {
		if got := schedules.instancesOn(t, "u1", date); len(got) != 0 {
			t.Errorf("instance on %s survived all-scope delete", date)
		}
	}
	for _, date := range []string{"2024-02-10", "2024-02-11"} {
		if got := schedules.instancesOn(t, "u1", date); len(got) != 1 {
			t.Errorf("past instance on %s was removed", date)
		}
	}

	// The stored rule ends the day before the cut, so regeneration stops
	// where the delete did.
	stored, _ := series.GetByID(context.Background(), seriesID)
	if stored == nil || stored.Rule.EndDate != "2024-02-11" {
		t.Errorf("rule not truncated at cut: %+v", stored)
	}
	if stored != nil && stored.Rule.EndOccurrences != 0 {
		t.Errorf("truncated rule kept endOccurrences=%d", stored.Rule.EndOccurrences)
	}
}

// An all-scope edit rewrites pending future instances and the stored
// template, and skips completed instances.
func TestEditAllFuture(t *testing.T) {
	svc, schedules, series := newTestService(t)
	seriesID, byDate := seedDailySeries(t, svc, schedules)

	// Complete the 02-13 instance before the sweep.
	if _, err := svc.ToggleComplete(context.Background(), "u1", byDate["2024-02-13"].ID); err != nil {
		t.Fatal(err)
	}

	_, err := svc.MutateOccurrence(context.Background(), "u1", MutateParams{
		InstanceID: byDate["2024-02-12"].ID,
		SeriesID:   seriesID,
		Action:     ActionEdit,
		Scope:      ScopeAll,
		Changes:    &models.BlockChanges{Title: strptr("Evening run"), StartTime: strptr("19:00")},
	})
	if err != nil {
		t.Fatalf("MutateOccurrence: %v", err)
	}

	for _, date := range []string{"2024-02-12", "2024-02-14"} {
		got := schedules.instancesOn(t, "u1", date)[0]
		if got.Title != "Evening run" || got.StartTime != "19:00" {
			t.Errorf("future instance on %s not edited: %+v", date, got)
		}
	}
	for _, date := range []string{"2024-02-10", "2024-02-11"} {
		got := schedules.instancesOn(t, "u1", date)[0]
		if got.Title != testTemplate.Title {
			t.Errorf("past instance on %s was edited: %+v", date, got)
		}
	}
	if got := schedules.instancesOn(t, "u1", "2024-02-13")[0]; got.Title != testTemplate.Title {
		t.Errorf("completed instance was edited: %+v", got)
	}

	stored, _ := series.GetByID(context.Background(), seriesID)
	if stored == nil || stored.Template.Title != "Evening run" {
		t.Errorf("stored template not updated: %+v", stored)
	}
}

// Non-recurring instances bypass the resolver: no scope question.
func TestNonRecurringBypassesScope(t *testing.T) {
	svc, schedules, _ := newTestService(t)

	solo := models.BlockInstance{ID: "solo-1", Title: "Dentist", StartTime: "14:00", EndTime: "15:00"}
	if _, err := schedules.Upsert(context.Background(), "u1", "2024-02-20", []models.BlockInstance{solo}); err != nil {
		t.Fatal(err)
	}

	result, err := svc.MutateOccurrence(context.Background(), "u1", MutateParams{
		InstanceID: "solo-1",
		Action:     ActionEdit,
		Changes:    &models.BlockChanges{Title: strptr("Dentist (moved)")},
	})
	if err != nil {
		t.Fatalf("MutateOccurrence: %v", err)
	}
	if result.InstancesAffected != 1 {
		t.Fatalf("expected 1 affected instance, got %d", result.InstancesAffected)
	}
	if got := schedules.instancesOn(t, "u1", "2024-02-20")[0]; got.Title != "Dentist (moved)" {
		t.Errorf("instance not edited: %+v", got)
	}

	if _, err := svc.MutateOccurrence(context.Background(), "u1", MutateParams{
		InstanceID: "solo-1",
		Action:     ActionDelete,
	}); err != nil {
		t.Fatalf("delete without scope should work for non-recurring: %v", err)
	}
	if got := schedules.instancesOn(t, "u1", "2024-02-20"); len(got) != 0 {
		t.Errorf("instance not deleted: %+v", got)
	}
}

func TestMutateErrors(t *testing.T) {
	svc, schedules, _ := newTestService(t)
	seriesID, byDate := seedDailySeries(t, svc, schedules)
	target := byDate["2024-02-12"]

	t.Run("unknown instance", func(t *testing.T) {
		_, err := svc.MutateOccurrence(context.Background(), "u1", MutateParams{
			InstanceID: "no-such-instance",
			Action:     ActionDelete,
			Scope:      ScopeSingle,
		})
		if !models.IsNotFound(err) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("mismatched series", func(t *testing.T) {
		_, err := svc.MutateOccurrence(context.Background(), "u1", MutateParams{
			InstanceID: target.ID,
			SeriesID:   "no-such-series",
			Action:     ActionDelete,
			Scope:      ScopeAll,
		})
		if !models.IsNotFound(err) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("edit without changes", func(t *testing.T) {
		_, err := svc.MutateOccurrence(context.Background(), "u1", MutateParams{
			InstanceID: target.ID,
			SeriesID:   seriesID,
			Action:     ActionEdit,
			Scope:      ScopeSingle,
		})
		if !models.IsValidation(err) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("toggle unknown instance", func(t *testing.T) {
		_, err := svc.ToggleComplete(context.Background(), "u1", "no-such-instance")
		if !models.IsNotFound(err) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})
}

func TestParseScopeAndAction(t *testing.T) {
	if scope, err := ParseScope(""); err != nil || scope != ScopeUnspecified {
		t.Errorf("empty scope should parse to unspecified, got %v / %v", scope, err)
	}
	if _, err := ParseScope("everything"); !models.IsValidation(err) {
		t.Errorf("bad scope should be a validation error, got %v", err)
	}
	if _, err := ParseAction("archive"); !models.IsValidation(err) {
		t.Errorf("bad action should be a validation error, got %v", err)
	}
	if action, err := ParseAction("delete"); err != nil || action != ActionDelete {
		t.Errorf("delete should parse, got %v / %v", action, err)
	}
}

func TestSeriesInstancesDiagnostic(t *testing.T) {
	svc, schedules, _ := newTestService(t)
	seriesID, _ := seedDailySeries(t, svc, schedules)

	solo := models.BlockInstance{ID: "solo-1", Title: "Dentist"}
	if _, err := schedules.Upsert(context.Background(), "u1", "2024-02-20", []models.BlockInstance{solo}); err != nil {
		t.Fatal(err)
	}

	out, err := svc.SeriesInstances(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 5 {
		t.Fatalf("expected the 5 series instances, got %d", len(out))
	}
	for _, si := range out {
		if si.Instance.SeriesID != seriesID {
			t.Errorf("unexpected instance in diagnostic output: %+v", si)
		}
	}
}
