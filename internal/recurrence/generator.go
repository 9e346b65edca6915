// Package recurrence expands a recurrence rule into concrete calendar
// occurrences. Generation is pure computation: nothing here touches storage.
package recurrence

import (
	"time"

	"github.com/google/uuid"

	"github.com/mlender/goalplan/internal/models"
)

// DefaultLookaheadDays caps how far an unbounded rule is expanded in one
// generation call.
const DefaultLookaheadDays = 90

// Occurrence pairs a generated block instance with the calendar date it
// belongs on.
type Occurrence struct {
	Date     string // YYYY-MM-DD
	Instance models.BlockInstance
}

// Generate expands (template, startDate, rule) into an ordered, deduplicated
// list of occurrences. Every produced instance is tagged with seriesID,
// starts uncompleted, and records its generation date as OriginalDate.
//
// The effective horizon is startDate+lookaheadDays, tightened to rule.EndDate
// when one is set. Dates in rule.Exceptions are skipped and do not count
// toward rule.EndOccurrences.
func Generate(seriesID string, tpl models.BlockTemplate, startDate time.Time, rule models.RecurrenceRule, lookaheadDays int) ([]Occurrence, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if lookaheadDays <= 0 {
		return nil, &models.ValidationError{Field: "lookaheadDays", Reason: "must be greater than zero"}
	}

	horizon := startDate.AddDate(0, 0, lookaheadDays)
	if rule.EndDate != "" {
		end, err := models.ParseDate(rule.EndDate)
		if err != nil {
			return nil, err
		}
		if end.Before(horizon) {
			horizon = end
		}
	}

	var candidates []time.Time
	switch rule.Type {
	case models.RecurrenceWeekly:
		candidates = weeklyCandidates(startDate, horizon, rule)
	case models.RecurrenceMonthly:
		candidates = monthlyCandidates(startDate, horizon, rule)
	default:
		// daily and custom share the fixed-step pattern.
		candidates = dailyCandidates(startDate, horizon, rule)
	}

	exceptions := rule.ExceptionSet()
	seen := make(map[string]bool, len(candidates))
	occurrences := make([]Occurrence, 0, len(candidates))

	for _, day := range candidates {
		date := models.FormatDate(day)
		if seen[date] || exceptions[date] {
			continue
		}
		seen[date] = true

		inst := models.BlockInstance{
			ID:           uuid.NewString(),
			Recurring:    true,
			SeriesID:     seriesID,
			OriginalDate: date,
		}
		inst.FromTemplate(tpl)
		occurrences = append(occurrences, Occurrence{Date: date, Instance: inst})

		if rule.EndOccurrences > 0 && len(occurrences) == rule.EndOccurrences {
			break
		}
	}

	return occurrences, nil
}

// dailyCandidates steps from startDate in fixed day increments up to the
// horizon.
func dailyCandidates(start, horizon time.Time, rule models.RecurrenceRule) []time.Time {
	step := rule.EffectiveInterval()
	var out []time.Time
	for d := start; !d.After(horizon); d = d.AddDate(0, 0, step) {
		out = append(out, d)
	}
	return out
}

// weeklyCandidates walks every calendar day from startDate to the horizon. A
// day qualifies when its weekday is selected and its week honors the
// interval, with weeks counted from the week containing startDate
// (Sunday-based, matching the weekday indices).
func weeklyCandidates(start, horizon time.Time, rule models.RecurrenceRule) []time.Time {
	step := rule.EffectiveInterval()
	selected := make(map[int]bool, len(rule.DaysOfWeek))
	for _, wd := range rule.DaysOfWeek {
		selected[wd] = true
	}

	weekAnchor := start.AddDate(0, 0, -int(start.Weekday()))
	var out []time.Time
	for d := start; !d.After(horizon); d = d.AddDate(0, 0, 1) {
		if !selected[int(d.Weekday())] {
			continue
		}
		week := int(d.Sub(weekAnchor).Hours()) / 24 / 7
		if week%step != 0 {
			continue
		}
		out = append(out, d)
	}
	return out
}

// monthlyCandidates anchors to rule.DayOfMonth in the month containing
// startDate, advancing by the interval in months. Months shorter than the
// anchor clamp to their own last day.
func monthlyCandidates(start, horizon time.Time, rule models.RecurrenceRule) []time.Time {
	step := rule.EffectiveInterval()
	year, month := start.Year(), int(start.Month())

	first := clampToMonth(year, month, rule.DayOfMonth)
	if first.Before(start) {
		year, month = nextMonth(year, month, 1)
	}

	var out []time.Time
	for {
		d := clampToMonth(year, month, rule.DayOfMonth)
		if d.After(horizon) {
			return out
		}
		if !d.Before(start) {
			out = append(out, d)
		}
		year, month = nextMonth(year, month, step)
	}
}

// clampToMonth returns day-of-month in (year, month), clamped to the last
// day of that month when the month is too short.
func clampToMonth(year, month, day int) time.Time {
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func nextMonth(year, month, step int) (int, int) {
	month += step
	for month > 12 {
		month -= 12
		year++
	}
	return year, month
}
