// Package ics renders a user's stored series as an iCalendar feed. Export is
// read-only: it derives VEVENTs from the persisted templates and rules, not
// from the materialized instances.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/mlender/goalplan/internal/models"
)

// Calendar serializes the given series into an iCalendar document. Each
// series becomes one VEVENT carrying an RRULE and its exception dates as
// EXDATEs.
func Calendar(series []*models.Series) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//goalplan//schedule export//EN")

	for _, s := range series {
		start, err := eventStart(s)
		if err != nil {
			return "", fmt.Errorf("series %s: %w", s.ID, err)
		}

		ev := cal.AddEvent(s.ID)
		ev.SetSummary(s.Template.Title)
		if s.Template.Category != "" {
			ev.SetProperty(ical.ComponentPropertyCategories, s.Template.Category)
		}
		ev.SetStartAt(start)
		if end, ok := eventEnd(s, start); ok {
			ev.SetEndAt(end)
		}

		rule, err := ruleString(s.Rule, start)
		if err != nil {
			return "", fmt.Errorf("series %s: %w", s.ID, err)
		}
		ev.SetProperty(ical.ComponentPropertyRrule, rule)

		for _, ex := range s.Rule.Exceptions {
			day, err := models.ParseDate(ex)
			if err != nil {
				return "", fmt.Errorf("series %s: %w", s.ID, err)
			}
			ev.AddProperty(ical.ComponentPropertyExdate, day.Format("20060102"))
		}
	}

	return cal.Serialize(), nil
}

// eventStart combines the series start date with the template's start clock
// time. A missing or malformed clock time falls back to midnight.
func eventStart(s *models.Series) (time.Time, error) {
	day, err := models.ParseDate(s.StartDate)
	if err != nil {
		return time.Time{}, err
	}
	if t, perr := time.Parse("15:04", s.Template.StartTime); perr == nil {
		return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute), nil
	}
	return day, nil
}

func eventEnd(s *models.Series, start time.Time) (time.Time, bool) {
	t, err := time.Parse("15:04", s.Template.EndTime)
	if err != nil {
		return time.Time{}, false
	}
	day := start.Truncate(24 * time.Hour)
	end := day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
	if !end.After(start) {
		return time.Time{}, false
	}
	return end, true
}

// ruleString encodes a recurrence rule as an RFC 5545 RRULE value.
func ruleString(r models.RecurrenceRule, start time.Time) (string, error) {
	opt := rrule.ROption{Interval: r.EffectiveInterval(), Dtstart: start}

	switch r.Type {
	case models.RecurrenceWeekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range r.DaysOfWeek {
			opt.Byweekday = append(opt.Byweekday, icalWeekday(d))
		}
	case models.RecurrenceMonthly:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{r.DayOfMonth}
	default:
		// daily and custom both step in days.
		opt.Freq = rrule.DAILY
	}

	if r.EndOccurrences > 0 {
		opt.Count = r.EndOccurrences
	}
	if r.EndDate != "" {
		until, err := models.ParseDate(r.EndDate)
		if err != nil {
			return "", err
		}
		opt.Until = until
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return "", fmt.Errorf("failed to encode rrule: %w", err)
	}
	return rule.String(), nil
}

// icalWeekday maps a calendar weekday index (0=Sunday) onto the rrule
// weekday constants.
func icalWeekday(d int) rrule.Weekday {
	switch d {
	case 0:
		return rrule.SU
	case 1:
		return rrule.MO
	case 2:
		return rrule.TU
	case 3:
		return rrule.WE
	case 4:
		return rrule.TH
	case 5:
		return rrule.FR
	default:
		return rrule.SA
	}
}
