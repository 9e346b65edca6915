package models

import "fmt"

// RecurrenceType selects the repetition pattern of a rule.
type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceCustom  RecurrenceType = "custom"
)

// RecurrenceRule is the declarative description of a repeating block. It
// carries no behavior beyond validation; expansion into concrete dates lives
// in the recurrence package.
type RecurrenceRule struct {
	Type     RecurrenceType `json:"type"`
	Interval int            `json:"interval,omitempty"` // repeat every N units; 0 means 1

	// DaysOfWeek is required for weekly rules. Indices follow the calendar
	// convention 0=Sunday through 6=Saturday.
	DaysOfWeek []int `json:"daysOfWeek,omitempty"`

	// DayOfMonth anchors monthly rules, 1-31. Months shorter than the anchor
	// clamp to their own last day.
	DayOfMonth int `json:"dayOfMonth,omitempty"`

	// At most one of EndDate / EndOccurrences may be set. When neither is,
	// the rule is unbounded and generation is capped by the caller's
	// lookahead window.
	EndDate        string `json:"endDate,omitempty"` // YYYY-MM-DD, inclusive
	EndOccurrences int    `json:"endOccurrences,omitempty"`

	// Exceptions are dates excluded from generation. Excluded dates do not
	// count toward EndOccurrences.
	Exceptions []string `json:"exceptions,omitempty"`
}

// EffectiveInterval returns the interval with the default applied.
func (r *RecurrenceRule) EffectiveInterval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// ExceptionSet returns the exception dates as a lookup set.
func (r *RecurrenceRule) ExceptionSet() map[string]bool {
	set := make(map[string]bool, len(r.Exceptions))
	for _, d := range r.Exceptions {
		set[d] = true
	}
	return set
}

// AddException records a date as excluded from the series. Returns false if
// the date was already present.
func (r *RecurrenceRule) AddException(date string) bool {
	for _, d := range r.Exceptions {
		if d == date {
			return false
		}
	}
	r.Exceptions = append(r.Exceptions, date)
	return true
}

// Validate checks the rule invariants and returns a ValidationError on the
// first violation.
func (r *RecurrenceRule) Validate() error {
	switch r.Type {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceCustom:
	default:
		return &ValidationError{Field: "rule.type", Reason: fmt.Sprintf("unknown recurrence type %q", r.Type)}
	}

	if r.Interval < 0 {
		return &ValidationError{Field: "rule.interval", Reason: "must be a positive integer"}
	}

	if r.Type == RecurrenceWeekly {
		if len(r.DaysOfWeek) == 0 {
			return &ValidationError{Field: "rule.daysOfWeek", Reason: "weekly rules require at least one weekday"}
		}
		for _, d := range r.DaysOfWeek {
			if d < 0 || d > 6 {
				return &ValidationError{Field: "rule.daysOfWeek", Reason: fmt.Sprintf("weekday index %d out of range 0-6", d)}
			}
		}
	}

	if r.Type == RecurrenceMonthly {
		if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
			return &ValidationError{Field: "rule.dayOfMonth", Reason: "must be between 1 and 31"}
		}
	}

	if r.EndOccurrences < 0 {
		return &ValidationError{Field: "rule.endOccurrences", Reason: "must be a positive integer"}
	}
	if r.EndDate != "" && r.EndOccurrences > 0 {
		return &ValidationError{Field: "rule", Reason: "endDate and endOccurrences are mutually exclusive"}
	}
	if r.EndDate != "" {
		if _, err := ParseDate(r.EndDate); err != nil {
			return &ValidationError{Field: "rule.endDate", Reason: "must be a valid YYYY-MM-DD date"}
		}
	}
	for _, d := range r.Exceptions {
		if _, err := ParseDate(d); err != nil {
			return &ValidationError{Field: "rule.exceptions", Reason: fmt.Sprintf("%q is not a valid YYYY-MM-DD date", d)}
		}
	}

	return nil
}
