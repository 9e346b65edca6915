package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// ValidationError reports a malformed rule, template, or request field. It is
// returned before any generation or write begins.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown instance, series, or schedule document.
type NotFoundError struct {
	Resource string // "instance", "series", "schedule"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ScopeRequiredError is returned when a recurring instance is mutated without
// an explicit scope. The caller must re-issue the request with scope set;
// the resolver never guesses a default for recurring instances.
type ScopeRequiredError struct {
	InstanceID string
}

func (e *ScopeRequiredError) Error() string {
	return fmt.Sprintf("instance %q is recurring; mutation scope (single|all) is required", e.InstanceID)
}

// PartialWriteError reports that some per-date writes of a multi-date sweep
// failed while others committed. Committed writes are kept; there is no
// rollback.
type PartialWriteError struct {
	FailedDates map[string]error
}

func (e *PartialWriteError) Error() string {
	agg := &multierror.Error{}
	for _, date := range sortedDates(e.FailedDates) {
		agg = multierror.Append(agg, fmt.Errorf("%s: %w", date, e.FailedDates[date]))
	}
	return fmt.Sprintf("partial write: %d date(s) failed: %v", len(e.FailedDates), agg.ErrorOrNil())
}

// Breakdown returns the per-date failure messages keyed by date.
func (e *PartialWriteError) Breakdown() map[string]string {
	out := make(map[string]string, len(e.FailedDates))
	for date, err := range e.FailedDates {
		out[date] = err.Error()
	}
	return out
}

func sortedDates(m map[string]error) []string {
	dates := make([]string, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
