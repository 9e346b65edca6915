package models

import "time"

// BlockTemplate holds the user-defined fields of a time block. A template is
// written once at series creation; every generated instance starts as a copy
// of it.
type BlockTemplate struct {
	Title     string `json:"title"`
	Category  string `json:"category,omitempty"`
	StartTime string `json:"startTime"` // "HH:MM", 24-hour clock
	EndTime   string `json:"endTime"`   // "HH:MM", 24-hour clock
	GoalID    string `json:"goalId,omitempty"`
}

// BlockInstance is one concrete occurrence of a block on a calendar date.
// Instances of the same series share SeriesID; after materialization each
// instance is mutated independently of its template.
type BlockInstance struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Category     string `json:"category,omitempty"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	GoalID       string `json:"goalId,omitempty"`
	Recurring    bool   `json:"recurring"`
	SeriesID     string `json:"seriesId,omitempty"`
	Completed    bool   `json:"completed"`
	OriginalDate string `json:"originalDate,omitempty"` // YYYY-MM-DD the instance was generated for
}

// FromTemplate copies the template fields into the instance, leaving
// identity and state fields untouched.
func (b *BlockInstance) FromTemplate(t BlockTemplate) {
	b.Title = t.Title
	b.Category = t.Category
	b.StartTime = t.StartTime
	b.EndTime = t.EndTime
	b.GoalID = t.GoalID
}

// BlockChanges is a partial update applied to one or more instances. Nil
// fields are left unchanged.
type BlockChanges struct {
	Title     *string `json:"title,omitempty"`
	Category  *string `json:"category,omitempty"`
	StartTime *string `json:"startTime,omitempty"`
	EndTime   *string `json:"endTime,omitempty"`
	GoalID    *string `json:"goalId,omitempty"`
}

// IsEmpty returns true when no field is set.
func (c *BlockChanges) IsEmpty() bool {
	return c == nil || (c.Title == nil && c.Category == nil &&
		c.StartTime == nil && c.EndTime == nil && c.GoalID == nil)
}

// Apply mutates the instance with the non-nil fields of the change set.
func (c *BlockChanges) Apply(b *BlockInstance) {
	if c == nil {
		return
	}
	if c.Title != nil {
		b.Title = *c.Title
	}
	if c.Category != nil {
		b.Category = *c.Category
	}
	if c.StartTime != nil {
		b.StartTime = *c.StartTime
	}
	if c.EndTime != nil {
		b.EndTime = *c.EndTime
	}
	if c.GoalID != nil {
		b.GoalID = *c.GoalID
	}
}

// ApplyTemplate mutates a template with the non-nil fields of the change set.
func (c *BlockChanges) ApplyTemplate(t *BlockTemplate) {
	if c == nil {
		return
	}
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.Category != nil {
		t.Category = *c.Category
	}
	if c.StartTime != nil {
		t.StartTime = *c.StartTime
	}
	if c.EndTime != nil {
		t.EndTime = *c.EndTime
	}
	if c.GoalID != nil {
		t.GoalID = *c.GoalID
	}
}

// Schedule is one user's block list for a single calendar date. The
// (UserID, Date) pair is the document key; Instances is unordered and unique
// by instance ID.
type Schedule struct {
	UserID    string          `json:"userId" db:"user_id"`
	Date      string          `json:"date" db:"date"` // YYYY-MM-DD
	Instances []BlockInstance `json:"instances" db:"instances"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// SeriesIDs returns the set of series identifiers present in the document,
// used to keep re-materialization idempotent.
func (s *Schedule) SeriesIDs() map[string]bool {
	ids := make(map[string]bool, len(s.Instances))
	for _, b := range s.Instances {
		if b.SeriesID != "" {
			ids[b.SeriesID] = true
		}
	}
	return ids
}

// FindInstance returns the index of the instance with the given ID, or -1.
func (s *Schedule) FindInstance(id string) int {
	for i := range s.Instances {
		if s.Instances[i].ID == id {
			return i
		}
	}
	return -1
}
