package models

import "time"

// Series is the persisted record of a recurring block: the template and rule
// captured at creation time. Instances never point back at it; they carry
// its ID as a tag and series-wide operations are scans over schedule
// documents filtered by that tag.
type Series struct {
	ID        string         `json:"id" db:"id"`
	UserID    string         `json:"userId" db:"user_id"`
	Template  BlockTemplate  `json:"template" db:"template"`
	Rule      RecurrenceRule `json:"rule" db:"rule"`
	StartDate string         `json:"startDate" db:"start_date"` // YYYY-MM-DD
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}
