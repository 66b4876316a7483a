package models

import "time"

// Batch is a recurring class group for a single instrument. TeacherID is
// nil while the batch is unassigned.
type Batch struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	InstrumentID string    `db:"instrument_id" json:"instrument_id"`
	TeacherID    *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Recurrence   string    `db:"recurrence" json:"recurrence"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	Capacity     int       `db:"capacity" json:"capacity"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Segments parses the stored recurrence into structured segments.
func (b Batch) Segments() []RecurrenceSegment {
	return ParseRecurrence(b.Recurrence)
}

// RunsOn reports whether the batch schedule mentions the given weekday.
func (b Batch) RunsOn(day time.Weekday) bool {
	return RecurrenceMatchesDay(b.Recurrence, day)
}

// BatchFilter scopes batch listing queries.
type BatchFilter struct {
	InstrumentID string
	TeacherID    string
	Active       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
