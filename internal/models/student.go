package models

import "time"

// Student represents a learner registered at the school.
type Student struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Guardian  *string   `db:"guardian" json:"guardian,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Enrollment ties a student to a batch under a payment plan.
type Enrollment struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	BatchID      string           `db:"batch_id" json:"batch_id"`
	InstrumentID string           `db:"instrument_id" json:"instrument_id"`
	Frequency    PaymentFrequency `db:"frequency" json:"payment_frequency"`
	EnrolledOn   time.Time        `db:"enrolled_on" json:"enrolled_on"`
	Active       bool             `db:"active" json:"active"`
}

// StudentDetail bundles a student with their enrollments.
type StudentDetail struct {
	Student
	Enrollments []Enrollment `json:"batches"`
}

// StudentFilter encapsulates search parameters for listing students.
type StudentFilter struct {
	Search    string
	BatchID   string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
