package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutType selects the compensation model for a teacher.
type PayoutType string

const (
	PayoutFixed      PayoutType = "fixed"
	PayoutPerStudent PayoutType = "per_student_monthly"
)

// Valid returns true when the payout type is a supported value.
func (t PayoutType) Valid() bool {
	return t == PayoutFixed || t == PayoutPerStudent
}

// Teacher represents an instructor record.
type Teacher struct {
	ID         string          `db:"id" json:"id"`
	FullName   string          `db:"full_name" json:"full_name"`
	Email      string          `db:"email" json:"email"`
	Phone      *string         `db:"phone" json:"phone,omitempty"`
	PayoutType PayoutType      `db:"payout_type" json:"payout_type"`
	PayoutRate decimal.Decimal `db:"payout_rate" json:"payout_rate"`
	Active     bool            `db:"active" json:"active"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
