package models

import "time"

// AttendanceStatus is the per-student mark for a session. Only a present
// mark consumes a purchased class credit.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceExcused:
		return true
	default:
		return false
	}
}

// Attendance is one (student, batch, date) mark. At most one row exists per
// triple; later writes overwrite.
type Attendance struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	BatchID     string           `db:"batch_id" json:"batch_id"`
	SessionDate time.Time        `db:"session_date" json:"session_date"`
	Status      AttendanceStatus `db:"status" json:"status"`
	Notes       *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes student attendance queries.
type AttendanceFilter struct {
	StudentID string
	BatchID   string
	Status    *AttendanceStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// SessionStatus is a teacher-side mark for a scheduled or ad hoc session,
// distinct from the per-student present/absent/excused status.
type SessionStatus string

const (
	SessionConducted    SessionStatus = "conducted"
	SessionNotConducted SessionStatus = "not_conducted"
)

// Valid returns true when the status is a supported value.
func (s SessionStatus) Valid() bool {
	return s == SessionConducted || s == SessionNotConducted
}

// SessionReason tags a teacher mark recorded on a day with no scheduled
// batch for that teacher.
type SessionReason string

const (
	ReasonCompensation SessionReason = "compensation"
	ReasonExtra        SessionReason = "extra"
	ReasonTrial        SessionReason = "trial"
	ReasonOther        SessionReason = "other"
)

// Valid returns true when the reason is a supported value.
func (r SessionReason) Valid() bool {
	switch r {
	case ReasonCompensation, ReasonExtra, ReasonTrial, ReasonOther:
		return true
	default:
		return false
	}
}

// TeacherAttendance is one (teacher, batch, date) conducted/not-conducted
// mark. Reason is set only for unscheduled sessions.
type TeacherAttendance struct {
	ID          string         `db:"id" json:"id"`
	TeacherID   string         `db:"teacher_id" json:"teacher_id"`
	BatchID     string         `db:"batch_id" json:"batch_id"`
	SessionDate time.Time      `db:"session_date" json:"session_date"`
	Status      SessionStatus  `db:"status" json:"status"`
	Reason      *SessionReason `db:"reason" json:"reason,omitempty"`
	Notes       *string        `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// TeacherAttendanceFilter scopes teacher attendance queries.
type TeacherAttendanceFilter struct {
	TeacherID string
	BatchID   string
	Status    *SessionStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}
