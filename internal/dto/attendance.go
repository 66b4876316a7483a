package dto

import "github.com/noah-isme/muse-ops-api/internal/models"

// Severity classifications for monthly reconciliation rows. Display-only;
// the delta carries the semantics.
const (
	SeverityCompliant = "compliant"
	SeverityShortOne  = "short_one"
	SeverityShortMany = "short_many"
)

// MonthlyReconciliationRow compares scheduled sessions against conducted
// marks for one month.
type MonthlyReconciliationRow struct {
	Month     string `json:"month"`
	Expected  int    `json:"expected"`
	Conducted int    `json:"conducted"`
	Delta     int    `json:"delta"`
	Severity  string `json:"severity"`
}

// TeacherReconciliationResponse is the teacher compliance payload.
type TeacherReconciliationResponse struct {
	TeacherID        string                     `json:"teacherId"`
	MonthlyBreakdown []MonthlyReconciliationRow `json:"monthlyBreakdown"`
	CurrentMonthRate float64                    `json:"currentMonthRate"`
}

// MarkAttendanceRequest captures a single student attendance mark.
type MarkAttendanceRequest struct {
	StudentID   string                  `json:"studentId" binding:"required"`
	BatchID     string                  `json:"batchId" binding:"required"`
	SessionDate string                  `json:"sessionDate" binding:"required"`
	Status      models.AttendanceStatus `json:"status" binding:"required"`
	Notes       *string                 `json:"notes,omitempty"`
}

// BulkMarkAttendanceRequest upserts several marks for one batch session.
type BulkMarkAttendanceRequest struct {
	BatchID     string                  `json:"batchId" binding:"required"`
	SessionDate string                  `json:"sessionDate" binding:"required"`
	Marks       []StudentAttendanceMark `json:"marks" binding:"required,min=1,dive"`
}

// StudentAttendanceMark is one row of a bulk upsert.
type StudentAttendanceMark struct {
	StudentID string                  `json:"studentId" binding:"required"`
	Status    models.AttendanceStatus `json:"status" binding:"required"`
	Notes     *string                 `json:"notes,omitempty"`
}

// TeacherMarkRequest records a conducted/not-conducted mark. Reason is
// required when the teacher has no batch scheduled on the session date.
type TeacherMarkRequest struct {
	TeacherID   string               `json:"teacherId"`
	BatchID     string               `json:"batchId" binding:"required"`
	SessionDate string               `json:"sessionDate" binding:"required"`
	Status      models.SessionStatus `json:"status" binding:"required"`
	Reason      *string              `json:"reason,omitempty"`
	Notes       *string              `json:"notes,omitempty"`
}
