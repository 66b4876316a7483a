package dto

// CreateStudentRequest captures POST /students payload.
type CreateStudentRequest struct {
	FullName string  `json:"fullName" binding:"required"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Guardian *string `json:"guardian,omitempty"`
}

// UpdateStudentRequest captures PUT /students/:id payload.
type UpdateStudentRequest struct {
	FullName string  `json:"fullName" binding:"required"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Guardian *string `json:"guardian,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

// EnrollStudentRequest places a student in a batch under a payment plan.
type EnrollStudentRequest struct {
	BatchID      string `json:"batchId" binding:"required"`
	InstrumentID string `json:"instrumentId"`
	Frequency    string `json:"paymentFrequency"`
	EnrolledOn   string `json:"enrolledOn"`
}
