package dto

// CreateBatchRequest captures POST /batches payload. Recurrence uses the
// compact "MON 17:00-18:00; THU 17:00-18:00" notation.
type CreateBatchRequest struct {
	Name         string  `json:"name" binding:"required"`
	InstrumentID string  `json:"instrumentId" binding:"required"`
	TeacherID    *string `json:"teacherId,omitempty"`
	Recurrence   string  `json:"recurrence" binding:"required"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	Capacity     int     `json:"capacity"`
}

// UpdateBatchRequest captures PUT /batches/:id payload.
type UpdateBatchRequest struct {
	Name         string  `json:"name" binding:"required"`
	InstrumentID string  `json:"instrumentId" binding:"required"`
	TeacherID    *string `json:"teacherId,omitempty"`
	Recurrence   string  `json:"recurrence" binding:"required"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	Capacity     int     `json:"capacity"`
	Active       *bool   `json:"active,omitempty"`
}
