package models

import "time"

// RequestStatus enumerates the request state machine. PENDING is the only
// non-terminal state.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// Request is a student's petition to borrow equipment. Submission does not
// reserve stock; reservation happens at approval time.
type Request struct {
	ID          string        `db:"id" json:"id"`
	StudentID   string        `db:"student_id" json:"student_id"`
	EquipmentID string        `db:"equipment_id" json:"equipment_id"`
	SemesterID  string        `db:"semester_id" json:"semester_id"`
	Quantity    int           `db:"quantity" json:"quantity"`
	Status      RequestStatus `db:"status" json:"status"`
	Reason      *string       `db:"reason" json:"reason,omitempty"`
	RequestDate time.Time     `db:"request_date" json:"request_date"`
	ReviewedBy  *string       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewDate  *time.Time    `db:"review_date" json:"review_date,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// RequestDetail joins display fields for list endpoints.
type RequestDetail struct {
	Request
	StudentName   string  `db:"student_name" json:"student_name"`
	EquipmentName string  `db:"equipment_name" json:"equipment_name"`
	SemesterName  string  `db:"semester_name" json:"semester_name"`
	ReviewerName  *string `db:"reviewer_name" json:"reviewer_name,omitempty"`
}

// RequestFilter defines filters supported by request list endpoints.
type RequestFilter struct {
	StudentID   string
	EquipmentID string
	SemesterID  string
	Status      RequestStatus
	Page        int
	PageSize    int
}
