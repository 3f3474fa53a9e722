package models

import "time"

// Rental represents an open or closed equipment loan. A rental is created open
// and closed exactly once; it is never reopened.
type Rental struct {
	ID          string     `db:"id" json:"id"`
	StudentID   string     `db:"student_id" json:"student_id"`
	EquipmentID string     `db:"equipment_id" json:"equipment_id"`
	SemesterID  string     `db:"semester_id" json:"semester_id"`
	RequestID   *string    `db:"request_id" json:"request_id,omitempty"`
	Quantity    int        `db:"quantity" json:"quantity"`
	StartDate   time.Time  `db:"start_date" json:"start_date"`
	DueDate     time.Time  `db:"due_date" json:"due_date"`
	ReturnDate  *time.Time `db:"return_date" json:"return_date,omitempty"`
	LateFee     *int64     `db:"late_fee" json:"late_fee,omitempty"`
	IsReturned  bool       `db:"is_returned" json:"is_returned"`
	RentedBy    string     `db:"rented_by" json:"rented_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// RentalDetail joins display fields plus the overdue projection computed at
// read time.
type RentalDetail struct {
	Rental
	StudentName       string `db:"student_name" json:"student_name"`
	EquipmentName     string `db:"equipment_name" json:"equipment_name"`
	SemesterName      string `db:"semester_name" json:"semester_name"`
	RentedByName      string `db:"rented_by_name" json:"rented_by_name"`
	IsOverdue         bool   `db:"-" json:"is_overdue"`
	OverdueDays       int    `db:"-" json:"overdue_days"`
	CalculatedLateFee int64  `db:"-" json:"calculated_late_fee"`
}

// RentalFilter defines filters supported by rental list endpoints.
type RentalFilter struct {
	StudentID   string
	EquipmentID string
	SemesterID  string
	IsReturned  *bool
	Page        int
	PageSize    int
}

// OverdueProjection is the real-time overdue status of a rental. The values
// are derived from the due date on every read and only persisted when the
// rental is closed.
type OverdueProjection struct {
	IsOverdue    bool  `json:"is_overdue"`
	OverdueDays  int   `json:"overdue_days"`
	ProjectedFee int64 `json:"projected_fee"`
}

// ProjectOverdue computes the overdue status of an open rental at the given
// instant. Overdue days round up: any partial day past the due date counts as
// a full day. Closed rentals never project as overdue.
func ProjectOverdue(dueDate time.Time, isReturned bool, now time.Time, dailyRate int64) OverdueProjection {
	if isReturned || !now.After(dueDate) {
		return OverdueProjection{}
	}
	elapsed := now.Sub(dueDate)
	days := int(elapsed / (24 * time.Hour))
	if elapsed%(24*time.Hour) > 0 {
		days++
	}
	return OverdueProjection{
		IsOverdue:    true,
		OverdueDays:  days,
		ProjectedFee: int64(days) * dailyRate,
	}
}
