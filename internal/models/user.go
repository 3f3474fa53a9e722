package models

import "time"

// UserRole represents the available roles for club access control.
type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleMember  UserRole = "MEMBER"
	RoleAdmin   UserRole = "ADMIN"
)

// User represents a club account stored in the users table. Role and the
// approval flag gate every other operation.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Name         string     `db:"name" json:"name"`
	Role         UserRole   `db:"role" json:"role"`
	IsApproved   bool       `db:"is_approved" json:"is_approved"`
	StudentID    *string    `db:"student_id" json:"student_id,omitempty"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Department   *string    `db:"department" json:"department,omitempty"`
	Year         *string    `db:"year" json:"year,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role       *UserRole
	IsApproved *bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
