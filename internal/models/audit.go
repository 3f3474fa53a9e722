package models

import (
	"encoding/json"
	"time"
)

// Audit action constants cover every state-changing operation.
const (
	AuditActionRequestSubmitted  = "REQUEST_SUBMITTED"
	AuditActionRequestApproved   = "REQUEST_APPROVED"
	AuditActionRequestRejected   = "REQUEST_REJECTED"
	AuditActionEquipmentRented   = "EQUIPMENT_RENTED"
	AuditActionEquipmentReturned = "EQUIPMENT_RETURNED"
	AuditActionUserRegistered    = "USER_REGISTERED"
	AuditActionUserApproved      = "USER_APPROVED"
	AuditActionUserRejected      = "USER_REJECTED"
	AuditActionEquipmentAdded    = "EQUIPMENT_ADDED"
	AuditActionEquipmentUpdated  = "EQUIPMENT_UPDATED"
	AuditActionSemesterCreated   = "SEMESTER_CREATED"
	AuditActionSemesterUpdated   = "SEMESTER_UPDATED"
)

// AuditLog is an append-only record of one state-changing action. Entries are
// written in the same transaction as the change they describe and are never
// updated or deleted.
type AuditLog struct {
	ID        string          `db:"id" json:"id"`
	ActorID   string          `db:"actor_id" json:"actor_id"`
	Action    string          `db:"action" json:"action"`
	TargetID  *string         `db:"target_id" json:"target_id,omitempty"`
	Details   string          `db:"details" json:"details"`
	Metadata  json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// AuditMetadata carries optional structured context on an audit entry.
type AuditMetadata struct {
	EquipmentName string `json:"equipment_name,omitempty"`
	StudentName   string `json:"student_name,omitempty"`
	Quantity      int    `json:"quantity,omitempty"`
	LateFee       *int64 `json:"late_fee,omitempty"`
}

// AuditLogDetail joins the actor's display name.
type AuditLogDetail struct {
	AuditLog
	ActorName string `db:"actor_name" json:"actor_name"`
}

// AuditFilter bounds audit history reads.
type AuditFilter struct {
	Action  string
	ActorID string
	Limit   int
}
