package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced by transactional workflow methods. Services map
// these onto the API error taxonomy.
var (
	ErrInsufficientStock = errors.New("insufficient equipment available")
	ErrInvalidAdjustment = errors.New("adjustment would drive available quantity negative")
	ErrRequestNotPending = errors.New("request is not pending")
	ErrAlreadyReturned   = errors.New("rental already returned")
	ErrDuplicatePending  = errors.New("pending request already exists for this equipment")
	ErrDuplicateCode     = errors.New("semester code already exists")
)

// isUniqueViolation reports whether err is a postgres unique violation on the
// named constraint. Service-level pre-checks cannot rule these out under
// concurrent writes, so the insert paths map them explicitly.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && pqErr.Constraint == constraint
}
