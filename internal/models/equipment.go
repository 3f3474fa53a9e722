package models

import "time"

// Equipment models a rentable inventory item. The invariant
// 0 <= available_quantity <= total_quantity holds at all times; the schema
// enforces it with a CHECK constraint and mutations go through conditional
// updates in the repository.
type Equipment struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Category          string    `db:"category" json:"category"`
	Description       *string   `db:"description" json:"description,omitempty"`
	TotalQuantity     int       `db:"total_quantity" json:"total_quantity"`
	AvailableQuantity int       `db:"available_quantity" json:"available_quantity"`
	IsActive          bool      `db:"is_active" json:"is_active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// EquipmentFilter defines filters supported by equipment list endpoints.
type EquipmentFilter struct {
	Category  string
	IsActive  *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
