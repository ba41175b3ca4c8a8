package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Versioned is embedded by entities guarded by optimistic concurrency.
type Versioned struct {
	Version int64 `json:"version" db:"version"`
}

// Pagination represents common pagination query parameters
type Pagination struct {
	Page          int    `form:"page,default=0"`
	Size          int    `form:"size,default=10"`
	SortBy        string `form:"sortBy,default=id"`
	SortDirection string `form:"sortDirection,default=ASC"`
}
