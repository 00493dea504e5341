package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a company account. Registration joins an existing tenant by name.
type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
