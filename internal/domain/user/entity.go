package user

import (
	"time"

	"github.com/google/uuid"
)

// Role of a party. Immutable after creation.
type Role string

const (
	RoleUser   Role = "USER"
	RoleVendor Role = "VENDOR"
	RoleAdmin  Role = "ADMIN"
)

// User is any account holder: end user, vendor or platform admin.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
