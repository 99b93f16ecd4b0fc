package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User maps to table `users`
type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	RiskScore float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlaceholderUser builds the row auto-created when a transaction references
// an unknown user id. The email is derived from the id so concurrent
// auto-creates never collide on the unique email constraint.
func PlaceholderUser(id uuid.UUID, now time.Time) User {
	return User{
		ID:        id,
		Name:      "unknown",
		Email:     fmt.Sprintf("%s@unknown.fraudsight", id),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
