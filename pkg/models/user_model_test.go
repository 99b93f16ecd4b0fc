package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPlaceholderUserEmailsAreUnique(t *testing.T) {
	now := time.Now()
	a := PlaceholderUser(uuid.New(), now)
	b := PlaceholderUser(uuid.New(), now)

	assert.NotEmpty(t, a.Email)
	assert.NotEmpty(t, b.Email)
	assert.NotEqual(t, a.Email, b.Email)
	assert.Contains(t, a.Email, a.ID.String())
	assert.Equal(t, "unknown", a.Name)
}

func TestPlaceholderUserIsDeterministicPerID(t *testing.T) {
	id := uuid.New()
	now := time.Now()

	assert.Equal(t, PlaceholderUser(id, now).Email, PlaceholderUser(id, now).Email)
}
