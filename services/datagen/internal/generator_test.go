package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorBuildsUserPool(t *testing.T) {
	g := NewGenerator(1, 10)
	require.Len(t, g.Users(), 10)

	for _, u := range g.Users() {
		assert.NotEmpty(t, u.Name)
		assert.GreaterOrEqual(t, u.RiskScore, 0.0)
		assert.LessOrEqual(t, u.RiskScore, 1.0)
	}
}

func TestGeneratorPoolEmailsAreUnique(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		g := NewGenerator(seed, 100)
		seen := map[string]bool{}
		for _, u := range g.Users() {
			assert.NotEmpty(t, u.Email)
			assert.False(t, seen[u.Email], "seed %d: duplicate email %s", seed, u.Email)
			seen[u.Email] = true
		}
	}
}

func TestGeneratorDefaultsPoolSize(t *testing.T) {
	g := NewGenerator(1, 0)
	assert.Len(t, g.Users(), 100)
}

func TestTransactionsReuseThePool(t *testing.T) {
	g := NewGenerator(7, 3)
	poolIDs := map[string]bool{}
	for _, u := range g.Users() {
		poolIDs[u.ID.String()] = true
	}

	for i := 0; i < 50; i++ {
		tx := g.Transaction()
		assert.True(t, poolIDs[tx.UserID], "user %s not in pool", tx.UserID)
	}
}

func TestTransactionShape(t *testing.T) {
	g := NewGenerator(42, 5)
	tx := g.Transaction()

	assert.NotEmpty(t, tx.ID)
	require.Len(t, tx.Features, FeatureCount)
	assert.Equal(t, tx.Amount, tx.Features[0])
	assert.GreaterOrEqual(t, tx.Amount, 10.0)
	assert.LessOrEqual(t, tx.Amount, 10000.0)
	assert.Contains(t, []int32{0, 1}, tx.Label)

	ts, err := time.Parse(time.RFC3339Nano, tx.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestHistoricalTransactionsLandInThePast(t *testing.T) {
	g := NewGenerator(3, 5)
	earliest := time.Now().Add(-31 * 24 * time.Hour)

	for i := 0; i < 20; i++ {
		tx := g.HistoricalTransaction()
		ts, err := time.Parse(time.RFC3339Nano, tx.Timestamp)
		require.NoError(t, err)
		assert.True(t, ts.After(earliest), "timestamp too old: %s", tx.Timestamp)
		assert.True(t, ts.Before(time.Now().Add(time.Minute)))
	}
}

func TestDelayBounds(t *testing.T) {
	g := NewGenerator(9, 1)
	for i := 0; i < 100; i++ {
		d := g.Delay()
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 2*time.Second)
	}
}
