package internal

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/fraudsight/fraudsight/pkg/models"
	"github.com/fraudsight/fraudsight/pkg/views"
	"github.com/google/uuid"
)

// FeatureCount is the width of a generated feature vector:
// amount, time_of_day, day_of_week, amount_deviation, location_deviation,
// user_risk_score.
const FeatureCount = 6

// Generator produces synthetic users and transactions. Transactions draw from
// a fixed user pool so repeated user activity shows up as graph structure.
type Generator struct {
	rng   *rand.Rand
	users []models.User
}

func NewGenerator(seed int64, numUsers int) *Generator {
	if numUsers < 1 {
		numUsers = 100
	}
	g := &Generator{rng: rand.New(rand.NewSource(seed))}
	g.users = make([]models.User, numUsers)
	for i := range g.users {
		g.users[i] = g.user(i)
	}
	return g
}

func (g *Generator) Users() []models.User {
	return g.users
}

// user derives the email from the pool index so the pool never trips the
// unique email constraint.
func (g *Generator) user(i int) models.User {
	now := time.Now()
	return models.User{
		ID:        uuid.New(),
		Name:      fmt.Sprintf("User_%d", i+1),
		Email:     fmt.Sprintf("user_%d@example.com", i+1),
		RiskScore: g.rng.Float64(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transaction generates one event for a random pool user, timestamped now.
func (g *Generator) Transaction() views.TransactionEvent {
	return g.transactionAt(time.Now())
}

// HistoricalTransaction generates one event up to 30 days in the past, for
// seeding.
func (g *Generator) HistoricalTransaction() views.TransactionEvent {
	offset := time.Duration(g.rng.Intn(30*24)) * time.Hour
	return g.transactionAt(time.Now().Add(-offset))
}

func (g *Generator) transactionAt(ts time.Time) views.TransactionEvent {
	user := g.users[g.rng.Intn(len(g.users))]
	amount := 10 + g.rng.Float64()*9990

	features := []float64{
		amount,
		g.rng.Float64(), // time_of_day
		g.rng.Float64(), // day_of_week
		g.rng.Float64(), // amount_deviation
		g.rng.Float64(), // location_deviation
		user.RiskScore,
	}

	return views.TransactionEvent{
		ID:        uuid.New().String(),
		UserID:    user.ID.String(),
		Amount:    amount,
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Features:  features,
		Label:     int32(g.rng.Intn(2)),
	}
}

// Delay returns a pause between generated transactions, 100ms to 2s.
func (g *Generator) Delay() time.Duration {
	return 100*time.Millisecond + time.Duration(g.rng.Int63n(int64(1900*time.Millisecond)))
}
