package utils

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(""))
	assert.False(t, IsEmpty(" "))
	assert.False(t, IsEmpty("value"))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.3))
	assert.Equal(t, 1.0, Clamp01(1.7))
	assert.Equal(t, 0.5, Clamp01(0.5))
	assert.Equal(t, 0.0, Clamp01(0))
	assert.Equal(t, 1.0, Clamp01(1))
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	base := 100 * time.Millisecond
	max := 2 * time.Second

	assert.Equal(t, time.Duration(0), CalculateExponentialBackoffWithJitter(0, base, max))

	// Jitter stays within +-12.5% of the exponential baseline.
	for count := 1; count <= 4; count++ {
		expected := base * time.Duration(1<<(count-1))
		delay := CalculateExponentialBackoffWithJitter(count, base, max)
		assert.GreaterOrEqual(t, delay, expected-expected/8, "count %d", count)
		assert.LessOrEqual(t, delay, expected+expected/8, "count %d", count)
	}

	assert.Equal(t, max, CalculateExponentialBackoffWithJitter(12, base, max))
}

func TestFormatConfigErrors(t *testing.T) {
	type cfg struct {
		Port  int    `mapstructure:"PORT" validate:"required"`
		DBURL string `mapstructure:"DATABASE_URL" validate:"required"`
	}

	err := validator.New().Struct(cfg{})
	require.Error(t, err)

	formatted := FormatConfigErrors(zap.NewNop(), err, cfg{})
	require.Error(t, formatted)
	assert.ErrorContains(t, formatted, "2 invalid value(s)")
}

func TestFormatConfigErrorsPassesThroughPlainErrors(t *testing.T) {
	plain := assert.AnError
	assert.Equal(t, plain, FormatConfigErrors(zap.NewNop(), plain, struct{}{}))
}
