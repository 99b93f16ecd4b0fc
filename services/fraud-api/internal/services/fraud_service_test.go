package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fraudsight/fraudsight/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUpdateAlertStatusValidation(t *testing.T) {
	svc := &FraudServiceImpl{FraudServiceConfig{Logger: zap.NewNop()}}

	err := svc.UpdateAlertStatus(context.Background(), "trace", "not-a-uuid", string(pkg.AlertStatusResolved))
	require.Error(t, err)
	var appErr pkg.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, pkg.ErrInvalidInputCode, appErr.Code)

	err = svc.UpdateAlertStatus(context.Background(), "trace", "9c1f0c3d-2e4a-4b6c-9d8e-1a2b3c4d5e6f", "escalated")
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, pkg.ErrInvalidInputCode, appErr.Code)

	err = svc.UpdateAlertStatus(context.Background(), "trace", "9c1f0c3d-2e4a-4b6c-9d8e-1a2b3c4d5e6f", string(pkg.AlertStatusNew))
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, pkg.ErrInvalidInputCode, appErr.Code)
}
