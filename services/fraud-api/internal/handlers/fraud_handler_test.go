package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fraudsight/fraudsight/pkg"
	"github.com/fraudsight/fraudsight/pkg/graphrag"
	middleware "github.com/fraudsight/fraudsight/pkg/middlewares"
	pkgviews "github.com/fraudsight/fraudsight/pkg/views"
	"github.com/fraudsight/fraudsight/services/fraud-api/internal/views"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFraudService struct {
	prediction graphrag.Prediction
	err        error

	gotEvent     pkgviews.TransactionEvent
	gotThreshold float64
	gotLimit     int
	gotAlertID   string
	gotStatus    string
	transactions []views.TransactionResponse
	alerts       []views.AlertResponse
}

func (f *fakeFraudService) Predict(_ context.Context, _ string, event pkgviews.TransactionEvent) (graphrag.Prediction, error) {
	f.gotEvent = event
	return f.prediction, f.err
}

func (f *fakeFraudService) GetTransaction(_ context.Context, _ string, id string) (views.TransactionResponse, error) {
	if f.err != nil {
		return views.TransactionResponse{}, f.err
	}
	return views.TransactionResponse{ID: id}, nil
}

func (f *fakeFraudService) ListUserTransactions(_ context.Context, _ string, _ string, limit int) ([]views.TransactionResponse, error) {
	f.gotLimit = limit
	return f.transactions, f.err
}

func (f *fakeFraudService) ListAlerts(_ context.Context, _ string, threshold float64, limit int) ([]views.AlertResponse, error) {
	f.gotThreshold = threshold
	f.gotLimit = limit
	return f.alerts, f.err
}

func (f *fakeFraudService) UpdateAlertStatus(_ context.Context, _ string, alertID string, status string) error {
	f.gotAlertID = alertID
	f.gotStatus = status
	return f.err
}

func fraudRouter(svc *fakeFraudService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.TraceID())
	NewFraudHandler(zap.NewNop(), svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

const predictBody = `{
	"id": "3f2a9d9e-9c2b-4f6e-8a3f-0d5b1c2e4a6b",
	"user_id": "7b1f0c3d-2e4a-4b6c-9d8e-1a2b3c4d5e6f",
	"amount": 120.5,
	"timestamp": "2025-01-15T10:00:00Z",
	"features": [120.5, 0.4, 2, 0.1, 0.0, 0.3],
	"label": 0
}`

func TestPredictReturnsScore(t *testing.T) {
	svc := &fakeFraudService{prediction: graphrag.Prediction{
		TransactionID:    "3f2a9d9e-9c2b-4f6e-8a3f-0d5b1c2e4a6b",
		FraudProbability: 0.83,
		IsFraudulent:     true,
	}}
	router := fraudRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(predictBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(pkg.HeaderTraceId))

	var resp struct {
		Data graphrag.Prediction `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0.83, resp.Data.FraudProbability)
	assert.True(t, resp.Data.IsFraudulent)
	assert.Equal(t, 120.5, svc.gotEvent.Amount)
}

func TestPredictRejectsMalformedBody(t *testing.T) {
	router := fraudRouter(&fakeFraudService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(`{"id":`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), pkg.ErrInvalidInputCode.Code)
}

func TestPredictMapsAppErrors(t *testing.T) {
	svc := &fakeFraudService{err: pkg.NewAppError(pkg.ErrRateLimitedCode, "scoring rate limit exceeded", pkg.ErrRateLimitExceeded)}
	router := fraudRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(predictBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), pkg.ErrRateLimitedCode.Code)
}

func TestGetTransactionNotFound(t *testing.T) {
	svc := &fakeFraudService{err: pkg.NewAppError(pkg.ErrRecordNotFoundCode, "no records found", nil)}
	router := fraudRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transaction/3f2a9d9e-9c2b-4f6e-8a3f-0d5b1c2e4a6b", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), pkg.ErrRecordNotFoundCode.Code)
}

func TestListAlertsParsesThreshold(t *testing.T) {
	svc := &fakeFraudService{alerts: []views.AlertResponse{{ID: "a-1", FraudProbability: 0.92}}}
	router := fraudRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?threshold=0.9&limit=10", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.9, svc.gotThreshold)
	assert.Equal(t, 10, svc.gotLimit)
}

func TestListAlertsClampsAndDefaults(t *testing.T) {
	svc := &fakeFraudService{}
	router := fraudRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?threshold=3.5&limit=-2", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, svc.gotThreshold)
	assert.Equal(t, defaultListLimit, svc.gotLimit)
}

func TestListAlertsRejectsNonNumericThreshold(t *testing.T) {
	router := fraudRouter(&fakeFraudService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?threshold=high", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateAlertStatus(t *testing.T) {
	svc := &fakeFraudService{}
	router := fraudRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/alerts/9c1f0c3d-2e4a-4b6c-9d8e-1a2b3c4d5e6f/status",
		strings.NewReader(`{"status":"acknowledged"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "9c1f0c3d-2e4a-4b6c-9d8e-1a2b3c4d5e6f", svc.gotAlertID)
	assert.Equal(t, string(pkg.AlertStatusAcknowledged), svc.gotStatus)
}

func TestUpdateAlertStatusRequiresStatus(t *testing.T) {
	router := fraudRouter(&fakeFraudService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/alerts/9c1f0c3d-2e4a-4b6c-9d8e-1a2b3c4d5e6f/status",
		strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), pkg.ErrInvalidInputCode.Code)
}

func TestUpdateAlertStatusUnknownAlert(t *testing.T) {
	svc := &fakeFraudService{err: pkg.NewAppError(pkg.ErrRecordNotFoundCode, "alert not found", nil)}
	router := fraudRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/alerts/9c1f0c3d-2e4a-4b6c-9d8e-1a2b3c4d5e6f/status",
		strings.NewReader(`{"status":"resolved"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), pkg.ErrRecordNotFoundCode.Code)
}

func TestListUserTransactionsDefaultsLimit(t *testing.T) {
	svc := &fakeFraudService{transactions: []views.TransactionResponse{{ID: "t-1"}}}
	router := fraudRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/7b1f0c3d-2e4a-4b6c-9d8e-1a2b3c4d5e6f/transactions", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultListLimit, svc.gotLimit)
}
