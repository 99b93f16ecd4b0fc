package handlers

import (
	"net/http"
	"strconv"

	"github.com/fraudsight/fraudsight/pkg"
	"github.com/fraudsight/fraudsight/pkg/utils"
	pkgviews "github.com/fraudsight/fraudsight/pkg/views"
	"github.com/fraudsight/fraudsight/services/fraud-api/internal/services"
	"github.com/fraudsight/fraudsight/services/fraud-api/internal/views"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultAlertThreshold = 0.7
	defaultListLimit      = 100
)

type FraudHandler struct {
	logger  *zap.Logger
	service services.FraudService
}

func NewFraudHandler(logger *zap.Logger, svc services.FraudService) *FraudHandler {
	return &FraudHandler{logger: logger, service: svc}
}

// RegisterRoutes registers fraud routes on the provided router group.
func (h *FraudHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/predict", h.Predict)
	r.GET("/transaction/:id", h.GetTransaction)
	r.GET("/user/:id/transactions", h.ListUserTransactions)
	r.GET("/alerts", h.ListAlerts)
	r.PATCH("/alerts/:id/status", h.UpdateAlertStatus)
}

func (h *FraudHandler) Predict(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, pkg.ErrorResponse{
			Code:    pkg.ErrServerCode.Code,
			Message: err.Error(),
		})
		return
	}

	var event pkgviews.TransactionEvent
	if err = c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, pkg.ErrorResponse{
			Code:    pkg.ErrInvalidInputCode.Code,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	pred, err := h.service.Predict(c.Request.Context(), traceID, event)
	if err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		c.JSON(resp.Status, resp)
		return
	}

	c.JSON(http.StatusOK, views.APIResponse{Data: pred})
}

func (h *FraudHandler) GetTransaction(c *gin.Context) {
	traceID, _ := utils.GetTraceID(c)

	txn, err := h.service.GetTransaction(c.Request.Context(), traceID, c.Param("id"))
	if err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		c.JSON(resp.Status, resp)
		return
	}
	c.JSON(http.StatusOK, views.APIResponse{Data: txn})
}

func (h *FraudHandler) ListUserTransactions(c *gin.Context) {
	traceID, _ := utils.GetTraceID(c)

	limit := queryInt(c, "limit", defaultListLimit)
	txns, err := h.service.ListUserTransactions(c.Request.Context(), traceID, c.Param("id"), limit)
	if err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		c.JSON(resp.Status, resp)
		return
	}
	c.JSON(http.StatusOK, views.APIResponse{Data: txns})
}

func (h *FraudHandler) ListAlerts(c *gin.Context) {
	traceID, _ := utils.GetTraceID(c)

	threshold := defaultAlertThreshold
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, pkg.ErrorResponse{
				Code:    pkg.ErrInvalidInputCode.Code,
				Message: "threshold must be a number",
			})
			return
		}
		threshold = utils.Clamp01(parsed)
	}

	limit := queryInt(c, "limit", defaultListLimit)
	alerts, err := h.service.ListAlerts(c.Request.Context(), traceID, threshold, limit)
	if err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		c.JSON(resp.Status, resp)
		return
	}
	c.JSON(http.StatusOK, views.APIResponse{Data: alerts})
}

func (h *FraudHandler) UpdateAlertStatus(c *gin.Context) {
	traceID, _ := utils.GetTraceID(c)

	var body views.AlertStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, pkg.ErrorResponse{
			Code:    pkg.ErrInvalidInputCode.Code,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	if err := h.service.UpdateAlertStatus(c.Request.Context(), traceID, c.Param("id"), body.Status); err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		c.JSON(resp.Status, resp)
		return
	}
	c.JSON(http.StatusOK, views.APIResponse{Data: gin.H{"id": c.Param("id"), "status": body.Status}})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
