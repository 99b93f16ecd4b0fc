package handlers

import (
	"net/http"
	"strconv"

	"github.com/fraudsight/fraudsight/pkg"
	"github.com/fraudsight/fraudsight/pkg/utils"
	"github.com/fraudsight/fraudsight/services/fraud-api/internal/services"
	"github.com/fraudsight/fraudsight/services/fraud-api/internal/views"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ModelHandler struct {
	logger  *zap.Logger
	service services.TrainingService
}

func NewModelHandler(logger *zap.Logger, svc services.TrainingService) *ModelHandler {
	return &ModelHandler{logger: logger, service: svc}
}

func (h *ModelHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/train", h.Train)
	r.GET("/model/status", h.Status)
}

func (h *ModelHandler) Train(c *gin.Context) {
	traceID, _ := utils.GetTraceID(c)

	epochs := 0
	if raw := c.Query("epochs"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, pkg.ErrorResponse{
				Code:    pkg.ErrInvalidInputCode.Code,
				Message: "epochs must be a positive integer",
			})
			return
		}
		epochs = parsed
	}

	result, err := h.service.Train(c.Request.Context(), traceID, epochs)
	if err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		c.JSON(resp.Status, resp)
		return
	}
	c.JSON(http.StatusOK, views.APIResponse{Data: result})
}

func (h *ModelHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, views.APIResponse{Data: h.service.Status(c.Request.Context())})
}
