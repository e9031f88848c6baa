package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorbill/tutorbill-api/internal/service"
	"github.com/tutorbill/tutorbill-api/pkg/response"
)

// RolloverHandler exposes the billing rollover endpoint.
type RolloverHandler struct {
	rollover *service.RolloverService
}

// NewRolloverHandler constructs RolloverHandler.
func NewRolloverHandler(rollover *service.RolloverService) *RolloverHandler {
	return &RolloverHandler{rollover: rollover}
}

// Run advances the billing watermark to the current month.
func (h *RolloverHandler) Run(c *gin.Context) {
	result, err := h.rollover.Run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
