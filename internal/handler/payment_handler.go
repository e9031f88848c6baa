package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorbill/tutorbill-api/internal/service"
	appErrors "github.com/tutorbill/tutorbill-api/pkg/errors"
	"github.com/tutorbill/tutorbill-api/pkg/response"
)

// PaymentHandler exposes the billing ledger endpoints.
type PaymentHandler struct {
	billing *service.BillingService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(billing *service.BillingService) *PaymentHandler {
	return &PaymentHandler{billing: billing}
}

// Ledger returns the student's monthly payment entries and derived status.
func (h *PaymentHandler) Ledger(c *gin.Context) {
	ledger, err := h.billing.Ledger(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ledger, nil)
}

// Settle marks every outstanding month as paid.
func (h *PaymentHandler) Settle(c *gin.Context) {
	ledger, err := h.billing.SettleAll(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ledger, nil)
}

// PayMonth records a payment against one billing month.
func (h *PaymentHandler) PayMonth(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	payment, err := h.billing.PayMonth(c.Request.Context(), c.Param("id"), c.Param("month"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Summary returns the cross-student billing summary for one month.
func (h *PaymentHandler) Summary(c *gin.Context) {
	summary, err := h.billing.MonthlySummary(c.Request.Context(), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
