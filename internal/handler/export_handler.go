package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorbill/tutorbill-api/internal/service"
	"github.com/tutorbill/tutorbill-api/pkg/response"
)

// ExportHandler exposes downloadable billing statements.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Statement streams the monthly billing statement as CSV or PDF.
func (h *ExportHandler) Statement(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	file, err := h.exports.MonthlyStatement(c.Request.Context(), c.Query("month"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
