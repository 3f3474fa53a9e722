package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusclub/gear-rental-api/internal/models"
	"github.com/campusclub/gear-rental-api/internal/service"
	"github.com/campusclub/gear-rental-api/pkg/response"
)

// ExportHandler streams rendered reports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Rentals godoc
// @Summary Export rental ledger
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param isReturned query bool false "Filter by returned flag"
// @Param semesterId query string false "Filter by semester"
// @Success 200 {file} binary
// @Router /export/rentals [get]
func (h *ExportHandler) Rentals(c *gin.Context) {
	var filter models.RentalFilter
	if isReturned := c.Query("isReturned"); isReturned != "" {
		if val, err := strconv.ParseBool(isReturned); err == nil {
			filter.IsReturned = &val
		}
	}
	filter.SemesterID = c.Query("semesterId")

	result, err := h.service.Rentals(c.Request.Context(), filter, exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	stream(c, result)
}

// Inventory godoc
// @Summary Export equipment inventory
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param category query string false "Filter by category"
// @Success 200 {file} binary
// @Router /export/inventory [get]
func (h *ExportHandler) Inventory(c *gin.Context) {
	var filter models.EquipmentFilter
	filter.Category = c.Query("category")

	result, err := h.service.Inventory(c.Request.Context(), filter, exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	stream(c, result)
}

// AuditLog godoc
// @Summary Export audit history
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param action query string false "Filter by action"
// @Param limit query int false "Max entries"
// @Success 200 {file} binary
// @Router /export/audit [get]
func (h *ExportHandler) AuditLog(c *gin.Context) {
	var filter models.AuditFilter
	filter.Action = c.Query("action")
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil {
		filter.Limit = limit
	}

	result, err := h.service.AuditLog(c.Request.Context(), filter, exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	stream(c, result)
}

func exportFormat(c *gin.Context) service.ExportFormat {
	return service.ExportFormat(c.DefaultQuery("format", "csv"))
}

func stream(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(200, result.ContentType, result.Payload)
}
