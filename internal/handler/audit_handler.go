package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusclub/gear-rental-api/internal/models"
	"github.com/campusclub/gear-rental-api/internal/service"
	appErrors "github.com/campusclub/gear-rental-api/pkg/errors"
	"github.com/campusclub/gear-rental-api/pkg/response"
)

// AuditHandler exposes the audit history endpoints.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs an audit handler.
func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// History godoc
// @Summary Audit history
// @Description Recent audit entries, newest first
// @Tags Audit
// @Produce json
// @Param action query string false "Filter by action"
// @Param actorId query string false "Filter by actor"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) History(c *gin.Context) {
	var filter models.AuditFilter
	filter.Action = c.Query("action")
	filter.ActorID = c.Query("actorId")
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil {
		filter.Limit = limit
	}

	entries, err := h.service.History(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// MyHistory godoc
// @Summary My audit history
// @Description Recent audit entries created by the caller
// @Tags Audit
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /audit/me [get]
func (h *AuditHandler) MyHistory(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	entries, err := h.service.MyHistory(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
