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

// RentalHandler exposes rental ledger endpoints.
type RentalHandler struct {
	service *service.RentalService
}

// NewRentalHandler constructs a rental handler.
func NewRentalHandler(svc *service.RentalService) *RentalHandler {
	return &RentalHandler{service: svc}
}

// List godoc
// @Summary List rentals
// @Description List rentals with overdue status computed at read time. Students only see their own rentals.
// @Tags Rentals
// @Produce json
// @Param isReturned query bool false "Filter by returned flag"
// @Param equipmentId query string false "Filter by equipment"
// @Param semesterId query string false "Filter by semester"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /rentals [get]
func (h *RentalHandler) List(c *gin.Context) {
	user := profileFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.RentalFilter
	if isReturned := c.Query("isReturned"); isReturned != "" {
		if val, err := strconv.ParseBool(isReturned); err == nil {
			filter.IsReturned = &val
		}
	}
	filter.EquipmentID = c.Query("equipmentId")
	filter.SemesterID = c.Query("semesterId")
	if user.Role == models.RoleStudent {
		filter.StudentID = user.ID
	} else {
		filter.StudentID = c.Query("studentId")
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	rentals, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rentals, pagination)
}

// Overdue godoc
// @Summary List overdue rentals
// @Description Open rentals past their due date, most overdue first
// @Tags Rentals
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rentals/overdue [get]
func (h *RentalHandler) Overdue(c *gin.Context) {
	rentals, err := h.service.ListOverdue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rentals, nil)
}

// OverdueCount godoc
// @Summary Count overdue rentals
// @Tags Rentals
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rentals/overdue/count [get]
func (h *RentalHandler) OverdueCount(c *gin.Context) {
	// Badge count. Students get a zero instead of a role error.
	if user := profileFromContext(c); user != nil && user.Role == models.RoleStudent {
		response.JSON(c, http.StatusOK, gin.H{"count": 0}, nil)
		return
	}
	count, err := h.service.CountOverdue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"count": count}, nil)
}

// Get godoc
// @Summary Get rental
// @Tags Rentals
// @Produce json
// @Param id path string true "Rental ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rentals/{id} [get]
func (h *RentalHandler) Get(c *gin.Context) {
	user := profileFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	rental, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if user.Role == models.RoleStudent && rental.StudentID != user.ID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, rental, nil)
}

// Create godoc
// @Summary Open rental directly
// @Description Open a rental on behalf of a student, skipping the request workflow
// @Tags Rentals
// @Accept json
// @Produce json
// @Param payload body service.CreateRentalRequest true "Rental payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /rentals [post]
func (h *RentalHandler) Create(c *gin.Context) {
	user := profileFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rental payload"))
		return
	}

	rental, err := h.service.Create(c.Request.Context(), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rental)
}

// Return godoc
// @Summary Return rental
// @Description Close a rental, release inventory and freeze the late fee
// @Tags Rentals
// @Accept json
// @Produce json
// @Param id path string true "Rental ID"
// @Param payload body service.ReturnRentalRequest false "Return payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rentals/{id}/return [post]
func (h *RentalHandler) Return(c *gin.Context) {
	user := profileFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ReturnRentalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid return payload"))
			return
		}
	}

	rental, err := h.service.Return(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rental, nil)
}
