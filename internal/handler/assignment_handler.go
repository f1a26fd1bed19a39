package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadsync/timetable-api/internal/dto"
	"github.com/acadsync/timetable-api/internal/service"
	appErrors "github.com/acadsync/timetable-api/pkg/errors"
	"github.com/acadsync/timetable-api/pkg/response"
)

// AssignmentHandler handles faculty assignment endpoints.
type AssignmentHandler struct {
	service *service.AssignmentService
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(svc *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// Save godoc
// @Summary Replace the faculty assignments for a scope
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.AssignmentsRequest true "Assignments payload"
// @Success 200 {object} response.Envelope
// @Router /departments/{dept}/semesters/{sem}/assignments [put]
func (h *AssignmentHandler) Save(c *gin.Context) {
	scope, err := scopeFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.Save(c.Request.Context(), scope, req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"saved": len(req.Assignments)})
}

// Get godoc
// @Summary Get the stored assignments for a scope
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments/{dept}/semesters/{sem}/assignments [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	scope, err := scopeFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	assignments, err := h.service.Get(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments)
}
