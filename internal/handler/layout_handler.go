package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadsync/timetable-api/internal/dto"
	"github.com/acadsync/timetable-api/internal/service"
	appErrors "github.com/acadsync/timetable-api/pkg/errors"
	"github.com/acadsync/timetable-api/pkg/response"
)

// LayoutHandler handles layout endpoints.
type LayoutHandler struct {
	service *service.LayoutService
}

// NewLayoutHandler constructs a layout handler.
func NewLayoutHandler(svc *service.LayoutService) *LayoutHandler {
	return &LayoutHandler{service: svc}
}

// Build godoc
// @Summary Build and store the slot layout for a scope
// @Tags Layout
// @Accept json
// @Produce json
// @Param payload body dto.LayoutRequest true "Layout payload"
// @Success 201 {object} response.Envelope
// @Router /departments/{dept}/semesters/{sem}/layout [put]
func (h *LayoutHandler) Build(c *gin.Context) {
	scope, err := scopeFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.LayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	state, err := h.service.Build(c.Request.Context(), scope, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, state)
}

// Get godoc
// @Summary Get the stored layout for a scope
// @Tags Layout
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments/{dept}/semesters/{sem}/layout [get]
func (h *LayoutHandler) Get(c *gin.Context) {
	scope, err := scopeFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	state, err := h.service.Get(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state)
}

// Clear godoc
// @Summary Drop the stored layout, assignments, and busy maps for a scope
// @Tags Layout
// @Success 204
// @Router /departments/{dept}/semesters/{sem}/layout [delete]
func (h *LayoutHandler) Clear(c *gin.Context) {
	scope, err := scopeFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Clear(c.Request.Context(), scope); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
