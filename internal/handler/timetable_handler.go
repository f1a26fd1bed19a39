package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadsync/timetable-api/internal/dto"
	"github.com/acadsync/timetable-api/internal/middleware"
	"github.com/acadsync/timetable-api/internal/service"
	appErrors "github.com/acadsync/timetable-api/pkg/errors"
	"github.com/acadsync/timetable-api/pkg/export"
	"github.com/acadsync/timetable-api/pkg/response"
)

// TimetableHandler handles generation, stored timetables, and exports.
type TimetableHandler struct {
	service *service.TimetableService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
}

// NewTimetableHandler constructs a timetable handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{
		service: svc,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
	}
}

// Generate godoc
// @Summary Run the allocation engine for a scope
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRequest false "Generation options"
// @Success 200 {object} response.Envelope
// @Router /departments/{dept}/semesters/{sem}/timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	scope, err := scopeFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	userID := middleware.UserID(c)
	result, err := h.service.Generate(c.Request.Context(), scope, req, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if req.Async {
		response.JSON(c, http.StatusAccepted, dto.EnqueuedResponse{Status: "queued"})
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// List godoc
// @Summary List persisted timetables for a scope
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments/{dept}/semesters/{sem}/timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	scope, err := scopeFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	timetables, err := h.service.List(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetables)
}

// Get godoc
// @Summary Get a persisted timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	timetable, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable)
}

// Delete godoc
// @Summary Delete a persisted timetable
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportCSV godoc
// @Summary Download the current grid as CSV
// @Tags Timetables
// @Produce text/csv
// @Success 200
// @Router /departments/{dept}/semesters/{sem}/timetable/export/csv [get]
func (h *TimetableHandler) ExportCSV(c *gin.Context) {
	sheet, err := h.sheetForScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := h.csv.Render(sheet)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="timetable.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// ExportPDF godoc
// @Summary Download the current grid as PDF
// @Tags Timetables
// @Produce application/pdf
// @Success 200
// @Router /departments/{dept}/semesters/{sem}/timetable/export/pdf [get]
func (h *TimetableHandler) ExportPDF(c *gin.Context) {
	sheet, err := h.sheetForScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := h.pdf.Render(sheet)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="timetable.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *TimetableHandler) sheetForScope(c *gin.Context) (export.Sheet, error) {
	scope, err := scopeFromPath(c)
	if err != nil {
		return export.Sheet{}, err
	}
	return h.service.ExportSheet(c.Request.Context(), scope)
}
