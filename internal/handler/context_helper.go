package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/acadsync/timetable-api/internal/models"
	appErrors "github.com/acadsync/timetable-api/pkg/errors"
)

// scopeFromPath reads the department code and semester number path params.
func scopeFromPath(c *gin.Context) (models.Scope, error) {
	department := c.Param("dept")
	semester, err := strconv.Atoi(c.Param("sem"))
	if err != nil {
		return models.Scope{}, appErrors.Clone(appErrors.ErrValidation, "semester must be a number")
	}
	return models.Scope{Department: department, Semester: semester}, nil
}
