package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadsync/timetable-api/internal/models"
	appErrors "github.com/acadsync/timetable-api/pkg/errors"
)

type departmentRepository interface {
	List(ctx context.Context) ([]models.Department, error)
	FindByCode(ctx context.Context, code string) (*models.Department, error)
	Create(ctx context.Context, department *models.Department) error
	Delete(ctx context.Context, id string) error
}

// CreateDepartmentRequest carries the payload for creating a department.
type CreateDepartmentRequest struct {
	Code      string `json:"code" validate:"required,max=16"`
	Name      string `json:"name" validate:"required,max=128"`
	Semesters int    `json:"semesters" validate:"required,min=1,max=12"`
}

// DepartmentService manages the department catalogue.
type DepartmentService struct {
	repo      departmentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDepartmentService creates a department service.
func NewDepartmentService(repo departmentRepository, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{repo: repo, validator: validate, logger: logger}
}

// List returns every department.
func (s *DepartmentService) List(ctx context.Context) ([]models.Department, error) {
	departments, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to list departments")
	}
	if departments == nil {
		departments = []models.Department{}
	}
	return departments, nil
}

// Create registers a new department after checking the code is unused.
func (s *DepartmentService) Create(ctx context.Context, req CreateDepartmentRequest) (*models.Department, error) {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid department payload")
	}

	if _, err := s.repo.FindByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a department with this code already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to check department code")
	}

	department := &models.Department{
		Code:      req.Code,
		Name:      req.Name,
		Semesters: req.Semesters,
	}
	if err := s.repo.Create(ctx, department); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to create department")
	}

	s.logger.Info("department created", zap.String("code", department.Code))
	return department, nil
}

// Delete removes a department by ID.
func (s *DepartmentService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "department id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to delete department")
	}
	return nil
}
