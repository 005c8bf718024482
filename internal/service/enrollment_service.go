package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-intake-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-intake-api/pkg/errors"
	"github.com/noah-isme/enrollment-intake-api/pkg/export"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
	ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
	Stats(ctx context.Context) (*models.EnrollmentStats, error)
	Ping(ctx context.Context) error
}

// UpdateStatusRequest carries a review decision.
type UpdateStatusRequest struct {
	Status models.EnrollmentStatus `json:"status" validate:"required,oneof=approved rejected"`
}

// EnrollmentService handles listing, lookup and review of stored
// applications.
type EnrollmentService struct {
	repo      enrollmentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, validator: validate, logger: logger}
}

// List returns applications and pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return enrollments, models.NewPagination(filter.Page, size, total), nil
}

// Get returns a single application.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return enrollment, nil
}

// UpdateStatus records a review decision. Only pending applications can be
// approved or rejected; decisions are terminal.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "status must be approved or rejected")
	}
	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !enrollment.Status.CanTransitionTo(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot change status from %s to %s", enrollment.Status, req.Status))
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	s.logger.Info("application reviewed",
		zap.String("student_id", id),
		zap.String("status", string(req.Status)),
	)
	enrollment.Status = req.Status
	return enrollment, nil
}

// ExportCSV renders all applications matching the filters as a CSV document
// for the admin dashboard.
func (s *EnrollmentService) ExportCSV(ctx context.Context, filter models.EnrollmentFilter) ([]byte, error) {
	enrollments, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export applications")
	}
	data, err := export.EnrollmentCSV(enrollments)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return data, nil
}

// Stats summarises stored applications.
func (s *EnrollmentService) Stats(ctx context.Context) (*models.EnrollmentStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute stats")
	}
	return stats, nil
}

// CheckStorage verifies database connectivity for the health endpoint.
func (s *EnrollmentService) CheckStorage(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
