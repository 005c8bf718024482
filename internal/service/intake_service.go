package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-intake-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-intake-api/pkg/errors"
)

type intakeRepository interface {
	FindDuplicateField(ctx context.Context, email, idNumber string) (string, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
}

// Notifier dispatches post-persistence notifications. Implementations must
// never fail the submission: the record is already durable by the time they
// run.
type Notifier interface {
	NotifySubmission(ctx context.Context, enrollment *models.Enrollment)
}

// SubmissionMeta records the provenance of a submission.
type SubmissionMeta struct {
	IP        string
	UserAgent string
}

// SubmissionResult is the payload returned for an accepted application.
type SubmissionResult struct {
	StudentID      string                  `json:"studentId"`
	ApplicationID  string                  `json:"applicationId"`
	Email          string                  `json:"email"`
	Course         string                  `json:"course"`
	Status         models.EnrollmentStatus `json:"status"`
	SubmissionTime time.Time               `json:"submissionTime"`
}

// IntakeService runs a submission through validation, duplicate checking,
// persistence and notification. Each step either completes or terminates the
// whole submission in one outcome; nothing is retried.
type IntakeService struct {
	repo      intakeRepository
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewIntakeService constructs the intake service.
func NewIntakeService(repo intakeRepository, notifier Notifier, validate *validator.Validate, logger *zap.Logger) *IntakeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntakeService{repo: repo, notifier: notifier, validator: validate, logger: logger}
}

// Submit processes one enrollment submission.
//
// Validation failures and duplicate collisions terminate before any storage
// write. A uniqueness violation surfaced by the insert itself (a race past
// the advisory check) is reported identically to the advisory collision.
// Notification runs only after the record is durable and cannot fail the
// submission.
func (s *IntakeService) Submit(ctx context.Context, req SubmissionRequest, meta SubmissionMeta) (*SubmissionResult, error) {
	candidate, validationErrs := validateSubmission(s.validator, req, time.Now().UTC())
	if len(validationErrs) > 0 {
		return nil, appErrors.Validation(validationErrs)
	}

	field, err := s.repo.FindDuplicateField(ctx, candidate.Email, candidate.IDNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for duplicates")
	}
	if field != "" {
		return nil, appErrors.Duplicate(field)
	}

	candidate.SubmittedIP = meta.IP
	candidate.UserAgent = meta.UserAgent

	if err := s.repo.Create(ctx, candidate); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrDuplicate.Code {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store application")
	}

	s.logger.Info("application received",
		zap.String("student_id", candidate.ID),
		zap.String("application_id", candidate.ApplicationID()),
		zap.String("course", candidate.Course),
	)

	if s.notifier != nil {
		s.notifier.NotifySubmission(ctx, candidate)
	}

	return &SubmissionResult{
		StudentID:      candidate.ID,
		ApplicationID:  candidate.ApplicationID(),
		Email:          candidate.Email,
		Course:         candidate.Course,
		Status:         candidate.Status,
		SubmissionTime: candidate.CreatedAt,
	}, nil
}
