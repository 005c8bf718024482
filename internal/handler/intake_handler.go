package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-intake-api/internal/service"
	appErrors "github.com/noah-isme/enrollment-intake-api/pkg/errors"
)

type intakeSubmitter interface {
	Submit(ctx context.Context, req service.SubmissionRequest, meta service.SubmissionMeta) (*service.SubmissionResult, error)
}

// IntakeHandler exposes the enrollment submission endpoints. Response shapes
// follow the public form contract rather than the envelope used by the
// admin endpoints.
type IntakeHandler struct {
	intake  intakeSubmitter
	metrics *service.MetricsService
}

// NewIntakeHandler constructs IntakeHandler.
func NewIntakeHandler(intake intakeSubmitter, metrics *service.MetricsService) *IntakeHandler {
	return &IntakeHandler{intake: intake, metrics: metrics}
}

// Submit accepts an enrollment form submission as JSON or URL-encoded form
// data. Responses: 201 with the accepted application summary, 400 with the
// collected validation errors, 409 on a duplicate email or id number, 500 on
// unexpected storage failure.
func (h *IntakeHandler) Submit(c *gin.Context) {
	var req service.SubmissionRequest
	if err := c.ShouldBind(&req); err != nil {
		h.metrics.RecordSubmissionOutcome(service.OutcomeValidationFailed)
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{"invalid request body"}})
		return
	}

	meta := service.SubmissionMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	result, err := h.intake.Submit(c.Request.Context(), req, meta)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.metrics.RecordSubmissionOutcome(service.OutcomeCompleted)
	c.JSON(http.StatusCreated, result)
}

func (h *IntakeHandler) writeError(c *gin.Context, err error) {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		appErr = appErrors.FromError(err)
	}

	switch appErr.Code {
	case appErrors.ErrValidation.Code:
		h.metrics.RecordSubmissionOutcome(service.OutcomeValidationFailed)
		c.JSON(http.StatusBadRequest, gin.H{"errors": appErr.Details})
	case appErrors.ErrDuplicate.Code:
		h.metrics.RecordSubmissionOutcome(service.OutcomeDuplicate)
		c.JSON(http.StatusConflict, gin.H{
			"code":    appErr.Code,
			"field":   appErr.Field,
			"message": appErr.Message,
		})
	default:
		// Storage failures stay generic; details are for the logs only.
		h.metrics.RecordSubmissionOutcome(service.OutcomeStorageError)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    appErrors.ErrInternal.Code,
			"message": appErrors.ErrInternal.Message,
		})
	}
}
