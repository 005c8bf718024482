package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/enrollment-intake-api/internal/models"
	"github.com/noah-isme/enrollment-intake-api/internal/service"
	appErrors "github.com/noah-isme/enrollment-intake-api/pkg/errors"
	"github.com/noah-isme/enrollment-intake-api/pkg/response"
)

type enrollmentReader interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, req service.UpdateStatusRequest) (*models.Enrollment, error)
	Stats(ctx context.Context) (*models.EnrollmentStats, error)
	ExportCSV(ctx context.Context, filter models.EnrollmentFilter) ([]byte, error)
}

// EnrollmentHandler exposes the admin-facing listing and review endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentReader
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentReader) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List returns a page of applications filtered by course, status and a
// free-text search across name, email and course.
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.Course = strings.TrimSpace(c.Query("course"))
	filter.Status = strings.TrimSpace(c.Query("status"))
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get returns a single application by its identity.
func (h *EnrollmentHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed application id"))
		return
	}
	enrollment, err := h.enrollments.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// UpdateStatus applies a review decision to a pending application.
func (h *EnrollmentHandler) UpdateStatus(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed application id"))
		return
	}
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Export streams all matching applications as a CSV download.
func (h *EnrollmentHandler) Export(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.Course = strings.TrimSpace(c.Query("course"))
	filter.Status = strings.TrimSpace(c.Query("status"))
	filter.Search = strings.TrimSpace(c.Query("search"))

	data, err := h.enrollments.ExportCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := "enrollments-" + time.Now().UTC().Format("20060102-150405") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// Stats summarises stored applications by status and course.
func (h *EnrollmentHandler) Stats(c *gin.Context) {
	stats, err := h.enrollments.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
