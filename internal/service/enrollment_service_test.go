package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-intake-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-intake-api/pkg/errors"
)

type fakeEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	listTotal   int
	lastFilter  models.EnrollmentFilter
	updated     map[string]models.EnrollmentStatus
	stats       *models.EnrollmentStats
	pingErr     error
}

func (f *fakeEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	f.lastFilter = filter
	result := make([]models.Enrollment, 0, len(f.enrollments))
	for _, e := range f.enrollments {
		result = append(result, e)
	}
	return result, f.listTotal, nil
}

func (f *fakeEnrollmentRepo) ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	f.lastFilter = filter
	result := make([]models.Enrollment, 0, len(f.enrollments))
	for _, e := range f.enrollments {
		result = append(result, e)
	}
	return result, nil
}

func (f *fakeEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := f.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	if _, ok := f.enrollments[id]; !ok {
		return sql.ErrNoRows
	}
	if f.updated == nil {
		f.updated = make(map[string]models.EnrollmentStatus)
	}
	f.updated[id] = status
	return nil
}

func (f *fakeEnrollmentRepo) Stats(ctx context.Context) (*models.EnrollmentStats, error) {
	return f.stats, nil
}

func (f *fakeEnrollmentRepo) Ping(ctx context.Context) error {
	return f.pingErr
}

func TestEnrollmentServiceListPagination(t *testing.T) {
	repo := &fakeEnrollmentRepo{listTotal: 41}
	svc := NewEnrollmentService(repo, validator.New(), zap.NewNop())

	_, pagination, err := svc.List(context.Background(), models.EnrollmentFilter{Page: 2, PageSize: 20})
	require.NoError(t, err)

	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 41, pagination.TotalCount)
	assert.Equal(t, 3, pagination.TotalPages)
}

func TestEnrollmentServiceListDefaults(t *testing.T) {
	repo := &fakeEnrollmentRepo{listTotal: 5}
	svc := NewEnrollmentService(repo, validator.New(), zap.NewNop())

	_, pagination, err := svc.List(context.Background(), models.EnrollmentFilter{})
	require.NoError(t, err)

	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalPages)
}

func TestEnrollmentServiceGetNotFound(t *testing.T) {
	svc := NewEnrollmentService(&fakeEnrollmentRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEnrollmentServiceUpdateStatusApprove(t *testing.T) {
	repo := &fakeEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"id1": {ID: "id1", Status: models.EnrollmentStatusPending},
	}}
	svc := NewEnrollmentService(repo, validator.New(), zap.NewNop())

	updated, err := svc.UpdateStatus(context.Background(), "id1", UpdateStatusRequest{Status: models.EnrollmentStatusApproved})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusApproved, updated.Status)
	assert.Equal(t, models.EnrollmentStatusApproved, repo.updated["id1"])
}

func TestEnrollmentServiceUpdateStatusTerminal(t *testing.T) {
	repo := &fakeEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"id1": {ID: "id1", Status: models.EnrollmentStatusRejected},
	}}
	svc := NewEnrollmentService(repo, validator.New(), zap.NewNop())

	_, err := svc.UpdateStatus(context.Background(), "id1", UpdateStatusRequest{Status: models.EnrollmentStatusApproved})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.updated)
}

func TestEnrollmentServiceUpdateStatusRejectsPendingTarget(t *testing.T) {
	repo := &fakeEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"id1": {ID: "id1", Status: models.EnrollmentStatusPending},
	}}
	svc := NewEnrollmentService(repo, validator.New(), zap.NewNop())

	_, err := svc.UpdateStatus(context.Background(), "id1", UpdateStatusRequest{Status: models.EnrollmentStatusPending})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEnrollmentServiceStats(t *testing.T) {
	repo := &fakeEnrollmentRepo{stats: &models.EnrollmentStats{
		Total:    3,
		ByStatus: map[string]int{"pending": 2, "approved": 1},
		ByCourse: map[string]int{"Computer Science": 3},
	}}
	svc := NewEnrollmentService(repo, validator.New(), zap.NewNop())

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByStatus["pending"])
}

func TestEnrollmentServiceExportCSV(t *testing.T) {
	repo := &fakeEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"a3f8d1c2-9b4e-4f6a-8c1d-2e5b7a9c0d3f": {
			ID:          "a3f8d1c2-9b4e-4f6a-8c1d-2e5b7a9c0d3f",
			FirstName:   "Ann",
			LastName:    "Lee",
			Email:       "ann@x.com",
			Course:      "Computer Science",
			Status:      models.EnrollmentStatusPending,
			DateOfBirth: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			CreatedAt:   time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		},
	}}
	svc := NewEnrollmentService(repo, validator.New(), zap.NewNop())

	data, err := svc.ExportCSV(context.Background(), models.EnrollmentFilter{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, "pending", repo.lastFilter.Status)

	out := string(data)
	assert.Contains(t, out, "application_id,first_name")
	assert.Contains(t, out, "APP-A3F8D1C2")
	assert.Contains(t, out, "2000-01-01")
}
