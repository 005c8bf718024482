package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-intake-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-intake-api/pkg/errors"
)

var enrollmentRowColumns = []string{
	"id", "first_name", "last_name", "email", "phone", "id_number",
	"date_of_birth", "course", "address", "city", "zip_code",
	"emergency_contact", "emergency_phone", "status", "submitted_ip",
	"user_agent", "created_at",
}

func newEnrollmentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func addSampleRow(rows *sqlmock.Rows) *sqlmock.Rows {
	return rows.AddRow(
		"a3f8d1c2-9b4e-4f6a-8c1d-2e5b7a9c0d3f", "Ann", "Lee", "ann@x.com",
		"123-456-7890", "ID12345", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		"Computer Science", "1 Main St", "Springfield", "00001",
		"Bob Lee", "111-222-3333", "pending", "203.0.113.9", "test-agent",
		time.Now(),
	)
}

func TestEnrollmentRepositoryListDefaults(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + enrollmentColumns + " FROM enrollments WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(addSampleRow(sqlmock.NewRows(enrollmentRowColumns)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.List(context.Background(), models.EnrollmentFilter{})
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "ann@x.com", enrollments[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListSearch(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	condition := "(LOWER(first_name) LIKE $1 OR LOWER(last_name) LIKE $1 OR LOWER(email) LIKE $1 OR LOWER(course) LIKE $1)"
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + enrollmentColumns + " FROM enrollments WHERE 1=1 AND " + condition + " ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("%computer%").
		WillReturnRows(addSampleRow(sqlmock.NewRows(enrollmentRowColumns)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE 1=1 AND " + condition)).
		WithArgs("%computer%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.List(context.Background(), models.EnrollmentFilter{Search: "Computer"})
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + enrollmentColumns + " FROM enrollments WHERE 1=1 AND status = $1 ORDER BY created_at DESC")).
		WithArgs("pending").
		WillReturnRows(addSampleRow(sqlmock.NewRows(enrollmentRowColumns)))

	enrollments, err := repo.ListAll(context.Background(), models.EnrollmentFilter{Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindDuplicateFieldEmailPrecedence(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT email, id_number FROM enrollments WHERE email = $1 OR id_number = $2 LIMIT 1")).
		WithArgs("ann@x.com", "ID12345").
		WillReturnRows(sqlmock.NewRows([]string{"email", "id_number"}).AddRow("ann@x.com", "ID12345"))

	field, err := repo.FindDuplicateField(context.Background(), "ann@x.com", "ID12345")
	require.NoError(t, err)
	assert.Equal(t, "email", field)
}

func TestEnrollmentRepositoryFindDuplicateFieldIDNumber(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT email, id_number FROM enrollments WHERE email = $1 OR id_number = $2 LIMIT 1")).
		WithArgs("ann@x.com", "ID12345").
		WillReturnRows(sqlmock.NewRows([]string{"email", "id_number"}).AddRow("other@x.com", "ID12345"))

	field, err := repo.FindDuplicateField(context.Background(), "ann@x.com", "ID12345")
	require.NoError(t, err)
	assert.Equal(t, "idnumber", field)
}

func TestEnrollmentRepositoryFindDuplicateFieldNone(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT email, id_number FROM enrollments WHERE email = $1 OR id_number = $2 LIMIT 1")).
		WithArgs("ann@x.com", "ID12345").
		WillReturnError(sql.ErrNoRows)

	field, err := repo.FindDuplicateField(context.Background(), "ann@x.com", "ID12345")
	require.NoError(t, err)
	assert.Empty(t, field)
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{
		FirstName: "Ann", LastName: "Lee", Email: "ann@x.com",
		IDNumber: "ID12345", Course: "Computer Science",
	}
	err := repo.Create(context.Background(), enrollment)
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	assert.False(t, enrollment.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateUniqueViolation(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "enrollments_email_key"})

	err := repo.Create(context.Background(), &models.Enrollment{Email: "ann@x.com", IDNumber: "ID12345"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErr.Code)
	assert.Equal(t, "email", appErr.Field)
}

func TestEnrollmentRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("UPDATE enrollments SET status").
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.EnrollmentStatusApproved)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEnrollmentRepositoryStats(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS count FROM enrollments GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("pending", 2).AddRow("approved", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT course, COUNT(*) AS count FROM enrollments GROUP BY course")).
		WillReturnRows(sqlmock.NewRows([]string{"course", "count"}).AddRow("Computer Science", 3))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByStatus["pending"])
	assert.Equal(t, 3, stats.ByCourse["Computer Science"])
}
