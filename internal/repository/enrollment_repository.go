package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enrollment-intake-api/internal/models"
	"github.com/noah-isme/enrollment-intake-api/pkg/database"
	appErrors "github.com/noah-isme/enrollment-intake-api/pkg/errors"
)

const enrollmentColumns = `id, first_name, last_name, email, phone, id_number, date_of_birth, course, address, city, zip_code, emergency_contact, emergency_phone, status, submitted_ip, user_agent, created_at`

// EnrollmentRepository manages persistence for enrollment applications.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns applications matching the provided filters together with the
// total row count. Search matches case-insensitively across first name, last
// name, email and course.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	base, args := filterClause(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", enrollmentColumns, base, size, offset)

	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListAll returns every application matching the filters without pagination.
// Used by the CSV export.
func (r *EnrollmentRepository) ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	base, args := filterClause(filter)
	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC", enrollmentColumns, base)

	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("export enrollments: %w", err)
	}
	return enrollments, nil
}

func filterClause(filter models.EnrollmentFilter) (string, []interface{}) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Course != "" {
		conditions = append(conditions, fmt.Sprintf("course = $%d", len(args)+1))
		args = append(args, filter.Course)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(email) LIKE $%d OR LOWER(course) LIKE $%d)", n, n, n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	return fmt.Sprintf("FROM enrollments WHERE %s", strings.Join(conditions, " AND ")), args
}

// FindByID fetches an application by ID. Callers map sql.ErrNoRows.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE id = $1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDuplicateField reports which unique field an existing application
// collides with. Email takes precedence when both collide. Returns the empty
// string when no application matches.
func (r *EnrollmentRepository) FindDuplicateField(ctx context.Context, email, idNumber string) (string, error) {
	const query = `SELECT email, id_number FROM enrollments WHERE email = $1 OR id_number = $2 LIMIT 1`
	var row struct {
		Email    string `db:"email"`
		IDNumber string `db:"id_number"`
	}
	if err := r.db.GetContext(ctx, &row, query, email, idNumber); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("check duplicates: %w", err)
	}
	if row.Email == email {
		return "email", nil
	}
	return "idnumber", nil
}

// Create inserts a new application. The database is the authoritative
// uniqueness enforcement point: a constraint violation from a racing insert
// is mapped to the same conflict error the advisory pre-check produces.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusPending
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, first_name, last_name, email, phone, id_number, date_of_birth, course, address, city, zip_code, emergency_contact, emergency_phone, status, submitted_ip, user_agent, created_at)
        VALUES (:id, :first_name, :last_name, :email, :phone, :id_number, :date_of_birth, :course, :address, :city, :zip_code, :emergency_contact, :emergency_phone, :status, :submitted_ip, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		if constraint, ok := database.UniqueViolation(err); ok {
			return appErrors.Duplicate(constraintField(constraint))
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatus stores a review decision. The affected-row count distinguishes
// a missing record from a successful update.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Stats aggregates stored applications by status and course.
func (r *EnrollmentRepository) Stats(ctx context.Context) (*models.EnrollmentStats, error) {
	stats := &models.EnrollmentStats{
		ByStatus: make(map[string]int),
		ByCourse: make(map[string]int),
	}

	var statusRows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &statusRows, `SELECT status, COUNT(*) AS count FROM enrollments GROUP BY status`); err != nil {
		return nil, fmt.Errorf("stats by status: %w", err)
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}

	var courseRows []struct {
		Course string `db:"course"`
		Count  int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &courseRows, `SELECT course, COUNT(*) AS count FROM enrollments GROUP BY course`); err != nil {
		return nil, fmt.Errorf("stats by course: %w", err)
	}
	for _, row := range courseRows {
		stats.ByCourse[row.Course] = row.Count
	}

	return stats, nil
}

// Ping verifies database connectivity for health reporting.
func (r *EnrollmentRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func constraintField(constraint string) string {
	if strings.Contains(constraint, "email") {
		return "email"
	}
	return "idnumber"
}
