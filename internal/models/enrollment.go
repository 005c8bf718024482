package models

import (
	"strings"
	"time"
)

// EnrollmentStatus captures the review lifecycle of an application.
type EnrollmentStatus string

const (
	EnrollmentStatusPending  EnrollmentStatus = "pending"
	EnrollmentStatusApproved EnrollmentStatus = "approved"
	EnrollmentStatusRejected EnrollmentStatus = "rejected"
)

// CanTransitionTo reports whether a status change is allowed. Records only
// move out of pending; approved and rejected are terminal.
func (s EnrollmentStatus) CanTransitionTo(next EnrollmentStatus) bool {
	if s != EnrollmentStatusPending {
		return false
	}
	return next == EnrollmentStatusApproved || next == EnrollmentStatusRejected
}

// Courses is the closed catalog of programmes open for enrollment.
var Courses = []string{
	"Computer Science",
	"Data Science",
	"Business Administration",
	"Mechanical Engineering",
	"Electrical Engineering",
	"Graphic Design",
	"Nursing",
	"Psychology",
}

// IsValidCourse reports whether the submitted course is part of the catalog.
func IsValidCourse(course string) bool {
	for _, c := range Courses {
		if c == course {
			return true
		}
	}
	return false
}

// Enrollment represents a persisted student enrollment application.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	FirstName        string           `db:"first_name" json:"first_name"`
	LastName         string           `db:"last_name" json:"last_name"`
	Email            string           `db:"email" json:"email"`
	Phone            string           `db:"phone" json:"phone"`
	IDNumber         string           `db:"id_number" json:"id_number"`
	DateOfBirth      time.Time        `db:"date_of_birth" json:"date_of_birth"`
	Course           string           `db:"course" json:"course"`
	Address          string           `db:"address" json:"address"`
	City             string           `db:"city" json:"city"`
	ZipCode          string           `db:"zip_code" json:"zip_code"`
	EmergencyContact string           `db:"emergency_contact" json:"emergency_contact"`
	EmergencyPhone   string           `db:"emergency_phone" json:"emergency_phone"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	SubmittedIP      string           `db:"submitted_ip" json:"-"`
	UserAgent        string           `db:"user_agent" json:"-"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// ApplicationID derives the human-readable identifier shown to applicants:
// the first eight hex characters of the record id, upper-cased, behind an
// APP- prefix.
func (e *Enrollment) ApplicationID() string {
	id := strings.ReplaceAll(e.ID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return "APP-" + strings.ToUpper(id)
}

// EnrollmentFilter encapsulates allowed search parameters for listing
// applications.
type EnrollmentFilter struct {
	Course   string
	Status   string
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes page count from the total row count.
func NewPagination(page, size, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	pages := 0
	if total > 0 {
		pages = (total + size - 1) / size
	}
	return &Pagination{Page: page, PageSize: size, TotalCount: total, TotalPages: pages}
}

// EnrollmentStats summarises the stored applications for the admin dashboard.
type EnrollmentStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	ByCourse map[string]int `json:"by_course"`
}
