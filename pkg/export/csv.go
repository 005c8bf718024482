package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/noah-isme/enrollment-intake-api/internal/models"
)

var enrollmentHeaders = []string{
	"application_id",
	"first_name",
	"last_name",
	"email",
	"phone",
	"id_number",
	"date_of_birth",
	"course",
	"city",
	"status",
	"submitted_at",
}

// EnrollmentCSV renders applications into CSV bytes for admin download.
func EnrollmentCSV(enrollments []models.Enrollment) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(enrollmentHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for i := range enrollments {
		e := &enrollments[i]
		record := []string{
			e.ApplicationID(),
			e.FirstName,
			e.LastName,
			e.Email,
			e.Phone,
			e.IDNumber,
			e.DateOfBirth.Format("2006-01-02"),
			e.Course,
			e.City,
			string(e.Status),
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
