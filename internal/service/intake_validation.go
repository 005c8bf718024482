package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/enrollment-intake-api/internal/models"
)

// SubmissionRequest carries the raw enrollment form fields. Field names match
// the public form contract; the handler binds JSON and URL-encoded bodies.
type SubmissionRequest struct {
	FirstName        string `json:"firstName" form:"firstName"`
	LastName         string `json:"lastName" form:"lastName"`
	Email            string `json:"email" form:"email"`
	Phone            string `json:"phone" form:"phone"`
	IDNumber         string `json:"idnumber" form:"idnumber"`
	DateOfBirth      string `json:"dateOfBirth" form:"dateOfBirth"`
	Course           string `json:"course" form:"course"`
	Address          string `json:"address" form:"address"`
	City             string `json:"city" form:"city"`
	ZipCode          string `json:"zipCode" form:"zipCode"`
	EmergencyContact string `json:"emergencyContact" form:"emergencyContact"`
	EmergencyPhone   string `json:"emergencyPhone" form:"emergencyPhone"`
}

const dateLayout = "2006-01-02"

const (
	minAge = 16
	maxAge = 100
)

// phonePattern accepts digits, spaces, dashes, plus signs and parentheses,
// at least ten characters long once surrounding whitespace is removed.
var phonePattern = regexp.MustCompile(`^[0-9+\-() ]{10,}$`)

// markupChars are stripped from every submitted value before storage so the
// stored text cannot carry markup into the rendered notification emails.
var markupChars = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "")

func sanitize(value string) string {
	return strings.TrimSpace(markupChars.Replace(strings.TrimSpace(value)))
}

// sanitized returns a copy of the request with every field trimmed and
// stripped of markup characters.
func (r SubmissionRequest) sanitized() SubmissionRequest {
	return SubmissionRequest{
		FirstName:        sanitize(r.FirstName),
		LastName:         sanitize(r.LastName),
		Email:            sanitize(r.Email),
		Phone:            sanitize(r.Phone),
		IDNumber:         sanitize(r.IDNumber),
		DateOfBirth:      sanitize(r.DateOfBirth),
		Course:           sanitize(r.Course),
		Address:          sanitize(r.Address),
		City:             sanitize(r.City),
		ZipCode:          sanitize(r.ZipCode),
		EmergencyContact: sanitize(r.EmergencyContact),
		EmergencyPhone:   sanitize(r.EmergencyPhone),
	}
}

// validateSubmission sanitizes and validates a raw submission. All rule
// violations are collected rather than short-circuited. On success it returns
// the normalized record candidate: email lower-cased, date of birth parsed,
// every other field sanitized.
func validateSubmission(validate *validator.Validate, req SubmissionRequest, now time.Time) (*models.Enrollment, []string) {
	req = req.sanitized()

	var errs []string

	if req.FirstName == "" {
		errs = append(errs, "firstName is required")
	}
	if req.LastName == "" {
		errs = append(errs, "lastName is required")
	}

	if req.Email == "" {
		errs = append(errs, "email is required")
	} else if validate.Var(req.Email, "email") != nil {
		errs = append(errs, "email must be a valid email address")
	}

	if req.Phone == "" {
		errs = append(errs, "phone is required")
	} else if !validPhone(req.Phone) {
		errs = append(errs, "phone must be a valid phone number")
	}

	if req.IDNumber == "" {
		errs = append(errs, "idnumber is required")
	}

	var dob time.Time
	if req.DateOfBirth == "" {
		errs = append(errs, "dateOfBirth is required")
	} else {
		parsed, err := time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			errs = append(errs, "dateOfBirth must be a valid date in YYYY-MM-DD format")
		} else {
			dob = parsed
			if age := ageAt(now, dob); age < minAge || age > maxAge {
				errs = append(errs, "age must be between 16 and 100 years")
			}
		}
	}

	if req.Course == "" {
		errs = append(errs, "course is required")
	} else if !models.IsValidCourse(req.Course) {
		errs = append(errs, "course must be one of the offered courses")
	}

	if req.Address == "" {
		errs = append(errs, "address is required")
	}
	if req.City == "" {
		errs = append(errs, "city is required")
	}
	if req.ZipCode == "" {
		errs = append(errs, "zipCode is required")
	}
	if req.EmergencyContact == "" {
		errs = append(errs, "emergencyContact is required")
	}
	if req.EmergencyPhone == "" {
		errs = append(errs, "emergencyPhone is required")
	} else if !validPhone(req.EmergencyPhone) {
		errs = append(errs, "emergencyPhone must be a valid phone number")
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &models.Enrollment{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            strings.ToLower(req.Email),
		Phone:            req.Phone,
		IDNumber:         req.IDNumber,
		DateOfBirth:      dob,
		Course:           req.Course,
		Address:          req.Address,
		City:             req.City,
		ZipCode:          req.ZipCode,
		EmergencyContact: req.EmergencyContact,
		EmergencyPhone:   req.EmergencyPhone,
		Status:           models.EnrollmentStatusPending,
	}, nil
}

func validPhone(phone string) bool {
	stripped := strings.Join(strings.Fields(phone), "")
	return phonePattern.MatchString(stripped)
}

// ageAt computes age in whole 365.25-day years at the given instant.
func ageAt(now, dob time.Time) int {
	if dob.After(now) {
		return -1
	}
	const year = 365.25 * 24 * float64(time.Hour)
	return int(float64(now.Sub(dob)) / year)
}
