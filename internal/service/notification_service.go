package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-intake-api/internal/models"
	"github.com/noah-isme/enrollment-intake-api/pkg/config"
	"github.com/noah-isme/enrollment-intake-api/pkg/mail"
)

var applicantTemplate = template.Must(template.New("applicant").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Application Received</h2>
  <p>Dear {{.FirstName}} {{.LastName}},</p>
  <p>Thank you for applying to the <strong>{{.Course}}</strong> programme.
  Your application has been received and is pending review.</p>
  <p>Your application number is <strong>{{.ApplicationID}}</strong>.
  Please quote it in any correspondence with the admissions office.</p>
  <p>We will contact you at {{.Email}} once a decision has been made.</p>
  <p>Kind regards,<br>The Admissions Team</p>
</body>
</html>`))

var adminTemplate = template.Must(template.New("admin").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>New Enrollment Application {{.ApplicationID}}</h2>
  <table border="1" cellpadding="6" cellspacing="0">
    <tr><td>Name</td><td>{{.FirstName}} {{.LastName}}</td></tr>
    <tr><td>Email</td><td>{{.Email}}</td></tr>
    <tr><td>Phone</td><td>{{.Phone}}</td></tr>
    <tr><td>ID number</td><td>{{.IDNumber}}</td></tr>
    <tr><td>Date of birth</td><td>{{.DateOfBirth}}</td></tr>
    <tr><td>Course</td><td>{{.Course}}</td></tr>
    <tr><td>Address</td><td>{{.Address}}, {{.City}} {{.ZipCode}}</td></tr>
    <tr><td>Emergency contact</td><td>{{.EmergencyContact}} ({{.EmergencyPhone}})</td></tr>
    <tr><td>Submitted from</td><td>{{.SubmittedIP}} / {{.UserAgent}}</td></tr>
    <tr><td>Submitted at</td><td>{{.SubmittedAt}}</td></tr>
  </table>
  <p><a href="{{.ReviewURL}}">Review this application</a></p>
</body>
</html>`))

type applicantView struct {
	FirstName     string
	LastName      string
	Email         string
	Course        string
	ApplicationID string
}

type adminView struct {
	ApplicationID    string
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	IDNumber         string
	DateOfBirth      string
	Course           string
	Address          string
	City             string
	ZipCode          string
	EmergencyContact string
	EmergencyPhone   string
	SubmittedIP      string
	UserAgent        string
	SubmittedAt      string
	ReviewURL        string
}

// NotificationService renders and dispatches the applicant confirmation and
// the administrator notification for a persisted application. Both messages
// are sent concurrently; failures are logged and swallowed because the
// record is already durable.
type NotificationService struct {
	sender       mail.Sender
	adminAddress string
	adminBaseURL string
	logger       *zap.Logger
	metrics      *MetricsService
}

// NewNotificationService constructs the notification service.
func NewNotificationService(sender mail.Sender, cfg config.MailConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		sender:       sender,
		adminAddress: cfg.AdminAddress,
		adminBaseURL: cfg.AdminBaseURL,
		logger:       logger,
		metrics:      metrics,
	}
}

// NotifySubmission fires both notifications and waits for both to finish.
func (s *NotificationService) NotifySubmission(ctx context.Context, enrollment *models.Enrollment) {
	messages := []struct {
		recipient string
		build     func() (mail.Message, error)
	}{
		{"applicant", func() (mail.Message, error) { return s.applicantMessage(enrollment) }},
		{"admin", func() (mail.Message, error) { return s.adminMessage(enrollment) }},
	}

	var wg sync.WaitGroup
	for _, m := range messages {
		wg.Add(1)
		go func(recipient string, build func() (mail.Message, error)) {
			defer wg.Done()
			msg, err := build()
			if err == nil {
				err = s.sender.Send(msg)
			}
			if err != nil {
				if s.metrics != nil {
					s.metrics.RecordNotificationFailure(recipient)
				}
				s.logger.Error("notification dispatch failed, manual follow-up required",
					zap.String("recipient", recipient),
					zap.String("application_id", enrollment.ApplicationID()),
					zap.Error(err),
				)
			}
		}(m.recipient, m.build)
	}
	wg.Wait()
}

func (s *NotificationService) applicantMessage(enrollment *models.Enrollment) (mail.Message, error) {
	var body bytes.Buffer
	err := applicantTemplate.Execute(&body, applicantView{
		FirstName:     enrollment.FirstName,
		LastName:      enrollment.LastName,
		Email:         enrollment.Email,
		Course:        enrollment.Course,
		ApplicationID: enrollment.ApplicationID(),
	})
	if err != nil {
		return mail.Message{}, fmt.Errorf("render applicant template: %w", err)
	}
	return mail.Message{
		To:      enrollment.Email,
		Subject: fmt.Sprintf("Application received - %s", enrollment.ApplicationID()),
		HTML:    body.String(),
	}, nil
}

func (s *NotificationService) adminMessage(enrollment *models.Enrollment) (mail.Message, error) {
	var body bytes.Buffer
	err := adminTemplate.Execute(&body, adminView{
		ApplicationID:    enrollment.ApplicationID(),
		FirstName:        enrollment.FirstName,
		LastName:         enrollment.LastName,
		Email:            enrollment.Email,
		Phone:            enrollment.Phone,
		IDNumber:         enrollment.IDNumber,
		DateOfBirth:      enrollment.DateOfBirth.Format("2006-01-02"),
		Course:           enrollment.Course,
		Address:          enrollment.Address,
		City:             enrollment.City,
		ZipCode:          enrollment.ZipCode,
		EmergencyContact: enrollment.EmergencyContact,
		EmergencyPhone:   enrollment.EmergencyPhone,
		SubmittedIP:      enrollment.SubmittedIP,
		UserAgent:        enrollment.UserAgent,
		SubmittedAt:      enrollment.CreatedAt.Format("2006-01-02 15:04:05 MST"),
		ReviewURL:        fmt.Sprintf("%s/students/%s", s.adminBaseURL, enrollment.ID),
	})
	if err != nil {
		return mail.Message{}, fmt.Errorf("render admin template: %w", err)
	}
	return mail.Message{
		To:      s.adminAddress,
		Subject: fmt.Sprintf("New enrollment application - %s %s (%s)", enrollment.FirstName, enrollment.LastName, enrollment.Course),
		HTML:    body.String(),
	}, nil
}
