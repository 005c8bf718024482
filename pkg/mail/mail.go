package mail

import (
	"gopkg.in/gomail.v2"

	"github.com/noah-isme/enrollment-intake-api/pkg/config"
)

// Message is a rendered email ready for dispatch.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a single message. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(msg Message) error
}

// SMTPSender delivers messages over SMTP using the transport resolved from
// config at process start.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender builds an SMTP-backed sender from mail configuration.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send dials the SMTP server and delivers the message. Each call opens a
// fresh connection; submission volume is low enough that pooling is not
// worth the bookkeeping.
func (s *SMTPSender) Send(msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return s.dialer.DialAndSend(m)
}
