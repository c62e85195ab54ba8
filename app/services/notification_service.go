// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"fmt"
	"net/mail"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// NotificationService delivers outbound email
type NotificationService interface {
	SendEmail(email, subject, message string) error
}

// EmailProvider interface for email sending
type EmailProvider interface {
	SendEmail(email, subject, message string) error
}

// NotificationServiceImpl implements NotificationService
type NotificationServiceImpl struct {
	emailProvider EmailProvider
}

// NewNotificationService creates a new notification service
func NewNotificationService(emailProvider EmailProvider) NotificationService {
	return &NotificationServiceImpl{emailProvider: emailProvider}
}

// SendEmail sends an email to the specified email address
func (s *NotificationServiceImpl) SendEmail(email, subject, message string) error {
	if s.emailProvider == nil {
		return fmt.Errorf("email provider not configured")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address %q: %w", email, err)
	}

	return s.emailProvider.SendEmail(email, subject, message)
}

// LogEmailProvider writes emails to the log instead of sending them. Used in development.
type LogEmailProvider struct {
	logger *logrus.Logger
}

func NewLogEmailProvider(logger *logrus.Logger) EmailProvider {
	return &LogEmailProvider{logger: logger}
}

func (p *LogEmailProvider) SendEmail(email, subject, message string) error {
	p.logger.WithFields(logrus.Fields{
		"to":      email,
		"subject": subject,
	}).Info("email (log provider)")
	return nil
}

// SMTPEmailProvider sends HTML mail through an SMTP relay
type SMTPEmailProvider struct {
	dialer    *gomail.Dialer
	fromEmail string
	fromName  string
}

func NewSMTPEmailProvider(host string, port int, username, password, fromEmail, fromName string) EmailProvider {
	return &SMTPEmailProvider{
		dialer:    gomail.NewDialer(host, port, username, password),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (p *SMTPEmailProvider) SendEmail(email, subject, message string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(p.fromEmail, p.fromName))
	m.SetHeader("To", email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", message)

	if err := p.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", email, err)
	}
	return nil
}
