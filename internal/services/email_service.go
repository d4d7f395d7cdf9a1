package services

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"
)

// EmailService delivers the confirmation and reset messages. Callers treat
// delivery as fire-and-forget and only log failures.
type EmailService interface {
	SendConfirmationEmail(email, link string) error
	SendPasswordResetCode(email, code string, ttl time.Duration) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	// DryRun logs messages instead of dialing the SMTP server.
	DryRun bool
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
	dryRun bool
	log    *slog.Logger
}

func NewEmailService(cfg SMTPConfig, log *slog.Logger) EmailService {
	return &emailService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		dryRun: cfg.DryRun,
		log:    log,
	}
}

func (s *emailService) SendConfirmationEmail(email, link string) error {
	body := fmt.Sprintf(`
		<h2>Confirm your email</h2>
		<p>Thanks for signing up. Follow the link below to activate your account:</p>
		<p><a href="%s">%s</a></p>
		<p>If you did not create an account, you can ignore this email.</p>
	`, link, link)

	if err := s.send(email, "Confirm your email", body); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	return nil
}

func (s *emailService) SendPasswordResetCode(email, code string, ttl time.Duration) error {
	body := fmt.Sprintf(`
		<h3>Password reset requested</h3>
		<p>We received a request to reset the password for your account.</p>
		<p>Your verification code is <strong>%s</strong>. It expires in %s.</p>
		<p>If you did not request this change, you can ignore this email.</p>
	`, code, ttl)

	if err := s.send(email, "Password reset code", body); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

func (s *emailService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if s.dryRun {
		s.log.Info("[email][dry-run]", "to", to, "subject", subject)
		s.log.Debug("[email][dry-run] body", "to", to, "body", body)
		return nil
	}
	return s.dialer.DialAndSend(m)
}
