package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/lifetag/lifetag-api/internal/config"
)

type gomailService struct {
	dialer *gomail.Dialer
	from   string
}

// NewGomailService sends mail over SMTP.
func NewGomailService(cfg config.SMTPConfig) Service {
	return &gomailService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *gomailService) SendVerificationDecision(ctx context.Context, to, name, action, notes string) error {
	var subject, body string
	switch action {
	case "approve":
		subject = "Your LifeTag professional verification is approved"
		body = fmt.Sprintf("Hello %s,\n\nYour medical professional credentials have been verified. You now have access to verified-professional features.\n", name)
	case "reject":
		subject = "Your LifeTag professional verification was not approved"
		body = fmt.Sprintf("Hello %s,\n\nYour verification request was not approved.\nReason: %s\n\nYou may correct your details and request review again.\n", name, notes)
	case "revoke":
		subject = "Your LifeTag professional verification has been revoked"
		body = fmt.Sprintf("Hello %s,\n\nYour verified status has been withdrawn.\nReason: %s\n", name, notes)
	default:
		subject = "Your LifeTag verification status changed"
		body = fmt.Sprintf("Hello %s,\n\nYour verification status has been updated.\n", name)
	}
	return s.send(ctx, to, subject, body)
}

func (s *gomailService) SendPasswordReset(ctx context.Context, to, token string) error {
	body := fmt.Sprintf("A password reset was requested for this address.\n\nReset code: %s\n\nIf you did not request this, ignore this message.\n", token)
	return s.send(ctx, to, "LifeTag password reset", body)
}

func (s *gomailService) SendWelcome(ctx context.Context, to, name string) error {
	body := fmt.Sprintf("Hello %s,\n\nYour LifeTag account has been created.\n", name)
	return s.send(ctx, to, "Welcome to LifeTag", body)
}

func (s *gomailService) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
