package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"rsi-website-backend/config"
	"rsi-website-backend/pkg/logger"

	jemail "github.com/jordan-wright/email"
)

const (
	// DefaultFromEmail and DefaultFromName are used on the internal notice
	// when the configured sender is blank.
	DefaultFromEmail = "no-reply@rsi-xray.com"
	DefaultFromName  = "RSI Website"

	devSubjectPrefix         = "[DEV] "
	defaultSubject           = "Website Contact"
	maxSubjectLength         = 120
	confirmationSubjectTitle = "We've received your message"
)

var (
	// ErrNotConfigured is returned when SMTP settings needed for a send are missing.
	ErrNotConfigured = errors.New("email service is not configured")
	// ErrNoRecipient is returned when routing rules yield no internal recipient.
	ErrNoRecipient = fmt.Errorf("%w: no internal recipient", ErrNotConfigured)
)

// DeliveryError wraps a transport failure.
type DeliveryError struct {
	Kind string // "internal_notice" or "visitor_confirmation"
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver %s: %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// ContactData holds the validated submission that both emails are built from.
type ContactData struct {
	Name        string
	Email       string
	Phone       string
	Subject     string
	Message     string
	SubmittedAt time.Time
}

// EmailService composes and sends the contact form emails
type EmailService struct {
	smtp      config.SMTPConfig
	mode      config.Mode
	siteName  string
	transport Transport
	now       func() time.Time
}

type Option func(*EmailService)

// WithClock overrides the time source used for the year and timestamp fields.
func WithClock(now func() time.Time) Option {
	return func(s *EmailService) {
		s.now = now
	}
}

// NewEmailService creates the dispatcher. mode decides the [DEV] prefix and the
// recipient routing for the lifetime of the service.
func NewEmailService(smtpCfg config.SMTPConfig, mode config.Mode, siteName string, transport Transport, opts ...Option) *EmailService {
	if siteName == "" {
		siteName = "RSI"
	}
	s := &EmailService{
		smtp:      smtpCfg,
		mode:      mode,
		siteName:  siteName,
		transport: transport,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSMTPTransport builds the transport described by cfg.
func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		UseTLS:   cfg.EnableSSL,
		Timeout:  cfg.Timeout,
	}
}

// IsConfigured checks if the email service has valid SMTP configuration
func (s *EmailService) IsConfigured() bool {
	return s.smtp.Host != "" && s.smtp.Username != "" && s.smtp.Password != ""
}

// SendInternalNotice notifies staff about a submission. Replies go straight
// to the submitter.
func (s *EmailService) SendInternalNotice(ctx context.Context, data ContactData) error {
	to, err := s.resolveInternalTo()
	if err != nil {
		return err
	}

	fromEmail, fromName := s.smtp.FromEmail, s.smtp.FromName
	if strings.TrimSpace(fromEmail) == "" {
		fromEmail = DefaultFromEmail
	}
	if strings.TrimSpace(fromName) == "" {
		fromName = DefaultFromName
	}

	body, err := RenderInternalNotification(newTemplateData(data, s.siteName, fromEmail, s.now()))
	if err != nil {
		return err
	}

	msg := jemail.NewEmail()
	msg.From = formatAddress(fromName, fromEmail)
	msg.To = []string{to}
	if strings.TrimSpace(data.Email) != "" {
		msg.ReplyTo = []string{formatAddress(data.Name, data.Email)}
	}
	msg.Subject = s.subjectPrefix() + "[" + s.siteName + " Contact] " + SanitizeSubject(data.Subject)
	msg.Text = []byte(body.Text)
	msg.HTML = []byte(body.HTML)

	return s.send(ctx, "internal_notice", msg)
}

// SendVisitorConfirmation acknowledges the submission to the visitor. A blank
// submitter email is a no-op.
func (s *EmailService) SendVisitorConfirmation(ctx context.Context, data ContactData) error {
	if strings.TrimSpace(data.Email) == "" {
		return nil
	}
	if strings.TrimSpace(s.smtp.FromEmail) == "" || strings.TrimSpace(s.smtp.Host) == "" {
		return fmt.Errorf("%w: sender address and host are required for confirmation email", ErrNotConfigured)
	}

	fromName := s.smtp.FromName
	if strings.TrimSpace(fromName) == "" {
		fromName = DefaultFromName
	}

	body, err := RenderVisitorConfirmation(newTemplateData(data, s.siteName, s.smtp.FromEmail, s.now()))
	if err != nil {
		return err
	}

	msg := jemail.NewEmail()
	msg.From = formatAddress(fromName, s.smtp.FromEmail)
	msg.To = []string{formatAddress(data.Name, data.Email)}
	// let staff observe outbound confirmations while testing
	if s.mode.IsDevelopment() && strings.TrimSpace(s.smtp.DefaultTo) != "" {
		msg.Bcc = []string{s.smtp.DefaultTo}
	}
	msg.Subject = s.subjectPrefix() + confirmationSubjectTitle + " - " + s.siteName
	msg.Text = []byte(body.Text)
	msg.HTML = []byte(body.HTML)

	return s.send(ctx, "visitor_confirmation", msg)
}

func (s *EmailService) send(ctx context.Context, kind string, msg *jemail.Email) error {
	if s.transport == nil {
		return ErrNotConfigured
	}

	logger.Log.Info("[SMTP SEND]", "kind", kind, "host", s.smtp.Host, "port", s.smtp.Port, "tls", s.smtp.EnableSSL)
	if err := s.transport.Send(ctx, msg); err != nil {
		return &DeliveryError{Kind: kind, Err: err}
	}
	return nil
}

// resolveInternalTo applies the routing rules: development only ever mails
// the default recipient; production falls back to the sender address.
func (s *EmailService) resolveInternalTo() (string, error) {
	defaultTo := strings.TrimSpace(s.smtp.DefaultTo)
	if s.mode.IsDevelopment() {
		if defaultTo == "" {
			return "", ErrNoRecipient
		}
		return defaultTo, nil
	}

	if defaultTo != "" {
		return defaultTo, nil
	}
	if from := strings.TrimSpace(s.smtp.FromEmail); from != "" {
		return from, nil
	}
	return "", ErrNoRecipient
}

func (s *EmailService) subjectPrefix() string {
	if s.mode.IsDevelopment() {
		return devSubjectPrefix
	}
	return ""
}

// SanitizeSubject flattens a user-supplied subject onto one line and caps it
// at 120 characters. Blank input becomes "Website Contact".
func SanitizeSubject(input string) string {
	if strings.TrimSpace(input) == "" {
		return defaultSubject
	}
	s := strings.NewReplacer("\r", " ", "\n", " ").Replace(input)
	s = strings.TrimSpace(s)

	if runes := []rune(s); len(runes) > maxSubjectLength {
		return string(runes[:maxSubjectLength])
	}
	return s
}

func formatAddress(name, address string) string {
	a := mail.Address{Name: strings.TrimSpace(name), Address: strings.TrimSpace(address)}
	return a.String()
}
