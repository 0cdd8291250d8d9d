package email_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"rsi-website-backend/config"
	"rsi-website-backend/pkg/email"

	jemail "github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records every message instead of delivering it.
type fakeTransport struct {
	mu   sync.Mutex
	sent []*jemail.Email
	err  error
}

func (f *fakeTransport) Send(ctx context.Context, msg *jemail.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) last(t *testing.T) *jemail.Email {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func smtpConfig() config.SMTPConfig {
	return config.SMTPConfig{
		Host:      "smtp.example.com",
		Port:      587,
		Username:  "mailer",
		Password:  "secret",
		FromEmail: "web@rsi.example",
		FromName:  "RSI Website",
		EnableSSL: true,
		Timeout:   30 * time.Second,
	}
}

func newService(cfg config.SMTPConfig, mode config.Mode, tr email.Transport) *email.EmailService {
	return email.NewEmailService(cfg, mode, "RSI", tr, email.WithClock(func() time.Time { return fixedNow }))
}

func sampleData() email.ContactData {
	return email.ContactData{
		Name:        "Jane Doe",
		Email:       "jane@example.com",
		Phone:       "5551234567",
		Subject:     "General Inquiry",
		Message:     "Hello\nSecond line",
		SubmittedAt: fixedNow,
	}
}

func TestSendInternalNoticeProduction(t *testing.T) {
	tr := &fakeTransport{}
	cfg := smtpConfig()
	cfg.DefaultTo = "staff@rsi.example"
	svc := newService(cfg, config.ModeProduction, tr)

	require.NoError(t, svc.SendInternalNotice(context.Background(), sampleData()))

	msg := tr.last(t)
	assert.Equal(t, []string{"staff@rsi.example"}, msg.To)
	assert.Equal(t, "[RSI Contact] General Inquiry", msg.Subject)
	require.Len(t, msg.ReplyTo, 1)
	assert.Contains(t, msg.ReplyTo[0], "<jane@example.com>")
	assert.Contains(t, msg.From, "<web@rsi.example>")
	assert.Empty(t, msg.Bcc)

	text := string(msg.Text)
	assert.Contains(t, text, "Name: Jane Doe")
	assert.Contains(t, text, "Phone: 5551234567")
	assert.Contains(t, text, "Submitted: 2025-03-14 09:26:53 UTC")
	assert.Contains(t, string(msg.HTML), "Hello<br>Second line")
}

func TestInternalRecipientResolution(t *testing.T) {
	cases := []struct {
		name      string
		mode      config.Mode
		defaultTo string
		fromEmail string
		want      string
		wantErr   error
	}{
		{"development uses default recipient", config.ModeDevelopment, "dev@rsi.example", "web@rsi.example", "dev@rsi.example", nil},
		{"development without default recipient fails", config.ModeDevelopment, "", "web@rsi.example", "", email.ErrNoRecipient},
		{"production prefers default recipient", config.ModeProduction, "staff@rsi.example", "web@rsi.example", "staff@rsi.example", nil},
		{"production falls back to from address", config.ModeProduction, "", "web@rsi.example", "web@rsi.example", nil},
		{"production with neither fails", config.ModeProduction, "", "", "", email.ErrNoRecipient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := &fakeTransport{}
			cfg := smtpConfig()
			cfg.DefaultTo = tc.defaultTo
			cfg.FromEmail = tc.fromEmail
			svc := newService(cfg, tc.mode, tr)

			err := svc.SendInternalNotice(context.Background(), sampleData())
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.ErrorIs(t, err, email.ErrNotConfigured)
				assert.Empty(t, tr.sent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{tc.want}, tr.last(t).To)
		})
	}
}

func TestInternalNoticeFallsBackToDefaultSender(t *testing.T) {
	tr := &fakeTransport{}
	cfg := smtpConfig()
	cfg.FromEmail = ""
	cfg.FromName = ""
	cfg.DefaultTo = "staff@rsi.example"
	svc := newService(cfg, config.ModeProduction, tr)

	require.NoError(t, svc.SendInternalNotice(context.Background(), sampleData()))
	assert.Equal(t, `"RSI Website" <no-reply@rsi-xray.com>`, tr.last(t).From)
}

func TestDevelopmentSubjectPrefix(t *testing.T) {
	tr := &fakeTransport{}
	cfg := smtpConfig()
	cfg.DefaultTo = "dev@rsi.example"
	svc := newService(cfg, config.ModeDevelopment, tr)

	require.NoError(t, svc.SendInternalNotice(context.Background(), sampleData()))
	assert.Equal(t, "[DEV] [RSI Contact] General Inquiry", tr.last(t).Subject)

	require.NoError(t, svc.SendVisitorConfirmation(context.Background(), sampleData()))
	assert.Equal(t, "[DEV] We've received your message - RSI", tr.last(t).Subject)
}

func TestHTMLBodyEscapesMarkup(t *testing.T) {
	tr := &fakeTransport{}
	cfg := smtpConfig()
	cfg.DefaultTo = "staff@rsi.example"
	svc := newService(cfg, config.ModeProduction, tr)

	data := sampleData()
	data.Name = `Eve <img src=x onerror=alert(1)>`
	data.Message = "<script>alert('x')</script>\nbye"

	require.NoError(t, svc.SendInternalNotice(context.Background(), data))
	require.NoError(t, svc.SendVisitorConfirmation(context.Background(), data))

	for _, msg := range tr.sent {
		html := string(msg.HTML)
		assert.NotContains(t, html, "<script>")
		assert.NotContains(t, html, "<img")
		assert.Contains(t, html, "&lt;script&gt;")
		assert.Contains(t, html, "<br>bye")

		text := string(msg.Text)
		assert.Contains(t, text, "<script>alert('x')</script>")
		assert.Contains(t, text, "<img src=x onerror=alert(1)>")
	}
}

func TestMessageIsMultipartAlternativeTextFirst(t *testing.T) {
	tr := &fakeTransport{}
	cfg := smtpConfig()
	cfg.DefaultTo = "staff@rsi.example"
	svc := newService(cfg, config.ModeProduction, tr)

	require.NoError(t, svc.SendInternalNotice(context.Background(), sampleData()))

	raw, err := tr.last(t).Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "multipart/alternative")

	textAt := bytes.Index(raw, []byte("text/plain"))
	htmlAt := bytes.Index(raw, []byte("text/html"))
	require.NotEqual(t, -1, textAt)
	require.NotEqual(t, -1, htmlAt)
	assert.Less(t, textAt, htmlAt)
}

func TestSendVisitorConfirmation(t *testing.T) {
	t.Run("production sends to the visitor only", func(t *testing.T) {
		tr := &fakeTransport{}
		cfg := smtpConfig()
		cfg.DefaultTo = "staff@rsi.example"
		svc := newService(cfg, config.ModeProduction, tr)

		require.NoError(t, svc.SendVisitorConfirmation(context.Background(), sampleData()))
		msg := tr.last(t)
		require.Len(t, msg.To, 1)
		assert.Contains(t, msg.To[0], "<jane@example.com>")
		assert.Empty(t, msg.Bcc)
		assert.Equal(t, "We've received your message - RSI", msg.Subject)
		assert.Contains(t, string(msg.Text), "Hello Jane Doe,")
		assert.Contains(t, string(msg.HTML), "2025 RSI")
	})

	t.Run("development blind-copies the default recipient", func(t *testing.T) {
		tr := &fakeTransport{}
		cfg := smtpConfig()
		cfg.DefaultTo = "dev@rsi.example"
		svc := newService(cfg, config.ModeDevelopment, tr)

		require.NoError(t, svc.SendVisitorConfirmation(context.Background(), sampleData()))
		assert.Equal(t, []string{"dev@rsi.example"}, tr.last(t).Bcc)
	})

	t.Run("blank submitter email is a no-op", func(t *testing.T) {
		tr := &fakeTransport{}
		svc := newService(smtpConfig(), config.ModeProduction, tr)

		data := sampleData()
		data.Email = "  "
		require.NoError(t, svc.SendVisitorConfirmation(context.Background(), data))
		assert.Empty(t, tr.sent)
	})

	t.Run("missing sender or host is a configuration error", func(t *testing.T) {
		for _, mutate := range []func(*config.SMTPConfig){
			func(c *config.SMTPConfig) { c.FromEmail = "" },
			func(c *config.SMTPConfig) { c.Host = "" },
		} {
			tr := &fakeTransport{}
			cfg := smtpConfig()
			mutate(&cfg)
			svc := newService(cfg, config.ModeProduction, tr)

			err := svc.SendVisitorConfirmation(context.Background(), sampleData())
			assert.ErrorIs(t, err, email.ErrNotConfigured)
			assert.Empty(t, tr.sent)
		}
	})
}

func TestTransportFailureIsDeliveryError(t *testing.T) {
	boom := errors.New("connection refused")
	tr := &fakeTransport{err: boom}
	cfg := smtpConfig()
	cfg.DefaultTo = "staff@rsi.example"
	svc := newService(cfg, config.ModeProduction, tr)

	err := svc.SendInternalNotice(context.Background(), sampleData())
	var deliveryErr *email.DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, "internal_notice", deliveryErr.Kind)
	assert.ErrorIs(t, err, boom)
}

func TestSanitizeSubject(t *testing.T) {
	assert.Equal(t, "Website Contact", email.SanitizeSubject(""))
	assert.Equal(t, "Website Contact", email.SanitizeSubject(" \r\n "))
	assert.Equal(t, "Line one  line two", email.SanitizeSubject("Line one\r\nline two"))

	long := strings.Repeat("abcdefghi\n", 20) // 200 characters
	got := email.SanitizeSubject(long)
	assert.Len(t, []rune(got), 120)
	assert.NotContains(t, got, "\n")
	assert.Equal(t, strings.Repeat("abcdefghi ", 12), got)
}

func TestIsConfigured(t *testing.T) {
	assert.True(t, newService(smtpConfig(), config.ModeProduction, nil).IsConfigured())

	cfg := smtpConfig()
	cfg.Password = ""
	assert.False(t, newService(cfg, config.ModeProduction, nil).IsConfigured())
}
