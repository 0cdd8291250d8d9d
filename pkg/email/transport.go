package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	jemail "github.com/jordan-wright/email"
)

// Transport delivers a composed message.
type Transport interface {
	Send(ctx context.Context, msg *jemail.Email) error
}

// implicitTLSPort is the SMTPS submission port; everything else negotiates
// STARTTLS when TLS is enabled.
const implicitTLSPort = 465

// SMTPTransport submits each message over its own SMTP connection.
// net/smtp clients are not safe for concurrent use, so nothing is pooled.
type SMTPTransport struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	Timeout  time.Duration

	// TLSConfig overrides the default TLS settings (tests, private CAs).
	TLSConfig *tls.Config
}

// Send opens a connection, authenticates, submits msg and quits. The whole
// exchange is bounded by Timeout and by ctx, whichever ends first.
func (t *SMTPTransport) Send(ctx context.Context, msg *jemail.Email) error {
	from, rcpts, err := envelope(msg)
	if err != nil {
		return err
	}
	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("failed to compose message: %w", err)
	}

	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	addr := net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// unblock any in-flight read or write once ctx is done
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	tlsConfig := t.tlsConfig()
	if t.UseTLS && t.Port == implicitTLSPort {
		conn = tls.Client(conn, tlsConfig)
	}

	c, err := smtp.NewClient(conn, t.Host)
	if err != nil {
		return t.wrap(ctx, "greeting", err)
	}
	defer c.Close()

	if t.UseTLS && t.Port != implicitTLSPort {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return errors.New("server does not support STARTTLS")
		}
		if err := c.StartTLS(tlsConfig); err != nil {
			return t.wrap(ctx, "starttls", err)
		}
	}

	if t.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", t.Username, t.Password, t.Host)); err != nil {
				return t.wrap(ctx, "auth", err)
			}
		}
	}

	if err := c.Mail(from); err != nil {
		return t.wrap(ctx, "mail from", err)
	}
	for _, rcpt := range rcpts {
		if err := c.Rcpt(rcpt); err != nil {
			return t.wrap(ctx, "rcpt to", err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return t.wrap(ctx, "data", err)
	}
	if _, err := w.Write(raw); err != nil {
		return t.wrap(ctx, "data", err)
	}
	if err := w.Close(); err != nil {
		return t.wrap(ctx, "data", err)
	}

	return c.Quit()
}

func (t *SMTPTransport) tlsConfig() *tls.Config {
	if t.TLSConfig != nil {
		return t.TLSConfig
	}
	return &tls.Config{
		ServerName: t.Host,
		MinVersion: tls.VersionTLS12,
	}
}

// wrap prefers the context error so callers see a timeout rather than an
// i/o deadline error.
func (t *SMTPTransport) wrap(ctx context.Context, stage string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("smtp %s: %w", stage, ctxErr)
	}
	return fmt.Errorf("smtp %s: %w", stage, err)
}

// envelope extracts the bare sender and recipient addresses the way
// jordan-wright/email does for its own Send: To, Cc and Bcc all receive the
// message while only To and Cc appear in the headers.
func envelope(msg *jemail.Email) (string, []string, error) {
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return "", nil, fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}

	var rcpts []string
	for _, list := range [][]string{msg.To, msg.Cc, msg.Bcc} {
		for _, r := range list {
			addr, err := mail.ParseAddress(r)
			if err != nil {
				return "", nil, fmt.Errorf("invalid recipient %q: %w", r, err)
			}
			rcpts = append(rcpts, addr.Address)
		}
	}
	if len(rcpts) == 0 {
		return "", nil, errors.New("message has no recipients")
	}
	return from.Address, rcpts, nil
}
