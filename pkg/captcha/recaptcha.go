package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultVerifyURL is Google's server-side verification endpoint.
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

var (
	ErrMissingToken       = errors.New("reCAPTCHA token is required")
	ErrMissingSecret      = errors.New("reCAPTCHA secret key not configured")
	ErrVerificationFailed = errors.New("reCAPTCHA verification failed")
)

// Verifier checks reCAPTCHA v2 response tokens. It is safe for concurrent use.
type Verifier struct {
	secretKey string
	verifyURL string
	client    *http.Client
}

type Option func(*Verifier)

// WithVerifyURL points the verifier at a different endpoint.
func WithVerifyURL(u string) Option {
	return func(v *Verifier) {
		if u != "" {
			v.verifyURL = u
		}
	}
}

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) {
		if c != nil {
			v.client = c
		}
	}
}

// NewVerifier creates a new reCAPTCHA verifier
func NewVerifier(secretKey string, opts ...Option) *Verifier {
	v := &Verifier{
		secretKey: secretKey,
		verifyURL: DefaultVerifyURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Response represents the response from Google's reCAPTCHA API.
// Keys are matched case-insensitively by encoding/json.
type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
}

// Verify checks token against the provider. An empty token or secret fails
// without any network call. A nil error means the challenge was passed.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return ErrMissingToken
	}
	if strings.TrimSpace(v.secretKey) == "" {
		return ErrMissingSecret
	}

	data := url.Values{}
	data.Set("secret", v.secretKey)
	data.Set("response", token)
	data.Set("remoteip", remoteIP)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create reCAPTCHA request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to verify reCAPTCHA: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: provider returned status %d", ErrVerificationFailed, resp.StatusCode)
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to parse reCAPTCHA response: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, result.ErrorCodes)
	}

	return nil
}
