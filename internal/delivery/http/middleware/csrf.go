package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"rsi-website-backend/internal/delivery/http/response"
	"rsi-website-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

const (
	// CSRFTokenCookieName is the name of the cookie that stores the CSRF token
	CSRFTokenCookieName = "csrf_token"
	// CSRFTokenHeaderName is the name of the header that may carry the CSRF token
	CSRFTokenHeaderName = "X-CSRF-Token"
	// CSRFTokenFormField is the hidden form field the contact page posts
	CSRFTokenFormField = "csrf_token"
	// CSRFTokenContextKey exposes the current token to page handlers
	CSRFTokenContextKey = "csrf_token"
	// CSRFTokenLength is the length of the generated token in bytes (32 bytes = 64 hex chars)
	CSRFTokenLength = 32
	// CSRFTokenExpiry is how long the token is valid
	CSRFTokenExpiry = 24 * time.Hour
)

// CSRFConfig controls the double-submit cookie.
type CSRFConfig struct {
	// Secure marks the cookie HTTPS-only. Disable for plain-HTTP development.
	Secure bool
	// ExemptPaths skip validation but still receive a cookie.
	ExemptPaths []string
	Events      *security.SecurityLogger
}

// generateCSRFToken creates a cryptographically secure random token
func generateCSRFToken() (string, error) {
	bytes := make([]byte, CSRFTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// CSRFMiddleware implements the double-submit cookie pattern.
//
// Every response without a csrf_token cookie gets one. Unsafe methods must
// echo the cookie value in the X-CSRF-Token header or the csrf_token form
// field. A cross-origin attacker can make the browser send the cookie but
// cannot read it, so cannot echo it.
func CSRFMiddleware(cfg CSRFConfig) gin.HandlerFunc {
	exempt := make(map[string]bool, len(cfg.ExemptPaths))
	for _, p := range cfg.ExemptPaths {
		exempt[p] = true
	}

	return func(c *gin.Context) {
		csrfCookie, err := c.Cookie(CSRFTokenCookieName)
		if err != nil || csrfCookie == "" {
			newToken, err := generateCSRFToken()
			if err != nil {
				response.Error(c, http.StatusInternalServerError, "Failed to generate security token", nil)
				c.Abort()
				return
			}

			// SameSite=Lax: sent on top-level navigations, not cross-site subrequests
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(
				CSRFTokenCookieName,
				newToken,
				int(CSRFTokenExpiry.Seconds()),
				"/",
				"", // Domain (empty = current domain)
				cfg.Secure,
				false, // HttpOnly = false so JS can read it
			)
			csrfCookie = newToken
		}
		c.Set(CSRFTokenContextKey, csrfCookie)

		method := c.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions || exempt[c.Request.URL.Path] {
			c.Next()
			return
		}

		submitted := c.GetHeader(CSRFTokenHeaderName)
		if submitted == "" {
			submitted = c.PostForm(CSRFTokenFormField)
		}

		reason := ""
		switch {
		case submitted == "":
			reason = "missing token"
		case subtle.ConstantTimeCompare([]byte(submitted), []byte(csrfCookie)) != 1:
			reason = "token mismatch"
		}
		if reason != "" {
			events := cfg.Events
			if events == nil {
				events = security.DefaultLogger()
			}
			events.LogCSRFViolation(c.Request.Context(), c.ClientIP(), c.GetHeader("User-Agent"), c.GetString(RequestIDKey), reason)

			response.Error(c, http.StatusForbidden, "Invalid or missing CSRF token", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
