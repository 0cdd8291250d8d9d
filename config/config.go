package config

import (
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Mode is the execution mode the service runs in. It drives the [DEV] subject
// prefix and the recipient routing of outbound mail.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// UnmarshalText accepts the long and short spellings of each mode.
func (m *Mode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "development", "dev", "local":
		*m = ModeDevelopment
	case "production", "prod", "release":
		*m = ModeProduction
	default:
		return fmt.Errorf("unknown mode %q (want development or production)", string(text))
	}
	return nil
}

func (m Mode) IsDevelopment() bool {
	return m == ModeDevelopment
}

func (m Mode) String() string {
	return string(m)
}

// SMTPConfig holds the outbound mail settings.
type SMTPConfig struct {
	Host      string        `env:"SMTP_HOST,required,notEmpty"`
	Port      int           `env:"SMTP_PORT" envDefault:"587"`
	Username  string        `env:"SMTP_USERNAME,required,notEmpty"`
	Password  string        `env:"SMTP_PASSWORD,required,notEmpty"`
	FromEmail string        `env:"SMTP_FROM_EMAIL"`
	FromName  string        `env:"SMTP_FROM_NAME" envDefault:"RSI Website"`
	EnableSSL bool          `env:"SMTP_ENABLE_SSL" envDefault:"true"`
	DefaultTo string        `env:"SMTP_DEFAULT_TO"` // dev routing target and internal-notice fallback
	Timeout   time.Duration `env:"SMTP_TIMEOUT" envDefault:"30s"`
}

// RecaptchaConfig holds the reCAPTCHA key pair.
type RecaptchaConfig struct {
	SiteKey   string `env:"RECAPTCHA_SITE_KEY,required,notEmpty"`
	SecretKey string `env:"RECAPTCHA_SECRET_KEY,required,notEmpty"`
	// ScoreThreshold is only meaningful for the v3 score check, which the
	// contact form does not use yet.
	ScoreThreshold float64 `env:"RECAPTCHA_SCORE_THRESHOLD" envDefault:"0.5"`
	VerifyURL      string  `env:"RECAPTCHA_VERIFY_URL" envDefault:"https://www.google.com/recaptcha/api/siteverify"`
}

// LogConfig configures the operational logger.
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
}

type Config struct {
	Environment    Mode     `env:"APP_ENV" envDefault:"production"`
	Port           string   `env:"PORT" envDefault:"8080"`
	SiteName       string   `env:"SITE_NAME" envDefault:"RSI"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	SMTP      SMTPConfig
	Recaptcha RecaptchaConfig
	Log       LogConfig

	// Redis backs the contact rate limiter; empty means in-memory.
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	ContactRateLimit  int           `env:"CONTACT_RATE_LIMIT" envDefault:"5"`
	ContactRateWindow time.Duration `env:"CONTACT_RATE_WINDOW" envDefault:"1m"`
}

// LoadConfig reads .env (when present) and the process environment, then
// validates the result. A missing required value is an error: the service
// must not start half-configured.
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	_ = godotenv.Load()

	return Parse(nil)
}

// Parse builds a Config from environ, or from the process environment when
// environ is nil.
func Parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{Environment: environ}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.RedisURL == "" {
		log.Println("WARNING: REDIS_URL not configured. Rate limiting will use in-memory fallback.")
	}

	return cfg, nil
}

// Validate checks the values the struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("SMTP_PORT out of range: %d", c.SMTP.Port))
	}
	if c.SMTP.Timeout <= 0 {
		errs = append(errs, errors.New("SMTP_TIMEOUT must be positive"))
	}
	if c.SMTP.FromEmail != "" {
		if _, err := mail.ParseAddress(c.SMTP.FromEmail); err != nil {
			errs = append(errs, fmt.Errorf("SMTP_FROM_EMAIL is not a valid address: %w", err))
		}
	}
	if c.SMTP.DefaultTo != "" {
		if _, err := mail.ParseAddress(c.SMTP.DefaultTo); err != nil {
			errs = append(errs, fmt.Errorf("SMTP_DEFAULT_TO is not a valid address: %w", err))
		}
	}
	if c.Recaptcha.ScoreThreshold < 0 || c.Recaptcha.ScoreThreshold > 1 {
		errs = append(errs, fmt.Errorf("RECAPTCHA_SCORE_THRESHOLD must be within [0,1]: %v", c.Recaptcha.ScoreThreshold))
	}
	if c.ContactRateLimit < 1 {
		errs = append(errs, errors.New("CONTACT_RATE_LIMIT must be at least 1"))
	}
	if c.ContactRateWindow <= 0 {
		errs = append(errs, errors.New("CONTACT_RATE_WINDOW must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
