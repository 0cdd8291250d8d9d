package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rsi-website-backend/config"
	v1 "rsi-website-backend/internal/delivery/http/v1"
	"rsi-website-backend/internal/usecase"
	"rsi-website-backend/pkg/captcha"
	"rsi-website-backend/pkg/email"
	"rsi-website-backend/pkg/logger"
	"rsi-website-backend/pkg/redis"
	"rsi-website-backend/pkg/security"
	"rsi-website-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const serviceName = "rsi-website-backend"

var rootCmd = &cobra.Command{
	Use:   "rsi-web",
	Short: "RSI website backend - contact form service",
	Long: `Serves the RSI contact page and forwards validated submissions to staff by email,
with a confirmation sent back to the visitor.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate configuration and exit",
	Long: `Load configuration the same way serve does and report whether it is complete.
Secrets are never printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "configuration OK (env=%s, smtp=%s:%d, rate limit=%d/%s, redis=%t)\n",
			cfg.Environment, cfg.SMTP.Host, cfg.SMTP.Port, cfg.ContactRateLimit, cfg.ContactRateWindow, cfg.RedisURL != "")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, checkConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Setup Loggers
	logger.Init(cfg.Log)
	defer logger.Close()
	events := security.InitSecurityLogger(serviceName, cfg.Environment.String())
	defer events.Sync()
	logger.Log.Info("Starting RSI website backend", "port", cfg.Port, "env", cfg.Environment.String())

	if !cfg.Environment.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Setup Rate Limit Store
	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.Connect(ctx, redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
		if err != nil {
			// in-memory limiting still works on a single instance
			logger.Log.Warn("Redis unavailable, rate limiting in memory", "error", err)
		} else {
			defer redisClient.Close()
		}
	}

	// 4. Setup Email Service
	emailService := email.NewEmailService(cfg.SMTP, cfg.Environment, cfg.SiteName, email.NewSMTPTransport(cfg.SMTP))
	if !emailService.IsConfigured() {
		logger.Log.Warn("Email service not fully configured - contact form will be unavailable")
	}

	// 5. Setup UseCases
	verifier := captcha.NewVerifier(cfg.Recaptcha.SecretKey, captcha.WithVerifyURL(cfg.Recaptcha.VerifyURL))
	contactUC := usecase.NewContactUsecase(emailService, verifier, validation.New(), events)

	// 6. Setup Router
	router, err := v1.NewRouter(v1.RouterDeps{
		ContactUC: contactUC,
		Config:    cfg,
		Redis:     redisClient,
		Events:    events,
	})
	if err != nil {
		return err
	}

	// 7. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// a submission may wait on reCAPTCHA plus two SMTP sends
		WriteTimeout: 2*cfg.SMTP.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful Shutdown
	select {
	case err := <-serveErr:
		if err != nil {
			logger.Log.Error("Listen failed", "error", err)
			return err
		}
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.SMTP.Timeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
		return err
	}

	logger.Log.Info("Server exiting")
	return nil
}
