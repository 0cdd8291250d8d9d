package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"rsi-website-backend/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process-wide operational logger. It points at slog's default
// logger until Init runs so packages can log from tests without setup.
var Log = slog.Default()

var rotator *lumberjack.Logger

func Init(cfg config.LogConfig) {
	var out io.Writer = os.Stdout
	if cfg.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
	}

	// JSON handler for production-ready logging
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	})
	Log = slog.New(handler)
}

// Close releases the rotating log file, if any.
func Close() error {
	if rotator != nil {
		return rotator.Close()
	}
	return nil
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
