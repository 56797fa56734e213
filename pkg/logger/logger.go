package logger

import (
	"log/slog"
	"os"
	"strings"
)

func InitLogger() {
	SetLevel("info")
}

// SetLevel replaces the default logger once the configured level is known.
func SetLevel(level string) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	slog.SetDefault(slog.New(&RequestIDHandler{Handler: handler}))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
