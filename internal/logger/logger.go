// Package logger provides structured logging using Go 1.21's log/slog.
// It sets up a JSON handler with service-level context and carries a
// scan ID through context.Context so every log line of one scan request
// groups together.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

type ctxKey string

const scanIDKey ctxKey = "scan_id"

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// WithScanID stores a scan ID in the context for downstream propagation.
func WithScanID(ctx context.Context, scanID string) context.Context {
	return context.WithValue(ctx, scanIDKey, scanID)
}

// ScanID extracts the scan ID from context. Returns "" if not set.
func ScanID(ctx context.Context) string {
	if v, ok := ctx.Value(scanIDKey).(string); ok {
		return v
	}
	return ""
}

// NewScanID creates a scan ID from the request source and timestamp.
// Format: "{source}-{unixNano}", lightweight with no UUID dependency.
func NewScanID(source string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", source, ts.UnixNano())
}

// WithScan returns slog attributes including the scan ID from context.
// Usage: slog.Info("msg", logger.WithScan(ctx)...)
func WithScan(ctx context.Context) []any {
	sid := ScanID(ctx)
	if sid == "" {
		return nil
	}
	return []any{slog.String("scan_id", sid)}
}
