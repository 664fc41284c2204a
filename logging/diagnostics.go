package logging

import (
	"context"
	"log/slog"
)

// Severity of a diagnostic report.
type Severity string

const (
	SeverityError  Severity = "error"
	SeverityNotice Severity = "notice"
	SeverityDebug  Severity = "debug"
)

// Diagnostics receives (message, context blob, severity) tuples from the
// ledger and coordinator. Implementations decide where reports go; the
// engine only guarantees that collisions and multi-correspondence matches
// are reported exactly once each.
type Diagnostics interface {
	// Report records a diagnostic. contextBlob is an arbitrary dump of the
	// condition (a row, a conflicting set of rows, a parameter set).
	Report(ctx context.Context, severity Severity, msg string, contextBlob string)
}

// SlogDiagnostics routes diagnostics to a Logger.
type SlogDiagnostics struct {
	logger *Logger
}

// NewSlogDiagnostics creates a Diagnostics backed by the given logger.
func NewSlogDiagnostics(logger *Logger) *SlogDiagnostics {
	return &SlogDiagnostics{logger: logger}
}

func (d *SlogDiagnostics) Report(ctx context.Context, severity Severity, msg string, contextBlob string) {
	attrs := []any{slog.String("context", contextBlob)}
	switch severity {
	case SeverityError:
		d.logger.ErrorContext(ctx, msg, attrs...)
	case SeverityNotice:
		d.logger.WarnContext(ctx, msg, attrs...)
	default:
		d.logger.DebugContext(ctx, msg, attrs...)
	}
}

// NopDiagnostics discards all reports. Default for tests.
type NopDiagnostics struct{}

func (NopDiagnostics) Report(context.Context, Severity, string, string) {}

var (
	_ Diagnostics = (*SlogDiagnostics)(nil)
	_ Diagnostics = NopDiagnostics{}
)
