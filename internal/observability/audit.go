package observability

import (
	"context"

	"producechain/internal/core"
)

// AuditLogger writes one structured log line per service call.
type AuditLogger struct {
	logger *Logger
}

var _ core.AuditRecorder = (*AuditLogger)(nil)

// NewAuditLogger tags every entry with component=audit.
func NewAuditLogger(logger *Logger) *AuditLogger {
	return &AuditLogger{logger: logger.With("component", "audit")}
}

// Record implements core.AuditRecorder.
func (a *AuditLogger) Record(_ context.Context, entry core.AuditEntry) {
	args := []any{
		"operation", entry.Operation,
		"caller_org", entry.CallerOrg,
		"status", string(entry.Status),
		"duration_ms", entry.Duration.Milliseconds(),
		"at", entry.At.UTC(),
	}
	if entry.Error != "" {
		args = append(args, "error", entry.Error)
	}
	a.logger.Info("audit", args...)
}
