package adapter

import "context"

// AuditSink receives fire-and-forget notifications of state changes.
// Implementations must never fail the calling operation; delivery is
// best-effort.
type AuditSink interface {
	Record(ctx context.Context, event string, fields map[string]any)
}
