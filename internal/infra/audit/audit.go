// File: internal/infra/audit/audit.go
package audit

import (
	"context"

	"github.com/rs/zerolog"

	"pos-license-platform/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.AuditSink = (*LogSink)(nil)

// LogSink writes audit events to the structured log. Recording is
// fire-and-forget: a dropped event never fails the business operation that
// produced it.
type LogSink struct {
	log *zerolog.Logger
}

func NewLogSink(logger *zerolog.Logger) *LogSink {
	l := logger.With().Str("component", "Audit").Logger()
	return &LogSink{log: &l}
}

func (s *LogSink) Record(ctx context.Context, event string, fields map[string]any) {
	e := s.log.Info().Str("event", event)
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg("audit")
}
