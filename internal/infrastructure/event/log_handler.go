package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogHandler records every domain event as one structured log entry with its
// JSON payload. It is the default sink; downstream consumers read the log stream.
type LogHandler struct {
	logger *zap.Logger
}

// NewLogHandler creates a LogHandler writing to the "domain_events" logger
func NewLogHandler(l *zap.Logger) *LogHandler {
	return &LogHandler{logger: l.Named("domain_events")}
}

// Handle implements shared.EventHandler
func (h *LogHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.EventType(), err)
	}

	log := logger.For(ctx, h.logger)
	if ce := log.Check(levelFor(evt.EventType()), "Domain event"); ce != nil {
		ce.Write(
			zap.String("event_type", evt.EventType()),
			zap.String("event_id", evt.EventID().String()),
			zap.String("aggregate_type", evt.AggregateType()),
			zap.String("aggregate_id", evt.AggregateID().String()),
			zap.Time("occurred_at", evt.OccurredAt()),
			zap.Any("payload", json.RawMessage(payload)),
		)
	}
	return nil
}

// EventTypes implements shared.EventHandler; the handler takes every event
func (h *LogHandler) EventTypes() []string {
	return nil
}

// Alerts stand out in the stream; everything else is routine
func levelFor(eventType string) zapcore.Level {
	switch eventType {
	case inventory.EventTypeLotExpiryAlert, inventory.EventTypeLotExpired:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
