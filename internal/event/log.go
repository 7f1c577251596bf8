package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/shestoi/stockkeeper/internal/service"
	platformobservability "github.com/shestoi/stockkeeper/platform/observability"
)

// LogPublisher реализует EventPublisher без брокера: события только пишутся в лог
// Используется, когда KAFKA_BROKERS не задан (локальная разработка, тесты)
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher создаёт новый LogPublisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish пишет событие в лог на уровне debug
func (p *LogPublisher) Publish(ctx context.Context, e service.Event) {
	fields := []zap.Field{
		zap.String("event_type", string(e.Kind)),
		zap.String("product_id", e.ProductID),
		zap.String("location_code", e.LocationCode),
	}
	if e.Kind == service.EventStatusChanged {
		fields = append(fields, zap.String("status", string(e.NewStatus)))
	} else {
		fields = append(fields, zap.Int32("amount", e.Amount))
	}
	platformobservability.L(ctx, p.logger).Debug("stock event", fields...)
}
