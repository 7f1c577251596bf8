package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shestoi/stockkeeper/internal/service"
	platformobservability "github.com/shestoi/stockkeeper/platform/observability"
)

const eventVersion = 1

// messageWriter - часть kafka.Writer, которая нужна publisher-у
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StockEventPublisher реализует EventPublisher используя Kafka
// Writer работает в асинхронном режиме: Publish не ждёт подтверждения брокера,
// ошибки доставки приходят в Completion и только логируются
type StockEventPublisher struct {
	logger      *zap.Logger
	writer      messageWriter
	topicPrefix string
}

// NewStockEventPublisher создаёт новый Kafka publisher складских событий
func NewStockEventPublisher(logger *zap.Logger, brokers []string, topicPrefix string) *StockEventPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{}, // ключ - product_id, события одного товара попадают в одну партицию
		Async:                  true,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err == nil {
				return
			}
			for _, m := range messages {
				logger.Error("failed to deliver stock event",
					zap.Error(err),
					zap.String("topic", m.Topic),
					zap.String("product_id", string(m.Key)),
				)
			}
		},
	}
	return newStockEventPublisher(logger, writer, topicPrefix)
}

func newStockEventPublisher(logger *zap.Logger, writer messageWriter, topicPrefix string) *StockEventPublisher {
	return &StockEventPublisher{
		logger:      logger,
		writer:      writer,
		topicPrefix: topicPrefix,
	}
}

// Close закрывает Kafka writer, дожидаясь отправки буферизованных сообщений
func (p *StockEventPublisher) Close() error {
	return p.writer.Close()
}

// Topic возвращает топик для типа события
func (p *StockEventPublisher) Topic(kind service.EventKind) string {
	return p.topicPrefix + string(kind)
}

// Publish публикует событие в топик его типа
// Ошибки сериализации и отправки логируются и не возвращаются вызывающему
func (p *StockEventPublisher) Publish(ctx context.Context, event service.Event) {
	logger := platformobservability.L(ctx, p.logger)
	topic := p.Topic(event.Kind)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	payload := map[string]interface{}{
		"event_id":      uuid.New().String(),
		"event_type":    string(event.Kind),
		"event_version": eventVersion,
		"occurred_at":   occurredAt.Format(time.RFC3339),
		"product_id":    event.ProductID,
		"location_code": event.LocationCode,
	}
	switch event.Kind {
	case service.EventStatusChanged:
		payload["new_status"] = string(event.NewStatus)
	case service.EventProductCreated:
		payload["quantity"] = event.Amount
	default:
		payload["amount"] = event.Amount
	}

	value, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal stock event",
			zap.Error(err),
			zap.String("event_type", string(event.Kind)),
			zap.String("product_id", event.ProductID),
		)
		return
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(event.ProductID),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.Error("failed to publish stock event",
			zap.Error(err),
			zap.String("topic", topic),
			zap.String("product_id", event.ProductID),
		)
		return
	}

	logger.Debug("stock event queued",
		zap.String("topic", topic),
		zap.String("product_id", event.ProductID),
	)
}
