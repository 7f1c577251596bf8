package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shestoi/stockkeeper/internal/service"
)

func TestLogPublisher_Publish(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewLogPublisher(zap.New(core))

	p.Publish(context.Background(), service.Event{Kind: service.EventStockReserved, ProductID: "p-1", LocationCode: "MAIN", Amount: 3})
	p.Publish(context.Background(), service.Event{Kind: service.EventStatusChanged, ProductID: "p-1", LocationCode: "MAIN", NewStatus: "LOW_STOCK"})

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "stock.reserved", entries[0].ContextMap()["event_type"])
	require.Equal(t, int32(3), entries[0].ContextMap()["amount"])
	require.Equal(t, "LOW_STOCK", entries[1].ContextMap()["status"])
}
