package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/closing"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockHandler) EventTypes() []string {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.([]string)
	}
	return nil
}

type panickingHandler struct{}

func (panickingHandler) Handle(context.Context, shared.DomainEvent) error { panic("boom") }
func (panickingHandler) EventTypes() []string                            { return nil }

func movedEvent(t *testing.T) *inventory.StockMovedEvent {
	t.Helper()
	m, err := inventory.NewStockMovement(inventory.MovementParams{
		Reference: "MVT-2026-000001",
		Type:      inventory.MovementReceipt,
		ArticleID: uuid.New(),
		DepotID:   uuid.New(),
		Quantity:  decimal.NewFromInt(50),
		UnitCost:  decimal.NewFromInt(4),
	})
	require.NoError(t, err)
	return inventory.NewStockMovedEvent(m)
}

func TestInMemoryEventBus_Routing(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	typed := new(MockHandler)
	typed.On("EventTypes").Return([]string{inventory.EventTypeStockMoved})
	wildcard := new(MockHandler)
	wildcard.On("EventTypes").Return(nil)

	bus.Subscribe(typed)
	bus.Subscribe(wildcard)

	moved := movedEvent(t)
	period, err := closing.NewPeriodClosing(2026, 3)
	require.NoError(t, err)
	closed := closing.NewPeriodClosedEvent(period)

	typed.On("Handle", ctx, moved).Return(nil).Once()
	wildcard.On("Handle", ctx, moved).Return(nil).Once()
	wildcard.On("Handle", ctx, closed).Return(nil).Once()

	require.NoError(t, bus.Publish(ctx, moved, closed))

	typed.AssertExpectations(t)
	wildcard.AssertExpectations(t)
	typed.AssertNotCalled(t, "Handle", ctx, closed)
}

func TestInMemoryEventBus_FailuresAreIsolated(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))
	ctx := context.Background()

	failing := new(MockHandler)
	failing.On("Handle", ctx, mock.Anything).Return(errors.New("downstream unavailable"))
	after := new(MockHandler)
	after.On("Handle", ctx, mock.Anything).Return(nil)

	bus.Subscribe(panickingHandler{}, inventory.EventTypeStockMoved)
	bus.Subscribe(failing, inventory.EventTypeStockMoved)
	bus.Subscribe(after, inventory.EventTypeStockMoved)

	err := bus.Publish(ctx, movedEvent(t))

	assert.NoError(t, err, "publishing never fails the caller")
	after.AssertNumberOfCalls(t, "Handle", 1)
	assert.Equal(t, 2, recorded.FilterMessage("Event handler failed").Len())
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	a, b := new(MockHandler), new(MockHandler)

	r.Register(a, inventory.EventTypeLotExpired, inventory.EventTypeLotExpiryAlert)
	r.Register(b)

	assert.Equal(t, 3, r.Len())

	expired := r.Handlers(inventory.EventTypeLotExpired)
	require.Len(t, expired, 2)
	assert.Same(t, a, expired[0])
	assert.Same(t, b, expired[1])

	other := r.Handlers(inventory.EventTypeReservationCreated)
	require.Len(t, other, 1)
	assert.Same(t, b, other[0])
}

func TestLogHandler(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	h := NewLogHandler(zap.New(core))
	ctx := context.Background()

	moved := movedEvent(t)
	require.NoError(t, h.Handle(ctx, moved))

	depotID := uuid.New()
	expiry := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	lot, err := inventory.NewLot("LOT-2026-000001", uuid.New(), &depotID, decimal.NewFromInt(3), decimal.NewFromInt(1),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil, &expiry)
	require.NoError(t, err)
	require.NoError(t, h.Handle(ctx, inventory.NewLotEvent(inventory.EventTypeLotExpiryAlert, lot, expiry.AddDate(0, 0, -5))))

	entries := recorded.All()
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, zapcore.InfoLevel, first.Level)
	assert.Equal(t, inventory.EventTypeStockMoved, first.ContextMap()["event_type"])
	assert.Equal(t, moved.AggregateID().String(), first.ContextMap()["aggregate_id"])

	var payload map[string]any
	raw, err := json.Marshal(first.ContextMap()["payload"])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "MVT-2026-000001", payload["reference"])
	assert.Equal(t, "50", payload["quantity"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Empty(t, h.EventTypes())
}
