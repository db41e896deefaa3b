package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds the retries of a write that lost an optimistic version check
const DefaultMaxAttempts = 3

// StrategyProvider resolves lot selection and valuation strategies by name
type StrategyProvider interface {
	GetLotStrategyOrDefault(name string) strategy.LotSelectionStrategy
	GetValuationStrategy(name string) (strategy.ValuationStrategy, error)
}

// Metrics records business metrics of the stock engine
type Metrics interface {
	RecordMovement(ctx context.Context, movementType, direction string)
	RecordInsufficientStock(ctx context.Context, operation string)
	RecordReservation(ctx context.Context, action string)
	RecordLotsExpired(ctx context.Context, count int)
}

type noopMetrics struct{}

func (noopMetrics) RecordMovement(context.Context, string, string) {}
func (noopMetrics) RecordInsufficientStock(context.Context, string) {}
func (noopMetrics) RecordReservation(context.Context, string) {}
func (noopMetrics) RecordLotsExpired(context.Context, int) {}

// Dependencies are the collaborators shared by every stock service
type Dependencies struct {
	Scope      TransactionScope
	Strategies StrategyProvider
	Events     shared.EventPublisher
	Metrics    Metrics
	Logger     *zap.Logger
	// Clock defaults to time.Now
	Clock func() time.Time
	// MaxAttempts defaults to DefaultMaxAttempts
	MaxAttempts int
}

// base carries the plumbing common to the services of this package
type base struct {
	scope       TransactionScope
	strategies  StrategyProvider
	events      shared.EventPublisher
	metrics     Metrics
	logger      *zap.Logger
	clock       func() time.Time
	maxAttempts int
	poster      *poster
}

func newBase(deps Dependencies) base {
	b := base{
		scope:       deps.Scope,
		strategies:  deps.Strategies,
		events:      deps.Events,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		clock:       deps.Clock,
		maxAttempts: deps.MaxAttempts,
	}
	if b.metrics == nil {
		b.metrics = noopMetrics{}
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.clock == nil {
		b.clock = time.Now
	}
	if b.maxAttempts <= 0 {
		b.maxAttempts = DefaultMaxAttempts
	}
	b.poster = &poster{strategies: b.strategies, metrics: b.metrics, clock: b.clock}
	return b
}

// run executes fn in a transaction and replays it when the write lost a
// version check against a concurrent writer. fn must rebuild its state on every call.
func (b *base) run(ctx context.Context, operation string, fn func(repos TransactionalRepositories) error) error {
	var err error
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		err = b.scope.Execute(ctx, fn)
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			break
		}
		b.logger.Warn("Concurrent update detected, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	if errors.Is(err, shared.ErrInsufficientStock) {
		b.metrics.RecordInsufficientStock(ctx, operation)
	}
	return err
}

// read executes fn in a transaction without retries
func (b *base) read(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	return b.scope.Execute(ctx, fn)
}

// publish delivers events collected during a committed transaction.
// Publishing failures are logged, the write already happened.
func (b *base) publish(ctx context.Context, events []shared.DomainEvent) {
	if b.events == nil || len(events) == 0 {
		return
	}
	if err := b.events.Publish(ctx, events...); err != nil {
		b.logger.Warn("Failed to publish domain events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}

// collect drains the pending events of aggregates
func collect(aggregates ...shared.AggregateRoot) []shared.DomainEvent {
	var events []shared.DomainEvent
	for _, a := range aggregates {
		if a == nil {
			continue
		}
		events = append(events, a.GetDomainEvents()...)
		a.ClearDomainEvents()
	}
	return events
}
