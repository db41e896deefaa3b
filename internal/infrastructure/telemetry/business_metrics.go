package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Attribute keys shared by the stock instruments
var (
	AttrMovementType = attribute.Key("movement_type")
	AttrDirection    = attribute.Key("direction")
	AttrOperation    = attribute.Key("operation")
	AttrAction       = attribute.Key("action")
	AttrStatus       = attribute.Key("status")
)

// StockMetrics records ledger, reservation, lot and closing activity. It
// serves as the Metrics collaborator of both the inventory and the closing
// services.
type StockMetrics struct {
	movements       metric.Int64Counter
	insufficient    metric.Int64Counter
	reservations    metric.Int64Counter
	lotsExpired     metric.Int64Counter
	closings        metric.Int64Counter
	closingDuration metric.Float64Histogram
	closingCoverage metric.Float64Gauge
}

// NewStockMetrics creates the instruments on meter
func NewStockMetrics(meter metric.Meter) (*StockMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &StockMetrics{}
	var err error
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&m.movements, "stock_movements_total", "Validated stock movements", "{movement}"},
		{&m.insufficient, "stock_insufficient_total", "Operations refused for lack of available stock", "{operation}"},
		{&m.reservations, "stock_reservations_total", "Reservation lifecycle transitions", "{reservation}"},
		{&m.lotsExpired, "stock_lots_expired_total", "Lots moved to EXPIRED by the sweep", "{lot}"},
		{&m.closings, "stock_closings_total", "Period closing runs by outcome", "{closing}"},
	}
	for _, c := range counters {
		*c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
	}

	m.closingDuration, err = meter.Float64Histogram("stock_closing_duration_seconds",
		metric.WithDescription("Wall time of a period closing run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(ClosingDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram stock_closing_duration_seconds: %w", err)
	}

	m.closingCoverage, err = meter.Float64Gauge("stock_closing_coverage_ratio",
		metric.WithDescription("Share of stock lines valued by the last closing run"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge stock_closing_coverage_ratio: %w", err)
	}
	return m, nil
}

func (m *StockMetrics) RecordMovement(ctx context.Context, movementType, direction string) {
	m.movements.Add(ctx, 1, metric.WithAttributes(AttrMovementType.String(movementType), AttrDirection.String(direction)))
}

func (m *StockMetrics) RecordInsufficientStock(ctx context.Context, operation string) {
	m.insufficient.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(operation)))
}

func (m *StockMetrics) RecordReservation(ctx context.Context, action string) {
	m.reservations.Add(ctx, 1, metric.WithAttributes(AttrAction.String(action)))
}

func (m *StockMetrics) RecordLotsExpired(ctx context.Context, count int) {
	if count <= 0 {
		return
	}
	m.lotsExpired.Add(ctx, int64(count))
}

// RecordClosing records one closing run. coverage is a ratio in [0, 1].
func (m *StockMetrics) RecordClosing(ctx context.Context, duration time.Duration, coverage float64, status string) {
	attrs := metric.WithAttributes(AttrStatus.String(status))
	m.closings.Add(ctx, 1, attrs)
	m.closingDuration.Record(ctx, duration.Seconds(), attrs)
	m.closingCoverage.Record(ctx, coverage, attrs)
}
