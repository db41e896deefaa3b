package scheduler

import (
	"context"
	"time"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/infrastructure/config"
)

// Job names, also used as lock keys
const (
	JobReservationExpiry = "reservation-expiry"
	JobLotExpiry         = "lot-expiry"
	JobLotExpiryAlert    = "lot-expiry-alert"
)

// ReservationSweeper releases reservations past their expiry
type ReservationSweeper interface {
	ExpireReservations(ctx context.Context, now time.Time) (*appinv.SweepStats, error)
}

// LotSweeper expires lots and raises alerts for lots about to expire
type LotSweeper interface {
	ExpireLots(ctx context.Context, today time.Time) (*appinv.SweepStats, error)
	ExpiringLots(ctx context.Context, horizon time.Duration) ([]appinv.LotResponse, error)
}

// InventoryJobs returns the periodic sweeps of the inventory services
func InventoryJobs(cfg *config.Config, reservations ReservationSweeper, lots LotSweeper, clock func() time.Time) []Job {
	if clock == nil {
		clock = time.Now
	}
	horizon := time.Duration(cfg.Lot.ExpiryAlertDays) * 24 * time.Hour

	return []Job{
		{
			Name:     JobReservationExpiry,
			Interval: cfg.Scheduler.ReservationSweepInterval,
			Run: func(ctx context.Context) (*appinv.SweepStats, error) {
				return reservations.ExpireReservations(ctx, clock())
			},
		},
		{
			Name:     JobLotExpiry,
			Interval: cfg.Scheduler.LotSweepInterval,
			Run: func(ctx context.Context) (*appinv.SweepStats, error) {
				now := clock().UTC()
				return lots.ExpireLots(ctx, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC))
			},
		},
		{
			Name:     JobLotExpiryAlert,
			Interval: cfg.Scheduler.LotSweepInterval,
			Run: func(ctx context.Context) (*appinv.SweepStats, error) {
				alerted, err := lots.ExpiringLots(ctx, horizon)
				if err != nil {
					return nil, err
				}
				return &appinv.SweepStats{Total: len(alerted), Succeeded: len(alerted), ProcessedAt: clock()}, nil
			},
		},
	}
}
