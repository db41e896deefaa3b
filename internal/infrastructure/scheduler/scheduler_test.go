package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/infrastructure/cache"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockReservationSweeper struct {
	mock.Mock
}

func (m *MockReservationSweeper) ExpireReservations(ctx context.Context, now time.Time) (*appinv.SweepStats, error) {
	args := m.Called(ctx, now)
	if s := args.Get(0); s != nil {
		return s.(*appinv.SweepStats), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockLotSweeper struct {
	mock.Mock
}

func (m *MockLotSweeper) ExpireLots(ctx context.Context, today time.Time) (*appinv.SweepStats, error) {
	args := m.Called(ctx, today)
	if s := args.Get(0); s != nil {
		return s.(*appinv.SweepStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLotSweeper) ExpiringLots(ctx context.Context, horizon time.Duration) ([]appinv.LotResponse, error) {
	args := m.Called(ctx, horizon)
	if l := args.Get(0); l != nil {
		return l.([]appinv.LotResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{
			Enabled:                  true,
			ReservationSweepInterval: time.Minute,
			LotSweepInterval:         time.Hour,
			JobTimeout:               time.Minute,
		},
		Lot: config.LotConfig{ExpiryAlertDays: 30},
	}
}

func TestInventoryJobs(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	reservations := new(MockReservationSweeper)
	lots := new(MockLotSweeper)
	reservations.On("ExpireReservations", mock.Anything, now).Return(&appinv.SweepStats{Total: 2, Succeeded: 2}, nil)
	lots.On("ExpireLots", mock.Anything, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)).Return(&appinv.SweepStats{Total: 1, Succeeded: 1}, nil)
	lots.On("ExpiringLots", mock.Anything, 30*24*time.Hour).Return([]appinv.LotResponse{{}, {}, {}}, nil)

	s := NewScheduler(testConfig().Scheduler, cache.NewLocalLocker(time.Minute), zap.NewNop(),
		InventoryJobs(testConfig(), reservations, lots, clock)...)

	stats, err := s.RunNow(ctx, JobReservationExpiry)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Succeeded)

	stats, err = s.RunNow(ctx, JobLotExpiry)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)

	stats, err = s.RunNow(ctx, JobLotExpiryAlert)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)

	_, err = s.RunNow(ctx, "inventory-recount")
	assert.ErrorIs(t, err, ErrJobNotFound)

	reservations.AssertExpectations(t)
	lots.AssertExpectations(t)
}

func TestScheduler_SkipsWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	locker := cache.NewLocalLocker(time.Minute)
	var runs atomic.Int32
	job := Job{Name: "reservation-expiry", Interval: time.Minute, Run: func(context.Context) (*appinv.SweepStats, error) {
		runs.Add(1)
		return &appinv.SweepStats{}, nil
	}}
	s := NewScheduler(testConfig().Scheduler, locker, zap.NewNop(), job)

	release, err := locker.Lock(ctx, "sweep:reservation-expiry")
	require.NoError(t, err)

	_, err = s.RunNow(ctx, job.Name)
	assert.ErrorIs(t, err, ErrJobLocked)
	assert.Equal(t, int32(0), runs.Load())

	require.NoError(t, release(ctx))
	_, err = s.RunNow(ctx, job.Name)
	require.NoError(t, err)
	assert.Equal(t, int32(1), runs.Load())

	// the lock is released after the run, even on failure
	failing := NewScheduler(testConfig().Scheduler, locker, zap.NewNop(), Job{
		Name: job.Name, Interval: time.Minute,
		Run: func(context.Context) (*appinv.SweepStats, error) { return nil, errors.New("db down") },
	})
	_, err = failing.RunNow(ctx, job.Name)
	assert.EqualError(t, err, "db down")
	_, err = locker.Lock(ctx, "sweep:reservation-expiry")
	assert.NoError(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	ran := make(chan struct{}, 1)
	job := Job{Name: "tick", Interval: 10 * time.Millisecond, Run: func(context.Context) (*appinv.SweepStats, error) {
		select {
		case ran <- struct{}{}:
		default:
		}
		return &appinv.SweepStats{}, nil
	}}
	s := NewScheduler(testConfig().Scheduler, cache.NewLocalLocker(time.Minute), zap.NewNop(), job)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "starting twice is harmless")
	assert.True(t, s.IsRunning())

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	assert.NoError(t, s.Stop(ctx))
}

func TestScheduler_StartValidation(t *testing.T) {
	disabled := testConfig().Scheduler
	disabled.Enabled = false
	s := NewScheduler(disabled, cache.NewLocalLocker(time.Minute), zap.NewNop(), Job{Name: "x"})
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())

	s = NewScheduler(testConfig().Scheduler, cache.NewLocalLocker(time.Minute), zap.NewNop(), Job{Name: "x"})
	assert.ErrorIs(t, s.Start(context.Background()), ErrInvalidConfig)
}
