// Package closing runs the monthly accounting closing of stock valuation.
package closing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/closing"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransactionScope provides transactional access to the closing repositories
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories are the closing repositories bound to one transaction
type Repositories interface {
	Periods() closing.PeriodRepository
	Snapshots() closing.SnapshotRepository
}

// StockValuer values one position under its article's method
type StockValuer interface {
	ValueStock(ctx context.Context, articleID, depotID uuid.UUID) (*appinv.ValuationResponse, error)
}

// StockLister lists every stock position
type StockLister interface {
	FindAll(ctx context.Context) ([]inventory.Stock, error)
}

// Archiver stores closing archives in object storage
type Archiver interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// Locker guards a closing against a second concurrent run.
// The returned function releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(context.Context) error, error)
}

// Metrics records closing runs
type Metrics interface {
	RecordClosing(ctx context.Context, duration time.Duration, coverage float64, status string)
}

// Dependencies are the collaborators of ClosingService
type Dependencies struct {
	Scope    TransactionScope
	Stocks   StockLister
	Valuer   StockValuer
	Archiver Archiver
	Locker   Locker
	Events   shared.EventPublisher
	Metrics  Metrics
	Logger   *zap.Logger
	Clock    func() time.Time
}

// ClosingService handles monthly closings and their cost snapshots
type ClosingService struct {
	scope    TransactionScope
	stocks   StockLister
	valuer   StockValuer
	archiver Archiver
	locker   Locker
	events   shared.EventPublisher
	metrics  Metrics
	logger   *zap.Logger
	clock    func() time.Time
}

// NewClosingService creates a new ClosingService
func NewClosingService(deps Dependencies) *ClosingService {
	s := &ClosingService{
		scope:    deps.Scope,
		stocks:   deps.Stocks,
		valuer:   deps.Valuer,
		archiver: deps.Archiver,
		locker:   deps.Locker,
		events:   deps.Events,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		clock:    deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// InitializePeriod returns the closing of (year, month), creating it OPEN when missing.
// An OPEN or REJECTED period is handed back as is so a failed run can be retried.
func (s *ClosingService) InitializePeriod(ctx context.Context, req InitializePeriodRequest) (*PeriodResponse, error) {
	var period *closing.PeriodClosing
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		existing, err := repos.Periods().FindByYearMonth(ctx, req.Year, req.Month)
		if err == nil {
			if !existing.Status.IsReusable() {
				return shared.InvalidStateError("period "+existing.Label(), string(existing.Status), "initialize")
			}
			period = existing
			return nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if period, err = closing.NewPeriodClosing(req.Year, req.Month); err != nil {
			return err
		}
		return repos.Periods().Create(ctx, period)
	})
	if err != nil {
		return nil, err
	}
	resp := ToPeriodResponse(period)
	return &resp, nil
}

// ExecuteClosing snapshots the valuation of every stock position into the period.
// Each row is valued and written in its own transaction; a failing row is logged
// and skipped. Snapshots are keyed on (period, article, depot), so a rerun overwrites.
func (s *ClosingService) ExecuteClosing(ctx context.Context, periodID uuid.UUID) (*PeriodResponse, error) {
	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, "closing:"+periodID.String())
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release closing lock", zap.Error(err))
			}
		}()
	}

	started := s.clock()
	var period *closing.PeriodClosing
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		if period, err = repos.Periods().FindForUpdate(ctx, periodID); err != nil {
			return err
		}
		if err := period.Start(started); err != nil {
			return err
		}
		if err := repos.Periods().Save(ctx, period); err != nil {
			return err
		}
		_, err = repos.Snapshots().DeleteByPeriod(ctx, period.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("period", period.Label()), zap.String("period_id", period.ID.String()))
	log.Info("Closing started")

	totals, err := s.snapshotAll(ctx, period, log)
	if err == nil {
		err = s.scope.Execute(ctx, func(repos Repositories) error {
			current, err := repos.Periods().FindForUpdate(ctx, periodID)
			if err != nil {
				return err
			}
			previous, err := repos.Periods().FindPreviousValidated(ctx, current.Year, current.Month)
			switch {
			case err == nil:
				value := previous.TotalValue
				totals.PreviousValue = &value
			case !errors.Is(err, shared.ErrNotFound):
				return err
			}
			if err := current.Complete(totals, s.clock()); err != nil {
				return err
			}
			if err := repos.Periods().Save(ctx, current); err != nil {
				return err
			}
			period = current
			return nil
		})
	}
	if err != nil {
		s.fail(ctx, periodID, err, log)
		s.record(ctx, started, 0, string(closing.PeriodRejected))
		return nil, err
	}

	events := period.GetDomainEvents()
	period.ClearDomainEvents()
	s.archive(ctx, period, log)

	if s.events != nil && len(events) > 0 {
		if err := s.events.Publish(ctx, events...); err != nil {
			log.Warn("Failed to publish domain events", zap.Error(err))
		}
	}
	coverage, _ := period.CoverageRatio.Float64()
	s.record(ctx, started, coverage, string(period.Status))
	log.Info("Closing completed",
		zap.Int("total_rows", period.TotalRows),
		zap.Int("valued_rows", period.ValuedRows),
		zap.String("total_value", period.TotalValue.String()),
		zap.String("variance", period.Variance.String()),
	)
	resp := ToPeriodResponse(period)
	return &resp, nil
}

// snapshotAll values and writes one snapshot per stock row
func (s *ClosingService) snapshotAll(ctx context.Context, period *closing.PeriodClosing, log *zap.Logger) (closing.ClosingTotals, error) {
	totals := closing.ClosingTotals{TotalQuantity: decimal.Zero, TotalValue: decimal.Zero}
	stocks, err := s.stocks.FindAll(ctx)
	if err != nil {
		return totals, fmt.Errorf("list stock positions: %w", err)
	}
	snapshotDate := s.clock()
	totals.TotalRows = len(stocks)

	for i := range stocks {
		if err := ctx.Err(); err != nil {
			return totals, err
		}
		st := &stocks[i]
		snapshot, err := s.snapshotRow(ctx, period, st, snapshotDate)
		if err != nil {
			log.Warn("Failed to snapshot stock position",
				zap.String("article_id", st.ArticleID.String()),
				zap.String("depot_id", st.DepotID.String()),
				zap.Error(err),
			)
			continue
		}
		totals.ValuedRows++
		totals.TotalQuantity = totals.TotalQuantity.Add(snapshot.Quantity)
		totals.TotalValue = totals.TotalValue.Add(snapshot.TotalValue)
	}
	return totals, nil
}

func (s *ClosingService) snapshotRow(
	ctx context.Context,
	period *closing.PeriodClosing,
	st *inventory.Stock,
	snapshotDate time.Time,
) (*closing.CostSnapshot, error) {
	valuation, err := s.valuer.ValueStock(ctx, st.ArticleID, st.DepotID)
	if err != nil {
		return nil, err
	}
	snapshot, err := closing.NewCostSnapshot(
		period.ID, st.ArticleID, st.DepotID,
		valuation.Quantity, valuation.Value,
		valuation.Method, snapshotDate,
	)
	if err != nil {
		return nil, err
	}
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		return repos.Snapshots().Upsert(ctx, snapshot)
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// fail marks the period REJECTED and drops its partial snapshots
func (s *ClosingService) fail(ctx context.Context, periodID uuid.UUID, cause error, log *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		period, err := repos.Periods().FindForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if period.Status != closing.PeriodInProgress {
			return nil
		}
		period.Fail(cause.Error(), s.clock())
		if _, err := repos.Snapshots().DeleteByPeriod(ctx, periodID); err != nil {
			return err
		}
		return repos.Periods().Save(ctx, period)
	})
	if err != nil {
		log.Error("Failed to reject period after closing failure", zap.Error(err), zap.NamedError("cause", cause))
		return
	}
	log.Error("Closing failed, period rejected", zap.Error(cause))
}

// archive uploads the snapshots of a closed period as a JSON document.
// The closing stands even when the upload fails.
func (s *ClosingService) archive(ctx context.Context, period *closing.PeriodClosing, log *zap.Logger) {
	if s.archiver == nil {
		return
	}
	var snapshots []closing.CostSnapshot
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		filter := shared.Filter{Page: 1, PageSize: period.ValuedRows + 1, OrderBy: "article_id", OrderDir: "asc"}
		var err error
		snapshots, _, err = repos.Snapshots().FindByPeriod(ctx, period.ID, filter)
		return err
	})
	if err != nil {
		log.Warn("Failed to load snapshots for archive", zap.Error(err))
		return
	}

	doc := struct {
		Period    PeriodResponse     `json:"period"`
		Snapshots []SnapshotResponse `json:"snapshots"`
	}{
		Period:    ToPeriodResponse(period),
		Snapshots: ToSnapshotResponses(snapshots),
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		log.Warn("Failed to encode closing archive", zap.Error(err))
		return
	}

	key := ArchiveKey(period)
	if err := s.archiver.Upload(ctx, key, buf.Bytes(), "application/json"); err != nil {
		log.Warn("Failed to upload closing archive", zap.String("key", key), zap.Error(err))
		return
	}

	err = s.scope.Execute(ctx, func(repos Repositories) error {
		current, err := repos.Periods().FindForUpdate(ctx, period.ID)
		if err != nil {
			return err
		}
		current.SetArchiveKey(key)
		if err := repos.Periods().Save(ctx, current); err != nil {
			return err
		}
		*period = *current
		return nil
	})
	if err != nil {
		log.Warn("Failed to record archive key", zap.String("key", key), zap.Error(err))
		return
	}
	log.Info("Closing archived", zap.String("key", key), zap.Int("snapshots", len(snapshots)))
}

// ArchiveKey returns the object key of a period's archive
func ArchiveKey(p *closing.PeriodClosing) string {
	return fmt.Sprintf("closings/%04d/%s-%s.json", p.Year, p.Label(), p.ID.String()[:8])
}

func (s *ClosingService) record(ctx context.Context, started time.Time, coverage float64, status string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordClosing(ctx, s.clock().Sub(started), coverage, status)
}

// Validate freezes a CLOSED period. Its snapshots become the base of the next variance.
func (s *ClosingService) Validate(ctx context.Context, periodID uuid.UUID, req ValidatePeriodRequest) (*PeriodResponse, error) {
	var period *closing.PeriodClosing
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		if period, err = repos.Periods().FindForUpdate(ctx, periodID); err != nil {
			return err
		}
		if err := period.Validate(req.ValidatedBy, s.clock()); err != nil {
			return err
		}
		return repos.Periods().Save(ctx, period)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Closing validated",
		zap.String("period", period.Label()),
		zap.String("validated_by", period.ValidatedBy),
	)
	resp := ToPeriodResponse(period)
	return &resp, nil
}

// Reject sends a period back to REJECTED and deletes its snapshots
func (s *ClosingService) Reject(ctx context.Context, periodID uuid.UUID, req RejectPeriodRequest) (*PeriodResponse, error) {
	var (
		period  *closing.PeriodClosing
		deleted int64
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		if period, err = repos.Periods().FindForUpdate(ctx, periodID); err != nil {
			return err
		}
		if err := period.Reject(req.Reason, s.clock()); err != nil {
			return err
		}
		if deleted, err = repos.Snapshots().DeleteByPeriod(ctx, periodID); err != nil {
			return err
		}
		return repos.Periods().Save(ctx, period)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Closing rejected",
		zap.String("period", period.Label()),
		zap.Int64("snapshots_deleted", deleted),
	)
	resp := ToPeriodResponse(period)
	return &resp, nil
}

// GetPeriod retrieves a period by ID
func (s *ClosingService) GetPeriod(ctx context.Context, periodID uuid.UUID) (*PeriodResponse, error) {
	var resp PeriodResponse
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		period, err := repos.Periods().FindByID(ctx, periodID)
		if err != nil {
			return err
		}
		resp = ToPeriodResponse(period)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPeriods lists closings, most recent first
func (s *ClosingService) ListPeriods(ctx context.Context, f ListFilter) (*shared.Paginated[PeriodResponse], error) {
	filter := toFilter(f, "year")
	var page shared.Paginated[PeriodResponse]
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		periods, total, err := repos.Periods().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		items := make([]PeriodResponse, len(periods))
		for i := range periods {
			items[i] = ToPeriodResponse(&periods[i])
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ListSnapshots lists the snapshots of a period
func (s *ClosingService) ListSnapshots(ctx context.Context, periodID uuid.UUID, f ListFilter) (*shared.Paginated[SnapshotResponse], error) {
	filter := toFilter(f, "article_id")
	filter.OrderDir = "asc"
	var page shared.Paginated[SnapshotResponse]
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		if _, err := repos.Periods().FindByID(ctx, periodID); err != nil {
			return err
		}
		snapshots, total, err := repos.Snapshots().FindByPeriod(ctx, periodID, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(ToSnapshotResponses(snapshots), total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// IsPeriodLocked reports whether movements dated on the day are refused
func (s *ClosingService) IsPeriodLocked(ctx context.Context, date time.Time) (*PeriodLockResponse, error) {
	resp := PeriodLockResponse{Date: date}
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		period, err := repos.Periods().FindLockingDate(ctx, date)
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		resp.Locked = true
		resp.PeriodID = &period.ID
		resp.Status = string(period.Status)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ArchiveLink returns a temporary download URL for the archive of a closed period
func (s *ClosingService) ArchiveLink(ctx context.Context, periodID uuid.UUID, expiresIn time.Duration) (*ArchiveLinkResponse, error) {
	period, err := s.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if period.ArchiveKey == "" || s.archiver == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Period "+period.Label+" has no archive")
	}
	url, expiresAt, err := s.archiver.GenerateDownloadURL(ctx, period.ArchiveKey, expiresIn)
	if err != nil {
		return nil, err
	}
	return &ArchiveLinkResponse{Key: period.ArchiveKey, URL: url, ExpiresAt: expiresAt}, nil
}

func toFilter(f ListFilter, orderBy string) shared.Filter {
	filter := shared.DefaultFilter()
	filter.OrderBy = orderBy
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	return filter
}
