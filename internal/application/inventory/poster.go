package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/closing"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotSpec describes a lot created by an entry
type LotSpec struct {
	LotNumber      string
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	ManufacturedAt *time.Time
	ExpiryDate     *time.Time
	OriginRef      string
}

type postOptions struct {
	// fromReservation ships reserved quantity instead of free quantity
	fromReservation bool
	// preferLotID is consumed first by policy driven allocation
	preferLotID *uuid.UUID
	// newLots replaces the single lot an entry of a lot tracked article creates
	newLots []LotSpec
}

// posting is what one applied movement touched
type posting struct {
	movement *inventory.StockMovement
	stock    *inventory.Stock
	article  *catalog.Article
	lots     []*inventory.Lot
	events   []shared.DomainEvent
}

// poster applies movements to the stock position and its lots.
// Everything it does happens inside the caller's transaction, so the ledger row,
// the position and the lots commit or roll back together.
type poster struct {
	strategies StrategyProvider
	metrics    Metrics
	clock      func() time.Time
}

// post validates m and applies its effect. persisted tells whether m already exists
// as a DRAFT row (validation) or must be inserted.
func (p *poster) post(
	ctx context.Context,
	repos TransactionalRepositories,
	m *inventory.StockMovement,
	persisted bool,
	opts postOptions,
) (*posting, error) {
	if err := checkPeriod(ctx, repos.Periods(), m.AccountingDate); err != nil {
		return nil, err
	}
	article, err := repos.Articles().FindByID(ctx, m.ArticleID)
	if err != nil {
		return nil, fmt.Errorf("article %s: %w", m.ArticleID, err)
	}
	depot, err := repos.Depots().FindByID(ctx, m.DepotID)
	if err != nil {
		return nil, fmt.Errorf("depot %s: %w", m.DepotID, err)
	}

	stock, created, err := p.lockStock(ctx, repos, m, article, depot)
	if err != nil {
		return nil, err
	}

	res := &posting{movement: m, stock: stock, article: article}
	var value decimal.Decimal
	if m.IsEntry() {
		if article.LotTracked {
			if err := p.enterLots(ctx, repos, article, m, opts, res); err != nil {
				return nil, err
			}
		}
		if err := stock.ApplyEntry(m.Quantity, m.UnitCost); err != nil {
			return nil, err
		}
		value = m.Quantity.Mul(m.UnitCost).Round(inventory.ValueScale)
	} else {
		switch {
		case m.IsReversal():
			value, err = stock.ReverseEntry(m.Quantity)
		case opts.fromReservation:
			value, err = stock.ConsumeReservation(m.Quantity)
		default:
			value, err = stock.ApplyExit(m.Quantity)
		}
		if err != nil {
			return nil, err
		}
		if article.LotTracked {
			if err := p.exitLots(ctx, repos, article, m, opts); err != nil {
				return nil, err
			}
		}
	}

	if err := stock.CheckInvariants(); err != nil {
		return nil, err
	}
	if err := m.MarkValidated(value, p.clock()); err != nil {
		return nil, err
	}

	if created {
		err = repos.Stocks().Create(ctx, stock)
	} else {
		err = repos.Stocks().Save(ctx, stock)
	}
	if err != nil {
		return nil, err
	}
	if persisted {
		err = repos.Movements().Save(ctx, m)
	} else {
		err = repos.Movements().Create(ctx, m)
	}
	if err != nil {
		return nil, err
	}

	res.events = collect(m)
	return res, nil
}

// observe records metrics once the transaction committed
func (p *poster) observe(ctx context.Context, res *posting) {
	if res == nil {
		return
	}
	p.metrics.RecordMovement(ctx, string(res.movement.Type), string(res.movement.Direction))
}

func (p *poster) lockStock(
	ctx context.Context,
	repos TransactionalRepositories,
	m *inventory.StockMovement,
	article *catalog.Article,
	depot *catalog.Depot,
) (*inventory.Stock, bool, error) {
	stock, err := repos.Stocks().FindForUpdate(ctx, m.ArticleID, m.DepotID)
	if err == nil {
		return stock, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}
	if !m.IsEntry() {
		return nil, false, shared.NewDomainError(shared.CodeUnknownStock,
			fmt.Sprintf("No stock of article %s in depot %s", article.Code, depot.Code))
	}
	if !depot.Active {
		return nil, false, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Depot %s is inactive and cannot receive stock", depot.Code))
	}
	stock, err = inventory.NewStock(m.ArticleID, m.DepotID)
	if err != nil {
		return nil, false, err
	}
	return stock, true, nil
}

func (p *poster) enterLots(
	ctx context.Context,
	repos TransactionalRepositories,
	article *catalog.Article,
	m *inventory.StockMovement,
	opts postOptions,
	res *posting,
) error {
	// reversal of an exit puts back exactly what each lot gave
	if len(m.LotLines) > 0 {
		for _, line := range m.LotLines {
			lot, err := repos.Lots().FindForUpdate(ctx, line.LotID)
			if err != nil {
				return fmt.Errorf("lot %s: %w", line.LotID, err)
			}
			if err := lot.Restore(line.Quantity); err != nil {
				return err
			}
			if err := repos.Lots().Save(ctx, lot); err != nil {
				return err
			}
		}
		return nil
	}

	// correction of a named lot
	if m.LotID != nil {
		lot, err := lockLot(ctx, repos, *m.LotID, m.ArticleID, m.DepotID)
		if err != nil {
			return err
		}
		if err := lot.Restore(m.Quantity); err != nil {
			return err
		}
		if err := repos.Lots().Save(ctx, lot); err != nil {
			return err
		}
		m.AddLotLine(lot.ID, m.Quantity, m.UnitCost)
		return nil
	}

	specs := opts.newLots
	if len(specs) == 0 {
		specs = []LotSpec{{Quantity: m.Quantity, UnitCost: m.UnitCost}}
	}
	total := decimal.Zero
	for _, spec := range specs {
		total = total.Add(spec.Quantity)
	}
	if !total.Equal(m.Quantity) {
		return shared.NewDomainError(shared.CodeDataIntegrity,
			fmt.Sprintf("Lot quantities %s do not match the movement quantity %s", total, m.Quantity))
	}

	depotID := m.DepotID
	for _, spec := range specs {
		number := spec.LotNumber
		if number == "" {
			var err error
			if number, err = repos.Sequences().Next(ctx, shared.SequenceLot); err != nil {
				return err
			}
		}
		expiry := spec.ExpiryDate
		if expiry == nil {
			expiry = article.ExpiryFrom(m.MovementDate)
		}
		lot, err := inventory.NewLot(number, m.ArticleID, &depotID, spec.Quantity, spec.UnitCost,
			m.MovementDate, spec.ManufacturedAt, expiry)
		if err != nil {
			return err
		}
		lot.OriginRef = spec.OriginRef
		if lot.OriginRef == "" {
			lot.OriginRef = m.Reference
		}
		if err := repos.Lots().Create(ctx, lot); err != nil {
			return err
		}
		m.AddLotLine(lot.ID, spec.Quantity, spec.UnitCost)
		res.lots = append(res.lots, lot)
	}
	return nil
}

func (p *poster) exitLots(
	ctx context.Context,
	repos TransactionalRepositories,
	article *catalog.Article,
	m *inventory.StockMovement,
	opts postOptions,
) error {
	// reversal of an entry takes back exactly what each lot received
	if len(m.LotLines) > 0 {
		for _, line := range m.LotLines {
			lot, err := repos.Lots().FindForUpdate(ctx, line.LotID)
			if err != nil {
				return fmt.Errorf("lot %s: %w", line.LotID, err)
			}
			if err := lot.Consume(line.Quantity); err != nil {
				return err
			}
			if err := repos.Lots().Save(ctx, lot); err != nil {
				return err
			}
		}
		return nil
	}

	if m.LotID != nil {
		lot, err := lockLot(ctx, repos, *m.LotID, m.ArticleID, m.DepotID)
		if err != nil {
			return err
		}
		if err := lot.Consume(m.Quantity); err != nil {
			return err
		}
		if err := repos.Lots().Save(ctx, lot); err != nil {
			return err
		}
		m.AddLotLine(lot.ID, m.Quantity, lot.UnitCost)
		return nil
	}

	depotID := m.DepotID
	lots, err := repos.Lots().FindAvailable(ctx, m.ArticleID, &depotID)
	if err != nil {
		return err
	}
	policy := p.strategies.GetLotStrategyOrDefault(article.ValuationMethod.LotPolicy())
	result, err := policy.SelectLots(ctx, strategy.LotSelectionRequest{
		ArticleID:   m.ArticleID,
		DepotID:     m.DepotID,
		Quantity:    m.Quantity,
		PreferLotID: opts.preferLotID,
		AsOf:        m.MovementDate,
	}, inventory.ToCandidates(lots))
	if err != nil {
		return err
	}
	if !result.Covered() {
		return shared.NewDomainError(shared.CodeInsufficientStock,
			fmt.Sprintf("Insufficient stock in lots: requested %s, lots cover %s", m.Quantity, result.TotalQty))
	}

	for _, alloc := range result.Allocations {
		lot, err := repos.Lots().FindForUpdate(ctx, alloc.LotID)
		if err != nil {
			return fmt.Errorf("lot %s: %w", alloc.LotNumber, err)
		}
		if err := lot.Consume(alloc.Quantity); err != nil {
			return err
		}
		if err := repos.Lots().Save(ctx, lot); err != nil {
			return err
		}
		m.AddLotLine(lot.ID, alloc.Quantity, alloc.UnitCost)
	}
	return nil
}

// lockLot loads a named lot and checks it holds the article in the depot
func lockLot(ctx context.Context, repos TransactionalRepositories, lotID, articleID, depotID uuid.UUID) (*inventory.Lot, error) {
	lot, err := repos.Lots().FindForUpdate(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("lot %s: %w", lotID, err)
	}
	if !lot.BelongsTo(articleID, depotID) {
		return nil, shared.NewDomainError(shared.CodeDataIntegrity,
			fmt.Sprintf("Lot %s does not hold this article in this depot", lot.LotNumber))
	}
	return lot, nil
}

// checkPeriod refuses dates inside a period being closed or already closed
func checkPeriod(ctx context.Context, periods closing.PeriodRepository, date time.Time) error {
	period, err := periods.FindLockingDate(ctx, date)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	return shared.NewDomainError(shared.CodePeriodLocked,
		fmt.Sprintf("Accounting period %s is %s, movements dated %s are refused",
			period.Label(), period.Status, date.Format("2006-01-02")))
}
