package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// auditTolerance absorbs rounding differences between the ledger replay and the stored value
var auditTolerance = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// ValuationService values stock positions and derives read-only reports
type ValuationService struct {
	base
}

// NewValuationService creates a new ValuationService
func NewValuationService(deps Dependencies) *ValuationService {
	return &ValuationService{base: newBase(deps)}
}

// ValueStock values a position with the article's method.
// CUMP reads the stored value; FIFO and FEFO price the theoretical quantity from lots.
func (s *ValuationService) ValueStock(ctx context.Context, articleID, depotID uuid.UUID) (*ValuationResponse, error) {
	var resp *ValuationResponse
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		article, err := repos.Articles().FindByID(ctx, articleID)
		if err != nil {
			return err
		}
		stock, err := repos.Stocks().FindByArticleAndDepot(ctx, articleID, depotID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError(shared.CodeUnknownStock,
					fmt.Sprintf("No stock of article %s in depot %s", article.Code, depotID))
			}
			return err
		}
		resp, err = s.value(ctx, repos, article, stock)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ValueArticle values every position of an article
func (s *ValuationService) ValueArticle(ctx context.Context, articleID uuid.UUID) (*ArticleValuationResponse, error) {
	var resp *ArticleValuationResponse
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		article, err := repos.Articles().FindByID(ctx, articleID)
		if err != nil {
			return err
		}
		stocks, err := repos.Stocks().FindByArticle(ctx, articleID)
		if err != nil {
			return err
		}
		resp = &ArticleValuationResponse{
			ArticleID:     articleID,
			Method:        article.ValuationMethod.String(),
			TotalQuantity: decimal.Zero,
			TotalValue:    decimal.Zero,
			Depots:        make([]ValuationResponse, 0, len(stocks)),
		}
		for i := range stocks {
			v, err := s.value(ctx, repos, article, &stocks[i])
			if err != nil {
				return err
			}
			resp.TotalQuantity = resp.TotalQuantity.Add(v.Quantity)
			resp.TotalValue = resp.TotalValue.Add(v.Value)
			resp.Depots = append(resp.Depots, *v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *ValuationService) value(
	ctx context.Context,
	repos TransactionalRepositories,
	article *catalog.Article,
	stock *inventory.Stock,
) (*ValuationResponse, error) {
	method, err := s.strategies.GetValuationStrategy(article.ValuationMethod.String())
	if err != nil {
		return nil, err
	}
	input := strategy.ValuationInput{
		Quantity:    stock.TheoreticalQuantity,
		StoredValue: stock.Value,
	}

	unscoped := false
	if method.UsesLots() && stock.TheoreticalQuantity.IsPositive() {
		depotID := stock.DepotID
		lots, err := repos.Lots().FindAvailable(ctx, stock.ArticleID, &depotID)
		if err != nil {
			return nil, err
		}
		// lots received before depots were tracked carry no depot
		if len(lots) == 0 {
			if lots, err = repos.Lots().FindAvailable(ctx, stock.ArticleID, nil); err != nil {
				return nil, err
			}
			unscoped = true
		}
		input.Lots = inventory.ToCandidates(lots)
	}

	result, err := method.Value(ctx, input)
	if err != nil {
		return nil, err
	}
	return &ValuationResponse{
		ArticleID:   stock.ArticleID,
		DepotID:     stock.DepotID,
		Method:      result.Method,
		Quantity:    result.Quantity,
		Value:       result.Value,
		UnitCost:    result.UnitCost,
		UnvaluedQty: result.UnvaluedQty,
		Unscoped:    unscoped,
	}, nil
}

// RecomputeFromLedger replays the validated movements of a position and compares
// the result with the stored quantity and value. With repair set, a drifted
// position is restated from the ledger.
func (s *ValuationService) RecomputeFromLedger(ctx context.Context, articleID, depotID uuid.UUID, repair bool) (*LedgerAuditResponse, error) {
	var resp *LedgerAuditResponse
	err := s.run(ctx, "recompute_from_ledger", func(repos TransactionalRepositories) error {
		var (
			stock *inventory.Stock
			err   error
		)
		if repair {
			stock, err = repos.Stocks().FindForUpdate(ctx, articleID, depotID)
		} else {
			stock, err = repos.Stocks().FindByArticleAndDepot(ctx, articleID, depotID)
		}
		if err != nil {
			return err
		}
		movements, err := repos.Movements().FindValidatedForPosition(ctx, articleID, depotID, nil, nil)
		if err != nil {
			return err
		}

		quantity, value := replay(movements)
		resp = &LedgerAuditResponse{
			ArticleID:      articleID,
			DepotID:        depotID,
			MovementCount:  len(movements),
			StoredQuantity: stock.TheoreticalQuantity,
			StoredValue:    stock.Value,
			LedgerQuantity: quantity,
			LedgerValue:    value,
			QuantityDrift:  stock.TheoreticalQuantity.Sub(quantity),
			ValueDrift:     stock.Value.Sub(value),
		}
		resp.Consistent = resp.QuantityDrift.IsZero() && resp.ValueDrift.Abs().LessThanOrEqual(auditTolerance)
		if resp.Consistent || !repair {
			return nil
		}

		if err := stock.Restate(decimal.Max(quantity, decimal.Zero), decimal.Max(value, decimal.Zero)); err != nil {
			return err
		}
		if err := repos.Stocks().Save(ctx, stock); err != nil {
			return err
		}
		resp.Repaired = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !resp.Consistent {
		s.logger.Warn("Stock position drifted from its ledger",
			zap.String("article_id", articleID.String()),
			zap.String("depot_id", depotID.String()),
			zap.String("quantity_drift", resp.QuantityDrift.String()),
			zap.String("value_drift", resp.ValueDrift.String()),
			zap.Bool("repaired", resp.Repaired),
		)
	}
	return resp, nil
}

// replay nets the quantity and value of movements. Cancelled originals are
// included because their reversals are too.
func replay(movements []inventory.StockMovement) (decimal.Decimal, decimal.Decimal) {
	quantity, value := decimal.Zero, decimal.Zero
	for _, m := range movements {
		if m.IsEntry() {
			quantity = quantity.Add(m.Quantity)
			value = value.Add(m.TotalValue)
		} else {
			quantity = quantity.Sub(m.Quantity)
			value = value.Sub(m.TotalValue)
		}
	}
	return quantity, value
}

// Rotation computes the turnover of a position over [from, to]:
// consumed quantity divided by the average of opening and closing stock.
func (s *ValuationService) Rotation(ctx context.Context, articleID, depotID uuid.UUID, from, to time.Time) (*RotationResponse, error) {
	if !to.After(from) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "The end of the range must follow its start")
	}
	var movements []inventory.StockMovement
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		var err error
		movements, err = repos.Movements().FindValidatedForPosition(ctx, articleID, depotID, nil, &to)
		return err
	})
	if err != nil {
		return nil, err
	}

	var before, within []inventory.StockMovement
	exits := decimal.Zero
	for _, m := range movements {
		if m.AccountingDate.Before(from) {
			before = append(before, m)
			continue
		}
		within = append(within, m)
		// cancelled exits and their reversals cancel out and are not consumption
		if !m.IsEntry() && m.ImpactsValuation && !m.IsReversal() && m.Status == inventory.MovementStatusValidated {
			exits = exits.Add(m.Quantity)
		}
	}
	opening, _ := replay(before)
	delta, _ := replay(within)
	closingQty := opening.Add(delta)

	resp := &RotationResponse{
		ArticleID:       articleID,
		DepotID:         depotID,
		From:            from,
		To:              to,
		ExitQuantity:    exits,
		OpeningQuantity: opening,
		ClosingQuantity: closingQty,
		AverageStock:    opening.Add(closingQty).Div(decimal.NewFromInt(2)).Round(inventory.ValueScale),
		Rotation:        decimal.Zero,
	}
	if resp.AverageStock.IsPositive() {
		resp.Rotation = exits.Div(resp.AverageStock).Round(inventory.ValueScale)
	}
	if exits.IsPositive() {
		days := decimal.NewFromFloat(to.Sub(from).Hours() / 24)
		coverage := resp.AverageStock.Mul(days).Div(exits).Round(1)
		resp.CoverageDays = &coverage
	}
	return resp, nil
}

// ABCClassification ranks the articles of a depot by stored stock value.
// Class A holds the first 80 % of cumulative value, class B up to 95 %, class C the rest.
func (s *ValuationService) ABCClassification(ctx context.Context, depotID uuid.UUID) (*ABCResponse, error) {
	var stocks []inventory.Stock
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		var err error
		stocks, err = repos.Stocks().FindByDepot(ctx, depotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return classify(depotID, stocks), nil
}

func classify(depotID uuid.UUID, stocks []inventory.Stock) *ABCResponse {
	sort.SliceStable(stocks, func(i, j int) bool {
		return stocks[i].Value.GreaterThan(stocks[j].Value)
	})
	total := decimal.Zero
	for _, st := range stocks {
		total = total.Add(st.Value)
	}

	resp := &ABCResponse{DepotID: depotID, TotalValue: total, Items: make([]ABCItem, 0, len(stocks))}
	cumulative := decimal.Zero
	for _, st := range stocks {
		item := ABCItem{ArticleID: st.ArticleID, Value: st.Value, Share: decimal.Zero, Class: ClassC}
		if total.IsPositive() {
			item.Share = st.Value.Mul(hundred).Div(total).Round(2)
			cumulative = cumulative.Add(st.Value)
			item.CumulativeShare = cumulative.Mul(hundred).Div(total).Round(2)
			switch {
			case item.CumulativeShare.LessThanOrEqual(decimal.NewFromInt(80)):
				item.Class = ClassA
			case item.CumulativeShare.LessThanOrEqual(decimal.NewFromInt(95)):
				item.Class = ClassB
			}
		}
		resp.Items = append(resp.Items, item)
	}
	return resp
}
