package inventory_test

import (
	"testing"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuationService_ValueStock(t *testing.T) {
	f := newFixture(t)
	valuation := appinv.NewValuationService(f.deps)
	depotID := f.depot("MAIN")
	fifo := f.article("COPPER", catalog.ValuationFIFO)
	cump := f.article("ZINC", catalog.ValuationCUMP)

	receiveLot(t, f, fifo, depotID, "A", "10", "2", day(2026, 3, 1), nil)
	receiveLot(t, f, fifo, depotID, "B", "10", "3", day(2026, 3, 5), nil)
	f.sell(fifo, depotID, "5", day(2026, 3, 6))

	// exits leave at average cost, the layered view prices what is left by lot
	assertDecimal(t, "37.5", f.stock(fifo, depotID).Value)
	v, err := valuation.ValueStock(f.ctx, fifo, depotID)
	require.NoError(t, err)
	assert.Equal(t, "FIFO", v.Method)
	assertDecimal(t, "15", v.Quantity)
	assertDecimal(t, "40", v.Value)
	assertDecimal(t, "2.6667", v.UnitCost)
	assert.True(t, v.UnvaluedQty.IsZero())
	assert.False(t, v.Unscoped)

	f.receive(cump, depotID, "4", "5", day(2026, 3, 1))
	f.receive(cump, depotID, "6", "10", day(2026, 3, 2))
	v, err = valuation.ValueStock(f.ctx, cump, depotID)
	require.NoError(t, err)
	assert.Equal(t, "CUMP", v.Method)
	assertDecimal(t, "80", v.Value)
	assertDecimal(t, "8", v.UnitCost)

	other := f.depot("ANNEX")
	_, err = valuation.ValueStock(f.ctx, cump, other)
	assert.ErrorIs(t, err, shared.ErrUnknownStock)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	f.receive(cump, other, "2", "7", day(2026, 3, 3))
	total, err := valuation.ValueArticle(f.ctx, cump)
	require.NoError(t, err)
	assert.Len(t, total.Depots, 2)
	assertDecimal(t, "12", total.TotalQuantity)
	assertDecimal(t, "94", total.TotalValue)
}

func TestValuationService_RecomputeFromLedger(t *testing.T) {
	f := newFixture(t)
	valuation := appinv.NewValuationService(f.deps)
	depotID := f.depot("MAIN")
	articleID := f.article("TIN", catalog.ValuationCUMP)
	f.receive(articleID, depotID, "10", "2", day(2026, 3, 1))
	f.receive(articleID, depotID, "10", "3", day(2026, 3, 2))
	f.sell(articleID, depotID, "5", day(2026, 3, 3))

	audit, err := valuation.RecomputeFromLedger(f.ctx, articleID, depotID, false)
	require.NoError(t, err)
	assert.Equal(t, 3, audit.MovementCount)
	assert.True(t, audit.Consistent)
	assertDecimal(t, "15", audit.LedgerQuantity)
	assertDecimal(t, "37.5", audit.LedgerValue)

	require.NoError(t, f.db.Model(&inventory.Stock{}).
		Where("article_id = ? AND depot_id = ?", articleID, depotID).
		Update("value", dec("99")).Error)

	audit, err = valuation.RecomputeFromLedger(f.ctx, articleID, depotID, false)
	require.NoError(t, err)
	assert.False(t, audit.Consistent)
	assert.False(t, audit.Repaired)
	assertDecimal(t, "61.5", audit.ValueDrift)
	assert.True(t, audit.QuantityDrift.IsZero())
	assertDecimal(t, "99", f.stock(articleID, depotID).Value)

	audit, err = valuation.RecomputeFromLedger(f.ctx, articleID, depotID, true)
	require.NoError(t, err)
	assert.True(t, audit.Repaired)
	assertDecimal(t, "37.5", f.stock(articleID, depotID).Value)

	audit, err = valuation.RecomputeFromLedger(f.ctx, articleID, depotID, false)
	require.NoError(t, err)
	assert.True(t, audit.Consistent)
}

func TestValuationService_Rotation(t *testing.T) {
	f := newFixture(t)
	valuation := appinv.NewValuationService(f.deps)
	depotID := f.depot("MAIN")
	articleID := f.article("LEAD", catalog.ValuationCUMP)
	f.receive(articleID, depotID, "100", "1", day(2026, 1, 10))
	f.sell(articleID, depotID, "40", day(2026, 2, 10))
	f.sell(articleID, depotID, "20", day(2026, 3, 1))

	r, err := valuation.Rotation(f.ctx, articleID, depotID, day(2026, 2, 1), day(2026, 3, 31))
	require.NoError(t, err)
	assertDecimal(t, "60", r.ExitQuantity)
	assertDecimal(t, "100", r.OpeningQuantity)
	assertDecimal(t, "40", r.ClosingQuantity)
	assertDecimal(t, "70", r.AverageStock)
	assertDecimal(t, "0.8571", r.Rotation)
	require.NotNil(t, r.CoverageDays)
	assertDecimal(t, "67.7", *r.CoverageDays)

	quiet, err := valuation.Rotation(f.ctx, articleID, depotID, day(2026, 3, 2), day(2026, 3, 10))
	require.NoError(t, err)
	assert.True(t, quiet.Rotation.IsZero())
	assert.Nil(t, quiet.CoverageDays)

	_, err = valuation.Rotation(f.ctx, articleID, depotID, day(2026, 3, 31), day(2026, 2, 1))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestValuationService_ABCClassification(t *testing.T) {
	f := newFixture(t)
	valuation := appinv.NewValuationService(f.deps)
	depotID := f.depot("MAIN")
	gold := f.article("GOLD", catalog.ValuationCUMP)
	silver := f.article("SILVER", catalog.ValuationCUMP)
	iron := f.article("IRON", catalog.ValuationCUMP)
	f.receive(iron, depotID, "50", "1", day(2026, 3, 1))
	f.receive(gold, depotID, "8", "100", day(2026, 3, 1))
	f.receive(silver, depotID, "15", "10", day(2026, 3, 1))

	abc, err := valuation.ABCClassification(f.ctx, depotID)
	require.NoError(t, err)
	assertDecimal(t, "1000", abc.TotalValue)
	require.Len(t, abc.Items, 3)

	assert.Equal(t, gold, abc.Items[0].ArticleID)
	assert.Equal(t, appinv.ClassA, abc.Items[0].Class)
	assertDecimal(t, "80", abc.Items[0].CumulativeShare)
	assert.Equal(t, silver, abc.Items[1].ArticleID)
	assert.Equal(t, appinv.ClassB, abc.Items[1].Class)
	assertDecimal(t, "95", abc.Items[1].CumulativeShare)
	assert.Equal(t, iron, abc.Items[2].ArticleID)
	assert.Equal(t, appinv.ClassC, abc.Items[2].Class)
	assertDecimal(t, "5", abc.Items[2].Share)

	empty, err := valuation.ABCClassification(f.ctx, f.depot("EMPTY"))
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
}
