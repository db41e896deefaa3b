package inventory_test

import (
	"testing"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferService_ShipAndReceive(t *testing.T) {
	f := newFixture(t)
	transfers := appinv.NewTransferService(f.deps)
	src := f.depot("SRC")
	dst := f.depot("DST")
	articleID := f.article("CABLE", catalog.ValuationCUMP)
	f.receive(articleID, src, "10", "2", day(2026, 3, 1))
	f.receive(articleID, src, "10", "4", day(2026, 3, 2))

	tr, err := transfers.CreateTransfer(f.ctx, appinv.CreateTransferRequest{
		SourceDepotID:      src,
		DestinationDepotID: dst,
		Note:               "restock",
		Lines:              []appinv.TransferLineRequest{{ArticleID: articleID, Quantity: dec("5")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "TRF-2026-000001", tr.Reference)
	assert.Equal(t, "DRAFT", tr.Status)
	require.Len(t, tr.Lines, 1)

	_, err = transfers.Ship(f.ctx, tr.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState, "a draft cannot ship")

	tr, err = transfers.ValidateTransfer(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "VALIDATED", tr.Status)

	_, err = transfers.Receive(f.ctx, tr.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState, "nothing shipped yet")

	tr, err = transfers.Ship(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "SHIPPED", tr.Status)
	assert.NotNil(t, tr.ShippedAt)
	require.NotNil(t, tr.Lines[0].ExitMovementID)
	assert.Equal(t, 1, f.metrics.get("movement:TRANSFER_OUT:EXIT"))

	source := f.stock(articleID, src)
	assertDecimal(t, "15", source.TheoreticalQuantity)
	assertDecimal(t, "45", source.Value)

	exit, err := f.ledger().GetMovement(f.ctx, *tr.Lines[0].ExitMovementID)
	require.NoError(t, err)
	assert.Equal(t, "TRANSFER_OUT", exit.Type)
	assert.Equal(t, "TRANSFER", exit.OriginType)
	assert.Equal(t, tr.Reference, exit.OriginRef)
	assertDecimal(t, "15", exit.TotalValue)

	_, err = transfers.Ship(f.ctx, tr.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	_, err = transfers.CancelTransfer(f.ctx, tr.ID)
	assert.Error(t, err, "a shipped transfer cannot be cancelled")

	tr, err = transfers.Receive(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "RECEIVED", tr.Status)
	require.NotNil(t, tr.Lines[0].EntryMovementID)

	destination := f.stock(articleID, dst)
	assertDecimal(t, "5", destination.TheoreticalQuantity)
	assertDecimal(t, "15", destination.Value)
	assertDecimal(t, "3", destination.AverageUnitCost)
	assert.Equal(t, 1, f.metrics.get("movement:TRANSFER_IN:ENTRY"))

	got, err := transfers.GetTransfer(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "RECEIVED", got.Status)
	assert.Equal(t, *tr.Lines[0].EntryMovementID, *got.Lines[0].EntryMovementID)
}

func TestTransferService_InsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	transfers := appinv.NewTransferService(f.deps)
	src := f.depot("SRC")
	dst := f.depot("DST")
	plenty := f.article("PIPE", catalog.ValuationCUMP)
	scarce := f.article("VALVE", catalog.ValuationCUMP)
	f.receive(plenty, src, "10", "1", day(2026, 3, 1))
	f.receive(scarce, src, "1", "1", day(2026, 3, 1))

	tr, err := transfers.CreateTransfer(f.ctx, appinv.CreateTransferRequest{
		SourceDepotID:      src,
		DestinationDepotID: dst,
		Lines: []appinv.TransferLineRequest{
			{ArticleID: plenty, Quantity: dec("4")},
			{ArticleID: scarce, Quantity: dec("2")},
		},
	})
	require.NoError(t, err)
	_, err = transfers.ValidateTransfer(f.ctx, tr.ID)
	require.NoError(t, err)

	_, err = transfers.Ship(f.ctx, tr.ID)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Equal(t, 1, f.metrics.get("insufficient:ship_transfer"))

	assertDecimal(t, "10", f.stock(plenty, src).TheoreticalQuantity)
	got, err := transfers.GetTransfer(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "VALIDATED", got.Status)

	cancelled, err := transfers.CancelTransfer(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", cancelled.Status)
}

func TestTransferService_LotsKeepTheirExpiry(t *testing.T) {
	f := newFixture(t)
	transfers := appinv.NewTransferService(f.deps)
	lots := appinv.NewLotService(f.deps)
	src := f.depot("SRC")
	dst := f.depot("DST")
	articleID := f.article("YOGURT", catalog.ValuationFIFO)
	expiry := day(2026, 12, 31)
	sourceLot := receiveLot(t, f, articleID, src, "Y-1", "6", "2", day(2026, 3, 1), &expiry)

	lotID := sourceLot.Lot.ID
	tr, err := transfers.CreateTransfer(f.ctx, appinv.CreateTransferRequest{
		SourceDepotID:      src,
		DestinationDepotID: dst,
		Lines:              []appinv.TransferLineRequest{{ArticleID: articleID, LotID: &lotID, Quantity: dec("4")}},
	})
	require.NoError(t, err)
	_, err = transfers.ValidateTransfer(f.ctx, tr.ID)
	require.NoError(t, err)
	_, err = transfers.Ship(f.ctx, tr.ID)
	require.NoError(t, err)
	_, err = transfers.Receive(f.ctx, tr.ID)
	require.NoError(t, err)

	remaining, err := lots.GetLot(f.ctx, lotID)
	require.NoError(t, err)
	assertDecimal(t, "2", remaining.CurrentQuantity)

	page, err := lots.ListLots(f.ctx, articleID, shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	var mirrored *appinv.LotResponse
	for i := range page.Items {
		if page.Items[i].ID != lotID {
			mirrored = &page.Items[i]
		}
	}
	require.NotNil(t, mirrored)
	require.NotNil(t, mirrored.DepotID)
	assert.Equal(t, dst, *mirrored.DepotID)
	assert.Equal(t, "Y-1", mirrored.OriginRef)
	require.NotNil(t, mirrored.ExpiryDate)
	assert.True(t, expiry.Equal(*mirrored.ExpiryDate))
	assertDecimal(t, "4", mirrored.CurrentQuantity)
	assertDecimal(t, "2", mirrored.UnitCost)
}

func TestTransferService_CreateRefusals(t *testing.T) {
	f := newFixture(t)
	transfers := appinv.NewTransferService(f.deps)
	src := f.depot("SRC")
	articleID := f.article("BRICK", catalog.ValuationCUMP)

	_, err := transfers.CreateTransfer(f.ctx, appinv.CreateTransferRequest{
		SourceDepotID:      src,
		DestinationDepotID: uuid.New(),
		Lines:              []appinv.TransferLineRequest{{ArticleID: articleID, Quantity: dec("1")}},
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = transfers.CreateTransfer(f.ctx, appinv.CreateTransferRequest{
		SourceDepotID:      src,
		DestinationDepotID: src,
		Lines:              []appinv.TransferLineRequest{{ArticleID: articleID, Quantity: dec("1")}},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = transfers.GetTransfer(f.ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
