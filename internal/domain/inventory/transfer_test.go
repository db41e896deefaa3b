package inventory

import (
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransfer(t *testing.T) {
	depot := uuid.New()

	_, err := NewTransfer("TRF-1", depot, depot, "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	tr, err := NewTransfer("TRF-1", depot, uuid.New(), "rebalancing")
	require.NoError(t, err)
	assert.Equal(t, TransferDraft, tr.Status)
}

func TestTransfer_Lifecycle(t *testing.T) {
	tr, err := NewTransfer("TRF-1", uuid.New(), uuid.New(), "")
	require.NoError(t, err)

	assert.ErrorIs(t, tr.Validate(), shared.ErrInvalidInput)
	require.NoError(t, tr.AddLine(uuid.New(), nil, dec("3")))
	assert.ErrorIs(t, tr.AddLine(uuid.New(), nil, dec("0")), shared.ErrDataIntegrity)
	require.NoError(t, tr.Validate())
	assert.ErrorIs(t, tr.AddLine(uuid.New(), nil, dec("1")), shared.ErrInvalidState)

	assert.ErrorIs(t, tr.MarkReceived(time.Now()), shared.ErrInvalidState)
	require.NoError(t, tr.MarkShipped(time.Now()))
	assert.ErrorIs(t, tr.Cancel(time.Now()), shared.ErrInvalidState)
	require.NoError(t, tr.MarkReceived(time.Now()))
	assert.Equal(t, TransferReceived, tr.Status)
	assert.NotNil(t, tr.ShippedAt)
	assert.NotNil(t, tr.ReceivedAt)
}
