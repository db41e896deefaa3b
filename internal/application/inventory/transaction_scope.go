package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/closing"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

// TransactionScope provides transactional access to the stock repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// Aggregate boundary notes:
//   - Stocks: the (article, depot) position. Every write loads it with FindForUpdate first,
//     which serializes concurrent writers on the same pair.
//   - Movements: append-only ledger; lot lines are stored alongside the movement.
//   - Lots: locked individually when a movement consumes or restores them.
//   - Periods: read only here, to refuse movements dated inside a locked period.
//   - Sequences: reference numbers; the database backed generator joins the transaction.
type TransactionalRepositories interface {
	Stocks() inventory.StockRepository
	Lots() inventory.LotRepository
	Movements() inventory.MovementRepository
	Reservations() inventory.ReservationRepository
	Campaigns() inventory.CampaignRepository
	Adjustments() inventory.AdjustmentRepository
	Transfers() inventory.TransferRepository
	Articles() catalog.ArticleRepository
	Depots() catalog.DepotRepository
	Periods() closing.PeriodRepository
	Sequences() shared.SequenceGenerator
}

// Repositories is a plain bundle of repositories
type Repositories struct {
	StockRepo       inventory.StockRepository
	LotRepo         inventory.LotRepository
	MovementRepo    inventory.MovementRepository
	ReservationRepo inventory.ReservationRepository
	CampaignRepo    inventory.CampaignRepository
	AdjustmentRepo  inventory.AdjustmentRepository
	TransferRepo    inventory.TransferRepository
	ArticleRepo     catalog.ArticleRepository
	DepotRepo       catalog.DepotRepository
	PeriodRepo      closing.PeriodRepository
	SequenceGen     shared.SequenceGenerator
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing with mocked repositories.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Stocks() inventory.StockRepository { return s.repos.StockRepo }
func (s *NoOpTransactionScope) Lots() inventory.LotRepository { return s.repos.LotRepo }
func (s *NoOpTransactionScope) Movements() inventory.MovementRepository { return s.repos.MovementRepo }
func (s *NoOpTransactionScope) Reservations() inventory.ReservationRepository { return s.repos.ReservationRepo }
func (s *NoOpTransactionScope) Campaigns() inventory.CampaignRepository { return s.repos.CampaignRepo }
func (s *NoOpTransactionScope) Adjustments() inventory.AdjustmentRepository { return s.repos.AdjustmentRepo }
func (s *NoOpTransactionScope) Transfers() inventory.TransferRepository { return s.repos.TransferRepo }
func (s *NoOpTransactionScope) Articles() catalog.ArticleRepository { return s.repos.ArticleRepo }
func (s *NoOpTransactionScope) Depots() catalog.DepotRepository { return s.repos.DepotRepo }
func (s *NoOpTransactionScope) Periods() closing.PeriodRepository { return s.repos.PeriodRepo }
func (s *NoOpTransactionScope) Sequences() shared.SequenceGenerator { return s.repos.SequenceGen }

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
