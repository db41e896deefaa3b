package inventory

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// StockRepository defines persistence for stock positions.
// Rows are never deleted.
type StockRepository interface {
	// FindForUpdate loads the position with a row lock for the current transaction
	FindForUpdate(ctx context.Context, articleID, depotID uuid.UUID) (*Stock, error)

	// FindByArticleAndDepot loads the position without locking
	FindByArticleAndDepot(ctx context.Context, articleID, depotID uuid.UUID) (*Stock, error)

	// FindByArticle returns every position of an article
	FindByArticle(ctx context.Context, articleID uuid.UUID) ([]Stock, error)

	// FindByDepot returns every position of a depot
	FindByDepot(ctx context.Context, depotID uuid.UUID) ([]Stock, error)

	// FindAll returns every stock position, used by closing
	FindAll(ctx context.Context) ([]Stock, error)

	// Create inserts a new position
	Create(ctx context.Context, stock *Stock) error

	// Save persists with an optimistic version check and bumps the version.
	// A stale version yields shared.ErrConcurrencyConflict.
	Save(ctx context.Context, stock *Stock) error
}

// LotRepository defines persistence for lots
type LotRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Lot, error)

	// FindForUpdate loads the lot with a row lock for the current transaction
	FindForUpdate(ctx context.Context, id uuid.UUID) (*Lot, error)

	FindByNumber(ctx context.Context, lotNumber string) (*Lot, error)

	// FindAvailable returns AVAILABLE lots with quantity of an article.
	// A nil depot returns lots of every depot.
	FindAvailable(ctx context.Context, articleID uuid.UUID, depotID *uuid.UUID) ([]Lot, error)

	// FindByArticle lists lots of an article in any status
	FindByArticle(ctx context.Context, articleID uuid.UUID, filter shared.Filter) ([]Lot, int64, error)

	// FindExpiredCandidates returns AVAILABLE lots expiring on or before the day
	FindExpiredCandidates(ctx context.Context, day time.Time) ([]Lot, error)

	// FindExpiringBetween returns AVAILABLE lots expiring in (from, to]
	FindExpiringBetween(ctx context.Context, from, to time.Time) ([]Lot, error)

	Create(ctx context.Context, lot *Lot) error
	Save(ctx context.Context, lot *Lot) error
}

// MovementFilter narrows movement listings
type MovementFilter struct {
	shared.Filter
	ArticleID *uuid.UUID
	DepotID   *uuid.UUID
	Type      MovementType
	Status    MovementStatus
	From      *time.Time
	To        *time.Time
}

// MovementRepository defines persistence for ledger entries.
// Rows are append-only apart from status changes.
type MovementRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockMovement, error)

	// FindForUpdate loads the movement and its lot lines with a row lock
	FindForUpdate(ctx context.Context, id uuid.UUID) (*StockMovement, error)

	FindByReference(ctx context.Context, reference string) (*StockMovement, error)

	// Create inserts the movement together with its lot lines
	Create(ctx context.Context, movement *StockMovement) error

	// Save persists status changes and lot lines added after creation
	Save(ctx context.Context, movement *StockMovement) error

	List(ctx context.Context, filter MovementFilter) ([]StockMovement, int64, error)

	// FindValidatedForPosition returns the movements that shaped a position, in accounting order.
	// Cancelled originals are included since their reversals are too.
	FindValidatedForPosition(ctx context.Context, articleID, depotID uuid.UUID, from, to *time.Time) ([]StockMovement, error)
}

// ReservationRepository defines persistence for reservations
type ReservationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*Reservation, error)
	FindByOrder(ctx context.Context, orderRef string) ([]Reservation, error)

	// FindExpired returns ACTIVE reservations whose expiry is on or before now
	FindExpired(ctx context.Context, now time.Time) ([]Reservation, error)

	Create(ctx context.Context, reservation *Reservation) error
	Save(ctx context.Context, reservation *Reservation) error
}

// CampaignRepository defines persistence for inventory campaigns and their lines
type CampaignRepository interface {
	// FindByID loads the campaign with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryCampaign, error)

	// FindForUpdate loads the campaign with its lines under a row lock
	FindForUpdate(ctx context.Context, id uuid.UUID) (*InventoryCampaign, error)

	FindAll(ctx context.Context, depotID *uuid.UUID, filter shared.Filter) ([]InventoryCampaign, int64, error)

	// Create inserts the campaign and its lines
	Create(ctx context.Context, campaign *InventoryCampaign) error

	// Save persists the campaign and upserts its lines
	Save(ctx context.Context, campaign *InventoryCampaign) error
}

// AdjustmentRepository defines persistence for inventory adjustments
type AdjustmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryAdjustment, error)
	FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]InventoryAdjustment, error)
	CountPending(ctx context.Context, campaignID uuid.UUID) (int64, error)
	Save(ctx context.Context, adjustment *InventoryAdjustment) error
}

// TransferRepository defines persistence for transfers and their lines
type TransferRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Transfer, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*Transfer, error)
	Create(ctx context.Context, transfer *Transfer) error
	Save(ctx context.Context, transfer *Transfer) error
}
