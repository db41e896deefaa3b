package persistence

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReservationRepository implements ReservationRepository using GORM
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID finds a reservation by its ID
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Reservation, error) {
	var res inventory.Reservation
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

// FindForUpdate finds a reservation and locks its row
func (r *GormReservationRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Reservation, error) {
	var res inventory.Reservation
	if err := forUpdate(r.db.WithContext(ctx)).First(&res, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

// FindByOrder returns every reservation of an order, any status
func (r *GormReservationRepository) FindByOrder(ctx context.Context, orderRef string) ([]inventory.Reservation, error) {
	var reservations []inventory.Reservation
	if err := r.db.WithContext(ctx).
		Where("order_ref = ?", orderRef).
		Order("created_at ASC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// FindExpired returns active reservations past their expiry
func (r *GormReservationRepository) FindExpired(ctx context.Context, now time.Time) ([]inventory.Reservation, error) {
	var reservations []inventory.Reservation
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", inventory.ReservationActive, now.UTC()).
		Order("expires_at ASC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// Create inserts a reservation
func (r *GormReservationRepository) Create(ctx context.Context, res *inventory.Reservation) error {
	return r.db.WithContext(ctx).Create(res).Error
}

// Save persists the reservation with an optimistic version check
func (r *GormReservationRepository) Save(ctx context.Context, res *inventory.Reservation) error {
	return saveVersioned(ctx, r.db, res, &res.BaseAggregateRoot, "reservation")
}

var _ inventory.ReservationRepository = (*GormReservationRepository)(nil)
