package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReservationService earmarks stock for order lines and ships it
type ReservationService struct {
	base
	defaultTTL time.Duration
}

// NewReservationService creates a new ReservationService.
// Reservations without an explicit expiry expire after defaultTTL; zero keeps them open.
func NewReservationService(deps Dependencies, defaultTTL time.Duration) *ReservationService {
	return &ReservationService{base: newBase(deps), defaultTTL: defaultTTL}
}

// Reserve holds available quantity of a position for an order line
func (s *ReservationService) Reserve(ctx context.Context, req ReserveRequest) (*ReservationResponse, error) {
	var r *inventory.Reservation
	err := s.run(ctx, "reserve", func(repos TransactionalRepositories) error {
		article, err := repos.Articles().FindByID(ctx, req.ArticleID)
		if err != nil {
			return err
		}
		stock, err := repos.Stocks().FindForUpdate(ctx, req.ArticleID, req.DepotID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.InsufficientStockError(req.Quantity, decimal.Zero)
			}
			return err
		}
		if err := stock.Reserve(req.Quantity); err != nil {
			return err
		}

		// a lot-tracked position can only promise what its AVAILABLE lots hold;
		// expired or blocked lots stay in theoretical stock until adjusted out
		var lots []inventory.Lot
		if article.LotTracked {
			depotID := req.DepotID
			if lots, err = repos.Lots().FindAvailable(ctx, req.ArticleID, &depotID); err != nil {
				return err
			}
			if err := checkLotCoverage(lots, stock, req.Quantity); err != nil {
				return err
			}
		}

		ref, err := repos.Sequences().Next(ctx, shared.SequenceReservation)
		if err != nil {
			return err
		}
		expiresAt := req.ExpiresAt
		if expiresAt == nil && s.defaultTTL > 0 {
			at := s.clock().Add(s.defaultTTL)
			expiresAt = &at
		}
		r, err = inventory.NewReservation(ref, req.ArticleID, req.DepotID, req.Quantity, req.OrderRef, req.LineRef, expiresAt)
		if err != nil {
			return err
		}

		// best effort: the supporting lot may cover only part of the quantity
		if article.LotTracked {
			policy := s.strategies.GetLotStrategyOrDefault(article.ValuationMethod.LotPolicy())
			result, err := policy.SelectLots(ctx, strategy.LotSelectionRequest{
				ArticleID: req.ArticleID,
				DepotID:   req.DepotID,
				Quantity:  req.Quantity,
				AsOf:      s.clock(),
			}, inventory.ToCandidates(lots))
			if err != nil {
				return err
			}
			if len(result.Allocations) > 0 {
				r.BindLot(result.Allocations[0].LotID)
			}
		}

		if err := repos.Reservations().Create(ctx, r); err != nil {
			return err
		}
		return repos.Stocks().Save(ctx, stock)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordReservation(ctx, "created")
	s.publish(ctx, collect(r))
	s.logger.Info("Stock reserved",
		zap.String("reference", r.Reference),
		zap.String("order_ref", r.OrderRef),
		zap.String("quantity", r.ReservedQuantity.String()),
	)
	resp := ToReservationResponse(r)
	return &resp, nil
}

// checkLotCoverage refuses a reservation when the AVAILABLE lots cannot back
// every quantity reserved on the position, this one included
func checkLotCoverage(lots []inventory.Lot, stock *inventory.Stock, requested decimal.Decimal) error {
	covered := decimal.Zero
	for _, lot := range lots {
		covered = covered.Add(lot.CurrentQuantity)
	}
	if covered.GreaterThanOrEqual(stock.ReservedQuantity) {
		return nil
	}
	free := decimal.Max(covered.Sub(stock.ReservedQuantity.Sub(requested)), decimal.Zero)
	return shared.InsufficientStockError(requested, free)
}

// Release cancels an active reservation and gives its outstanding quantity back
func (s *ReservationService) Release(ctx context.Context, reservationID uuid.UUID) (*ReservationResponse, error) {
	var r *inventory.Reservation
	err := s.run(ctx, "release_reservation", func(repos TransactionalRepositories) error {
		var err error
		if r, err = repos.Reservations().FindForUpdate(ctx, reservationID); err != nil {
			return err
		}
		outstanding, err := r.Release(s.clock())
		if err != nil {
			return err
		}
		return s.giveBack(ctx, repos, r, outstanding)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordReservation(ctx, "released")
	s.publish(ctx, collect(r))
	resp := ToReservationResponse(r)
	return &resp, nil
}

// Withdraw ships reserved quantity: an exit is posted against the reservation,
// drawing first on the lot bound to it. A nil quantity ships everything outstanding.
func (s *ReservationService) Withdraw(ctx context.Context, reservationID uuid.UUID, req WithdrawRequest) (*WithdrawResponse, error) {
	var (
		r   *inventory.Reservation
		res *posting
	)
	err := s.run(ctx, "withdraw_reservation", func(repos TransactionalRepositories) error {
		var err error
		if r, err = repos.Reservations().FindForUpdate(ctx, reservationID); err != nil {
			return err
		}
		quantity := r.RemainingQuantity()
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		now := s.clock()
		if err := r.Withdraw(quantity, now); err != nil {
			return err
		}

		ref, err := repos.Sequences().Next(ctx, shared.SequenceMovement)
		if err != nil {
			return err
		}
		m, err := inventory.NewStockMovement(inventory.MovementParams{
			Reference:    ref,
			Type:         inventory.MovementReservationWithdrawal,
			ArticleID:    r.ArticleID,
			DepotID:      r.DepotID,
			Quantity:     quantity,
			MovementDate: now,
			OriginType:   inventory.OriginReservation,
			OriginRef:    r.Reference,
		})
		if err != nil {
			return err
		}
		res, err = s.poster.post(ctx, repos, m, false, postOptions{
			fromReservation: true,
			preferLotID:     r.LotID,
		})
		if err != nil {
			return err
		}
		return repos.Reservations().Save(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	s.poster.observe(ctx, res)
	s.metrics.RecordReservation(ctx, "withdrawn")
	s.publish(ctx, res.events)
	return &WithdrawResponse{
		Reservation: ToReservationResponse(r),
		Movement:    ToMovementResponse(res.movement),
	}, nil
}

// ExpireReservations releases every active reservation past its expiry.
// Each reservation is handled in its own transaction.
func (s *ReservationService) ExpireReservations(ctx context.Context, now time.Time) (*SweepStats, error) {
	var candidates []inventory.Reservation
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		var err error
		candidates, err = repos.Reservations().FindExpired(ctx, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	stats := &SweepStats{Total: len(candidates), ProcessedAt: s.clock()}
	for i := range candidates {
		id := candidates[i].ID
		var expired *inventory.Reservation
		err := s.run(ctx, "expire_reservation", func(repos TransactionalRepositories) error {
			expired = nil
			r, err := repos.Reservations().FindForUpdate(ctx, id)
			if err != nil {
				return err
			}
			// withdrawn or released since the scan
			if !r.IsExpiredAt(now) {
				return nil
			}
			outstanding, err := r.Expire(now)
			if err != nil {
				return err
			}
			if err := s.giveBack(ctx, repos, r, outstanding); err != nil {
				return err
			}
			expired = r
			return nil
		})
		switch {
		case err != nil:
			stats.Failed++
			s.logger.Error("Failed to expire reservation",
				zap.String("reference", candidates[i].Reference),
				zap.Error(err),
			)
		case expired == nil:
			stats.Skipped++
		default:
			stats.Succeeded++
			s.metrics.RecordReservation(ctx, "expired")
			s.publish(ctx, collect(expired))
		}
	}

	s.logger.Info("Reservation expiry sweep completed",
		zap.Int("total", stats.Total),
		zap.Int("expired", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// GetReservation returns a reservation by ID
func (s *ReservationService) GetReservation(ctx context.Context, reservationID uuid.UUID) (*ReservationResponse, error) {
	var resp ReservationResponse
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.Reservations().FindByID(ctx, reservationID)
		if err != nil {
			return err
		}
		resp = ToReservationResponse(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListByOrder returns the reservations of an order
func (s *ReservationService) ListByOrder(ctx context.Context, orderRef string) ([]ReservationResponse, error) {
	var resp []ReservationResponse
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		reservations, err := repos.Reservations().FindByOrder(ctx, orderRef)
		if err != nil {
			return err
		}
		resp = ToReservationResponses(reservations)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// giveBack returns outstanding reserved quantity to the position and saves both sides
func (s *ReservationService) giveBack(ctx context.Context, repos TransactionalRepositories, r *inventory.Reservation, outstanding decimal.Decimal) error {
	if outstanding.IsPositive() {
		stock, err := repos.Stocks().FindForUpdate(ctx, r.ArticleID, r.DepotID)
		if err != nil {
			return err
		}
		if err := stock.Release(outstanding); err != nil {
			return err
		}
		if err := repos.Stocks().Save(ctx, stock); err != nil {
			return err
		}
	}
	return repos.Reservations().Save(ctx, r)
}
