package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LotService manages lot receipts, consumption, merges and expiry
type LotService struct {
	base
}

// NewLotService creates a new LotService
func NewLotService(deps Dependencies) *LotService {
	return &LotService{base: newBase(deps)}
}

// ReceiveLot records a receipt that creates one lot
func (s *LotService) ReceiveLot(ctx context.Context, req ReceiveLotRequest) (*ReceiveLotResponse, error) {
	var res *posting
	err := s.run(ctx, "receive_lot", func(repos TransactionalRepositories) error {
		article, err := repos.Articles().FindByID(ctx, req.ArticleID)
		if err != nil {
			return fmt.Errorf("article %s: %w", req.ArticleID, err)
		}
		if !article.LotTracked {
			return shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Article %s is not lot tracked", article.Code))
		}
		ref, err := repos.Sequences().Next(ctx, shared.SequenceMovement)
		if err != nil {
			return err
		}
		receivedAt := req.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = s.clock()
		}
		m, err := inventory.NewStockMovement(inventory.MovementParams{
			Reference:    ref,
			Type:         inventory.MovementReceipt,
			ArticleID:    req.ArticleID,
			DepotID:      req.DepotID,
			Quantity:     req.Quantity,
			UnitCost:     req.UnitCost,
			MovementDate: receivedAt,
			OriginType:   inventory.OriginReceipt,
			OriginRef:    req.OriginRef,
		})
		if err != nil {
			return err
		}
		res, err = s.poster.post(ctx, repos, m, false, postOptions{newLots: []LotSpec{{
			LotNumber:      req.LotNumber,
			Quantity:       req.Quantity,
			UnitCost:       req.UnitCost,
			ManufacturedAt: req.ManufacturedAt,
			ExpiryDate:     req.ExpiryDate,
			OriginRef:      req.OriginRef,
		}}})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.poster.observe(ctx, res)
	s.publish(ctx, res.events)
	lot := res.lots[0]
	s.logger.Info("Lot received",
		zap.String("lot_number", lot.LotNumber),
		zap.String("article_id", lot.ArticleID.String()),
		zap.String("quantity", lot.InitialQuantity.String()),
	)
	return &ReceiveLotResponse{
		Lot:      ToLotResponse(lot, s.clock()),
		Movement: ToMovementResponse(res.movement),
	}, nil
}

// ConsumeLot records an exit drawn from one named lot
func (s *LotService) ConsumeLot(ctx context.Context, req ConsumeLotRequest) (*MovementResponse, error) {
	movementType := req.Type
	if movementType == "" {
		movementType = inventory.MovementSale
	}
	if movementType.DefaultDirection() != inventory.DirectionExit {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Movement type %s does not take stock out", movementType))
	}

	var res *posting
	err := s.run(ctx, "consume_lot", func(repos TransactionalRepositories) error {
		lot, err := repos.Lots().FindByID(ctx, req.LotID)
		if err != nil {
			return err
		}
		depotID, err := lotDepot(lot, req.DepotID)
		if err != nil {
			return err
		}
		ref, err := repos.Sequences().Next(ctx, shared.SequenceMovement)
		if err != nil {
			return err
		}
		m, err := inventory.NewStockMovement(inventory.MovementParams{
			Reference:    ref,
			Type:         movementType,
			ArticleID:    lot.ArticleID,
			DepotID:      depotID,
			Quantity:     req.Quantity,
			MovementDate: s.clock(),
			OriginType:   inventory.OriginManual,
			OriginRef:    req.OriginRef,
		})
		if err != nil {
			return err
		}
		lotID := lot.ID
		m.LotID = &lotID
		res, err = s.poster.post(ctx, repos, m, false, postOptions{})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.poster.observe(ctx, res)
	s.publish(ctx, res.events)
	resp := ToMovementResponse(res.movement)
	return &resp, nil
}

// MergeLots folds the source lot into the destination lot.
// The stock position is untouched, only the lot breakdown changes.
func (s *LotService) MergeLots(ctx context.Context, req MergeLotsRequest) (*LotResponse, error) {
	var destination *inventory.Lot
	err := s.run(ctx, "merge_lots", func(repos TransactionalRepositories) error {
		// lock in id order so two opposite merges cannot deadlock
		first, second := req.SourceLotID, req.DestinationLotID
		if second.String() < first.String() {
			first, second = second, first
		}
		locked := make(map[uuid.UUID]*inventory.Lot, 2)
		for _, id := range []uuid.UUID{first, second} {
			if _, ok := locked[id]; ok {
				continue
			}
			lot, err := repos.Lots().FindForUpdate(ctx, id)
			if err != nil {
				return fmt.Errorf("lot %s: %w", id, err)
			}
			locked[id] = lot
		}
		source := locked[req.SourceLotID]
		destination = locked[req.DestinationLotID]

		if err := destination.MergeFrom(source); err != nil {
			return err
		}
		if err := repos.Lots().Save(ctx, source); err != nil {
			return err
		}
		return repos.Lots().Save(ctx, destination)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lots merged",
		zap.String("source_lot_id", req.SourceLotID.String()),
		zap.String("destination", destination.LotNumber),
		zap.String("quantity", destination.CurrentQuantity.String()),
	)
	resp := ToLotResponse(destination, s.clock())
	return &resp, nil
}

// ChangeLotStatus quarantines, blocks or releases a lot
func (s *LotService) ChangeLotStatus(ctx context.Context, lotID uuid.UUID, req ChangeLotStatusRequest) (*LotResponse, error) {
	var lot *inventory.Lot
	err := s.run(ctx, "change_lot_status", func(repos TransactionalRepositories) error {
		var err error
		if lot, err = repos.Lots().FindForUpdate(ctx, lotID); err != nil {
			return err
		}
		if err := lot.ChangeStatus(req.Status); err != nil {
			return err
		}
		return repos.Lots().Save(ctx, lot)
	})
	if err != nil {
		return nil, err
	}
	resp := ToLotResponse(lot, s.clock())
	return &resp, nil
}

// GetLot returns a lot by ID
func (s *LotService) GetLot(ctx context.Context, lotID uuid.UUID) (*LotResponse, error) {
	var resp LotResponse
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		lot, err := repos.Lots().FindByID(ctx, lotID)
		if err != nil {
			return err
		}
		resp = ToLotResponse(lot, s.clock())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListLots lists the lots of an article in any status
func (s *LotService) ListLots(ctx context.Context, articleID uuid.UUID, filter shared.Filter) (*shared.Paginated[LotResponse], error) {
	var page shared.Paginated[LotResponse]
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		lots, total, err := repos.Lots().FindByArticle(ctx, articleID, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(ToLotResponses(lots, s.clock()), total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// SuggestAllocation previews how the article's lot policy would cover a demand.
// Nothing is consumed.
func (s *LotService) SuggestAllocation(ctx context.Context, articleID, depotID uuid.UUID, quantity decimal.Decimal) (*AllocationResponse, error) {
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	var resp AllocationResponse
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		article, err := repos.Articles().FindByID(ctx, articleID)
		if err != nil {
			return err
		}
		lots, err := repos.Lots().FindAvailable(ctx, articleID, &depotID)
		if err != nil {
			return err
		}
		name := article.ValuationMethod.LotPolicy()
		policy := s.strategies.GetLotStrategyOrDefault(name)
		result, err := policy.SelectLots(ctx, strategy.LotSelectionRequest{
			ArticleID: articleID,
			DepotID:   depotID,
			Quantity:  quantity,
			AsOf:      s.clock(),
		}, inventory.ToCandidates(lots))
		if err != nil {
			return err
		}
		resp = ToAllocationResponse(policy.Name(), quantity, result)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExpireLots marks every available lot expiring on or before today as EXPIRED.
// Each lot is handled in its own transaction so one failure does not stop the sweep.
func (s *LotService) ExpireLots(ctx context.Context, today time.Time) (*SweepStats, error) {
	var candidates []inventory.Lot
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		var err error
		candidates, err = repos.Lots().FindExpiredCandidates(ctx, today)
		return err
	})
	if err != nil {
		return nil, err
	}

	stats := &SweepStats{Total: len(candidates), ProcessedAt: s.clock()}
	for i := range candidates {
		id := candidates[i].ID
		var expired *inventory.Lot
		err := s.run(ctx, "expire_lot", func(repos TransactionalRepositories) error {
			expired = nil
			lot, err := repos.Lots().FindForUpdate(ctx, id)
			if err != nil {
				return err
			}
			// consumed or merged since the scan
			if lot.Status != inventory.LotStatusAvailable || !lot.IsExpiredAt(today) {
				return nil
			}
			if err := lot.Expire(); err != nil {
				return err
			}
			if err := repos.Lots().Save(ctx, lot); err != nil {
				return err
			}
			expired = lot
			return nil
		})
		switch {
		case err != nil:
			stats.Failed++
			s.logger.Error("Failed to expire lot",
				zap.String("lot_number", candidates[i].LotNumber),
				zap.Error(err),
			)
		case expired == nil:
			stats.Skipped++
		default:
			stats.Succeeded++
			s.publish(ctx, []shared.DomainEvent{inventory.NewLotEvent(inventory.EventTypeLotExpired, expired, today)})
		}
	}

	if stats.Succeeded > 0 {
		s.metrics.RecordLotsExpired(ctx, stats.Succeeded)
	}
	s.logger.Info("Lot expiry sweep completed",
		zap.Int("total", stats.Total),
		zap.Int("expired", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// ExpiringLots returns the available lots expiring within the horizon and
// raises an alert event for each. Nothing is modified.
func (s *LotService) ExpiringLots(ctx context.Context, horizon time.Duration) ([]LotResponse, error) {
	now := s.clock()
	var lots []inventory.Lot
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		var err error
		lots, err = repos.Lots().FindExpiringBetween(ctx, now, now.Add(horizon))
		return err
	})
	if err != nil {
		return nil, err
	}

	events := make([]shared.DomainEvent, 0, len(lots))
	for i := range lots {
		events = append(events, inventory.NewLotEvent(inventory.EventTypeLotExpiryAlert, &lots[i], now))
	}
	s.publish(ctx, events)
	return ToLotResponses(lots, now), nil
}

// lotDepot resolves the depot an exit from the lot happens in
func lotDepot(lot *inventory.Lot, requested *uuid.UUID) (uuid.UUID, error) {
	switch {
	case requested != nil:
		if lot.DepotID != nil && *lot.DepotID != *requested {
			return uuid.Nil, shared.NewDomainError(shared.CodeDataIntegrity,
				fmt.Sprintf("Lot %s is not stored in the requested depot", lot.LotNumber))
		}
		return *requested, nil
	case lot.DepotID != nil:
		return *lot.DepotID, nil
	default:
		return uuid.Nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Lot %s has no depot, the depot must be given", lot.LotNumber))
	}
}
