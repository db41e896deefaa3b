package inventory

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService records, validates and cancels stock movements
type LedgerService struct {
	base
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(deps Dependencies) *LedgerService {
	return &LedgerService{base: newBase(deps)}
}

// RecordMovement creates a movement and applies it in one transaction
func (s *LedgerService) RecordMovement(ctx context.Context, req RecordMovementRequest) (*MovementResponse, error) {
	var res *posting
	err := s.run(ctx, "record_movement", func(repos TransactionalRepositories) error {
		m, err := s.newMovement(ctx, repos, req)
		if err != nil {
			return err
		}
		res, err = s.poster.post(ctx, repos, m, false, postOptions{newLots: lotSpecFrom(req)})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.poster.observe(ctx, res)
	s.publish(ctx, res.events)
	s.logger.Info("Stock movement recorded",
		zap.String("reference", res.movement.Reference),
		zap.String("type", string(res.movement.Type)),
		zap.String("article_id", res.movement.ArticleID.String()),
		zap.String("depot_id", res.movement.DepotID.String()),
		zap.String("quantity", res.movement.Quantity.String()),
		zap.String("value", res.movement.TotalValue.String()),
	)
	resp := ToMovementResponse(res.movement)
	return &resp, nil
}

// CreateDraft stores a movement without applying it
func (s *LedgerService) CreateDraft(ctx context.Context, req RecordMovementRequest) (*MovementResponse, error) {
	var m *inventory.StockMovement
	err := s.run(ctx, "create_draft", func(repos TransactionalRepositories) error {
		var err error
		if m, err = s.newMovement(ctx, repos, req); err != nil {
			return err
		}
		if _, err := repos.Articles().FindByID(ctx, m.ArticleID); err != nil {
			return fmt.Errorf("article %s: %w", m.ArticleID, err)
		}
		if _, err := repos.Depots().FindByID(ctx, m.DepotID); err != nil {
			return fmt.Errorf("depot %s: %w", m.DepotID, err)
		}
		return repos.Movements().Create(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	resp := ToMovementResponse(m)
	return &resp, nil
}

// ValidateDraft applies a DRAFT movement to the stock position
func (s *LedgerService) ValidateDraft(ctx context.Context, movementID uuid.UUID) (*MovementResponse, error) {
	var res *posting
	err := s.run(ctx, "validate_movement", func(repos TransactionalRepositories) error {
		m, err := repos.Movements().FindForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		if m.Status != inventory.MovementStatusDraft {
			return shared.InvalidStateError("movement "+m.Reference, string(m.Status), "validate")
		}
		res, err = s.poster.post(ctx, repos, m, true, postOptions{})
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

// CancelMovement cancels a movement. A validated one is compensated by an
// inverse movement posted in the same transaction; a draft is simply dropped.
// It returns the compensating movement, or the cancelled draft.
func (s *LedgerService) CancelMovement(ctx context.Context, movementID uuid.UUID, req CancelMovementRequest) (*MovementResponse, error) {
	var (
		original *inventory.StockMovement
		res      *posting
	)
	err := s.run(ctx, "cancel_movement", func(repos TransactionalRepositories) error {
		var err error
		res = nil
		if original, err = repos.Movements().FindForUpdate(ctx, movementID); err != nil {
			return err
		}
		now := s.clock()

		if original.Status == inventory.MovementStatusDraft {
			if err := original.Cancel(req.Reason, now); err != nil {
				return err
			}
			return repos.Movements().Save(ctx, original)
		}
		if original.IsReversal() {
			return shared.NewDomainError(shared.CodeInvalidState, "A reversal movement cannot itself be cancelled")
		}

		ref, err := repos.Sequences().Next(ctx, shared.SequenceMovement)
		if err != nil {
			return err
		}
		inverse, err := original.Inverse(ref, now)
		if err != nil {
			return err
		}
		if res, err = s.poster.post(ctx, repos, inverse, false, postOptions{}); err != nil {
			return err
		}
		if err := original.Cancel(req.Reason, now); err != nil {
			return err
		}
		return repos.Movements().Save(ctx, original)
	})
	if err != nil {
		return nil, err
	}

	if res == nil {
		resp := ToMovementResponse(original)
		return &resp, nil
	}
	s.poster.observe(ctx, res)
	s.publish(ctx, res.events)
	s.logger.Info("Stock movement cancelled",
		zap.String("reference", original.Reference),
		zap.String("reversal", res.movement.Reference),
		zap.String("reason", req.Reason),
	)
	resp := ToMovementResponse(res.movement)
	return &resp, nil
}

// GetMovement returns a movement with its lot lines
func (s *LedgerService) GetMovement(ctx context.Context, movementID uuid.UUID) (*MovementResponse, error) {
	var resp MovementResponse
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		m, err := repos.Movements().FindByID(ctx, movementID)
		if err != nil {
			return err
		}
		resp = ToMovementResponse(m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListMovements returns a page of the ledger
func (s *LedgerService) ListMovements(ctx context.Context, f MovementListFilter) (*shared.Paginated[MovementResponse], error) {
	filter := inventory.MovementFilter{
		Filter:    shared.DefaultFilter(),
		ArticleID: f.ArticleID,
		DepotID:   f.DepotID,
		Type:      f.Type,
		Status:    f.Status,
		From:      f.From,
		To:        f.To,
	}
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	filter.OrderBy = "accounting_date"
	filter.OrderDir = "desc"

	var page shared.Paginated[MovementResponse]
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		movements, total, err := repos.Movements().List(ctx, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(ToMovementResponses(movements), total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetStock returns the position of an article in a depot
func (s *LedgerService) GetStock(ctx context.Context, articleID, depotID uuid.UUID) (*StockResponse, error) {
	var resp StockResponse
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		stock, err := repos.Stocks().FindByArticleAndDepot(ctx, articleID, depotID)
		if err != nil {
			return err
		}
		resp = ToStockResponse(stock)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListStocks returns the positions of an article, or of a depot when articleID is nil
func (s *LedgerService) ListStocks(ctx context.Context, articleID, depotID *uuid.UUID) ([]StockResponse, error) {
	var resp []StockResponse
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		var (
			stocks []inventory.Stock
			err    error
		)
		switch {
		case articleID != nil:
			stocks, err = repos.Stocks().FindByArticle(ctx, *articleID)
		case depotID != nil:
			stocks, err = repos.Stocks().FindByDepot(ctx, *depotID)
		default:
			stocks, err = repos.Stocks().FindAll(ctx)
		}
		if err != nil {
			return err
		}
		if articleID != nil && depotID != nil {
			filtered := stocks[:0]
			for _, st := range stocks {
				if st.DepotID == *depotID {
					filtered = append(filtered, st)
				}
			}
			stocks = filtered
		}
		resp = ToStockResponses(stocks)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *LedgerService) newMovement(ctx context.Context, repos TransactionalRepositories, req RecordMovementRequest) (*inventory.StockMovement, error) {
	ref, err := repos.Sequences().Next(ctx, shared.SequenceMovement)
	if err != nil {
		return nil, err
	}
	movementDate := req.MovementDate
	if movementDate.IsZero() {
		movementDate = s.clock()
	}
	originType := req.OriginType
	if originType == "" {
		originType = inventory.OriginManual
	}
	m, err := inventory.NewStockMovement(inventory.MovementParams{
		Reference:      ref,
		Type:           req.Type,
		ArticleID:      req.ArticleID,
		DepotID:        req.DepotID,
		Quantity:       req.Quantity,
		UnitCost:       req.UnitCost,
		MovementDate:   movementDate,
		AccountingDate: req.AccountingDate,
		OriginType:     originType,
		OriginRef:      req.OriginRef,
	})
	if err != nil {
		return nil, err
	}
	if req.LotID != nil {
		id := *req.LotID
		m.LotID = &id
	}
	return m, nil
}

// lotSpecFrom turns the lot attributes of a request into the lot an entry creates
func lotSpecFrom(req RecordMovementRequest) []LotSpec {
	if req.LotNumber == "" && req.ExpiryDate == nil && req.ManufacturedAt == nil {
		return nil
	}
	return []LotSpec{{
		LotNumber:      req.LotNumber,
		Quantity:       req.Quantity,
		UnitCost:       req.UnitCost,
		ManufacturedAt: req.ManufacturedAt,
		ExpiryDate:     req.ExpiryDate,
		OriginRef:      req.OriginRef,
	}}
}
