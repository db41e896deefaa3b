package inventory

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockCountService runs physical inventory campaigns and applies their adjustments
type StockCountService struct {
	base
	policy inventory.CountPolicy
}

// NewStockCountService creates a new StockCountService with the given count policy
func NewStockCountService(deps Dependencies, policy inventory.CountPolicy) *StockCountService {
	return &StockCountService{base: newBase(deps), policy: policy}
}

// CreateCampaign plans a campaign over one depot
func (s *StockCountService) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*CampaignResponse, error) {
	var c *inventory.InventoryCampaign
	err := s.run(ctx, "create_campaign", func(repos TransactionalRepositories) error {
		if _, err := repos.Depots().FindByID(ctx, req.DepotID); err != nil {
			return fmt.Errorf("depot %s: %w", req.DepotID, err)
		}
		ref, err := repos.Sequences().Next(ctx, shared.SequenceInventory)
		if err != nil {
			return err
		}
		plannedAt := req.PlannedAt
		if plannedAt.IsZero() {
			plannedAt = s.clock()
		}
		if c, err = inventory.NewInventoryCampaign(ref, req.DepotID, req.Label, plannedAt); err != nil {
			return err
		}
		return repos.Campaigns().Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Inventory campaign created",
		zap.String("reference", c.Reference),
		zap.String("depot_id", c.DepotID.String()),
	)
	resp := ToCampaignResponse(c)
	return &resp, nil
}

// StartCampaign snapshots the theoretical quantity and average cost of the depot's positions
func (s *StockCountService) StartCampaign(ctx context.Context, campaignID uuid.UUID, req StartCampaignRequest) (*CampaignResponse, error) {
	var c *inventory.InventoryCampaign
	err := s.run(ctx, "start_campaign", func(repos TransactionalRepositories) error {
		var err error
		if c, err = repos.Campaigns().FindForUpdate(ctx, campaignID); err != nil {
			return err
		}
		stocks, err := repos.Stocks().FindByDepot(ctx, c.DepotID)
		if err != nil {
			return err
		}
		if len(req.ArticleIDs) > 0 {
			wanted := make(map[uuid.UUID]struct{}, len(req.ArticleIDs))
			for _, id := range req.ArticleIDs {
				wanted[id] = struct{}{}
			}
			filtered := stocks[:0]
			for _, st := range stocks {
				if _, ok := wanted[st.ArticleID]; ok {
					filtered = append(filtered, st)
				}
			}
			stocks = filtered
		}
		if err := c.Start(stocks, s.clock()); err != nil {
			return err
		}
		return repos.Campaigns().Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Inventory campaign started",
		zap.String("reference", c.Reference),
		zap.Int("lines", len(c.Lines)),
	)
	resp := ToCampaignResponse(c)
	return &resp, nil
}

// RecordCount stores a count, or the recount of a line already counted
func (s *StockCountService) RecordCount(ctx context.Context, campaignID, lineID uuid.UUID, req RecordCountRequest) (*InventoryLineResponse, error) {
	var resp InventoryLineResponse
	err := s.run(ctx, "record_count", func(repos TransactionalRepositories) error {
		c, line, err := s.lockLine(ctx, repos, campaignID, lineID, "count")
		if err != nil {
			return err
		}
		if err := line.RecordCount(req.Quantity, req.CountedBy, s.policy); err != nil {
			return err
		}
		if err := repos.Campaigns().Save(ctx, c); err != nil {
			return err
		}
		resp = ToInventoryLineResponse(line)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExcludeLine removes a line from the campaign
func (s *StockCountService) ExcludeLine(ctx context.Context, campaignID, lineID uuid.UUID, req ExcludeLineRequest) (*InventoryLineResponse, error) {
	var resp InventoryLineResponse
	err := s.run(ctx, "exclude_line", func(repos TransactionalRepositories) error {
		c, line, err := s.lockLine(ctx, repos, campaignID, lineID, "exclude line")
		if err != nil {
			return err
		}
		if err := line.Exclude(req.Reason); err != nil {
			return err
		}
		if err := repos.Campaigns().Save(ctx, c); err != nil {
			return err
		}
		resp = ToInventoryLineResponse(line)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateLine accepts the counted quantity of a line. A discrepancy produces an
// adjustment; below the second validation threshold its correcting movement is
// posted right away.
func (s *StockCountService) ValidateLine(ctx context.Context, campaignID, lineID uuid.UUID, req ValidateLineRequest) (*ValidateLineResponse, error) {
	var (
		resp *ValidateLineResponse
		res  *posting
	)
	err := s.run(ctx, "validate_line", func(repos TransactionalRepositories) error {
		res = nil
		c, line, err := s.lockLine(ctx, repos, campaignID, lineID, "validate line")
		if err != nil {
			return err
		}
		if err := line.Validate(req.ValidatedBy, s.clock()); err != nil {
			return err
		}
		resp = &ValidateLineResponse{}

		if !line.Delta().IsZero() {
			adj, err := inventory.NewInventoryAdjustment(c, line, s.policy)
			if err != nil {
				return err
			}
			if !adj.RequiresSecondValidation {
				if res, err = s.applyAdjustment(ctx, repos, c, line, adj); err != nil {
					return err
				}
				mv := ToMovementResponse(res.movement)
				resp.Movement = &mv
			}
			if err := repos.Adjustments().Save(ctx, adj); err != nil {
				return err
			}
			ar := ToAdjustmentResponse(adj)
			resp.Adjustment = &ar
		}

		if err := repos.Campaigns().Save(ctx, c); err != nil {
			return err
		}
		resp.Line = ToInventoryLineResponse(line)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res != nil {
		s.poster.observe(ctx, res)
		s.publish(ctx, res.events)
	}
	return resp, nil
}

// ValidateAdjustment is the second validation of a large adjustment.
// The validator must differ from the one who validated the line.
func (s *StockCountService) ValidateAdjustment(ctx context.Context, adjustmentID uuid.UUID, req ValidateAdjustmentRequest) (*ValidateAdjustmentResponse, error) {
	var (
		adj *inventory.InventoryAdjustment
		res *posting
	)
	err := s.run(ctx, "validate_adjustment", func(repos TransactionalRepositories) error {
		var err error
		if adj, err = repos.Adjustments().FindByID(ctx, adjustmentID); err != nil {
			return err
		}
		// the campaign lock serializes concurrent approvals
		c, line, err := s.lockLine(ctx, repos, adj.CampaignID, adj.LineID, "validate adjustment")
		if err != nil {
			return err
		}
		if err := adj.ApproveSecond(req.Validator); err != nil {
			return err
		}
		if res, err = s.applyAdjustment(ctx, repos, c, line, adj); err != nil {
			return err
		}
		if err := repos.Adjustments().Save(ctx, adj); err != nil {
			return err
		}
		return repos.Campaigns().Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.poster.observe(ctx, res)
	s.publish(ctx, res.events)
	s.logger.Info("Inventory adjustment approved",
		zap.String("adjustment_id", adj.ID.String()),
		zap.String("first_validator", adj.FirstValidator),
		zap.String("second_validator", adj.SecondValidator),
		zap.String("value_delta", adj.ValueDelta.String()),
	)
	return &ValidateAdjustmentResponse{
		Adjustment: ToAdjustmentResponse(adj),
		Movement:   ToMovementResponse(res.movement),
	}, nil
}

// CompleteCampaign ends counting
func (s *StockCountService) CompleteCampaign(ctx context.Context, campaignID uuid.UUID) (*CampaignResponse, error) {
	return s.transition(ctx, campaignID, "complete_campaign", func(c *inventory.InventoryCampaign) error {
		return c.Complete(s.clock())
	})
}

// ValidateCampaign accepts the campaign once every line is settled.
// Second validations happen while counting is open, so pending adjustments block it.
func (s *StockCountService) ValidateCampaign(ctx context.Context, campaignID uuid.UUID) (*CampaignResponse, error) {
	var c *inventory.InventoryCampaign
	err := s.run(ctx, "validate_campaign", func(repos TransactionalRepositories) error {
		var err error
		if c, err = repos.Campaigns().FindForUpdate(ctx, campaignID); err != nil {
			return err
		}
		if err := s.checkNoPending(ctx, repos, c); err != nil {
			return err
		}
		if err := c.Validate(s.clock()); err != nil {
			return err
		}
		return repos.Campaigns().Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Inventory campaign validated", zap.String("reference", c.Reference))
	resp := ToCampaignResponse(c)
	return &resp, nil
}

func (s *StockCountService) checkNoPending(ctx context.Context, repos TransactionalRepositories, c *inventory.InventoryCampaign) error {
	pending, err := repos.Adjustments().CountPending(ctx, c.ID)
	if err != nil {
		return err
	}
	if pending > 0 {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("%d adjustments still await their second validation", pending))
	}
	return nil
}

// CancelCampaign abandons a campaign that is not closed
func (s *StockCountService) CancelCampaign(ctx context.Context, campaignID uuid.UUID, req CancelCampaignRequest) (*CampaignResponse, error) {
	return s.transition(ctx, campaignID, "cancel_campaign", func(c *inventory.InventoryCampaign) error {
		return c.Cancel(req.Reason, s.clock())
	})
}

// CloseCampaign computes the campaign precision and writes the counted
// quantities back as the physical quantity of each position.
// Adjustments still awaiting their second validation block the closing.
func (s *StockCountService) CloseCampaign(ctx context.Context, campaignID uuid.UUID) (*CampaignResponse, error) {
	var c *inventory.InventoryCampaign
	err := s.run(ctx, "close_campaign", func(repos TransactionalRepositories) error {
		var err error
		if c, err = repos.Campaigns().FindForUpdate(ctx, campaignID); err != nil {
			return err
		}
		if err := s.checkNoPending(ctx, repos, c); err != nil {
			return err
		}
		now := s.clock()
		if err := c.Close(now); err != nil {
			return err
		}

		for i := range c.Lines {
			line := &c.Lines[i]
			if line.Status == inventory.LineExcluded {
				continue
			}
			stock, err := repos.Stocks().FindForUpdate(ctx, line.ArticleID, c.DepotID)
			if err != nil {
				return err
			}
			if err := stock.SetPhysicalQuantity(line.Final(), now); err != nil {
				return err
			}
			if err := repos.Stocks().Save(ctx, stock); err != nil {
				return err
			}
		}
		return repos.Campaigns().Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Inventory campaign closed",
		zap.String("reference", c.Reference),
		zap.String("precision", c.Precision.String()),
	)
	resp := ToCampaignResponse(c)
	return &resp, nil
}

// GetCampaign returns a campaign with its lines
func (s *StockCountService) GetCampaign(ctx context.Context, campaignID uuid.UUID) (*CampaignResponse, error) {
	var resp CampaignResponse
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.Campaigns().FindByID(ctx, campaignID)
		if err != nil {
			return err
		}
		resp = ToCampaignResponse(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListCampaigns returns a page of campaigns
func (s *StockCountService) ListCampaigns(ctx context.Context, f CampaignListFilter) (*shared.Paginated[CampaignResponse], error) {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	var page shared.Paginated[CampaignResponse]
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		campaigns, total, err := repos.Campaigns().FindAll(ctx, f.DepotID, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(ToCampaignResponses(campaigns), total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ListAdjustments returns the adjustments of a campaign
func (s *StockCountService) ListAdjustments(ctx context.Context, campaignID uuid.UUID) ([]AdjustmentResponse, error) {
	var resp []AdjustmentResponse
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		adjustments, err := repos.Adjustments().FindByCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		resp = ToAdjustmentResponses(adjustments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *StockCountService) transition(
	ctx context.Context,
	campaignID uuid.UUID,
	operation string,
	fn func(c *inventory.InventoryCampaign) error,
) (*CampaignResponse, error) {
	var c *inventory.InventoryCampaign
	err := s.run(ctx, operation, func(repos TransactionalRepositories) error {
		var err error
		if c, err = repos.Campaigns().FindForUpdate(ctx, campaignID); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		return repos.Campaigns().Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Inventory campaign updated",
		zap.String("reference", c.Reference),
		zap.String("status", string(c.Status)),
	)
	resp := ToCampaignResponse(c)
	return &resp, nil
}

// lockLine locks the campaign and returns one of its lines while counting is open
func (s *StockCountService) lockLine(
	ctx context.Context,
	repos TransactionalRepositories,
	campaignID, lineID uuid.UUID,
	operation string,
) (*inventory.InventoryCampaign, *inventory.InventoryLine, error) {
	c, err := repos.Campaigns().FindForUpdate(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}
	if !c.IsCounting() {
		return nil, nil, shared.InvalidStateError("campaign "+c.Reference, string(c.Status), operation)
	}
	line, err := c.Line(lineID)
	if err != nil {
		return nil, nil, fmt.Errorf("line %s: %w", lineID, err)
	}
	return c, line, nil
}

// applyAdjustment posts the correcting movement of an adjustment
func (s *StockCountService) applyAdjustment(
	ctx context.Context,
	repos TransactionalRepositories,
	c *inventory.InventoryCampaign,
	line *inventory.InventoryLine,
	adj *inventory.InventoryAdjustment,
) (*posting, error) {
	ref, err := repos.Sequences().Next(ctx, shared.SequenceMovement)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	m, err := inventory.NewStockMovement(inventory.MovementParams{
		Reference:    ref,
		Type:         adj.MovementType(),
		ArticleID:    adj.ArticleID,
		DepotID:      adj.DepotID,
		Quantity:     adj.QuantityDelta.Abs(),
		UnitCost:     adj.UnitCost,
		MovementDate: now,
		OriginType:   inventory.OriginInventory,
		OriginRef:    c.Reference,
	})
	if err != nil {
		return nil, err
	}
	res, err := s.poster.post(ctx, repos, m, false, postOptions{})
	if err != nil {
		return nil, err
	}
	adj.MarkApplied(m.ID, now)
	if err := line.MarkAdjusted(); err != nil {
		return nil, err
	}
	return res, nil
}
