package inventory

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransferService drives transfers between depots over the ledger:
// shipping posts the exits at the source, receiving posts the entries at the destination.
type TransferService struct {
	base
}

// NewTransferService creates a new TransferService
func NewTransferService(deps Dependencies) *TransferService {
	return &TransferService{base: newBase(deps)}
}

// CreateTransfer creates a DRAFT transfer with its lines
func (s *TransferService) CreateTransfer(ctx context.Context, req CreateTransferRequest) (*TransferResponse, error) {
	var t *inventory.Transfer
	err := s.run(ctx, "create_transfer", func(repos TransactionalRepositories) error {
		for _, id := range []uuid.UUID{req.SourceDepotID, req.DestinationDepotID} {
			if _, err := repos.Depots().FindByID(ctx, id); err != nil {
				return fmt.Errorf("depot %s: %w", id, err)
			}
		}
		ref, err := repos.Sequences().Next(ctx, shared.SequenceTransfer)
		if err != nil {
			return err
		}
		if t, err = inventory.NewTransfer(ref, req.SourceDepotID, req.DestinationDepotID, req.Note); err != nil {
			return err
		}
		for _, line := range req.Lines {
			if _, err := repos.Articles().FindByID(ctx, line.ArticleID); err != nil {
				return fmt.Errorf("article %s: %w", line.ArticleID, err)
			}
			if err := t.AddLine(line.ArticleID, line.LotID, line.Quantity); err != nil {
				return err
			}
		}
		return repos.Transfers().Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	resp := ToTransferResponse(t)
	return &resp, nil
}

// ValidateTransfer freezes the lines of a draft transfer
func (s *TransferService) ValidateTransfer(ctx context.Context, transferID uuid.UUID) (*TransferResponse, error) {
	var t *inventory.Transfer
	err := s.run(ctx, "validate_transfer", func(repos TransactionalRepositories) error {
		var err error
		if t, err = repos.Transfers().FindForUpdate(ctx, transferID); err != nil {
			return err
		}
		if err := t.Validate(); err != nil {
			return err
		}
		return repos.Transfers().Save(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	resp := ToTransferResponse(t)
	return &resp, nil
}

// Ship posts a TRANSFER_OUT exit at the source depot for every line
func (s *TransferService) Ship(ctx context.Context, transferID uuid.UUID) (*TransferResponse, error) {
	var (
		t        *inventory.Transfer
		postings []*posting
	)
	err := s.run(ctx, "ship_transfer", func(repos TransactionalRepositories) error {
		var err error
		postings = nil
		if t, err = repos.Transfers().FindForUpdate(ctx, transferID); err != nil {
			return err
		}
		if t.Status != inventory.TransferValidated {
			return shared.InvalidStateError("transfer "+t.Reference, string(t.Status), "ship")
		}
		now := s.clock()
		for i := range t.Lines {
			line := &t.Lines[i]
			res, err := s.postLine(ctx, repos, t, line, inventory.MovementTransferOut, t.SourceDepotID, postOptions{})
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			id := res.movement.ID
			line.ExitMovementID = &id
			postings = append(postings, res)
		}
		if err := t.MarkShipped(now); err != nil {
			return err
		}
		return repos.Transfers().Save(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.settle(ctx, postings)
	s.logger.Info("Transfer shipped",
		zap.String("reference", t.Reference),
		zap.Int("lines", len(t.Lines)),
	)
	resp := ToTransferResponse(t)
	return &resp, nil
}

// Receive posts a TRANSFER_IN entry at the destination for every line, valued at
// the unit cost of the matching exit. Lot tracked articles get new lots that keep
// the expiry and cost of the lots they came from.
func (s *TransferService) Receive(ctx context.Context, transferID uuid.UUID) (*TransferResponse, error) {
	var (
		t        *inventory.Transfer
		postings []*posting
	)
	err := s.run(ctx, "receive_transfer", func(repos TransactionalRepositories) error {
		var err error
		postings = nil
		if t, err = repos.Transfers().FindForUpdate(ctx, transferID); err != nil {
			return err
		}
		if t.Status != inventory.TransferShipped {
			return shared.InvalidStateError("transfer "+t.Reference, string(t.Status), "receive")
		}
		now := s.clock()
		for i := range t.Lines {
			line := &t.Lines[i]
			if line.ExitMovementID == nil {
				return shared.NewDomainError(shared.CodeDataIntegrity,
					fmt.Sprintf("Line %d of transfer %s was never shipped", i+1, t.Reference))
			}
			exit, err := repos.Movements().FindByID(ctx, *line.ExitMovementID)
			if err != nil {
				return err
			}
			specs, err := s.lotsFromExit(ctx, repos, exit)
			if err != nil {
				return err
			}
			res, err := s.postEntry(ctx, repos, t, exit, specs)
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			id := res.movement.ID
			line.EntryMovementID = &id
			postings = append(postings, res)
		}
		if err := t.MarkReceived(now); err != nil {
			return err
		}
		return repos.Transfers().Save(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.settle(ctx, postings)
	s.logger.Info("Transfer received",
		zap.String("reference", t.Reference),
		zap.Int("lines", len(t.Lines)),
	)
	resp := ToTransferResponse(t)
	return &resp, nil
}

// CancelTransfer abandons a transfer that has not shipped
func (s *TransferService) CancelTransfer(ctx context.Context, transferID uuid.UUID) (*TransferResponse, error) {
	var t *inventory.Transfer
	err := s.run(ctx, "cancel_transfer", func(repos TransactionalRepositories) error {
		var err error
		if t, err = repos.Transfers().FindForUpdate(ctx, transferID); err != nil {
			return err
		}
		if err := t.Cancel(s.clock()); err != nil {
			return err
		}
		return repos.Transfers().Save(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	resp := ToTransferResponse(t)
	return &resp, nil
}

// GetTransfer returns a transfer with its lines
func (s *TransferService) GetTransfer(ctx context.Context, transferID uuid.UUID) (*TransferResponse, error) {
	var resp TransferResponse
	err := s.read(ctx, func(repos TransactionalRepositories) error {
		t, err := repos.Transfers().FindByID(ctx, transferID)
		if err != nil {
			return err
		}
		resp = ToTransferResponse(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *TransferService) postLine(
	ctx context.Context,
	repos TransactionalRepositories,
	t *inventory.Transfer,
	line *inventory.TransferLine,
	movementType inventory.MovementType,
	depotID uuid.UUID,
	opts postOptions,
) (*posting, error) {
	ref, err := repos.Sequences().Next(ctx, shared.SequenceMovement)
	if err != nil {
		return nil, err
	}
	m, err := inventory.NewStockMovement(inventory.MovementParams{
		Reference:    ref,
		Type:         movementType,
		ArticleID:    line.ArticleID,
		DepotID:      depotID,
		Quantity:     line.Quantity,
		MovementDate: s.clock(),
		OriginType:   inventory.OriginTransfer,
		OriginRef:    t.Reference,
	})
	if err != nil {
		return nil, err
	}
	if line.LotID != nil {
		id := *line.LotID
		m.LotID = &id
	}
	return s.poster.post(ctx, repos, m, false, opts)
}

func (s *TransferService) postEntry(
	ctx context.Context,
	repos TransactionalRepositories,
	t *inventory.Transfer,
	exit *inventory.StockMovement,
	specs []LotSpec,
) (*posting, error) {
	ref, err := repos.Sequences().Next(ctx, shared.SequenceMovement)
	if err != nil {
		return nil, err
	}
	m, err := inventory.NewStockMovement(inventory.MovementParams{
		Reference:    ref,
		Type:         inventory.MovementTransferIn,
		ArticleID:    exit.ArticleID,
		DepotID:      t.DestinationDepotID,
		Quantity:     exit.Quantity,
		UnitCost:     exit.UnitCost,
		MovementDate: s.clock(),
		OriginType:   inventory.OriginTransfer,
		OriginRef:    t.Reference,
	})
	if err != nil {
		return nil, err
	}
	return s.poster.post(ctx, repos, m, false, postOptions{newLots: specs})
}

// lotsFromExit describes the destination lots mirroring the lots an exit consumed
func (s *TransferService) lotsFromExit(ctx context.Context, repos TransactionalRepositories, exit *inventory.StockMovement) ([]LotSpec, error) {
	if len(exit.LotLines) == 0 {
		return nil, nil
	}
	specs := make([]LotSpec, 0, len(exit.LotLines))
	for _, line := range exit.LotLines {
		source, err := repos.Lots().FindByID(ctx, line.LotID)
		if err != nil {
			return nil, fmt.Errorf("lot %s: %w", line.LotID, err)
		}
		specs = append(specs, LotSpec{
			Quantity:       line.Quantity,
			UnitCost:       line.UnitCost,
			ManufacturedAt: source.ManufacturedAt,
			ExpiryDate:     source.ExpiryDate,
			OriginRef:      source.LotNumber,
		})
	}
	return specs, nil
}

func (s *TransferService) settle(ctx context.Context, postings []*posting) {
	var events []shared.DomainEvent
	for _, res := range postings {
		s.poster.observe(ctx, res)
		events = append(events, res.events...)
	}
	s.publish(ctx, events)
}
