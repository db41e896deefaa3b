package strategy

import (
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/erp/stockledger/internal/infrastructure/strategy/lot"
	"github.com/erp/stockledger/internal/infrastructure/strategy/valuation"
)

// NewRegistryWithDefaults creates a registry holding the FIFO and FEFO lot policies
// and the CUMP, FIFO and FEFO valuation methods. FIFO and CUMP are the defaults.
func NewRegistryWithDefaults() (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	fifoLots := lot.NewFIFOLotStrategy()
	if err := r.RegisterLotStrategy(fifoLots); err != nil {
		return nil, err
	}

	fefoLots := lot.NewFEFOLotStrategy()
	if err := r.RegisterLotStrategy(fefoLots); err != nil {
		return nil, err
	}

	cump := valuation.NewCUMPValuationStrategy()
	if err := r.RegisterValuationStrategy(cump); err != nil {
		return nil, err
	}

	// layered methods reuse the lot orderings so valuation and consumption agree
	if err := r.RegisterValuationStrategy(valuation.NewFIFOValuationStrategy(fifoLots)); err != nil {
		return nil, err
	}
	if err := r.RegisterValuationStrategy(valuation.NewFEFOValuationStrategy(fefoLots)); err != nil {
		return nil, err
	}

	if err := r.SetDefault(strategy.StrategyTypeLotSelection, fifoLots.Name()); err != nil {
		return nil, err
	}
	if err := r.SetDefault(strategy.StrategyTypeValuation, cump.Name()); err != nil {
		return nil, err
	}

	return r, nil
}
