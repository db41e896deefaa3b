// Package strategy holds the pluggable policies of the ledger: which lots an
// exit consumes and how consumed quantities are valued.
package strategy

// StrategyType groups strategies by the decision they make
type StrategyType string

const (
	StrategyTypeLotSelection StrategyType = "lot_selection"
	StrategyTypeValuation    StrategyType = "valuation"
)

func (t StrategyType) IsValid() bool {
	return t == StrategyTypeLotSelection || t == StrategyTypeValuation
}

// Strategy is what the registry indexes. Names are upper case (FIFO, FEFO,
// CUMP) and unique within a type.
type Strategy interface {
	Name() string
	Type() StrategyType
	Description() string
}

// BaseStrategy is embedded by concrete strategies for the registry metadata
type BaseStrategy struct {
	name         string
	strategyType StrategyType
	description  string
}

func NewBaseStrategy(name string, strategyType StrategyType, description string) BaseStrategy {
	return BaseStrategy{name: name, strategyType: strategyType, description: description}
}

func (s BaseStrategy) Name() string { return s.name }
func (s BaseStrategy) Type() StrategyType { return s.strategyType }
func (s BaseStrategy) Description() string { return s.description }
