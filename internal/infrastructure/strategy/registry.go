package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
)

// StrategyRegistry manages strategy registrations.
// Strategies are keyed by name, which is also the article method they serve (CUMP, FIFO, FEFO).
type StrategyRegistry struct {
	mu                  sync.RWMutex
	lotStrategies       map[string]strategy.LotSelectionStrategy
	valuationStrategies map[string]strategy.ValuationStrategy
	defaults            map[strategy.StrategyType]string
}

// NewStrategyRegistry creates a new strategy registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		lotStrategies:       make(map[string]strategy.LotSelectionStrategy),
		valuationStrategies: make(map[string]strategy.ValuationStrategy),
		defaults:            make(map[strategy.StrategyType]string),
	}
}

// RegisterLotStrategy registers a lot selection strategy
func (r *StrategyRegistry) RegisterLotStrategy(s strategy.LotSelectionStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.lotStrategies[name]; exists {
		return fmt.Errorf("%w: lot strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.lotStrategies[name] = s
	return nil
}

// GetLotStrategy returns a lot strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetLotStrategy(name string) (strategy.LotSelectionStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaults[strategy.StrategyTypeLotSelection]
		if name == "" {
			return nil, fmt.Errorf("%w: no default lot strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.lotStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: lot strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// GetLotStrategyOrDefault returns a lot strategy by name, or the default if not found
func (r *StrategyRegistry) GetLotStrategyOrDefault(name string) strategy.LotSelectionStrategy {
	s, err := r.GetLotStrategy(name)
	if err != nil {
		s, _ = r.GetLotStrategy("")
	}
	return s
}

// ListLotStrategies returns all registered lot strategy names
func (r *StrategyRegistry) ListLotStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.lotStrategies))
	for name := range r.lotStrategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnregisterLotStrategy removes a lot strategy
func (r *StrategyRegistry) UnregisterLotStrategy(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.lotStrategies[name]; !exists {
		return fmt.Errorf("%w: lot strategy '%s' not found", shared.ErrNotFound, name)
	}
	delete(r.lotStrategies, name)

	// Clear default if it was this strategy
	if r.defaults[strategy.StrategyTypeLotSelection] == name {
		delete(r.defaults, strategy.StrategyTypeLotSelection)
	}
	return nil
}

// RegisterValuationStrategy registers a valuation strategy
func (r *StrategyRegistry) RegisterValuationStrategy(s strategy.ValuationStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.valuationStrategies[name]; exists {
		return fmt.Errorf("%w: valuation strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.valuationStrategies[name] = s
	return nil
}

// GetValuationStrategy returns a valuation strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetValuationStrategy(name string) (strategy.ValuationStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaults[strategy.StrategyTypeValuation]
		if name == "" {
			return nil, fmt.Errorf("%w: no default valuation strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.valuationStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: valuation strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// ListValuationStrategies returns all registered valuation strategy names
func (r *StrategyRegistry) ListValuationStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.valuationStrategies))
	for name := range r.valuationStrategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetDefault sets the default strategy for a strategy type
func (r *StrategyRegistry) SetDefault(strategyType strategy.StrategyType, name string) error {
	if !strategyType.IsValid() {
		return fmt.Errorf("%w: unknown strategy type '%s'", shared.ErrInvalidInput, strategyType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRegisteredLocked(strategyType, name) {
		return fmt.Errorf("%w: strategy '%s' of type '%s' not found", shared.ErrNotFound, name, strategyType)
	}

	r.defaults[strategyType] = name
	return nil
}

// GetDefault returns the default strategy name for a strategy type
func (r *StrategyRegistry) GetDefault(strategyType strategy.StrategyType) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[strategyType]
}

// IsRegistered returns true if a strategy with the given name is registered for the type
func (r *StrategyRegistry) IsRegistered(strategyType strategy.StrategyType, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isRegisteredLocked(strategyType, name)
}

// isRegisteredLocked checks registration without locking (caller must hold lock)
func (r *StrategyRegistry) isRegisteredLocked(strategyType strategy.StrategyType, name string) bool {
	switch strategyType {
	case strategy.StrategyTypeLotSelection:
		_, exists := r.lotStrategies[name]
		return exists
	case strategy.StrategyTypeValuation:
		_, exists := r.valuationStrategies[name]
		return exists
	default:
		return false
	}
}

// Stats returns registration counts for each strategy type
func (r *StrategyRegistry) Stats() map[strategy.StrategyType]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[strategy.StrategyType]int{
		strategy.StrategyTypeLotSelection: len(r.lotStrategies),
		strategy.StrategyTypeValuation:    len(r.valuationStrategies),
	}
}
