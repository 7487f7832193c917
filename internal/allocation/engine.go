package allocation

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/eugenenazirov/table-seating/internal/registry"
)

type greedyEngine struct {
	logger *zap.Logger
}

// Option configures the engine.
type Option func(*greedyEngine)

// WithLogger attaches a logger for allocation outcomes.
func WithLogger(logger *zap.Logger) Option {
	return func(e *greedyEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Allocator that seats cards greedily in capacity-descending order.
func New(opts ...Option) Allocator {
	e := &greedyEngine{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Allocate seats cards across the registry's tables and consumes their
// capacity. The view is computed and mutated under the registry lock, so
// concurrent requests never spend the same seats twice.
//
// The tables are visited largest first (ties by ascending identity):
//  1. the first table with exactly cards free seats takes the whole request;
//  2. otherwise the largest table takes it if it has room;
//  3. otherwise tables are drained in order until the remainder fits.
//
// When every table is drained before the request is seated the rest is
// reported as Unassigned.
func (e *greedyEngine) Allocate(reg *registry.Registry, cards int) (Result, error) {
	if cards < 0 {
		return Result{}, ErrInvalidRequest
	}

	result := Result{
		Requested:   cards,
		Unassigned:  cards,
		Strategy:    StrategyNone,
		Allocations: []Allocation{},
	}
	if cards == 0 {
		return result, nil
	}

	err := reg.Update(func(view []*registry.Table) error {
		result.Allocations = result.Allocations[:0]
		result.Assigned = 0

		strategy, err := seat(view, cards, func(t *registry.Table, n int) error {
			if n == 0 {
				return nil
			}
			if err := t.Consume(n); err != nil {
				return err
			}
			result.Allocations = append(result.Allocations, Allocation{TableID: t.ID(), Cards: n})
			result.Assigned += n
			return nil
		})
		result.Strategy = strategy
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("allocate %d cards: %w", cards, err)
	}
	result.Unassigned = cards - result.Assigned

	fields := []zap.Field{
		zap.Int("requested", result.Requested),
		zap.Int("assigned", result.Assigned),
		zap.Int("unassigned", result.Unassigned),
		zap.String("strategy", string(result.Strategy)),
		zap.Int("tables", len(result.Allocations)),
	}
	if result.Shortfall() {
		e.logger.Warn("insufficient capacity for request", fields...)
	} else {
		e.logger.Debug("cards allocated", fields...)
	}

	return result, nil
}

func seat(view []*registry.Table, cards int, assign func(*registry.Table, int) error) (Strategy, error) {
	if len(view) == 0 {
		return StrategyNone, nil
	}

	for _, t := range view {
		if t.Capacity() == cards {
			return StrategyExactMatch, assign(t, cards)
		}
	}

	if view[0].Capacity() >= cards {
		return StrategySingleTable, assign(view[0], cards)
	}

	remaining := cards
	for _, t := range view {
		if remaining == 0 {
			break
		}
		if t.Capacity() < remaining {
			remaining -= t.Capacity()
			if err := assign(t, t.Capacity()); err != nil {
				return StrategySpread, err
			}
			continue
		}
		if err := assign(t, remaining); err != nil {
			return StrategySpread, err
		}
		remaining = 0
	}
	return StrategySpread, nil
}
