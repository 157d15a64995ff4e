package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

// Registry holds the available strategies by name. It is safe for
// concurrent use.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// NewDefaultRegistry returns a registry preloaded with the built-in
// strategies.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	// built-ins use distinct names, registration cannot fail
	_ = r.Register(NewSMACrossover(20, 50))
	_ = r.Register(NewEMACrossover(20, 50))

	return r
}

// Register adds a strategy. Registering an unnamed strategy, one without
// a parameter declaration, or a duplicate name is an error.
func (r *Registry) Register(s Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Name() == "" {
		return errors.New(errors.ErrCodeStrategyInvalid, "strategy has no name")
	}

	if s.Parameters() == nil {
		return errors.Newf(errors.ErrCodeStrategyInvalid,
			"strategy %s declares no parameters", s.Name())
	}

	if _, ok := r.strategies[s.Name()]; ok {
		return errors.Newf(errors.ErrCodeStrategyAlreadyRegistered,
			"strategy %s is already registered", s.Name())
	}

	r.strategies[s.Name()] = s

	return nil
}

// Get returns the strategy with the given name.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", name)
	}

	return s, nil
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Evaluate runs the named strategy over the series, converting panics in
// strategy code into errors so one broken strategy cannot take down the
// scheduler.
func (r *Registry) Evaluate(name string, series []types.MarketData, symbol types.Symbol) (result optional.Option[types.Signal], err error) {
	s, err := r.Get(name)
	if err != nil {
		return optional.None[types.Signal](), err
	}

	if len(series) < s.MinBars() {
		return optional.None[types.Signal](), errors.Newf(errors.ErrCodeInsufficientWindow,
			"strategy %s needs %d bars, got %d", name, s.MinBars(), len(series))
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = optional.None[types.Signal]()
			err = errors.Wrap(errors.ErrCodeStrategyPanicked,
				fmt.Sprintf("strategy %s panicked", name), fmt.Errorf("%v", rec))
		}
	}()

	result, err = s.Evaluate(series, symbol)
	if err != nil {
		return optional.None[types.Signal](), errors.Wrapf(errors.ErrCodeStrategyEvaluateFailed, err,
			"strategy %s evaluation failed", name)
	}

	return result, nil
}
