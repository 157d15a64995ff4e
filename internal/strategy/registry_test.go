package strategy

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

type RegistryTestSuite struct {
	suite.Suite
	registry *Registry
}

func TestRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (s *RegistryTestSuite) SetupTest() {
	s.registry = NewRegistry()
}

type panickyStrategy struct{}

func (panickyStrategy) Name() string { return "panicky" }

func (panickyStrategy) Parameters() map[string]string { return map[string]string{} }

func (panickyStrategy) MinBars() int { return 1 }

func (panickyStrategy) Evaluate([]types.MarketData, types.Symbol) (optional.Option[types.Signal], error) {
	panic("index out of range")
}

// scriptless has no name and no parameter declaration.
type scriptless struct{}

func (scriptless) Name() string { return "" }

func (scriptless) Parameters() map[string]string { return nil }

func (scriptless) MinBars() int { return 1 }

func (scriptless) Evaluate([]types.MarketData, types.Symbol) (optional.Option[types.Signal], error) {
	return optional.None[types.Signal](), nil
}

func (s *RegistryTestSuite) testSymbol() types.Symbol {
	return types.Symbol{Name: "NIFTY", Segment: "NSE", LotSize: 50}
}

func (s *RegistryTestSuite) TestRegisterRejectsDuplicate() {
	s.Require().NoError(s.registry.Register(NewSMACrossover(20, 50)))

	err := s.registry.Register(NewSMACrossover(5, 10))
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeStrategyAlreadyRegistered))
}

func (s *RegistryTestSuite) TestRegisterRejectsUnnamedStrategy() {
	err := s.registry.Register(&scriptless{})
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeStrategyInvalid))
}

func (s *RegistryTestSuite) TestGetUnknownStrategy() {
	_, err := s.registry.Get("missing")
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))
}

func (s *RegistryTestSuite) TestNamesAreSorted() {
	r := NewDefaultRegistry()
	s.Equal([]string{"ema_crossover", "sma_crossover"}, r.Names())
}

func (s *RegistryTestSuite) TestEvaluateRecoversPanic() {
	s.Require().NoError(s.registry.Register(panickyStrategy{}))

	series := []types.MarketData{{Symbol: "NIFTY", Close: 100, Low: 99, High: 101}}
	result, err := s.registry.Evaluate("panicky", series, s.testSymbol())
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeStrategyPanicked))
	s.True(result.IsNone())
}

func (s *RegistryTestSuite) TestEvaluateRejectsShortWindow() {
	s.Require().NoError(s.registry.Register(NewSMACrossover(20, 50)))

	_, err := s.registry.Evaluate("sma_crossover", nil, s.testSymbol())
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientWindow))
}

func (s *RegistryTestSuite) TestSMACrossoverSignalsBuyOnCrossUp() {
	s.Require().NoError(s.registry.Register(NewSMACrossover(2, 3)))

	day := func(i int) time.Time {
		return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}

	closes := []float64{10, 9, 8, 7, 7, 12}
	series := make([]types.MarketData, len(closes))
	for i, c := range closes {
		series[i] = types.MarketData{
			Symbol: "NIFTY",
			Time:   day(i),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
		}
	}

	result, err := s.registry.Evaluate("sma_crossover", series, s.testSymbol())
	s.Require().NoError(err)
	s.Require().True(result.IsSome())

	sig := result.Unwrap()
	s.Equal(types.SignalActionBuy, sig.Action)
	s.Equal(12.0, sig.Price)
	s.InDelta(11.76, sig.StopLoss, 1e-9)
	s.True(sig.Target.IsSome())
	s.InDelta(12.48, sig.Target.Unwrap(), 1e-9)
}

func (s *RegistryTestSuite) TestSMACrossoverStaysFlatWithoutCross() {
	s.Require().NoError(s.registry.Register(NewSMACrossover(2, 3)))

	closes := []float64{10, 11, 12, 13, 14, 15}
	series := make([]types.MarketData, len(closes))
	for i, c := range closes {
		series[i] = types.MarketData{Symbol: "NIFTY", Close: c, High: c, Low: c}
	}

	result, err := s.registry.Evaluate("sma_crossover", series, s.testSymbol())
	s.Require().NoError(err)
	s.True(result.IsNone())
}
