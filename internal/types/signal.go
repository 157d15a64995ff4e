package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

// SignalAction is the direction of a trade signal.
type SignalAction string

const (
	SignalActionBuy  SignalAction = "BUY"
	SignalActionSell SignalAction = "SELL"
)

// OrderKind is how the resulting order should be priced.
type OrderKind string

const (
	OrderKindMarket OrderKind = "MARKET"
	OrderKindLimit  OrderKind = "LIMIT"
)

// Signal is a strategy's trade proposal for a single evaluation tick.
// A strategy produces at most one signal per (symbol, strategy, tick).
type Signal struct {
	// Time is the bar time the signal was produced on
	Time time.Time `yaml:"time" json:"time"`
	// Symbol is the instrument the signal applies to
	Symbol string `yaml:"symbol" json:"symbol" validate:"required"`
	// Strategy is the name of the strategy that produced the signal
	Strategy string       `yaml:"strategy" json:"strategy" validate:"required"`
	Action   SignalAction `yaml:"action" json:"action" validate:"required,oneof=BUY SELL"`
	Kind     OrderKind    `yaml:"kind" json:"kind" validate:"required,oneof=MARKET LIMIT"`
	// Price is the proposed entry price
	Price float64 `yaml:"price" json:"price" validate:"required,gt=0"`
	// StopLoss is the protective exit level; required for risk sizing
	StopLoss float64 `yaml:"stop_loss" json:"stop_loss" validate:"required,gt=0"`
	// Target is the profit exit level. Can be None if the strategy does not set one.
	Target optional.Option[float64] `yaml:"target" json:"target"`
	// Reason is a human-readable rationale for the signal
	Reason string `yaml:"reason" json:"reason"`
}

// Validate checks structural validity plus the directional invariants:
// the stop-loss must worsen and the target must improve relative to the
// entry price for the signal's direction.
func (s *Signal) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSignal, "invalid signal", err)
	}

	switch s.Action {
	case SignalActionBuy:
		if s.StopLoss >= s.Price {
			return errors.Newf(errors.ErrCodeInvalidStopLoss,
				"buy stop-loss %.2f must be below entry %.2f", s.StopLoss, s.Price)
		}

		if s.Target.IsSome() && s.Target.Unwrap() <= s.Price {
			return errors.Newf(errors.ErrCodeInvalidTarget,
				"buy target %.2f must be above entry %.2f", s.Target.Unwrap(), s.Price)
		}
	case SignalActionSell:
		if s.StopLoss <= s.Price {
			return errors.Newf(errors.ErrCodeInvalidStopLoss,
				"sell stop-loss %.2f must be above entry %.2f", s.StopLoss, s.Price)
		}

		if s.Target.IsSome() && s.Target.Unwrap() >= s.Price {
			return errors.Newf(errors.ErrCodeInvalidTarget,
				"sell target %.2f must be below entry %.2f", s.Target.Unwrap(), s.Price)
		}
	}

	return nil
}
