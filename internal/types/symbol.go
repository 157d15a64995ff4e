package types

import (
	"github.com/go-playground/validator/v10"

	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

// Symbol describes one tradable instrument from the broker master list.
// Symbols are immutable once loaded and are looked up by (segment, name).
type Symbol struct {
	Name     string  `yaml:"name" json:"name" csv:"name" validate:"required"`
	Segment  string  `yaml:"segment" json:"segment" csv:"segment" validate:"required"`
	Exchange string  `yaml:"exchange" json:"exchange" csv:"exchange"`
	Token    string  `yaml:"token" json:"token" csv:"token"`
	LotSize  int64   `yaml:"lot_size" json:"lot_size" csv:"lot_size" validate:"required,gt=0"`
	TickSize float64 `yaml:"tick_size" json:"tick_size" csv:"tick_size" validate:"gte=0"`
}

// Validate validates the Symbol struct.
func (s *Symbol) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid symbol", err)
	}

	return nil
}
