package broker

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-runner/internal/logger"
	"github.com/rxtech-lab/argo-runner/internal/types"
)

// PaperGateway fills every order instantly at the requested price without
// touching a real broker.
type PaperGateway struct {
	logger *logger.Logger
}

func NewPaperGateway(log *logger.Logger) *PaperGateway {
	return &PaperGateway{logger: log.Named("paper")}
}

// PlaceOrder implements Gateway.
func (g *PaperGateway) PlaceOrder(_ context.Context, signal types.Signal, qty int64) (Fill, error) {
	fill := Fill{
		OrderID:  uuid.New().String(),
		Symbol:   signal.Symbol,
		Quantity: qty,
		Price:    signal.Price,
	}

	g.logger.Info("paper order filled",
		zap.String("symbol", signal.Symbol),
		zap.String("action", string(signal.Action)),
		zap.Int64("quantity", qty),
		zap.Float64("price", signal.Price))

	return fill, nil
}

// ExitOrder implements Gateway.
func (g *PaperGateway) ExitOrder(_ context.Context, pos *types.Position, price float64) (Fill, error) {
	return Fill{
		OrderID:  uuid.New().String(),
		Symbol:   pos.Symbol,
		Quantity: pos.Quantity,
		Price:    price,
	}, nil
}
