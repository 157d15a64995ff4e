// Package broker is the boundary to order execution. The engine only ever
// talks to the Gateway interface; live implementations wrap a vendor API.
package broker

import (
	"context"

	"github.com/rxtech-lab/argo-runner/internal/types"
)

// Fill is the broker's confirmation of an executed order.
type Fill struct {
	OrderID  string
	Symbol   string
	Quantity int64
	Price    float64
}

// Gateway places orders with a broker. Implementations must be safe for
// concurrent use.
type Gateway interface {
	// PlaceOrder submits a sized entry order and returns the fill.
	PlaceOrder(ctx context.Context, signal types.Signal, qty int64) (Fill, error)
	// ExitOrder submits the closing order for an open position.
	ExitOrder(ctx context.Context, pos *types.Position, price float64) (Fill, error)
}
