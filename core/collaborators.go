package core

import (
	"context"
)

// AssetCustodian is the system of record for who holds the auctioned item.
type AssetCustodian interface {
	// Transfer moves the asset. It fails if from is not the current holder.
	Transfer(ctx context.Context, asset AssetRef, from, to Address) error
	// CurrentHolder reports who holds the asset now.
	CurrentHolder(ctx context.Context, asset AssetRef) (Address, error)
}

// ValueTransfer pays out of the engine's escrow account.
// A non-nil error is always treated as a hard failure of the calling operation.
type ValueTransfer interface {
	Pay(ctx context.Context, to Address, amount int64) error
}

// inFlightKey marks contexts handed to collaborators while an operation of engine e runs.
type inFlightKey struct {
	e *Engine
}

func (e *Engine) markInFlight(ctx context.Context) context.Context {
	return context.WithValue(ctx, inFlightKey{e: e}, true)
}

func (e *Engine) isInFlight(ctx context.Context) bool {
	v, _ := ctx.Value(inFlightKey{e: e}).(bool)
	return v
}
