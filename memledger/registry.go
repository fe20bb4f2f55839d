package memledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudx-io/assetauction/core"
)

var (
	ErrUnknownAsset      = errors.New("unknown asset")
	ErrAssetExists       = errors.New("asset already minted")
	ErrWrongCustodian    = errors.New("asset belongs to another custodian")
	ErrNotHolder         = errors.New("sender does not hold asset")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Registry is an in-memory asset custodian: the system of record for who holds each asset.
type Registry struct {
	name string

	mu      sync.RWMutex
	holders map[string]core.Address
}

// NewRegistry returns an empty registry that answers for assets whose custodian is name.
func NewRegistry(name string) *Registry {
	return &Registry{
		name:    name,
		holders: make(map[string]core.Address),
	}
}

// Name returns the custodian identity of the registry.
func (r *Registry) Name() string {
	return r.name
}

// Mint registers a new asset held by holder.
func (r *Registry) Mint(assetID string, holder core.Address) (core.AssetRef, error) {
	if assetID == "" || holder == "" {
		return core.AssetRef{}, fmt.Errorf("mint %q to %q: asset id and holder are required", assetID, holder)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.holders[assetID]; ok {
		return core.AssetRef{}, fmt.Errorf("mint %s: %w", assetID, ErrAssetExists)
	}
	r.holders[assetID] = holder
	return core.AssetRef{Custodian: r.name, AssetID: assetID}, nil
}

// Transfer moves asset from to to. It fails unless from holds the asset.
func (r *Registry) Transfer(ctx context.Context, asset core.AssetRef, from, to core.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if asset.Custodian != r.name {
		return fmt.Errorf("transfer %s: %w", asset, ErrWrongCustodian)
	}
	if to == "" {
		return fmt.Errorf("transfer %s: empty recipient", asset)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	holder, ok := r.holders[asset.AssetID]
	if !ok {
		return fmt.Errorf("transfer %s: %w", asset, ErrUnknownAsset)
	}
	if holder != from {
		return fmt.Errorf("transfer %s from %s: %w (held by %s)", asset, from, ErrNotHolder, holder)
	}
	r.holders[asset.AssetID] = to
	return nil
}

// CurrentHolder reports who holds asset.
func (r *Registry) CurrentHolder(ctx context.Context, asset core.AssetRef) (core.Address, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if asset.Custodian != r.name {
		return "", fmt.Errorf("holder of %s: %w", asset, ErrWrongCustodian)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	holder, ok := r.holders[asset.AssetID]
	if !ok {
		return "", fmt.Errorf("holder of %s: %w", asset, ErrUnknownAsset)
	}
	return holder, nil
}

// Assets returns the ids of every minted asset, sorted.
func (r *Registry) Assets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.holders)
}
