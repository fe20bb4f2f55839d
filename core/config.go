package core

import (
	"fmt"
	"time"
)

const (
	DefaultMinDuration = time.Hour
	DefaultMaxDuration = 30 * 24 * time.Hour
	DefaultFeeBPS      = 250
)

// Config is the deployment-wide configuration shared by every auction an operator runs.
type Config struct {
	// Escrow is the engine's own custody identity.
	Escrow Address
	// FeeRecipient receives the platform fee on successful settlement.
	FeeRecipient Address
	// FeeBPS is the platform fee in basis points of the winning bid.
	FeeBPS      uint32
	MinDuration time.Duration
	MaxDuration time.Duration

	// Now timestamps events of operations that take no clock argument.
	// Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns a Config with the default fee and duration bounds.
func DefaultConfig(escrow, feeRecipient Address) Config {
	return Config{
		Escrow:       escrow,
		FeeRecipient: feeRecipient,
		FeeBPS:       DefaultFeeBPS,
		MinDuration:  DefaultMinDuration,
		MaxDuration:  DefaultMaxDuration,
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.Escrow == "" {
		return fmt.Errorf("%w: escrow address is empty", ErrInvalidParameters)
	}
	if c.FeeRecipient == "" {
		return fmt.Errorf("%w: fee recipient is empty", ErrInvalidParameters)
	}
	if c.FeeBPS > BPSDenominator {
		return fmt.Errorf("%w: fee %d bps exceeds %d", ErrInvalidParameters, c.FeeBPS, BPSDenominator)
	}
	if c.MinDuration <= 0 {
		return fmt.Errorf("%w: min duration %s must be positive", ErrInvalidParameters, c.MinDuration)
	}
	if c.MaxDuration < c.MinDuration {
		return fmt.Errorf("%w: max duration %s below min duration %s", ErrInvalidParameters, c.MaxDuration, c.MinDuration)
	}
	return nil
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// validateParams applies the creation rules to p.
func (c Config) validateParams(p Params) error {
	if p.Seller == "" {
		return fmt.Errorf("%w: seller is empty", ErrInvalidParameters)
	}
	if p.Seller == c.Escrow {
		return fmt.Errorf("%w: seller cannot be the escrow account", ErrInvalidParameters)
	}
	if p.Asset.IsZero() {
		return fmt.Errorf("%w: asset reference is empty", ErrInvalidParameters)
	}
	if p.StartingPrice <= 0 {
		return fmt.Errorf("%w: starting price %d must be positive", ErrInvalidParameters, p.StartingPrice)
	}
	if p.MinBidIncrement <= 0 {
		return fmt.Errorf("%w: min bid increment %d must be positive", ErrInvalidParameters, p.MinBidIncrement)
	}
	if p.ReservePrice < 0 {
		return fmt.Errorf("%w: reserve price %d is negative", ErrInvalidParameters, p.ReservePrice)
	}
	if p.ReservePrice > 0 && p.ReservePrice < p.StartingPrice {
		return fmt.Errorf("%w: reserve price %d below starting price %d", ErrInvalidParameters, p.ReservePrice, p.StartingPrice)
	}
	if p.Duration < c.MinDuration || p.Duration > c.MaxDuration {
		return fmt.Errorf("%w: duration %s outside [%s, %s]", ErrInvalidParameters, p.Duration, c.MinDuration, c.MaxDuration)
	}
	return nil
}
