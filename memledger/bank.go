package memledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudx-io/assetauction/core"
)

// Bank holds fungible balances in minor units.
type Bank struct {
	mu       sync.RWMutex
	balances map[core.Address]int64
}

func NewBank() *Bank {
	return &Bank{balances: make(map[core.Address]int64)}
}

// Deposit mints amount into who's account.
func (b *Bank) Deposit(who core.Address, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("deposit %d to %s: %w", amount, who, ErrInvalidAmount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.balances[who] += amount
	return nil
}

// Transfer moves amount from one account to another.
func (b *Bank) Transfer(ctx context.Context, from, to core.Address, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("transfer %d from %s: %w", amount, from, ErrInvalidAmount)
	}
	if to == "" {
		return fmt.Errorf("transfer %d from %s: empty recipient", amount, from)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.balances[from] < amount {
		return fmt.Errorf("transfer %d from %s (balance %d): %w", amount, from, b.balances[from], ErrInsufficientFunds)
	}
	b.balances[from] -= amount
	b.balances[to] += amount
	return nil
}

func (b *Bank) Balance(who core.Address) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[who]
}

// Total returns the sum of all balances. Transfers never change it.
func (b *Bank) Total() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var total int64
	for _, amount := range b.balances {
		total += amount
	}
	return total
}

// Payer returns a value transfer that pays out of account from.
func (b *Bank) Payer(from core.Address) *Payer {
	return &Payer{bank: b, from: from}
}

// Payer pays out of one bank account. It implements core.ValueTransfer.
type Payer struct {
	bank *Bank
	from core.Address
}

func (p *Payer) Pay(ctx context.Context, to core.Address, amount int64) error {
	return p.bank.Transfer(ctx, p.from, to, amount)
}
