package core

import (
	"sort"
)

// Ledger is the pending-returns ledger: value owed to each bidder, withdrawn on request.
// Ledger is not safe for concurrent use; the engine guards it.
type Ledger struct {
	balances map[Address]int64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[Address]int64)}
}

// Credit adds amount to who's balance. Entries are additive.
func (l *Ledger) Credit(who Address, amount int64) {
	if amount <= 0 {
		return
	}
	l.balances[who] += amount
}

// Balance returns who's owed amount.
func (l *Ledger) Balance(who Address) int64 {
	return l.balances[who]
}

// Take zeroes who's balance and returns what it was.
func (l *Ledger) Take(who Address) int64 {
	amount := l.balances[who]
	delete(l.balances, who)
	return amount
}

// debit reverses a Credit that was never observable by a withdrawal.
func (l *Ledger) debit(who Address, amount int64) {
	l.balances[who] -= amount
	if l.balances[who] <= 0 {
		delete(l.balances, who)
	}
}

// Total returns the sum of all balances.
func (l *Ledger) Total() int64 {
	var total int64
	for _, amount := range l.balances {
		total += amount
	}
	return total
}

// Entries returns a copy of the non-zero balances.
func (l *Ledger) Entries() map[Address]int64 {
	out := make(map[Address]int64, len(l.balances))
	for who, amount := range l.balances {
		out[who] = amount
	}
	return out
}

// Holders returns the addresses with a non-zero balance, sorted.
func (l *Ledger) Holders() []Address {
	holders := make([]Address, 0, len(l.balances))
	for who := range l.balances {
		holders = append(holders, who)
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i] < holders[j] })
	return holders
}
