package core

import (
	"time"
)

// ID returns the auction identifier.
func (e *Engine) ID() string {
	return e.id
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Snapshot returns a copy of the auction record.
func (e *Engine) Snapshot() Auction {
	e.mu.RLock()
	defer e.mu.RUnlock()

	a := e.auction
	a.Settling = e.pending != nil
	return a
}

// TimeRemaining returns how long bidding stays open, 0 once now reaches the end time.
func (e *Engine) TimeRemaining(now time.Time) time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !now.Before(e.auction.EndTime) {
		return 0
	}
	return e.auction.EndTime.Sub(now)
}

// IsActive reports whether the auction accepts bids at now.
func (e *Engine) IsActive(now time.Time) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.auction.State == StateActive && now.Before(e.auction.EndTime) && e.pending == nil
}

// IsEnded reports whether bidding has closed but the auction is not yet finalized.
func (e *Engine) IsEnded(now time.Time) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.auction.State == StateActive && !now.Before(e.auction.EndTime) && !e.auction.Finalized
}

// MinimumNextBid returns the smallest bid PlaceBid would accept, or 0 when the
// highest bid leaves no room for another increment.
func (e *Engine) MinimumNextBid() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	minimum, _ := MinimumBid(e.auction.HighestBid, e.auction.StartingPrice, e.auction.MinBidIncrement)
	return minimum
}

// ReserveMet reports whether the current highest bid satisfies the reserve.
func (e *Engine) ReserveMet() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return ReserveMet(e.auction.HighestBid, e.auction.ReservePrice)
}

// PendingReturn returns what the ledger owes who.
func (e *Engine) PendingReturn(who Address) int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.ledger.Balance(who)
}

// PendingReturns returns a copy of every non-zero ledger balance.
func (e *Engine) PendingReturns() map[Address]int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.ledger.Entries()
}

// TotalPendingReturns returns the ledger total.
func (e *Engine) TotalPendingReturns() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.ledger.Total()
}

// TotalDeposited returns the value of every bid ever accepted.
func (e *Engine) TotalDeposited() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.deposited
}

// Escrowed returns the value still held: deposits minus refunds, proceeds and fees paid.
func (e *Engine) Escrowed() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.deposited - e.paidOut
}

// HeldBid returns the part of the highest bid still held for settlement.
func (e *Engine) HeldBid() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.heldBid()
}

func (e *Engine) heldBid() int64 {
	if s := e.pending; s != nil {
		var held int64
		if !s.SellerPaid {
			held += s.SellerProceeds
		}
		if !s.FeePaid {
			held += s.PlatformFee
		}
		return held
	}
	if e.auction.Finalized || !e.auction.HasBidder() {
		return 0
	}
	return e.auction.HighestBid
}

// Outcome returns how the auction ended, or false while it is still open.
func (e *Engine) Outcome() (Outcome, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.outcome == nil {
		return Outcome{}, false
	}
	return *e.outcome, true
}

// Events returns the lifecycle events with Seq >= fromSeq.
func (e *Engine) Events(fromSeq uint64) []Event {
	return e.log.Since(fromSeq)
}

// EventHead returns the hash of the latest event.
func (e *Engine) EventHead() string {
	return e.log.Head()
}

// Subscribe streams events appended after the call. See EventLog.Subscribe.
func (e *Engine) Subscribe(buffer int) (<-chan Event, func()) {
	return e.log.Subscribe(buffer)
}

// DroppedEvents returns how many subscriber deliveries were skipped.
func (e *Engine) DroppedEvents() uint64 {
	return e.log.Dropped()
}
