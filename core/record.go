package core

import (
	"context"
	"fmt"
)

// Record is the durable form of an engine: everything needed to resume it after a restart.
type Record struct {
	Auction     Auction           `cbor:"auction"`
	Ledger      map[Address]int64 `cbor:"ledger"`
	Settlement  *settlement       `cbor:"settlement,omitempty"`
	Outcome     *Outcome          `cbor:"outcome,omitempty"`
	CustodyHeld bool              `cbor:"custody_held"`
	Deposited   int64             `cbor:"deposited"`
	PaidOut     int64             `cbor:"paid_out"`
	Events      []Event           `cbor:"events"`
}

// Export captures the engine's current state. It waits for any in-flight
// mutating operation so the record is never taken mid-operation, and must not
// be called from inside a collaborator callback; use ExportContext there.
func (e *Engine) Export() Record {
	rec, _ := e.ExportContext(context.Background())
	return rec
}

// ExportContext is Export that gives up when ctx is done and fails with
// ReentrantCall when ctx belongs to an operation of this engine.
func (e *Engine) ExportContext(ctx context.Context) (Record, error) {
	_, exit, err := e.enter(ctx)
	if err != nil {
		return Record{}, err
	}
	defer exit()

	return e.record(), nil
}

func (e *Engine) record() Record {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec := Record{
		Auction:     e.auction,
		Ledger:      e.ledger.Entries(),
		CustodyHeld: e.custodyHeld,
		Deposited:   e.deposited,
		PaidOut:     e.paidOut,
		Events:      e.log.Since(1),
	}
	rec.Auction.Settling = false
	if e.pending != nil {
		s := *e.pending
		rec.Settlement = &s
	}
	if e.outcome != nil {
		o := *e.outcome
		rec.Outcome = &o
	}
	return rec
}

// Restore rebuilds an engine from a record produced by Export.
// The event chain and value conservation are checked before the engine is returned.
func Restore(cfg Config, rec Record, custodian AssetCustodian, funds ValueTransfer) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if custodian == nil || funds == nil {
		return nil, fmt.Errorf("%w: asset custodian and value transfer are required", ErrInvalidParameters)
	}
	if rec.Auction.ID == "" {
		return nil, fmt.Errorf("%w: record has no auction id", ErrInvalidParameters)
	}
	if len(rec.Events) == 0 {
		return nil, fmt.Errorf("%w: record for %s has no events", ErrInvalidParameters, rec.Auction.ID)
	}
	for _, ev := range rec.Events {
		if ev.AuctionID != rec.Auction.ID {
			return nil, fmt.Errorf("%w: event %d belongs to auction %s", ErrInvalidParameters, ev.Seq, ev.AuctionID)
		}
	}
	if rec.Events[0].Seq != 1 {
		return nil, fmt.Errorf("%w: event log starts at %d", ErrInvalidParameters, rec.Events[0].Seq)
	}
	if err := VerifyEventChain("", rec.Events); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameters, err)
	}

	e := newEngine(cfg, custodian, funds)
	e.id = rec.Auction.ID
	e.auction = rec.Auction
	e.auction.Settling = false
	for who, amount := range rec.Ledger {
		if amount < 0 {
			return nil, fmt.Errorf("%w: negative pending return %d for %s", ErrInvalidParameters, amount, who)
		}
		e.ledger.Credit(who, amount)
	}
	if rec.Settlement != nil {
		s := *rec.Settlement
		e.pending = &s
	}
	if rec.Outcome != nil {
		o := *rec.Outcome
		e.outcome = &o
	}
	e.custodyHeld = rec.CustodyHeld
	e.deposited = rec.Deposited
	e.paidOut = rec.PaidOut

	history := make([]Event, len(rec.Events))
	copy(history, rec.Events)
	e.log = newEventLog(rec.Auction.ID, history)

	if held, owed := e.deposited-e.paidOut, e.ledger.Total()+e.heldBid(); held != owed {
		return nil, fmt.Errorf("%w: escrow holds %d but owes %d", ErrInvalidParameters, held, owed)
	}

	return e, nil
}
