package core

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Engine custodies one asset, takes bids on it and settles it exactly once.
//
// Mutating operations are serialised through a one-slot gate and each runs to
// completion before the next starts. State is always written before a
// collaborator is called and rolled back if that call fails. Read-only queries
// never take the gate, so they can be made from inside a collaborator callback.
//
// Re-entrancy is recognised through the context handed to collaborators. A
// collaborator that calls back on a context not derived from it waits on the
// gate like any other caller.
type Engine struct {
	id        string
	cfg       Config
	custodian AssetCustodian
	funds     ValueTransfer

	gate chan struct{}

	mu          sync.RWMutex
	auction     Auction
	ledger      *Ledger
	pending     *settlement
	outcome     *Outcome
	custodyHeld bool
	deposited   int64
	paidOut     int64

	log *EventLog
}

func newEngine(cfg Config, custodian AssetCustodian, funds ValueTransfer) *Engine {
	return &Engine{
		cfg:       cfg,
		custodian: custodian,
		funds:     funds,
		gate:      make(chan struct{}, 1),
		ledger:    NewLedger(),
	}
}

// NewAuction creates an auction in state Created. No asset or value moves;
// start and end times are derived from now.
func NewAuction(cfg Config, p Params, custodian AssetCustodian, funds ValueTransfer, now time.Time) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.validateParams(p); err != nil {
		return nil, err
	}
	if custodian == nil || funds == nil {
		return nil, fmt.Errorf("%w: asset custodian and value transfer are required", ErrInvalidParameters)
	}

	e := newEngine(cfg, custodian, funds)
	e.id = uuid.NewString()
	e.auction = Auction{
		ID:              e.id,
		Seller:          p.Seller,
		Asset:           p.Asset,
		StartingPrice:   p.StartingPrice,
		ReservePrice:    p.ReservePrice,
		MinBidIncrement: p.MinBidIncrement,
		StartTime:       now,
		EndTime:         now.Add(p.Duration),
		State:           StateCreated,
	}
	e.log = newEventLog(e.id, nil)
	e.log.append(Event{Type: EventCreated, Actor: p.Seller, Amount: p.StartingPrice, At: now})

	return e, nil
}

// enter takes the gate for one mutating operation. The returned context is the
// one to hand to collaborators; a call arriving on it is rejected as re-entrant.
func (e *Engine) enter(ctx context.Context) (context.Context, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.isInFlight(ctx) {
		return nil, nil, fmt.Errorf("%w: auction %s has an operation in progress", ErrReentrantCall, e.id)
	}

	select {
	case e.gate <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	return e.markInFlight(ctx), func() { <-e.gate }, nil
}

// Start moves the asset from the seller into escrow and opens bidding.
func (e *Engine) Start(ctx context.Context, caller Address) error {
	ctx, exit, err := e.enter(ctx)
	if err != nil {
		return err
	}
	defer exit()

	e.mu.RLock()
	a := e.auction
	e.mu.RUnlock()

	if caller != a.Seller {
		return fmt.Errorf("%w: only the seller can start the auction", ErrUnauthorized)
	}
	if a.State != StateCreated {
		return fmt.Errorf("%w: auction is %s", ErrAlreadyStarted, a.State)
	}

	holder, err := e.custodian.CurrentHolder(ctx, a.Asset)
	if err != nil {
		return fmt.Errorf("%w: query holder of %s: %w", ErrTransferFailed, a.Asset, err)
	}
	if holder != a.Seller {
		return fmt.Errorf("%w: %s is held by %s", ErrNotAssetOwner, a.Asset, holder)
	}

	e.mu.Lock()
	e.auction.State = StateActive
	e.custodyHeld = true
	e.mu.Unlock()

	if err := e.custodian.Transfer(ctx, a.Asset, a.Seller, e.cfg.Escrow); err != nil {
		e.mu.Lock()
		e.auction.State = StateCreated
		e.custodyHeld = false
		e.mu.Unlock()
		return fmt.Errorf("%w: move %s into escrow: %w", ErrTransferFailed, a.Asset, err)
	}

	e.log.append(Event{Type: EventStarted, Actor: caller, At: e.cfg.now()})
	return nil
}

// PlaceBid records amount, already attached to the call by caller, as the new highest bid.
// The outbid bidder is credited in the ledger; no value moves here.
func (e *Engine) PlaceBid(ctx context.Context, caller Address, amount int64, now time.Time) error {
	_, exit, err := e.enter(ctx)
	if err != nil {
		return err
	}
	defer exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	a := &e.auction
	if a.State != StateActive {
		return fmt.Errorf("%w: auction is %s", ErrAuctionNotActive, a.State)
	}
	if !now.Before(a.EndTime) || e.pending != nil {
		return fmt.Errorf("%w: bidding closed at %s", ErrAuctionEnded, a.EndTime.Format(time.RFC3339))
	}
	if caller == "" || caller == e.cfg.Escrow {
		return fmt.Errorf("%w: invalid bidder %q", ErrUnauthorized, caller)
	}
	if caller == a.Seller {
		return fmt.Errorf("%w: %s is the seller", ErrSellerCannotBid, caller)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount %d", ErrZeroBid, amount)
	}
	minimum, ok := MinimumBid(a.HighestBid, a.StartingPrice, a.MinBidIncrement)
	if !ok {
		return fmt.Errorf("%w: no bid can exceed %d by the increment %d", ErrBidTooLow, a.HighestBid, a.MinBidIncrement)
	}
	if amount < minimum {
		return fmt.Errorf("%w: bid %d below minimum %d", ErrBidTooLow, amount, minimum)
	}
	if e.deposited > math.MaxInt64-amount {
		return fmt.Errorf("%w: total deposits would exceed %d", ErrInvalidParameters, int64(math.MaxInt64))
	}

	outbid := a.HighestBidder
	if outbid != "" {
		e.ledger.Credit(outbid, a.HighestBid)
	}
	a.HighestBidder = caller
	a.HighestBid = amount
	a.BidCount++
	e.deposited += amount

	e.log.append(Event{Type: EventBidPlaced, Actor: caller, Counterparty: outbid, Amount: amount, At: now})
	return nil
}

// WithdrawRefund pays caller everything the ledger owes them.
func (e *Engine) WithdrawRefund(ctx context.Context, caller Address) (int64, error) {
	ctx, exit, err := e.enter(ctx)
	if err != nil {
		return 0, err
	}
	defer exit()

	e.mu.Lock()
	amount := e.ledger.Take(caller)
	if amount > 0 {
		e.paidOut += amount
	}
	e.mu.Unlock()

	if amount == 0 {
		return 0, fmt.Errorf("%w: no pending return for %s", ErrNothingToWithdraw, caller)
	}

	if err := e.funds.Pay(ctx, caller, amount); err != nil {
		e.mu.Lock()
		e.ledger.Credit(caller, amount)
		e.paidOut -= amount
		e.mu.Unlock()
		return 0, fmt.Errorf("%w: refund %d to %s: %w", ErrTransferFailed, amount, caller, err)
	}

	e.log.append(Event{Type: EventRefundWithdrawn, Actor: caller, Amount: amount, At: e.cfg.now()})
	return amount, nil
}

// Finalize settles the auction once bidding has closed. Anyone may call it.
//
// When the reserve is met the winning price is split and the asset, proceeds
// and fee are delivered in that order. The split is computed once; if a delivery
// fails the call returns ErrTransferFailed and a later Finalize resumes with the
// first undelivered step. Otherwise the asset goes back to the seller and the
// highest bidder, if any, is credited in the ledger.
func (e *Engine) Finalize(ctx context.Context, caller Address, now time.Time) (*Outcome, error) {
	ctx, exit, err := e.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer exit()

	e.mu.Lock()
	a := e.auction
	switch {
	case a.Finalized:
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: auction is %s", ErrAlreadyFinalized, a.State)
	case a.State != StateActive:
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: auction is %s", ErrAuctionNotActive, a.State)
	case e.pending == nil && now.Before(a.EndTime):
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: bidding closes at %s", ErrAuctionNotEnded, a.EndTime.Format(time.RFC3339))
	}

	if e.pending == nil && a.HasBidder() && ReserveMet(a.HighestBid, a.ReservePrice) {
		fee, proceeds := SplitProceeds(a.HighestBid, e.cfg.FeeBPS)
		e.pending = &settlement{
			Winner:         a.HighestBidder,
			Price:          a.HighestBid,
			PlatformFee:    fee,
			SellerProceeds: proceeds,
			SellerPaid:     proceeds == 0,
			FeePaid:        fee == 0,
		}
	}
	settling := e.pending != nil
	e.mu.Unlock()

	if settling {
		return e.settleSuccessful(ctx, caller, now)
	}
	return e.settleFailed(ctx, caller, now)
}

func (e *Engine) settleSuccessful(ctx context.Context, caller Address, now time.Time) (*Outcome, error) {
	e.mu.RLock()
	s := *e.pending
	a := e.auction
	e.mu.RUnlock()

	if !s.AssetDelivered {
		e.mu.Lock()
		e.pending.AssetDelivered = true
		e.custodyHeld = false
		e.mu.Unlock()

		if err := e.custodian.Transfer(ctx, a.Asset, e.cfg.Escrow, s.Winner); err != nil {
			e.mu.Lock()
			e.pending.AssetDelivered = false
			e.custodyHeld = true
			e.mu.Unlock()
			return nil, fmt.Errorf("%w: deliver %s to %s: %w", ErrTransferFailed, a.Asset, s.Winner, err)
		}
	}

	if !s.SellerPaid {
		if err := e.payStep(ctx, a.Seller, s.SellerProceeds, func(p *settlement) *bool { return &p.SellerPaid }); err != nil {
			return nil, fmt.Errorf("%w: pay proceeds %d to %s: %w", ErrTransferFailed, s.SellerProceeds, a.Seller, err)
		}
	}

	if !s.FeePaid {
		if err := e.payStep(ctx, e.cfg.FeeRecipient, s.PlatformFee, func(p *settlement) *bool { return &p.FeePaid }); err != nil {
			return nil, fmt.Errorf("%w: pay fee %d to %s: %w", ErrTransferFailed, s.PlatformFee, e.cfg.FeeRecipient, err)
		}
	}

	e.mu.Lock()
	outcome := e.pending.outcome()
	e.auction.State = StateSuccessful
	e.auction.Finalized = true
	e.outcome = outcome
	e.pending = nil
	e.mu.Unlock()

	e.log.append(Event{
		Type:         EventFinalized,
		Actor:        caller,
		Counterparty: outcome.Winner,
		Amount:       outcome.Price,
		Outcome:      StateSuccessful,
		At:           now,
	})

	result := *outcome
	return &result, nil
}

// payStep marks one payout step done, pays, and unmarks it if the payment fails.
func (e *Engine) payStep(ctx context.Context, to Address, amount int64, step func(*settlement) *bool) error {
	e.mu.Lock()
	*step(e.pending) = true
	e.paidOut += amount
	e.mu.Unlock()

	if err := e.funds.Pay(ctx, to, amount); err != nil {
		e.mu.Lock()
		*step(e.pending) = false
		e.paidOut -= amount
		e.mu.Unlock()
		return err
	}
	return nil
}

func (e *Engine) settleFailed(ctx context.Context, caller Address, now time.Time) (*Outcome, error) {
	e.mu.Lock()
	prev := e.auction
	held := e.custodyHeld
	e.auction.State = StateFailed
	e.auction.Finalized = true
	e.custodyHeld = false
	if prev.HasBidder() {
		e.ledger.Credit(prev.HighestBidder, prev.HighestBid)
	}
	e.mu.Unlock()

	if held {
		if err := e.custodian.Transfer(ctx, prev.Asset, e.cfg.Escrow, prev.Seller); err != nil {
			e.mu.Lock()
			e.auction = prev
			e.custodyHeld = true
			if prev.HasBidder() {
				e.ledger.debit(prev.HighestBidder, prev.HighestBid)
			}
			e.mu.Unlock()
			return nil, fmt.Errorf("%w: return %s to %s: %w", ErrTransferFailed, prev.Asset, prev.Seller, err)
		}
	}

	outcome := &Outcome{State: StateFailed}
	e.mu.Lock()
	e.outcome = outcome
	e.mu.Unlock()

	e.log.append(Event{Type: EventFinalized, Actor: caller, Outcome: StateFailed, At: now})

	result := *outcome
	return &result, nil
}

// Cancel withdraws an auction that has received no bids, returning the asset
// to the seller if it is in escrow.
func (e *Engine) Cancel(ctx context.Context, caller Address) error {
	ctx, exit, err := e.enter(ctx)
	if err != nil {
		return err
	}
	defer exit()

	e.mu.Lock()
	prev := e.auction
	switch {
	case caller != prev.Seller:
		e.mu.Unlock()
		return fmt.Errorf("%w: only the seller can cancel the auction", ErrUnauthorized)
	case prev.State != StateCreated && prev.State != StateActive, prev.Finalized, e.pending != nil:
		e.mu.Unlock()
		return fmt.Errorf("%w: auction is %s", ErrCannotCancel, prev.State)
	case prev.HasBidder():
		e.mu.Unlock()
		return fmt.Errorf("%w: highest bid %d by %s", ErrBidsAlreadyPlaced, prev.HighestBid, prev.HighestBidder)
	}

	held := e.custodyHeld
	e.auction.State = StateCancelled
	e.auction.Finalized = true
	e.custodyHeld = false
	e.mu.Unlock()

	if held {
		if err := e.custodian.Transfer(ctx, prev.Asset, e.cfg.Escrow, prev.Seller); err != nil {
			e.mu.Lock()
			e.auction = prev
			e.custodyHeld = true
			e.mu.Unlock()
			return fmt.Errorf("%w: return %s to %s: %w", ErrTransferFailed, prev.Asset, prev.Seller, err)
		}
	}

	e.mu.Lock()
	e.outcome = &Outcome{State: StateCancelled}
	e.mu.Unlock()

	e.log.append(Event{Type: EventCancelled, Actor: caller, At: e.cfg.now()})
	return nil
}
