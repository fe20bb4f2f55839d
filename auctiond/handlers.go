package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudx-io/assetauction/auctionapi"
	"github.com/cloudx-io/assetauction/core"
	"github.com/cloudx-io/assetauction/memledger"
)

var errNoAuction = fmt.Errorf("%w: no auction has been created", core.ErrAuctionNotActive)

func responseType(requestType string) string {
	return strings.TrimSuffix(requestType, "_request") + "_response"
}

func success(requestType, message string) auctionapi.Response {
	return auctionapi.Response{Type: responseType(requestType), Success: true, Message: message}
}

func failure(requestType string, err error) auctionapi.Response {
	log.Printf("ERROR: %s failed: %v", requestType, err)
	return auctionapi.Response{
		Type:      responseType(requestType),
		Message:   err.Error(),
		ErrorKind: core.KindOf(err),
	}
}

func decodeFailure(requestType string, err error) auctionapi.Response {
	return failure(requestType, fmt.Errorf("%w: failed to decode request: %v", core.ErrInvalidParameters, err))
}

func (s *AuctionServer) handleCreate(req auctionapi.CreateRequest) auctionapi.Response {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.engine != nil {
		id := s.engine.ID()
		s.mu.Unlock()
		return failure(req.Type, fmt.Errorf("%w: auction %s already exists", core.ErrInvalidParameters, id))
	}

	e, err := core.NewAuction(s.cfg.Engine, req.Params(), s.registry, s.bank.Payer(s.cfg.Engine.Escrow), s.now())
	if err != nil {
		s.mu.Unlock()
		return failure(req.Type, err)
	}
	s.engine = e
	hooks := append([]func(*core.Engine){}, s.onEngine...)
	s.mu.Unlock()

	s.persist(e)
	for _, fn := range hooks {
		fn(e)
	}
	log.Printf("INFO: Created auction %s for %s", e.ID(), req.Asset)

	resp := success(req.Type, "auction created")
	snapshot := e.Snapshot()
	resp.Auction = &snapshot
	resp.MinimumNextBid = e.MinimumNextBid()
	return resp
}

func (s *AuctionServer) handleCaller(ctx context.Context, req auctionapi.CallerRequest) auctionapi.Response {
	e := s.currentEngine()
	if e == nil {
		return failure(req.Type, errNoAuction)
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()
	defer s.persist(e)

	switch req.Type {
	case auctionapi.TypeStart:
		if err := e.Start(ctx, req.Caller); err != nil {
			return failure(req.Type, err)
		}
		log.Printf("INFO: Auction %s started by %s", e.ID(), req.Caller)
		resp := success(req.Type, "auction started")
		snapshot := e.Snapshot()
		resp.Auction = &snapshot
		return resp

	case auctionapi.TypeWithdraw:
		amount, err := e.WithdrawRefund(ctx, req.Caller)
		if err != nil {
			return failure(req.Type, err)
		}
		log.Printf("INFO: Refund of %d withdrawn by %s", amount, req.Caller)
		resp := success(req.Type, "refund withdrawn")
		resp.Amount = amount
		return resp

	case auctionapi.TypeFinalize:
		return s.finalize(ctx, e, req)

	default:
		if err := e.Cancel(ctx, req.Caller); err != nil {
			return failure(req.Type, err)
		}
		log.Printf("INFO: Auction %s cancelled by %s", e.ID(), req.Caller)
		resp := success(req.Type, "auction cancelled")
		snapshot := e.Snapshot()
		resp.Auction = &snapshot
		return resp
	}
}

func (s *AuctionServer) finalize(ctx context.Context, e *core.Engine, req auctionapi.CallerRequest) auctionapi.Response {
	out, err := e.Finalize(ctx, req.Caller, s.now())
	if err != nil {
		return failure(req.Type, err)
	}
	log.Printf("INFO: Auction %s finalized as %s (price %d, fee %d)", e.ID(), out.State, out.Price, out.PlatformFee)

	resp := success(req.Type, "auction finalized")
	resp.Outcome = out
	snapshot := e.Snapshot()
	resp.Auction = &snapshot

	receipt, err := s.issueReceipt(e, *out)
	if err != nil {
		resp.Message = fmt.Sprintf("auction finalized; receipt unavailable: %v", err)
		return resp
	}
	resp.Receipt = receipt
	return resp
}

// issueReceipt signs the receipt for a finalized engine and keeps it for snapshot requests.
func (s *AuctionServer) issueReceipt(e *core.Engine, out core.Outcome) (*auctionapi.SignedReceipt, error) {
	receipt, err := s.receipts.Issue(auctionapi.NewReceipt(e.Snapshot(), out, e.Config(), e.EventHead(), s.now()))
	if err != nil {
		log.Printf("ERROR: Failed to issue receipt for auction %s: %v", e.ID(), err)
		return nil, err
	}

	s.mu.Lock()
	s.receipt = receipt
	s.mu.Unlock()
	return receipt, nil
}

// handleBid moves the bid amount into escrow before the engine sees it and
// returns it to the bidder if the bid is rejected.
func (s *AuctionServer) handleBid(ctx context.Context, req auctionapi.BidRequest) auctionapi.Response {
	e := s.currentEngine()
	if e == nil {
		return failure(req.Type, errNoAuction)
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	escrow := s.cfg.Engine.Escrow
	funded := req.Amount > 0 && req.Caller != escrow
	if funded {
		if err := s.bank.Transfer(ctx, req.Caller, escrow, req.Amount); err != nil {
			return failure(req.Type, fmt.Errorf("%w: fund bid of %d from %s: %w", core.ErrTransferFailed, req.Amount, req.Caller, err))
		}
	}
	defer s.persist(e)

	if err := e.PlaceBid(ctx, req.Caller, req.Amount, s.now()); err != nil {
		if funded {
			// The engine never took the deposit, so it is returned outside the engine's ledger.
			if rerr := s.bank.Transfer(context.Background(), escrow, req.Caller, req.Amount); rerr != nil {
				log.Printf("ERROR: Failed to return rejected bid deposit of %d to %s: %v", req.Amount, req.Caller, rerr)
			}
		}
		return failure(req.Type, err)
	}

	log.Printf("INFO: Bid of %d accepted from %s", req.Amount, req.Caller)
	resp := success(req.Type, "bid accepted")
	snapshot := e.Snapshot()
	resp.Auction = &snapshot
	resp.MinimumNextBid = e.MinimumNextBid()
	return resp
}

func (s *AuctionServer) handleSnapshot() auctionapi.Response {
	e := s.currentEngine()
	if e == nil {
		return failure(auctionapi.TypeSnapshot, errNoAuction)
	}

	resp := success(auctionapi.TypeSnapshot, "")
	snapshot := e.Snapshot()
	resp.Auction = &snapshot
	resp.MinimumNextBid = e.MinimumNextBid()
	if out, ok := e.Outcome(); ok {
		resp.Outcome = &out
	}
	resp.Receipt = s.lastReceipt()
	return resp
}

func (s *AuctionServer) handleEvents(req auctionapi.EventsRequest) auctionapi.Response {
	e := s.currentEngine()
	if e == nil {
		return failure(req.Type, errNoAuction)
	}

	resp := success(req.Type, "")
	resp.Events = e.Events(req.FromSeq)
	return resp
}

// persist saves the engine record together with the collaborator state.
// Callers hold opMu so the saved pair matches a single point in the request order.
func (s *AuctionServer) persist(e *core.Engine) {
	if err := s.store.SaveWithLedger(e.Export(), memledger.Capture(s.registry, s.bank)); err != nil {
		log.Printf("ERROR: Failed to persist auction %s: %v", e.ID(), err)
	}
}
