package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/assetauction/auctionapi"
	"github.com/cloudx-io/assetauction/core"
	"github.com/cloudx-io/assetauction/memledger"
	"github.com/cloudx-io/assetauction/store"
)

const requestTimeout = 30 * time.Second

// AuctionServer hosts a single auction engine behind the request socket.
type AuctionServer struct {
	cfg      Config
	registry *memledger.Registry
	bank     *memledger.Bank
	store    *store.Store
	keys     *KeyManager
	receipts *ReceiptIssuer
	now      func() time.Time

	// opMu orders mutations with their bank funding and the persist that follows them.
	opMu sync.Mutex

	mu       sync.RWMutex
	engine   *core.Engine
	receipt  *auctionapi.SignedReceipt
	onEngine []func(*core.Engine)
}

func NewAuctionServer(cfg Config, registry *memledger.Registry, bank *memledger.Bank, st *store.Store, keys *KeyManager, attester EnclaveAttester) *AuctionServer {
	return &AuctionServer{
		cfg:      cfg,
		registry: registry,
		bank:     bank,
		store:    st,
		keys:     keys,
		receipts: NewReceiptIssuer(keys, attester),
		now:      time.Now,
	}
}

// OnEngine registers fn to run once the hosted engine exists, whether created or restored.
func (s *AuctionServer) OnEngine(fn func(*core.Engine)) {
	s.mu.Lock()
	e := s.engine
	s.onEngine = append(s.onEngine, fn)
	s.mu.Unlock()

	if e != nil {
		fn(e)
	}
}

// Resume restores the auction saved in the store, if any.
func (s *AuctionServer) Resume() error {
	ids, err := s.store.List()
	if err != nil {
		return fmt.Errorf("list stored auctions: %w", err)
	}
	switch len(ids) {
	case 0:
		log.Printf("INFO: No stored auction, waiting for create_request")
		return nil
	case 1:
	default:
		return fmt.Errorf("store holds %d auctions, expected at most one", len(ids))
	}

	rec, err := s.store.Load(ids[0])
	if err != nil {
		return err
	}
	e, err := core.Restore(s.cfg.Engine, rec, s.registry, s.bank.Payer(s.cfg.Engine.Escrow))
	if err != nil {
		return fmt.Errorf("restore auction %s: %w", ids[0], err)
	}

	log.Printf("INFO: Restored auction %s (%s, %d events)", e.ID(), e.Snapshot().State, len(rec.Events))
	s.setEngine(e)

	// Receipts are not persisted; a finalized auction gets a fresh one.
	if out, ok := e.Outcome(); ok && out.State != core.StateCancelled {
		if _, err := s.issueReceipt(e, out); err != nil {
			return fmt.Errorf("reissue receipt for auction %s: %w", e.ID(), err)
		}
	}
	return nil
}

func (s *AuctionServer) setEngine(e *core.Engine) {
	s.mu.Lock()
	s.engine = e
	hooks := append([]func(*core.Engine){}, s.onEngine...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(e)
	}
}

func (s *AuctionServer) currentEngine() *core.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

func (s *AuctionServer) lastReceipt() *auctionapi.SignedReceipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.receipt
}

// Start listens on the configured address and serves until ctx is done.
func (s *AuctionServer) Start(ctx context.Context) error {
	listener, err := s.listen()
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
	}()

	log.Printf("INFO: Auction server listening on %s", s.cfg.Listen)
	return s.Serve(listener)
}

func (s *AuctionServer) listen() (net.Listener, error) {
	network, addr, err := parseListen(s.cfg.Listen)
	if err != nil {
		return nil, err
	}

	if network == "vsock" {
		port, _ := strconv.ParseUint(addr, 10, 32)
		listener, err := vsock.Listen(uint32(port), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create vsock listener: %w", err)
		}
		return listener, nil
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create tcp listener: %w", err)
	}
	return listener, nil
}

// Serve accepts connections until the listener is closed.
func (s *AuctionServer) Serve(listener net.Listener) error {
	semaphore := make(chan struct{}, s.cfg.MaxWorkers)
	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", s.cfg.MaxWorkers)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("ERROR: Failed to accept connection: %v", err)
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }() // Release worker slot
				s.handleConnection(c)
			}(conn)
		default:
			log.Printf("INFO: No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				log.Printf("ERROR: Failed to close rejected connection: %v", err)
			}
		}
	}
}

func (s *AuctionServer) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in handleConnection: %v", r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: Failed to close connection: %v", err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(requestTimeout))

	var raw json.RawMessage
	if err := json.NewDecoder(conn).Decode(&raw); err != nil {
		log.Printf("ERROR: Failed to read request: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	response, reqType := s.dispatch(ctx, raw)

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(response); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	} else {
		log.Printf("INFO: Successfully sent response for %s", reqType)
	}
}

// dispatch decodes one request and routes it by its "type" field.
func (s *AuctionServer) dispatch(ctx context.Context, raw []byte) (any, string) {
	start := time.Now()

	var baseReq struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &baseReq); err != nil {
		log.Printf("ERROR: Failed to decode base request: %v", err)
		return map[string]any{
			"type":    "error",
			"message": fmt.Sprintf("Failed to decode request: %v", err),
		}, ""
	}

	log.Printf("INFO: Received request type: %s", baseReq.Type)

	var resp auctionapi.Response
	switch baseReq.Type {
	case auctionapi.TypePing:
		log.Printf("INFO: Responding to ping with pong")
		return map[string]any{
			"type":      "pong",
			"message":   "auction server is healthy",
			"timestamp": time.Now().Unix(),
		}, baseReq.Type

	case auctionapi.TypeCreate:
		var req auctionapi.CreateRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			resp = decodeFailure(baseReq.Type, err)
			break
		}
		resp = s.handleCreate(req)

	case auctionapi.TypeStart, auctionapi.TypeWithdraw, auctionapi.TypeFinalize, auctionapi.TypeCancel:
		var req auctionapi.CallerRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			resp = decodeFailure(baseReq.Type, err)
			break
		}
		resp = s.handleCaller(ctx, req)

	case auctionapi.TypeBid:
		var req auctionapi.BidRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			resp = decodeFailure(baseReq.Type, err)
			break
		}
		resp = s.handleBid(ctx, req)

	case auctionapi.TypeSnapshot:
		resp = s.handleSnapshot()

	case auctionapi.TypeEvents:
		var req auctionapi.EventsRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			resp = decodeFailure(baseReq.Type, err)
			break
		}
		resp = s.handleEvents(req)

	default:
		return map[string]any{
			"type":    "error",
			"message": fmt.Sprintf("Unknown request type: %s", baseReq.Type),
		}, baseReq.Type
	}

	resp.ProcessingTime = time.Since(start).Milliseconds()
	return resp, baseReq.Type
}
