package auctionapi

import (
	"time"

	"github.com/cloudx-io/assetauction/core"
)

// Request types accepted on the engine socket. Each connection carries one JSON
// request whose "type" field selects the handler.
const (
	TypePing     = "ping"
	TypeCreate   = "create_request"
	TypeStart    = "start_request"
	TypeBid      = "bid_request"
	TypeWithdraw = "withdraw_request"
	TypeFinalize = "finalize_request"
	TypeCancel   = "cancel_request"
	TypeSnapshot = "snapshot_request"
	TypeEvents   = "events_request"
)

// CreateRequest creates the auction hosted by the daemon.
type CreateRequest struct {
	Type            string        `json:"type"`
	Seller          core.Address  `json:"seller"`
	Asset           core.AssetRef `json:"asset"`
	StartingPrice   int64         `json:"starting_price"`
	ReservePrice    int64         `json:"reserve_price"`
	MinBidIncrement int64         `json:"min_bid_increment"`
	DurationSeconds int64         `json:"duration_seconds"`
}

// Params converts the request to engine parameters.
func (r CreateRequest) Params() core.Params {
	return core.Params{
		Seller:          r.Seller,
		Asset:           r.Asset,
		StartingPrice:   r.StartingPrice,
		ReservePrice:    r.ReservePrice,
		MinBidIncrement: r.MinBidIncrement,
		Duration:        time.Duration(r.DurationSeconds) * time.Second,
	}
}

// CallerRequest is the shape of start, withdraw, finalize and cancel requests.
type CallerRequest struct {
	Type   string       `json:"type"`
	Caller core.Address `json:"caller"`
}

// BidRequest places a bid of Amount, funded from the caller's bank account.
type BidRequest struct {
	Type   string       `json:"type"`
	Caller core.Address `json:"caller"`
	Amount int64        `json:"amount"`
}

// EventsRequest reads the event log from FromSeq onward.
type EventsRequest struct {
	Type    string `json:"type"`
	FromSeq uint64 `json:"from_seq"`
}

// Response is returned for every request. Payload fields are set by the
// request types that produce them.
type Response struct {
	Type      string    `json:"type"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	ErrorKind core.Kind `json:"error_kind,omitempty"`

	Auction        *core.Auction  `json:"auction,omitempty"`
	MinimumNextBid int64          `json:"minimum_next_bid,omitempty"`
	Outcome        *core.Outcome  `json:"outcome,omitempty"`
	Amount         int64          `json:"amount,omitempty"`
	Events         []core.Event   `json:"events,omitempty"`
	Receipt        *SignedReceipt `json:"receipt,omitempty"`

	ProcessingTime int64 `json:"processing_time_ms"`
}

// SignedReceipt carries a COSE_Sign1 settlement receipt in the encodings clients need.
type SignedReceipt struct {
	COSE        COSEBase64 `json:"cose"`
	COSEGzip    COSEGzip   `json:"cose_gzip"`
	Attestation COSEBase64 `json:"attestation,omitempty"`
}

// PublicKeyResponse is served by the HTTP API so receipts can be verified offline.
type PublicKeyResponse struct {
	Algorithm string `json:"algorithm"`
	PublicKey string `json:"public_key"` // PEM
}
