package core

import (
	"time"
)

// Address identifies a party: seller, bidder, fee recipient or the engine's escrow account.
type Address string

// AssetRef names the single item under auction at its custodian.
type AssetRef struct {
	Custodian string `json:"custodian" cbor:"custodian"`
	AssetID   string `json:"asset_id" cbor:"asset_id"`
}

// IsZero reports whether the reference is empty.
func (a AssetRef) IsZero() bool {
	return a.Custodian == "" || a.AssetID == ""
}

func (a AssetRef) String() string {
	return a.Custodian + "/" + a.AssetID
}

// State is the persisted lifecycle state. "Ended" is never stored, see IsEnded.
type State string

const (
	StateCreated    State = "created"
	StateActive     State = "active"
	StateSuccessful State = "successful"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// IsTerminal reports whether the state is one of the absorbing states.
func (s State) IsTerminal() bool {
	return s == StateSuccessful || s == StateFailed || s == StateCancelled
}

// Params are the economic parameters fixed at creation.
type Params struct {
	Seller          Address       `json:"seller"`
	Asset           AssetRef      `json:"asset"`
	StartingPrice   int64         `json:"starting_price"`
	ReservePrice    int64         `json:"reserve_price"` // 0 disables the reserve
	MinBidIncrement int64         `json:"min_bid_increment"`
	Duration        time.Duration `json:"duration"`
}

// Auction is a point-in-time snapshot of the engine's record.
type Auction struct {
	ID              string    `json:"id" cbor:"id"`
	Seller          Address   `json:"seller" cbor:"seller"`
	Asset           AssetRef  `json:"asset" cbor:"asset"`
	StartingPrice   int64     `json:"starting_price" cbor:"starting_price"`
	ReservePrice    int64     `json:"reserve_price" cbor:"reserve_price"`
	MinBidIncrement int64     `json:"min_bid_increment" cbor:"min_bid_increment"`
	StartTime       time.Time `json:"start_time" cbor:"start_time"`
	EndTime         time.Time `json:"end_time" cbor:"end_time"`

	HighestBidder Address `json:"highest_bidder,omitempty" cbor:"highest_bidder"`
	HighestBid    int64   `json:"highest_bid" cbor:"highest_bid"`
	BidCount      int     `json:"bid_count" cbor:"bid_count"`

	State     State `json:"state" cbor:"state"`
	Finalized bool  `json:"finalized" cbor:"finalized"`

	// Settling is true while a successful settlement has been computed but not fully paid out.
	Settling bool `json:"settling" cbor:"-"`
}

// HasBidder reports whether any bid has been accepted.
func (a Auction) HasBidder() bool {
	return a.HighestBidder != ""
}

// Outcome describes how an auction was finalized.
type Outcome struct {
	State          State   `json:"state"`
	Winner         Address `json:"winner,omitempty"`
	Price          int64   `json:"price"`
	PlatformFee    int64   `json:"platform_fee"`
	SellerProceeds int64   `json:"seller_proceeds"`
}

// settlement is the latched, possibly partially executed, successful payout.
type settlement struct {
	Winner         Address `cbor:"winner"`
	Price          int64   `cbor:"price"`
	PlatformFee    int64   `cbor:"platform_fee"`
	SellerProceeds int64   `cbor:"seller_proceeds"`

	AssetDelivered bool `cbor:"asset_delivered"`
	SellerPaid     bool `cbor:"seller_paid"`
	FeePaid        bool `cbor:"fee_paid"`
}

func (s *settlement) outcome() *Outcome {
	return &Outcome{
		State:          StateSuccessful,
		Winner:         s.Winner,
		Price:          s.Price,
		PlatformFee:    s.PlatformFee,
		SellerProceeds: s.SellerProceeds,
	}
}
