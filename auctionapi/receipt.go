package auctionapi

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/assetauction/core"
)

// Receipt is the signed statement of how an auction was finalized.
// It is the CBOR payload of a COSE_Sign1 message.
type Receipt struct {
	AuctionID      string        `cbor:"auction_id" json:"auction_id"`
	Outcome        core.State    `cbor:"outcome" json:"outcome"`
	Seller         core.Address  `cbor:"seller" json:"seller"`
	Asset          core.AssetRef `cbor:"asset" json:"asset"`
	Winner         core.Address  `cbor:"winner,omitempty" json:"winner,omitempty"`
	Price          int64         `cbor:"price" json:"price"`
	PlatformFee    int64         `cbor:"platform_fee" json:"platform_fee"`
	SellerProceeds int64         `cbor:"seller_proceeds" json:"seller_proceeds"`
	FeeRecipient   core.Address  `cbor:"fee_recipient" json:"fee_recipient"`
	FeeBPS         uint32        `cbor:"fee_bps" json:"fee_bps"`

	// EventHead is the hash of the last event when the receipt was issued.
	EventHead string    `cbor:"event_head" json:"event_head"`
	IssuedAt  time.Time `cbor:"issued_at" json:"issued_at"`
}

var receiptEncMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("receipt cbor encoding mode: %v", err))
	}
	receiptEncMode = mode
}

// NewReceipt builds the receipt for a finalized engine.
func NewReceipt(a core.Auction, out core.Outcome, cfg core.Config, eventHead string, issuedAt time.Time) Receipt {
	return Receipt{
		AuctionID:      a.ID,
		Outcome:        out.State,
		Seller:         a.Seller,
		Asset:          a.Asset,
		Winner:         out.Winner,
		Price:          out.Price,
		PlatformFee:    out.PlatformFee,
		SellerProceeds: out.SellerProceeds,
		FeeRecipient:   cfg.FeeRecipient,
		FeeBPS:         cfg.FeeBPS,
		EventHead:      eventHead,
		IssuedAt:       issuedAt.UTC(),
	}
}

// EncodeReceipt returns the deterministic CBOR encoding of r.
func EncodeReceipt(r Receipt) ([]byte, error) {
	data, err := receiptEncMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode receipt: %w", err)
	}
	return data, nil
}

// DecodeReceipt parses a receipt payload.
func DecodeReceipt(data []byte) (*Receipt, error) {
	var r Receipt
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	if r.AuctionID == "" {
		return nil, fmt.Errorf("decode receipt: missing auction_id")
	}
	return &r, nil
}

// ReceiptDigest is the value bound into an attestation's user data for a receipt payload.
func ReceiptDigest(payload []byte) []byte {
	sum := sha256.Sum256(payload)
	return sum[:]
}
