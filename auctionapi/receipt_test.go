package auctionapi

import (
	"bytes"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/assetauction/core"
)

var issuedAt = time.Date(2026, 3, 1, 13, 0, 0, 123456789, time.UTC)

func testReceipt() Receipt {
	a := core.Auction{
		ID:     "8c1f0a52-0d7a-4c55-9a0e-3de1a0c1b001",
		Seller: "seller",
		Asset:  core.AssetRef{Custodian: "registry", AssetID: "painting-17"},
	}
	out := core.Outcome{State: core.StateSuccessful, Winner: "bob", Price: 2500, PlatformFee: 62, SellerProceeds: 2438}
	cfg := core.DefaultConfig("escrow", "platform")
	return NewReceipt(a, out, cfg, "abc123", issuedAt)
}

func TestNewReceipt(t *testing.T) {
	r := testReceipt()
	check.Equal(t, core.StateSuccessful, r.Outcome)
	check.Equal(t, core.Address("bob"), r.Winner)
	check.Equal(t, core.Address("platform"), r.FeeRecipient)
	check.Equal(t, uint32(core.DefaultFeeBPS), r.FeeBPS)
	check.Equal(t, r.Price, r.PlatformFee+r.SellerProceeds)
}

func TestEncodeDecodeReceipt(t *testing.T) {
	r := testReceipt()

	data, err := EncodeReceipt(r)
	assert.NoError(t, err)

	again, err := EncodeReceipt(r)
	assert.NoError(t, err)
	check.True(t, bytes.Equal(data, again))

	decoded, err := DecodeReceipt(data)
	assert.NoError(t, err)
	check.Equal(t, r.AuctionID, decoded.AuctionID)
	check.Equal(t, r.Asset, decoded.Asset)
	check.Equal(t, r.SellerProceeds, decoded.SellerProceeds)
	check.True(t, r.IssuedAt.Equal(decoded.IssuedAt))
}

func TestDecodeReceipt_Invalid(t *testing.T) {
	_, err := DecodeReceipt([]byte{0xff})
	check.Error(t, err)

	empty, err := cbor.Marshal(map[string]any{"price": 5})
	assert.NoError(t, err)
	_, err = DecodeReceipt(empty)
	check.Error(t, err)
}

func TestReceiptDigest(t *testing.T) {
	sum := sha256.Sum256([]byte("payload"))
	check.Equal(t, sum[:], ReceiptDigest([]byte("payload")))
}

func TestParseAttestationDoc(t *testing.T) {
	nested, err := cbor.Marshal(map[string]any{
		"module_id":   "test-enclave-12345",
		"digest":      "SHA384",
		"timestamp":   uint64(1772370000000),
		"pcrs":        map[uint64][]byte{0: {0x3b, 0x4c}, 1: {0x4b}, 2: {0x2b, 0xdd}},
		"certificate": []byte("test-certificate-data"),
		"cabundle":    [][]byte{[]byte("test-ca-cert")},
		"public_key":  []byte("pk"),
		"user_data":   ReceiptDigest([]byte("receipt")),
		"nonce":       []byte("nonce-1"),
	})
	assert.NoError(t, err)
	msg, err := cbor.Marshal([]any{[]byte{0x01, 0x02, 0x03}, map[string]any{}, nested, []byte{0x04, 0x05, 0x06}})
	assert.NoError(t, err)

	doc, userData, err := COSE(msg).ParseAttestationDoc()
	assert.NoError(t, err)
	check.Equal(t, "test-enclave-12345", doc.ModuleID)
	check.Equal(t, "3b4c", doc.PCRs.ImageFileHash)
	check.Equal(t, "2bdd", doc.PCRs.ApplicationHash)
	check.Equal(t, "", doc.PCRs.SigningCertHash)
	check.Equal(t, "nonce-1", doc.Nonce)
	check.True(t, doc.Timestamp.Equal(time.UnixMilli(1772370000000)))
	check.Equal(t, ReceiptDigest([]byte("receipt")), userData)
}

func TestParseAttestationDoc_MissingModule(t *testing.T) {
	nested, err := cbor.Marshal(map[string]any{"digest": "SHA384"})
	assert.NoError(t, err)
	msg, err := cbor.Marshal([]any{[]byte{}, map[string]any{}, nested, []byte{}})
	assert.NoError(t, err)

	_, _, err = COSE(msg).ParseAttestationDoc()
	check.Error(t, err)
}
