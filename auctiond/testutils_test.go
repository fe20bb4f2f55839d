package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"

	"github.com/cloudx-io/assetauction/auctionapi"
	"github.com/cloudx-io/assetauction/core"
	"github.com/cloudx-io/assetauction/memledger"
	"github.com/cloudx-io/assetauction/store"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const testGenesis = `{
	"assets": [{"id": "painting-17", "holder": "seller"}],
	"balances": {"alice": 10000, "bob": 10000, "carol": 500}
}`

// MockEnclaveHandle implements the Attest method for testing
type MockEnclaveHandle struct {
	AttestFunc func(options enclave.AttestationOptions) ([]byte, error)
}

func (m *MockEnclaveHandle) Attest(options enclave.AttestationOptions) ([]byte, error) {
	if m.AttestFunc != nil {
		return m.AttestFunc(options)
	}
	return nil, fmt.Errorf("mock not configured")
}

// mustDecodeHex is a helper function to decode hex strings to actual hash bytes for testing
func mustDecodeHex(t *testing.T, hexStr string) []byte {
	t.Helper()
	bytes, err := hex.DecodeString(hexStr)
	if err != nil {
		panic(fmt.Sprintf("invalid hex string: %s", hexStr))
	}
	return bytes
}

// CreateMockEnclave creates a mock enclave handle for testing with realistic attestation data
func CreateMockEnclave(t *testing.T) *MockEnclaveHandle {
	t.Helper()
	return &MockEnclaveHandle{
		AttestFunc: func(options enclave.AttestationOptions) ([]byte, error) {
			nestedDoc := map[string]any{
				"module_id": "test-enclave-12345",
				"digest":    "SHA384",
				"timestamp": uint64(testStart.UnixMilli()),
				"pcrs": map[uint64][]byte{
					0: mustDecodeHex(t, "3b4cef27e672fdbcc808960a88ddfe7329dd2e367b6850c9a8d910315f0b47e4224d6db361b75e010c87691d86ca9c57"),
					1: mustDecodeHex(t, "4b4d5b3661b3efc12920900c80e126e4ce783c522de6c02a2a5bf7af3a2b9327b86776f188e4be1c1c404a129dbda493"),
					2: mustDecodeHex(t, "2bdd28c1d85bb3872da3617a29a6bfeb50c65750c995f92e7dac6b5f2c4c72e0f9976bdee62a0b25864d10dffb535e11"),
				},
				"certificate": []byte("test-certificate-data"),
				"cabundle":    [][]byte{[]byte("test-ca-cert")},
				"public_key":  []byte("test-public-key-data"),
				"user_data":   options.UserData,
				"nonce":       options.Nonce,
			}

			nestedBytes, _ := cbor.Marshal(nestedDoc)

			// AWS Nitro 4-element array format: [header, metadata, nested_doc, signature]
			result := []any{
				[]byte{0x01, 0x02, 0x03},
				map[string]any{},
				nestedBytes,
				[]byte{0x04, 0x05, 0x06},
			}
			return cbor.Marshal(result)
		},
	}
}

// testClock is a settable clock for the server.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	*AuctionServer
	clock *testClock
	st    *store.Store
}

func testConfig() Config {
	engine := core.DefaultConfig("escrow", "platform")
	return Config{
		Listen:     "tcp:127.0.0.1:0",
		MaxWorkers: 4,
		Engine:     engine,
	}
}

// createTestServer builds a server over an in-memory store seeded with testGenesis.
func createTestServer(t *testing.T, attester EnclaveAttester) *testServer {
	t.Helper()

	st, err := store.OpenInMemory()
	assert.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return createTestServerWithStore(t, st, attester)
}

func createTestServerWithStore(t *testing.T, st *store.Store, attester EnclaveAttester) *testServer {
	t.Helper()

	registry := memledger.NewRegistry(registryName)
	bank := memledger.NewBank()
	assert.NoError(t, seedLedger(st, writeGenesis(t), registry, bank))

	keys, err := NewKeyManager()
	assert.NoError(t, err)

	clock := &testClock{now: testStart}
	s := NewAuctionServer(testConfig(), registry, bank, st, keys, attester)
	s.now = clock.Now
	return &testServer{AuctionServer: s, clock: clock, st: st}
}

func writeGenesis(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.json")
	assert.NoError(t, os.WriteFile(path, []byte(testGenesis), 0o600))
	return path
}

// send runs one request through the dispatcher as the socket would.
func (ts *testServer) send(t *testing.T, req any) auctionapi.Response {
	t.Helper()

	raw, err := json.Marshal(req)
	assert.NoError(t, err)

	out, _ := ts.dispatch(context.Background(), raw)
	resp, ok := out.(auctionapi.Response)
	assert.True(t, ok)
	return resp
}

func createRequest() auctionapi.CreateRequest {
	return auctionapi.CreateRequest{
		Type:            auctionapi.TypeCreate,
		Seller:          "seller",
		Asset:           core.AssetRef{Custodian: registryName, AssetID: "painting-17"},
		StartingPrice:   1000,
		ReservePrice:    2000,
		MinBidIncrement: 100,
		DurationSeconds: 3600,
	}
}

func caller(reqType string, who core.Address) auctionapi.CallerRequest {
	return auctionapi.CallerRequest{Type: reqType, Caller: who}
}

func bid(who core.Address, amount int64) auctionapi.BidRequest {
	return auctionapi.BidRequest{Type: auctionapi.TypeBid, Caller: who, Amount: amount}
}

// createStartedServer returns a server hosting an active auction.
func createStartedServer(t *testing.T, attester EnclaveAttester) *testServer {
	t.Helper()
	ts := createTestServer(t, attester)
	assert.True(t, ts.send(t, createRequest()).Success)
	assert.True(t, ts.send(t, caller(auctionapi.TypeStart, "seller")).Success)
	return ts
}
