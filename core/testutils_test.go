package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

const (
	testSeller       Address = "seller"
	testEscrow       Address = "escrow"
	testFeeRecipient Address = "platform"
	alice            Address = "alice"
	bob              Address = "bob"
	carol            Address = "carol"
)

var (
	testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testAsset = AssetRef{Custodian: "registry", AssetID: "painting-17"}
)

// FakeCustodian is an in-memory asset registry with injectable failures.
type FakeCustodian struct {
	mu           sync.Mutex
	holders      map[AssetRef]Address
	calls        []string
	HolderFunc   func(ctx context.Context) error
	TransferFunc func(ctx context.Context, from, to Address) error
}

func NewFakeCustodian(holder Address) *FakeCustodian {
	return &FakeCustodian{holders: map[AssetRef]Address{testAsset: holder}}
}

func (f *FakeCustodian) Transfer(ctx context.Context, asset AssetRef, from, to Address) error {
	f.mu.Lock()
	hook := f.TransferFunc
	f.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, from, to); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.holders[asset] != from {
		return fmt.Errorf("asset %s held by %s, not %s", asset, f.holders[asset], from)
	}
	f.holders[asset] = to
	f.calls = append(f.calls, fmt.Sprintf("%s->%s", from, to))
	return nil
}

func (f *FakeCustodian) CurrentHolder(ctx context.Context, asset AssetRef) (Address, error) {
	f.mu.Lock()
	hook := f.HolderFunc
	f.mu.Unlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			return "", err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holders[asset], nil
}

func (f *FakeCustodian) Holder() Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holders[testAsset]
}

func (f *FakeCustodian) Transfers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// FakeFunds records payments out of escrow. PayFunc runs before a payment is recorded.
type FakeFunds struct {
	mu      sync.Mutex
	paid    map[Address]int64
	count   int
	PayFunc func(ctx context.Context, to Address, amount int64) error
}

func NewFakeFunds() *FakeFunds {
	return &FakeFunds{paid: make(map[Address]int64)}
}

func (f *FakeFunds) Pay(ctx context.Context, to Address, amount int64) error {
	f.mu.Lock()
	hook := f.PayFunc
	f.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, to, amount); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.paid[to] += amount
	f.count++
	return nil
}

func (f *FakeFunds) Paid(to Address) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paid[to]
}

func (f *FakeFunds) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func testConfig() Config {
	cfg := DefaultConfig(testEscrow, testFeeRecipient)
	cfg.Now = func() time.Time { return testStart }
	return cfg
}

func testParams() Params {
	return Params{
		Seller:          testSeller,
		Asset:           testAsset,
		StartingPrice:   1000,
		ReservePrice:    2000,
		MinBidIncrement: 100,
		Duration:        3600 * time.Second,
	}
}

func CreateTestEngine(t *testing.T, p Params) (*Engine, *FakeCustodian, *FakeFunds) {
	t.Helper()

	custodian := NewFakeCustodian(p.Seller)
	funds := NewFakeFunds()
	e, err := NewAuction(testConfig(), p, custodian, funds, testStart)
	if err != nil {
		t.Fatalf("NewAuction() error = %v", err)
	}
	return e, custodian, funds
}

func CreateStartedEngine(t *testing.T, p Params) (*Engine, *FakeCustodian, *FakeFunds) {
	t.Helper()

	e, custodian, funds := CreateTestEngine(t, p)
	if err := e.Start(context.Background(), p.Seller); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return e, custodian, funds
}

func mustBid(t *testing.T, e *Engine, who Address, amount int64, at time.Time) {
	t.Helper()
	if err := e.PlaceBid(context.Background(), who, amount, at); err != nil {
		t.Fatalf("PlaceBid(%s, %d) error = %v", who, amount, err)
	}
}

// conserved reports whether escrowed value equals what the engine still owes.
func conserved(e *Engine) bool {
	return e.Escrowed() == e.TotalPendingReturns()+e.HeldBid()
}
