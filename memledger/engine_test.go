package memledger

import (
	"context"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/assetauction/core"
)

// Full lifecycle with a funded bank standing in for bidders attaching value to their bids.
func TestEngineWithMemLedger(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	reg := NewRegistry("gallery")
	bank := NewBank()
	ref, err := reg.Mint("vase-1", "seller")
	assert.NoError(t, err)
	for _, who := range []core.Address{"alice", "bob"} {
		assert.NoError(t, bank.Deposit(who, 10000))
	}

	cfg := core.DefaultConfig("escrow", "platform")
	e, err := core.NewAuction(cfg, core.Params{
		Seller:          "seller",
		Asset:           ref,
		StartingPrice:   1000,
		ReservePrice:    2000,
		MinBidIncrement: 100,
		Duration:        time.Hour,
	}, reg, bank.Payer("escrow"), start)
	assert.NoError(t, err)
	assert.NoError(t, e.Start(ctx, "seller"))

	bid := func(who core.Address, amount int64) {
		t.Helper()
		assert.NoError(t, bank.Transfer(ctx, who, "escrow", amount))
		assert.NoError(t, e.PlaceBid(ctx, who, amount, start.Add(time.Minute)))
	}
	bid("alice", 1000)
	bid("bob", 1500)
	bid("alice", 2500)

	check.Equal(t, bank.Balance("escrow"), e.Escrowed())

	out, err := e.Finalize(ctx, "bob", start.Add(time.Hour))
	assert.NoError(t, err)
	check.Equal(t, core.Address("alice"), out.Winner)

	holder, _ := reg.CurrentHolder(ctx, ref)
	check.Equal(t, core.Address("alice"), holder)
	check.Equal(t, int64(2438), bank.Balance("seller"))
	check.Equal(t, int64(62), bank.Balance("platform"))

	for _, who := range []core.Address{"alice", "bob"} {
		_, err := e.WithdrawRefund(ctx, who)
		assert.NoError(t, err)
	}
	check.Equal(t, int64(0), bank.Balance("escrow"))
	check.Equal(t, int64(10000-2500), bank.Balance("alice"))
	check.Equal(t, int64(10000), bank.Balance("bob"))
	check.Equal(t, int64(20000), bank.Total())
}

// An escrow that cannot cover a refund leaves the ledger entry in place.
func TestEngineWithMemLedger_UnderfundedEscrow(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	reg := NewRegistry("gallery")
	bank := NewBank()
	ref, err := reg.Mint("vase-1", "seller")
	assert.NoError(t, err)

	e, err := core.NewAuction(core.DefaultConfig("escrow", "platform"), core.Params{
		Seller:          "seller",
		Asset:           ref,
		StartingPrice:   1000,
		MinBidIncrement: 100,
		Duration:        time.Hour,
	}, reg, bank.Payer("escrow"), start)
	assert.NoError(t, err)
	assert.NoError(t, e.Start(ctx, "seller"))

	// Bids recorded without funds reaching escrow.
	assert.NoError(t, e.PlaceBid(ctx, "alice", 1000, start))
	assert.NoError(t, e.PlaceBid(ctx, "bob", 1100, start))

	_, err = e.WithdrawRefund(ctx, "alice")
	check.Equal(t, core.KindTransferFailed, core.KindOf(err))
	check.Equal(t, int64(1000), e.PendingReturn("alice"))
}
