package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestExportRestore(t *testing.T) {
	e, custodian, funds := CreateStartedEngine(t, testParams())
	mustBid(t, e, alice, 1000, testStart)
	mustBid(t, e, bob, 1500, testStart)
	mustBid(t, e, alice, 2100, testStart)

	rec := e.Export()
	r, err := Restore(testConfig(), rec, custodian, funds)
	assert.NoError(t, err)

	check.Equal(t, e.Snapshot(), r.Snapshot())
	check.Equal(t, e.PendingReturns(), r.PendingReturns())
	check.Equal(t, e.EventHead(), r.EventHead())
	check.Equal(t, e.TotalDeposited(), r.TotalDeposited())
	check.True(t, conserved(r))

	// The restored engine carries on where the original stopped.
	out, err := r.Finalize(context.Background(), carol, testStart.Add(time.Hour))
	assert.NoError(t, err)
	check.Equal(t, alice, out.Winner)
	check.Equal(t, int64(2100), out.Price)
	check.NoError(t, VerifyEventChain("", r.Events(1)))

	// The original is unaffected.
	check.Equal(t, StateActive, e.Snapshot().State)
}

func TestRestore_PendingSettlement(t *testing.T) {
	ctx := context.Background()
	end := testStart.Add(time.Hour)
	e, custodian, funds := CreateStartedEngine(t, testParams())
	mustBid(t, e, carol, 2500, testStart)

	funds.PayFunc = func(ctx context.Context, to Address, amount int64) error {
		if to == testFeeRecipient {
			return errors.New("bank closed")
		}
		return nil
	}
	_, err := e.Finalize(ctx, bob, end)
	check.Equal(t, KindTransferFailed, KindOf(err))

	rec := e.Export()
	check.NotNil(t, rec.Settlement)
	check.False(t, rec.Auction.Settling)

	funds.PayFunc = nil
	r, err := Restore(testConfig(), rec, custodian, funds)
	assert.NoError(t, err)
	check.True(t, r.Snapshot().Settling)

	out, err := r.Finalize(ctx, bob, end)
	assert.NoError(t, err)
	check.Equal(t, int64(62), out.PlatformFee)
	check.Equal(t, int64(2438), funds.Paid(testSeller))
	check.Equal(t, int64(62), funds.Paid(testFeeRecipient))
	check.Equal(t, 2, funds.Count())
}

func TestRestore_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(rec *Record)
	}{
		{"missing id", func(rec *Record) { rec.Auction.ID = "" }},
		{"no events", func(rec *Record) { rec.Events = nil }},
		{"tampered event", func(rec *Record) { rec.Events[2].Amount = 1 }},
		{"foreign event", func(rec *Record) { rec.Events[1].AuctionID = "other" }},
		{"truncated log", func(rec *Record) { rec.Events = rec.Events[1:] }},
		{"deposits do not add up", func(rec *Record) { rec.Deposited++ }},
		{"ledger inflated", func(rec *Record) { rec.Ledger[carol] = 50 }},
		{"negative balance", func(rec *Record) { rec.Ledger[alice] = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, custodian, funds := CreateStartedEngine(t, testParams())
			mustBid(t, e, alice, 1000, testStart)
			mustBid(t, e, bob, 1100, testStart)

			rec := e.Export()
			tt.mutate(&rec)

			_, err := Restore(testConfig(), rec, custodian, funds)
			check.Equal(t, KindInvalidParameters, KindOf(err))
		})
	}
}
