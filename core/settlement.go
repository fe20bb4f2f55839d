package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// BPSDenominator is the number of basis points in one whole.
const BPSDenominator = 10000

var bpsDenominatorDecimal = decimal.NewFromInt(BPSDenominator)

// SplitProceeds divides a winning price into the platform fee and the seller's proceeds.
// The fee is floor(price * feeBPS / 10000); any remainder stays with the seller,
// so platformFee + sellerProceeds == price always holds.
//
// Decimal arithmetic keeps price * feeBPS exact for any int64 price.
func SplitProceeds(price int64, feeBPS uint32) (platformFee, sellerProceeds int64) {
	if price <= 0 || feeBPS == 0 {
		return 0, price
	}

	gross := decimal.NewFromInt(price).Mul(decimal.NewFromInt(int64(feeBPS)))
	quotient, _ := gross.QuoRem(bpsDenominatorDecimal, 0)

	platformFee = quotient.IntPart()
	sellerProceeds = price - platformFee
	return platformFee, sellerProceeds
}

// ReserveMet reports whether bid satisfies reserve. A zero reserve is always met.
func ReserveMet(bid, reserve int64) bool {
	return reserve == 0 || bid >= reserve
}

// MinimumBid returns the smallest acceptable next bid: the starting price with
// no bid yet, otherwise highest + increment. ok is false when highest + increment
// is not representable, in which case no further bid can be accepted.
func MinimumBid(highestBid, startingPrice, increment int64) (minimum int64, ok bool) {
	if highestBid == 0 {
		return startingPrice, true
	}
	if highestBid > math.MaxInt64-increment {
		return 0, false
	}
	return highestBid + increment, true
}
