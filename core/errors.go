package core

import (
	"errors"
)

// Kind names a caller-visible failure.
type Kind string

const (
	KindInvalidParameters Kind = "InvalidParameters"
	KindUnauthorized      Kind = "Unauthorized"
	KindNotAssetOwner     Kind = "NotAssetOwner"
	KindAlreadyStarted    Kind = "AlreadyStarted"
	KindAuctionNotActive  Kind = "AuctionNotActive"
	KindAuctionEnded      Kind = "AuctionEnded"
	KindAuctionNotEnded   Kind = "AuctionNotEnded"
	KindSellerCannotBid   Kind = "SellerCannotBid"
	KindZeroBid           Kind = "ZeroBid"
	KindBidTooLow         Kind = "BidTooLow"
	KindNothingToWithdraw Kind = "NothingToWithdraw"
	KindTransferFailed    Kind = "TransferFailed"
	KindAlreadyFinalized  Kind = "AlreadyFinalized"
	KindCannotCancel      Kind = "CannotCancel"
	KindBidsAlreadyPlaced Kind = "BidsAlreadyPlaced"
	KindReentrantCall     Kind = "ReentrantCall"
)

// Error is the sentinel for one failure kind. Call sites wrap it with context:
//
//	fmt.Errorf("%w: bid %d below minimum %d", ErrBidTooLow, amount, minimum)
type Error struct {
	Kind Kind
}

func (e *Error) Error() string {
	return string(e.Kind)
}

var (
	ErrInvalidParameters = &Error{Kind: KindInvalidParameters}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrNotAssetOwner     = &Error{Kind: KindNotAssetOwner}
	ErrAlreadyStarted    = &Error{Kind: KindAlreadyStarted}
	ErrAuctionNotActive  = &Error{Kind: KindAuctionNotActive}
	ErrAuctionEnded      = &Error{Kind: KindAuctionEnded}
	ErrAuctionNotEnded   = &Error{Kind: KindAuctionNotEnded}
	ErrSellerCannotBid   = &Error{Kind: KindSellerCannotBid}
	ErrZeroBid           = &Error{Kind: KindZeroBid}
	ErrBidTooLow         = &Error{Kind: KindBidTooLow}
	ErrNothingToWithdraw = &Error{Kind: KindNothingToWithdraw}
	ErrTransferFailed    = &Error{Kind: KindTransferFailed}
	ErrAlreadyFinalized  = &Error{Kind: KindAlreadyFinalized}
	ErrCannotCancel      = &Error{Kind: KindCannotCancel}
	ErrBidsAlreadyPlaced = &Error{Kind: KindBidsAlreadyPlaced}
	ErrReentrantCall     = &Error{Kind: KindReentrantCall}
)

// KindOf returns the failure kind carried by err, or "" if err is nil or not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
