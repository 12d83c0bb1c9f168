package domain

import "errors"

// Engine errors. All are expected outcomes surfaced to the transport layer,
// never process-fatal conditions.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrBidTooLow       = errors.New("bid amount too low")
	ErrAuctionClosed   = errors.New("auction has ended")
	ErrInvalidAmount   = errors.New("invalid amount")
)
