package domain

import (
	"time"
)

// Bid is an immutable record of a single bidding event. Automatic is set
// when the engine placed the bid on a user's behalf through an auto-bid.
type Bid struct {
	User      string    `json:"user"`
	Amount    float64   `json:"amount"`
	Automatic bool      `json:"automatic,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AutoBid is a standing instruction to bid on a user's behalf up to MaxBid
// whenever the user is outbid on a product.
type AutoBid struct {
	User         string
	MaxBid       float64
	RegisteredAt time.Time
}

// CatalogItem describes one auctionable product as loaded at startup.
type CatalogItem struct {
	ID            string        `mapstructure:"id" json:"id"`
	Name          string        `mapstructure:"name" json:"name"`
	Description   string        `mapstructure:"description" json:"description"`
	StartingPrice float64       `mapstructure:"starting_price" json:"starting_price"`
	Duration      time.Duration `mapstructure:"duration" json:"duration"`
}

// ProductSummary is the read-only view returned by list queries.
type ProductSummary struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	CurrentHighestBid float64   `json:"current_highest_bid"`
	TimeRemaining     int       `json:"time_remaining"`
	BidCount          int       `json:"bids_count"`
	AuctionEndTime    time.Time `json:"auction_end_time"`
}

// ProductDetail extends the summary with the most recent bid history.
type ProductDetail struct {
	ProductSummary
	BiddingHistory []Bid `json:"bidding_history"`
}

// BidResult is returned to the caller on a successful placement. HighestBid
// reflects the product state after auto-bid resolution, so it may exceed
// Bid.Amount when an auto-bidder immediately outbid the caller.
type BidResult struct {
	Bid        Bid     `json:"bid"`
	HighestBid float64 `json:"current_highest_bid"`
}

// EndingSoon identifies a product inside the ending-soon window.
type EndingSoon struct {
	ProductID        string `json:"product_id"`
	Name             string `json:"product_name"`
	SecondsRemaining int    `json:"seconds_remaining"`
}

type AuctionEvent struct {
	Type             EventType `json:"type"`
	ProductID        string    `json:"product_id"`
	User             string    `json:"user,omitempty"`
	Amount           float64   `json:"amount,omitempty"`
	HighestBid       float64   `json:"current_highest_bid,omitempty"`
	Automatic        bool      `json:"automatic,omitempty"`
	ProductName      string    `json:"product_name,omitempty"`
	SecondsRemaining int       `json:"seconds_remaining,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

type EventType string

const (
	EventBidPlaced         EventType = "bid_placed"
	EventAuctionEndingSoon EventType = "auction_ending_soon"
)
