package engine

import (
	"time"

	"omniauction/internal/domain"
)

// resolveAutoBids runs the escalation loop after an accepted bid. Each round
// picks one eligible auto-bidder and places min(ceiling, highest+increment)
// on their behalf; the resulting bid changes the highest bid, so the loop
// repeats until no auto-bidder other than the last bidder has headroom left.
// The loop terminates: the highest bid strictly increases every round and a
// bidder whose ceiling is reached stays ineligible for good.
//
// Caller must hold p.mu. Returned events are emitted by the caller after the
// mutation commits.
func (e *Engine) resolveAutoBids(p *product, lastBidder string, now time.Time) []domain.AuctionEvent {
	var events []domain.AuctionEvent

	for {
		contender, ok := e.pickAutoBidder(p, lastBidder)
		if !ok {
			return events
		}

		amount := p.highest + e.minIncrement
		if contender.MaxBid < amount {
			amount = contender.MaxBid
		}

		bid := domain.Bid{
			User:      contender.User,
			Amount:    amount,
			Automatic: true,
			Timestamp: now,
		}
		p.recordBid(bid)
		events = append(events, e.bidPlacedEvent(p, bid))

		e.log.Info("Auto-bid placed", "product_id", p.id, "user", contender.User,
			"amount", amount, "max_bid", contender.MaxBid)
		lastBidder = contender.User
	}
}

// pickAutoBidder selects the deterministic winner of the next escalation
// round: among registered auto-bidders other than the last bidder whose
// ceiling still exceeds the highest bid, the earliest registration wins,
// with the user ID breaking exact ties. An outbid auto-bidder with no
// headroom simply drops out; no error is surfaced since auto-bids are
// advisory.
//
// A ceiling equal to the current leader's earlier-registered ceiling is
// ineligible: it can never end up on top, so countering with it would only
// hand the final position to the later registrant.
func (e *Engine) pickAutoBidder(p *product, lastBidder string) (domain.AutoBid, bool) {
	var winner domain.AutoBid
	found := false

	leaderAuto, leaderHasAuto := p.autoBids[lastBidder]
	for _, candidate := range p.autoBids {
		if candidate.User == lastBidder || candidate.MaxBid <= p.highest {
			continue
		}
		if leaderHasAuto && candidate.MaxBid == leaderAuto.MaxBid &&
			registeredBefore(leaderAuto, candidate) {
			continue
		}
		if !found || registeredBefore(candidate, winner) {
			winner = candidate
			found = true
		}
	}

	return winner, found
}

func registeredBefore(a, b domain.AutoBid) bool {
	if !a.RegisteredAt.Equal(b.RegisteredAt) {
		return a.RegisteredAt.Before(b.RegisteredAt)
	}
	return a.User < b.User
}
