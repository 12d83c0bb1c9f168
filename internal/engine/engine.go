package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"omniauction/internal/domain"
	"omniauction/pkg/logger"
)

// DefaultMinIncrement is the smallest step an automatic bid places above the
// current highest bid, in currency units.
const DefaultMinIncrement = 1.0

// product is the single source of truth for one item's auction state. All
// access goes through the owning Engine; products never escape by reference.
type product struct {
	mu sync.Mutex

	id            string
	name          string
	description   string
	startingPrice float64
	highest       float64
	history       []domain.Bid
	autoBids      map[string]domain.AutoBid
	endTime       time.Time
}

// timeRemaining is never negative.
func (p *product) timeRemaining(now time.Time) time.Duration {
	remaining := p.endTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// recordBid appends to the history and advances the highest bid. Validation
// is the engine's job; keeping a single validation authority avoids the
// acceptance rules diverging between layers.
func (p *product) recordBid(bid domain.Bid) {
	p.history = append(p.history, bid)
	p.highest = bid.Amount
}

func (p *product) summary(now time.Time) domain.ProductSummary {
	return domain.ProductSummary{
		ID:                p.id,
		Name:              p.name,
		Description:       p.description,
		CurrentHighestBid: p.highest,
		TimeRemaining:     int(p.timeRemaining(now).Seconds()),
		BidCount:          len(p.history),
		AuctionEndTime:    p.endTime,
	}
}

// Engine owns the product catalog and arbitrates all bids. The product map
// is fixed at construction; per-product mutexes serialize mutations so the
// check-then-append of bid placement is atomic.
type Engine struct {
	products     map[string]*product
	sink         domain.NotificationSink
	clock        domain.Clock
	minIncrement float64
	log          logger.Logger
}

func New(catalog []domain.CatalogItem, sink domain.NotificationSink, clock domain.Clock,
	minIncrement float64, log logger.Logger) *Engine {
	if minIncrement <= 0 {
		minIncrement = DefaultMinIncrement
	}

	now := clock.Now()
	products := make(map[string]*product, len(catalog))
	for _, item := range catalog {
		products[item.ID] = &product{
			id:            item.ID,
			name:          item.Name,
			description:   item.Description,
			startingPrice: item.StartingPrice,
			highest:       item.StartingPrice,
			autoBids:      make(map[string]domain.AutoBid),
			endTime:       now.Add(item.Duration),
		}
	}

	return &Engine{
		products:     products,
		sink:         sink,
		clock:        clock,
		minIncrement: minIncrement,
		log:          log,
	}
}

// find is safe without a lock: the map is never written after New.
func (e *Engine) find(productID string) (*product, error) {
	p, ok := e.products[productID]
	if !ok {
		return nil, fmt.Errorf("engine: %w: %s", domain.ErrProductNotFound, productID)
	}
	return p, nil
}

// PlaceBid validates and records a bid, then runs auto-bid resolution for
// the product before returning. The returned HighestBid reflects any
// escalation, so it can exceed the caller's amount. Events are emitted after
// the state change commits.
func (e *Engine) PlaceBid(ctx context.Context, productID, user string, amount float64) (domain.BidResult, error) {
	p, err := e.find(productID)
	if err != nil {
		return domain.BidResult{}, err
	}

	p.mu.Lock()
	now := e.clock.Now()

	if !now.Before(p.endTime) {
		p.mu.Unlock()
		return domain.BidResult{}, fmt.Errorf("engine: %w: %s", domain.ErrAuctionClosed, productID)
	}
	if amount <= p.highest {
		current := p.highest
		p.mu.Unlock()
		return domain.BidResult{}, fmt.Errorf("engine: %w: current highest bid is %.2f", domain.ErrBidTooLow, current)
	}

	bid := domain.Bid{User: user, Amount: amount, Timestamp: now}
	p.recordBid(bid)

	events := []domain.AuctionEvent{e.bidPlacedEvent(p, bid)}
	events = append(events, e.resolveAutoBids(p, user, now)...)

	result := domain.BidResult{Bid: bid, HighestBid: p.highest}
	p.mu.Unlock()

	e.emit(ctx, events)
	return result, nil
}

// SetAutoBid registers or replaces the auto-bid ceiling for a user on a
// product. Registration is accepted regardless of the current highest bid
// (the ceiling may target future rounds) and never triggers resolution by
// itself; escalation fires on the next accepted bid.
func (e *Engine) SetAutoBid(ctx context.Context, productID, user string, maxBid float64) error {
	p, err := e.find(productID)
	if err != nil {
		return err
	}
	if maxBid <= 0 {
		return fmt.Errorf("engine: %w: max bid must be positive, got %.2f", domain.ErrInvalidAmount, maxBid)
	}

	p.mu.Lock()
	p.autoBids[user] = domain.AutoBid{
		User:         user,
		MaxBid:       maxBid,
		RegisteredAt: e.clock.Now(),
	}
	p.mu.Unlock()

	e.log.Info("Auto-bid registered", "product_id", productID, "user", user, "max_bid", maxBid)
	return nil
}

// ListProducts returns summaries for the whole catalog, ordered by product ID.
func (e *Engine) ListProducts() []domain.ProductSummary {
	now := e.clock.Now()
	summaries := make([]domain.ProductSummary, 0, len(e.products))
	for _, p := range e.products {
		p.mu.Lock()
		summaries = append(summaries, p.summary(now))
		p.mu.Unlock()
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

// GetProduct returns the product detail with the last 10 history entries.
func (e *Engine) GetProduct(productID string) (domain.ProductDetail, error) {
	p, err := e.find(productID)
	if err != nil {
		return domain.ProductDetail{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	history := p.history
	if len(history) > 10 {
		history = history[len(history)-10:]
	}
	recent := make([]domain.Bid, len(history))
	copy(recent, history)

	return domain.ProductDetail{
		ProductSummary: p.summary(e.clock.Now()),
		BiddingHistory: recent,
	}, nil
}

func (e *Engine) GetBidCount(productID string) (int, error) {
	p, err := e.find(productID)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.history), nil
}

// GetBidHistory returns a copy of the full bid history in insertion order.
func (e *Engine) GetBidHistory(productID string) ([]domain.Bid, error) {
	p, err := e.find(productID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	history := make([]domain.Bid, len(p.history))
	copy(history, p.history)
	return history, nil
}

// ScanEndingSoon reports every product with 0 < remaining < threshold,
// ordered by product ID. Products already ended are excluded. The scan is
// side-effect-free; the periodic driver forwards results to the sink.
func (e *Engine) ScanEndingSoon(now time.Time, threshold time.Duration) []domain.EndingSoon {
	var ending []domain.EndingSoon
	for _, p := range e.products {
		p.mu.Lock()
		remaining := p.timeRemaining(now)
		if remaining > 0 && remaining < threshold {
			ending = append(ending, domain.EndingSoon{
				ProductID:        p.id,
				Name:             p.name,
				SecondsRemaining: int(remaining.Seconds()),
			})
		}
		p.mu.Unlock()
	}

	sort.Slice(ending, func(i, j int) bool { return ending[i].ProductID < ending[j].ProductID })
	return ending
}

func (e *Engine) bidPlacedEvent(p *product, bid domain.Bid) domain.AuctionEvent {
	return domain.AuctionEvent{
		Type:       domain.EventBidPlaced,
		ProductID:  p.id,
		User:       bid.User,
		Amount:     bid.Amount,
		HighestBid: p.highest,
		Automatic:  bid.Automatic,
		Timestamp:  bid.Timestamp,
	}
}

// emit delivers committed events. Sink failures are logged and swallowed so
// delivery problems never surface to the bidder.
func (e *Engine) emit(ctx context.Context, events []domain.AuctionEvent) {
	for _, event := range events {
		if err := e.sink.Emit(ctx, event); err != nil {
			e.log.Error("Failed to emit event", "type", event.Type,
				"product_id", event.ProductID, "error", err)
		}
	}
}
