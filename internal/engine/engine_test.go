package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"omniauction/internal/domain"
	"omniauction/pkg/logger"

	"github.com/stretchr/testify/require"
)

// fakeClock hands out a controllable time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingSink captures emitted events; failAll simulates an unreachable
// sink.
type recordingSink struct {
	mu      sync.Mutex
	events  []domain.AuctionEvent
	failAll bool
}

func (s *recordingSink) Emit(ctx context.Context, event domain.AuctionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("sink unreachable")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []domain.AuctionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuctionEvent, len(s.events))
	copy(out, s.events)
	return out
}

func testCatalog() []domain.CatalogItem {
	return []domain.CatalogItem{
		{ID: "p1", Name: "Vintage Watch", Description: "a watch", StartingPrice: 100, Duration: time.Hour},
		{ID: "p2", Name: "Signed Guitar", Description: "a guitar", StartingPrice: 50, Duration: 30 * time.Second},
	}
}

func newTestEngine(catalog []domain.CatalogItem) (*Engine, *fakeClock, *recordingSink) {
	clock := newFakeClock()
	sink := &recordingSink{}
	eng := New(catalog, sink, clock, DefaultMinIncrement, logger.NewNop())
	return eng, clock, sink
}

func TestPlaceBid_Validation(t *testing.T) {
	tests := []struct {
		name        string
		productID   string
		user        string
		amount      float64
		advance     time.Duration
		expectedErr error
	}{
		{
			name:        "unknown_product",
			productID:   "nope",
			user:        "alice",
			amount:      500,
			expectedErr: domain.ErrProductNotFound,
		},
		{
			name:        "below_starting_price",
			productID:   "p1",
			user:        "alice",
			amount:      50,
			expectedErr: domain.ErrBidTooLow,
		},
		{
			name:        "equal_to_current_highest",
			productID:   "p1",
			user:        "alice",
			amount:      100,
			expectedErr: domain.ErrBidTooLow,
		},
		{
			name:        "after_end_time",
			productID:   "p1",
			user:        "alice",
			amount:      9999,
			advance:     2 * time.Hour,
			expectedErr: domain.ErrAuctionClosed,
		},
		{
			name:        "exactly_at_end_time",
			productID:   "p1",
			user:        "alice",
			amount:      9999,
			advance:     time.Hour,
			expectedErr: domain.ErrAuctionClosed,
		},
		{
			name:      "valid_first_bid",
			productID: "p1",
			user:      "alice",
			amount:    150,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, clock, _ := newTestEngine(testCatalog())
			clock.Advance(tt.advance)

			result, err := eng.PlaceBid(context.Background(), tt.productID, tt.user, tt.amount)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.user, result.Bid.User)
			require.Equal(t, tt.amount, result.Bid.Amount)
			require.Equal(t, tt.amount, result.HighestBid)
		})
	}
}

func TestPlaceBid_Scenario(t *testing.T) {
	eng, _, _ := newTestEngine(testCatalog())
	ctx := context.Background()

	result, err := eng.PlaceBid(ctx, "p1", "alice", 150)
	require.NoError(t, err)
	require.Equal(t, 150.0, result.HighestBid)

	_, err = eng.PlaceBid(ctx, "p1", "bob", 140)
	require.ErrorIs(t, err, domain.ErrBidTooLow)

	result, err = eng.PlaceBid(ctx, "p1", "bob", 200)
	require.NoError(t, err)
	require.Equal(t, 200.0, result.HighestBid)

	detail, err := eng.GetProduct("p1")
	require.NoError(t, err)
	require.Equal(t, 200.0, detail.CurrentHighestBid)
	require.Equal(t, 2, detail.BidCount)
}

func TestPlaceBid_HighestMatchesLastHistoryEntry(t *testing.T) {
	eng, _, _ := newTestEngine(testCatalog())
	ctx := context.Background()

	amounts := []float64{110, 125, 125.5, 300, 301}
	for _, amount := range amounts {
		_, err := eng.PlaceBid(ctx, "p1", "alice", amount)
		require.NoError(t, err)

		history, err := eng.GetBidHistory("p1")
		require.NoError(t, err)
		require.NotEmpty(t, history)

		detail, err := eng.GetProduct("p1")
		require.NoError(t, err)
		require.Equal(t, history[len(history)-1].Amount, detail.CurrentHighestBid)
	}
}

func TestPlaceBid_HistoryAppendOnly(t *testing.T) {
	eng, _, _ := newTestEngine(testCatalog())
	ctx := context.Background()

	prev := []domain.Bid{}
	for i, amount := range []float64{110, 120, 130, 140} {
		_, err := eng.PlaceBid(ctx, "p1", "alice", amount)
		require.NoError(t, err)

		history, err := eng.GetBidHistory("p1")
		require.NoError(t, err)
		require.Len(t, history, i+1)
		require.Equal(t, prev, history[:len(prev)], "existing entries must not change")
		prev = history
	}
}

func TestPlaceBid_ConcurrentSameAmount(t *testing.T) {
	eng, _, _ := newTestEngine(testCatalog())
	ctx := context.Background()

	const bidders = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		tooLow    int
	)

	start := make(chan struct{})
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start

			// Everyone observed highest=100 and bids the same amount.
			_, err := eng.PlaceBid(ctx, "p1", "user", 150)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrBidTooLow):
				tooLow++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}

	close(start)
	wg.Wait()

	require.Equal(t, 1, successes, "exactly one concurrent bid must win")
	require.Equal(t, bidders-1, tooLow)

	count, err := eng.GetBidCount("p1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestPlaceBid_EmitsEventAfterCommit(t *testing.T) {
	eng, _, sink := newTestEngine(testCatalog())

	_, err := eng.PlaceBid(context.Background(), "p1", "alice", 150)
	require.NoError(t, err)

	events := sink.Events()
	require.Len(t, events, 1)
	require.Equal(t, domain.EventBidPlaced, events[0].Type)
	require.Equal(t, "p1", events[0].ProductID)
	require.Equal(t, "alice", events[0].User)
	require.Equal(t, 150.0, events[0].Amount)
	require.False(t, events[0].Automatic)
}

func TestPlaceBid_RejectionEmitsNothing(t *testing.T) {
	eng, _, sink := newTestEngine(testCatalog())

	_, err := eng.PlaceBid(context.Background(), "p1", "alice", 10)
	require.ErrorIs(t, err, domain.ErrBidTooLow)
	require.Empty(t, sink.Events())
}

func TestPlaceBid_SinkFailureDoesNotFailBid(t *testing.T) {
	clock := newFakeClock()
	sink := &recordingSink{failAll: true}
	eng := New(testCatalog(), sink, clock, DefaultMinIncrement, logger.NewNop())

	result, err := eng.PlaceBid(context.Background(), "p1", "alice", 150)
	require.NoError(t, err)
	require.Equal(t, 150.0, result.HighestBid)

	// The bid committed even though delivery failed.
	count, err := eng.GetBidCount("p1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestSetAutoBid_Validation(t *testing.T) {
	eng, _, _ := newTestEngine(testCatalog())
	ctx := context.Background()

	require.ErrorIs(t, eng.SetAutoBid(ctx, "nope", "carol", 300), domain.ErrProductNotFound)
	require.ErrorIs(t, eng.SetAutoBid(ctx, "p1", "carol", 0), domain.ErrInvalidAmount)
	require.ErrorIs(t, eng.SetAutoBid(ctx, "p1", "carol", -5), domain.ErrInvalidAmount)

	// A ceiling below the current highest bid is still accepted; it may be
	// meant for future rounds.
	require.NoError(t, eng.SetAutoBid(ctx, "p1", "carol", 20))
}

func TestSetAutoBid_DoesNotTriggerResolution(t *testing.T) {
	eng, _, sink := newTestEngine(testCatalog())
	ctx := context.Background()

	_, err := eng.PlaceBid(ctx, "p1", "alice", 150)
	require.NoError(t, err)

	// Ceiling above the current highest: still no bid until the next
	// externally placed one.
	require.NoError(t, eng.SetAutoBid(ctx, "p1", "carol", 300))

	count, err := eng.GetBidCount("p1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, sink.Events(), 1)
}

func TestGetProduct_TruncatesHistory(t *testing.T) {
	eng, _, _ := newTestEngine(testCatalog())
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, err := eng.PlaceBid(ctx, "p1", "alice", 101+float64(i))
		require.NoError(t, err)
	}

	detail, err := eng.GetProduct("p1")
	require.NoError(t, err)
	require.Equal(t, 15, detail.BidCount)
	require.Len(t, detail.BiddingHistory, 10)
	require.Equal(t, 115.0, detail.BiddingHistory[9].Amount)

	full, err := eng.GetBidHistory("p1")
	require.NoError(t, err)
	require.Len(t, full, 15)
}

func TestListProducts(t *testing.T) {
	eng, _, _ := newTestEngine(testCatalog())

	summaries := eng.ListProducts()
	require.Len(t, summaries, 2)
	require.Equal(t, "p1", summaries[0].ID)
	require.Equal(t, "p2", summaries[1].ID)
	require.Equal(t, 100.0, summaries[0].CurrentHighestBid)
	require.Equal(t, 3600, summaries[0].TimeRemaining)
	require.Equal(t, 0, summaries[0].BidCount)
}

func TestTimeRemaining_NeverNegative(t *testing.T) {
	eng, clock, _ := newTestEngine(testCatalog())
	clock.Advance(48 * time.Hour)

	for _, s := range eng.ListProducts() {
		require.Equal(t, 0, s.TimeRemaining)
	}
}

func TestScanEndingSoon(t *testing.T) {
	catalog := []domain.CatalogItem{
		{ID: "ending", Name: "Ending", StartingPrice: 10, Duration: 30 * time.Second},
		{ID: "exact-threshold", Name: "Exact", StartingPrice: 10, Duration: 60 * time.Second},
		{ID: "far-out", Name: "Far", StartingPrice: 10, Duration: time.Hour},
		{ID: "ended", Name: "Ended", StartingPrice: 10, Duration: 0},
	}
	eng, clock, _ := newTestEngine(catalog)

	ending := eng.ScanEndingSoon(clock.Now(), time.Minute)
	require.Len(t, ending, 1)
	require.Equal(t, "ending", ending[0].ProductID)
	require.Equal(t, "Ending", ending[0].Name)
	require.Equal(t, 30, ending[0].SecondsRemaining)

	// Once inside the window, the far-out product shows up too.
	clock.Advance(59*time.Minute + time.Second)
	ending = eng.ScanEndingSoon(clock.Now(), time.Minute)
	require.Len(t, ending, 1)
	require.Equal(t, "far-out", ending[0].ProductID)
	require.Equal(t, 59, ending[0].SecondsRemaining)

	// Past every end time nothing is returned.
	clock.Advance(2 * time.Hour)
	require.Empty(t, eng.ScanEndingSoon(clock.Now(), time.Minute))
}
