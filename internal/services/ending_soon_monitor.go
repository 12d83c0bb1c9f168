package services

import (
	"context"
	"fmt"
	"time"

	"omniauction/internal/domain"
	"omniauction/pkg/logger"

	"github.com/robfig/cron/v3"
)

// AuctionScanner is the slice of the engine the monitor needs.
type AuctionScanner interface {
	ScanEndingSoon(now time.Time, threshold time.Duration) []domain.EndingSoon
}

// EndingSoonMonitor periodically scans for auctions inside the ending-soon
// window and forwards a heads-up event per product to the sink. Repeated
// notifications across scans within the same window are tolerated; this is
// best-effort, not exactly-once.
type EndingSoonMonitor struct {
	scanner   AuctionScanner
	sink      domain.NotificationSink
	clock     domain.Clock
	threshold time.Duration
	interval  time.Duration
	cron      *cron.Cron
	log       logger.Logger
}

func NewEndingSoonMonitor(scanner AuctionScanner, sink domain.NotificationSink,
	clock domain.Clock, threshold, interval time.Duration, log logger.Logger) *EndingSoonMonitor {
	return &EndingSoonMonitor{
		scanner:   scanner,
		sink:      sink,
		clock:     clock,
		threshold: threshold,
		interval:  interval,
		cron:      cron.New(cron.WithSeconds()),
		log:       log,
	}
}

func (m *EndingSoonMonitor) Start() error {
	m.log.Info("Starting ending-soon monitor", "interval", m.interval, "threshold", m.threshold)

	_, err := m.cron.AddFunc(fmt.Sprintf("@every %s", m.interval), m.Scan)
	if err != nil {
		return err
	}

	m.cron.Start()
	return nil
}

func (m *EndingSoonMonitor) Stop() {
	m.log.Info("Stopping ending-soon monitor")
	m.cron.Stop()
}

// Scan runs one pass. Exported so the driver schedule and the scan itself
// stay independently testable.
func (m *EndingSoonMonitor) Scan() {
	now := m.clock.Now()

	for _, item := range m.scanner.ScanEndingSoon(now, m.threshold) {
		event := domain.AuctionEvent{
			Type:             domain.EventAuctionEndingSoon,
			ProductID:        item.ProductID,
			ProductName:      item.Name,
			SecondsRemaining: item.SecondsRemaining,
			Timestamp:        now,
		}

		if err := m.sink.Emit(context.Background(), event); err != nil {
			m.log.Error("Failed to emit ending-soon event",
				"product_id", item.ProductID, "error", err)
		}
	}
}
