package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// TradeExpirer is the sweep entrypoint the scheduler drives.
type TradeExpirer interface {
	ExpireTrades(ctx context.Context) (int, error)
}

// ExpiryConfig holds configuration for the trade expiry scheduler.
type ExpiryConfig struct {
	// Interval is how often pending requests are swept. Default: 5 minutes
	Interval time.Duration

	// Timeout bounds a single sweep. Default: 1 minute
	Timeout time.Duration
}

// TradeExpiryScheduler periodically flips overdue trade requests to expired.
type TradeExpiryScheduler struct {
	expirer   TradeExpirer
	config    ExpiryConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewTradeExpiryScheduler creates a scheduler; call Start to run it.
func NewTradeExpiryScheduler(expirer TradeExpirer, config ExpiryConfig) *TradeExpiryScheduler {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	if config.Timeout <= 0 {
		config.Timeout = time.Minute
	}
	return &TradeExpiryScheduler{
		expirer: expirer,
		config:  config,
		stopCh:  make(chan struct{}),
	}
}

// Start runs one sweep immediately and then every interval.
func (s *TradeExpiryScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	log.Printf("[TradeExpiry] Started - Interval: %v", s.config.Interval)

	go func() {
		s.sweep()
		s.run()
	}()
}

func (s *TradeExpiryScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stopCh:
			log.Printf("[TradeExpiry] Stopped")
			return
		}
	}
}

func (s *TradeExpiryScheduler) sweep() {
	n, err := s.RunNow()
	if err != nil {
		log.Printf("[TradeExpiry] Sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[TradeExpiry] Expired %d pending trade requests", n)
	}
}

// Stop stops the scheduler. It is safe to call more than once.
func (s *TradeExpiryScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow sweeps immediately.
func (s *TradeExpiryScheduler) RunNow() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()
	return s.expirer.ExpireTrades(ctx)
}
