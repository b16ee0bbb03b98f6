package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/pesan/domain/repositories"
)

// OrderRetentionService periodically deletes orders older than the retention window
type OrderRetentionService struct {
	orders    repositories.OrderRepository
	retention time.Duration
	interval  time.Duration
	delay     time.Duration
	now       func() time.Time
	logger    *zap.Logger
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewOrderRetentionService creates a retention service. A purge runs a minute
// after Start and then every interval.
func NewOrderRetentionService(orders repositories.OrderRepository, retention, interval time.Duration, logger *zap.Logger) *OrderRetentionService {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &OrderRetentionService{
		orders:    orders,
		retention: retention,
		interval:  interval,
		delay:     time.Minute,
		now:       time.Now,
		logger:    logger,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start begins the background purge loop
func (s *OrderRetentionService) Start() {
	go s.purgeLoop()
	s.logger.Info("Order retention service started",
		zap.Duration("retention", s.retention),
		zap.Duration("interval", s.interval))
}

// Stop ends the purge loop and waits for a running purge to finish
func (s *OrderRetentionService) Stop() {
	close(s.stopChan)
	<-s.doneChan
	s.logger.Info("Order retention service stopped")
}

func (s *OrderRetentionService) purgeLoop() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	initialTimer := time.NewTimer(s.delay)
	defer initialTimer.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-initialTimer.C:
			s.Purge(context.Background())
		case <-ticker.C:
			s.Purge(context.Background())
		}
	}
}

// Purge deletes expired orders once and returns how many were removed.
// Retention of zero or less keeps orders forever.
func (s *OrderRetentionService) Purge(ctx context.Context) int64 {
	if s.retention <= 0 {
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	cutoff := s.now().Add(-s.retention)
	removed, err := s.orders.PurgeBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to purge orders", zap.Error(err))
		return 0
	}

	if removed > 0 {
		s.logger.Info("Expired orders purged",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff))
	}
	return removed
}
