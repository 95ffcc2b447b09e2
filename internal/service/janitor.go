package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/feishu-assistant/internal/biz/repo"
)

// DefaultJanitorInterval is how often stale history is swept
const DefaultJanitorInterval = 10 * time.Minute

// HistoryJanitor periodically removes turns older than maxAge
type HistoryJanitor struct {
	historyRepo repo.HistoryRepo
	maxAge      time.Duration
	interval    time.Duration
	now         func() time.Time
	log         *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHistoryJanitor creates a new janitor
// A zero maxAge disables sweeping.
func NewHistoryJanitor(historyRepo repo.HistoryRepo, maxAge, interval time.Duration, log *zap.Logger) *HistoryJanitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return &HistoryJanitor{
		historyRepo: historyRepo,
		maxAge:      maxAge,
		interval:    interval,
		now:         time.Now,
		log:         log.Named("janitor"),
	}
}

// Start starts the sweep loop
func (j *HistoryJanitor) Start(ctx context.Context) {
	if j.maxAge <= 0 {
		j.log.Info("history expiry disabled")
		return
	}
	j.ctx, j.cancel = context.WithCancel(ctx)

	j.wg.Add(1)
	go j.loop()

	j.log.Info("started", zap.Duration("max_age", j.maxAge), zap.Duration("interval", j.interval))
}

// Stop stops the sweep loop
func (j *HistoryJanitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}

func (j *HistoryJanitor) loop() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(j.ctx)
		}
	}
}

// Sweep removes stale turns once and returns how many were removed
func (j *HistoryJanitor) Sweep(ctx context.Context) int64 {
	n, err := j.historyRepo.CleanupStale(ctx, j.now().Add(-j.maxAge))
	if err != nil {
		j.log.Warn("cleanup failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		j.log.Info("removed stale turns", zap.Int64("count", n))
	}
	return n
}
