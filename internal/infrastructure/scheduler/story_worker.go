package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ledgerline/backend/internal/application/companion"
)

// StoryWorkerConfig holds configuration for the story regeneration worker
type StoryWorkerConfig struct {
	// Enabled determines if the worker is active
	Enabled bool

	// Interval is how often the worker drains dirty tenants
	Interval time.Duration

	// BatchSize caps how many tenants one pass regenerates
	BatchSize int

	// PassTimeout is the maximum time for one drain pass
	PassTimeout time.Duration
}

// DefaultStoryWorkerConfig returns default worker configuration
func DefaultStoryWorkerConfig() StoryWorkerConfig {
	return StoryWorkerConfig{
		Enabled:     true,
		Interval:    1 * time.Minute,
		BatchSize:   20,
		PassTimeout: 5 * time.Minute,
	}
}

// StoryWorker periodically regenerates tenant stories flagged dirty.
// It is the only path that calls the advisor for narratives; HTTP reads
// never do.
type StoryWorker struct {
	service   *companion.StoryService
	logger    *zap.Logger
	config    StoryWorkerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewStoryWorker creates a new story regeneration worker
func NewStoryWorker(service *companion.StoryService, logger *zap.Logger, config StoryWorkerConfig) *StoryWorker {
	return &StoryWorker{
		service: service,
		logger:  logger,
		config:  config,
	}
}

// Start starts the story worker
func (w *StoryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	if !w.config.Enabled {
		w.mu.Unlock()
		w.logger.Info("Story worker is disabled")
		return nil
	}
	w.isRunning = true
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.runLoop(ctx)

	w.logger.Info("Story worker started",
		zap.Duration("interval", w.config.Interval),
		zap.Int("batch_size", w.config.BatchSize),
	)
	return nil
}

// Stop gracefully stops the worker
func (w *StoryWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Story worker stopped")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Story worker stop timed out")
		return ctx.Err()
	}
}

// runLoop drains dirty tenants on a fixed interval
func (w *StoryWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainOnce(ctx)
		}
	}
}

// drainOnce runs one bounded regeneration pass
func (w *StoryWorker) drainOnce(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, w.config.PassTimeout)
	defer cancel()

	drained, err := w.service.DrainDirty(passCtx, w.config.BatchSize)
	if err != nil {
		w.logger.Error("Story drain pass failed", zap.Error(err))
		return
	}
	if drained > 0 {
		w.logger.Info("Regenerated tenant stories", zap.Int("count", drained))
	}
}
