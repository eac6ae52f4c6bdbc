package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

// OutboxConfig holds configuration for the side effect worker
type OutboxConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	MaxAttempts     int
	BaseBackoff     time.Duration
	MaxBackoff      time.Duration
	DeliveryTimeout time.Duration

	// JitterPercent spreads retries by up to +/- this share of the delay; 0 disables it
	JitterPercent uint64
}

// DefaultOutboxConfig returns default configuration
func DefaultOutboxConfig() OutboxConfig {
	return OutboxConfig{
		PollInterval:    5 * time.Second,
		BatchSize:       20,
		MaxAttempts:     8,
		BaseBackoff:     10 * time.Second,
		MaxBackoff:      time.Hour,
		DeliveryTimeout: 30 * time.Second,
		JitterPercent:   20,
	}
}

// Deliverer performs one outbox entry
type Deliverer interface {
	Deliver(ctx context.Context, effect *entity.SideEffect) error
}

// OutboxStats is a point in time view of the worker counters
type OutboxStats struct {
	Delivered int
	Retried   int
	Dead      int
	LastRun   time.Time
	LastError string
}

// OutboxWorker delivers pending side effects. Failed entries are retried
// with jittered exponential backoff until MaxAttempts, then parked as dead.
type OutboxWorker struct {
	config    OutboxConfig
	outbox    port.SideEffectRepository
	deliverer Deliverer
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	stats   OutboxStats
}

// NewOutboxWorker creates a new outbox worker
func NewOutboxWorker(config OutboxConfig, outbox port.SideEffectRepository, deliverer Deliverer, logger *zap.Logger) *OutboxWorker {
	return &OutboxWorker{
		config:    config,
		outbox:    outbox,
		deliverer: deliverer,
		logger:    logger,
		now:       time.Now,
	}
}

// Start begins the polling loop
func (w *OutboxWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("outbox worker already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running = true

	w.logger.Info("OutboxWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
		zap.Int("max_attempts", w.config.MaxAttempts))

	go w.pollLoop(ctx, w.done)
	return nil
}

// Stop terminates the loop and waits for the current batch to finish
func (w *OutboxWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done
	stats := w.Stats()
	w.logger.Info("OutboxWorker stopped",
		zap.Int("delivered", stats.Delivered),
		zap.Int("retried", stats.Retried),
		zap.Int("dead", stats.Dead))
	return nil
}

// Name returns the worker name for identification
func (w *OutboxWorker) Name() string {
	return "OutboxWorker"
}

// Stats returns the worker counters
func (w *OutboxWorker) Stats() OutboxStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *OutboxWorker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessDue(ctx); err != nil {
				w.logger.Error("Failed to process side effects", zap.Error(err))
			}
		}
	}
}

// ProcessDue delivers one batch of due entries and returns how many were
// attempted
func (w *OutboxWorker) ProcessDue(ctx context.Context) (int, error) {
	due, err := w.outbox.GetDue(ctx, w.now(), w.config.BatchSize)
	if err != nil {
		w.record(func(s *OutboxStats) { s.LastError = err.Error() })
		return 0, fmt.Errorf("failed to load due side effects: %w", err)
	}

	for _, effect := range due {
		if ctx.Err() != nil {
			break
		}
		w.process(ctx, effect)
	}
	w.record(func(s *OutboxStats) { s.LastRun = w.now() })
	return len(due), nil
}

func (w *OutboxWorker) process(ctx context.Context, effect *entity.SideEffect) {
	deliverCtx, cancel := context.WithTimeout(ctx, w.config.DeliveryTimeout)
	defer cancel()

	deliverErr := w.deliverer.Deliver(deliverCtx, effect)
	if deliverErr == nil {
		if err := w.outbox.MarkDone(ctx, effect.ID); err != nil {
			w.logger.Error("Failed to mark side effect done", zap.String("side_effect_id", effect.ID), zap.Error(err))
			return
		}
		w.record(func(s *OutboxStats) { s.Delivered++ })
		w.logger.Debug("Side effect delivered",
			zap.String("side_effect_id", effect.ID),
			zap.String("effect", effect.Effect),
			zap.String("report_id", effect.ReportID))
		return
	}

	attempt := effect.Attempts + 1
	dead := attempt >= w.config.MaxAttempts
	next := w.now().Add(w.backoff(attempt))
	if err := w.outbox.MarkFailed(ctx, effect.ID, deliverErr.Error(), next, dead); err != nil {
		w.logger.Error("Failed to record side effect failure", zap.String("side_effect_id", effect.ID), zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.String("side_effect_id", effect.ID),
		zap.String("effect", effect.Effect),
		zap.String("report_id", effect.ReportID),
		zap.Int("attempt", attempt),
		zap.Error(deliverErr),
	}
	if dead {
		w.record(func(s *OutboxStats) { s.Dead++; s.LastError = deliverErr.Error() })
		w.logger.Error("Side effect gave up", fields...)
		return
	}
	w.record(func(s *OutboxStats) { s.Retried++; s.LastError = deliverErr.Error() })
	w.logger.Warn("Side effect failed, will retry", append(fields, zap.Time("next_attempt_at", next))...)
}

// backoff is the delay before the given attempt is retried. Jitter is
// applied before the cap, so MaxBackoff is never exceeded.
func (w *OutboxWorker) backoff(attempt int) time.Duration {
	var b retry.Backoff = retry.NewExponential(w.config.BaseBackoff)
	if w.config.JitterPercent > 0 {
		b = retry.WithJitterPercent(w.config.JitterPercent, b)
	}
	b = retry.WithCappedDuration(w.config.MaxBackoff, b)
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d, _ = b.Next()
	}
	return d
}

func (w *OutboxWorker) record(fn func(*OutboxStats)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.stats)
}

var _ Worker = (*OutboxWorker)(nil)
