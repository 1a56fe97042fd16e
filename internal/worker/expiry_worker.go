package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/booking-service/internal/service"
)

// Sweeper runs one expiry pass.
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// ExpiryWorkerConfig controls when the sweep runs.
type ExpiryWorkerConfig struct {
	Hour       int
	Minute     int
	Location   *time.Location
	RunOnStart bool
	LockKey    string
	LockTTL    time.Duration
}

// ExpiryWorker runs the sweep once a day at a fixed wall-clock time.
type ExpiryWorker struct {
	sweeper Sweeper
	locker  Locker
	cfg     ExpiryWorkerConfig
	logger  *zap.Logger
	now     func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewExpiryWorker builds the worker. A nil locker runs every tick unlocked.
func NewExpiryWorker(sweeper Sweeper, locker Locker, cfg ExpiryWorkerConfig, logger *zap.Logger) *ExpiryWorker {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryWorker{
		sweeper: sweeper,
		locker:  locker,
		cfg:     cfg,
		logger:  logger.Named("expiry_worker"),
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Start launches the schedule loop in the background.
func (w *ExpiryWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (w *ExpiryWorker) Stop() {
	w.once.Do(func() {
		if w.cancel == nil {
			close(w.done)
			return
		}
		w.cancel()
		<-w.done
	})
}

func (w *ExpiryWorker) loop(ctx context.Context) {
	defer close(w.done)

	if w.cfg.RunOnStart {
		w.RunOnce(ctx)
	}

	for {
		next := nextRun(w.now(), w.cfg.Hour, w.cfg.Minute, w.cfg.Location)
		w.logger.Info("next expiry sweep scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce takes the lock and sweeps. Failures are logged; the next tick retries.
func (w *ExpiryWorker) RunOnce(ctx context.Context) (service.SweepResult, bool) {
	release := noopRelease
	if w.locker != nil {
		rel, acquired, err := w.locker.TryLock(ctx, w.cfg.LockKey, w.cfg.LockTTL)
		if err != nil {
			w.logger.Warn("sweep lock error", zap.Error(err))
		}
		if !acquired {
			w.logger.Info("expiry sweep skipped; another instance holds the lock")
			return service.SweepResult{}, false
		}
		release = rel
	}
	defer release(context.WithoutCancel(ctx))

	result, err := w.sweeper.Sweep(ctx)
	if err != nil {
		w.logger.Error("expiry sweep failed; will retry next tick", zap.Error(err))
		return result, false
	}
	return result, true
}

// nextRun returns the first hour:minute in loc strictly after now.
func nextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}
