package task

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/justice-digital/incentives-engine/internal/models"
	"github.com/justice-digital/incentives-engine/pkg/config"
)

const lockKey = "kpi:daily-run"

type kpiRunner interface {
	RunDaily(ctx context.Context, day time.Time) (*models.KpiSnapshot, bool, error)
}

type lockStore interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// KpiTask drives the daily snapshot on a ticker. A distributed lock keeps
// multiple replicas from computing the same day at once; the snapshot
// insert stays idempotent even when the lock is lost.
type KpiTask struct {
	runner kpiRunner
	locks  lockStore
	cfg    config.KPIConfig
	logger *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewKpiTask constructs the task.
func NewKpiTask(runner kpiRunner, locks lockStore, cfg config.KPIConfig, logger *zap.Logger) *KpiTask {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KpiTask{runner: runner, locks: locks, cfg: cfg, logger: logger}
}

// Start launches the ticker loop. One run fires immediately on start so a
// freshly deployed instance does not wait a full interval.
func (t *KpiTask) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go t.loop(ctx)
	t.logger.Info("kpi task started", zap.Duration("interval", t.cfg.Interval))
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (t *KpiTask) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	t.wg.Wait()
	t.logger.Info("kpi task stopped")
}

func (t *KpiTask) loop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	t.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runOnce(ctx)
		}
	}
}

func (t *KpiTask) runOnce(ctx context.Context) {
	acquired, err := t.locks.AcquireLock(ctx, lockKey, t.cfg.LockTTL)
	if err != nil {
		t.logger.Warn("kpi lock unavailable, skipping run", zap.Error(err))
		return
	}
	if !acquired {
		t.logger.Info("kpi run held elsewhere, skipping")
		return
	}
	defer func() {
		if err := t.locks.ReleaseLock(ctx, lockKey); err != nil {
			t.logger.Warn("kpi lock release failed", zap.Error(err))
		}
	}()

	day := time.Now().UTC()
	if _, _, err := t.runner.RunDaily(ctx, day); err != nil {
		t.logger.Error("kpi run failed", zap.Time("day", day), zap.Error(err))
	}
}
