package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/config"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/csvio"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/observer"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/validator"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
)

// RowOutcome is the validation result for one import row.
type RowOutcome struct {
	Record model.LeadRecord
	Errors apperrors.FieldErrors
}

// IValidationPool validates import rows, possibly in parallel.
type IValidationPool interface {
	// ValidateRows returns one outcome per row, in input order.
	ValidateRows(ctx context.Context, rows []csvio.Row) ([]RowOutcome, error)
	Stop()
}

// validationTask is one row handed to a worker.
type validationTask struct {
	ctx  context.Context
	row  csvio.Row
	out  *RowOutcome
	done func()
}

// ValidationPool manages the worker pool that validates import rows.
type ValidationPool struct {
	pool       *ants.PoolWithFunc
	cfg        config.ValidationWorkerPoolConfig
	baseLogger *zap.Logger
	running    atomic.Int32
}

// Ensure ValidationPool implements IValidationPool
var _ IValidationPool = (*ValidationPool)(nil)

// NewValidationPool creates and initializes the validation worker pool.
func NewValidationPool(cfg config.ValidationWorkerPoolConfig, baseLogger *zap.Logger) (*ValidationPool, error) {
	if cfg.PoolSize <= 0 {
		return nil, fmt.Errorf("validation pool size must be positive, got %d", cfg.PoolSize)
	}
	worker := &ValidationPool{
		cfg:        cfg,
		baseLogger: baseLogger.Named("validation_pool"),
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		task, ok := i.(*validationTask)
		if !ok {
			worker.baseLogger.Error("Invalid task data type received", zap.Any("data", i))
			return
		}
		worker.process(task)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(err interface{}) {
			worker.baseLogger.Error("Panic recovered in validation worker", zap.Any("panic_error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation worker pool: %w", err)
	}
	worker.pool = pool
	worker.baseLogger.Info("Validation worker pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("expiry_time", cfg.ExpiryTime),
		zap.Duration("max_block_time", cfg.MaxBlock),
	)
	return worker, nil
}

// ValidateRows fans rows out to the pool and waits for every result. A row whose
// submission is refused is validated on the calling goroutine instead.
func (w *ValidationPool) ValidateRows(ctx context.Context, rows []csvio.Row) ([]RowOutcome, error) {
	log := logger.FromContextOr(ctx, w.baseLogger)
	outcomes := make([]RowOutcome, len(rows))

	var wg sync.WaitGroup
	for i := range rows {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		task := &validationTask{ctx: ctx, row: rows[i], out: &outcomes[i], done: wg.Done}
		observer.IncValidationTasksSubmitted()
		if err := w.pool.Invoke(task); err != nil {
			if errors.Is(err, ants.ErrPoolOverload) || errors.Is(err, ants.ErrPoolClosed) {
				log.Debug("Validation pool unavailable, validating row inline", zap.Int("row", i+1), zap.Error(err))
			} else {
				log.Warn("Failed to submit validation task", zap.Int("row", i+1), zap.Error(err))
			}
			w.process(task)
		}
	}

	if err := w.wait(ctx, &wg); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// wait blocks until every task finished, ctx is done or MaxBlock elapsed.
func (w *ValidationPool) wait(ctx context.Context, wg *sync.WaitGroup) error {
	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	var timeout <-chan time.Time
	if w.cfg.MaxBlock > 0 {
		timer := time.NewTimer(w.cfg.MaxBlock)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return fmt.Errorf("%w: row validation did not finish within %s", apperrors.ErrTimeout, w.cfg.MaxBlock)
	}
}

// process validates one row. A panic becomes a row error instead of a lost result.
func (w *ValidationPool) process(task *validationTask) {
	start := time.Now()
	observer.SetValidationWorkersRunning(int(w.running.Add(1)))
	defer func() {
		if r := recover(); r != nil {
			logger.FromContextOr(task.ctx, w.baseLogger).Error("Panic recovered while validating row",
				zap.Any("panic_error", r), zap.Stack("stack"))
			*task.out = RowOutcome{Errors: apperrors.FieldErrors{{Field: "row", Message: "could not be validated"}}}
		}
		observer.SetValidationWorkersRunning(int(w.running.Add(-1)))
		observer.ObserveValidationDuration(time.Since(start))
		task.done()
	}()

	*task.out = validateRow(task.row)
}

// Stop gracefully shuts down the worker pool.
func (w *ValidationPool) Stop() {
	if w.pool != nil {
		w.baseLogger.Info("Releasing validation worker pool")
		start := time.Now()
		w.pool.Release()
		w.baseLogger.Info("Validation worker pool released", zap.Duration("duration", time.Since(start)))
	}
}

// validateRow adapts a raw CSV row and runs the full record validation on it.
func validateRow(row csvio.Row) RowOutcome {
	result := validator.ValidateLead(csvio.AdaptRow(row))
	return RowOutcome{Record: result.Value, Errors: result.Errors}
}

// validateRowsSync is used when no pool is configured.
func validateRowsSync(rows []csvio.Row) []RowOutcome {
	outcomes := make([]RowOutcome, len(rows))
	for i, row := range rows {
		outcomes[i] = validateRow(row)
	}
	return outcomes
}
