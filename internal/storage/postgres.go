package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
)

// --- Retry Logic Configuration ---
const (
	defaultRetryInitialInterval = 50 * time.Millisecond
	defaultRetryMaxInterval     = 2 * time.Second
	readRetryMaxElapsedTime     = 5 * time.Second  // More aggressive for reads
	commitRetryMaxElapsedTime   = 15 * time.Second // More tolerant for commits
)

// newRetryPolicy creates a new exponential backoff policy with context awareness.
func newRetryPolicy(ctx context.Context, maxElapsedTime time.Duration) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultRetryInitialInterval
	b.MaxInterval = defaultRetryMaxInterval
	b.MaxElapsedTime = maxElapsedTime
	b.Reset() // Important: Reset before first use
	return backoff.WithContext(b, ctx)
}

// retryableOperation wraps a database operation with retry logic.
func retryableOperation(ctx context.Context, policy backoff.BackOffContext, opName string, operation func() error) error {
	notify := func(err error, d time.Duration) {
		logger.FromContext(ctx).Warn("Retrying DB operation",
			zap.String("operation", opName),
			zap.Error(err),
			zap.Duration("after", d),
		)
	}

	err := backoff.RetryNotify(func() error {
		err := operation()
		if err != nil {
			if apperrors.IsFatal(err) {
				return backoff.Permanent(err)
			}
			if apperrors.IsRetryable(err) {
				return err
			}
			// Check for non-retryable errors first
			if errors.Is(err, gorm.ErrRecordNotFound) ||
				errors.Is(err, gorm.ErrInvalidTransaction) ||
				errors.Is(err, gorm.ErrDuplicatedKey) || // Assuming TranslateError=true
				errors.Is(err, gorm.ErrForeignKeyViolated) { // Assuming TranslateError=true
				return backoff.Permanent(err) // Don't retry these GORM errors
			}
			// Check for potentially transient errors
			if isTransientError(err) {
				return err // Retry transient errors
			}
			// Treat other errors as permanent by default
			return backoff.Permanent(err)
		}
		return nil // Success
	}, policy, notify)

	return err
}

// isTransientError checks if the error suggests a temporary issue like a network problem.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	// Check for context deadline exceeded, often indicates a timeout
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Use specific pg driver error checks if possible (example for pgx/v5)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Add specific PostgreSQL error codes that indicate transient issues
		// See https://www.postgresql.org/docs/current/errcodes-appendix.html
		// Class 08: Connection Exception
		// Class 53: Insufficient Resources
		if strings.HasPrefix(pgErr.Code, "08") ||
			strings.HasPrefix(pgErr.Code, "53") ||
			strings.HasPrefix(pgErr.Code, "40P01") ||
			strings.HasPrefix(pgErr.Code, "40001") {
			return true // Retry connection and resource errors
		}
		// Consider 40P01 (Deadlock) or 40001 (Serialization Failure) if tx logic handles retries appropriately
	}

	// Fallback to string matching for common network-related errors
	errStr := strings.ToLower(err.Error())
	transientIndicators := []string{
		"connection refused",
		"network is unreachable",
		"i/o timeout",
		"broken pipe",
		"connection reset by peer",
		"could not translate host name",
		"no route to host",
		"database system is starting up", // Might occur during failover/restart
		"connection timed out",
		"connection reset", // Generic reset indicator
		// Add other specific error messages from your pg driver if needed
	}
	for _, indicator := range transientIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// PostgresRepo implements the lead and history repositories.
type PostgresRepo struct {
	db *gorm.DB
}

// NewPostgresRepo connects to PostgreSQL, retrying transient failures, and
// migrates the lead tables when autoMigrate is set.
func NewPostgresRepo(dsn string, autoMigrate bool) (*PostgresRepo, error) {
	connect := func() (*gorm.DB, error) {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			if isTransientError(err) {
				logger.Log.Warn("Failed to connect to postgres (transient), retrying...", zap.Error(err))
				return nil, err
			}
			return nil, backoff.Permanent(apperrors.NewFatal(err, "failed to connect to postgres"))
		}
		return db, nil
	}

	notify := func(err error, d time.Duration) {
		logger.Log.Warn("Retrying DB connection", zap.Error(err), zap.Duration("after", d))
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 15 * time.Second
	b.MaxElapsedTime = 1 * time.Minute

	db, err := backoff.RetryNotifyWithData(connect, b, notify)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres after retries: %w", err)
	}

	repo := &PostgresRepo{db: db}
	if !autoMigrate {
		logger.Log.Info("Auto-migration disabled")
		return repo, nil
	}

	logger.Log.Info("Running auto-migration")
	if err := repo.Migrate(); err != nil {
		_ = repo.Close(context.Background())
		return nil, err
	}
	return repo, nil
}

// Migrate creates or updates the leads and lead_history tables and their indexes.
func (r *PostgresRepo) Migrate() error {
	if err := r.db.AutoMigrate(&model.Lead{}, &model.LeadHistory{}); err != nil {
		logger.Log.Error("Auto-migration failed", zap.Error(err))
		return fmt.Errorf("%w: auto-migration failed: %w", apperrors.ErrDatabase, err)
	}
	for _, table := range []string{"leads", "lead_history"} {
		if !r.db.Migrator().HasTable(table) {
			return fmt.Errorf("%w: table %s does not exist after auto-migration", apperrors.ErrDatabase, table)
		}
	}
	logger.Log.Debug("Lead tables verified post-migration")
	return nil
}

// Ping checks that the database answers. Used by the readiness probe.
func (r *PostgresRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("%w: failed to get SQL DB: %w", apperrors.ErrDatabase, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping failed: %w", apperrors.ErrDatabase, err)
	}
	return nil
}

// inTx runs fn in a transaction: rolled back when fn fails or panics, committed otherwise.
func (r *PostgresRepo) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
	}
	var txErr error
	defer func() {
		if rec := recover(); rec != nil {
			tx.Rollback()
			panic(rec)
		} else if txErr != nil {
			if rbErr := tx.Rollback().Error; rbErr != nil {
				logger.FromContext(ctx).Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
			}
		}
	}()

	if txErr = fn(tx); txErr != nil {
		return txErr
	}
	if commitErr := tx.Commit().Error; commitErr != nil {
		txErr = fmt.Errorf("%w: failed to commit transaction: %w", apperrors.ErrDatabase, commitErr)
		return txErr
	}
	return nil
}

// Close closes the database connection
func (r *PostgresRepo) Close(ctx context.Context) error {
	// Attempt to get the underlying sql.DB connection
	sqlDB, err := r.db.DB()
	if err != nil {
		// Log if we can't get the DB instance, but don't necessarily fail Close
		logger.FromContext(ctx).Warn("Failed to get underlying SQL DB for closing", zap.Error(err))
		return nil // Or return the error if preferred: fmt.Errorf("failed to get SQL DB: %w", err)
	}

	// Close the connection
	closeErr := sqlDB.Close()
	if closeErr != nil {
		logger.FromContext(ctx).Error("Failed to close database connection", zap.Error(closeErr))
		return fmt.Errorf("failed to close SQL DB: %w", closeErr)
	}

	logger.FromContext(ctx).Info("Database connection closed successfully")
	return nil
}

// checkConstraintViolation inspects database errors and maps them to standard apperrors.
func checkConstraintViolation(err error) error {
	if err == nil {
		return nil
	}

	// Check for specific GORM errors first
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", apperrors.ErrNotFound, err)
	}
	// Add other specific GORM errors if needed (e.g., gorm.ErrInvalidData)

	// Check for underlying pgconn errors
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		// Class 23: Integrity Constraint Violation
		case "23505": // unique_violation
			return fmt.Errorf("%w: constraint %s: %w", apperrors.ErrDuplicate, pgErr.ConstraintName, err)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: constraint %s: %w", apperrors.ErrBadRequest, pgErr.ConstraintName, err)
		case "23502": // not_null_violation
			return fmt.Errorf("%w: null value in column %s: %w", apperrors.ErrBadRequest, pgErr.ColumnName, err)
		case "23514": // check_violation
			return fmt.Errorf("%w: constraint %s: %w", apperrors.ErrBadRequest, pgErr.ConstraintName, err)

		// Class 22: Data Exception
		case "22001": // string_data_right_truncation
			return fmt.Errorf("%w: value too long for column %s: %w", apperrors.ErrBadRequest, pgErr.ColumnName, err)
		case "22P02": // invalid_text_representation
			return fmt.Errorf("%w: invalid input syntax for type %s: %w", apperrors.ErrBadRequest, pgErr.DataTypeName, err)

		// Class 40: Transaction Rollback
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return apperrors.NewRetryable(fmt.Errorf("%w: %w", apperrors.ErrDatabase, err), "transaction rollback (%s)", pgErr.Code)

		default:
			// Check error code prefixes for broader categories
			if strings.HasPrefix(pgErr.Code, "53") { // Class 53: Insufficient Resources
				return fmt.Errorf("%w: insufficient resources (%s): %w", apperrors.ErrDatabase, pgErr.Code, err)
			}
			if strings.HasPrefix(pgErr.Code, "08") { // Class 08: Connection Exception
				return fmt.Errorf("%w: connection error (%s): %w", apperrors.ErrDatabase, pgErr.Code, err)
			}
			// Wrap unhandled specific PgErrors as general database errors
			return fmt.Errorf("%w: unhandled pgcode %s: %w", apperrors.ErrDatabase, pgErr.Code, err)
		}
	}

	// Assume other GORM or generic errors are general database errors for now
	// This catches things like gorm.ErrInvalidTransaction, context deadline exceeded wrapped by GORM etc.
	return fmt.Errorf("%w: %w", apperrors.ErrDatabase, err)
}
