package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/observer"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/utils"
)

// --- Lead History Repository Methods ---

// FindHistoryByLead returns up to limit history entries of a lead, newest first.
// A non-positive limit returns every entry.
func (r *PostgresRepo) FindHistoryByLead(ctx context.Context, leadID string, limit int) ([]model.LeadHistory, error) {
	var entries []model.LeadHistory
	operation := func() error {
		query := r.db.WithContext(ctx).
			Where("lead_id = ?", leadID).
			Order("changed_at DESC, id DESC")
		if limit > 0 {
			query = query.Limit(limit)
		}
		if err := query.Find(&entries).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, readPolicy, "FindHistoryByLead", operation)
	observer.ObserveDbOperationDuration("find", "lead_history", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to load lead history", zap.String("lead_id", leadID), zap.Error(err))
		return nil, err
	}
	if entries == nil {
		entries = []model.LeadHistory{}
	}
	return entries, nil
}
