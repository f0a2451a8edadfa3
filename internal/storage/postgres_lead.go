package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/audit"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/observer"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/utils"
)

// --- Lead Repository Methods ---

// now returns the current time at the precision PostgreSQL stores, so that a
// timestamp handed to a client compares equal when it comes back as a token.
func now() time.Time {
	return utils.Now().Truncate(time.Microsecond)
}

// CreateLead inserts a lead and its "created" history entry in one transaction.
func (r *PostgresRepo) CreateLead(ctx context.Context, record model.LeadRecord, ownerID string) (*model.Lead, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", apperrors.ErrBadRequest)
	}
	record.Tags = datatypes.JSONSlice[string](record.TagList())

	diff, err := json.Marshal(audit.CreatedDiff(record))
	if err != nil {
		return nil, fmt.Errorf("failed to encode created diff: %w", err)
	}

	ts := now()
	lead := &model.Lead{
		ID:         uuid.NewString(),
		LeadRecord: record,
		OwnerID:    ownerID,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	entry := &model.LeadHistory{
		ID:        uuid.NewString(),
		LeadID:    lead.ID,
		ChangedBy: ownerID,
		ChangedAt: ts,
		Diff:      datatypes.JSON(diff),
	}

	operation := func() error {
		return r.inTx(ctx, func(tx *gorm.DB) error {
			if err := tx.Omit(clause.Associations).Create(lead).Error; err != nil {
				return checkConstraintViolation(err)
			}
			if err := tx.Create(entry).Error; err != nil {
				return checkConstraintViolation(err)
			}
			return nil
		})
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "CreateLead Commit", operation)
	observer.ObserveDbOperationDuration("create", "lead", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to create lead after retries", zap.Error(commitErr))
		return nil, commitErr
	}
	return lead, nil
}

// UpdateLead locks the row, checks the concurrency token, runs check against the
// locked row, applies patch and appends a history entry when at least one value
// changed. updated_at always advances.
func (r *PostgresRepo) UpdateLead(ctx context.Context, id string, patch model.LeadPatch, actorID string, expectedUpdatedAt *time.Time, check UpdateCheck) (*model.Lead, model.FieldDiff, error) {
	var (
		updated model.Lead
		diff    model.FieldDiff
	)

	operation := func() error {
		return r.inTx(ctx, func(tx *gorm.DB) error {
			var current model.Lead
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", id).
				First(&current).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: lead %s", apperrors.ErrNotFound, id)
				}
				return fmt.Errorf("%w: failed to lock lead row: %w", apperrors.ErrDatabase, err)
			}

			if expectedUpdatedAt != nil && !sameInstant(*expectedUpdatedAt, current.UpdatedAt) {
				return fmt.Errorf("%w: lead %s was updated at %s", apperrors.ErrConflict, id, utils.FormatISO8601(current.UpdatedAt))
			}

			if check != nil {
				if err := check(&current, patch); err != nil {
					return err
				}
			}

			diff = audit.Diff(&current, patch)

			ts := now()
			if !ts.After(current.UpdatedAt) {
				ts = current.UpdatedAt.Add(time.Microsecond)
			}
			cols := patch.Columns()
			cols["updated_at"] = ts
			if err := tx.Model(&model.Lead{}).Where("id = ?", id).Updates(cols).Error; err != nil {
				return checkConstraintViolation(err)
			}

			if !diff.Empty() {
				raw, err := json.Marshal(diff)
				if err != nil {
					return fmt.Errorf("failed to encode diff: %w", err)
				}
				entry := &model.LeadHistory{
					ID:        uuid.NewString(),
					LeadID:    id,
					ChangedBy: actorID,
					ChangedAt: ts,
					Diff:      datatypes.JSON(raw),
				}
				if err := tx.Create(entry).Error; err != nil {
					return checkConstraintViolation(err)
				}
			}

			current.Apply(patch)
			current.UpdatedAt = ts
			updated = current
			return nil
		})
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateLead Commit", operation)
	observer.ObserveDbOperationDuration("update", "lead", time.Since(startTime), commitErr)
	if commitErr != nil {
		if !apperrors.IsNotFoundError(commitErr) && !apperrors.IsConflictError(commitErr) {
			logger.FromContext(ctx).Error("Failed to update lead after retries", zap.String("lead_id", id), zap.Error(commitErr))
		}
		return nil, nil, commitErr
	}
	return &updated, diff, nil
}

// sameInstant compares timestamps at the stored precision.
func sameInstant(a, b time.Time) bool {
	return a.Truncate(time.Microsecond).Equal(b.Truncate(time.Microsecond))
}

// FindLeadByID retrieves a lead by its ID.
func (r *PostgresRepo) FindLeadByID(ctx context.Context, id string) (*model.Lead, error) {
	var lead model.Lead
	operation := func() error {
		err := r.db.WithContext(ctx).Where("id = ?", id).First(&lead).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: lead %s", apperrors.ErrNotFound, id)
		}
		if err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, readPolicy, "FindLeadByID", operation)
	observer.ObserveDbOperationDuration("find", "lead", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// DeleteLead removes a lead. History rows go with it.
func (r *PostgresRepo) DeleteLead(ctx context.Context, id string) error {
	operation := func() error {
		return r.inTx(ctx, func(tx *gorm.DB) error {
			if err := tx.Where("lead_id = ?", id).Delete(&model.LeadHistory{}).Error; err != nil {
				return checkConstraintViolation(err)
			}
			result := tx.Where("id = ?", id).Delete(&model.Lead{})
			if result.Error != nil {
				return checkConstraintViolation(result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: lead %s", apperrors.ErrNotFound, id)
			}
			return nil
		})
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, commitPolicy, "DeleteLead Commit", operation)
	observer.ObserveDbOperationDuration("delete", "lead", time.Since(startTime), err)
	if err != nil && !apperrors.IsNotFoundError(err) {
		logger.FromContext(ctx).Error("Failed to delete lead", zap.String("lead_id", id), zap.Error(err))
	}
	return err
}

// ListLeads returns one page of leads matching filter and the total number of matches.
func (r *PostgresRepo) ListLeads(ctx context.Context, filter model.ListFilter) ([]model.Lead, int64, error) {
	var (
		leads []model.Lead
		total int64
	)
	operation := func() error {
		query := applyListFilter(r.db.WithContext(ctx).Model(&model.Lead{}), filter).Session(&gorm.Session{})
		if err := query.Count(&total).Error; err != nil {
			return checkConstraintViolation(err)
		}
		if total == 0 {
			leads = []model.Lead{}
			return nil
		}
		err := query.Order(filter.OrderClause()).
			Limit(filter.Limit).
			Offset(filter.Offset()).
			Find(&leads).Error
		if err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, readPolicy, "ListLeads", operation)
	observer.ObserveDbOperationDuration("list", "lead", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to list leads", zap.Error(err))
		return nil, 0, err
	}
	return leads, total, nil
}

func applyListFilter(query *gorm.DB, filter model.ListFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		query = query.Where(
			"full_name ILIKE ? OR phone ILIKE ? OR email ILIKE ? OR notes ILIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}
	if filter.PropertyType != "" {
		query = query.Where("property_type = ?", filter.PropertyType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Timeline != "" {
		query = query.Where("timeline = ?", filter.Timeline)
	}
	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	return query
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user text match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// CountLeadsByStatus counts leads per status, optionally restricted to one owner.
func (r *PostgresRepo) CountLeadsByStatus(ctx context.Context, ownerID string) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	operation := func() error {
		query := r.db.WithContext(ctx).Model(&model.Lead{})
		if ownerID != "" {
			query = query.Where("owner_id = ?", ownerID)
		}
		err := query.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error
		if err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, readPolicy, "CountLeadsByStatus", operation)
	observer.ObserveDbOperationDuration("count", "lead", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
