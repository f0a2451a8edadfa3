package storage

import (
	"context"
	"time"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
)

// LeadRepo defines lead storage operations
// UpdateCheck validates a patch against the stored record it will be applied to.
type UpdateCheck func(current *model.Lead, patch model.LeadPatch) error

type LeadRepo interface {
	// Create inserts a validated record together with its creation history entry.
	Create(ctx context.Context, record model.LeadRecord, ownerID string) (*model.Lead, error)
	// Update applies patch under a row lock. When expectedUpdatedAt is set it must match
	// the stored timestamp, otherwise apperrors.ErrConflict is returned. A history entry
	// is appended only when the returned diff is non-empty. check, when set, runs on the
	// locked row before anything is written and may adjust patch; its error aborts the update.
	Update(ctx context.Context, id string, patch model.LeadPatch, actorID string, expectedUpdatedAt *time.Time, check UpdateCheck) (*model.Lead, model.FieldDiff, error)
	FindByID(ctx context.Context, id string) (*model.Lead, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter model.ListFilter) ([]model.Lead, int64, error)
	CountByStatus(ctx context.Context, ownerID string) (map[string]int64, error)
	Close(ctx context.Context) error
}

// HistoryRepo defines lead history storage operations
type HistoryRepo interface {
	// FindByLead returns the most recent entries first.
	FindByLead(ctx context.Context, leadID string, limit int) ([]model.LeadHistory, error)
	Close(ctx context.Context) error
}
