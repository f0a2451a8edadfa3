package storage

import (
	"context"
	"time"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
)

// LeadRepoAdapter adapts the PostgresRepo to the LeadRepo interface
type LeadRepoAdapter struct {
	postgres *PostgresRepo
}

// NewLeadRepoAdapter creates a new lead repository adapter
func NewLeadRepoAdapter(postgres *PostgresRepo) LeadRepo {
	return &LeadRepoAdapter{postgres: postgres}
}

// Create inserts a lead
func (a *LeadRepoAdapter) Create(ctx context.Context, record model.LeadRecord, ownerID string) (*model.Lead, error) {
	return a.postgres.CreateLead(ctx, record, ownerID)
}

// Update patches a lead
func (a *LeadRepoAdapter) Update(ctx context.Context, id string, patch model.LeadPatch, actorID string, expectedUpdatedAt *time.Time, check UpdateCheck) (*model.Lead, model.FieldDiff, error) {
	return a.postgres.UpdateLead(ctx, id, patch, actorID, expectedUpdatedAt, check)
}

// FindByID finds a lead by ID
func (a *LeadRepoAdapter) FindByID(ctx context.Context, id string) (*model.Lead, error) {
	return a.postgres.FindLeadByID(ctx, id)
}

// Delete removes a lead and its history
func (a *LeadRepoAdapter) Delete(ctx context.Context, id string) error {
	return a.postgres.DeleteLead(ctx, id)
}

// List returns one page of leads and the total match count
func (a *LeadRepoAdapter) List(ctx context.Context, filter model.ListFilter) ([]model.Lead, int64, error) {
	return a.postgres.ListLeads(ctx, filter)
}

// CountByStatus counts leads per status
func (a *LeadRepoAdapter) CountByStatus(ctx context.Context, ownerID string) (map[string]int64, error) {
	return a.postgres.CountLeadsByStatus(ctx, ownerID)
}

func (a *LeadRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// HistoryRepoAdapter adapts the PostgresRepo to the HistoryRepo interface
type HistoryRepoAdapter struct {
	postgres *PostgresRepo
}

// NewHistoryRepoAdapter creates a new history repository adapter
func NewHistoryRepoAdapter(postgres *PostgresRepo) HistoryRepo {
	return &HistoryRepoAdapter{postgres: postgres}
}

// FindByLead returns the latest history entries of a lead
func (a *HistoryRepoAdapter) FindByLead(ctx context.Context, leadID string, limit int) ([]model.LeadHistory, error) {
	return a.postgres.FindHistoryByLead(ctx, leadID, limit)
}

func (a *HistoryRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}
