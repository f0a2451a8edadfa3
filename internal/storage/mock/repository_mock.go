package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/storage"
)

var (
	_ storage.LeadRepo    = (*LeadRepoMock)(nil)
	_ storage.HistoryRepo = (*HistoryRepoMock)(nil)
)

// --- LeadRepo Mock ---

// LeadRepoMock mocks the LeadRepo interface
type LeadRepoMock struct {
	mock.Mock
}

// Create mocks the Create method
func (m *LeadRepoMock) Create(ctx context.Context, record model.LeadRecord, ownerID string) (*model.Lead, error) {
	args := m.Called(ctx, record, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

// Update mocks the Update method
func (m *LeadRepoMock) Update(ctx context.Context, id string, patch model.LeadPatch, actorID string, expectedUpdatedAt *time.Time, check storage.UpdateCheck) (*model.Lead, model.FieldDiff, error) {
	args := m.Called(ctx, id, patch, actorID, expectedUpdatedAt, check)
	var lead *model.Lead
	if v := args.Get(0); v != nil {
		lead = v.(*model.Lead)
	}
	var diff model.FieldDiff
	if v := args.Get(1); v != nil {
		diff = v.(model.FieldDiff)
	}
	return lead, diff, args.Error(2)
}

// FindByID mocks the FindByID method
func (m *LeadRepoMock) FindByID(ctx context.Context, id string) (*model.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

// Delete mocks the Delete method
func (m *LeadRepoMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// List mocks the List method
func (m *LeadRepoMock) List(ctx context.Context, filter model.ListFilter) ([]model.Lead, int64, error) {
	args := m.Called(ctx, filter)
	var leads []model.Lead
	if v := args.Get(0); v != nil {
		leads = v.([]model.Lead)
	}
	return leads, args.Get(1).(int64), args.Error(2)
}

// CountByStatus mocks the CountByStatus method
func (m *LeadRepoMock) CountByStatus(ctx context.Context, ownerID string) (map[string]int64, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

// Close mocks the Close method
func (m *LeadRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- HistoryRepo Mock ---

// HistoryRepoMock mocks the HistoryRepo interface
type HistoryRepoMock struct {
	mock.Mock
}

// FindByLead mocks the FindByLead method
func (m *HistoryRepoMock) FindByLead(ctx context.Context, leadID string, limit int) ([]model.LeadHistory, error) {
	args := m.Called(ctx, leadID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LeadHistory), args.Error(1)
}

// Close mocks the Close method
func (m *HistoryRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
