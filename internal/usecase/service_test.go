package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/csvio"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/identity"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
	storagemock "gitlab.com/timkado/api/buyer-lead-crm/internal/storage/mock"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
)

func init() {
	// Initialize logger for tests
	logger.Log = zaptest.NewLogger(nil).Named("test")
}

var (
	owner = identity.Identity{UserID: "7d0b2b1e-6c55-4f0e-9d8b-1f8f3f6e2a01", Email: "owner@example.com", Role: identity.RoleUser}
	other = identity.Identity{UserID: "c3a1f0a4-2b7e-4c1d-8e55-0b9a7e6d4c02", Email: "other@example.com", Role: identity.RoleUser}
	admin = identity.Identity{UserID: "e8f4b6c2-9a3d-4e7f-b1c0-5d2a8f9e3b03", Email: "admin@example.com", Role: identity.RoleAdmin}
)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []model.LeadEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event model.LeadEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []model.LeadEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.LeadEvent(nil), p.events...)
}

type serviceFixture struct {
	service     *LeadService
	leadRepo    *storagemock.LeadRepoMock
	historyRepo *storagemock.HistoryRepoMock
	publisher   *recordingPublisher
	logs        *observer.ObservedLogs
	ctx         context.Context
}

func newServiceFixture(t *testing.T, pool IValidationPool, opts Options) *serviceFixture {
	t.Helper()
	leadRepo := new(storagemock.LeadRepoMock)
	historyRepo := new(storagemock.HistoryRepoMock)
	publisher := &recordingPublisher{}

	observedZapCore, observedLogs := observer.New(zapcore.DebugLevel)
	ctx := logger.WithLogger(context.Background(), zap.New(observedZapCore))

	t.Cleanup(func() {
		leadRepo.AssertExpectations(t)
		historyRepo.AssertExpectations(t)
	})

	return &serviceFixture{
		service:     NewLeadService(leadRepo, historyRepo, pool, publisher, opts),
		leadRepo:    leadRepo,
		historyRepo: historyRepo,
		publisher:   publisher,
		logs:        observedLogs,
		ctx:         ctx,
	}
}

// storedLead returns a stored lead owned by ownerID.
func storedLead(ownerID string) *model.Lead {
	return model.NewLead(&model.Lead{ID: uuid.NewString(), OwnerID: ownerID})
}

// csvOf renders rows under the import header. Each row lists values in csvio.Columns order.
func csvOf(rows ...[]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(csvio.Columns, ","))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	return b.String()
}

// validRow is a row that passes validation. name keeps rows distinguishable.
func validRow(name string) []string {
	return []string{name, "", "9876543210", "Chandigarh", "Plot", "", "Buy", "", "", "0-3m", "Website", "", ""}
}
