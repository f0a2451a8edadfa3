package usecase

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/config"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/events"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/storage"
)

const (
	DefaultImportMaxRows = 200
	DefaultExportMaxRows = 1000
	DefaultHistoryLimit  = 5
)

// Options bounds the bulk and history operations of LeadService.
type Options struct {
	ImportMaxRows int
	ExportMaxRows int
	HistoryLimit  int
}

// OptionsFromConfig maps the loaded configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ImportMaxRows: cfg.Import.MaxRows,
		ExportMaxRows: cfg.Export.MaxRows,
		HistoryLimit:  cfg.History.Limit,
	}
}

func (o Options) withDefaults() Options {
	if o.ImportMaxRows <= 0 {
		o.ImportMaxRows = DefaultImportMaxRows
	}
	if o.ExportMaxRows <= 0 {
		o.ExportMaxRows = DefaultExportMaxRows
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	return o
}

// LeadService implements every buyer lead operation on top of the repositories
type LeadService struct {
	leadRepo       storage.LeadRepo
	historyRepo    storage.HistoryRepo
	validationPool IValidationPool // nil means rows are validated synchronously
	publisher      events.Publisher
	opts           Options
}

// NewLeadService creates a new lead service
func NewLeadService(
	leadRepo storage.LeadRepo,
	historyRepo storage.HistoryRepo,
	validationPool IValidationPool,
	publisher events.Publisher,
	opts Options,
) *LeadService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &LeadService{
		leadRepo:       leadRepo,
		historyRepo:    historyRepo,
		validationPool: validationPool,
		publisher:      publisher,
		opts:           opts.withDefaults(),
	}
}

// parseLeadID rejects ids that cannot name a stored lead so they never reach the database.
func parseLeadID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: lead %q", apperrors.ErrNotFound, id)
	}
	return id, nil
}
