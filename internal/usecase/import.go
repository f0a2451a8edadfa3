package usecase

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/csvio"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/identity"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/observer"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
)

const msgNoDataRows = "CSV file has no data rows"

// ImportLeads reads a CSV batch and persists it for actor.
//
// Every row is validated before anything is written. If any row is invalid the whole
// batch is refused with an *apperrors.ImportRejectedError. Rows are then created one
// by one in input order without a surrounding transaction: a failure at row k returns
// an *apperrors.ImportAbortedError and rows 1..k-1 stay persisted.
func (s *LeadService) ImportLeads(ctx context.Context, actor identity.Identity, r io.Reader) (*model.ImportResult, error) {
	log := logger.FromContext(ctx)

	rows, err := csvio.ReadRows(r)
	if err != nil {
		observer.IncImportBatch("rejected")
		return nil, err
	}
	if len(rows) == 0 {
		observer.IncImportBatch("rejected")
		return nil, &apperrors.ImportRejectedError{Reason: msgNoDataRows}
	}
	if len(rows) > s.opts.ImportMaxRows {
		observer.IncImportBatch("rejected")
		log.Info("Import refused: too many rows", zap.Int("rows", len(rows)), zap.Int("max_rows", s.opts.ImportMaxRows))
		return nil, &apperrors.ImportRejectedError{
			Reason: fmt.Sprintf("Too many rows. Maximum %d allowed.", s.opts.ImportMaxRows),
		}
	}

	records, err := s.validateBatch(ctx, rows)
	if err != nil {
		observer.IncImportBatch("rejected")
		return nil, err
	}

	leads := make([]model.Lead, 0, len(records))
	for i, record := range records {
		lead, err := s.leadRepo.Create(ctx, record, actor.UserID)
		if err != nil {
			log.Error("Import aborted during persistence",
				zap.Int("row", i+1),
				zap.Int("imported", len(leads)),
				zap.Error(err),
			)
			observer.AddImportRows("persisted", len(leads))
			observer.IncImportBatch("aborted")
			observer.IncLeadMutation("imported", len(leads))
			s.publishImported(ctx, actor, leads)
			return nil, &apperrors.ImportAbortedError{Row: i + 1, Imported: len(leads), Err: err}
		}
		leads = append(leads, *lead)
	}

	observer.AddImportRows("persisted", len(leads))
	observer.IncImportBatch("imported")
	observer.IncLeadMutation("imported", len(leads))
	log.Info("Import completed", zap.Int("imported", len(leads)))
	s.publishImported(ctx, actor, leads)

	return &model.ImportResult{Imported: len(leads), Leads: leads}, nil
}

// validateBatch returns the normalized records in input order, or an
// *apperrors.ImportRejectedError listing every invalid row.
func (s *LeadService) validateBatch(ctx context.Context, rows []csvio.Row) ([]model.LeadRecord, error) {
	var (
		outcomes []RowOutcome
		err      error
	)
	if s.validationPool != nil {
		outcomes, err = s.validationPool.ValidateRows(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("failed to validate import rows: %w", err)
		}
	} else {
		outcomes = validateRowsSync(rows)
	}

	records := make([]model.LeadRecord, 0, len(rows))
	var invalid []apperrors.RowError
	for i, outcome := range outcomes {
		if len(outcome.Errors) > 0 {
			countValidationFailures("csv", outcome.Errors)
			invalid = append(invalid, apperrors.RowError{
				Row:    i + 1,
				Data:   map[string]string(rows[i]),
				Errors: outcome.Errors.Strings(),
			})
			continue
		}
		records = append(records, outcome.Record)
	}

	observer.AddImportRows("valid", len(records))
	observer.AddImportRows("invalid", len(invalid))
	if len(invalid) > 0 {
		logger.FromContext(ctx).Info("Import refused: invalid rows",
			zap.Int("invalid", len(invalid)),
			zap.Int("valid", len(records)),
		)
		return nil, &apperrors.ImportRejectedError{
			Reason:     "Validation errors found",
			Invalid:    invalid,
			ValidCount: len(records),
		}
	}
	return records, nil
}

func (s *LeadService) publishImported(ctx context.Context, actor identity.Identity, leads []model.Lead) {
	if len(leads) == 0 {
		return
	}
	ids := make([]string, len(leads))
	for i, lead := range leads {
		ids[i] = lead.ID
	}
	s.publish(ctx, model.V1LeadsImported, actor, ids, nil)
}
