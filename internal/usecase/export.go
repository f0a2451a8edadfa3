package usecase

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/csvio"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/validator"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
)

// ExportLeads writes the leads matching params as CSV to w, in the listing order, capped
// at the configured export size. Paging parameters are ignored. It returns the number of
// rows written.
func (s *LeadService) ExportLeads(ctx context.Context, params model.ListParams, w io.Writer) (int, error) {
	params.Page = ""
	params.Limit = ""
	filter, err := validator.NormalizeFilter(params)
	if err != nil {
		return 0, err
	}
	filter.Page = 1
	filter.Limit = s.opts.ExportMaxRows

	leads, total, err := s.leadRepo.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	if total > int64(len(leads)) {
		logger.FromContext(ctx).Info("Export truncated",
			zap.Int64("matching", total),
			zap.Int("exported", len(leads)),
		)
	}

	if err := csvio.WriteLeads(w, leads); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}
	return len(leads), nil
}
