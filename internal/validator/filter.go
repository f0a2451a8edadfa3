package validator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
)

// NormalizeFilter validates raw listing parameters and applies defaults to the
// absent ones. Malformed or out-of-range values are rejected, never clamped.
func NormalizeFilter(p model.ListParams) (model.ListFilter, error) {
	var errs apperrors.FieldErrors
	if err := Validate(p); err != nil {
		var verr *apperrors.ValidationError
		if !errors.As(err, &verr) {
			return model.ListFilter{}, err
		}
		errs = append(errs, verr.Fields...)
	}

	filter := model.ListFilter{
		Search:       strings.TrimSpace(p.Search),
		City:         p.City,
		PropertyType: p.PropertyType,
		Status:       p.Status,
		Timeline:     p.Timeline,
		OwnerID:      p.OwnerID,
		SortBy:       model.DefaultSortBy,
		SortOrder:    model.DefaultSortOrder,
	}
	if p.SortBy != "" {
		filter.SortBy = model.FieldName(p.SortBy)
	}
	if p.SortOrder != "" {
		filter.SortOrder = p.SortOrder
	}

	filter.Page = parsePositive(&errs, "page", p.Page, model.DefaultPage, 0)
	filter.Limit = parsePositive(&errs, "limit", p.Limit, model.DefaultLimit, model.MaxLimit)

	if err := apperrors.NewValidationError(errs); err != nil {
		return model.ListFilter{}, err
	}
	return filter, nil
}

// parsePositive parses raw as an integer >= 1 and <= max (max 0 means unbounded).
// An absent parameter yields def.
func parsePositive(errs *apperrors.FieldErrors, field, raw string, def, max int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		errs.Add(field, "must be a positive integer")
		return def
	}
	if max > 0 && n > max {
		errs.Add(field, fmt.Sprintf("must be less than or equal to %d", max))
		return def
	}
	return n
}
