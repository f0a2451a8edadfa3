package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
)

// DateLayout is the en-US short date used for export timestamps.
const DateLayout = "1/2/2006"

// WriteLeads writes leads as CSV with the ExportColumns header.
func WriteLeads(w io.Writer, leads []model.Lead) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ExportColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range leads {
		if err := writer.Write(leadRecord(&leads[i])); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func leadRecord(l *model.Lead) []string {
	return []string{
		l.FullName,
		deref(l.Email),
		l.Phone,
		l.City,
		l.PropertyType,
		deref(l.BHK),
		l.Purpose,
		formatBudget(l.BudgetMin),
		formatBudget(l.BudgetMax),
		l.Timeline,
		l.Source,
		deref(l.Notes),
		JoinTags(l.TagList()),
		l.Status,
		l.CreatedAt.UTC().Format(DateLayout),
		l.UpdatedAt.UTC().Format(DateLayout),
	}
}

// ExportFilename names an export produced at t.
func ExportFilename(t time.Time) string {
	return "buyers-" + t.UTC().Format(time.DateOnly) + ".csv"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatBudget(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
