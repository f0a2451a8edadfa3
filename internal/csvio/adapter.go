package csvio

import (
	"strings"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

// AdaptRow coerces a raw row into the candidate shape the validator accepts.
// It never fails: text that cannot be coerced is passed on for the validator to reject.
func AdaptRow(row Row) model.LeadInput {
	in := model.LeadInput{
		FullName:     required(row, ColFullName),
		Email:        optional(row, ColEmail),
		City:         required(row, ColCity),
		PropertyType: required(row, ColPropertyType),
		BHK:          optional(row, ColBHK),
		Purpose:      required(row, ColPurpose),
		Timeline:     required(row, ColTimeline),
		Source:       required(row, ColSource),
		Status:       optional(row, ColStatus),
		Notes:        optional(row, ColNotes),
		Tags:         SplitTags(row[ColTags]),
	}
	if phone := required(row, ColPhone); phone != nil {
		normalized := strings.TrimPrefix(phoneSeparators.Replace(*phone), "+")
		in.Phone = &normalized
	}
	if v := optional(row, ColBudgetMin); v != nil {
		n := model.RawNumber(*v)
		in.BudgetMin = &n
	}
	if v := optional(row, ColBudgetMax); v != nil {
		n := model.RawNumber(*v)
		in.BudgetMax = &n
	}
	return in
}

// SplitTags splits comma separated text, trims every tag and drops blanks.
func SplitTags(raw string) []string {
	tags := []string{}
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// JoinTags is the inverse of SplitTags.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// required passes the trimmed value through, empty or not, so the validator reports
// the field by name. A missing column yields nil.
func required(row Row, col string) *string {
	v, ok := row[col]
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	return &v
}

// optional treats blank text as absent.
func optional(row Row, col string) *string {
	v := strings.TrimSpace(row[col])
	if v == "" {
		return nil
	}
	return &v
}
