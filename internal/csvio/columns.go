// Package csvio converts between spreadsheet rows and lead candidates.
package csvio

import "gitlab.com/timkado/api/buyer-lead-crm/internal/model"

// Import header labels.
const (
	ColFullName     = "Full Name"
	ColEmail        = "Email"
	ColPhone        = "Phone"
	ColCity         = "City"
	ColPropertyType = "Property Type"
	ColBHK          = "BHK"
	ColPurpose      = "Purpose"
	ColBudgetMin    = "Budget Min"
	ColBudgetMax    = "Budget Max"
	ColTimeline     = "Timeline"
	ColSource       = "Source"
	ColNotes        = "Notes"
	ColTags         = "Tags"

	// ColStatus is optional on import and always written on export.
	ColStatus      = "Status"
	ColCreatedDate = "Created Date"
	ColUpdatedDate = "Updated Date"
)

// Columns are the labels an import file must carry, in template order.
var Columns = []string{
	ColFullName, ColEmail, ColPhone, ColCity, ColPropertyType, ColBHK, ColPurpose,
	ColBudgetMin, ColBudgetMax, ColTimeline, ColSource, ColNotes, ColTags,
}

// ExportColumns extends Columns with the read-only export fields.
var ExportColumns = append(append([]string{}, Columns...), ColStatus, ColCreatedDate, ColUpdatedDate)

var columnFields = map[string]model.FieldName{
	ColFullName:     model.FieldFullName,
	ColEmail:        model.FieldEmail,
	ColPhone:        model.FieldPhone,
	ColCity:         model.FieldCity,
	ColPropertyType: model.FieldPropertyType,
	ColBHK:          model.FieldBHK,
	ColPurpose:      model.FieldPurpose,
	ColBudgetMin:    model.FieldBudgetMin,
	ColBudgetMax:    model.FieldBudgetMax,
	ColTimeline:     model.FieldTimeline,
	ColSource:       model.FieldSource,
	ColStatus:       model.FieldStatus,
	ColNotes:        model.FieldNotes,
	ColTags:         model.FieldTags,
}

// FieldFor maps a header label to the lead attribute it carries.
func FieldFor(column string) (model.FieldName, bool) {
	f, ok := columnFields[column]
	return f, ok
}

// Row is one spreadsheet row keyed by header label. Every value is raw text.
type Row map[string]string
