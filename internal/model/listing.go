package model

// ListParams are raw listing parameters exactly as received, before defaults and validation.
type ListParams struct {
	Search       string `json:"search"`
	City         string `json:"city" validate:"omitempty,city"`
	PropertyType string `json:"propertyType" validate:"omitempty,property_type"`
	Status       string `json:"status" validate:"omitempty,status"`
	Timeline     string `json:"timeline" validate:"omitempty,timeline"`
	Page         string `json:"page"`
	Limit        string `json:"limit"`
	SortBy       string `json:"sortBy" validate:"omitempty,sort_by"`
	SortOrder    string `json:"sortOrder" validate:"omitempty,sort_order"`
	// OwnerID restricts results to one owner. It is set by the caller, never from user input.
	OwnerID string `json:"-"`
}

const (
	DefaultPage      = 1
	DefaultLimit     = 10
	MaxLimit         = 100
	DefaultSortBy    = "updatedAt"
	DefaultSortOrder = "desc"
)

// ListFilter is a fully defaulted, validated listing query.
type ListFilter struct {
	Search       string
	City         string
	PropertyType string
	Status       string
	Timeline     string
	OwnerID      string
	Page         int
	Limit        int
	SortBy       FieldName
	SortOrder    string
}

// Offset is the number of rows skipped before the current page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

var sortColumns = map[FieldName]string{
	FieldFullName:     "full_name",
	FieldPhone:        "phone",
	FieldCity:         "city",
	FieldPropertyType: "property_type",
	FieldStatus:       "status",
	"updatedAt":       "updated_at",
}

// OrderClause renders the ORDER BY expression. SortBy and SortOrder come from allow-lists;
// anything else falls back to the default ordering.
func (f ListFilter) OrderClause() string {
	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = "updated_at"
	}
	order := "DESC"
	if f.SortOrder == "asc" {
		order = "ASC"
	}
	return column + " " + order + ", id " + order
}

// LeadPage is one page of a listing.
type LeadPage struct {
	Data       []Lead `json:"data"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
}

// NewLeadPage computes the page count for total rows.
func NewLeadPage(leads []Lead, total int64, filter ListFilter) *LeadPage {
	if leads == nil {
		leads = []Lead{}
	}
	totalPages := 0
	if filter.Limit > 0 {
		totalPages = int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	}
	return &LeadPage{Data: leads, Total: total, Page: filter.Page, Limit: filter.Limit, TotalPages: totalPages}
}

// LeadStats counts leads per pipeline status.
type LeadStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
}

// ImportResult is returned when every row of a batch was persisted.
type ImportResult struct {
	Imported int    `json:"imported"`
	Leads    []Lead `json:"buyers"`
}
