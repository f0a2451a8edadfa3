package model

import (
	"time"

	"gorm.io/datatypes"
)

// FieldName is the API name of a lead attribute. History diffs and error paths use it.
type FieldName string

const (
	FieldFullName     FieldName = "fullName"
	FieldEmail        FieldName = "email"
	FieldPhone        FieldName = "phone"
	FieldCity         FieldName = "city"
	FieldPropertyType FieldName = "propertyType"
	FieldBHK          FieldName = "bhk"
	FieldPurpose      FieldName = "purpose"
	FieldBudgetMin    FieldName = "budgetMin"
	FieldBudgetMax    FieldName = "budgetMax"
	FieldTimeline     FieldName = "timeline"
	FieldSource       FieldName = "source"
	FieldStatus       FieldName = "status"
	FieldNotes        FieldName = "notes"
	FieldTags         FieldName = "tags"
)

// LeadFields lists every editable attribute in canonical order.
var LeadFields = []FieldName{
	FieldFullName, FieldEmail, FieldPhone, FieldCity, FieldPropertyType, FieldBHK, FieldPurpose,
	FieldBudgetMin, FieldBudgetMax, FieldTimeline, FieldSource, FieldStatus, FieldNotes, FieldTags,
}

var fieldColumns = map[FieldName]string{
	FieldFullName:     "full_name",
	FieldEmail:        "email",
	FieldPhone:        "phone",
	FieldCity:         "city",
	FieldPropertyType: "property_type",
	FieldBHK:          "bhk",
	FieldPurpose:      "purpose",
	FieldBudgetMin:    "budget_min",
	FieldBudgetMax:    "budget_max",
	FieldTimeline:     "timeline",
	FieldSource:       "source",
	FieldStatus:       "status",
	FieldNotes:        "notes",
	FieldTags:         "tags",
}

// Column returns the database column backing the field.
func (f FieldName) Column() string {
	return fieldColumns[f]
}

// LeadRecord is a validated, normalized lead without identity or audit metadata.
type LeadRecord struct {
	FullName     string                      `json:"fullName" gorm:"column:full_name;type:varchar(80);not null"`
	Email        *string                     `json:"email" gorm:"column:email;type:text"`
	Phone        string                      `json:"phone" gorm:"column:phone;type:varchar(15);not null;index"`
	City         string                      `json:"city" gorm:"column:city;type:text;not null;index"`
	PropertyType string                      `json:"propertyType" gorm:"column:property_type;type:text;not null;index"`
	BHK          *string                     `json:"bhk" gorm:"column:bhk;type:text"`
	Purpose      string                      `json:"purpose" gorm:"column:purpose;type:text;not null"`
	BudgetMin    *int64                      `json:"budgetMin" gorm:"column:budget_min"`
	BudgetMax    *int64                      `json:"budgetMax" gorm:"column:budget_max"`
	Timeline     string                      `json:"timeline" gorm:"column:timeline;type:text;not null;index"`
	Source       string                      `json:"source" gorm:"column:source;type:text;not null"`
	Status       string                      `json:"status" gorm:"column:status;type:text;not null;index"`
	Notes        *string                     `json:"notes" gorm:"column:notes;type:text"`
	Tags         datatypes.JSONSlice[string] `json:"tags" gorm:"column:tags;type:jsonb"`
}

// Lead is a prospective buyer stored in PostgreSQL.
type Lead struct {
	ID string `json:"id" gorm:"primaryKey;type:uuid"`
	LeadRecord
	OwnerID   string        `json:"ownerId" gorm:"column:owner_id;type:text;not null;index"`
	CreatedAt time.Time     `json:"createdAt" gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt time.Time     `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime:false;index"`
	History   []LeadHistory `json:"-" gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Lead model.
func (Lead) TableName() string {
	return "leads"
}

// FieldValue returns the comparable value of field: a string, int64, []string or nil when absent.
func (r LeadRecord) FieldValue(field FieldName) any {
	switch field {
	case FieldFullName:
		return r.FullName
	case FieldEmail:
		return derefString(r.Email)
	case FieldPhone:
		return r.Phone
	case FieldCity:
		return r.City
	case FieldPropertyType:
		return r.PropertyType
	case FieldBHK:
		return derefString(r.BHK)
	case FieldPurpose:
		return r.Purpose
	case FieldBudgetMin:
		return derefInt(r.BudgetMin)
	case FieldBudgetMax:
		return derefInt(r.BudgetMax)
	case FieldTimeline:
		return r.Timeline
	case FieldSource:
		return r.Source
	case FieldStatus:
		return r.Status
	case FieldNotes:
		return derefString(r.Notes)
	case FieldTags:
		return r.TagList()
	}
	return nil
}

// TagList returns the tags as a plain, never-nil slice.
func (r LeadRecord) TagList() []string {
	if r.Tags == nil {
		return []string{}
	}
	return []string(r.Tags)
}

// Apply overwrites the fields present in patch.
func (r *LeadRecord) Apply(patch LeadPatch) {
	for field, value := range patch {
		switch field {
		case FieldFullName:
			r.FullName, _ = value.(string)
		case FieldEmail:
			r.Email = stringPtr(value)
		case FieldPhone:
			r.Phone, _ = value.(string)
		case FieldCity:
			r.City, _ = value.(string)
		case FieldPropertyType:
			r.PropertyType, _ = value.(string)
		case FieldBHK:
			r.BHK = stringPtr(value)
		case FieldPurpose:
			r.Purpose, _ = value.(string)
		case FieldBudgetMin:
			r.BudgetMin = intPtr(value)
		case FieldBudgetMax:
			r.BudgetMax = intPtr(value)
		case FieldTimeline:
			r.Timeline, _ = value.(string)
		case FieldSource:
			r.Source, _ = value.(string)
		case FieldStatus:
			r.Status, _ = value.(string)
		case FieldNotes:
			r.Notes = stringPtr(value)
		case FieldTags:
			tags, _ := value.([]string)
			if tags == nil {
				tags = []string{}
			}
			r.Tags = datatypes.JSONSlice[string](tags)
		}
	}
}

// LeadPatch holds normalized new values keyed by field. A nil value clears an optional field.
type LeadPatch map[FieldName]any

// Fields returns the patched fields in canonical order.
func (p LeadPatch) Fields() []FieldName {
	out := make([]FieldName, 0, len(p))
	for _, f := range LeadFields {
		if _, ok := p[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Columns converts the patch into a column/value map suitable for an UPDATE.
func (p LeadPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, len(p))
	for field, value := range p {
		if field == FieldTags {
			tags, _ := value.([]string)
			if tags == nil {
				tags = []string{}
			}
			cols[field.Column()] = datatypes.JSONSlice[string](tags)
			continue
		}
		cols[field.Column()] = value
	}
	return cols
}

func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefInt(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

func stringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func intPtr(v any) *int64 {
	i, ok := v.(int64)
	if !ok {
		return nil
	}
	return &i
}
