package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/buyer-lead-crm/pkg/utils"
)

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

var fakeTags = []string{"urgent", "qualified", "investor", "nri", "first-home", "follow-up", "hot"}

// NewLeadRecord creates a valid, normalized LeadRecord with fake data.
func NewLeadRecord() LeadRecord {
	propertyType := gofakeit.RandomString(PropertyTypes.Values())
	record := LeadRecord{
		FullName:     gofakeit.Name(),
		Phone:        gofakeit.Numerify("9#########"),
		City:         gofakeit.RandomString(Cities.Values()),
		PropertyType: propertyType,
		Purpose:      gofakeit.RandomString(Purposes.Values()),
		Timeline:     gofakeit.RandomString(Timelines.Values()),
		Source:       gofakeit.RandomString(Sources.Values()),
		Status:       gofakeit.RandomString(Statuses.Values()),
		Tags:         datatypes.JSONSlice[string]{gofakeit.RandomString(fakeTags)},
	}
	if RequiresBHK(propertyType) {
		bhk := gofakeit.RandomString(BHKs.Values())
		record.BHK = &bhk
	}
	if gofakeit.Bool() {
		email := gofakeit.Email()
		record.Email = &email
	}
	if gofakeit.Bool() {
		minBudget := int64(gofakeit.Number(20, 80)) * 100000
		maxBudget := minBudget + int64(gofakeit.Number(1, 40))*100000
		record.BudgetMin = &minBudget
		record.BudgetMax = &maxBudget
	}
	if gofakeit.Bool() {
		notes := gofakeit.Sentence(12)
		record.Notes = &notes
	}
	return record
}

// NewLead creates a stored Lead with fake data. Non-zero fields of the optional
// override replace the generated ones.
func NewLead(overrideDefaults ...*Lead) *Lead {
	now := utils.Now().Truncate(time.Microsecond)
	base := &Lead{
		ID:         uuid.NewString(),
		LeadRecord: NewLeadRecord(),
		OwnerID:    uuid.NewString(),
		CreatedAt:  now.Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
		UpdatedAt:  now,
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.OwnerID != "" {
			base.OwnerID = ovr.OwnerID
		}
		if ovr.FullName != "" {
			base.FullName = ovr.FullName
		}
		if ovr.Phone != "" {
			base.Phone = ovr.Phone
		}
		if ovr.PropertyType != "" {
			base.PropertyType = ovr.PropertyType
			base.BHK = ovr.BHK
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
		if !ovr.UpdatedAt.IsZero() {
			base.UpdatedAt = ovr.UpdatedAt
		}
	}
	return base
}

// NewLeadInput creates a candidate that passes validation.
func NewLeadInput() LeadInput {
	record := NewLeadRecord()
	input := LeadInput{
		FullName:     StringPtr(record.FullName),
		Email:        record.Email,
		Phone:        StringPtr(record.Phone),
		City:         StringPtr(record.City),
		PropertyType: StringPtr(record.PropertyType),
		BHK:          record.BHK,
		Purpose:      StringPtr(record.Purpose),
		Timeline:     StringPtr(record.Timeline),
		Source:       StringPtr(record.Source),
		Status:       StringPtr(record.Status),
		Notes:        record.Notes,
		Tags:         record.TagList(),
	}
	if record.BudgetMin != nil {
		input.BudgetMin = NewRawNumber(*record.BudgetMin)
	}
	if record.BudgetMax != nil {
		input.BudgetMax = NewRawNumber(*record.BudgetMax)
	}
	return input
}

// NewLeadHistory creates a history entry for leadID with the given diff.
func NewLeadHistory(leadID, changedBy string, diff FieldDiff) *LeadHistory {
	return &LeadHistory{
		ID:        uuid.NewString(),
		LeadID:    leadID,
		ChangedBy: changedBy,
		ChangedAt: utils.Now().Truncate(time.Microsecond),
		Diff:      datatypes.JSON(utils.MustMarshalJSON(diff)),
	}
}
