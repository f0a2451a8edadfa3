package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestEnumContains(t *testing.T) {
	assert.True(t, Cities.Contains("Mohali"))
	assert.False(t, Cities.Contains("mohali"))
	assert.True(t, Timelines.Contains(">6m"))
	assert.True(t, BHKs.Contains("Studio"))
	assert.False(t, Statuses.Contains(""))
	assert.Equal(t, "New", Statuses.Values()[0])
	assert.Equal(t, DefaultStatus, Statuses.Values()[0])
}

func TestEnumValuesReturnsCopy(t *testing.T) {
	values := Purposes.Values()
	values[0] = "Lease"
	assert.True(t, Purposes.Contains("Buy"))
}

func TestRequiresBHK(t *testing.T) {
	for _, pt := range PropertyTypes.Values() {
		expected := pt == "Apartment" || pt == "Villa"
		assert.Equal(t, expected, RequiresBHK(pt), pt)
	}
}

func TestLeadRecord_ApplyAndFieldValue(t *testing.T) {
	record := NewLeadRecord()
	patch := LeadPatch{
		FieldNotes:     "call after 6pm",
		FieldEmail:     nil,
		FieldBudgetMin: int64(4500000),
		FieldTags:      []string{"hot"},
	}

	record.Apply(patch)

	assert.Equal(t, "call after 6pm", record.FieldValue(FieldNotes))
	assert.Nil(t, record.FieldValue(FieldEmail))
	assert.Equal(t, int64(4500000), record.FieldValue(FieldBudgetMin))
	assert.Equal(t, []string{"hot"}, record.FieldValue(FieldTags))
}

func TestLeadPatch_ColumnsAndFields(t *testing.T) {
	patch := LeadPatch{FieldTags: []string{"a"}, FieldFullName: "Asha", FieldBHK: nil}

	cols := patch.Columns()
	assert.Equal(t, "Asha", cols["full_name"])
	assert.Equal(t, datatypes.JSONSlice[string]{"a"}, cols["tags"])
	v, ok := cols["bhk"]
	assert.True(t, ok)
	assert.Nil(t, v)

	assert.Equal(t, []FieldName{FieldFullName, FieldBHK, FieldTags}, patch.Fields())
}

func TestLeadJSONShape(t *testing.T) {
	lead := NewLead(&Lead{ID: "5c0b8a3e-8d1b-4c59-9c39-0f5f0c3f8f10"})
	raw, err := json.Marshal(lead)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"id", "fullName", "phone", "propertyType", "tags", "ownerId", "createdAt", "updatedAt"} {
		assert.Contains(t, decoded, key)
	}
	assert.NotContains(t, decoded, "History")
}

func TestRawNumberUnmarshal(t *testing.T) {
	var input LeadInput
	require.NoError(t, json.Unmarshal([]byte(`{"budgetMin": 5000000, "budgetMax": "abc"}`), &input))
	require.NotNil(t, input.BudgetMin)
	require.NotNil(t, input.BudgetMax)
	assert.Equal(t, RawNumber("5000000"), *input.BudgetMin)
	assert.Equal(t, RawNumber("abc"), *input.BudgetMax)

	input = LeadInput{}
	require.NoError(t, json.Unmarshal([]byte(`{"budgetMin": null}`), &input))
	assert.Nil(t, input.BudgetMin)

	assert.Error(t, json.Unmarshal([]byte(`{"budgetMin": true}`), &input))
}

func TestListFilter_OffsetAndOrder(t *testing.T) {
	f := ListFilter{Page: 3, Limit: 20, SortBy: FieldFullName, SortOrder: "asc"}
	assert.Equal(t, 40, f.Offset())
	assert.Equal(t, "full_name ASC, id ASC", f.OrderClause())

	f = ListFilter{Page: 1, Limit: 10, SortBy: "notes", SortOrder: "desc"}
	assert.Equal(t, "updated_at DESC, id DESC", f.OrderClause())
}

func TestNewLeadPage(t *testing.T) {
	page := NewLeadPage(nil, 21, ListFilter{Page: 2, Limit: 10})
	assert.Equal(t, 3, page.TotalPages)
	assert.NotNil(t, page.Data)

	page = NewLeadPage(nil, 0, ListFilter{Page: 1, Limit: 10})
	assert.Equal(t, 0, page.TotalPages)
}

func TestLeadHistory_Changes(t *testing.T) {
	h := NewLeadHistory("lead-1", "user-1", FieldDiff{"notes": {Old: nil, New: "hi"}})
	diff, err := h.Changes()
	require.NoError(t, err)
	assert.Equal(t, "hi", diff["notes"].New)
	assert.Nil(t, diff["notes"].Old)
}
