// Package audit computes the field-level change sets stored in lead history.
package audit

import (
	"reflect"
	"slices"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
)

// Diff compares every patched field with its stored value and returns only the
// fields whose value changed. Tag lists compare as multisets.
func Diff(previous *model.Lead, patch model.LeadPatch) model.FieldDiff {
	diff := model.FieldDiff{}
	for _, field := range patch.Fields() {
		var old any
		if previous != nil {
			old = previous.FieldValue(field)
		}
		next := normalize(field, patch[field])
		if equal(field, old, next) {
			continue
		}
		diff[string(field)] = model.FieldChange{Old: old, New: next}
	}
	return diff
}

// CreatedDiff is the synthetic change set written when a lead is created.
func CreatedDiff(record model.LeadRecord) model.FieldDiff {
	return model.FieldDiff{
		model.CreatedDiffKey: {Old: nil, New: record},
	}
}

func normalize(field model.FieldName, v any) any {
	if field == model.FieldTags {
		tags, _ := v.([]string)
		if tags == nil {
			return []string{}
		}
		return tags
	}
	return v
}

func equal(field model.FieldName, a, b any) bool {
	if field == model.FieldTags {
		at, _ := a.([]string)
		bt, _ := b.([]string)
		return sameTags(at, bt)
	}
	return reflect.DeepEqual(a, b)
}

func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := slices.Clone(a)
	bs := slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(as, bs)
}
