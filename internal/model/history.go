package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// FieldChange records the value of one field before and after a mutation.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// FieldDiff maps a changed field to its old and new value. Unchanged fields are absent.
type FieldDiff map[string]FieldChange

// Empty reports whether nothing changed.
func (d FieldDiff) Empty() bool {
	return len(d) == 0
}

// CreatedDiffKey is the synthetic key used for the history entry written on creation.
const CreatedDiffKey = "created"

// LeadHistory is one append-only audit entry for a lead.
type LeadHistory struct {
	ID        string         `json:"id" gorm:"primaryKey;type:uuid"`
	LeadID    string         `json:"leadId" gorm:"column:lead_id;type:uuid;not null;index:idx_lead_history_lead_changed,priority:1"`
	ChangedBy string         `json:"changedBy" gorm:"column:changed_by;type:text;not null"`
	ChangedAt time.Time      `json:"changedAt" gorm:"column:changed_at;not null;index:idx_lead_history_lead_changed,priority:2,sort:desc"`
	Diff      datatypes.JSON `json:"diff" gorm:"column:diff;type:jsonb;not null"`
}

// TableName specifies the table name for the LeadHistory model.
func (LeadHistory) TableName() string {
	return "lead_history"
}

// Changes decodes the stored diff.
func (h LeadHistory) Changes() (FieldDiff, error) {
	var diff FieldDiff
	if len(h.Diff) == 0 {
		return FieldDiff{}, nil
	}
	if err := json.Unmarshal(h.Diff, &diff); err != nil {
		return nil, fmt.Errorf("failed to decode history diff %s: %w", h.ID, err)
	}
	return diff, nil
}
