package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// RawNumber keeps a budget exactly as supplied so that non-numeric text reaches
// the validator instead of failing earlier in decoding.
type RawNumber string

// UnmarshalJSON accepts a JSON number or a JSON string.
func (n *RawNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = RawNumber(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("budget must be a number or a string: %w", err)
	}
	*n = RawNumber(num.String())
	return nil
}

// NewRawNumber is a convenience for building inputs in code.
func NewRawNumber(v int64) *RawNumber {
	n := RawNumber(fmt.Sprintf("%d", v))
	return &n
}

// LeadInput is a candidate lead as received from a form, the API or a CSV row.
// A nil pointer means the field was not supplied.
type LeadInput struct {
	FullName     *string    `json:"fullName"`
	Email        *string    `json:"email"`
	Phone        *string    `json:"phone"`
	City         *string    `json:"city"`
	PropertyType *string    `json:"propertyType"`
	BHK          *string    `json:"bhk"`
	Purpose      *string    `json:"purpose"`
	BudgetMin    *RawNumber `json:"budgetMin"`
	BudgetMax    *RawNumber `json:"budgetMax"`
	Timeline     *string    `json:"timeline"`
	Source       *string    `json:"source"`
	Status       *string    `json:"status"`
	Notes        *string    `json:"notes"`
	Tags         []string   `json:"tags"`
}

// LeadUpdateInput is a partial update. UpdatedAt, when set, is the optimistic
// concurrency token the caller last read.
type LeadUpdateInput struct {
	ID        string  `json:"id" validate:"required,uuid"`
	UpdatedAt *string `json:"updatedAt" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	LeadInput
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// LeadUpdate is a validated partial update ready for persistence.
type LeadUpdate struct {
	ID                string
	ExpectedUpdatedAt *time.Time
	Patch             LeadPatch
}
