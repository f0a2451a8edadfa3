package model

import (
	"strings"
	"time"
)

// EventType represents the kind of lead mutation being announced
type EventType string

// Version 1 lead event types
const (
	V1LeadsCreated  EventType = "v1.leads.created"
	V1LeadsUpdated  EventType = "v1.leads.updated"
	V1LeadsDeleted  EventType = "v1.leads.deleted"
	V1LeadsImported EventType = "v1.leads.imported"
)

// MapToBaseEventType maps a subject, possibly suffixed with extra tokens
// (e.g. "v1.leads.updated.<owner>"), back to its base EventType.
func MapToBaseEventType(input string) (EventType, bool) {
	switch EventType(input) {
	case V1LeadsCreated, V1LeadsUpdated, V1LeadsDeleted, V1LeadsImported:
		return EventType(input), true
	}

	lastDotIndex := strings.LastIndex(input, ".")
	if lastDotIndex <= 0 {
		return "", false
	}
	return MapToBaseEventType(input[:lastDotIndex])
}

// LeadEvent is published after a lead mutation has been committed.
type LeadEvent struct {
	Type       EventType `json:"type"`
	LeadIDs    []string  `json:"leadIds"`
	OwnerID    string    `json:"ownerId,omitempty"`
	ActorID    string    `json:"actorId"`
	Changes    FieldDiff `json:"changes,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
