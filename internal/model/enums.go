package model

import "slices"

// Enum is a closed, ordered vocabulary of accepted values.
type Enum struct {
	name   string
	values []string
}

func newEnum(name string, values ...string) Enum {
	return Enum{name: name, values: values}
}

// Name is the human label used in error messages.
func (e Enum) Name() string {
	return e.name
}

// Contains reports whether v is a member. Matching is case-sensitive.
func (e Enum) Contains(v string) bool {
	return slices.Contains(e.values, v)
}

// Values returns the members in declaration order.
func (e Enum) Values() []string {
	return slices.Clone(e.values)
}

var (
	Cities        = newEnum("city", "Chandigarh", "Mohali", "Zirakpur", "Panchkula", "Other")
	PropertyTypes = newEnum("property type", "Apartment", "Villa", "Plot", "Office", "Retail")
	BHKs          = newEnum("BHK", "1", "2", "3", "4", "Studio")
	Purposes      = newEnum("purpose", "Buy", "Rent")
	Timelines     = newEnum("timeline", "0-3m", "3-6m", ">6m", "Exploring")
	Sources       = newEnum("source", "Website", "Referral", "Walk-in", "Call", "Other")
	// Statuses is ordered as the sales pipeline.
	Statuses = newEnum("status", "New", "Qualified", "Contacted", "Visited", "Negotiation", "Converted", "Dropped")

	// SortFields lists the columns a listing may be ordered by.
	SortFields = newEnum("sort field", "fullName", "phone", "city", "propertyType", "status", "updatedAt")
	SortOrders = newEnum("sort order", "asc", "desc")
)

// DefaultStatus is assigned to leads created without an explicit status.
const DefaultStatus = "New"

// RequiresBHK reports whether a property type is residential and therefore needs a room count.
func RequiresBHK(propertyType string) bool {
	return propertyType == "Apartment" || propertyType == "Villa"
}
