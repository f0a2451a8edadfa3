package integration_test

import (
	"strings"
	"time"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/config"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/csvio"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/identity"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
)

var (
	ownerIdentity = identity.Identity{UserID: "it-owner", Email: "owner@example.com", Role: identity.RoleUser}
	otherIdentity = identity.Identity{UserID: "it-other", Email: "other@example.com", Role: identity.RoleUser}
	adminIdentity = identity.Identity{UserID: "it-admin", Email: "admin@example.com", Role: identity.RoleAdmin}
)

func validationPoolConfig() config.ValidationWorkerPoolConfig {
	return config.ValidationWorkerPoolConfig{
		PoolSize:   4,
		QueueSize:  400,
		MaxBlock:   5 * time.Second,
		ExpiryTime: time.Minute,
	}
}

// leadInput is a valid apartment lead; name and phone keep leads distinguishable.
func leadInput(name, phone, city string) model.LeadInput {
	return model.LeadInput{
		FullName:     model.StringPtr(name),
		Phone:        model.StringPtr(phone),
		City:         model.StringPtr(city),
		PropertyType: model.StringPtr("Apartment"),
		BHK:          model.StringPtr("2"),
		Purpose:      model.StringPtr("Buy"),
		BudgetMin:    model.NewRawNumber(4000000),
		BudgetMax:    model.NewRawNumber(6000000),
		Timeline:     model.StringPtr("0-3m"),
		Source:       model.StringPtr("Website"),
		Tags:         []string{"hot"},
	}
}

func csvOf(rows ...[]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(csvio.Columns, ","))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	return b.String()
}

func csvRow(name, phone string) []string {
	return []string{name, "", phone, "Chandigarh", "Plot", "", "Buy", "", "", "0-3m", "Website", "", "vip"}
}
