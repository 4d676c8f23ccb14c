package manager

import "time"

type (
	// ManagedAccount is a client account managed by an MCC.
	ManagedAccount struct {
		AccountID        string    `json:"accountId"`
		Login            string    `json:"login,omitempty"`
		CompanyName      string    `json:"companyName,omitempty"`
		Name             string    `json:"name,omitempty"`
		CanManageClients bool      `json:"canManageClients"`
		CurrencyCode     string    `json:"currencyCode,omitempty"`
		DateTimeZone     string    `json:"dateTimeZone,omitempty"`
		TopAccountID     string    `json:"topAccountId"`
		Timestamp        time.Time `json:"timestamp"`
	}
)
