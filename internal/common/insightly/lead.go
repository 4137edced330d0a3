// Package insightly is a minimal client for the Insightly v3.1 Leads API.
package insightly

import (
	"fmt"
	"strings"
)

// Lead is the Insightly lead payload. Empty strings and nil ids are omitted.
type Lead struct {
	FirstName         string `json:"FIRST_NAME,omitempty"`
	LastName          string `json:"LAST_NAME,omitempty"`
	Email             string `json:"EMAIL,omitempty"`
	Phone             string `json:"PHONE,omitempty"`
	Mobile            string `json:"MOBILE,omitempty"`
	Title             string `json:"TITLE,omitempty"`
	OrganisationName  string `json:"ORGANISATION_NAME,omitempty"`
	AddressStreet     string `json:"ADDRESS_STREET,omitempty"`
	AddressCity       string `json:"ADDRESS_CITY,omitempty"`
	AddressState      string `json:"ADDRESS_STATE,omitempty"`
	AddressPostcode   string `json:"ADDRESS_POSTCODE,omitempty"`
	AddressCountry    string `json:"ADDRESS_COUNTRY,omitempty"`
	LeadStatusID      *int64 `json:"LEAD_STATUS_ID,omitempty"`
	LeadSourceID      *int64 `json:"LEAD_SOURCE_ID,omitempty"`
	OwnerUserID       *int64 `json:"OWNER_USER_ID,omitempty"`
	ResponsibleUserID *int64 `json:"RESPONSIBLE_USER_ID,omitempty"`
	Description       string `json:"LEAD_DESCRIPTION,omitempty"`
	Tags              []Tag  `json:"TAGS,omitempty"`
}

// Tag is a lead tag. Names are limited to [A-Za-z0-9_-].
type Tag struct {
	Name string `json:"TAG_NAME"`
}

// TagNames returns the tag names in order.
func (l *Lead) TagNames() []string {
	names := make([]string, 0, len(l.Tags))
	for _, t := range l.Tags {
		names = append(names, t.Name)
	}
	return names
}

// LeadURL builds the browser link of a lead, or nil without a web base URL.
func LeadURL(webBase string, leadID int64) *string {
	webBase = strings.TrimRight(strings.TrimSpace(webBase), "/")
	if webBase == "" {
		return nil
	}
	u := fmt.Sprintf("%s/details/Lead/%d", webBase, leadID)
	return &u
}
