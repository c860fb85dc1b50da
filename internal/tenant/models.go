package tenant

import "time"

// Agency is the root tenant scope. It owns provider credentials and may have
// CRM connections; every call and every client row hangs off an agency.
//
// Multi-tenant invariant: AgencyID is required on every scoped query.
type Agency struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	// Provider API keys. Empty string means "not configured".
	RetellKey string `json:"-" db:"retell_key"`
	VapiKey   string `json:"-" db:"vapi_key"`
	BlandKey  string `json:"-" db:"bland_key"`

	// CRM connections are optional; nil means not connected.
	GHL     *GHLConnection     `json:"-" db:"-"`
	HubSpot *HubSpotConnection `json:"-" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Client is an optional narrower scope under an agency. Its provider keys,
// when set, override the agency's for calls placed on behalf of that client.
type Client struct {
	ID       string `json:"id" db:"id"`
	AgencyID string `json:"agency_id" db:"agency_id"`
	Name     string `json:"name" db:"name"`

	RetellKey string `json:"-" db:"retell_key"`
	VapiKey   string `json:"-" db:"vapi_key"`
	BlandKey  string `json:"-" db:"bland_key"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// GHLConnection holds GoHighLevel credentials for one agency.
type GHLConnection struct {
	AccessToken string `json:"-"`
	LocationID  string `json:"location_id"`
}

// HubSpotConnection holds HubSpot credentials for one agency.
type HubSpotConnection struct {
	AccessToken string `json:"-"`
	PortalID    string `json:"portal_id"`
}

// Ref identifies a tenant: an agency, optionally narrowed to one client.
type Ref struct {
	AgencyID string `json:"agency_id"`
	ClientID string `json:"client_id,omitempty"`
}
