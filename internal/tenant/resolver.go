package tenant

import (
	"context"
	"strings"
)

// Provider names as stored on credential rows. The dialer package owns the
// call-placement side of these; this package only resolves keys.
const (
	ProviderRetell = "retell"
	ProviderVapi   = "vapi"
	ProviderBland  = "bland"
)

// KeySource records which scope a resolved key came from.
type KeySource string

const (
	SourceClient KeySource = "client"
	SourceAgency KeySource = "agency"
	SourceNone   KeySource = "none"
)

// Credentials is the effective per-provider key set for one tenant, with
// source attribution for each provider.
type Credentials struct {
	RetellKey string `json:"-"`
	VapiKey   string `json:"-"`
	BlandKey  string `json:"-"`

	Sources map[string]KeySource `json:"sources"`
}

// Key returns the resolved key for a provider name, or "" if absent.
func (c Credentials) Key(provider string) string {
	switch provider {
	case ProviderRetell:
		return c.RetellKey
	case ProviderVapi:
		return c.VapiKey
	case ProviderBland:
		return c.BlandKey
	default:
		return ""
	}
}

// Selection is the outcome of AutoSelect.
type Selection struct {
	Provider string
	APIKey   string
}

// autoSelectOrder is the fixed provider priority for AutoSelect.
var autoSelectOrder = []string{ProviderRetell, ProviderVapi, ProviderBland}

// AutoSelect picks the first provider with a key available, in fixed
// priority order. ok is false when no provider has a key.
func (c Credentials) AutoSelect() (Selection, bool) {
	for _, p := range autoSelectOrder {
		if k := c.Key(p); k != "" {
			return Selection{Provider: p, APIKey: k}, true
		}
	}
	return Selection{}, false
}

// Resolver produces effective credentials for a tenant.
//
// Precedence per provider, independently:
//  1. client key, when the tenant has a client and the key is non-empty
//  2. agency key, when non-empty
//  3. absent
//
// No retries: store failures surface to the caller.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

func (r *Resolver) Resolve(ctx context.Context, ref Ref) (Credentials, error) {
	if r.store == nil {
		return Credentials{}, ErrInvalidArgument
	}
	if ref.AgencyID == "" {
		return Credentials{}, ErrInvalidArgument
	}

	agency, err := r.store.GetAgency(ctx, ref.AgencyID)
	if err != nil {
		return Credentials{}, err
	}

	var client Client
	if ref.ClientID != "" {
		// Scoped lookup: a client id alone is never trusted.
		client, err = r.store.GetClient(ctx, ref.AgencyID, ref.ClientID)
		if err != nil {
			return Credentials{}, err
		}
	}

	out := Credentials{Sources: make(map[string]KeySource, 3)}
	out.RetellKey, out.Sources[ProviderRetell] = pickKey(client.RetellKey, agency.RetellKey)
	out.VapiKey, out.Sources[ProviderVapi] = pickKey(client.VapiKey, agency.VapiKey)
	out.BlandKey, out.Sources[ProviderBland] = pickKey(client.BlandKey, agency.BlandKey)
	return out, nil
}

// pickKey is the single fallback rule applied to every provider field.
func pickKey(clientKey, agencyKey string) (string, KeySource) {
	if k := strings.TrimSpace(clientKey); k != "" {
		return k, SourceClient
	}
	if k := strings.TrimSpace(agencyKey); k != "" {
		return k, SourceAgency
	}
	return "", SourceNone
}
