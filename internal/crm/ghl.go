package crm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const (
	ghlDefaultBaseURL = "https://services.leadconnectorhq.com"
	ghlAPIVersion     = "2021-07-28"
)

// GHLConfig holds GoHighLevel credentials for one agency.
type GHLConfig struct {
	AccessToken string
	LocationID  string
	BaseURL     string
}

// GHLConnector talks to the GoHighLevel contacts API.
type GHLConnector struct {
	cfg    GHLConfig
	client *http.Client
}

func NewGHLConnector(cfg GHLConfig, client *http.Client) *GHLConnector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = ghlDefaultBaseURL
	}
	return &GHLConnector{cfg: cfg, client: defaultClient(client)}
}

func (g *GHLConnector) Name() string { return "ghl" }

func (g *GHLConnector) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + g.cfg.AccessToken,
		"Version":       ghlAPIVersion,
	}
}

func (g *GHLConnector) SearchContactByPhone(ctx context.Context, phone string) (Contact, error) {
	q := url.Values{}
	q.Set("phone", phone)
	q.Set("locationId", g.cfg.LocationID)

	var resp struct {
		Contacts []struct {
			ID    string `json:"id"`
			Phone string `json:"phone"`
			Name  string `json:"contactName"`
		} `json:"contacts"`
	}
	err := doJSON(ctx, g.client, http.MethodGet, g.cfg.BaseURL+"/contacts/lookup?"+q.Encode(), g.headers(), nil, &resp)
	if err != nil {
		return Contact{}, err
	}
	if len(resp.Contacts) == 0 {
		return Contact{}, ErrContactNotFound
	}
	c := resp.Contacts[0]
	return Contact{ID: c.ID, Phone: c.Phone, Name: c.Name}, nil
}

func (g *GHLConnector) AddNote(ctx context.Context, contactID, text string) error {
	if contactID == "" {
		return fmt.Errorf("crm: contact id required")
	}
	payload := map[string]string{"body": text}
	return doJSON(ctx, g.client, http.MethodPost, g.cfg.BaseURL+"/contacts/"+contactID+"/notes", g.headers(), payload, nil)
}

func (g *GHLConnector) AddTags(ctx context.Context, contactID string, tags []string) error {
	if contactID == "" {
		return fmt.Errorf("crm: contact id required")
	}
	// GHL tag add is idempotent server-side; re-adding an existing tag is a no-op.
	payload := map[string][]string{"tags": tags}
	return doJSON(ctx, g.client, http.MethodPost, g.cfg.BaseURL+"/contacts/"+contactID+"/tags", g.headers(), payload, nil)
}
