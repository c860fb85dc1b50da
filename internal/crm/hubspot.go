package crm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const hubspotDefaultBaseURL = "https://api.hubapi.com"

// HubSpotConfig holds HubSpot credentials for one agency.
type HubSpotConfig struct {
	AccessToken string
	BaseURL     string
}

// HubSpotConnector talks to the HubSpot CRM v3 API.
//
// HubSpot has no native contact tags; tags live in a multi-value text
// property. AddTags reads the current value and writes back the union, which
// is what makes the "call-transferred" tag deduplicating.
type HubSpotConnector struct {
	cfg    HubSpotConfig
	client *http.Client
}

const hubspotTagsProperty = "call_tags"

func NewHubSpotConnector(cfg HubSpotConfig, client *http.Client) *HubSpotConnector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = hubspotDefaultBaseURL
	}
	return &HubSpotConnector{cfg: cfg, client: defaultClient(client)}
}

func (h *HubSpotConnector) Name() string { return "hubspot" }

func (h *HubSpotConnector) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + h.cfg.AccessToken}
}

func (h *HubSpotConnector) SearchContactByPhone(ctx context.Context, phone string) (Contact, error) {
	payload := map[string]any{
		"filterGroups": []map[string]any{{
			"filters": []map[string]string{{
				"propertyName": "phone",
				"operator":     "EQ",
				"value":        phone,
			}},
		}},
		"properties": []string{"phone", "firstname", "lastname", hubspotTagsProperty},
		"limit":      1,
	}

	var resp struct {
		Results []struct {
			ID         string            `json:"id"`
			Properties map[string]string `json:"properties"`
		} `json:"results"`
	}
	err := doJSON(ctx, h.client, http.MethodPost, h.cfg.BaseURL+"/crm/v3/objects/contacts/search", h.headers(), payload, &resp)
	if err != nil {
		return Contact{}, err
	}
	if len(resp.Results) == 0 {
		return Contact{}, ErrContactNotFound
	}
	r := resp.Results[0]
	name := strings.TrimSpace(r.Properties["firstname"] + " " + r.Properties["lastname"])
	return Contact{ID: r.ID, Phone: r.Properties["phone"], Name: name}, nil
}

func (h *HubSpotConnector) AddNote(ctx context.Context, contactID, text string) error {
	if contactID == "" {
		return fmt.Errorf("crm: contact id required")
	}
	payload := map[string]any{
		"properties": map[string]string{
			"hs_note_body": text,
			"hs_timestamp": time.Now().UTC().Format(time.RFC3339),
		},
		"associations": []map[string]any{{
			"to": map[string]string{"id": contactID},
			"types": []map[string]any{{
				"associationCategory": "HUBSPOT_DEFINED",
				"associationTypeId":   202, // note-to-contact
			}},
		}},
	}
	return doJSON(ctx, h.client, http.MethodPost, h.cfg.BaseURL+"/crm/v3/objects/notes", h.headers(), payload, nil)
}

func (h *HubSpotConnector) AddTags(ctx context.Context, contactID string, tags []string) error {
	if contactID == "" {
		return fmt.Errorf("crm: contact id required")
	}

	var current struct {
		Properties map[string]string `json:"properties"`
	}
	url := h.cfg.BaseURL + "/crm/v3/objects/contacts/" + contactID + "?properties=" + hubspotTagsProperty
	if err := doJSON(ctx, h.client, http.MethodGet, url, h.headers(), nil, &current); err != nil {
		return err
	}

	merged := mergeTags(current.Properties[hubspotTagsProperty], tags)
	payload := map[string]any{
		"properties": map[string]string{hubspotTagsProperty: merged},
	}
	return doJSON(ctx, h.client, http.MethodPatch, h.cfg.BaseURL+"/crm/v3/objects/contacts/"+contactID, h.headers(), payload, nil)
}

// mergeTags unions semicolon-separated existing tags with new ones,
// preserving order of first appearance.
func mergeTags(existing string, add []string) string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range strings.Split(existing, ";") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, t := range add {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return strings.Join(out, ";")
}
