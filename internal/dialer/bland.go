package dialer

import (
	"context"
	"encoding/json"
	"net/http"
)

const blandDefaultBaseURL = "https://api.bland.ai"

// BlandAdapter places calls through the Bland call API.
// Bland authenticates with the raw key in the Authorization header, no
// Bearer prefix.
type BlandAdapter struct {
	baseURL string
	client  *http.Client
}

func NewBlandAdapter(client *http.Client) *BlandAdapter {
	return &BlandAdapter{baseURL: blandDefaultBaseURL, client: defaultClient(client)}
}

func NewBlandAdapterWithBaseURL(client *http.Client, baseURL string) *BlandAdapter {
	a := NewBlandAdapter(client)
	a.baseURL = baseURL
	return a
}

func (a *BlandAdapter) Provider() Provider { return ProviderBland }

type blandCallPayload struct {
	PathwayID   string            `json:"pathway_id"`
	PhoneNumber string            `json:"phone_number"`
	From        string            `json:"from,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (a *BlandAdapter) Dial(ctx context.Context, req CallRequest) CallResult {
	payload := blandCallPayload{
		PathwayID:   req.AgentID,
		PhoneNumber: req.ToNumber,
		From:        req.FromNumber,
		Metadata:    req.Metadata,
	}

	status, body, err := postJSON(ctx, a.client, a.baseURL+"/v1/calls", map[string]string{
		"Authorization": req.APIKey,
	}, payload)
	if err != nil {
		return failure("bland call failed: %v", err)
	}
	if !is2xx(status) {
		return failure("%s", apiErrorMessage(status, body))
	}

	var resp struct {
		CallID string `json:"call_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.CallID == "" {
		return failure("bland response missing call_id")
	}
	return CallResult{OK: true, CallID: resp.CallID}
}
