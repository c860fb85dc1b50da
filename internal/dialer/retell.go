package dialer

import (
	"context"
	"encoding/json"
	"net/http"
)

const retellDefaultBaseURL = "https://api.retellai.com"

// RetellAdapter places calls through the Retell phone-call API.
type RetellAdapter struct {
	baseURL string
	client  *http.Client
}

func NewRetellAdapter(client *http.Client) *RetellAdapter {
	return &RetellAdapter{baseURL: retellDefaultBaseURL, client: defaultClient(client)}
}

// NewRetellAdapterWithBaseURL exists for tests against a local server.
func NewRetellAdapterWithBaseURL(client *http.Client, baseURL string) *RetellAdapter {
	a := NewRetellAdapter(client)
	a.baseURL = baseURL
	return a
}

func (a *RetellAdapter) Provider() Provider { return ProviderRetell }

type retellCallPayload struct {
	OverrideAgentID string            `json:"override_agent_id"`
	ToNumber        string            `json:"to_number"`
	FromNumber      string            `json:"from_number,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

func (a *RetellAdapter) Dial(ctx context.Context, req CallRequest) CallResult {
	payload := retellCallPayload{
		OverrideAgentID: req.AgentID,
		ToNumber:        req.ToNumber,
		FromNumber:      req.FromNumber,
		Metadata:        req.Metadata,
	}

	status, body, err := postJSON(ctx, a.client, a.baseURL+"/v2/create-phone-call", map[string]string{
		"Authorization": "Bearer " + req.APIKey,
	}, payload)
	if err != nil {
		return failure("retell call failed: %v", err)
	}
	if !is2xx(status) {
		return failure("%s", apiErrorMessage(status, body))
	}

	var resp struct {
		CallID string `json:"call_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.CallID == "" {
		return failure("retell response missing call_id")
	}
	return CallResult{OK: true, CallID: resp.CallID}
}
