package dialer

import (
	"context"
	"encoding/json"
	"net/http"
)

const vapiDefaultBaseURL = "https://api.vapi.ai"

// VapiAdapter places calls through the Vapi call API.
type VapiAdapter struct {
	baseURL string
	client  *http.Client
}

func NewVapiAdapter(client *http.Client) *VapiAdapter {
	return &VapiAdapter{baseURL: vapiDefaultBaseURL, client: defaultClient(client)}
}

func NewVapiAdapterWithBaseURL(client *http.Client, baseURL string) *VapiAdapter {
	a := NewVapiAdapter(client)
	a.baseURL = baseURL
	return a
}

func (a *VapiAdapter) Provider() Provider { return ProviderVapi }

type vapiCustomer struct {
	Number string `json:"number"`
}

type vapiCallPayload struct {
	AssistantID string       `json:"assistantId"`
	Customer    vapiCustomer `json:"customer"`
	// PhoneNumberID is Vapi's identifier for the origin number, not E.164.
	PhoneNumberID string            `json:"phoneNumberId,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (a *VapiAdapter) Dial(ctx context.Context, req CallRequest) CallResult {
	payload := vapiCallPayload{
		AssistantID:   req.AgentID,
		Customer:      vapiCustomer{Number: req.ToNumber},
		PhoneNumberID: req.FromNumber,
		Metadata:      req.Metadata,
	}

	status, body, err := postJSON(ctx, a.client, a.baseURL+"/call", map[string]string{
		"Authorization": "Bearer " + req.APIKey,
	}, payload)
	if err != nil {
		return failure("vapi call failed: %v", err)
	}
	if !is2xx(status) {
		return failure("%s", apiErrorMessage(status, body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.ID == "" {
		return failure("vapi response missing call id")
	}
	return CallResult{OK: true, CallID: resp.ID}
}
