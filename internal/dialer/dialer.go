package dialer

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Dialer places outbound calls against heterogeneous voice-AI provider APIs
// behind one normalized request/result shape.
//
// Rules:
// - No provider wire formats outside this package's adapters.
// - No retries here. A blind retry of call placement can ring a phone twice;
//   retry policy belongs to whoever decided to place the call.
// - Failures are values, not panics: transport and API errors come back as
//   CallResult{OK:false}.

// Provider is the closed set of supported voice-AI vendors.
type Provider string

const (
	ProviderRetell Provider = "retell"
	ProviderVapi   Provider = "vapi"
	ProviderBland  Provider = "bland"
)

// ParseProvider validates a provider string from config or request input.
func ParseProvider(s string) (Provider, bool) {
	switch Provider(s) {
	case ProviderRetell, ProviderVapi, ProviderBland:
		return Provider(s), true
	default:
		return "", false
	}
}

// CallRequest is the provider-agnostic call placement input.
// Constructed per outbound-call decision and consumed once.
type CallRequest struct {
	Provider Provider `json:"provider"`
	APIKey   string   `json:"-"`

	// AgentID is the provider-side agent/assistant/pathway identifier.
	AgentID string `json:"agent_id"`

	ToNumber   string `json:"to_number"`
	FromNumber string `json:"from_number,omitempty"`

	// Metadata is forwarded to the provider for correlation.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CallResult is the normalized outcome. OK=false never carries a CallID.
type CallResult struct {
	OK     bool   `json:"success"`
	CallID string `json:"call_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

func failure(format string, args ...any) CallResult {
	return CallResult{OK: false, Error: fmt.Sprintf(format, args...)}
}

// Initiator is implemented by one adapter per provider.
type Initiator interface {
	Provider() Provider
	Dial(ctx context.Context, req CallRequest) CallResult
}

// Dispatcher routes a CallRequest to the adapter for its provider.
type Dispatcher struct {
	adapters map[Provider]Initiator
}

func NewDispatcher(adapters ...Initiator) *Dispatcher {
	m := make(map[Provider]Initiator, len(adapters))
	for _, a := range adapters {
		m[a.Provider()] = a
	}
	return &Dispatcher{adapters: m}
}

// NewDefaultDispatcher wires the three production adapters over one client.
func NewDefaultDispatcher(client *http.Client) *Dispatcher {
	return NewDispatcher(
		NewRetellAdapter(client),
		NewVapiAdapter(client),
		NewBlandAdapter(client),
	)
}

// Dial dispatches on the request provider. An unsupported provider is a
// config/programmer error and fails immediately without touching the network.
func (d *Dispatcher) Dial(ctx context.Context, req CallRequest) CallResult {
	a, ok := d.adapters[req.Provider]
	if !ok {
		return failure("unsupported provider %q", req.Provider)
	}
	if req.APIKey == "" {
		return failure("no API key for provider %q", req.Provider)
	}
	if req.AgentID == "" || req.ToNumber == "" {
		return failure("agent id and destination number are required")
	}
	return a.Dial(ctx, req)
}

func defaultClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: 15 * time.Second}
}
