package livectl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/dialer"
	"voiceagent-platform/internal/tenant"
	"voiceagent-platform/internal/urlguard"
	"voiceagent-platform/pkg/logger"
)

// Action is a live in-call command.
type Action string

const (
	ActionMute   Action = "mute"
	ActionUnmute Action = "unmute"
	ActionSay    Action = "say"
)

// MaxSayMessageLen bounds injected speech.
const MaxSayMessageLen = 500

func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionMute, ActionUnmute, ActionSay:
		return Action(s), true
	default:
		return "", false
	}
}

var (
	ErrInvalidAction  = errors.New("livectl: unrecognized action")
	ErrInvalidMessage = errors.New("livectl: say message must be non-empty and at most 500 characters")

	// ErrCallNotFound covers both a missing call and a call owned by another
	// agency. The caller never learns which; the distinction is logged only.
	ErrCallNotFound = errors.New("livectl: call not found")

	ErrNotControllable   = errors.New("livectl: call does not support live control")
	ErrNoControlEndpoint = errors.New("livectl: no control endpoint available for call")
	ErrNoProviderKey     = errors.New("livectl: no provider key available for tenant")

	// ErrUntrustedEndpoint means the control URL failed validation. Fatal for
	// the action; never downgraded to a warning.
	ErrUntrustedEndpoint = errors.New("livectl: control endpoint failed validation")
)

const vapiDefaultBaseURL = "https://api.vapi.ai"

// Service issues live control commands (mute/unmute/say) to in-progress
// calls.
//
// Endpoint lifecycle: use the cached control endpoint when the call row has
// one; otherwise fetch live call details from the provider, extract the
// endpoint, and cache it on the row. Either way the URL is re-validated
// immediately before use; cached values are still third-party data.
type Service struct {
	store    calls.Store
	resolver *tenant.Resolver

	client      *http.Client
	vapiBaseURL string
}

func NewService(store calls.Store, resolver *tenant.Resolver, client *http.Client) *Service {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Service{
		store:       store,
		resolver:    resolver,
		client:      client,
		vapiBaseURL: vapiDefaultBaseURL,
	}
}

// WithVapiBaseURL points provider lookups at a different host, for tests.
func (s *Service) WithVapiBaseURL(baseURL string) *Service {
	s.vapiBaseURL = baseURL
	return s
}

// Control validates and issues one command against the call identified by
// callID, scoped to the caller's agency.
func (s *Service) Control(ctx context.Context, agencyID, callID string, action Action, message string) error {
	if agencyID == "" || callID == "" {
		return ErrCallNotFound
	}
	if _, ok := ParseAction(string(action)); !ok {
		return ErrInvalidAction
	}
	if action == ActionSay {
		message = strings.TrimSpace(message)
		if message == "" || utf8.RuneCountInString(message) > MaxSayMessageLen {
			return ErrInvalidMessage
		}
	}

	call, err := s.store.GetByCallID(ctx, agencyID, callID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			// Missing and foreign rows answer identically.
			logger.From(ctx).Debug("control target not visible to agency", "agency_id", agencyID, "call_id", callID)
			return ErrCallNotFound
		}
		return err
	}

	// Live control is a Vapi capability; other providers' calls are not
	// controllable, and neither is a call that isn't answered yet or has ended.
	if call.Provider != string(dialer.ProviderVapi) || !call.Status.IsLive() {
		return ErrNotControllable
	}

	endpoint, err := s.controlEndpoint(ctx, call)
	if err != nil {
		return err
	}

	// Mandatory on every use, cached or fresh.
	if !urlguard.IsTrustedControlURL(endpoint) {
		logger.From(ctx).Error("rejected untrusted control endpoint",
			"call_id", call.CallID, "endpoint", endpoint)
		return ErrUntrustedEndpoint
	}

	return s.sendCommand(ctx, endpoint, action, message)
}

// controlEndpoint returns the cached endpoint or fetches and caches it.
func (s *Service) controlEndpoint(ctx context.Context, call calls.Call) (string, error) {
	if call.ControlEndpoint != "" {
		return call.ControlEndpoint, nil
	}

	creds, err := s.resolver.Resolve(ctx, tenant.Ref{AgencyID: call.AgencyID, ClientID: call.ClientID})
	if err != nil {
		return "", err
	}
	key := creds.Key(tenant.ProviderVapi)
	if key == "" {
		return "", ErrNoProviderKey
	}

	endpoint, err := s.fetchControlURL(ctx, key, call.ProviderCallID)
	if err != nil {
		return "", err
	}
	if endpoint == "" {
		return "", ErrNoControlEndpoint
	}

	// Cache for subsequent commands on the same call. Losing the race to
	// another request is harmless; the value is deterministic.
	if err := s.store.SetControlEndpoint(ctx, call.CallID, endpoint); err != nil {
		logger.From(ctx).Warn("control endpoint cache write failed", "call_id", call.CallID, "err", err)
	}
	return endpoint, nil
}

// fetchControlURL pulls live call details from the provider and extracts the
// per-call control URL.
func (s *Service) fetchControlURL(ctx context.Context, apiKey, providerCallID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.vapiBaseURL+"/call/"+providerCallID, nil)
	if err != nil {
		return "", fmt.Errorf("livectl: build call lookup: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("livectl: call lookup failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("livectl: read call lookup: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("livectl: call lookup error: %d", resp.StatusCode)
	}

	var parsed struct {
		Monitor struct {
			ControlURL string `json:"controlUrl"`
		} `json:"monitor"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("livectl: decode call lookup: %w", err)
	}
	return parsed.Monitor.ControlURL, nil
}

// sendCommand POSTs the action-specific body to the validated endpoint.
// Successful commands do not mutate call state.
func (s *Service) sendCommand(ctx context.Context, endpoint string, action Action, message string) error {
	var payload any
	switch action {
	case ActionMute, ActionUnmute:
		payload = map[string]string{"type": "control", "control": string(action)}
	case ActionSay:
		payload = map[string]any{"type": "say", "content": message, "endCallAfterSpoken": false}
	default:
		return ErrInvalidAction
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("livectl: encode command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("livectl: build command: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("livectl: command failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("livectl: command error: %d", resp.StatusCode)
	}

	logger.From(ctx).Info("control command sent", "action", string(action))
	return nil
}
