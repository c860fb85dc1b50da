package dialsvc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/dialer"
	"voiceagent-platform/internal/tenant"
)

type fakeLimiter struct {
	allow    bool
	acquires int
	releases int
}

func (f *fakeLimiter) Acquire(ctx context.Context, agencyID string) (bool, error) {
	f.acquires++
	return f.allow, nil
}

func (f *fakeLimiter) Release(ctx context.Context, agencyID string) error {
	f.releases++
	return nil
}

// newDialService wires the service against an httptest retell endpoint whose
// handler is supplied by the test.
func newDialService(t *testing.T, limiter Limiter, handler http.HandlerFunc) (*Service, *calls.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tenants := tenant.NewMemoryStore()
	tenants.PutAgency(tenant.Agency{ID: "ag-1", RetellKey: "agency-retell-key"})
	tenants.PutClient(tenant.Client{ID: "cl-1", AgencyID: "ag-1"})

	dispatcher := dialer.NewDispatcher(dialer.NewRetellAdapterWithBaseURL(srv.Client(), srv.URL))
	store := calls.NewMemoryStore()
	return NewService(tenant.NewResolver(tenants), dispatcher, store, limiter), store
}

func okRetell(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]string{"call_id": "ret-1"})
}

func TestDial_EndToEndAgencyKey(t *testing.T) {
	svc, store := newDialService(t, nil, okRetell)

	// Client with no override: agency key applies, call id comes back.
	out, err := svc.Dial(context.Background(), DialInput{
		Tenant:   tenant.Ref{AgencyID: "ag-1", ClientID: "cl-1"},
		Provider: "retell",
		AgentID:  "agent-1",
		ToNumber: "+15550001111",
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if out.Call.ProviderCallID != "ret-1" {
		t.Fatalf("expected normalized provider call id, got %q", out.Call.ProviderCallID)
	}
	if out.KeySource != tenant.SourceAgency {
		t.Fatalf("expected agency key source, got %q", out.KeySource)
	}

	persisted, err := store.GetByCallID(context.Background(), "ag-1", out.Call.CallID)
	if err != nil {
		t.Fatalf("call row not persisted: %v", err)
	}
	if persisted.Status != calls.CallStatusQueued || persisted.Provider != "retell" {
		t.Fatalf("unexpected row: %+v", persisted)
	}
}

func TestDial_UpstreamRejectionSurfacesError(t *testing.T) {
	svc, _ := newDialService(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
	})

	_, err := svc.Dial(context.Background(), DialInput{
		Tenant:   tenant.Ref{AgencyID: "ag-1"},
		Provider: "retell",
		AgentID:  "agent-1",
		ToNumber: "+15550001111",
	})
	var df *DialFailedError
	if !errors.As(err, &df) {
		t.Fatalf("expected DialFailedError, got %v", err)
	}
	if df.Message != "invalid api key" {
		t.Fatalf("unexpected message %q", df.Message)
	}
}

func TestDial_AutoSelectsProvider(t *testing.T) {
	svc, _ := newDialService(t, nil, okRetell)

	out, err := svc.Dial(context.Background(), DialInput{
		Tenant:   tenant.Ref{AgencyID: "ag-1"},
		AgentID:  "agent-1",
		ToNumber: "+15550001111",
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if out.Provider != dialer.ProviderRetell {
		t.Fatalf("expected retell auto-selection, got %q", out.Provider)
	}
}

func TestDial_NoKeyAnywhere(t *testing.T) {
	tenants := tenant.NewMemoryStore()
	tenants.PutAgency(tenant.Agency{ID: "ag-bare"})
	svc := NewService(tenant.NewResolver(tenants), dialer.NewDispatcher(), calls.NewMemoryStore(), nil)

	_, err := svc.Dial(context.Background(), DialInput{
		Tenant:   tenant.Ref{AgencyID: "ag-bare"},
		AgentID:  "a",
		ToNumber: "+1",
	})
	if !errors.Is(err, ErrNoProviderKey) {
		t.Fatalf("expected ErrNoProviderKey, got %v", err)
	}
}

func TestDial_CapReached(t *testing.T) {
	lim := &fakeLimiter{allow: false}
	svc, _ := newDialService(t, lim, okRetell)

	_, err := svc.Dial(context.Background(), DialInput{
		Tenant:   tenant.Ref{AgencyID: "ag-1"},
		Provider: "retell",
		AgentID:  "a",
		ToNumber: "+1",
	})
	if !errors.Is(err, ErrTooManyActiveCalls) {
		t.Fatalf("expected ErrTooManyActiveCalls, got %v", err)
	}
}

func TestDial_SlotReleasedOnFailure(t *testing.T) {
	lim := &fakeLimiter{allow: true}
	svc, _ := newDialService(t, lim, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := svc.Dial(context.Background(), DialInput{
		Tenant:   tenant.Ref{AgencyID: "ag-1"},
		Provider: "retell",
		AgentID:  "a",
		ToNumber: "+1",
	})
	if err == nil {
		t.Fatalf("expected dial failure")
	}
	if lim.acquires != 1 || lim.releases != 1 {
		t.Fatalf("slot not released on failure: acquires=%d releases=%d", lim.acquires, lim.releases)
	}
}

func TestDial_SlotHeldOnSuccess(t *testing.T) {
	lim := &fakeLimiter{allow: true}
	svc, _ := newDialService(t, lim, okRetell)

	if _, err := svc.Dial(context.Background(), DialInput{
		Tenant:   tenant.Ref{AgencyID: "ag-1"},
		Provider: "retell",
		AgentID:  "a",
		ToNumber: "+1",
	}); err != nil {
		t.Fatalf("dial: %v", err)
	}
	if lim.releases != 0 {
		t.Fatalf("slot must be held while the call is live")
	}
}

func TestDial_UnsupportedProviderString(t *testing.T) {
	svc, _ := newDialService(t, nil, okRetell)
	_, err := svc.Dial(context.Background(), DialInput{
		Tenant:   tenant.Ref{AgencyID: "ag-1"},
		Provider: "twilio",
		AgentID:  "a",
		ToNumber: "+1",
	})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
