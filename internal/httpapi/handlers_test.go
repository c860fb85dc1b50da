package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voiceagent-platform/internal/auth"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/crm"
	"voiceagent-platform/internal/dialer"
	"voiceagent-platform/internal/dialsvc"
	"voiceagent-platform/internal/livectl"
	"voiceagent-platform/internal/tenant"

	"github.com/gin-gonic/gin"
)

type fakeLimiter struct {
	allow    bool
	releases int
}

func (f *fakeLimiter) Acquire(ctx context.Context, agencyID string) (bool, error) {
	return f.allow, nil
}

func (f *fakeLimiter) Release(ctx context.Context, agencyID string) error {
	f.releases++
	return nil
}

type fixture struct {
	router  *gin.Engine
	tenants *tenant.MemoryStore
	calls   *calls.MemoryStore
	limiter *fakeLimiter
}

// newFixture wires the router against an httptest retell endpoint and an
// identity middleware that stands in for JWT auth.
func newFixture(t *testing.T, providerHandler http.HandlerFunc) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(providerHandler)
	t.Cleanup(srv.Close)

	tenants := tenant.NewMemoryStore()
	tenants.PutAgency(tenant.Agency{ID: "ag-1", RetellKey: "agency-retell-key"})

	callStore := calls.NewMemoryStore()
	limiter := &fakeLimiter{allow: true}
	resolver := tenant.NewResolver(tenants)
	dispatcher := dialer.NewDispatcher(dialer.NewRetellAdapterWithBaseURL(srv.Client(), srv.URL))
	dialService := dialsvc.NewService(resolver, dispatcher, callStore, limiter)
	liveService := livectl.NewService(callStore, resolver, srv.Client()).WithVapiBaseURL(srv.URL)

	h := Handlers{
		Dial:     dialService,
		Live:     liveService,
		Recorder: crm.NewRecorder(),
		Tenants:  tenants,
		Calls:    callStore,
		Limiter:  limiter,
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "user-1", "ag-1", "", "owner")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.POST("/v1/calls/dial", h.DialCall)
	r.POST("/v1/calls/:call_id/control", h.ControlCall)
	r.POST("/webhooks/transfer", h.TransferWebhook)
	r.POST("/webhooks/call-status", h.CallStatusWebhook)

	return &fixture{router: r, tenants: tenants, calls: callStore, limiter: limiter}
}

func (f *fixture) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	return w
}

func okRetell(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]string{"call_id": "ret-1"})
}

func TestDialCall_Success(t *testing.T) {
	f := newFixture(t, okRetell)

	w := f.post(t, "/v1/calls/dial", `{"provider":"retell","agent_id":"agent-1","to_number":"+15550001111"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var out dialsvc.DialOutput
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Call.ProviderCallID != "ret-1" {
		t.Fatalf("expected provider call id, got %+v", out.Call)
	}
	if out.KeySource != tenant.SourceAgency {
		t.Fatalf("expected agency key source, got %q", out.KeySource)
	}
}

func TestDialCall_RejectsUnsafeWebhookURL(t *testing.T) {
	f := newFixture(t, okRetell)

	w := f.post(t, "/v1/calls/dial",
		`{"provider":"retell","agent_id":"agent-1","to_number":"+15550001111","event_webhook_url":"https://169.254.169.254/x"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDialCall_CapReached(t *testing.T) {
	f := newFixture(t, okRetell)
	f.limiter.allow = false

	w := f.post(t, "/v1/calls/dial", `{"provider":"retell","agent_id":"agent-1","to_number":"+15550001111"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDialCall_ProviderFailure(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid api key"})
	})

	w := f.post(t, "/v1/calls/dial", `{"provider":"retell","agent_id":"agent-1","to_number":"+15550001111"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "invalid api key") {
		t.Fatalf("expected provider message, got %s", w.Body.String())
	}
}

func TestControlCall_UnknownAction(t *testing.T) {
	f := newFixture(t, okRetell)

	w := f.post(t, "/v1/calls/c-1/control", `{"action":"shout"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestControlCall_UnknownCall(t *testing.T) {
	f := newFixture(t, okRetell)

	w := f.post(t, "/v1/calls/missing/control", `{"action":"mute"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTransferWebhook_AcceptedWithoutConnectors(t *testing.T) {
	f := newFixture(t, okRetell)

	w := f.post(t, "/webhooks/transfer",
		`{"agency_id":"ag-1","call_id":"c-1","agent_id":"agent-1","target":{"name":"Sam","phone_number":"+15550002222"}}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTransferWebhook_UnknownAgency(t *testing.T) {
	f := newFixture(t, okRetell)

	w := f.post(t, "/webhooks/transfer", `{"agency_id":"nope","call_id":"c-1"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCallStatusWebhook_TerminalReleasesSlot(t *testing.T) {
	f := newFixture(t, okRetell)

	if err := f.calls.Create(context.Background(), calls.Call{
		CallID:   "c-1",
		AgencyID: "ag-1",
		Provider: "retell",
		AgentID:  "agent-1",
		To:       "+15550001111",
		Status:   calls.CallStatusInProgress,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := f.post(t, "/webhooks/call-status", `{"agency_id":"ag-1","call_id":"c-1","status":"completed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if f.limiter.releases != 1 {
		t.Fatalf("expected one release, got %d", f.limiter.releases)
	}

	got, err := f.calls.GetByCallID(context.Background(), "ag-1", "c-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != calls.CallStatusCompleted {
		t.Fatalf("expected completed, got %q", got.Status)
	}
}

func TestCallStatusWebhook_UnknownStatus(t *testing.T) {
	f := newFixture(t, okRetell)

	w := f.post(t, "/webhooks/call-status", `{"agency_id":"ag-1","call_id":"c-1","status":"vaporized"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}
