package tenant

import (
	"context"
	"errors"
	"testing"
)

func seedStore() *MemoryStore {
	s := NewMemoryStore()
	s.PutAgency(Agency{ID: "ag-1", Name: "Acme", RetellKey: "agency-retell", VapiKey: "agency-vapi"})
	s.PutClient(Client{ID: "cl-1", AgencyID: "ag-1", Name: "Sub", RetellKey: "client-retell"})
	s.PutClient(Client{ID: "cl-2", AgencyID: "ag-1", Name: "NoOverride"})
	s.PutAgency(Agency{ID: "ag-2", Name: "Other"})
	return s
}

func TestResolve_ClientKeyWins(t *testing.T) {
	r := NewResolver(seedStore())
	creds, err := r.Resolve(context.Background(), Ref{AgencyID: "ag-1", ClientID: "cl-1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if creds.RetellKey != "client-retell" {
		t.Fatalf("expected client retell key, got %q", creds.RetellKey)
	}
	if creds.Sources[ProviderRetell] != SourceClient {
		t.Fatalf("expected client source, got %q", creds.Sources[ProviderRetell])
	}
}

func TestResolve_EmptyClientKeyFallsThrough(t *testing.T) {
	r := NewResolver(seedStore())
	creds, err := r.Resolve(context.Background(), Ref{AgencyID: "ag-1", ClientID: "cl-1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// cl-1 has no vapi override; agency key applies.
	if creds.VapiKey != "agency-vapi" {
		t.Fatalf("expected agency vapi key, got %q", creds.VapiKey)
	}
	if creds.Sources[ProviderVapi] != SourceAgency {
		t.Fatalf("expected agency source, got %q", creds.Sources[ProviderVapi])
	}
	if creds.BlandKey != "" || creds.Sources[ProviderBland] != SourceNone {
		t.Fatalf("expected absent bland key, got %q source %q", creds.BlandKey, creds.Sources[ProviderBland])
	}
}

func TestResolve_NoClient(t *testing.T) {
	r := NewResolver(seedStore())
	creds, err := r.Resolve(context.Background(), Ref{AgencyID: "ag-1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if creds.RetellKey != "agency-retell" || creds.Sources[ProviderRetell] != SourceAgency {
		t.Fatalf("expected agency retell key, got %q source %q", creds.RetellKey, creds.Sources[ProviderRetell])
	}
}

func TestResolve_ClientOfOtherAgencyIsNotFound(t *testing.T) {
	r := NewResolver(seedStore())
	// cl-1 belongs to ag-1; addressing it through ag-2 must fail.
	_, err := r.Resolve(context.Background(), Ref{AgencyID: "ag-2", ClientID: "cl-1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolve_AgencyIDRequired(t *testing.T) {
	r := NewResolver(seedStore())
	if _, err := r.Resolve(context.Background(), Ref{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestPickKey(t *testing.T) {
	cases := []struct {
		client, agency string
		wantKey        string
		wantSrc        KeySource
	}{
		{"ck", "ak", "ck", SourceClient},
		{"", "ak", "ak", SourceAgency},
		{"  ", "ak", "ak", SourceAgency},
		{"ck", "", "ck", SourceClient},
		{"", "", "", SourceNone},
	}
	for _, tc := range cases {
		k, src := pickKey(tc.client, tc.agency)
		if k != tc.wantKey || src != tc.wantSrc {
			t.Fatalf("pickKey(%q, %q) = %q/%q, want %q/%q", tc.client, tc.agency, k, src, tc.wantKey, tc.wantSrc)
		}
	}
}

func TestAutoSelect(t *testing.T) {
	sel, ok := Credentials{RetellKey: "r", VapiKey: "v"}.AutoSelect()
	if !ok || sel.Provider != ProviderRetell || sel.APIKey != "r" {
		t.Fatalf("expected retell selection, got %+v ok=%v", sel, ok)
	}

	sel, ok = Credentials{VapiKey: "v", BlandKey: "b"}.AutoSelect()
	if !ok || sel.Provider != ProviderVapi || sel.APIKey != "v" {
		t.Fatalf("expected vapi selection, got %+v ok=%v", sel, ok)
	}

	if _, ok := (Credentials{}).AutoSelect(); ok {
		t.Fatalf("expected no selection with no keys")
	}
}
