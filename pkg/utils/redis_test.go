package utils

import (
	"context"
	"testing"
	"time"
)

func TestAcquireConcurrencyCap_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	if _, err := AcquireConcurrencyCap(ctx, nil, "k", 1, time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if err := ReleaseConcurrencyCap(ctx, nil, "k"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestConcurrencyScriptsInitialized(t *testing.T) {
	if concurrencyAcquireScript == nil || concurrencyReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}
