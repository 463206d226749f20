package app

import (
	"context"
	"testing"

	"github.com/dvloznov/ledger-sync/internal/config"
	"github.com/dvloznov/ledger-sync/internal/store/inmemory"
)

func TestNew_InMemoryDefaults(t *testing.T) {
	cfg := &config.Config{
		APIBaseURL:   "http://localhost:3000/api/v0",
		HTTPTimeout:  config.DefaultHTTPTimeout,
		SyncInterval: config.DefaultSyncInterval,
	}

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := a.Store.(*inmemory.Store); !ok {
		t.Errorf("Store = %T, want in-memory", a.Store)
	}
	if a.Archiver != nil {
		t.Error("archiver should be disabled without a bucket")
	}
	if a.Engine == nil || a.Ledger == nil || a.Categories == nil || a.PaymentMethods == nil {
		t.Error("services not wired")
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestNew_InvalidBaseURL(t *testing.T) {
	if _, err := New(context.Background(), &config.Config{APIBaseURL: "::"}); err == nil {
		t.Error("expected error for invalid base URL")
	}
}
