package core

import (
	"context"
	"testing"
	"time"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
)

func TestRunJanitor_SweepsCacheAndSessions(t *testing.T) {
	h := newServiceHarness(t)
	ctx := testCtx(t)

	old := listing.NewKey("vendors", 1, 2, nil, listing.Sort{})
	if _, err := h.svc.List(ctx, old); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	h.svc.StartSession()

	h.clock.Advance(20 * time.Minute)
	recent := listing.NewKey("purchaseOrders", 1, 10, nil, listing.Sort{})
	if _, err := h.svc.List(ctx, recent); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	h.clock.Advance(15 * time.Minute)

	entries, sessions := h.svc.runJanitor(JanitorConfig{CacheIdleTTL: 30 * time.Minute})
	if entries != 1 || sessions != 1 {
		t.Fatalf("swept %d entries and %d sessions, want 1 and 1", entries, sessions)
	}
	if h.svc.Client().Store().Len() != 1 {
		t.Errorf("store len = %d, want 1", h.svc.Client().Store().Len())
	}
}

func TestRunJanitor_ZeroTTLKeepsCache(t *testing.T) {
	h := newServiceHarness(t)
	if _, err := h.svc.List(testCtx(t), listing.NewKey("vendors", 1, 2, nil, listing.Sort{})); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	h.clock.Advance(48 * time.Hour)

	if entries, _ := h.svc.runJanitor(JanitorConfig{}); entries != 0 {
		t.Errorf("swept %d entries with TTL disabled, want 0", entries)
	}
}

func TestStartJanitor_StopsOnCancel(t *testing.T) {
	h := newServiceHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.svc.StartJanitor(ctx, JanitorConfig{CheckInterval: time.Hour})
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop")
	}
}
