package oauthstate_test

import (
	"testing"
	"time"

	"github.com/dalemusser/storefront/internal/app/store/oauthstate"
	"github.com/dalemusser/storefront/internal/testutil"
)

func TestStore_Consume(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.Save(ctx, oauthstate.State{
		State:     "state-123",
		Verifier:  "verifier-abc",
		ReturnURL: "/account",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	st, ok, err := store.Consume(ctx, "state-123")
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if !ok {
		t.Fatal("expected state to be valid")
	}
	if st.ReturnURL != "/account" || st.Verifier != "verifier-abc" {
		t.Errorf("got %+v", st)
	}

	// One-time use
	_, ok, err = store.Consume(ctx, "state-123")
	if err != nil {
		t.Fatalf("second Consume error: %v", err)
	}
	if ok {
		t.Error("expected state to be consumed after first use")
	}
}

func TestStore_Consume_Invalid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, state := range []string{"", "non-existent-state"} {
		_, ok, err := store.Consume(ctx, state)
		if err != nil {
			t.Fatalf("Consume(%q) error: %v", state, err)
		}
		if ok {
			t.Errorf("Consume(%q): expected ok=false", state)
		}
	}
}

func TestStore_Expired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Save(ctx, oauthstate.State{State: "old", ExpiresAt: time.Now().Add(-time.Minute)}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, oauthstate.State{State: "fresh", ExpiresAt: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, ok, _ := store.Consume(ctx, "old"); ok {
		t.Error("expected expired state to be rejected")
	}

	n, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("CleanupExpired removed %d, want 1", n)
	}
	if _, ok, _ := store.Consume(ctx, "fresh"); !ok {
		t.Error("expected fresh state to survive cleanup")
	}
}
