package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/storefront/internal/app/store/audit"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	event := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        "192.168.1.1",
		UserAgent: "TestBrowser/1.0",
		Success:   true,
	}

	if err := store.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be auto-generated")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestStore_GetByUser_MatchesActor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	adminID := primitive.NewObjectID()
	customerID := primitive.NewObjectID()
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAdmin, EventType: audit.EventUserRoleChanged, ActorID: &adminID, UserID: &customerID, Success: true})
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, UserID: &adminID, Success: true})

	events, err := store.GetByUser(ctx, adminID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events for admin, got %d", len(events))
	}

	events, err = store.GetByUser(ctx, customerID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event for customer, got %d", len(events))
	}
}

func TestStore_Query(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	productID := primitive.NewObjectID()
	events := []audit.Event{
		{Timestamp: now.Add(-3 * time.Hour), Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true},
		{Timestamp: now.Add(-2 * time.Hour), Category: audit.CategoryAdmin, EventType: audit.EventProductCreated, SubjectID: &productID, Success: true},
		{Timestamp: now.Add(-1 * time.Hour), Category: audit.CategoryAdmin, EventType: audit.EventProductUpdated, SubjectID: &productID, Success: true},
		{Timestamp: now, Category: audit.CategoryOrder, EventType: audit.EventOrderPaid, Success: true},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	since := now.Add(-90 * time.Minute)
	tests := []struct {
		name      string
		filter    audit.QueryFilter
		wantTotal int64
		wantFirst string
	}{
		{"all newest first", audit.QueryFilter{}, 4, audit.EventOrderPaid},
		{"by category", audit.QueryFilter{Category: audit.CategoryAdmin}, 2, audit.EventProductUpdated},
		{"by event type", audit.QueryFilter{EventType: audit.EventLoginSuccess}, 1, audit.EventLoginSuccess},
		{"by subject", audit.QueryFilter{SubjectID: &productID}, 2, audit.EventProductUpdated},
		{"since", audit.QueryFilter{StartTime: &since}, 2, audit.EventOrderPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := store.Query(ctx, tt.filter, paging.New(1, 10))
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if len(got) == 0 || got[0].EventType != tt.wantFirst {
				t.Errorf("first event = %v, want %s", got, tt.wantFirst)
			}
		})
	}

	page2, total, err := store.Query(ctx, audit.QueryFilter{}, paging.New(2, 3))
	if err != nil {
		t.Fatalf("Query page 2 failed: %v", err)
	}
	if total != 4 || len(page2) != 1 {
		t.Errorf("page 2: total=%d len=%d, want 4 and 1", total, len(page2))
	}
}

func TestStore_GetFailedLogins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	_ = store.Log(ctx, audit.Event{Timestamp: now, Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongPassword, Success: false})
	_ = store.Log(ctx, audit.Event{Timestamp: now, Category: audit.CategoryAuth, EventType: audit.EventLoginFailedUserNotFound, Success: false})
	_ = store.Log(ctx, audit.Event{Timestamp: now, Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Success: true})
	_ = store.Log(ctx, audit.Event{Timestamp: now.Add(-2 * time.Hour), Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongPassword, Success: false})

	events, err := store.GetFailedLogins(ctx, now.Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("GetFailedLogins failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 failed logins, got %d", len(events))
	}
}
