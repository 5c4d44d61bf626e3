package badger

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/interfaces"
	"github.com/rjdeboer/captare/internal/models"
)

func TestSessionLifecycle(t *testing.T) {
	db := newTestDB(t)
	store := NewSessionStorage(db, arbor.NewLogger())
	ctx := context.Background()

	cfg := models.DefaultJobConfig()
	queries := []models.QuerySpec{{Query: "groothandel Nederland site:.nl"}}

	id, err := store.Create(ctx, "tenant-a", "list-1", cfg, queries)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	session, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if session.Status != models.SessionStatusRunning {
		t.Errorf("status = %s, want running", session.Status)
	}
	if len(session.Queries) != 1 {
		t.Errorf("got %d queries, want 1", len(session.Queries))
	}

	leads := 12
	dups := 3
	done := models.SessionStatusDone
	err = store.Update(ctx, id, interfaces.SessionUpdate{
		LeadsFound:        &leads,
		DuplicatesSkipped: &dups,
		Status:            &done,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	session, err = store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if session.LeadsFound != 12 || session.DuplicatesSkipped != 3 {
		t.Errorf("counters = %d/%d, want 12/3", session.LeadsFound, session.DuplicatesSkipped)
	}
	if session.Status != models.SessionStatusDone {
		t.Errorf("status = %s, want done", session.Status)
	}
	// ErrorsCount was nil in the update and must be untouched.
	if session.ErrorsCount != 0 {
		t.Errorf("errors_count = %d, want 0", session.ErrorsCount)
	}
}

func TestSessionUpdateUnknownID(t *testing.T) {
	db := newTestDB(t)
	store := NewSessionStorage(db, arbor.NewLogger())

	leads := 1
	err := store.Update(context.Background(), "ses_missing", interfaces.SessionUpdate{LeadsFound: &leads})
	if err == nil {
		t.Error("Update() on unknown session succeeded, want error")
	}
}

func TestSessionList(t *testing.T) {
	db := newTestDB(t)
	store := NewSessionStorage(db, arbor.NewLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, "tenant-a", "list-1", models.DefaultJobConfig(), nil); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		time.Sleep(2 * time.Millisecond) // distinct CreatedAt for the sort
	}
	if _, err := store.Create(ctx, "tenant-b", "list-1", models.DefaultJobConfig(), nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sessions, err := store.List(ctx, "tenant-a", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 3 {
		t.Errorf("got %d sessions, want 3", len(sessions))
	}

	limited, err := store.List(ctx, "tenant-a", 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d sessions with limit 2, want 2", len(limited))
	}
}

func TestMarkStale(t *testing.T) {
	db := newTestDB(t)
	store := NewSessionStorage(db, arbor.NewLogger())
	ctx := context.Background()

	id, err := store.Create(ctx, "tenant-a", "list-1", models.DefaultJobConfig(), nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Backdate the session so it looks abandoned.
	var session models.Session
	if err := db.Store().Get(id, &session); err != nil {
		t.Fatalf("load session: %v", err)
	}
	session.UpdatedAt = time.Now().Add(-48 * time.Hour)
	if err := db.Store().Update(id, &session); err != nil {
		t.Fatalf("backdate session: %v", err)
	}

	// A fresh running session must survive the sweep.
	freshID, err := store.Create(ctx, "tenant-a", "list-1", models.DefaultJobConfig(), nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	touched, err := store.MarkStale(ctx, 24)
	if err != nil {
		t.Fatalf("MarkStale() error = %v", err)
	}
	if touched != 1 {
		t.Errorf("MarkStale() = %d, want 1", touched)
	}

	stale, _ := store.Get(ctx, id)
	if stale.Status != models.SessionStatusError {
		t.Errorf("stale session status = %s, want error", stale.Status)
	}
	fresh, _ := store.Get(ctx, freshID)
	if fresh.Status != models.SessionStatusRunning {
		t.Errorf("fresh session status = %s, want running", fresh.Status)
	}
}
