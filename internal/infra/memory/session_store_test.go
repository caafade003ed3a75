package memory

import (
	"context"
	"errors"
	"testing"

	"olympia-live-service/internal/domain"
)

func TestSessionStoreOptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	if err := store.Create(ctx, domain.LiveSession{ID: "s1", MatchID: "m1", Status: domain.SessionPending, AccessCode: "AB23CD"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	session, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.Revision != 1 {
		t.Fatalf("expected initial revision 1, got %d", session.Revision)
	}

	session.Status = domain.SessionRunning
	updated, err := store.Update(ctx, "s1", session.Revision, session)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Revision != 2 {
		t.Fatalf("expected revision bump, got %d", updated.Revision)
	}

	// A second writer holding the stale revision must lose.
	session.CurrentRoundType = domain.RoundKhoiDong
	if _, err := store.Update(ctx, "s1", 1, session); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for stale revision, got %v", err)
	}
}

func TestSessionStoreLookups(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	_ = store.Create(ctx, domain.LiveSession{ID: "s1", MatchID: "m1", Status: domain.SessionPending, AccessCode: "AB23CD"})

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	byCode, err := store.ByAccessCode(ctx, "AB23CD")
	if err != nil || byCode.ID != "s1" {
		t.Fatalf("by code: %v %+v", err, byCode)
	}

	active, err := store.ActiveByMatch(ctx, "m1")
	if err != nil || active.ID != "s1" {
		t.Fatalf("active by match: %v %+v", err, active)
	}

	// An ended session no longer counts as active or joinable.
	active.End()
	if _, err := store.Update(ctx, "s1", active.Revision, active); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := store.ActiveByMatch(ctx, "m1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected no active session, got %v", err)
	}
	if _, err := store.ByAccessCode(ctx, "AB23CD"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected code unresolvable after end, got %v", err)
	}
}
