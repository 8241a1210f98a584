package models

import (
	"testing"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"github.com/alicebob/miniredis/v2"
)

func TestSessionCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	if err := config.ConnectRedisAt(mr.Addr()); err != nil {
		t.Fatalf("connect miniredis: %v", err)
	}

	outlet := 3
	sess := ChatSession{
		Principal: "959123456789",
		Role:      RoleAttendant,
		BoundCode: "AT01",
		OutletId:  &outlet,
		State:     SessionStateClosingQty,
	}
	sess.SetCursor(SessionCursor{
		Kind:    CursorKindClosing,
		Closing: &ClosingDraft{ItemKey: "chicken-whole", ItemName: "Whole chicken"},
	})

	cacheSession(sess)

	got, ok := readSessionCache("959123456789")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got.Role != RoleAttendant || got.BoundCode != "AT01" || got.State != SessionStateClosingQty {
		t.Fatalf("cached session mangled: %+v", got)
	}
	if got.OutletId == nil || *got.OutletId != outlet {
		t.Fatalf("outlet id lost: %+v", got.OutletId)
	}
	if c := got.Cursor(); c.Kind != CursorKindClosing || c.Closing == nil || c.Closing.ItemKey != "chicken-whole" {
		t.Fatalf("cursor lost through cache: %+v", c)
	}

	if _, ok := readSessionCache("950000000000"); ok {
		t.Fatalf("unexpected cache hit for unknown principal")
	}
}

func TestSessionCacheExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	if err := config.ConnectRedisAt(mr.Addr()); err != nil {
		t.Fatalf("connect miniredis: %v", err)
	}

	sess := ChatSession{Principal: "959111222333", Role: RoleSupplier, BoundCode: "SP01", State: SessionStateMenu}
	sess.SetCursor(EmptyCursor())
	cacheSession(sess)

	mr.FastForward(sessionCacheTTL * 2)

	if _, ok := readSessionCache("959111222333"); ok {
		t.Fatalf("cache entry should have expired")
	}
}
