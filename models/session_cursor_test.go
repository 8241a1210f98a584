package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCursorRoundTripKeepsDraft(t *testing.T) {
	qty := decimal.NewFromInt(7)
	var sess ChatSession
	sess.SetCursor(SessionCursor{
		Kind: CursorKindClosing,
		Closing: &ClosingDraft{
			ItemKey:  "chicken-whole",
			ItemName: "Whole chicken",
			Qty:      &qty,
			DoneKeys: []string{"rice-bag"},
		},
	})

	got := sess.Cursor()
	if got.Kind != CursorKindClosing || got.Closing == nil {
		t.Fatalf("expected closing cursor, got %+v", got)
	}
	if got.Closing.ItemKey != "chicken-whole" || got.Closing.Qty == nil || !got.Closing.Qty.Equal(qty) {
		t.Fatalf("draft fields lost in round trip: %+v", got.Closing)
	}
	if len(got.Closing.DoneKeys) != 1 || got.Closing.DoneKeys[0] != "rice-bag" {
		t.Fatalf("done keys lost in round trip: %+v", got.Closing.DoneKeys)
	}
}

func TestCorruptCursorFallsBackToEmpty(t *testing.T) {
	sess := ChatSession{CursorJSON: []byte("{not json")}
	got := sess.Cursor()
	if got.Kind != CursorKindNone {
		t.Fatalf("corrupt cursor must drop to empty, got kind=%q", got.Kind)
	}

	sess = ChatSession{CursorJSON: nil}
	if got := sess.Cursor(); got.Kind != CursorKindNone {
		t.Fatalf("missing cursor must be empty, got kind=%q", got.Kind)
	}
}

func TestIsResumable(t *testing.T) {
	resumable := []CursorKind{CursorKindClosing, CursorKindExpense, CursorKindDeposit, CursorKindSupply}
	for _, kind := range resumable {
		if !(SessionCursor{Kind: kind}).IsResumable() {
			t.Fatalf("%s cursor should survive logout", kind)
		}
	}
	for _, kind := range []CursorKind{CursorKindNone, CursorKindLogin} {
		if (SessionCursor{Kind: kind}).IsResumable() {
			t.Fatalf("%s cursor should not survive logout", kind)
		}
	}
}
