package models

import (
	"errors"
	"testing"
)

func TestParseReviewRef(t *testing.T) {
	cases := []struct {
		ref      string
		wantKind byte
		wantId   int
		wantErr  bool
	}{
		{ref: "E3", wantKind: 'E', wantId: 3},
		{ref: "d12", wantKind: 'D', wantId: 12},
		{ref: " e7 ", wantKind: 'E', wantId: 7},
		{ref: "X3", wantErr: true},
		{ref: "E", wantErr: true},
		{ref: "E0", wantErr: true},
		{ref: "E-1", wantErr: true},
		{ref: "3", wantErr: true},
		{ref: "", wantErr: true},
	}
	for _, tc := range cases {
		kind, id, err := parseReviewRef(tc.ref)
		if tc.wantErr {
			if !errors.Is(err, ErrReviewNotFound) {
				t.Fatalf("ref %q: expected ErrReviewNotFound, got kind=%c id=%d err=%v", tc.ref, kind, id, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ref %q: unexpected error: %v", tc.ref, err)
		}
		if kind != tc.wantKind || id != tc.wantId {
			t.Fatalf("ref %q: expected %c%d, got %c%d", tc.ref, tc.wantKind, tc.wantId, kind, id)
		}
	}
}
