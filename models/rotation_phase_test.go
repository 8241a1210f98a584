package models_test

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/stockchat_backend/models"
)

func TestNextRotationPhase(t *testing.T) {
	cases := []struct {
		name     string
		count    int
		endOfDay bool
		want     models.RotationPhase
		wantErr  error
	}{
		{name: "first count of a normal day", count: 0, endOfDay: false, want: models.RotationPhaseFirstDone},
		{name: "second count closes the day", count: 1, endOfDay: false, want: models.RotationPhaseSecondDone},
		{name: "first count flagged end of day closes outright", count: 0, endOfDay: true, want: models.RotationPhaseSecondDone},
		{name: "end of day flag on second count is redundant but fine", count: 1, endOfDay: true, want: models.RotationPhaseSecondDone},
		{name: "third count is refused", count: 2, endOfDay: false, wantErr: models.ErrDayClosed},
		{name: "anything past two is refused", count: 5, endOfDay: true, wantErr: models.ErrDayClosed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := models.NextRotationPhase(tc.count, tc.endOfDay)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got phase=%v err=%v", tc.wantErr, got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("count=%d endOfDay=%v: expected %v, got %v", tc.count, tc.endOfDay, tc.want, got)
			}
		})
	}
}
