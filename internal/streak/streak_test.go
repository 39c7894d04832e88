package streak

import (
	"testing"

	"github.com/kverlaine/questforge/internal/models"
)

func TestUpdate(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name    string
		current models.Streak
		day     string
		want    models.Streak
	}{
		{
			name:    "first ever activity starts at one",
			current: models.Streak{},
			day:     "2026-03-10",
			want:    models.Streak{Current: 1, Longest: 1, LastActivityDate: "2026-03-10"},
		},
		{
			name:    "same day is a no-op",
			current: models.Streak{Current: 4, Longest: 6, LastActivityDate: "2026-03-10"},
			day:     "2026-03-10",
			want:    models.Streak{Current: 4, Longest: 6, LastActivityDate: "2026-03-10"},
		},
		{
			name:    "next day extends",
			current: models.Streak{Current: 4, Longest: 6, LastActivityDate: "2026-03-10"},
			day:     "2026-03-11",
			want:    models.Streak{Current: 5, Longest: 6, LastActivityDate: "2026-03-11"},
		},
		{
			name:    "extension updates longest",
			current: models.Streak{Current: 6, Longest: 6, LastActivityDate: "2026-03-10"},
			day:     "2026-03-11",
			want:    models.Streak{Current: 7, Longest: 7, LastActivityDate: "2026-03-11"},
		},
		{
			name:    "gap resets to one",
			current: models.Streak{Current: 9, Longest: 9, LastActivityDate: "2026-03-10"},
			day:     "2026-03-14",
			want:    models.Streak{Current: 1, Longest: 9, LastActivityDate: "2026-03-14"},
		},
		{
			name:    "month boundary extends",
			current: models.Streak{Current: 2, Longest: 2, LastActivityDate: "2026-02-28"},
			day:     "2026-03-01",
			want:    models.Streak{Current: 3, Longest: 3, LastActivityDate: "2026-03-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calc.Update(tt.current, tt.day); got != tt.want {
				t.Errorf("Update(%+v, %s) = %+v, want %+v", tt.current, tt.day, got, tt.want)
			}
		})
	}
}
