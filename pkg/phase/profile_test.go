package phase

import (
	"testing"
	"time"

	"simtrack/pkg/model"
)

func TestProfileTracker(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step := func(i int, alt float64) model.PrimarySample {
		return model.PrimarySample{Timestamp: start.Add(time.Duration(i) * time.Second), AltitudeTrue: alt}
	}

	tests := []struct {
		name string
		alts []float64
		want []model.VerticalProfile
	}{
		{
			name: "climb needs two confirmations",
			alts: []float64{1000, 1020, 1040, 1060},
			want: []model.VerticalProfile{model.ProfileLevel, model.ProfileLevel, model.ProfileClimbing, model.ProfileClimbing},
		},
		{
			name: "descent",
			alts: []float64{5000, 4980, 4960, 4940},
			want: []model.VerticalProfile{model.ProfileLevel, model.ProfileLevel, model.ProfileDescending, model.ProfileDescending},
		},
		{
			name: "hysteresis band keeps level",
			alts: []float64{3000, 3004, 3008, 3012},
			want: []model.VerticalProfile{model.ProfileLevel, model.ProfileLevel, model.ProfileLevel, model.ProfileLevel},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewProfileTracker(5 * time.Second)
			for i, alt := range tt.alts {
				if got := tr.Update(step(i, alt)); got != tt.want[i] {
					t.Errorf("step %d: got %v, want %v", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestProfileTracker_OnGroundIsLevel(t *testing.T) {
	tr := NewProfileTracker(5 * time.Second)
	p := model.PrimarySample{OnGround: true, VerticalSpeed: 900}
	tr.Update(p)
	if got := tr.Update(p); got != model.ProfileLevel {
		t.Errorf("on ground profile = %v, want Level", got)
	}
}
