package lighting

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/xrview/internal/presentation"
)

func TestRigFor(t *testing.T) {
	tests := []struct {
		mode                        presentation.Mode
		ambient, directional, point float32
	}{
		{presentation.Desktop, 0.4, 1.0, 0.5},
		{presentation.AR, 0.8, 1.5, 0.8},
		{presentation.VR, 0.8, 1.5, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			rig := RigFor(presentation.ParametersFor(tt.mode))
			if rig.Ambient[0] != tt.ambient || rig.SunColor[1] != tt.directional || rig.Point.Intensity != tt.point {
				t.Errorf("rig = %+v", rig)
			}
		})
	}
}

func TestDirectionNormalized(t *testing.T) {
	d := Direction(DirectionalPosition)
	length := gomath.Sqrt(float64(d[0]*d[0] + d[1]*d[1] + d[2]*d[2]))
	if gomath.Abs(length-1) > 1e-5 {
		t.Errorf("length = %v, want 1", length)
	}
	if d[1] <= 0 {
		t.Errorf("sun below horizon: %v", d)
	}
}
