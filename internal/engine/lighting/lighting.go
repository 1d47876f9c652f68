// Package lighting turns presentation parameters into shader light uniforms.
package lighting

import (
	"github.com/Faultbox/xrview/internal/presentation"
	"github.com/Faultbox/xrview/pkg/math"
)

// Fixed light placement, shared by every presentation mode.
var (
	DirectionalPosition = math.Vec3{X: 10, Y: 10, Z: 5}
	PointPosition       = math.Vec3{X: -10, Y: -10, Z: -10}
)

// PointLight is a point light source for GPU upload.
type PointLight struct {
	Position  [3]float32 // World position
	Color     [3]float32 // RGB color (0-1 range)
	Range     float32    // Falloff distance; 0 means no falloff
	Intensity float32
}

// Rig is the complete light setup for one frame.
type Rig struct {
	Ambient  [3]float32 // Color times intensity
	SunDir   [3]float32 // Normalized, pointing towards the light
	SunColor [3]float32 // Color times intensity
	Point    PointLight
}

// RigFor builds the light setup for a presentation mode's parameters.
func RigFor(p presentation.Parameters) Rig {
	return Rig{
		Ambient:  gray(p.Ambient),
		SunDir:   Direction(DirectionalPosition),
		SunColor: gray(p.Directional),
		Point: PointLight{
			Position:  [3]float32{PointPosition.X, PointPosition.Y, PointPosition.Z},
			Color:     [3]float32{1, 1, 1},
			Intensity: p.Point,
		},
	}
}

// Direction returns the normalized direction from the origin towards pos.
func Direction(pos math.Vec3) [3]float32 {
	d := pos.Normalize()
	return [3]float32{d.X, d.Y, d.Z}
}

func gray(intensity float32) [3]float32 {
	return [3]float32{intensity, intensity, intensity}
}
