package interaction

import (
	gomath "math"
	"time"

	"github.com/Faultbox/xrview/internal/scene"
	"github.com/Faultbox/xrview/pkg/math"
)

// Options tune the interaction behavior.
type Options struct {
	MinScale  float32
	MaxScale  float32
	ScaleStep float32 // Multiplier per squeeze transition

	// Idle float: Position.Y += sin(elapsedMillis*FloatRate) * FloatAmplitude per tick.
	FloatAmplitude float32
	FloatRate      float64

	Highlight scene.Color // Emissive tint while grabbed
}

// DefaultOptions returns the stock interaction tuning.
func DefaultOptions() Options {
	return Options{
		MinScale:       0.5,
		MaxScale:       3.0,
		ScaleStep:      1.2,
		FloatAmplitude: 0.002,
		FloatRate:      0.001,
		Highlight:      scene.Hex(0x444444),
	}
}

// Sample is the primary controller pose for one frame.
type Sample struct {
	ControllerPosition math.Vec3
	Tracked            bool
}

// State is the interaction state of one session.
type State struct {
	Grabbed    bool
	GrabOffset math.Vec3
	Scale      float32
	Position   math.Vec3 // Object position
}

// NewState returns an idle state at unit scale.
func NewState(position math.Vec3) State {
	return State{Scale: 1, Position: position}
}

// Step advances the state by one frame. Events are applied in order, then the
// per-frame follow and idle float. It has no side effects.
func Step(prev State, events []Event, sample Sample, elapsed time.Duration, opts Options) State {
	st := prev
	squeezed := false

	for _, e := range events {
		switch e.Type {
		case SelectStart:
			if !st.Grabbed {
				st.Grabbed = true
				st.GrabOffset = st.Position.Sub(e.ControllerPosition)
			}
		case SelectEnd:
			st.Grabbed = false
		case SqueezeStart:
			st.Scale = min(st.Scale*opts.ScaleStep, opts.MaxScale)
			squeezed = true
		case SqueezeEnd:
			st.Scale = max(st.Scale/opts.ScaleStep, opts.MinScale)
			squeezed = true
		}
	}

	switch {
	case st.Grabbed && sample.Tracked:
		st.Position = sample.ControllerPosition.Add(st.GrabOffset)
	case !st.Grabbed && !squeezed:
		// Accumulates; the object is never re-centered.
		ms := float64(elapsed) / float64(time.Millisecond)
		st.Position.Y += float32(gomath.Sin(ms*opts.FloatRate)) * opts.FloatAmplitude
	}

	return st
}

// Apply writes st to node: position, uniform scale and the emissive tint of
// every mesh material beneath it.
func Apply(node *scene.Node, st State, opts Options) {
	node.Position = st.Position
	node.Scale = st.Scale

	emissive := scene.Color{}
	if st.Grabbed {
		emissive = opts.Highlight
	}
	node.Traverse(func(n *scene.Node) {
		if n.Mesh != nil && n.Mesh.Material != nil {
			n.Mesh.Material.Emissive = emissive
		}
	})
}
