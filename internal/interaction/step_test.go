package interaction

import (
	gomath "math"
	"testing"
	"time"

	"github.com/Faultbox/xrview/internal/scene"
	"github.com/Faultbox/xrview/pkg/math"
)

// still returns options with the idle float disabled.
func still() Options {
	opts := DefaultOptions()
	opts.FloatAmplitude = 0
	return opts
}

func near(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < 1e-4
}

func TestGrabFollowsController(t *testing.T) {
	opts := still()
	objPos := math.Vec3{X: 0, Y: 1, Z: -1}
	ctrl := math.Vec3{X: 0.2, Y: 1.1, Z: -0.5}
	st := NewState(objPos)

	// selectstart captures the offset; same-frame sample keeps the object in place.
	st = Step(st, []Event{{Type: SelectStart, ControllerPosition: ctrl}},
		Sample{ControllerPosition: ctrl, Tracked: true}, 0, opts)
	if !st.Grabbed {
		t.Fatal("not grabbed after selectstart")
	}
	if !st.Position.ApproxEqual(objPos, 1e-6) {
		t.Errorf("position jumped on grab: %v, want %v", st.Position, objPos)
	}

	delta := math.Vec3{X: 0.3, Y: -0.1, Z: 0.25}
	st = Step(st, nil, Sample{ControllerPosition: ctrl.Add(delta), Tracked: true}, time.Second, opts)
	if want := objPos.Add(delta); !st.Position.ApproxEqual(want, 1e-6) {
		t.Errorf("position after move = %v, want %v", st.Position, want)
	}

	st = Step(st, []Event{{Type: SelectEnd}}, Sample{ControllerPosition: ctrl, Tracked: true}, 2*time.Second, opts)
	frozen := st.Position
	for i := 0; i < 5; i++ {
		st = Step(st, nil, Sample{ControllerPosition: math.Vec3{X: 9, Y: 9, Z: 9}, Tracked: true}, 3*time.Second, opts)
	}
	if st.Grabbed {
		t.Error("still grabbed after selectend")
	}
	if st.Position != frozen {
		t.Errorf("position moved after release: %v, want %v", st.Position, frozen)
	}
}

func TestGrabHoldsWhenUntracked(t *testing.T) {
	opts := still()
	st := NewState(math.Vec3{Z: -1})
	st = Step(st, []Event{{Type: SelectStart}}, Sample{}, 0, opts)
	if st.Position != (math.Vec3{Z: -1}) {
		t.Errorf("untracked controller moved object to %v", st.Position)
	}
}

func TestSelectStartWhileGrabbedKeepsOffset(t *testing.T) {
	opts := still()
	st := NewState(math.Vec3{})
	st = Step(st, []Event{{Type: SelectStart, ControllerPosition: math.Vec3{X: 1}}}, Sample{}, 0, opts)
	offset := st.GrabOffset
	st = Step(st, []Event{{Type: SelectStart, ControllerPosition: math.Vec3{X: 5}}}, Sample{}, 0, opts)
	if st.GrabOffset != offset {
		t.Errorf("offset recaptured while grabbed: %v -> %v", offset, st.GrabOffset)
	}
}

func TestSqueezeScaleClamps(t *testing.T) {
	opts := still()
	st := NewState(math.Vec3{})

	for i := 0; i < 5; i++ {
		st = Step(st, []Event{{Type: SqueezeStart}}, Sample{}, 0, opts)
	}
	if !near(st.Scale, 2.48832) {
		t.Errorf("scale after 5 squeezes = %v, want ~2.488", st.Scale)
	}

	for i := 0; i < 10; i++ {
		st = Step(st, []Event{{Type: SqueezeStart}}, Sample{}, 0, opts)
		if st.Scale > opts.MaxScale {
			t.Fatalf("scale %v exceeds ceiling", st.Scale)
		}
	}
	if st.Scale != 3.0 {
		t.Errorf("saturated scale = %v, want 3.0", st.Scale)
	}

	for i := 0; i < 20; i++ {
		st = Step(st, []Event{{Type: SqueezeEnd}}, Sample{}, 0, opts)
	}
	if st.Scale != 0.5 {
		t.Errorf("floor scale = %v, want 0.5", st.Scale)
	}
}

func TestEventsAppliedInOrder(t *testing.T) {
	opts := still()
	st := NewState(math.Vec3{})
	st = Step(st, []Event{{Type: SqueezeStart}, {Type: SqueezeEnd}, {Type: SqueezeStart}}, Sample{}, 0, opts)
	if !near(st.Scale, 1.2) {
		t.Errorf("scale = %v, want 1.2", st.Scale)
	}

	st = Step(st, []Event{{Type: SelectStart}, {Type: SelectEnd}}, Sample{}, 0, opts)
	if st.Grabbed {
		t.Error("select start+end in one frame left object grabbed")
	}
}

// peakElapsed is the session time at which the float sine reaches 1.
func peakElapsed() time.Duration {
	secs := gomath.Pi / 2
	return time.Duration(secs * float64(time.Second))
}

func TestIdleFloatAccumulates(t *testing.T) {
	opts := DefaultOptions()
	elapsed := peakElapsed()
	st := NewState(math.Vec3{})

	const ticks = 100
	for i := 0; i < ticks; i++ {
		st = Step(st, nil, Sample{}, elapsed, opts)
	}
	want := float32(ticks) * opts.FloatAmplitude
	if !near(st.Position.Y, want) {
		t.Errorf("drift after %d ticks = %v, want %v", ticks, st.Position.Y, want)
	}
	if st.Position.X != 0 || st.Position.Z != 0 {
		t.Errorf("float moved off the Y axis: %v", st.Position)
	}
}

func TestIdleFloatPausedWhileScaling(t *testing.T) {
	opts := DefaultOptions()
	elapsed := peakElapsed()
	st := Step(NewState(math.Vec3{}), []Event{{Type: SqueezeStart}}, Sample{}, elapsed, opts)
	if st.Position.Y != 0 {
		t.Errorf("float applied in a scaling frame: y=%v", st.Position.Y)
	}
}

func TestApplyHighlight(t *testing.T) {
	opts := DefaultOptions()
	root := scene.NewNode("interactive")
	child := scene.NewNode("mesh")
	child.Mesh = &scene.Mesh{Material: &scene.Material{}}
	bare := scene.NewNode("bare")
	bare.Mesh = &scene.Mesh{}
	root.Add(child)
	root.Add(bare)

	st := NewState(math.Vec3{X: 1})
	st.Grabbed = true
	st.Scale = 2
	Apply(root, st, opts)

	if child.Mesh.Material.Emissive != opts.Highlight {
		t.Errorf("grabbed emissive = %+v, want %+v", child.Mesh.Material.Emissive, opts.Highlight)
	}
	if root.Scale != 2 || root.Position != (math.Vec3{X: 1}) {
		t.Errorf("transform not applied: pos=%v scale=%v", root.Position, root.Scale)
	}

	st.Grabbed = false
	Apply(root, st, opts)
	if child.Mesh.Material.Emissive != (scene.Color{}) {
		t.Errorf("idle emissive = %+v, want zero", child.Mesh.Material.Emissive)
	}
}

func TestParseEventType(t *testing.T) {
	for _, typ := range []EventType{SelectStart, SelectEnd, SqueezeStart, SqueezeEnd} {
		got, err := ParseEventType(typ.String())
		if err != nil || got != typ {
			t.Errorf("ParseEventType(%q) = %v, %v", typ.String(), got, err)
		}
	}
	if _, err := ParseEventType("pinch"); err == nil {
		t.Error("expected error for unknown event")
	}
}
