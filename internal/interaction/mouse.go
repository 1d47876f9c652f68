package interaction

import "github.com/Faultbox/xrview/pkg/math"

// Mouse buttons, numbered as SDL reports them.
const (
	MouseLeft  uint8 = 1
	MouseRight uint8 = 3
)

// MouseEmulator stands in for a tracked controller on the desktop. The
// cursor moves the controller across a plane Depth meters ahead of the
// viewer; left button is select, right button is squeeze.
type MouseEmulator struct {
	Hand   Hand
	Depth  float32 // Meters; 0 means 0.6
	Extent float32 // Half height of the plane in meters; 0 means 0.5
}

// Position maps a cursor position in a width x height window to a
// controller position.
func (m MouseEmulator) Position(x, y, width, height int) math.Vec3 {
	if width <= 0 || height <= 0 {
		return math.Vec3{Z: -m.depth()}
	}
	aspect := float32(width) / float32(height)
	nx := float32(x)/float32(width)*2 - 1
	ny := 1 - float32(y)/float32(height)*2
	return math.Vec3{
		X: nx * m.extent() * aspect,
		Y: ny * m.extent(),
		Z: -m.depth(),
	}
}

// Sample returns the emulated controller pose; it is always tracked.
func (m MouseEmulator) Sample(x, y, width, height int) Sample {
	return Sample{ControllerPosition: m.Position(x, y, width, height), Tracked: true}
}

// Button converts a mouse button transition into a controller event.
// Other buttons report false.
func (m MouseEmulator) Button(button uint8, down bool, x, y, width, height int) (Event, bool) {
	var typ EventType
	switch {
	case button == MouseLeft && down:
		typ = SelectStart
	case button == MouseLeft:
		typ = SelectEnd
	case button == MouseRight && down:
		typ = SqueezeStart
	case button == MouseRight:
		typ = SqueezeEnd
	default:
		return Event{}, false
	}
	hand := m.Hand
	if hand == "" {
		hand = Right
	}
	return Event{Type: typ, Hand: hand, ControllerPosition: m.Position(x, y, width, height)}, true
}

func (m MouseEmulator) depth() float32 {
	if m.Depth <= 0 {
		return 0.6
	}
	return m.Depth
}

func (m MouseEmulator) extent() float32 {
	if m.Extent <= 0 {
		return 0.5
	}
	return m.Extent
}
