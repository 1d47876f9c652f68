package xrbridge

import (
	"errors"
	"fmt"

	"github.com/Faultbox/xrview/internal/interaction"
	"github.com/Faultbox/xrview/internal/presentation"
	"github.com/Faultbox/xrview/pkg/math"
)

// ErrBadMessage is returned for messages that cannot be interpreted.
var ErrBadMessage = errors.New("bad bridge message")

// Message types exchanged with the WebXR page.
const (
	TypeCapabilities = "capabilities"
	TypeSession      = "session"
	TypePose         = "pose"
	TypeEvent        = "event"
	TypeMode         = "mode" // Host to page
)

// Message is the JSON envelope for every bridge message. Fields unused by a
// type are omitted.
type Message struct {
	Type     string    `json:"type"`
	AR       *bool     `json:"ar,omitempty"`
	VR       *bool     `json:"vr,omitempty"`
	Mode     string    `json:"mode,omitempty"`
	Hand     string    `json:"hand,omitempty"`
	Event    string    `json:"event,omitempty"`
	Position []float32 `json:"position,omitempty"`
	Tracked  *bool     `json:"tracked,omitempty"`
}

func (m Message) hand() interaction.Hand {
	if m.Hand == "" {
		return interaction.Right
	}
	return interaction.Hand(m.Hand)
}

func (m Message) position() (math.Vec3, error) {
	if len(m.Position) != 3 {
		return math.Vec3{}, fmt.Errorf("%w: position needs 3 components, got %d", ErrBadMessage, len(m.Position))
	}
	v := math.Vec3{X: m.Position[0], Y: m.Position[1], Z: m.Position[2]}
	if !v.IsFinite() {
		return math.Vec3{}, fmt.Errorf("%w: non-finite position", ErrBadMessage)
	}
	return v, nil
}

// event converts an event message into a controller event.
func (m Message) event() (interaction.Event, error) {
	typ, err := interaction.ParseEventType(m.Event)
	if err != nil {
		return interaction.Event{}, err
	}
	pos, err := m.position()
	if err != nil {
		return interaction.Event{}, err
	}
	return interaction.Event{Type: typ, Hand: m.hand(), ControllerPosition: pos}, nil
}

// sessionMode maps a session message onto a presentation mode. "end" is
// accepted as an alias for desktop.
func (m Message) sessionMode() (presentation.Mode, error) {
	if m.Mode == "end" {
		return presentation.Desktop, nil
	}
	mode, err := presentation.ParseMode(m.Mode)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	return mode, nil
}
