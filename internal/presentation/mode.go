// Package presentation defines the viewer's presentation modes and the
// environment parameters each one implies.
package presentation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/xrview/pkg/math"
)

// Presentation errors.
var (
	ErrUnknownMode       = errors.New("unknown presentation mode")
	ErrInvalidTransition = errors.New("invalid presentation mode transition")
)

// Mode is the context the model is presented in.
type Mode int

const (
	Desktop Mode = iota // Desktop canvas with orbit controls
	AR                  // Immersive augmented reality
	VR                  // Immersive virtual reality
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	switch m {
	case Desktop:
		return "desktop"
	case AR:
		return "ar"
	case VR:
		return "vr"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Immersive reports whether the mode is presented through an XR session.
func (m Mode) Immersive() bool {
	return m == AR || m == VR
}

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desktop", "":
		return Desktop, nil
	case "ar":
		return AR, nil
	case "vr":
		return VR, nil
	default:
		return Desktop, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Parameters are the environment settings for one mode.
type Parameters struct {
	Ambient          float32
	Directional      float32
	Point            float32
	ShowEnvironment  bool
	ShowGroundShadow bool
	AllowOrbit       bool
	TargetSize       float32   // Largest model extent after normalization
	Placement        math.Vec3 // Offset of the model group from the scene origin
}

var table = [...]Parameters{
	Desktop: {
		Ambient:          0.4,
		Directional:      1.0,
		Point:            0.5,
		ShowEnvironment:  true,
		ShowGroundShadow: true,
		AllowOrbit:       true,
		TargetSize:       2.0,
	},
	AR: {
		Ambient:     0.8,
		Directional: 1.5,
		Point:       0.8,
		TargetSize:  0.5, // table-top
		Placement:   math.Vec3{Z: -1},
	},
	VR: {
		Ambient:     0.8,
		Directional: 1.5,
		Point:       0.8,
		TargetSize:  1.5,
		Placement:   math.Vec3{Z: -1},
	},
}

// ParametersFor returns the environment parameters for m.
// Modes outside Desktop/AR/VR fall back to Desktop.
func ParametersFor(m Mode) Parameters {
	if m < Desktop || m > VR {
		return table[Desktop]
	}
	return table[m]
}
