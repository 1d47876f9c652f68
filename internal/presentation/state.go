package presentation

import "fmt"

// State holds the current presentation mode.
type State struct {
	mode Mode
}

// NewState returns a State starting in Desktop mode.
func NewState() *State {
	return &State{mode: Desktop}
}

// Mode returns the current mode.
func (s *State) Mode() Mode {
	return s.mode
}

// Parameters returns the parameters of the current mode.
func (s *State) Parameters() Parameters {
	return ParametersFor(s.mode)
}

// CanTransition reports whether from -> to is allowed.
// Immersive modes are only entered from and left to Desktop.
func CanTransition(from, to Mode) bool {
	if from == to {
		return true
	}
	return from == Desktop || to == Desktop
}

// Set moves to mode to. It reports whether the mode actually changed.
func (s *State) Set(to Mode) (bool, error) {
	if to < Desktop || to > VR {
		return false, fmt.Errorf("%w: %d", ErrUnknownMode, int(to))
	}
	if !CanTransition(s.mode, to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.mode, to)
	}
	if s.mode == to {
		return false, nil
	}
	s.mode = to
	return true, nil
}
