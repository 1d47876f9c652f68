// Package interaction implements grab, scale and highlight handling for a
// model presented in an immersive session.
package interaction

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Faultbox/xrview/pkg/math"
)

// ErrUnknownEvent is returned when parsing an unsupported controller event name.
var ErrUnknownEvent = errors.New("unknown controller event")

// EventType is a controller button transition.
type EventType int

const (
	SelectStart  EventType = iota // Trigger pressed
	SelectEnd                     // Trigger released
	SqueezeStart                  // Grip pressed
	SqueezeEnd                    // Grip released
)

var eventNames = [...]string{
	SelectStart:  "selectstart",
	SelectEnd:    "selectend",
	SqueezeStart: "squeezestart",
	SqueezeEnd:   "squeezeend",
}

// String returns the WebXR event name.
func (t EventType) String() string {
	if t >= 0 && int(t) < len(eventNames) {
		return eventNames[t]
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// ParseEventType converts a WebXR event name into an EventType.
func ParseEventType(s string) (EventType, error) {
	for i, name := range eventNames {
		if name == s {
			return EventType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, s)
}

// Hand identifies a controller.
type Hand string

const (
	Right Hand = "right"
	Left  Hand = "left"
)

// Event is one controller button transition together with the controller's
// position at the moment it fired.
type Event struct {
	Type               EventType
	Hand               Hand
	ControllerPosition math.Vec3
}

// Queue buffers controller events between asynchronous producers and the
// frame tick. It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	events  []Event
	limit   int
	dropped int
}

// NewQueue creates a queue holding at most limit events; older events are
// dropped once the limit is reached. limit <= 0 means 256.
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = 256
	}
	return &Queue{limit: limit}
}

// Push appends e.
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) >= q.limit {
		q.events = q.events[1:]
		q.dropped++
	}
	q.events = append(q.events, e)
}

// Drain removes and returns all queued events in arrival order.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Dropped returns how many events were discarded because the queue was full.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
