package interaction

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/xrview/internal/logger"
	"github.com/Faultbox/xrview/internal/scene"
	"github.com/Faultbox/xrview/pkg/math"
)

// Controller owns the interaction state of the active immersive session.
// Push may be called from any goroutine; Begin, End and Tick belong to the
// render loop.
type Controller struct {
	opts    Options
	primary Hand
	queue   *Queue
	active  atomic.Bool
	state   State
	log     *zap.Logger
}

// NewController creates a controller. Grabbing follows the primary hand.
func NewController(opts Options, primary Hand) *Controller {
	if primary == "" {
		primary = Right
	}
	return &Controller{
		opts:    opts,
		primary: primary,
		queue:   NewQueue(0),
		state:   NewState(math.Vec3{}),
		log:     logger.Named("interaction"),
	}
}

// Begin starts a session with the object resting at position.
func (c *Controller) Begin(position math.Vec3) {
	c.queue.Drain()
	c.state = NewState(position)
	c.active.Store(true)
	c.log.Debug("session started", zap.Any("position", position))
}

// End closes the session, resets the state and clears the grab highlight and
// transform on target.
func (c *Controller) End(target *scene.Node) {
	c.active.Store(false)
	c.queue.Drain()
	c.state = NewState(math.Vec3{})
	if target != nil {
		Apply(target, c.state, c.opts)
	}
	c.log.Debug("session ended")
}

// Active reports whether a session is running.
func (c *Controller) Active() bool {
	return c.active.Load()
}

// Primary returns the hand that drives grabbing.
func (c *Controller) Primary() Hand {
	return c.primary
}

// Push queues e for the next Tick. Events outside a session, and select
// events from the secondary hand, are discarded; it reports whether e was queued.
func (c *Controller) Push(e Event) bool {
	if !c.active.Load() {
		return false
	}
	if (e.Type == SelectStart || e.Type == SelectEnd) && e.Hand != "" && e.Hand != c.primary {
		return false
	}
	c.queue.Push(e)
	return true
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Tick consumes queued events, advances the state and applies it to target.
// It is a no-op outside a session.
func (c *Controller) Tick(target *scene.Node, sample Sample, elapsed time.Duration) State {
	if !c.active.Load() {
		return c.state
	}
	events := c.queue.Drain()
	prev := c.state
	c.state = Step(prev, events, sample, elapsed, c.opts)
	if prev.Grabbed != c.state.Grabbed {
		c.log.Debug("grab changed", zap.Bool("grabbed", c.state.Grabbed))
	}
	if prev.Scale != c.state.Scale {
		c.log.Debug("scale changed", zap.Float32("scale", c.state.Scale))
	}
	if target != nil {
		Apply(target, c.state, c.opts)
	}
	return c.state
}
