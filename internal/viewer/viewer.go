// Package viewer owns the active model, the presentation mode and the XR
// interaction session, and advances them once per rendered frame.
package viewer

import (
	"context"
	gomath "math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/xrview/internal/interaction"
	"github.com/Faultbox/xrview/internal/logger"
	"github.com/Faultbox/xrview/internal/normalize"
	"github.com/Faultbox/xrview/internal/presentation"
	"github.com/Faultbox/xrview/internal/scene"
	"github.com/Faultbox/xrview/pkg/math"
)

// Callbacks report load outcomes to the host. All run on the frame goroutine.
type Callbacks struct {
	OnLoad    func(source string)
	OnError   func(message string)
	OnRelease func(model *scene.Node) // Model detached; free its GPU buffers
}

// Options configure a Viewer.
type Options struct {
	MaxFileSize int64 // Bytes; 0 means unlimited
	IdleSway    bool  // Gentle desktop rotation of the loaded model
	Interaction interaction.Options
	PrimaryHand interaction.Hand
}

// Viewer holds the scene graph root -> interactive -> container -> model.
// Except for RequestMode, Controller().Push and Close, methods must be called
// from the frame goroutine.
type Viewer struct {
	opts Options
	cb   Callbacks
	log  *zap.Logger

	mode       *presentation.State
	normalizer *normalize.Normalizer
	controller *interaction.Controller

	root        *scene.Node
	interactive *scene.Node // Grab and squeeze transform
	container   *scene.Node // Normalization scale
	model       *scene.Node
	source      string

	// Latest load request; results for older requests are discarded.
	requestSeq uint64
	requested  string
	results    chan loadResult

	pendingMu    sync.Mutex
	pendingModes []presentation.Mode

	started      time.Time
	sessionStart time.Time

	ctx    context.Context
	cancel context.CancelFunc
	loads  sync.WaitGroup
}

// New creates a Viewer in Desktop mode with no model.
func New(opts Options, cb Callbacks) *Viewer {
	if opts.Interaction == (interaction.Options{}) {
		opts.Interaction = interaction.DefaultOptions()
	}
	ctx, cancel := context.WithCancel(context.Background())

	v := &Viewer{
		opts:        opts,
		cb:          cb,
		log:         logger.Named("viewer"),
		mode:        presentation.NewState(),
		normalizer:  normalize.New(),
		controller:  interaction.NewController(opts.Interaction, opts.PrimaryHand),
		root:        scene.NewNode("root"),
		interactive: scene.NewNode("interactive"),
		container:   scene.NewNode("container"),
		results:     make(chan loadResult, 8),
		ctx:         ctx,
		cancel:      cancel,
	}
	v.root.Add(v.interactive)
	v.interactive.Add(v.container)
	return v
}

// Close stops accepting load results and waits for in-flight loads to finish.
func (v *Viewer) Close() {
	v.cancel()
	v.loads.Wait()
}

// Root returns the scene graph root.
func (v *Viewer) Root() *scene.Node { return v.root }

// Model returns the active model and its source, or nil.
func (v *Viewer) Model() (*scene.Node, string) { return v.model, v.source }

// Interactive returns the node carrying the grab and squeeze transform. Its
// bounds are in world space.
func (v *Viewer) Interactive() *scene.Node { return v.interactive }

// Mode returns the current presentation mode.
func (v *Viewer) Mode() presentation.Mode { return v.mode.Mode() }

// Parameters returns the environment parameters of the current mode.
func (v *Viewer) Parameters() presentation.Parameters { return v.mode.Parameters() }

// Controller returns the XR interaction controller. Its Push method is safe
// to call from event goroutines.
func (v *Viewer) Controller() *interaction.Controller { return v.controller }

// Clear releases the active model and supersedes any in-flight load.
func (v *Viewer) Clear() {
	v.requestSeq++
	v.requested = ""
	v.release()
	v.normalizer.Reset()
}

func (v *Viewer) release() {
	if v.model == nil {
		return
	}
	old := v.model
	v.container.Remove(old)
	v.model = nil
	v.source = ""
	if v.cb.OnRelease != nil {
		v.cb.OnRelease(old)
	}
	v.log.Debug("model released")
}

// RequestMode asks for a mode change on the next Frame. Requests are applied
// in order. Safe for concurrent use.
func (v *Viewer) RequestMode(m presentation.Mode) {
	v.pendingMu.Lock()
	v.pendingModes = append(v.pendingModes, m)
	v.pendingMu.Unlock()
}

// SwitchMode queues m, hopping through Desktop when m cannot follow the mode
// the queue will leave the viewer in. It returns that mode.
func (v *Viewer) SwitchMode(m presentation.Mode) presentation.Mode {
	v.pendingMu.Lock()
	defer v.pendingMu.Unlock()
	from := v.mode.Mode()
	if n := len(v.pendingModes); n > 0 {
		from = v.pendingModes[n-1]
	}
	if !presentation.CanTransition(from, m) {
		v.pendingModes = append(v.pendingModes, presentation.Desktop)
	}
	v.pendingModes = append(v.pendingModes, m)
	return from
}

// SetMode changes mode immediately. Entering AR or VR begins an interaction
// session; returning to Desktop ends it. The model is refitted for the new
// target size.
func (v *Viewer) SetMode(m presentation.Mode, now time.Time) error {
	changed, err := v.mode.Set(m)
	if err != nil || !changed {
		return err
	}
	params := v.mode.Parameters()

	if m.Immersive() {
		v.container.Rotation = math.Vec3{}
		v.controller.Begin(params.Placement)
		v.interactive.Position = params.Placement
		v.sessionStart = now
	} else {
		v.controller.End(v.interactive)
		v.interactive.Position = params.Placement
	}

	if v.model != nil {
		v.normalizer.Normalize(v.source, v.container, v.model, m)
	}
	v.log.Info("presentation mode changed", zap.Stringer("mode", m))
	return nil
}

// Frame is the per-frame tick: pending mode change, finished loads, then the
// interaction session or the desktop idle sway.
func (v *Viewer) Frame(now time.Time, sample interaction.Sample) {
	if v.started.IsZero() {
		v.started = now
	}

	v.pendingMu.Lock()
	pending := v.pendingModes
	v.pendingModes = nil
	v.pendingMu.Unlock()
	for _, m := range pending {
		if err := v.SetMode(m, now); err != nil {
			v.log.Warn("mode change rejected", zap.Error(err))
		}
	}

	v.drainLoads()

	if v.mode.Mode().Immersive() {
		v.controller.Tick(v.interactive, sample, now.Sub(v.sessionStart))
		return
	}
	if v.opts.IdleSway && v.model != nil {
		t := now.Sub(v.started).Seconds()
		v.container.Rotation.Y = float32(gomath.Sin(t*0.2) * 0.05)
	}
}
