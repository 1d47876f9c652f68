// Package probe reports which XR and camera capabilities the host offers.
//
// Every capability is probed independently and fails soft: an absent backend,
// an error, a panic or a timeout turns into a "not available" value plus one
// entry in Snapshot.Errors. Probing never returns an error itself.
package probe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/xrview/internal/logger"
)

// ErrClosed is returned by CameraTest after Close.
var ErrClosed = errors.New("probe closed")

// Permission is the state of the camera permission.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionPrompt  Permission = "prompt"
	PermissionUnknown Permission = "unknown"
)

// SessionMode is an immersive session kind.
type SessionMode string

const (
	ImmersiveAR SessionMode = "immersive-ar"
	ImmersiveVR SessionMode = "immersive-vr"
)

// Device describes one video input.
type Device struct {
	ID    string
	Label string
}

// XRSystem answers whether an immersive session kind can be started.
type XRSystem interface {
	IsSessionSupported(ctx context.Context, mode SessionMode) (bool, error)
}

// Permissions reports the camera permission state.
type Permissions interface {
	Camera(ctx context.Context) (Permission, error)
}

// MediaDevices enumerates and opens video inputs.
type MediaDevices interface {
	VideoInputs(ctx context.Context) ([]Device, error)
	OpenVideo(ctx context.Context, d Device) error
}

// Backends are the host capabilities to probe. Nil fields are reported as absent.
type Backends struct {
	XR          XRSystem
	Permissions Permissions
	Media       MediaDevices
}

// Snapshot is the result of one probe run. It is never modified after Run returns.
type Snapshot struct {
	ARSupported      bool
	VRSupported      bool
	CameraPermission Permission
	HasMediaDevices  bool
	VideoDeviceCount int
	Devices          []Device
	Errors           []string
	ProbedAt         time.Time
}

// CameraTestResult is the outcome of CameraTest.
type CameraTestResult string

const (
	CameraTestSuccess CameraTestResult = "success"
	CameraTestFailed  CameraTestResult = "failed"
)

// Options configure a Prober.
type Options struct {
	Timeout time.Duration // Per-capability deadline; 0 means 3s
	Now     func() time.Time
}

// Prober runs capability probes against a fixed set of backends.
type Prober struct {
	backends Backends
	timeout  time.Duration
	now      func() time.Time
	log      *zap.Logger

	mu     sync.Mutex
	last   *Snapshot
	closed bool
}

// New creates a Prober.
func New(b Backends, opts Options) *Prober {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Prober{
		backends: b,
		timeout:  opts.Timeout,
		now:      opts.Now,
		log:      logger.Named("probe"),
	}
}

// Close releases the prober. Later Run calls return a snapshot carrying only
// an error entry.
func (p *Prober) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.last = nil
}

// Last returns the most recent snapshot, or nil if Run has not completed.
func (p *Prober) Last() *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// outcome is the result slot of one capability check.
type outcome struct {
	value any
	err   error
}

// Run probes every capability concurrently and returns a fresh snapshot.
func (p *Prober) Run(ctx context.Context) *Snapshot {
	snap := &Snapshot{CameraPermission: PermissionUnknown}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		snap.Errors = []string{ErrClosed.Error()}
		snap.ProbedAt = p.now()
		return snap
	}

	checks := []struct {
		name string
		fn   func(context.Context) (any, error)
	}{
		{"AR support check", p.sessionCheck(ImmersiveAR)},
		{"VR support check", p.sessionCheck(ImmersiveVR)},
		{"Permission check", p.permissionCheck},
		{"Device enumeration", p.deviceCheck},
	}

	results := make([]outcome, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.guard(ctx, c.fn)
		}()
	}
	wg.Wait()

	for i, c := range checks {
		if err := results[i].err; err != nil {
			snap.Errors = append(snap.Errors, fmt.Sprintf("%s failed: %v", c.name, err))
			p.log.Debug("capability check failed", zap.String("check", c.name), zap.Error(err))
		}
	}

	snap.ARSupported, _ = results[0].value.(bool)
	snap.VRSupported, _ = results[1].value.(bool)
	if perm, ok := results[2].value.(Permission); ok {
		snap.CameraPermission = perm
	}
	if devices, ok := results[3].value.([]Device); ok {
		snap.HasMediaDevices = true
		snap.Devices = devices
		snap.VideoDeviceCount = len(devices)
	}
	snap.ProbedAt = p.now()

	p.mu.Lock()
	if !p.closed {
		p.last = snap
	}
	p.mu.Unlock()

	p.log.Info("capabilities probed",
		zap.Bool("ar", snap.ARSupported),
		zap.Bool("vr", snap.VRSupported),
		zap.String("camera", string(snap.CameraPermission)),
		zap.Int("video_devices", snap.VideoDeviceCount),
		zap.Int("errors", len(snap.Errors)),
	)
	return snap
}

// guard runs fn with a deadline and converts panics into errors.
func (p *Prober) guard(ctx context.Context, fn func(context.Context) (any, error)) outcome {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			o.value = nil
		}
		return o
	case <-ctx.Done():
		return outcome{err: ctx.Err()}
	}
}

func (p *Prober) sessionCheck(mode SessionMode) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		if p.backends.XR == nil {
			return false, errors.New("XR system not available")
		}
		return p.backends.XR.IsSessionSupported(ctx, mode)
	}
}

func (p *Prober) permissionCheck(ctx context.Context) (any, error) {
	if p.backends.Permissions == nil {
		return PermissionUnknown, errors.New("permissions API not available")
	}
	return p.backends.Permissions.Camera(ctx)
}

func (p *Prober) deviceCheck(ctx context.Context) (any, error) {
	if p.backends.Media == nil {
		return nil, errors.New("media devices not available")
	}
	return p.backends.Media.VideoInputs(ctx)
}

// CameraTest tries to open the first video input. On failure it returns
// CameraTestFailed and a snapshot copy with the error appended.
func (p *Prober) CameraTest(ctx context.Context) (CameraTestResult, *Snapshot) {
	base := p.Last()
	if base == nil {
		base = p.Run(ctx)
	}
	snap := *base
	snap.Errors = append([]string(nil), base.Errors...)

	o := p.guard(ctx, func(ctx context.Context) (any, error) {
		if p.backends.Media == nil {
			return nil, errors.New("media devices not available")
		}
		if len(base.Devices) == 0 {
			return nil, errors.New("no video input")
		}
		return nil, p.backends.Media.OpenVideo(ctx, base.Devices[0])
	})
	if o.err != nil {
		snap.Errors = append(snap.Errors, fmt.Sprintf("Camera test failed: %v", o.err))
		p.log.Warn("camera test failed", zap.Error(o.err))
		return CameraTestFailed, &snap
	}
	return CameraTestSuccess, &snap
}
