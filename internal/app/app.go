// Package app runs the desktop viewer: window, render loop, input handling
// and the wiring between viewer, probe and XR bridge.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/xrview/internal/config"
	"github.com/Faultbox/xrview/internal/engine/camera"
	"github.com/Faultbox/xrview/internal/engine/debug"
	"github.com/Faultbox/xrview/internal/engine/input"
	"github.com/Faultbox/xrview/internal/engine/lighting"
	"github.com/Faultbox/xrview/internal/engine/renderer"
	"github.com/Faultbox/xrview/internal/engine/window"
	"github.com/Faultbox/xrview/internal/interaction"
	"github.com/Faultbox/xrview/internal/logger"
	"github.com/Faultbox/xrview/internal/presentation"
	"github.com/Faultbox/xrview/internal/probe"
	"github.com/Faultbox/xrview/internal/scene"
	"github.com/Faultbox/xrview/internal/viewer"
	"github.com/Faultbox/xrview/internal/xrbridge"
	"github.com/Faultbox/xrview/pkg/math"
)

const title = "xrview"

// App is the desktop viewer instance.
type App struct {
	cfg     *config.Config
	log     *zap.Logger
	running bool

	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera
	shots    *debug.ScreenshotCapture

	viewer *viewer.Viewer
	prober *probe.Prober
	bridge *xrbridge.Server
	mouse  interaction.MouseEmulator

	ctx    context.Context
	cancel context.CancelFunc

	// Results from background goroutines, consumed on the main thread.
	picked chan string
	probed chan *probe.Snapshot

	status       string
	shownMode    presentation.Mode
	shownLoading bool

	cursorX int
	cursorY int
}

// New creates the window, GL renderer and viewer.
func New(cfg *config.Config) (*App, error) {
	a := &App{
		cfg:    cfg,
		log:    logger.Named("app"),
		camera: camera.NewOrbitCamera(),
		shots:  debug.NewScreenshotCapture("screenshots", title),
		mouse:  interaction.MouseEmulator{Hand: cfg.XR.PrimaryHand},
		picked: make(chan string, 1),
		probed: make(chan *probe.Snapshot, 1),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	var err error
	a.window, err = window.New(window.Config{
		Title:      title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Renderer AFTER window, since the OpenGL context must exist
	w, h := a.window.DrawableSize()
	a.renderer, err = renderer.New(renderer.Config{Width: w, Height: h})
	if err != nil {
		a.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	a.input = input.New()

	opts := interaction.DefaultOptions()
	opts.FloatAmplitude = cfg.XR.FloatAmplitude
	a.viewer = viewer.New(viewer.Options{
		MaxFileSize: cfg.MaxFileSize(),
		IdleSway:    cfg.Viewer.IdleSway,
		Interaction: opts,
		PrimaryHand: cfg.XR.PrimaryHand,
	}, viewer.Callbacks{
		OnLoad:    a.onLoad,
		OnError:   a.onError,
		OnRelease: a.renderer.Release,
	})

	devices := probe.DeviceDir{Pattern: cfg.Probe.DeviceGlob}
	backends := probe.Backends{Permissions: devices, Media: devices}
	if cfg.XR.BridgeEnabled {
		a.bridge = xrbridge.New(a.viewer.Controller(), a.viewer)
		backends.XR = a.bridge
	}
	a.prober = probe.New(backends, probe.Options{Timeout: cfg.Probe.Timeout})

	a.log.Info("viewer initialized",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.Bool("bridge", cfg.XR.BridgeEnabled),
	)
	return a, nil
}

// Run starts the main loop and blocks until the window is closed.
func (a *App) Run() error {
	a.running = true

	if a.bridge != nil {
		go func() {
			if err := a.bridge.ListenAndServe(a.ctx, a.cfg.XR.BridgeAddr); err != nil {
				a.log.Error("XR bridge stopped", zap.Error(err))
			}
		}()
	}
	if a.cfg.Probe.RunOnLaunch {
		a.runProbe()
	}
	if m := a.cfg.Viewer.InitialMode; m != presentation.Desktop {
		a.requestMode(m)
	}
	if path := a.cfg.Viewer.InitialModel; path != "" {
		a.open(path)
	}
	a.updateTitle()

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	a.log.Info("starting render loop")
	for a.running {
		now := time.Now()
		dt := now.Sub(lastTime)
		lastTime = now

		if a.input.Update() {
			a.running = false
			break
		}
		a.handleEvents()
		a.drainBackground()

		a.viewer.Frame(now, a.sample())
		a.render()
		a.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			a.log.Debug("fps", zap.Int("count", frameCount), zap.Duration("dt", dt))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

// Close cleans up all resources.
func (a *App) Close() {
	a.log.Info("closing viewer")
	a.cancel()
	if a.viewer != nil {
		a.viewer.Close()
		if model, _ := a.viewer.Model(); model != nil {
			a.renderer.Release(model)
		}
	}
	if a.prober != nil {
		a.prober.Close()
	}
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}

// sample returns this frame's controller pose: the bridge when a page is
// connected, otherwise the mouse emulator when enabled.
func (a *App) sample() interaction.Sample {
	if a.bridge != nil && a.bridge.Clients() > 0 {
		return a.bridge.Sample(a.viewer.Controller().Primary())
	}
	if a.cfg.XR.EmulateOnMouse {
		w, h := a.window.GetSize()
		return a.mouse.Sample(a.cursorX, a.cursorY, w, h)
	}
	return interaction.Sample{}
}

func (a *App) render() {
	params := a.viewer.Parameters()
	a.renderer.Begin(params)

	view, eye := a.camera.ViewMatrix(), a.camera.Position()
	if a.viewer.Mode().Immersive() {
		view, eye = camera.ViewerPose(), math.Vec3{}
	}
	proj := a.camera.ProjectionMatrix(a.renderer.Aspect())
	viewProj := proj.Mul(view)

	a.renderer.DrawScene(a.viewer.Root(), view, proj, eye, lighting.RigFor(params))

	if box, ok := scene.BoundsOf(a.viewer.Interactive()); ok {
		if params.ShowGroundShadow {
			a.renderer.DrawGroundShadow(viewProj, box)
		}
		if a.viewer.Controller().State().Grabbed {
			a.renderer.DrawLines(viewProj, debug.BoundsWireframe(box, debug.DefaultBoundsPadding), scene.Hex(0xfacc15))
		}
	}

	a.renderer.End()
}

func (a *App) onLoad(source string) {
	a.setStatus(filepath.Base(source))
	if box, ok := scene.BoundsOf(a.viewer.Interactive()); ok && !a.viewer.Mode().Immersive() {
		a.camera.FitToBounds(box.Min, box.Max)
	}
}

func (a *App) onError(message string) {
	a.setStatus(message)
	a.window.ShowMessage(title, message)
}

func (a *App) setStatus(s string) {
	a.status = s
	a.updateTitle()
}

func (a *App) updateTitle() {
	a.shownMode, a.shownLoading = a.viewer.Mode(), a.viewer.Loading()
	t := fmt.Sprintf("%s [%s]", title, a.shownMode)
	if a.shownLoading {
		t += " loading..."
	}
	if a.status != "" {
		t += " " + a.status
	}
	a.window.SetTitle(t)
}
