package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sqweek/dialog"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/xrview/internal/engine/input"
	"github.com/Faultbox/xrview/internal/presentation"
	"github.com/Faultbox/xrview/internal/probe"
)

var presetKeys = []sdl.Scancode{
	sdl.SCANCODE_F1, sdl.SCANCODE_F2, sdl.SCANCODE_F3,
	sdl.SCANCODE_F4, sdl.SCANCODE_F5, sdl.SCANCODE_F6,
	sdl.SCANCODE_F7, sdl.SCANCODE_F8, sdl.SCANCODE_F9,
}

func (a *App) handleEvents() {
	for _, e := range a.input.Events() {
		switch e.Type {
		case input.EventWindowResize:
			w, h := a.window.DrawableSize()
			a.renderer.Resize(w, h)

		case input.EventKeyDown:
			a.handleKey(e.Key)

		case input.EventDropFile:
			a.open(e.Path)

		case input.EventMouseMove:
			a.cursorX, a.cursorY = e.MouseX, e.MouseY
			if a.orbitAllowed() {
				switch {
				case a.input.IsButtonDown(input.ButtonLeft):
					a.camera.HandleDrag(float32(e.DeltaX), float32(e.DeltaY))
				case a.input.IsButtonDown(input.ButtonRight), a.input.IsButtonDown(input.ButtonMiddle):
					a.camera.HandlePan(float32(e.DeltaX), float32(e.DeltaY))
				}
			}

		case input.EventMouseWheel:
			if a.orbitAllowed() {
				a.camera.HandleZoom(float32(e.DeltaY))
			}

		case input.EventMouseDown, input.EventMouseUp:
			a.emulateButton(e)
		}
	}
}

func (a *App) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		a.running = false
	case sdl.SCANCODE_1:
		a.requestMode(presentation.Desktop)
	case sdl.SCANCODE_2:
		a.requestMode(presentation.AR)
	case sdl.SCANCODE_3:
		a.requestMode(presentation.VR)
	case sdl.SCANCODE_O:
		a.pickFile()
	case sdl.SCANCODE_C:
		a.viewer.Clear()
		a.setStatus("")
	case sdl.SCANCODE_R:
		a.camera.Reset()
	case sdl.SCANCODE_P:
		a.runProbe()
	case sdl.SCANCODE_T:
		a.runCameraTest()
	case sdl.SCANCODE_F12:
		a.screenshot()
	default:
		for i, k := range presetKeys {
			if k == key {
				a.openPreset(i)
			}
		}
	}
}

func (a *App) orbitAllowed() bool {
	return a.viewer.Parameters().AllowOrbit
}

// emulateButton forwards mouse buttons as controller events while an
// immersive session runs without a connected page.
func (a *App) emulateButton(e input.Event) {
	if !a.cfg.XR.EmulateOnMouse || !a.viewer.Controller().Active() {
		return
	}
	if a.bridge != nil && a.bridge.Clients() > 0 {
		return
	}
	w, h := a.window.GetSize()
	if ev, ok := a.mouse.Button(e.Button, e.Type == input.EventMouseDown, e.MouseX, e.MouseY, w, h); ok {
		a.viewer.Controller().Push(ev)
	}
}

func (a *App) open(path string) {
	if err := a.viewer.Open(path); err != nil {
		return // Reported through OnError
	}
	a.updateTitle()
}

func (a *App) openPreset(i int) {
	presets := a.cfg.Viewer.Presets
	if i >= len(presets) {
		return
	}
	a.log.Info("opening preset", zap.String("name", presets[i].Name))
	a.open(presets[i].Path)
}

// requestMode switches mode, going through desktop when jumping between
// immersive modes, and tells a connected page to follow.
func (a *App) requestMode(m presentation.Mode) {
	from := a.viewer.SwitchMode(m)
	if a.bridge != nil {
		a.bridge.NotifyMode(m)
	}
	a.log.Debug("mode requested", zap.Stringer("from", from), zap.Stringer("to", m))
}

// pickFile shows the native file dialog without blocking the render loop.
func (a *App) pickFile() {
	go func() {
		filename, err := dialog.File().
			Filter("Wavefront OBJ", "obj").
			Title("Open 3D model").
			Load()
		if err != nil {
			if !errors.Is(err, dialog.ErrCancelled) {
				a.log.Warn("file dialog failed", zap.Error(err))
			}
			return
		}
		select {
		case a.picked <- filename:
		default:
		}
	}()
}

func (a *App) runProbe() {
	go func() {
		snap := a.prober.Run(a.ctx)
		select {
		case a.probed <- snap:
		case <-a.ctx.Done():
		}
	}()
}

func (a *App) runCameraTest() {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, a.cfg.Probe.Timeout)
		defer cancel()
		res, snap := a.prober.CameraTest(ctx)
		a.log.Info("camera test", zap.String("result", string(res)))
		select {
		case a.probed <- snap:
		case <-a.ctx.Done():
		}
	}()
}

// drainBackground applies results of dialogs and probes on the main thread.
func (a *App) drainBackground() {
	for {
		select {
		case path := <-a.picked:
			a.open(path)
		case snap := <-a.probed:
			a.reportProbe(snap)
		default:
			if a.viewer.Loading() != a.shownLoading || a.viewer.Mode() != a.shownMode {
				a.updateTitle()
			}
			return
		}
	}
}

func (a *App) reportProbe(s *probe.Snapshot) {
	if s == nil {
		return
	}
	a.log.Info("capabilities",
		zap.Bool("ar", s.ARSupported),
		zap.Bool("vr", s.VRSupported),
		zap.String("camera_permission", string(s.CameraPermission)),
		zap.Int("video_devices", s.VideoDeviceCount),
		zap.Strings("errors", s.Errors),
	)
	a.setStatus(fmt.Sprintf("AR %s, VR %s, cameras %d", yesNo(s.ARSupported), yesNo(s.VRSupported), s.VideoDeviceCount))
}

func (a *App) screenshot() {
	pixels, w, h := a.renderer.ReadPixels()
	name, err := a.shots.CaptureFromPixels(pixels, w, h, a.viewer.Mode().String())
	if err != nil {
		a.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	a.log.Info("screenshot saved", zap.String("file", name))
	a.setStatus(name)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
