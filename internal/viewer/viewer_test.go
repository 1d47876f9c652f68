package viewer

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Faultbox/xrview/internal/interaction"
	"github.com/Faultbox/xrview/internal/presentation"
	"github.com/Faultbox/xrview/internal/scene"
	"github.com/Faultbox/xrview/pkg/formats"
	"github.com/Faultbox/xrview/pkg/math"
)

const cubeOBJ = `v 1 1 1
v -1 1 1
v -1 -1 1
v 1 -1 1
v 1 1 -1
v -1 1 -1
v -1 -1 -1
v 1 -1 -1
f 1 2 3 4
f 5 8 7 6
f 1 5 6 2
f 4 3 7 8
f 1 4 8 5
f 2 6 7 3
`

// offsetCube spans 10..14 on every axis.
const offsetCubeOBJ = `v 10 10 10
v 14 10 10
v 14 14 10
v 10 14 10
v 10 10 14
v 14 10 14
v 14 14 14
v 10 14 14
f 1 2 3 4
f 5 6 7 8
`

type recorder struct {
	loaded   []string
	errors   []string
	released []*scene.Node
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnLoad:    func(s string) { r.loaded = append(r.loaded, s) },
		OnError:   func(m string) { r.errors = append(r.errors, m) },
		OnRelease: func(n *scene.Node) { r.released = append(r.released, n) },
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newViewer(t *testing.T, opts Options) (*Viewer, *recorder) {
	t.Helper()
	rec := &recorder{}
	v := New(opts, rec.callbacks())
	t.Cleanup(v.Close)
	return v, rec
}

// settle waits for every started load and delivers the results.
func settle(v *Viewer, now time.Time) {
	v.loads.Wait()
	v.Frame(now, interaction.Sample{})
}

func TestOpenRejectsInput(t *testing.T) {
	dir := t.TempDir()
	big := writeFile(t, "big.obj", cubeOBJ)

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"wrong extension", filepath.Join(dir, "model.fbx"), formats.ErrUnsupportedExtension},
		{"missing file", filepath.Join(dir, "absent.obj"), os.ErrNotExist},
		{"too large", big, ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, rec := newViewer(t, Options{MaxFileSize: 16})
			err := v.Open(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Open error = %v, want %v", err, tt.wantErr)
			}
			if len(rec.errors) != 1 {
				t.Errorf("OnError calls = %d, want 1", len(rec.errors))
			}
			if m, _ := v.Model(); m != nil {
				t.Error("model attached after rejection")
			}
			if v.Loading() {
				t.Error("rejected open left a pending load")
			}
		})
	}
}

func TestLoadCubeDesktop(t *testing.T) {
	v, rec := newViewer(t, Options{})
	path := writeFile(t, "cube.obj", cubeOBJ)

	if err := v.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !v.Loading() {
		t.Error("Loading() = false right after Open")
	}
	settle(v, time.Now())

	model, source := v.Model()
	if model == nil || source != path {
		t.Fatalf("model = %v, source = %q", model, source)
	}
	if len(rec.loaded) != 1 || rec.loaded[0] != path {
		t.Errorf("OnLoad = %v", rec.loaded)
	}
	if v.Loading() {
		t.Error("Loading() = true after delivery")
	}

	// Size 2 fits the desktop target of 2 at unit scale.
	if v.container.Scale != 1 {
		t.Errorf("container scale = %v, want 1", v.container.Scale)
	}
	if !model.Position.ApproxEqual(math.Vec3{}, 1e-6) {
		t.Errorf("model offset = %v, want origin", model.Position)
	}
	for _, m := range model.Meshes() {
		if m.Material == nil || !m.CastShadow || !m.ReceiveShadow {
			t.Errorf("mesh not prepared: %+v", m)
		}
	}
}

func TestLoadRecentersOffsetModel(t *testing.T) {
	v, _ := newViewer(t, Options{})
	if err := v.Open(writeFile(t, "offset.obj", offsetCubeOBJ)); err != nil {
		t.Fatal(err)
	}
	settle(v, time.Now())

	model, _ := v.Model()
	if model == nil {
		t.Fatal("no model")
	}
	box, ok := scene.BoundsOf(model)
	if !ok {
		t.Fatal("no bounds")
	}
	if !box.Center().ApproxEqual(math.Vec3{}, 1e-5) {
		t.Errorf("center = %v, want origin", box.Center())
	}
	if v.container.Scale != 0.5 {
		t.Errorf("container scale = %v, want 0.5", v.container.Scale)
	}
}

func TestNewerOpenSupersedes(t *testing.T) {
	v, rec := newViewer(t, Options{})
	first := writeFile(t, "first.obj", cubeOBJ)
	second := writeFile(t, "second.obj", offsetCubeOBJ)

	if err := v.Open(first); err != nil {
		t.Fatal(err)
	}
	if err := v.Open(second); err != nil {
		t.Fatal(err)
	}
	settle(v, time.Now())

	if _, source := v.Model(); source != second {
		t.Errorf("source = %q, want %q", source, second)
	}
	if len(rec.loaded) != 1 || rec.loaded[0] != second {
		t.Errorf("OnLoad = %v, want only the second model", rec.loaded)
	}
}

func TestReplaceReleasesPrevious(t *testing.T) {
	v, rec := newViewer(t, Options{})
	now := time.Now()

	if err := v.Open(writeFile(t, "a.obj", cubeOBJ)); err != nil {
		t.Fatal(err)
	}
	settle(v, now)
	first, _ := v.Model()

	if err := v.Open(writeFile(t, "b.obj", offsetCubeOBJ)); err != nil {
		t.Fatal(err)
	}
	settle(v, now)

	if len(rec.released) != 1 || rec.released[0] != first {
		t.Fatalf("released = %v, want the first model", rec.released)
	}
	if len(v.container.Children()) != 1 {
		t.Errorf("container children = %d, want 1", len(v.container.Children()))
	}
}

func TestClear(t *testing.T) {
	v, rec := newViewer(t, Options{})
	now := time.Now()
	if err := v.Open(writeFile(t, "cube.obj", cubeOBJ)); err != nil {
		t.Fatal(err)
	}
	settle(v, now)

	v.Clear()
	if m, _ := v.Model(); m != nil {
		t.Error("model still attached after Clear")
	}
	if len(rec.released) != 1 {
		t.Errorf("released = %d, want 1", len(rec.released))
	}

	// A load in flight when Clear runs is discarded.
	if err := v.Open(writeFile(t, "late.obj", cubeOBJ)); err != nil {
		t.Fatal(err)
	}
	v.Clear()
	settle(v, now)
	if m, _ := v.Model(); m != nil {
		t.Error("superseded load attached after Clear")
	}
	if len(rec.loaded) != 1 {
		t.Errorf("OnLoad calls = %d, want 1", len(rec.loaded))
	}
}

func TestParseFailureKeepsModel(t *testing.T) {
	v, rec := newViewer(t, Options{})
	now := time.Now()
	good := writeFile(t, "good.obj", cubeOBJ)
	if err := v.Open(good); err != nil {
		t.Fatal(err)
	}
	settle(v, now)

	if err := v.Open(writeFile(t, "empty.obj", "# no geometry\n")); err != nil {
		t.Fatalf("Open: %v", err)
	}
	settle(v, now)

	if len(rec.errors) != 1 {
		t.Fatalf("OnError calls = %d, want 1", len(rec.errors))
	}
	if _, source := v.Model(); source != good {
		t.Errorf("source = %q, want previous model kept", source)
	}
	if v.Loading() {
		t.Error("failed load still pending")
	}
}

func TestModeChangeRefits(t *testing.T) {
	v, _ := newViewer(t, Options{})
	now := time.Now()
	if err := v.Open(writeFile(t, "cube.obj", cubeOBJ)); err != nil {
		t.Fatal(err)
	}
	settle(v, now)

	v.RequestMode(presentation.VR)
	v.Frame(now, interaction.Sample{})

	if v.Mode() != presentation.VR {
		t.Fatalf("mode = %v, want vr", v.Mode())
	}
	if !v.Controller().Active() {
		t.Error("session not started")
	}
	if v.container.Scale != 0.75 {
		t.Errorf("container scale = %v, want 0.75", v.container.Scale)
	}
	want := presentation.ParametersFor(presentation.VR).Placement
	if !v.interactive.Position.ApproxEqual(want, 1e-3) {
		t.Errorf("placement = %v, want %v", v.interactive.Position, want)
	}

	// Switching directly to AR is rejected.
	v.RequestMode(presentation.AR)
	v.Frame(now, interaction.Sample{})
	if v.Mode() != presentation.VR {
		t.Errorf("mode = %v after vr->ar, want vr", v.Mode())
	}

	v.RequestMode(presentation.Desktop)
	v.Frame(now, interaction.Sample{})
	if v.Controller().Active() {
		t.Error("session still active in desktop")
	}
	if v.container.Scale != 1 {
		t.Errorf("container scale = %v, want 1", v.container.Scale)
	}
	if v.interactive.Scale != 1 || !v.interactive.Position.ApproxEqual(math.Vec3{}, 1e-6) {
		t.Errorf("interactive not reset: pos %v scale %v", v.interactive.Position, v.interactive.Scale)
	}
}

func TestImmersiveGrab(t *testing.T) {
	v, _ := newViewer(t, Options{})
	now := time.Now()
	if err := v.SetMode(presentation.AR, now); err != nil {
		t.Fatal(err)
	}

	start := v.interactive.Position
	ctrl := math.Vec3{X: 0.2, Y: 1, Z: -0.5}
	if !v.Controller().Push(interaction.Event{Type: interaction.SelectStart, Hand: interaction.Right, ControllerPosition: ctrl}) {
		t.Fatal("select rejected")
	}

	moved := math.Vec3{X: 0.5, Y: 1.2, Z: -0.4}
	v.Frame(now, interaction.Sample{ControllerPosition: moved, Tracked: true})

	want := moved.Add(start.Sub(ctrl))
	if !v.interactive.Position.ApproxEqual(want, 1e-5) {
		t.Errorf("position = %v, want %v", v.interactive.Position, want)
	}
	if !v.Controller().State().Grabbed {
		t.Error("not grabbed")
	}
}

func TestIdleSwayDesktopOnly(t *testing.T) {
	v, _ := newViewer(t, Options{IdleSway: true})
	start := time.Now()
	if err := v.Open(writeFile(t, "cube.obj", cubeOBJ)); err != nil {
		t.Fatal(err)
	}
	settle(v, start)

	v.Frame(start.Add(5*time.Second), interaction.Sample{})
	if v.container.Rotation.Y == 0 {
		t.Error("no sway in desktop mode")
	}

	v.RequestMode(presentation.VR)
	v.Frame(start.Add(6*time.Second), interaction.Sample{})
	if v.container.Rotation.Y != 0 {
		t.Errorf("rotation = %v in vr, want 0", v.container.Rotation.Y)
	}
}

func TestQueuedModeRequestsApplyInOrder(t *testing.T) {
	v, _ := newViewer(t, Options{})
	now := time.Now()
	if err := v.SetMode(presentation.VR, now); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		v.RequestMode(presentation.Desktop)
		v.RequestMode(presentation.AR)
		close(done)
	}()
	<-done
	v.Frame(now, interaction.Sample{})

	if v.Mode() != presentation.AR {
		t.Errorf("mode = %v, want ar via desktop", v.Mode())
	}
	if !v.Controller().Active() {
		t.Error("no session after re-entering immersive mode")
	}
}

func TestSwitchModeChainsWithinOneFrame(t *testing.T) {
	v, _ := newViewer(t, Options{})
	now := time.Now()

	if from := v.SwitchMode(presentation.AR); from != presentation.Desktop {
		t.Errorf("first switch from = %v, want desktop", from)
	}
	// Checked against the queued AR, not the applied Desktop.
	if from := v.SwitchMode(presentation.VR); from != presentation.AR {
		t.Errorf("second switch from = %v, want ar", from)
	}
	v.Frame(now, interaction.Sample{})

	if v.Mode() != presentation.VR {
		t.Fatalf("mode = %v, want vr", v.Mode())
	}
	if !v.Controller().Active() {
		t.Error("no session after switching ar -> vr")
	}

	v.SwitchMode(presentation.VR)
	v.Frame(now, interaction.Sample{})
	if v.Mode() != presentation.VR {
		t.Errorf("repeated switch changed mode to %v", v.Mode())
	}
}

func TestDecodeRejectsFileGrownPastLimit(t *testing.T) {
	path := writeFile(t, "grown.obj", cubeOBJ)
	size := int64(len(cubeOBJ))

	tests := []struct {
		name    string
		limit   int64
		wantErr bool
	}{
		{"exactly at limit", size, false},
		{"one byte over", size - 1, true},
		{"far over", 16, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := newViewer(t, Options{MaxFileSize: tt.limit})
			// decode runs after the Stat check; the file is already larger here.
			model, err := v.decode(path)
			if tt.wantErr {
				if !errors.Is(err, ErrFileTooLarge) {
					t.Fatalf("decode error = %v, want ErrFileTooLarge", err)
				}
				return
			}
			if err != nil || model == nil {
				t.Fatalf("decode = %v, %v", model, err)
			}
		})
	}
}

func TestSizeGuard(t *testing.T) {
	g := &sizeGuard{r: strings.NewReader("0123456789"), limit: 4}
	buf := make([]byte, 3)
	n, err := g.Read(buf)
	if n != 3 || err != nil {
		t.Fatalf("first read = %d, %v", n, err)
	}
	if _, err = io.ReadAll(g); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("read past limit = %v, want ErrFileTooLarge", err)
	}

	g = &sizeGuard{r: strings.NewReader("0123"), limit: 4}
	data, err := io.ReadAll(g)
	if err != nil || string(data) != "0123" {
		t.Errorf("read at limit = %q, %v", data, err)
	}
}
