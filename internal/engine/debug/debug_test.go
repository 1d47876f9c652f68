package debug

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Faultbox/xrview/internal/scene"
	"github.com/Faultbox/xrview/pkg/math"
)

func TestBoundsWireframe(t *testing.T) {
	box := scene.Box{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	verts := BoundsWireframe(box, 0.5)

	if len(verts) != BoundsVertexCount*3 {
		t.Fatalf("len = %d, want %d", len(verts), BoundsVertexCount*3)
	}
	for i, v := range verts {
		if v != -1.5 && v != 1.5 {
			t.Fatalf("component %d = %v, want ±1.5", i, v)
		}
	}
}

func TestCaptureFromPixels(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	sc := NewScreenshotCapture(dir, "xrview")
	sc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }

	// 1x2 image: bottom row red, top row blue in OpenGL order.
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	name, err := sc.CaptureFromPixels(pixels, 1, 2, "vr")
	if err != nil {
		t.Fatalf("CaptureFromPixels: %v", err)
	}
	if want := filepath.Join(dir, "xrview_2024-05-01_12-30-00_vr.png"); name != want {
		t.Errorf("filename = %q, want %q", name, want)
	}

	f, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if r, _, b, _ := img.At(0, 0).RGBA(); b == 0 || r != 0 {
		t.Errorf("top pixel not blue after flip")
	}
}

func TestCaptureSizeMismatch(t *testing.T) {
	sc := NewScreenshotCapture(t.TempDir(), "x")
	if _, err := sc.CaptureFromPixels(make([]byte, 3), 1, 1, ""); err == nil {
		t.Error("expected size mismatch error")
	}
}
