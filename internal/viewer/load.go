package viewer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/xrview/internal/scene"
	"github.com/Faultbox/xrview/pkg/formats"
	"github.com/Faultbox/xrview/pkg/math"
)

// ErrFileTooLarge is reported for models over the configured size limit.
var ErrFileTooLarge = errors.New("file too large")

type loadResult struct {
	seq    uint64
	source string
	model  *scene.Node
	err    error
}

// Open validates path and starts loading it in the background. Rejected
// inputs are reported through OnError and leave the viewer unchanged. A newer
// Open or Clear supersedes this request.
func (v *Viewer) Open(path string) error {
	if err := v.check(path); err != nil {
		v.reportError(path, err)
		return err
	}

	v.requestSeq++
	seq := v.requestSeq
	v.requested = path
	v.log.Info("loading model", zap.String("source", path), zap.Uint64("request", seq))

	v.loads.Add(1)
	go func() {
		defer v.loads.Done()
		model, err := v.decode(path)
		select {
		case v.results <- loadResult{seq: seq, source: path, model: model, err: err}:
		case <-v.ctx.Done():
		}
	}()
	return nil
}

// Loading reports whether a requested load has not been delivered yet.
func (v *Viewer) Loading() bool {
	return v.requested != "" && v.requested != v.source
}

func (v *Viewer) check(path string) error {
	if err := formats.CheckOBJPath(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", filepath.Base(path))
	}
	if v.opts.MaxFileSize > 0 && info.Size() > v.opts.MaxFileSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, info.Size(), v.opts.MaxFileSize)
	}
	return nil
}

// decode reads and parses an OBJ file, with a sibling .mtl when present.
func (v *Viewer) decode(path string) (*scene.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if v.opts.MaxFileSize > 0 {
		r = &sizeGuard{r: f, limit: v.opts.MaxFileSize}
	}

	var mtl io.Reader
	mtlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl"
	if m, err := os.Open(mtlPath); err == nil {
		defer m.Close()
		mtl = m
	}

	return formats.DecodeOBJ(r, mtl)
}

// sizeGuard fails with ErrFileTooLarge once more than limit bytes arrive, so
// a file that grew after the Stat check is rejected instead of truncated.
type sizeGuard struct {
	r     io.Reader
	limit int64
	read  int64
}

func (g *sizeGuard) Read(p []byte) (int, error) {
	if room := g.limit - g.read + 1; int64(len(p)) > room {
		p = p[:room]
	}
	n, err := g.r.Read(p)
	g.read += int64(n)
	if g.read > g.limit {
		return 0, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, g.limit)
	}
	return n, err
}

// drainLoads attaches finished loads that still match the latest request.
func (v *Viewer) drainLoads() {
	for {
		select {
		case res := <-v.results:
			v.deliver(res)
		default:
			return
		}
	}
}

func (v *Viewer) deliver(res loadResult) {
	if res.seq != v.requestSeq || res.source != v.requested {
		v.log.Debug("discarding stale load", zap.String("source", res.source), zap.Uint64("request", res.seq))
		return
	}
	if res.err != nil {
		v.requested = v.source
		v.reportError(res.source, res.err)
		return
	}

	v.release()
	v.container.Rotation = math.Vec3{}
	v.container.Add(res.model)
	v.model = res.model
	v.source = res.source
	v.normalizer.Reset()
	v.normalizer.Normalize(res.source, v.container, res.model, v.mode.Mode())

	v.log.Info("model loaded", zap.String("source", res.source), zap.Int("meshes", len(res.model.Meshes())))
	if v.cb.OnLoad != nil {
		v.cb.OnLoad(res.source)
	}
}

func (v *Viewer) reportError(source string, err error) {
	v.log.Warn("model rejected", zap.String("source", source), zap.Error(err))
	if v.cb.OnError != nil {
		v.cb.OnError(fmt.Sprintf("Failed to load %s: %v", filepath.Base(source), err))
	}
}
