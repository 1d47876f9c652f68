// Package normalize centers a loaded model and fits it to the target size of
// the active presentation mode.
package normalize

import (
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/xrview/internal/logger"
	"github.com/Faultbox/xrview/internal/presentation"
	"github.com/Faultbox/xrview/internal/scene"
	"github.com/Faultbox/xrview/pkg/math"
)

// DefaultMaterial is assigned to meshes that arrive without one.
var DefaultMaterial = scene.Material{
	Name:      "default",
	Color:     scene.Hex(0x8b5cf6),
	Roughness: 0.3,
	Metalness: 0.1,
}

// Result describes one normalization pass.
type Result struct {
	Center     math.Vec3 // Bounding-box center before translation
	Size       math.Vec3 // Bounding-box extents before scaling
	MaxDim     float32
	TargetSize float32
	Scale      float32 // Uniform scale written to the container
	Degenerate bool    // Zero-extent or empty geometry; scale left at 1
}

// Apply translates object so its bounding-box center sits at the origin of its
// parent, then sets container's uniform scale so the largest extent equals
// targetSize. Meshes without a material receive a copy of DefaultMaterial.
func Apply(container, object *scene.Node, targetSize float32) Result {
	res := Result{TargetSize: targetSize, Scale: 1}

	box, ok := scene.BoundsOf(object)
	if ok {
		res.Center = box.Center()
		res.Size = box.Size()
		res.MaxDim = res.Size.MaxComponent()
		object.Position = object.Position.Sub(res.Center)
	}

	scale := float64(targetSize) / float64(res.MaxDim)
	if !ok || res.MaxDim <= 0 || gomath.IsNaN(scale) || gomath.IsInf(scale, 0) {
		res.Degenerate = true
	} else {
		res.Scale = float32(scale)
	}
	container.Scale = res.Scale

	object.Traverse(func(n *scene.Node) {
		if n.Mesh == nil {
			return
		}
		n.Mesh.CastShadow = true
		n.Mesh.ReceiveShadow = true
		if n.Mesh.Material == nil {
			m := DefaultMaterial
			n.Mesh.Material = &m
		}
	})

	return res
}

// Normalizer applies normalization at most once per (source, mode) pair.
type Normalizer struct {
	source    string
	mode      presentation.Mode
	processed bool
	last      Result
}

// New creates a Normalizer with no processed source.
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize fits object for mode unless it was already processed for the same
// source and mode, in which case the previous result is returned and applied
// is false. A different source clears the processed flag.
func (n *Normalizer) Normalize(source string, container, object *scene.Node, mode presentation.Mode) (res Result, applied bool) {
	if source != n.source {
		n.Reset()
		n.source = source
	}
	if n.processed && n.mode == mode {
		return n.last, false
	}

	res = Apply(container, object, presentation.ParametersFor(mode).TargetSize)
	n.mode = mode
	n.processed = true
	n.last = res

	if res.Degenerate {
		logger.Warn("degenerate model bounds, scale left at 1",
			zap.String("source", source),
			zap.Float32("max_dim", res.MaxDim),
		)
	} else {
		logger.Debug("model normalized",
			zap.String("source", source),
			zap.Stringer("mode", mode),
			zap.Float32("max_dim", res.MaxDim),
			zap.Float32("scale", res.Scale),
		)
	}
	return res, true
}

// Reset clears the processed flag so the next Normalize call re-applies.
func (n *Normalizer) Reset() {
	*n = Normalizer{}
}

// Processed reports whether source has been normalized for mode.
func (n *Normalizer) Processed(source string, mode presentation.Mode) bool {
	return n.processed && n.source == source && n.mode == mode
}
