// Package debug provides debug visualization utilities.
package debug

import "github.com/Faultbox/xrview/internal/scene"

// BoundsVertexCount is the number of vertices for a box wireframe (12 edges × 2).
const BoundsVertexCount = 24

// DefaultBoundsPadding is the default padding around a grabbed model, in meters.
const DefaultBoundsPadding = 0.02

// BoundsWireframe creates line vertices for a wireframe around box, expanded
// by padding on all sides. Format: [x, y, z] per vertex.
func BoundsWireframe(box scene.Box, padding float32) []float32 {
	minX, minY, minZ := box.Min.X-padding, box.Min.Y-padding, box.Min.Z-padding
	maxX, maxY, maxZ := box.Max.X+padding, box.Max.Y+padding, box.Max.Z+padding

	return []float32{
		// Bottom face
		minX, minY, minZ, maxX, minY, minZ,
		maxX, minY, minZ, maxX, minY, maxZ,
		maxX, minY, maxZ, minX, minY, maxZ,
		minX, minY, maxZ, minX, minY, minZ,
		// Top face
		minX, maxY, minZ, maxX, maxY, minZ,
		maxX, maxY, minZ, maxX, maxY, maxZ,
		maxX, maxY, maxZ, minX, maxY, maxZ,
		minX, maxY, maxZ, minX, maxY, minZ,
		// Vertical edges
		minX, minY, minZ, minX, maxY, minZ,
		maxX, minY, minZ, maxX, maxY, minZ,
		maxX, minY, maxZ, maxX, maxY, maxZ,
		minX, minY, maxZ, minX, maxY, maxZ,
	}
}
