package scene

import (
	"github.com/Faultbox/xrview/pkg/math"
)

// Box is an axis-aligned bounding box.
type Box struct {
	Min math.Vec3
	Max math.Vec3
}

// Center returns the arithmetic mean of the min and max corners.
func (b Box) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the per-axis extents.
func (b Box) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Expand grows the box to contain p.
func (b Box) Expand(p math.Vec3) Box {
	return Box{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// BoundsOf computes the box enclosing every vertex in the subtree rooted at n,
// expressed in n's parent space (n's own transform is applied).
// ok is false when the subtree has no vertices.
func BoundsOf(n *Node) (box Box, ok bool) {
	var walk func(node *Node, m math.Mat4)
	walk = func(node *Node, parentM math.Mat4) {
		m := parentM.Mul(node.LocalMatrix())
		if node.Mesh != nil {
			for _, p := range node.Mesh.Geometry.Positions {
				wp := m.TransformPoint(p)
				if !ok {
					box = Box{Min: wp, Max: wp}
					ok = true
					continue
				}
				box = box.Expand(wp)
			}
		}
		for _, c := range node.children {
			walk(c, m)
		}
	}
	walk(n, math.Identity())
	return box, ok
}
