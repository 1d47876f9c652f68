// Package scene holds the viewer's scene graph: transform nodes, meshes and materials.
package scene

import (
	"github.com/Faultbox/xrview/pkg/math"
)

// Color is a linear RGB color.
type Color struct {
	R, G, B float32
}

// Hex builds a Color from a 0xRRGGBB value.
func Hex(v uint32) Color {
	return Color{
		R: float32((v>>16)&0xff) / 255,
		G: float32((v>>8)&0xff) / 255,
		B: float32(v&0xff) / 255,
	}
}

// Material is a physically based surface description.
type Material struct {
	Name      string
	Color     Color
	Emissive  Color
	Roughness float32
	Metalness float32
}

// Geometry is an indexed triangle list in the owning node's local space.
type Geometry struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	Indices   []uint32
}

// Mesh attaches geometry and a material to a node.
type Mesh struct {
	Geometry      Geometry
	Material      *Material // nil until a material is assigned
	CastShadow    bool
	ReceiveShadow bool
}

// Node is a transform in the scene graph.
type Node struct {
	Name     string
	Position math.Vec3
	Rotation math.Vec3 // Euler angles in radians, applied X then Y then Z
	Scale    float32   // uniform
	Mesh     *Mesh

	parent   *Node
	children []*Node
}

// NewNode creates an empty node with unit scale.
func NewNode(name string) *Node {
	return &Node{Name: name, Scale: 1}
}

// Add attaches child to n, detaching it from any previous parent.
func (n *Node) Add(child *Node) {
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

// Remove detaches child from n. It reports whether child was found.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// RemoveAll detaches every child.
func (n *Node) RemoveAll() {
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
}

// Children returns the node's direct children.
func (n *Node) Children() []*Node {
	return n.children
}

// Parent returns the parent node or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Traverse visits n and all descendants depth-first, parents before children.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Traverse(fn)
	}
}

// Meshes returns every mesh in the subtree rooted at n.
func (n *Node) Meshes() []*Mesh {
	var out []*Mesh
	n.Traverse(func(node *Node) {
		if node.Mesh != nil {
			out = append(out, node.Mesh)
		}
	})
	return out
}

// LocalMatrix returns the node's transform relative to its parent.
func (n *Node) LocalMatrix() math.Mat4 {
	return math.TRS(n.Position, n.Rotation, n.Scale)
}

// WorldMatrix returns the node's transform relative to the root of its graph.
func (n *Node) WorldMatrix() math.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul(m)
	}
	return m
}
