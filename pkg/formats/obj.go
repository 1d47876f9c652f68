// OBJ (Wavefront) decoding.
package formats

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/g3n/engine/loader/obj"

	"github.com/Faultbox/xrview/internal/scene"
	"github.com/Faultbox/xrview/pkg/math"
)

// OBJ format errors.
var (
	ErrUnsupportedExtension = errors.New("unsupported file type: only .obj files are accepted")
	ErrEmptyOBJ             = errors.New("OBJ file contains no geometry")
	ErrOBJIndexOutOfRange   = errors.New("OBJ face references a missing vertex")
)

// OBJExtension is the only accepted model file extension.
const OBJExtension = ".obj"

// CheckOBJPath returns ErrUnsupportedExtension unless path ends in .obj (any case).
func CheckOBJPath(path string) error {
	if !strings.EqualFold(filepath.Ext(path), OBJExtension) {
		return fmt.Errorf("%w: %q", ErrUnsupportedExtension, filepath.Base(path))
	}
	return nil
}

// DecodeOBJ parses Wavefront OBJ text into a scene node with one child per OBJ
// object. mtl may be nil; faces then carry no material, even when they name
// one with usemtl.
func DecodeOBJ(r io.Reader, mtl io.Reader) (*scene.Node, error) {
	hasMTL := mtl != nil
	if !hasMTL {
		mtl = strings.NewReader("")
	}
	dec, err := obj.DecodeReader(r, mtl)
	if err != nil {
		return nil, fmt.Errorf("decoding OBJ: %w", err)
	}
	return buildOBJ(dec, hasMTL)
}

// buildOBJ converts decoder output into scene nodes.
func buildOBJ(dec *obj.Decoder, hasMTL bool) (*scene.Node, error) {
	positions := dec.Vertices
	normals := dec.Normals
	vertexCount := len(positions) / 3

	root := scene.NewNode("obj")
	materials := make(map[string]*scene.Material)
	if !hasMTL {
		materials = nil
	}

	for _, o := range dec.Objects {
		// One mesh per material inside an object.
		byMaterial := make(map[string]*scene.Mesh)
		var order []string

		for fi, face := range o.Faces {
			if len(face.Vertices) < 3 {
				continue
			}
			mesh, ok := byMaterial[face.Material]
			if !ok {
				mesh = &scene.Mesh{Material: lookupMaterial(dec, face.Material, materials)}
				byMaterial[face.Material] = mesh
				order = append(order, face.Material)
			}

			corner := func(i int) (math.Vec3, math.Vec3, bool, error) {
				vi := face.Vertices[i]
				if vi < 0 || vi >= vertexCount {
					return math.Vec3{}, math.Vec3{}, false, fmt.Errorf("%w: object %q face %d vertex %d", ErrOBJIndexOutOfRange, o.Name, fi, vi+1)
				}
				p := math.Vec3{X: positions[3*vi], Y: positions[3*vi+1], Z: positions[3*vi+2]}
				if i < len(face.Normals) {
					ni := face.Normals[i]
					if ni >= 0 && 3*ni+2 < len(normals) {
						return p, math.Vec3{X: normals[3*ni], Y: normals[3*ni+1], Z: normals[3*ni+2]}, true, nil
					}
				}
				return p, math.Vec3{}, false, nil
			}

			// Fan triangulation: (0, i, i+1).
			for i := 1; i+1 < len(face.Vertices); i++ {
				var tri [3]math.Vec3
				var norms [3]math.Vec3
				hasNormals := true
				for k, idx := range [3]int{0, i, i + 1} {
					p, n, ok, err := corner(idx)
					if err != nil {
						return nil, err
					}
					tri[k], norms[k] = p, n
					hasNormals = hasNormals && ok
				}
				if !hasNormals {
					flat := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0])).Normalize()
					norms = [3]math.Vec3{flat, flat, flat}
				}
				g := &mesh.Geometry
				base := uint32(len(g.Positions))
				g.Positions = append(g.Positions, tri[:]...)
				g.Normals = append(g.Normals, norms[:]...)
				g.Indices = append(g.Indices, base, base+1, base+2)
			}
		}

		for _, name := range order {
			mesh := byMaterial[name]
			if len(mesh.Geometry.Indices) == 0 {
				continue
			}
			node := scene.NewNode(o.Name)
			node.Mesh = mesh
			root.Add(node)
		}
	}

	if len(root.Children()) == 0 {
		return nil, ErrEmptyOBJ
	}
	return root, nil
}

// lookupMaterial converts a decoded MTL material, sharing one scene material
// per name. A nil cache means no MTL was supplied. Names the MTL never defined
// yield nil so a default can be assigned later.
func lookupMaterial(dec *obj.Decoder, name string, cache map[string]*scene.Material) *scene.Material {
	if cache == nil {
		return nil
	}
	if m, ok := cache[name]; ok {
		return m
	}
	// The decoder registers a blank entry for every usemtl name.
	src, ok := dec.Materials[name]
	if !ok || src == nil || *src == (obj.Material{Name: name}) {
		cache[name] = nil
		return nil
	}
	m := &scene.Material{
		Name:  name,
		Color: scene.Color{R: src.Diffuse.R, G: src.Diffuse.G, B: src.Diffuse.B},
		// Phong shininess 0..1000 mapped onto roughness 1..0.
		Roughness: 1 - min(src.Shininess, 1000)/1000,
	}
	cache[name] = m
	return m
}
