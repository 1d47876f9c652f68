// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// MeshVertexShader is the vertex shader for lit model meshes.
//
//go:embed mesh.vert
var MeshVertexShader string

// MeshFragmentShader is the fragment shader for lit model meshes.
//
//go:embed mesh.frag
var MeshFragmentShader string

// ShadowVertexShader is the vertex shader for the ground contact shadow.
//
//go:embed shadow.vert
var ShadowVertexShader string

// ShadowFragmentShader is the fragment shader for the ground contact shadow.
//
//go:embed shadow.frag
var ShadowFragmentShader string

// LineVertexShader is the vertex shader for wireframe overlays.
//
//go:embed line.vert
var LineVertexShader string

// LineFragmentShader is the fragment shader for wireframe overlays.
//
//go:embed line.frag
var LineFragmentShader string
