// Package renderer draws the viewer's scene graph with OpenGL.
package renderer

import (
	"fmt"
	gomath "math"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/xrview/internal/engine/lighting"
	"github.com/Faultbox/xrview/internal/engine/renderer/shaders"
	"github.com/Faultbox/xrview/internal/engine/shader"
	"github.com/Faultbox/xrview/internal/logger"
	"github.com/Faultbox/xrview/internal/presentation"
	"github.com/Faultbox/xrview/internal/scene"
	"github.com/Faultbox/xrview/pkg/math"
)

// Backdrop colors.
var (
	EnvironmentColor = [4]float32{0.06, 0.09, 0.16, 1.0} // Dark slate
	PassthroughColor = [4]float32{0, 0, 0, 0}            // Transparent for AR compositing
)

// GroundShadowOpacity is the darkness at the center of the contact shadow.
const GroundShadowOpacity = 0.4

const discSegments = 48

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

type gpuMesh struct {
	vao, vbo, ebo uint32
	indexCount    int32
}

type meshUniforms struct {
	mvp, model                        int32
	color, emissive, roughness, metal int32
	ambient, sunDir, sunColor         int32
	pointPos, pointColor, cameraPos   int32
}

// Renderer handles all OpenGL rendering. GPU buffers are created lazily for
// each scene mesh and kept until Release.
type Renderer struct {
	config Config
	log    *zap.Logger

	meshProgram uint32
	mesh        meshUniforms

	shadowProgram    uint32
	locShadowMVP     int32
	locShadowOpacity int32
	discVAO, discVBO uint32

	lineProgram      uint32
	locLineMVP       int32
	locLineColor     int32
	lineVAO, lineVBO uint32

	buffers map[*scene.Mesh]*gpuMesh
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config:  cfg,
		log:     logger.Named("renderer"),
		buffers: make(map[*scene.Mesh]*gpuMesh),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.MULTISAMPLE)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	if err := r.createPrograms(); err != nil {
		r.Close()
		return nil, err
	}
	r.createDisc()
	r.createLineBuffer()
	r.Resize(cfg.Width, cfg.Height)

	return r, nil
}

func (r *Renderer) createPrograms() error {
	var err error
	r.meshProgram, err = shader.CompileProgram("mesh", shaders.MeshVertexShader, shaders.MeshFragmentShader)
	if err != nil {
		return err
	}
	u := r.uniforms("mesh", r.meshProgram,
		"uMVP", "uModel", "uColor", "uEmissive", "uRoughness", "uMetalness",
		"uAmbient", "uSunDir", "uSunColor", "uPointPos", "uPointColor", "uCameraPos")
	r.mesh = meshUniforms{
		mvp:        u["uMVP"],
		model:      u["uModel"],
		color:      u["uColor"],
		emissive:   u["uEmissive"],
		roughness:  u["uRoughness"],
		metal:      u["uMetalness"],
		ambient:    u["uAmbient"],
		sunDir:     u["uSunDir"],
		sunColor:   u["uSunColor"],
		pointPos:   u["uPointPos"],
		pointColor: u["uPointColor"],
		cameraPos:  u["uCameraPos"],
	}

	r.shadowProgram, err = shader.CompileProgram("shadow", shaders.ShadowVertexShader, shaders.ShadowFragmentShader)
	if err != nil {
		return err
	}
	u = r.uniforms("shadow", r.shadowProgram, "uMVP", "uOpacity")
	r.locShadowMVP, r.locShadowOpacity = u["uMVP"], u["uOpacity"]

	r.lineProgram, err = shader.CompileProgram("line", shaders.LineVertexShader, shaders.LineFragmentShader)
	if err != nil {
		return err
	}
	u = r.uniforms("line", r.lineProgram, "uMVP", "uColor")
	r.locLineMVP, r.locLineColor = u["uMVP"], u["uColor"]

	r.log.Debug("shader programs created",
		zap.Uint32("mesh", r.meshProgram),
		zap.Uint32("shadow", r.shadowProgram),
		zap.Uint32("line", r.lineProgram),
	)
	return nil
}

// uniforms resolves locations; inactive ones stay -1 and GL ignores writes to them.
func (r *Renderer) uniforms(program string, id uint32, names ...string) map[string]int32 {
	locs, missing := shader.Uniforms(id, names...)
	if len(missing) > 0 {
		r.log.Warn("inactive uniforms", zap.String("program", program), zap.Strings("names", missing))
	}
	return locs
}

// createDisc builds a unit disc in the XZ plane as a triangle fan.
func (r *Renderer) createDisc() {
	verts := make([]float32, 0, (discSegments+2)*2)
	verts = append(verts, 0, 0)
	for i := 0; i <= discSegments; i++ {
		a := 2 * gomath.Pi * float64(i) / discSegments
		verts = append(verts, float32(gomath.Cos(a)), float32(gomath.Sin(a)))
	}

	gl.GenVertexArrays(1, &r.discVAO)
	gl.BindVertexArray(r.discVAO)
	gl.GenBuffers(1, &r.discVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.discVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, unsafe.Pointer(&verts[0]), gl.STATIC_DRAW)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 2*4, 0)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)
}

func (r *Renderer) createLineBuffer() {
	gl.GenVertexArrays(1, &r.lineVAO)
	gl.BindVertexArray(r.lineVAO)
	gl.GenBuffers(1, &r.lineVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	gl.BufferData(gl.ARRAY_BUFFER, 24*3*4, nil, gl.DYNAMIC_DRAW)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 3*4, 0)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	for m := range r.buffers {
		r.releaseMesh(m)
	}
	for _, vao := range []*uint32{&r.discVAO, &r.lineVAO} {
		if *vao != 0 {
			gl.DeleteVertexArrays(1, vao)
		}
	}
	for _, vbo := range []*uint32{&r.discVBO, &r.lineVBO} {
		if *vbo != 0 {
			gl.DeleteBuffers(1, vbo)
		}
	}
	for _, p := range []uint32{r.meshProgram, r.shadowProgram, r.lineProgram} {
		if p != 0 {
			gl.DeleteProgram(p)
		}
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Aspect returns the viewport aspect ratio.
func (r *Renderer) Aspect() float32 {
	if r.config.Height == 0 {
		return 1
	}
	return float32(r.config.Width) / float32(r.config.Height)
}

// Begin starts a new frame. The backdrop is the environment color when the
// mode shows an environment and transparent black otherwise.
func (r *Renderer) Begin(params presentation.Parameters) {
	c := PassthroughColor
	if params.ShowEnvironment {
		c = EnvironmentColor
	}
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// End finishes the current frame.
func (r *Renderer) End() {
	gl.BindVertexArray(0)
	gl.UseProgram(0)
}

// DrawScene draws every mesh beneath root with the given lights.
func (r *Renderer) DrawScene(root *scene.Node, view, proj math.Mat4, eye math.Vec3, rig lighting.Rig) {
	gl.UseProgram(r.meshProgram)
	u := r.mesh
	gl.Uniform3f(u.ambient, rig.Ambient[0], rig.Ambient[1], rig.Ambient[2])
	gl.Uniform3f(u.sunDir, rig.SunDir[0], rig.SunDir[1], rig.SunDir[2])
	gl.Uniform3f(u.sunColor, rig.SunColor[0], rig.SunColor[1], rig.SunColor[2])
	pl := rig.Point
	gl.Uniform3f(u.pointPos, pl.Position[0], pl.Position[1], pl.Position[2])
	gl.Uniform3f(u.pointColor, pl.Color[0]*pl.Intensity, pl.Color[1]*pl.Intensity, pl.Color[2]*pl.Intensity)
	gl.Uniform3f(u.cameraPos, eye.X, eye.Y, eye.Z)

	viewProj := proj.Mul(view)
	root.Traverse(func(n *scene.Node) {
		if n.Mesh == nil || len(n.Mesh.Geometry.Indices) == 0 {
			return
		}
		g := r.upload(n.Mesh)
		if g == nil {
			return
		}

		model := n.WorldMatrix()
		mvp := viewProj.Mul(model)
		gl.UniformMatrix4fv(u.mvp, 1, false, mvp.Ptr())
		gl.UniformMatrix4fv(u.model, 1, false, model.Ptr())

		mat := n.Mesh.Material
		if mat == nil {
			mat = &scene.Material{Color: scene.Color{R: 0.8, G: 0.8, B: 0.8}, Roughness: 1}
		}
		gl.Uniform3f(u.color, mat.Color.R, mat.Color.G, mat.Color.B)
		gl.Uniform3f(u.emissive, mat.Emissive.R, mat.Emissive.G, mat.Emissive.B)
		gl.Uniform1f(u.roughness, mat.Roughness)
		gl.Uniform1f(u.metal, mat.Metalness)

		gl.BindVertexArray(g.vao)
		gl.DrawElementsWithOffset(gl.TRIANGLES, g.indexCount, gl.UNSIGNED_INT, 0)
	})
	gl.BindVertexArray(0)
}

// DrawGroundShadow draws a soft contact shadow just below box, which is in
// world space.
func (r *Renderer) DrawGroundShadow(viewProj math.Mat4, box scene.Box) {
	size := box.Size()
	radius := max(size.X, size.Z) * 0.75
	if radius <= 0 {
		return
	}
	center := box.Center()
	pos := math.Vec3{X: center.X, Y: box.Min.Y - 0.005, Z: center.Z}
	mvp := viewProj.Mul(math.Translate(pos).Mul(math.Scale(radius)))

	gl.Enable(gl.BLEND)
	gl.DepthMask(false)
	gl.UseProgram(r.shadowProgram)
	gl.UniformMatrix4fv(r.locShadowMVP, 1, false, mvp.Ptr())
	gl.Uniform1f(r.locShadowOpacity, GroundShadowOpacity)
	gl.BindVertexArray(r.discVAO)
	gl.DrawArrays(gl.TRIANGLE_FAN, 0, discSegments+2)
	gl.BindVertexArray(0)
	gl.DepthMask(true)
	gl.Disable(gl.BLEND)
}

// DrawLines draws line-list vertices ([x, y, z] each) in a flat color.
func (r *Renderer) DrawLines(viewProj math.Mat4, verts []float32, color scene.Color) {
	if len(verts) == 0 {
		return
	}
	gl.UseProgram(r.lineProgram)
	gl.UniformMatrix4fv(r.locLineMVP, 1, false, viewProj.Ptr())
	gl.Uniform3f(r.locLineColor, color.R, color.G, color.B)

	gl.BindVertexArray(r.lineVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, unsafe.Pointer(&verts[0]), gl.DYNAMIC_DRAW)
	gl.DrawArrays(gl.LINES, 0, int32(len(verts)/3))
	gl.BindVertexArray(0)
}

// ReadPixels reads the current framebuffer as RGBA, bottom row first.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pixels := make([]byte, w*h*4)
	if len(pixels) == 0 {
		return pixels, w, h
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pixels[0]))
	return pixels, w, h
}

// Release frees the GPU buffers of every mesh beneath node.
func (r *Renderer) Release(node *scene.Node) {
	if node == nil {
		return
	}
	released := 0
	node.Traverse(func(n *scene.Node) {
		if n.Mesh != nil && r.buffers[n.Mesh] != nil {
			r.releaseMesh(n.Mesh)
			released++
		}
	})
	r.log.Debug("mesh buffers released", zap.Int("meshes", released))
}

func (r *Renderer) releaseMesh(m *scene.Mesh) {
	g := r.buffers[m]
	if g == nil {
		return
	}
	gl.DeleteVertexArrays(1, &g.vao)
	gl.DeleteBuffers(1, &g.vbo)
	gl.DeleteBuffers(1, &g.ebo)
	delete(r.buffers, m)
}

// upload creates interleaved position/normal buffers for m on first use.
func (r *Renderer) upload(m *scene.Mesh) *gpuMesh {
	if g, ok := r.buffers[m]; ok {
		return g
	}
	geo := m.Geometry
	if len(geo.Positions) == 0 {
		return nil
	}

	verts := make([]float32, 0, len(geo.Positions)*6)
	for i, p := range geo.Positions {
		var n math.Vec3
		if i < len(geo.Normals) {
			n = geo.Normals[i]
		}
		verts = append(verts, p.X, p.Y, p.Z, n.X, n.Y, n.Z)
	}

	g := &gpuMesh{indexCount: int32(len(geo.Indices))}
	gl.GenVertexArrays(1, &g.vao)
	gl.BindVertexArray(g.vao)

	gl.GenBuffers(1, &g.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, unsafe.Pointer(&verts[0]), gl.STATIC_DRAW)

	stride := int32(6 * 4)
	// Position
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	// Normal
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)

	gl.GenBuffers(1, &g.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(geo.Indices)*4, unsafe.Pointer(&geo.Indices[0]), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	r.buffers[m] = g
	return g
}
