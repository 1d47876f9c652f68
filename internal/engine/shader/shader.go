// Package shader compiles and links the renderer's GLSL programs.
package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Build errors. Both are wrapped with the program name and the driver log.
var (
	ErrCompile = errors.New("shader compile failed")
	ErrLink    = errors.New("shader link failed")
)

// Stage is a programmable pipeline stage.
type Stage uint32

const (
	Vertex   Stage = gl.VERTEX_SHADER
	Fragment Stage = gl.FRAGMENT_SHADER
)

func (s Stage) String() string {
	switch s {
	case Vertex:
		return "vertex"
	case Fragment:
		return "fragment"
	default:
		return fmt.Sprintf("stage(0x%x)", uint32(s))
	}
}

// CompileProgram builds the named program from a vertex and a fragment
// source. Intermediate shader objects are deleted on every path.
func CompileProgram(name, vertexSrc, fragmentSrc string) (uint32, error) {
	vert, err := compileStage(name, Vertex, vertexSrc)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vert)

	frag, err := compileStage(name, Fragment, fragmentSrc)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(frag)

	program := gl.CreateProgram()
	gl.AttachShader(program, vert)
	gl.AttachShader(program, frag)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &n)
		buf := make([]byte, n+1)
		gl.GetProgramInfoLog(program, n, nil, &buf[0])
		gl.DeleteProgram(program)
		return 0, linkError(name, buf)
	}
	return program, nil
}

func compileStage(name string, stage Stage, source string) (uint32, error) {
	sh := gl.CreateShader(uint32(stage))
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(sh, 1, csource, nil)
	free()
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &n)
		buf := make([]byte, n+1)
		gl.GetShaderInfoLog(sh, n, nil, &buf[0])
		gl.DeleteShader(sh)
		return 0, compileError(name, stage, buf)
	}
	return sh, nil
}

func compileError(program string, stage Stage, log []byte) error {
	return fmt.Errorf("%w: %s %s shader: %s", ErrCompile, program, stage, infoLog(log))
}

func linkError(program string, log []byte) error {
	return fmt.Errorf("%w: %s: %s", ErrLink, program, infoLog(log))
}

// infoLog turns a NUL-terminated driver log into a single trimmed string.
func infoLog(buf []byte) string {
	if i := strings.IndexByte(string(buf), 0); i >= 0 {
		buf = buf[:i]
	}
	s := strings.TrimSpace(string(buf))
	if s == "" {
		return "no driver log"
	}
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", " | ")), " ")
}

// GetUniform returns the uniform location for the given name, or -1 if the
// uniform is not found or inactive.
func GetUniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

// Uniforms looks up every name and reports the ones the linker dropped.
func Uniforms(program uint32, names ...string) (locs map[string]int32, missing []string) {
	locs = make(map[string]int32, len(names))
	for _, n := range names {
		loc := GetUniform(program, n)
		locs[n] = loc
		if loc < 0 {
			missing = append(missing, n)
		}
	}
	return locs, missing
}
