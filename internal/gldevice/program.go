package gldevice

import (
	"fmt"
	"io/fs"
	"log"
	"strings"

	"github.com/go-gl/gl/v4.5-core/gl"

	"github.com/Distortions81/mold-simulation/internal/mold"
	"github.com/Distortions81/mold-simulation/shaders"
)

var computeSources = [...]string{
	mold.StageDiffuse:     shaders.Diffuse,
	mold.StageAgent:       shaders.Agent,
	mold.StagePostProcess: shaders.PostProcess,
}

type shaderSource struct {
	kind uint32
	name string
	src  string
}

// loadSource reads and preprocesses one shader. A missing source is fatal.
func loadSource(fsys fs.FS, name string, defines map[string]string) (string, error) {
	src, err := shaders.Load(fsys, name)
	if err != nil {
		return "", err
	}
	src, err = shaders.Preprocess(src, defines)
	if err != nil {
		return "", fmt.Errorf("preprocessing %s: %w", name, err)
	}
	return src, nil
}

// compileShader compiles src. Compile failures are logged with the info log
// and the shader id is returned anyway; the driver reports the broken program
// when it is used.
func compileShader(tag string, s shaderSource) uint32 {
	id := gl.CreateShader(s.kind)
	csrc, free := gl.Strs(s.src + "\x00")
	gl.ShaderSource(id, 1, csrc, nil)
	free()
	gl.CompileShader(id)

	var status int32
	gl.GetShaderiv(id, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		log.Printf("Compile error (tag=%s, file=%s):\n%s", tag, s.name, shaderInfoLog(id))
	}
	return id
}

// linkProgram compiles and links the sources into one program, logging and
// continuing on failure like compileShader.
func linkProgram(tag string, sources ...shaderSource) uint32 {
	prog := gl.CreateProgram()
	ids := make([]uint32, 0, len(sources))
	for _, s := range sources {
		id := compileShader(tag, s)
		gl.AttachShader(prog, id)
		ids = append(ids, id)
	}
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		log.Printf("Link error (tag=%s):\n%s", tag, programInfoLog(prog))
	}
	for _, id := range ids {
		gl.DetachShader(prog, id)
		gl.DeleteShader(id)
	}
	return prog
}

func shaderInfoLog(id uint32) string {
	var n int32
	gl.GetShaderiv(id, gl.INFO_LOG_LENGTH, &n)
	if n == 0 {
		return ""
	}
	buf := strings.Repeat("\x00", int(n+1))
	gl.GetShaderInfoLog(id, n, nil, gl.Str(buf))
	return strings.TrimRight(buf, "\x00")
}

func programInfoLog(id uint32) string {
	var n int32
	gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &n)
	if n == 0 {
		return ""
	}
	buf := strings.Repeat("\x00", int(n+1))
	gl.GetProgramInfoLog(id, n, nil, gl.Str(buf))
	return strings.TrimRight(buf, "\x00")
}

// programs holds every GL program the device uses.
type programs struct {
	compute [len(computeSources)]uint32
	render  uint32
	sampler int32
}

func buildPrograms(fsys fs.FS, cfg mold.Config) (*programs, error) {
	defines := shaders.Defines(cfg)
	p := &programs{}
	for _, stage := range mold.Stages {
		name := computeSources[stage]
		src, err := loadSource(fsys, name, defines)
		if err != nil {
			p.release()
			return nil, err
		}
		p.compute[stage] = linkProgram(stage.String(), shaderSource{gl.COMPUTE_SHADER, name, src})
	}

	vert, err := loadSource(fsys, shaders.RenderVert, defines)
	if err != nil {
		p.release()
		return nil, err
	}
	frag, err := loadSource(fsys, shaders.RenderFrag, defines)
	if err != nil {
		p.release()
		return nil, err
	}
	p.render = linkProgram("render",
		shaderSource{gl.VERTEX_SHADER, shaders.RenderVert, vert},
		shaderSource{gl.FRAGMENT_SHADER, shaders.RenderFrag, frag},
	)
	p.sampler = gl.GetUniformLocation(p.render, gl.Str("u_Sampler\x00"))
	if p.sampler < 0 {
		p.release()
		return nil, fmt.Errorf("uniform u_Sampler not found in render program")
	}
	return p, nil
}

func (p *programs) release() {
	if p.render != 0 {
		gl.DeleteProgram(p.render)
		p.render = 0
	}
	for i := len(p.compute) - 1; i >= 0; i-- {
		if p.compute[i] != 0 {
			gl.DeleteProgram(p.compute[i])
			p.compute[i] = 0
		}
	}
}
