// Package shaders holds the default GLSL programs and the preprocessing that
// keeps their work group sizes and binding slots in step with the host.
package shaders

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Distortions81/mold-simulation/internal/mold"
)

//go:embed *.glsl
var embedded embed.FS

// Source file names.
const (
	Diffuse     = "diffuse.comp.glsl"
	Agent       = "agent.comp.glsl"
	PostProcess = "post_proc.comp.glsl"
	RenderVert  = "render.vert.glsl"
	RenderFrag  = "render.frag.glsl"
)

// FS returns the embedded sources, or the files in dir when dir is set.
func FS(dir string) fs.FS {
	if dir == "" {
		return embedded
	}
	return os.DirFS(dir)
}

// Load reads a shader source. A missing file is an error; there is no
// fallback source.
func Load(fsys fs.FS, name string) (string, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("shader source %s not found: %w", name, err)
		}
		return "", fmt.Errorf("reading shader source %s: %w", name, err)
	}
	return string(b), nil
}

// Preprocess inserts a #define for each entry after the #version directive,
// which GLSL requires to be the first statement. Defines are emitted in
// sorted order.
func Preprocess(src string, defines map[string]string) (string, error) {
	if len(defines) == 0 {
		return src, nil
	}
	names := make([]string, 0, len(defines))
	for k := range defines {
		names = append(names, k)
	}
	sort.Strings(names)
	var block strings.Builder
	for _, k := range names {
		fmt.Fprintf(&block, "#define %s %s\n", k, defines[k])
	}

	idx := strings.Index(src, "#version")
	if idx < 0 {
		return "", errors.New("shader source has no #version directive")
	}
	if strings.TrimSpace(src[:idx]) != "" {
		return "", errors.New("#version must be the first directive")
	}
	end := strings.IndexByte(src[idx:], '\n')
	if end < 0 {
		return src + "\n" + block.String(), nil
	}
	end += idx + 1
	return src[:end] + block.String() + src[end:], nil
}

// Defines returns the constants every program is compiled with.
func Defines(cfg mold.Config) map[string]string {
	return map[string]string{
		"LOCAL_SIZE_2D":        strconv.FormatUint(uint64(cfg.LocalSize2D), 10),
		"LOCAL_SIZE_1D":        strconv.FormatUint(uint64(cfg.LocalSize1D), 10),
		"BINDING_TARGET_IMAGE": strconv.Itoa(mold.BindingTargetImage),
		"BINDING_SHARED_STATE": strconv.Itoa(mold.BindingSharedState),
		"BINDING_AGENTS":       strconv.Itoa(mold.BindingAgents),
		"AGENT_SPEED":          glslFloat(cfg.AgentSpeed),
	}
}

// glslFloat formats f so GLSL parses it as a float literal.
func glslFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
