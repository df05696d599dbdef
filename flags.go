package main

import (
	"flag"
	"strconv"

	"github.com/Distortions81/mold-simulation/internal/mold"
)

// Command-line flags. Flags that mirror a mold.Config field override the
// value from the config file only when given explicitly.
var (
	// configPathFlag names a TOML file with the simulation configuration.
	configPathFlag = flag.String("config", "", "path to a TOML configuration file")

	// backendFlag selects the OpenGL compute backend or the CPU reference.
	backendFlag = flag.String("backend", defaultBackend, "compute backend: gl or soft")

	widthFlag   = uint32Flag("width", "render target width in pixels")
	heightFlag  = uint32Flag("height", "render target height in pixels")
	tile2DFlag  = uint32Flag("tile-2d", "edge length of a texture-space tile")
	tile1DFlag  = uint32Flag("tile-1d", "number of agents per agent-space tile")
	local2DFlag = uint32Flag("local-2d", "work group edge length of the texture-space stages")
	local1DFlag = uint32Flag("local-1d", "work group size of the agent stage")
	agentsFlag  = uint32Flag("agents", "number of agents")

	// seedFlag fixes agent initialization; 0 seeds from the clock.
	seedFlag      = flag.Int64("seed", 0, "random seed for agent initialization")
	signatureFlag = flag.String("signature", "", "agent color signature: white or rgb")
	shaderDirFlag = flag.String("shader-dir", "", "load shader sources from this directory instead of the built-in ones")

	// debugGLFlag checks glGetError after every call and logs driver messages.
	debugGLFlag     = flag.Bool("debug-gl", false, "check for OpenGL errors after every call")
	vsyncFlag       = flag.Bool("vsync", false, "wait for vertical sync on buffer swap")
	windowScaleFlag = flag.Int("window-scale", 0, "window size multiplier")

	// debugFlag enables the FPS and frame overlay of the soft backend and the
	// periodic frame log.
	debugFlag = flag.Bool("debug", false, "show FPS and frame statistics")

	// summaryOnlyFlag validates the configuration, prints the dispatch
	// summary and exits.
	summaryOnlyFlag = flag.Bool("summary", false, "print the dispatch summary and exit")

	cpuProfileFlag = flag.String("cpuprofile", "", "write a CPU profile to this file")
	memProfileFlag = flag.String("memprofile", "", "write a heap profile to this file on exit")
)

// uint32Value is a flag.Value that rejects anything outside the uint32 range
// instead of truncating it.
type uint32Value uint32

func (v *uint32Value) String() string { return strconv.FormatUint(uint64(*v), 10) }

func (v *uint32Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return err
	}
	*v = uint32Value(n)
	return nil
}

func (v *uint32Value) Get() any { return uint32(*v) }

func uint32Flag(name, usage string) *uint32Value {
	v := new(uint32Value)
	flag.Var(v, name, usage)
	return v
}

// applyFlagOverrides copies the flags explicitly set on set into cfg.
func applyFlagOverrides(set *flag.FlagSet, cfg *mold.Config) {
	set.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.TextureWidth = uint32(*widthFlag)
		case "height":
			cfg.TextureHeight = uint32(*heightFlag)
		case "tile-2d":
			cfg.TileSize2D = uint32(*tile2DFlag)
		case "tile-1d":
			cfg.TileSize1D = uint32(*tile1DFlag)
		case "local-2d":
			cfg.LocalSize2D = uint32(*local2DFlag)
		case "local-1d":
			cfg.LocalSize1D = uint32(*local1DFlag)
		case "agents":
			cfg.AgentCount = uint32(*agentsFlag)
		case "seed":
			cfg.Seed = *seedFlag
		case "signature":
			cfg.Signature = *signatureFlag
		case "shader-dir":
			cfg.ShaderDir = *shaderDirFlag
		case "debug-gl":
			cfg.DebugGL = *debugGLFlag
		case "vsync":
			cfg.VSync = *vsyncFlag
		case "window-scale":
			cfg.WindowScale = *windowScaleFlag
		}
	})
}
