package mold

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is wrapped by every violation reported by Config.Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Signature modes for agent color initialization.
const (
	SignatureWhite = "white"
	SignatureRGB   = "rgb"
)

// Config is the startup configuration surface. Everything here is fixed once
// the simulation has been created.
type Config struct {
	TextureWidth  uint32 `toml:"texture_width"`
	TextureHeight uint32 `toml:"texture_height"`
	TileSize2D    uint32 `toml:"tile_size_2d"`
	TileSize1D    uint32 `toml:"tile_size_1d"`
	LocalSize2D   uint32 `toml:"local_size_2d"`
	LocalSize1D   uint32 `toml:"local_size_1d"`
	AgentCount    uint32 `toml:"agent_count"`

	Seed       int64   `toml:"seed"`
	Signature  string  `toml:"signature"`
	AgentSpeed float32 `toml:"agent_speed"`

	ShaderDir   string `toml:"shader_dir"`
	DebugGL     bool   `toml:"debug_gl"`
	VSync       bool   `toml:"vsync"`
	Title       string `toml:"title"`
	WindowScale int    `toml:"window_scale"`
}

// DefaultConfig returns a configuration that passes Validate against
// DefaultLimits.
func DefaultConfig() Config {
	return Config{
		TextureWidth:  1200,
		TextureHeight: 900,
		TileSize2D:    300,
		TileSize1D:    32 * 4096,
		LocalSize2D:   20,
		LocalSize1D:   1024,
		AgentCount:    4 * 65536,
		Signature:     SignatureWhite,
		AgentSpeed:    1,
		Title:         "MOLD SIMULATION",
		WindowScale:   1,
	}
}

// LoadConfig decodes a TOML file on top of DefaultConfig. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config %s: %w", path, err)
	}
	return cfg, nil
}

// Limits describes the compute dispatch limits of a device.
type Limits struct {
	MaxWorkGroupCount  [3]uint32
	MaxWorkGroupSize   [3]uint32
	MaxWorkGroupInvocs uint32
}

// DefaultLimits are the minimums every OpenGL 4.3 implementation guarantees.
var DefaultLimits = Limits{
	MaxWorkGroupCount:  [3]uint32{65535, 65535, 65535},
	MaxWorkGroupSize:   [3]uint32{1024, 1024, 64},
	MaxWorkGroupInvocs: 1024,
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the tiling preconditions and device limits. All violations
// are reported together.
func (c Config) Validate(limits Limits) error {
	var errs []error
	nonZero := []struct {
		name string
		v    uint32
	}{
		{"texture_width", c.TextureWidth},
		{"texture_height", c.TextureHeight},
		{"tile_size_2d", c.TileSize2D},
		{"tile_size_1d", c.TileSize1D},
		{"local_size_2d", c.LocalSize2D},
		{"local_size_1d", c.LocalSize1D},
		{"agent_count", c.AgentCount},
	}
	for _, f := range nonZero {
		if f.v == 0 {
			errs = append(errs, invalid("%s must be greater than zero", f.name))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if c.TextureWidth%c.TileSize2D != 0 {
		errs = append(errs, invalid("tile_size_2d %d does not divide texture_width %d", c.TileSize2D, c.TextureWidth))
	}
	if c.TextureHeight%c.TileSize2D != 0 {
		errs = append(errs, invalid("tile_size_2d %d does not divide texture_height %d", c.TileSize2D, c.TextureHeight))
	}
	if c.TileSize2D%c.LocalSize2D != 0 {
		errs = append(errs, invalid("tile_size_2d %d is not a multiple of local_size_2d %d", c.TileSize2D, c.LocalSize2D))
	}
	if c.AgentCount%c.TileSize1D != 0 {
		errs = append(errs, invalid("agent_count %d is not a multiple of tile_size_1d %d", c.AgentCount, c.TileSize1D))
	}
	if c.TileSize1D%c.LocalSize1D != 0 {
		errs = append(errs, invalid("tile_size_1d %d is not a multiple of local_size_1d %d", c.TileSize1D, c.LocalSize1D))
	}

	if c.LocalSize2D > limits.MaxWorkGroupSize[0] || c.LocalSize2D > limits.MaxWorkGroupSize[1] {
		errs = append(errs, invalid("local_size_2d %d exceeds max work group size %dx%d",
			c.LocalSize2D, limits.MaxWorkGroupSize[0], limits.MaxWorkGroupSize[1]))
	}
	if uint64(c.LocalSize2D)*uint64(c.LocalSize2D) > uint64(limits.MaxWorkGroupInvocs) {
		errs = append(errs, invalid("local_size_2d %d squared exceeds %d invocations per work group",
			c.LocalSize2D, limits.MaxWorkGroupInvocs))
	}
	if c.LocalSize1D > limits.MaxWorkGroupSize[0] || c.LocalSize1D > limits.MaxWorkGroupInvocs {
		errs = append(errs, invalid("local_size_1d %d exceeds work group limits", c.LocalSize1D))
	}
	if groups := c.TileSize2D / c.LocalSize2D; groups > limits.MaxWorkGroupCount[0] || groups > limits.MaxWorkGroupCount[1] {
		errs = append(errs, invalid("texture tile needs %d work groups per axis, device allows %d", groups, limits.MaxWorkGroupCount[0]))
	}
	if groups := c.TileSize1D / c.LocalSize1D; groups > limits.MaxWorkGroupCount[0] {
		errs = append(errs, invalid("agent tile needs %d work groups, device allows %d", groups, limits.MaxWorkGroupCount[0]))
	}

	switch c.Signature {
	case SignatureWhite, SignatureRGB:
	default:
		errs = append(errs, invalid("unknown signature mode %q", c.Signature))
	}
	if c.WindowScale < 1 {
		errs = append(errs, invalid("window_scale must be at least 1"))
	}
	return errors.Join(errs...)
}

// TextureTileCount is the number of texture-space dispatches per stage.
func (c Config) TextureTileCount() int {
	return int(c.TextureWidth/c.TileSize2D) * int(c.TextureHeight/c.TileSize2D)
}

// AgentTileCount is the number of agent-space dispatches per stage.
func (c Config) AgentTileCount() int {
	return int(c.AgentCount / c.TileSize1D)
}
