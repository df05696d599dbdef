package mold

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SharedStateSize is the std140 size of the shared uniform block.
const SharedStateSize = 32

// Byte offsets of the shared uniform block fields. patch_offset is a uvec2 and
// therefore starts on an 8 byte boundary, leaving 4 bytes of padding after
// patch_size.
const (
	offTextureWidth  = 0
	offTextureHeight = 4
	offPatchSize     = 8
	offPatchOffsetU  = 16
	offPatchOffsetV  = 20
	offAgentCount    = 24
	offDeltaTime     = 28
)

// defaultDeltaTime is used until the first frame has been measured.
const defaultDeltaTime = float32(1.0 / 60.0)

// SharedStateBlock is the flat wire view of the uniform block read by every
// compute stage.
type SharedStateBlock struct {
	TextureWidth  uint32
	TextureHeight uint32
	PatchSize     uint32
	PatchOffsetU  uint32
	PatchOffsetV  uint32
	AgentCount    uint32
	DeltaTime     float32
}

// AppendBinary appends the std140 encoding of the block to b.
func (s SharedStateBlock) AppendBinary(b []byte) ([]byte, error) {
	start := len(b)
	b = append(b, make([]byte, SharedStateSize)...)
	out := b[start:]
	binary.NativeEndian.PutUint32(out[offTextureWidth:], s.TextureWidth)
	binary.NativeEndian.PutUint32(out[offTextureHeight:], s.TextureHeight)
	binary.NativeEndian.PutUint32(out[offPatchSize:], s.PatchSize)
	binary.NativeEndian.PutUint32(out[offPatchOffsetU:], s.PatchOffsetU)
	binary.NativeEndian.PutUint32(out[offPatchOffsetV:], s.PatchOffsetV)
	binary.NativeEndian.PutUint32(out[offAgentCount:], s.AgentCount)
	binary.NativeEndian.PutUint32(out[offDeltaTime:], math.Float32bits(s.DeltaTime))
	return b, nil
}

// UnmarshalBinary decodes a block previously produced by AppendBinary.
func (s *SharedStateBlock) UnmarshalBinary(data []byte) error {
	if len(data) != SharedStateSize {
		return fmt.Errorf("shared state block is %d bytes, want %d", len(data), SharedStateSize)
	}
	s.TextureWidth = binary.NativeEndian.Uint32(data[offTextureWidth:])
	s.TextureHeight = binary.NativeEndian.Uint32(data[offTextureHeight:])
	s.PatchSize = binary.NativeEndian.Uint32(data[offPatchSize:])
	s.PatchOffsetU = binary.NativeEndian.Uint32(data[offPatchOffsetU:])
	s.PatchOffsetV = binary.NativeEndian.Uint32(data[offPatchOffsetV:])
	s.AgentCount = binary.NativeEndian.Uint32(data[offAgentCount:])
	s.DeltaTime = math.Float32frombits(binary.NativeEndian.Uint32(data[offDeltaTime:]))
	return nil
}

// Tile2D is a square texture-space tile.
type Tile2D struct {
	Size    uint32
	OffsetU uint32
	OffsetV uint32
}

// Tile1D is a contiguous range of agent indices.
type Tile1D struct {
	Size   uint32
	Offset uint32
}

// TileKind selects which tile record is serialized into the patch fields.
type TileKind uint8

const (
	TileTexture TileKind = iota
	TileAgent
)

func (k TileKind) String() string {
	switch k {
	case TileTexture:
		return "texture"
	case TileAgent:
		return "agent"
	}
	return fmt.Sprintf("TileKind(%d)", uint8(k))
}

// StateBuffer owns the host copy of the shared uniform block and the device
// buffer it is uploaded to.
type StateBuffer struct {
	dev Device

	textureWidth  uint32
	textureHeight uint32
	agentCount    uint32

	tile2D    Tile2D
	tile1D    Tile1D
	active    TileKind
	deltaTime float32

	scratch []byte
	uploads int
}

// NewStateBuffer sets the immutable fields, resets the tiling fields and
// allocates the device buffer with the initial contents.
func NewStateBuffer(dev Device, width, height, tileSize2D, agentCount uint32) (*StateBuffer, error) {
	s := &StateBuffer{
		dev:           dev,
		textureWidth:  width,
		textureHeight: height,
		agentCount:    agentCount,
		tile2D:        Tile2D{Size: tileSize2D},
		active:        TileTexture,
		deltaTime:     defaultDeltaTime,
		scratch:       make([]byte, 0, SharedStateSize),
	}
	if err := dev.AllocateSharedState(s.encode()); err != nil {
		return nil, fmt.Errorf("allocating shared state buffer: %w", err)
	}
	return s, nil
}

// SetTile2D activates a texture-space tile.
func (s *StateBuffer) SetTile2D(offsetU, offsetV, size uint32) {
	s.tile2D = Tile2D{Size: size, OffsetU: offsetU, OffsetV: offsetV}
	s.active = TileTexture
}

// SetTile1D activates an agent-space tile. The texture tile is left as is, so
// patch_offset.v keeps whatever the last texture tile wrote.
func (s *StateBuffer) SetTile1D(offsetU, size uint32) {
	s.tile1D = Tile1D{Size: size, Offset: offsetU}
	s.active = TileAgent
}

// SetDeltaTime stores the frame time read by stages on subsequent uploads.
func (s *StateBuffer) SetDeltaTime(dt float32) {
	s.deltaTime = dt
}

// Upload transmits the whole block to the device.
func (s *StateBuffer) Upload() error {
	if err := s.dev.UploadSharedState(s.encode()); err != nil {
		return fmt.Errorf("uploading shared state: %w", err)
	}
	s.uploads++
	return nil
}

// Block returns the wire view of the current host copy.
func (s *StateBuffer) Block() SharedStateBlock {
	b := SharedStateBlock{
		TextureWidth:  s.textureWidth,
		TextureHeight: s.textureHeight,
		AgentCount:    s.agentCount,
		DeltaTime:     s.deltaTime,
		PatchOffsetV:  s.tile2D.OffsetV,
	}
	switch s.active {
	case TileTexture:
		b.PatchSize = s.tile2D.Size
		b.PatchOffsetU = s.tile2D.OffsetU
	case TileAgent:
		b.PatchSize = s.tile1D.Size
		b.PatchOffsetU = s.tile1D.Offset
	}
	return b
}

func (s *StateBuffer) encode() []byte {
	s.scratch, _ = s.Block().AppendBinary(s.scratch[:0])
	return s.scratch
}

// Active reports which tile kind the next upload carries.
func (s *StateBuffer) Active() TileKind { return s.active }

// Tile2D returns the texture-space tile record.
func (s *StateBuffer) Tile2D() Tile2D { return s.tile2D }

// Tile1D returns the agent-space tile record.
func (s *StateBuffer) Tile1D() Tile1D { return s.tile1D }

// DeltaTime returns the frame time that the next upload carries.
func (s *StateBuffer) DeltaTime() float32 { return s.deltaTime }

// Uploads counts successful uploads since creation.
func (s *StateBuffer) Uploads() int { return s.uploads }

// TextureWidth returns the immutable render target width.
func (s *StateBuffer) TextureWidth() uint32 { return s.textureWidth }

// TextureHeight returns the immutable render target height.
func (s *StateBuffer) TextureHeight() uint32 { return s.textureHeight }

// AgentCount returns the immutable number of agents.
func (s *StateBuffer) AgentCount() uint32 { return s.agentCount }
