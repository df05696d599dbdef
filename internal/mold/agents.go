package mold

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/chewxy/math32"
)

// AgentStride is the std430 size of one agent record: vec2 position, float
// angle, then a vec3 signature aligned to 16 bytes.
const AgentStride = 32

const (
	offAgentX     = 0
	offAgentY     = 4
	offAgentAngle = 8
	offAgentR     = 16
	offAgentG     = 20
	offAgentB     = 24
)

// Agent is one simulated particle.
type Agent struct {
	Position  [2]float32
	Angle     float32
	Signature [3]float32
}

var (
	white     = [3]float32{1, 1, 1}
	primaries = [3][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
)

// AgentBuffer holds the startup population before it is handed to the device.
type AgentBuffer struct {
	agents []Agent
}

// NewAgentBuffer draws count agents uniformly over the texture with uniform
// headings.
func NewAgentBuffer(count, width, height uint32, signature string, rng *rand.Rand) *AgentBuffer {
	fw, fh := float32(width), float32(height)
	agents := make([]Agent, count)
	for i := range agents {
		a := &agents[i]
		a.Position[0] = below(float32(rng.Float64()*float64(width)), fw)
		a.Position[1] = below(float32(rng.Float64()*float64(height)), fh)
		a.Angle = below(float32(rng.Float64()*2*math.Pi), 2*math32.Pi)
		if signature == SignatureRGB {
			a.Signature = primaries[rng.Intn(len(primaries))]
		} else {
			a.Signature = white
		}
	}
	return &AgentBuffer{agents: agents}
}

// below keeps v inside [0, limit) when float32 rounding lands on limit.
func below(v, limit float32) float32 {
	if v >= limit {
		return math.Nextafter32(limit, 0)
	}
	return v
}

// Len returns the number of agents.
func (b *AgentBuffer) Len() int { return len(b.agents) }

// At returns a copy of agent i.
func (b *AgentBuffer) At(i int) Agent { return b.agents[i] }

// Bytes returns the std430 encoding of every agent.
func (b *AgentBuffer) Bytes() []byte {
	out := make([]byte, len(b.agents)*AgentStride)
	for i, a := range b.agents {
		putAgent(out[i*AgentStride:], a)
	}
	return out
}

// Upload hands the population to the device's agent buffer.
func (b *AgentBuffer) Upload(dev Device) error {
	if err := dev.AllocateAgents(b.Bytes()); err != nil {
		return fmt.Errorf("allocating agent buffer: %w", err)
	}
	return nil
}

func putAgent(dst []byte, a Agent) {
	binary.NativeEndian.PutUint32(dst[offAgentX:], math.Float32bits(a.Position[0]))
	binary.NativeEndian.PutUint32(dst[offAgentY:], math.Float32bits(a.Position[1]))
	binary.NativeEndian.PutUint32(dst[offAgentAngle:], math.Float32bits(a.Angle))
	binary.NativeEndian.PutUint32(dst[offAgentR:], math.Float32bits(a.Signature[0]))
	binary.NativeEndian.PutUint32(dst[offAgentG:], math.Float32bits(a.Signature[1]))
	binary.NativeEndian.PutUint32(dst[offAgentB:], math.Float32bits(a.Signature[2]))
}

func getFloat(src []byte, off int) float32 {
	return math.Float32frombits(binary.NativeEndian.Uint32(src[off:]))
}

// DecodeAgents parses a buffer produced by AgentBuffer.Bytes.
func DecodeAgents(data []byte) ([]Agent, error) {
	if len(data)%AgentStride != 0 {
		return nil, fmt.Errorf("agent data is %d bytes, not a multiple of %d", len(data), AgentStride)
	}
	agents := make([]Agent, len(data)/AgentStride)
	for i := range agents {
		rec := data[i*AgentStride : (i+1)*AgentStride]
		agents[i] = Agent{
			Position:  [2]float32{getFloat(rec, offAgentX), getFloat(rec, offAgentY)},
			Angle:     getFloat(rec, offAgentAngle),
			Signature: [3]float32{getFloat(rec, offAgentR), getFloat(rec, offAgentG), getFloat(rec, offAgentB)},
		}
	}
	return agents, nil
}
