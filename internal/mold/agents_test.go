package mold

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentBufferRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	buf := NewAgentBuffer(20000, 1200, 900, SignatureWhite, rng)
	require.Equal(t, 20000, buf.Len())
	for i := 0; i < buf.Len(); i++ {
		a := buf.At(i)
		if a.Position[0] < 0 || a.Position[0] >= 1200 || a.Position[1] < 0 || a.Position[1] >= 900 {
			t.Fatalf("agent %d out of bounds: %v", i, a.Position)
		}
		if a.Angle < 0 || a.Angle >= 2*math.Pi {
			t.Fatalf("agent %d angle out of range: %v", i, a.Angle)
		}
		assert.Equal(t, [3]float32{1, 1, 1}, a.Signature)
	}
}

func TestAgentBufferRGBSignatures(t *testing.T) {
	buf := NewAgentBuffer(3000, 64, 64, SignatureRGB, rand.New(rand.NewSource(7)))
	counts := map[[3]float32]int{}
	for i := 0; i < buf.Len(); i++ {
		counts[buf.At(i).Signature]++
	}
	require.Len(t, counts, 3)
	for sig, n := range counts {
		assert.Contains(t, primaries, sig)
		assert.Greater(t, n, 800)
	}
}

func TestBelowClampsToOpenInterval(t *testing.T) {
	assert.Less(t, below(1200, 1200), float32(1200))
	assert.Equal(t, float32(3), below(3, 1200))
}

func TestAgentEncoding(t *testing.T) {
	buf := NewAgentBuffer(5, 32, 16, SignatureRGB, rand.New(rand.NewSource(3)))
	data := buf.Bytes()
	require.Len(t, data, 5*AgentStride)

	agents, err := DecodeAgents(data)
	require.NoError(t, err)
	for i, a := range agents {
		assert.Equal(t, buf.At(i), a)
	}
	// Padding words stay zero.
	for i := 0; i < 5; i++ {
		rec := data[i*AgentStride:]
		assert.Equal(t, []byte{0, 0, 0, 0}, rec[12:16])
		assert.Equal(t, []byte{0, 0, 0, 0}, rec[28:32])
	}

	_, err = DecodeAgents(data[:40])
	assert.Error(t, err)
}

func TestAgentUpload(t *testing.T) {
	dev := newRecordingDevice()
	buf := NewAgentBuffer(4, 8, 8, SignatureWhite, rand.New(rand.NewSource(1)))
	require.NoError(t, buf.Upload(dev))
	assert.Equal(t, buf.Bytes(), dev.agents)

	dev.failOn, dev.failAt = "alloc-agents", 2
	assert.ErrorIs(t, buf.Upload(dev), errInjected)
}
