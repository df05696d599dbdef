package softgpu

import (
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Distortions81/mold-simulation/internal/mold"
)

func smallConfig() mold.Config {
	cfg := mold.DefaultConfig()
	cfg.TextureWidth = 64
	cfg.TextureHeight = 48
	cfg.TileSize2D = 16
	cfg.LocalSize2D = 8
	cfg.AgentCount = 512
	cfg.TileSize1D = 128
	cfg.LocalSize1D = 32
	cfg.Seed = 5
	return cfg
}

func newSim(t *testing.T, cfg mold.Config) (*mold.Simulation, *Device) {
	t.Helper()
	dev := New(cfg)
	sim, err := mold.NewSimulation(cfg, dev, dev, mold.Options{Rand: rand.New(rand.NewSource(cfg.Seed))})
	require.NoError(t, err)
	return sim, dev
}

func TestSimulationRunsOnSoftwareDevice(t *testing.T) {
	cfg := smallConfig()
	sim, dev := newSim(t, cfg)

	const frames = 5
	for i := 0; i < frames; i++ {
		_, err := sim.Driver.Step(i%2 == 1)
		require.NoError(t, err)
	}

	tex, agents := cfg.TextureTileCount(), cfg.AgentTileCount()
	want := frames*(tex+agents) + 2*tex
	st := dev.Stats()
	assert.Equal(t, want, st.Dispatches)
	assert.Equal(t, want, st.Barriers)
	assert.Equal(t, want, st.Finishes)
	assert.Equal(t, want, st.Uploads)

	w, h := dev.Size()
	for i, a := range dev.Agents() {
		if a.Position[0] < 0 || a.Position[0] >= float32(w) || a.Position[1] < 0 || a.Position[1] >= float32(h) {
			t.Fatalf("agent %d left the texture: %v", i, a.Position)
		}
	}

	lit := 0
	for i := 0; i < len(dev.Pixels()); i += 4 {
		if dev.Pixels()[i] > 0 {
			lit++
		}
	}
	assert.Positive(t, lit, "agents deposit trails")
}

func TestTextureStageCoversEveryPixelOnce(t *testing.T) {
	cfg := smallConfig()
	sim, dev := newSim(t, cfg)

	var calls atomic.Int64
	dev.diffuse = func(d *Device, x, y int) [4]float32 {
		calls.Add(1)
		p := d.target.at(x, y)
		return [4]float32{p[0] + 1, float32(x), float32(y), 1}
	}
	require.NoError(t, sim.Scheduler.DispatchTextureSpace(mold.StageDiffuse))

	assert.Equal(t, int64(cfg.TextureWidth*cfg.TextureHeight), calls.Load())
	for y := 0; y < int(cfg.TextureHeight); y++ {
		for x := 0; x < int(cfg.TextureWidth); x++ {
			p := dev.target.at(x, y)
			require.Equal(t, [4]float32{1, float32(x), float32(y), 1}, p, "pixel %d,%d", x, y)
		}
	}
}

func TestAgentStageVisitsEveryAgentOnce(t *testing.T) {
	cfg := smallConfig()
	sim, dev := newSim(t, cfg)

	seen := make([]int, cfg.AgentCount)
	dev.agent = func(d *Device, id int) { seen[id]++ }
	require.NoError(t, sim.Scheduler.DispatchAgentSpace(mold.StageAgent))
	for id, n := range seen {
		require.Equal(t, 1, n, "agent %d", id)
	}
}

func TestDiffuseKeepsUniformFieldWithoutDecay(t *testing.T) {
	dev := New(smallConfig())
	require.NoError(t, dev.AllocateTarget(8, 8))
	for i := range dev.target.pix {
		dev.target.pix[i] = 0.5
	}
	dev.state.DeltaTime = 0
	assert.Equal(t, [4]float32{0.5, 0.5, 0.5, 1}, diffusePixel(dev, 0, 0))

	dev.state.DeltaTime = 1
	p := diffusePixel(dev, 3, 3)
	assert.InDelta(t, 0.15, p[0], 1e-6)

	dev.state.DeltaTime = 10
	assert.Equal(t, [4]float32{0, 0, 0, 1}, diffusePixel(dev, 3, 3))
}

func TestPostProcessToneMaps(t *testing.T) {
	dev := New(smallConfig())
	require.NoError(t, dev.AllocateTarget(2, 2))
	dev.target.set(1, 1, [4]float32{1, 3, 0, 1})
	assert.Equal(t, [4]float32{0.5, 0.75, 0, 1}, postProcessPixel(dev, 1, 1))
}

func TestUnfencedDispatchIsRejected(t *testing.T) {
	cfg := smallConfig()
	_, dev := newSim(t, cfg)
	require.NoError(t, dev.UseProgram(mold.StagePostProcess))
	require.NoError(t, dev.BindTargetImage())
	require.NoError(t, dev.DispatchCompute(1, 1, 1))
	assert.ErrorIs(t, dev.DispatchCompute(1, 1, 1), ErrUnfenced)
	assert.ErrorIs(t, dev.Finish(), ErrUnfenced)
	require.NoError(t, dev.ImageBarrier())
	require.NoError(t, dev.Finish())
	assert.NoError(t, dev.DispatchCompute(1, 1, 1))
}

func TestUseBeforeAllocate(t *testing.T) {
	dev := New(smallConfig())
	assert.ErrorIs(t, dev.BindTargetImage(), ErrNotAllocated)
	assert.ErrorIs(t, dev.UploadSharedState(make([]byte, mold.SharedStateSize)), ErrNotAllocated)
	assert.ErrorIs(t, dev.Present(), ErrNotAllocated)
	assert.Error(t, dev.UseProgram(mold.Stage(7)))
	assert.Error(t, dev.AllocateTarget(0, 4))
}

func TestClearAndPresent(t *testing.T) {
	dev := New(smallConfig())
	require.NoError(t, dev.AllocateTarget(2, 1))
	require.NoError(t, dev.Clear())
	assert.Equal(t, []byte{255, 0, 0, 255, 255, 0, 0, 255}, dev.Pixels())

	dev.target.set(0, 0, [4]float32{1, 0.5, -1, 2})
	require.NoError(t, dev.Present())
	assert.Equal(t, []byte{255, 128, 0, 255, 0, 0, 0, 0}, dev.Pixels())
}

func TestParallelRowsVisitsEachRowOnce(t *testing.T) {
	for _, rows := range []int{0, 1, 7, 300} {
		hits := make([]atomic.Int32, rows)
		parallelRows(rows, func(y int) { hits[y].Add(1) })
		for y := range hits {
			require.Equal(t, int32(1), hits[y].Load(), "rows=%d y=%d", rows, y)
		}
	}
}

func TestFloorModAndWrap(t *testing.T) {
	assert.Equal(t, float32(63), floorMod(-1, 64))
	assert.Equal(t, float32(1), floorMod(65, 64))
	assert.Equal(t, float32(0), floorMod(64, 64))
	assert.Equal(t, 47, wrap(-1, 48))
	assert.Equal(t, 0, wrap(48, 48))
	assert.Equal(t, 0, clampCoord(-3, 0, 10))
	assert.Equal(t, 10, clampCoord(30, 0, 10))
}

func TestAgentDepositsSignatureAtItsPixel(t *testing.T) {
	dev := New(smallConfig())
	require.NoError(t, dev.AllocateTarget(16, 8))
	dev.agents = []mold.Agent{{Position: [2]float32{5.7, 3.2}, Signature: [3]float32{0, 1, 0}}}
	dev.state.DeltaTime = 0

	updateAgent(dev, 0)

	assert.Equal(t, [2]float32{5.7, 3.2}, dev.agents[0].Position, "no movement without elapsed time")
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			want := [4]float32{}
			if x == 5 && y == 3 {
				want = [4]float32{0, 1, 0, 1}
			}
			require.Equal(t, want, dev.target.at(x, y), "pixel %d,%d", x, y)
		}
	}
}
