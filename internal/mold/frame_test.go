package mold

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by a fixed step each time it is read.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newTestSimulation(t *testing.T, clock *fakeClock) (*Simulation, *recordingDevice) {
	t.Helper()
	dev := newRecordingDevice()
	opts := Options{Rand: rand.New(rand.NewSource(1))}
	if clock != nil {
		opts.Now = clock.now
	}
	sim, err := NewSimulation(smallConfig(), dev, dev, opts)
	require.NoError(t, err)
	dev.reset()
	return sim, dev
}

func TestFrameWithoutPostProcess(t *testing.T) {
	sim, dev := newTestSimulation(t, nil)
	report, err := sim.Driver.Step(false)
	require.NoError(t, err)

	assert.Equal(t, []Phase{PhaseClear, PhaseDiffuse, PhaseAgent, PhasePresent}, report.Phases)
	assert.Equal(t, 2, report.Stages)
	assert.Equal(t, sim.Config.TextureTileCount()+sim.Config.AgentTileCount(), report.Dispatches)

	var stages []Stage
	for _, c := range dev.filter("use") {
		stages = append(stages, c.stage)
	}
	assert.Equal(t, []Stage{StageDiffuse, StageAgent}, stages)
	assert.Equal(t, "clear", dev.ops()[0])
	assert.Equal(t, "present", dev.ops()[len(dev.ops())-1])
}

func TestFrameWithPostProcess(t *testing.T) {
	sim, dev := newTestSimulation(t, nil)
	report, err := sim.Driver.Step(true)
	require.NoError(t, err)

	assert.Equal(t, []Phase{PhaseClear, PhaseDiffuse, PhaseAgent, PhasePostProcess, PhasePresent}, report.Phases)
	assert.Equal(t, 3, report.Stages)
	assert.Equal(t, 2*sim.Config.TextureTileCount()+sim.Config.AgentTileCount(), report.Dispatches)

	var stages []Stage
	for _, c := range dev.filter("use") {
		stages = append(stages, c.stage)
	}
	assert.Equal(t, []Stage{StageDiffuse, StageAgent, StagePostProcess}, stages)
}

func TestDeltaTimeLagsOneFrame(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: 50 * time.Millisecond}
	sim, dev := newTestSimulation(t, clock)

	first, err := sim.Driver.Step(false)
	require.NoError(t, err)
	assert.Equal(t, float32(1.0/60.0), first.DeltaTime)
	assert.InDelta(t, 0.05, first.Measured, 1e-6)
	for _, u := range dev.filter("upload") {
		assert.Equal(t, float32(1.0/60.0), u.block.DeltaTime, "stages read last frame's delta")
	}

	clock.step = 200 * time.Millisecond
	dev.reset()
	second, err := sim.Driver.Step(false)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, second.DeltaTime, 1e-6)
	assert.InDelta(t, 0.2, second.Measured, 1e-6)
	for _, u := range dev.filter("upload") {
		assert.InDelta(t, 0.05, u.block.DeltaTime, 1e-6)
	}
	assert.Equal(t, uint64(2), sim.Driver.Frames())
}

func TestFrameErrorNamesPhase(t *testing.T) {
	sim, dev := newTestSimulation(t, nil)
	dev.failOn, dev.failAt = "present", 1
	report, err := sim.Driver.Step(false)
	require.ErrorIs(t, err, errInjected)
	assert.Contains(t, err.Error(), "frame 0 present")
	assert.Equal(t, []Phase{PhaseClear, PhaseDiffuse, PhaseAgent}, report.Phases)
	assert.Zero(t, sim.Driver.Frames())
}

// scriptedInput closes after a fixed number of polls and holds the
// post-process key on odd frames.
type scriptedInput struct {
	frames int
	polls  int
}

func (in *scriptedInput) ShouldClose() bool {
	in.polls++
	return in.polls > in.frames
}

func (in *scriptedInput) PostProcessHeld() bool { return in.polls%2 == 0 }

func TestRunUntilClose(t *testing.T) {
	sim, dev := newTestSimulation(t, nil)
	in := &scriptedInput{frames: 4}
	require.NoError(t, sim.Driver.Run(context.Background(), in))
	assert.Equal(t, uint64(4), sim.Driver.Frames())
	assert.Equal(t, 4, dev.presents)
	var post int
	for _, c := range dev.filter("use") {
		if c.stage == StagePostProcess {
			post++
		}
	}
	assert.Equal(t, 2, post)
}

func TestRunReportsEveryFrame(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: 25 * time.Millisecond}
	sim, _ := newTestSimulation(t, clock)

	var reports []FrameReport
	sim.Driver.OnFrame = func(r FrameReport) { reports = append(reports, r) }
	require.NoError(t, sim.Driver.Run(context.Background(), &scriptedInput{frames: 3}))

	require.Len(t, reports, 3)
	assert.Equal(t, float32(1.0/60.0), reports[0].DeltaTime)
	for i, r := range reports {
		assert.InDelta(t, 0.025, r.Measured, 1e-6, "frame %d", i)
		assert.Equal(t, PhasePresent, r.Phases[len(r.Phases)-1])
	}
	assert.InDelta(t, 0.025, reports[2].DeltaTime, 1e-6)
	assert.Equal(t, 3, reports[1].Stages, "post-process held on the second poll")
}

func TestRunStopsOnCancel(t *testing.T) {
	sim, _ := newTestSimulation(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, sim.Driver.Run(ctx, &scriptedInput{frames: 10}))
	assert.Zero(t, sim.Driver.Frames())
}

func TestNewSimulationRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TileSize2D = 256
	cfg.LocalSize2D = 32
	dev := newRecordingDevice()
	_, err := NewSimulation(cfg, dev, dev, Options{})
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Empty(t, dev.calls, "nothing is allocated for an invalid configuration")
}

func TestNewSimulationSetup(t *testing.T) {
	dev := newRecordingDevice()
	cfg := smallConfig()
	_, err := NewSimulation(cfg, dev, dev, Options{Rand: rand.New(rand.NewSource(9))})
	require.NoError(t, err)
	assert.Equal(t, []string{"alloc-state", "alloc-target", "alloc-agents"}, dev.ops())
	assert.Equal(t, cfg.TextureWidth, dev.width)
	assert.Equal(t, cfg.TextureHeight, dev.height)
	assert.Len(t, dev.agents, int(cfg.AgentCount)*AgentStride)
}
