package mold

import (
	"fmt"
	"math/rand"
	"time"
)

// Simulation owns the host side of a running simulation: the shared state,
// the scheduler and the frame driver. Agents live on the device once created.
type Simulation struct {
	Config    Config
	State     *StateBuffer
	Scheduler *Scheduler
	Driver    *FrameDriver
}

// Options tunes NewSimulation. Zero values select the defaults.
type Options struct {
	Limits Limits
	Rand   *rand.Rand
	Now    func() time.Time
}

// NewSimulation validates cfg and performs the one-time setup: shared state,
// render target and the randomly initialized agent buffer.
func NewSimulation(cfg Config, dev Device, presenter Presenter, opts Options) (*Simulation, error) {
	limits := opts.Limits
	if limits == (Limits{}) {
		limits = DefaultLimits
	}
	if err := cfg.Validate(limits); err != nil {
		return nil, err
	}
	rng := opts.Rand
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}

	state, err := NewStateBuffer(dev, cfg.TextureWidth, cfg.TextureHeight, cfg.TileSize2D, cfg.AgentCount)
	if err != nil {
		return nil, err
	}
	if err := dev.AllocateTarget(cfg.TextureWidth, cfg.TextureHeight); err != nil {
		return nil, fmt.Errorf("allocating render target: %w", err)
	}
	if err := NewAgentBuffer(cfg.AgentCount, cfg.TextureWidth, cfg.TextureHeight, cfg.Signature, rng).Upload(dev); err != nil {
		return nil, err
	}

	sched := NewScheduler(dev, state, cfg)
	return &Simulation{
		Config:    cfg,
		State:     state,
		Scheduler: sched,
		Driver:    NewFrameDriver(sched, state, presenter, opts.Now),
	}, nil
}
