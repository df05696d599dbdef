package main

import (
	"context"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Distortions81/mold-simulation/internal/mold"
	"github.com/Distortions81/mold-simulation/internal/softgpu"
)

// Game runs the simulation on the CPU reference device inside an ebiten
// window. One ebiten tick is one simulation frame.
type Game struct {
	ctx context.Context
	sim *mold.Simulation
	dev *softgpu.Device

	width, height int

	last         mold.FrameReport
	lastStepTime time.Duration
	stats        *frameStats
}

// newGame constructs the software device and the simulation on top of it.
func newGame(ctx context.Context, cfg mold.Config) (*Game, error) {
	dev := softgpu.New(cfg)
	sim, err := mold.NewSimulation(cfg, dev, dev, mold.Options{})
	if err != nil {
		return nil, err
	}
	return &Game{
		ctx:    ctx,
		sim:    sim,
		dev:    dev,
		width:  int(cfg.TextureWidth),
		height: int(cfg.TextureHeight),
		stats:  newFrameStats(statsLogInterval, nil),
	}, nil
}

// Update runs one frame; Space enables the post-process stage.
func (g *Game) Update() error {
	if g.ctx.Err() != nil || ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	start := time.Now()
	report, err := g.sim.Driver.Step(ebiten.IsKeyPressed(ebiten.KeySpace))
	if err != nil {
		return err
	}
	g.last = report
	g.lastStepTime = time.Since(start)
	g.logStats()
	return nil
}

func (g *Game) logStats() {
	if !*debugFlag {
		return
	}
	if line, ok := g.stats.observe(g.last); ok {
		log.Printf("%s, %d invocations total, last step %.2f ms", line, g.dev.Stats().Invocs, g.lastStepTime.Seconds()*1000)
	}
}

// runSoft drives the simulation on the CPU until the window closes or ctx is
// cancelled.
func runSoft(ctx context.Context, cfg mold.Config) (uint64, error) {
	if err := cfg.Validate(mold.DefaultLimits); err != nil {
		return 0, err
	}
	g, err := newGame(ctx, cfg)
	if err != nil {
		return 0, err
	}
	logSummary(cfg, "software reference")

	ebiten.SetWindowSize(g.width*cfg.WindowScale, g.height*cfg.WindowScale)
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetVsyncEnabled(cfg.VSync)
	err = ebiten.RunGame(g)
	return g.sim.Driver.Frames(), err
}
