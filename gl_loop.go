//go:build !nogl

package main

import (
	"context"
	"log"
	"runtime"

	"github.com/Distortions81/mold-simulation/internal/gldevice"
	"github.com/Distortions81/mold-simulation/internal/mold"
	"github.com/Distortions81/mold-simulation/shaders"
)

// glfw and the GL context must stay on the main thread.
func init() {
	runtime.LockOSThread()
}

// runGL drives the simulation with OpenGL compute shaders until the window
// closes or ctx is cancelled.
func runGL(ctx context.Context, cfg mold.Config) (uint64, error) {
	win, err := gldevice.OpenWindow(gldevice.WindowConfig{
		Width:  int(cfg.TextureWidth) * cfg.WindowScale,
		Height: int(cfg.TextureHeight) * cfg.WindowScale,
		Title:  cfg.Title,
		VSync:  cfg.VSync,
	})
	if err != nil {
		return 0, err
	}
	defer win.Close()

	version, renderer := gldevice.Version()
	limits := gldevice.QueryLimits()
	if err := cfg.Validate(limits); err != nil {
		return 0, err
	}

	dev, err := gldevice.New(win, gldevice.Options{
		Config:  cfg,
		Shaders: shaders.FS(cfg.ShaderDir),
		Debug:   cfg.DebugGL,
	})
	if err != nil {
		return 0, err
	}
	defer dev.Close()

	sim, err := mold.NewSimulation(cfg, dev, dev, mold.Options{Limits: limits})
	if err != nil {
		return 0, err
	}
	logSummary(cfg, "OpenGL "+version+" ("+renderer+")")

	if *debugFlag {
		stats := newFrameStats(statsLogInterval, nil)
		sim.Driver.OnFrame = func(r mold.FrameReport) {
			if line, ok := stats.observe(r); ok {
				log.Print(line)
			}
		}
	}

	err = sim.Driver.Run(ctx, win)
	return sim.Driver.Frames(), err
}
