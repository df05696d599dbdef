package main

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// Draw shows the last presented frame and the optional debug overlay.
func (g *Game) Draw(screen *ebiten.Image) {
	if pixels := g.dev.Pixels(); len(pixels) == g.width*g.height*4 {
		screen.WritePixels(pixels)
	}

	if *debugFlag {
		post := "off"
		if g.last.Stages == 3 {
			post = "on"
		}
		msg := fmt.Sprintf("FPS: %.1f\nFrame: %d\nDispatches: %d (post-process %s)\nDelta: %.2f ms\nStep: %.2f ms",
			ebiten.ActualFPS(), g.sim.Driver.Frames(), g.last.Dispatches, post,
			g.last.DeltaTime*1000, g.lastStepTime.Seconds()*1000)
		ebitenutil.DebugPrint(screen, msg)
	}
}

// Layout reports the render target size as the logical screen size.
func (g *Game) Layout(_, _ int) (int, int) { return g.width, g.height }
