package mold

import (
	"fmt"
	"strings"
)

// Summary describes the dispatch plan for operators.
type Summary struct {
	Width, Height       uint32
	LocalSize2D         uint32
	TileSize2D          uint32
	TextureTiles        int
	GroupsPerTextureDim uint32
	AgentCount          uint32
	LocalSize1D         uint32
	TileSize1D          uint32
	AgentTiles          int
	GroupsPerAgentTile  uint32
}

// Summarize computes the plan for a validated configuration.
func Summarize(cfg Config) Summary {
	return Summary{
		Width:               cfg.TextureWidth,
		Height:              cfg.TextureHeight,
		LocalSize2D:         cfg.LocalSize2D,
		TileSize2D:          cfg.TileSize2D,
		TextureTiles:        cfg.TextureTileCount(),
		GroupsPerTextureDim: cfg.TileSize2D / cfg.LocalSize2D,
		AgentCount:          cfg.AgentCount,
		LocalSize1D:         cfg.LocalSize1D,
		TileSize1D:          cfg.TileSize1D,
		AgentTiles:          cfg.AgentTileCount(),
		GroupsPerAgentTile:  cfg.TileSize1D / cfg.LocalSize1D,
	}
}

// DispatchesPerFrame returns the dispatch count with and without post-process.
func (s Summary) DispatchesPerFrame(postProcess bool) int {
	n := s.TextureTiles + s.AgentTiles
	if postProcess {
		n += s.TextureTiles
	}
	return n
}

// Lines renders the summary as aligned label/value rows.
func (s Summary) Lines() []string {
	rows := [][2]string{
		{"Texture size", fmt.Sprintf("%d x %d", s.Width, s.Height)},
		{"Local invocations (texture space)", fmt.Sprintf("%d x %d", s.LocalSize2D, s.LocalSize2D)},
		{"Patch size (texture space)", fmt.Sprint(s.TileSize2D)},
		{"Work groups per patch (texture)", fmt.Sprintf("%d x %d", s.GroupsPerTextureDim, s.GroupsPerTextureDim)},
		{"Dispatch calls (texture space)", fmt.Sprint(s.TextureTiles)},
		{"Agent count", fmt.Sprint(s.AgentCount)},
		{"Local invocations (agent space)", fmt.Sprint(s.LocalSize1D)},
		{"Patch size (agent space)", fmt.Sprint(s.TileSize1D)},
		{"Work groups per patch (agent)", fmt.Sprint(s.GroupsPerAgentTile)},
		{"Dispatch calls (agent space)", fmt.Sprint(s.AgentTiles)},
		{"Dispatch calls per frame", fmt.Sprintf("%d (%d with post-process)", s.DispatchesPerFrame(false), s.DispatchesPerFrame(true))},
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = r[0] + ":" + strings.Repeat(" ", width-len(r[0])+1) + r[1]
	}
	return lines
}
