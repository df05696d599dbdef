package mold

import "fmt"

// Scheduler splits the texture-space and agent-space workloads into tiles and
// runs them one at a time. Every tile is followed by an image barrier and a
// full finish so that no stage ever observes a partially written image.
type Scheduler struct {
	dev   Device
	state *StateBuffer
	cfg   Config

	dispatches int
}

// NewScheduler binds a scheduler to a device and its shared state buffer.
func NewScheduler(dev Device, state *StateBuffer, cfg Config) *Scheduler {
	return &Scheduler{dev: dev, state: state, cfg: cfg}
}

// DispatchTextureSpace runs stage over every texture tile.
func (s *Scheduler) DispatchTextureSpace(stage Stage) error {
	if err := s.dev.UseProgram(stage); err != nil {
		return fmt.Errorf("using %s program: %w", stage, err)
	}
	groups := s.cfg.TileSize2D / s.cfg.LocalSize2D
	for tile := range TextureTiles(s.cfg.TextureWidth, s.cfg.TextureHeight, s.cfg.TileSize2D) {
		s.state.SetTile2D(tile.OffsetU, tile.OffsetV, tile.Size)
		if err := s.runTile(groups, groups); err != nil {
			return fmt.Errorf("%s tile (%d,%d): %w", stage, tile.OffsetU, tile.OffsetV, err)
		}
	}
	return nil
}

// DispatchAgentSpace runs stage over every agent tile.
func (s *Scheduler) DispatchAgentSpace(stage Stage) error {
	if err := s.dev.UseProgram(stage); err != nil {
		return fmt.Errorf("using %s program: %w", stage, err)
	}
	groups := s.cfg.TileSize1D / s.cfg.LocalSize1D
	for tile := range AgentTiles(s.cfg.AgentCount, s.cfg.TileSize1D) {
		s.state.SetTile1D(tile.Offset, tile.Size)
		if err := s.runTile(groups, 1); err != nil {
			return fmt.Errorf("%s tile at agent %d: %w", stage, tile.Offset, err)
		}
	}
	return nil
}

func (s *Scheduler) runTile(x, y uint32) error {
	if err := s.state.Upload(); err != nil {
		return err
	}
	if err := s.dev.BindTargetImage(); err != nil {
		return fmt.Errorf("binding target image: %w", err)
	}
	if err := s.dev.DispatchCompute(x, y, 1); err != nil {
		return fmt.Errorf("dispatching %dx%d work groups: %w", x, y, err)
	}
	if err := s.dev.ImageBarrier(); err != nil {
		return fmt.Errorf("image barrier: %w", err)
	}
	if err := s.dev.Finish(); err != nil {
		return fmt.Errorf("waiting for device: %w", err)
	}
	s.dispatches++
	return nil
}

// Dispatches counts completed tile dispatches since creation.
func (s *Scheduler) Dispatches() int { return s.dispatches }
