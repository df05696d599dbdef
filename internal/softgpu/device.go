// Package softgpu runs the compute stages on the CPU. It implements the same
// device contract as the OpenGL backend and checks that every dispatch is
// fenced by a barrier and a finish before the next one starts.
package softgpu

import (
	"errors"
	"fmt"

	"github.com/Distortions81/mold-simulation/internal/mold"
)

var (
	// ErrUnfenced is returned when a dispatch starts before the previous one
	// was followed by an image barrier and a finish.
	ErrUnfenced = errors.New("dispatch issued before previous dispatch was fenced")
	// ErrNotAllocated is returned when a resource is used before allocation.
	ErrNotAllocated = errors.New("resource not allocated")
)

// ClearColor matches the GL backend's default framebuffer clear.
var ClearColor = [4]byte{255, 0, 0, 255}

// Stats counts the commands a device has executed.
type Stats struct {
	Uploads    int
	Dispatches int
	Barriers   int
	Finishes   int
	Invocs     uint64
}

// Device is a CPU implementation of mold.Device and mold.Presenter.
type Device struct {
	localSize2D uint32
	localSize1D uint32
	speed       float32

	diffuse     pixelKernel
	postProcess pixelKernel
	agent       agentKernel

	state      mold.SharedStateBlock
	stateReady bool
	agents     []mold.Agent
	target     *target
	frame      []byte

	program  mold.Stage
	bound    bool
	inFlight bool
	barrier  bool

	stats Stats
}

// New creates a device whose kernels use the configured work group sizes.
func New(cfg mold.Config) *Device {
	return &Device{
		localSize2D: cfg.LocalSize2D,
		localSize1D: cfg.LocalSize1D,
		speed:       cfg.AgentSpeed,
		diffuse:     diffusePixel,
		postProcess: postProcessPixel,
		agent:       updateAgent,
		program:     -1,
	}
}

func (d *Device) AllocateSharedState(block []byte) error {
	if err := d.state.UnmarshalBinary(block); err != nil {
		return err
	}
	d.stateReady = true
	return nil
}

func (d *Device) UploadSharedState(block []byte) error {
	if !d.stateReady {
		return fmt.Errorf("shared state: %w", ErrNotAllocated)
	}
	if err := d.state.UnmarshalBinary(block); err != nil {
		return err
	}
	d.stats.Uploads++
	return nil
}

func (d *Device) AllocateAgents(data []byte) error {
	agents, err := mold.DecodeAgents(data)
	if err != nil {
		return err
	}
	d.agents = agents
	return nil
}

func (d *Device) AllocateTarget(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("render target %dx%d has no pixels", width, height)
	}
	d.target = newTarget(int(width), int(height))
	d.frame = make([]byte, int(width)*int(height)*4)
	return nil
}

func (d *Device) UseProgram(stage mold.Stage) error {
	switch stage {
	case mold.StageDiffuse, mold.StageAgent, mold.StagePostProcess:
		d.program = stage
		return nil
	}
	return fmt.Errorf("unknown program %v", stage)
}

func (d *Device) BindTargetImage() error {
	if d.target == nil {
		return fmt.Errorf("render target: %w", ErrNotAllocated)
	}
	d.bound = true
	return nil
}

// DispatchCompute runs the current program synchronously over x*y*z work
// groups.
func (d *Device) DispatchCompute(x, y, z uint32) error {
	if d.inFlight {
		return ErrUnfenced
	}
	if !d.bound {
		return fmt.Errorf("render target image not bound: %w", ErrNotAllocated)
	}
	if !d.stateReady {
		return fmt.Errorf("shared state: %w", ErrNotAllocated)
	}
	switch d.program {
	case mold.StageDiffuse:
		d.runPixels(d.diffuse, x, y)
	case mold.StagePostProcess:
		d.runPixels(d.postProcess, x, y)
	case mold.StageAgent:
		if d.agents == nil {
			return fmt.Errorf("agent buffer: %w", ErrNotAllocated)
		}
		d.runAgents(d.agent, x*y*z)
	default:
		return errors.New("no program in use")
	}
	d.inFlight = true
	d.barrier = false
	d.stats.Dispatches++
	return nil
}

// runPixels evaluates fn over the tile starting at the current patch offset.
func (d *Device) runPixels(fn pixelKernel, groupsX, groupsY uint32) {
	w := int(groupsX * d.localSize2D)
	h := int(groupsY * d.localSize2D)
	ox, oy := int(d.state.PatchOffsetU), int(d.state.PatchOffsetV)
	scratch := d.target.ensureScratch(w * h)
	parallelRows(h, func(y int) {
		for x := 0; x < w; x++ {
			v := fn(d, ox+x, oy+y)
			i := (y*w + x) * 4
			copy(scratch[i:i+4], v[:])
		}
	})
	d.target.commit(ox, oy, w, h)
	d.stats.Invocs += uint64(w * h)
}

// runAgents updates the agents of the current tile one after another; agents
// write to shared pixels so they are not split across goroutines.
func (d *Device) runAgents(fn agentKernel, groups uint32) {
	n := int(groups * d.localSize1D)
	first := int(d.state.PatchOffsetU)
	for i := 0; i < n; i++ {
		id := first + i
		if id >= int(d.state.AgentCount) || id >= len(d.agents) {
			break
		}
		fn(d, id)
		d.stats.Invocs++
	}
}

func (d *Device) ImageBarrier() error {
	d.barrier = true
	d.stats.Barriers++
	return nil
}

func (d *Device) Finish() error {
	if d.inFlight && !d.barrier {
		return fmt.Errorf("finish without image barrier: %w", ErrUnfenced)
	}
	d.inFlight = false
	d.stats.Finishes++
	return nil
}

// Clear fills the presentation frame with ClearColor.
func (d *Device) Clear() error {
	for i := 0; i < len(d.frame); i += 4 {
		copy(d.frame[i:i+4], ClearColor[:])
	}
	return nil
}

// Present converts the render target into the RGBA8 presentation frame.
func (d *Device) Present() error {
	if d.target == nil {
		return fmt.Errorf("render target: %w", ErrNotAllocated)
	}
	for i, v := range d.target.pix {
		d.frame[i] = byte(clampCoord(int(v*255+0.5), 0, 255))
	}
	return nil
}

// Pixels returns the last presented frame as RGBA8. The slice is reused.
func (d *Device) Pixels() []byte { return d.frame }

// Stats returns the command counters.
func (d *Device) Stats() Stats { return d.stats }

// Agents returns the device copy of the agent buffer.
func (d *Device) Agents() []mold.Agent { return d.agents }

// Size returns the render target dimensions.
func (d *Device) Size() (int, int) {
	if d.target == nil {
		return 0, 0
	}
	return d.target.width, d.target.height
}
