package mold

import (
	"context"
	"fmt"
	"time"
)

// Phase is one step of the per-frame state machine.
type Phase int

const (
	PhaseClear Phase = iota
	PhaseDiffuse
	PhaseAgent
	PhasePostProcess
	PhasePresent
)

func (p Phase) String() string {
	switch p {
	case PhaseClear:
		return "clear"
	case PhaseDiffuse:
		return "diffuse"
	case PhaseAgent:
		return "agent"
	case PhasePostProcess:
		return "post-process"
	case PhasePresent:
		return "present"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// FrameReport summarizes one iteration of the frame loop.
type FrameReport struct {
	Phases     []Phase
	Stages     int
	Dispatches int
	// DeltaTime is the value the stages of this frame read, measured at the
	// end of the previous frame.
	DeltaTime float32
	// Measured is stored for the next frame.
	Measured float32
}

// FrameDriver sequences the compute stages and presentation for each frame.
type FrameDriver struct {
	sched     *Scheduler
	state     *StateBuffer
	presenter Presenter

	// OnFrame, when set, is called by Run after every completed frame.
	OnFrame func(FrameReport)

	now    func() time.Time
	last   time.Time
	frames uint64
}

// NewFrameDriver creates a driver. now defaults to time.Now.
func NewFrameDriver(sched *Scheduler, state *StateBuffer, presenter Presenter, now func() time.Time) *FrameDriver {
	if now == nil {
		now = time.Now
	}
	return &FrameDriver{
		sched:     sched,
		state:     state,
		presenter: presenter,
		now:       now,
		last:      now(),
	}
}

// Step runs clear, diffuse, agent, optional post-process and present, then
// records the elapsed wall-clock time for the next frame's uploads.
func (d *FrameDriver) Step(postProcess bool) (FrameReport, error) {
	report := FrameReport{DeltaTime: d.state.DeltaTime()}
	startDispatches := d.sched.Dispatches()

	run := func(p Phase, fn func() error) error {
		if err := fn(); err != nil {
			return fmt.Errorf("frame %d %s: %w", d.frames, p, err)
		}
		report.Phases = append(report.Phases, p)
		switch p {
		case PhaseDiffuse, PhaseAgent, PhasePostProcess:
			report.Stages++
		}
		return nil
	}

	if err := run(PhaseClear, d.presenter.Clear); err != nil {
		return report, err
	}
	if err := run(PhaseDiffuse, func() error { return d.sched.DispatchTextureSpace(StageDiffuse) }); err != nil {
		return report, err
	}
	if err := run(PhaseAgent, func() error { return d.sched.DispatchAgentSpace(StageAgent) }); err != nil {
		return report, err
	}
	if postProcess {
		if err := run(PhasePostProcess, func() error { return d.sched.DispatchTextureSpace(StagePostProcess) }); err != nil {
			return report, err
		}
	}
	if err := run(PhasePresent, d.presenter.Present); err != nil {
		return report, err
	}
	report.Dispatches = d.sched.Dispatches() - startDispatches

	t := d.now()
	report.Measured = float32(t.Sub(d.last).Seconds())
	d.last = t
	d.state.SetDeltaTime(report.Measured)
	d.frames++
	return report, nil
}

// Run steps frames until the input asks to close or ctx is cancelled.
func (d *FrameDriver) Run(ctx context.Context, input Input) error {
	for !input.ShouldClose() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		report, err := d.Step(input.PostProcessHeld())
		if err != nil {
			return err
		}
		if d.OnFrame != nil {
			d.OnFrame(report)
		}
	}
	return nil
}

// Frames returns the number of completed frames.
func (d *FrameDriver) Frames() uint64 { return d.frames }
