package mold

import "fmt"

// Binding slots shared by the host and every shader program.
const (
	BindingTargetImage = 0
	BindingSharedState = 1
	BindingAgents      = 2
	TextureUnitTarget  = 0
)

// Stage identifies one of the compute programs.
type Stage int

const (
	StageDiffuse Stage = iota
	StageAgent
	StagePostProcess
	stageCount
)

// Stages lists every compute stage in pipeline order.
var Stages = [stageCount]Stage{StageDiffuse, StageAgent, StagePostProcess}

func (s Stage) String() string {
	switch s {
	case StageDiffuse:
		return "diffuse"
	case StageAgent:
		return "agent"
	case StagePostProcess:
		return "post-process"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Device is the command stream the scheduler drives. Byte slices passed to a
// device are only valid for the duration of the call.
type Device interface {
	AllocateSharedState(block []byte) error
	UploadSharedState(block []byte) error
	AllocateAgents(data []byte) error
	AllocateTarget(width, height uint32) error

	UseProgram(stage Stage) error
	BindTargetImage() error
	DispatchCompute(x, y, z uint32) error
	ImageBarrier() error
	Finish() error
}

// Presenter clears the default framebuffer and presents the render target.
type Presenter interface {
	Clear() error
	Present() error
}

// Input is polled once per frame.
type Input interface {
	ShouldClose() bool
	PostProcessHeld() bool
}
