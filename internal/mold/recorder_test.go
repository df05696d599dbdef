package mold

import (
	"errors"
	"fmt"
)

// call is one command recorded by recordingDevice.
type call struct {
	op    string
	stage Stage
	block SharedStateBlock
	x, y  uint32
	z     uint32
}

// recordingDevice captures the command stream instead of talking to a GPU.
type recordingDevice struct {
	calls    []call
	agents   []byte
	width    uint32
	height   uint32
	failOn   string
	failAt   int
	seen     map[string]int
	clears   int
	presents int
}

var errInjected = errors.New("injected failure")

func newRecordingDevice() *recordingDevice {
	return &recordingDevice{seen: map[string]int{}}
}

func (d *recordingDevice) record(c call) error {
	d.seen[c.op]++
	if d.failOn == c.op && d.seen[c.op] == d.failAt {
		return fmt.Errorf("%s #%d: %w", c.op, d.failAt, errInjected)
	}
	d.calls = append(d.calls, c)
	return nil
}

func (d *recordingDevice) decode(block []byte) SharedStateBlock {
	var b SharedStateBlock
	if err := b.UnmarshalBinary(block); err != nil {
		panic(err)
	}
	return b
}

func (d *recordingDevice) AllocateSharedState(block []byte) error {
	return d.record(call{op: "alloc-state", block: d.decode(block)})
}

func (d *recordingDevice) UploadSharedState(block []byte) error {
	return d.record(call{op: "upload", block: d.decode(block)})
}

func (d *recordingDevice) AllocateAgents(data []byte) error {
	d.agents = append([]byte(nil), data...)
	return d.record(call{op: "alloc-agents"})
}

func (d *recordingDevice) AllocateTarget(width, height uint32) error {
	d.width, d.height = width, height
	return d.record(call{op: "alloc-target", x: width, y: height})
}

func (d *recordingDevice) UseProgram(stage Stage) error {
	return d.record(call{op: "use", stage: stage})
}

func (d *recordingDevice) BindTargetImage() error { return d.record(call{op: "bind"}) }

func (d *recordingDevice) DispatchCompute(x, y, z uint32) error {
	return d.record(call{op: "dispatch", x: x, y: y, z: z})
}

func (d *recordingDevice) ImageBarrier() error { return d.record(call{op: "barrier"}) }
func (d *recordingDevice) Finish() error       { return d.record(call{op: "finish"}) }

func (d *recordingDevice) Clear() error {
	d.clears++
	return d.record(call{op: "clear"})
}

func (d *recordingDevice) Present() error {
	d.presents++
	return d.record(call{op: "present"})
}

func (d *recordingDevice) ops() []string {
	out := make([]string, len(d.calls))
	for i, c := range d.calls {
		out[i] = c.op
	}
	return out
}

func (d *recordingDevice) filter(op string) []call {
	var out []call
	for _, c := range d.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (d *recordingDevice) reset() {
	d.calls = nil
	d.seen = map[string]int{}
}

// smallConfig keeps tests fast while satisfying every precondition.
func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.TextureWidth = 64
	cfg.TextureHeight = 48
	cfg.TileSize2D = 16
	cfg.LocalSize2D = 8
	cfg.AgentCount = 256
	cfg.TileSize1D = 64
	cfg.LocalSize1D = 32
	cfg.Seed = 1
	return cfg
}
