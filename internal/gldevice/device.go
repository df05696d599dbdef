// Package gldevice runs the compute stages with OpenGL 4.5 compute shaders
// and presents the render target through a fullscreen quad in a glfw window.
package gldevice

import (
	"errors"
	"fmt"
	"io/fs"
	"unsafe"

	"github.com/go-gl/gl/v4.5-core/gl"

	"github.com/Distortions81/mold-simulation/internal/mold"
)

// ClearColor is the default framebuffer clear color.
var ClearColor = [4]float32{1, 0, 0, 1}

// Options configure a Device.
type Options struct {
	Config mold.Config
	// Shaders holds the program sources, usually shaders.FS(cfg.ShaderDir).
	Shaders fs.FS
	// Debug drains glGetError after every call and logs driver debug output.
	Debug bool
}

// Device implements mold.Device and mold.Presenter on the current GL context.
type Device struct {
	win   *Window
	progs *programs
	quad  *quad
	check checker

	ubo, ssbo, texture uint32
	width, height      int32
}

// New builds the programs and the presentation quad. The window's context
// must be current on the calling thread.
func New(win *Window, opts Options) (*Device, error) {
	if opts.Debug {
		installDebugCallback()
	}
	progs, err := buildPrograms(opts.Shaders, opts.Config)
	if err != nil {
		return nil, err
	}
	d := &Device{win: win, progs: progs, check: checker{enabled: opts.Debug}}

	gl.UseProgram(progs.render)
	d.check.after("glUseProgram")
	gl.Uniform1i(progs.sampler, mold.TextureUnitTarget)
	d.check.after("glUniform1i")
	d.quad = newQuad()
	d.check.after("quad setup")
	gl.ClearColor(ClearColor[0], ClearColor[1], ClearColor[2], ClearColor[3])
	d.check.after("glClearColor")
	if err := d.check.take(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Device) AllocateSharedState(block []byte) error {
	gl.GenBuffers(1, &d.ubo)
	d.check.after("glGenBuffers")
	gl.BindBuffer(gl.UNIFORM_BUFFER, d.ubo)
	d.check.after("glBindBuffer")
	gl.BufferData(gl.UNIFORM_BUFFER, len(block), bytesPtr(block), gl.DYNAMIC_DRAW)
	d.check.after("glBufferData")
	gl.BindBufferBase(gl.UNIFORM_BUFFER, mold.BindingSharedState, d.ubo)
	d.check.after("glBindBufferBase")
	return d.check.take()
}

func (d *Device) UploadSharedState(block []byte) error {
	if d.ubo == 0 {
		return errors.New("shared state buffer not allocated")
	}
	gl.BindBuffer(gl.UNIFORM_BUFFER, d.ubo)
	d.check.after("glBindBuffer")
	gl.BufferData(gl.UNIFORM_BUFFER, len(block), bytesPtr(block), gl.DYNAMIC_DRAW)
	d.check.after("glBufferData")
	return d.check.take()
}

func (d *Device) AllocateAgents(data []byte) error {
	gl.GenBuffers(1, &d.ssbo)
	d.check.after("glGenBuffers")
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, d.ssbo)
	d.check.after("glBindBuffer")
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, len(data), bytesPtr(data), gl.DYNAMIC_DRAW)
	d.check.after("glBufferData")
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, mold.BindingAgents, d.ssbo)
	d.check.after("glBindBufferBase")
	return d.check.take()
}

func (d *Device) AllocateTarget(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("render target %dx%d has no pixels", width, height)
	}
	d.width, d.height = int32(width), int32(height)
	gl.GenTextures(1, &d.texture)
	d.check.after("glGenTextures")
	gl.ActiveTexture(gl.TEXTURE0 + mold.TextureUnitTarget)
	d.check.after("glActiveTexture")
	gl.BindTexture(gl.TEXTURE_2D, d.texture)
	d.check.after("glBindTexture")
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	d.check.after("glTexParameteri")
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, d.width, d.height, 0, gl.RGBA, gl.FLOAT, nil)
	d.check.after("glTexImage2D")
	return d.check.take()
}

func (d *Device) UseProgram(stage mold.Stage) error {
	if stage < 0 || int(stage) >= len(d.progs.compute) {
		return fmt.Errorf("unknown program %v", stage)
	}
	gl.UseProgram(d.progs.compute[stage])
	d.check.after("glUseProgram")
	return d.check.take()
}

func (d *Device) BindTargetImage() error {
	if d.texture == 0 {
		return errors.New("render target not allocated")
	}
	gl.BindImageTexture(mold.BindingTargetImage, d.texture, 0, false, 0, gl.READ_WRITE, gl.RGBA32F)
	d.check.after("glBindImageTexture")
	return d.check.take()
}

func (d *Device) DispatchCompute(x, y, z uint32) error {
	gl.DispatchCompute(x, y, z)
	d.check.after("glDispatchCompute")
	return d.check.take()
}

func (d *Device) ImageBarrier() error {
	gl.MemoryBarrier(gl.SHADER_IMAGE_ACCESS_BARRIER_BIT)
	d.check.after("glMemoryBarrier")
	return d.check.take()
}

func (d *Device) Finish() error {
	gl.Finish()
	d.check.after("glFinish")
	return d.check.take()
}

// Clear clears the default framebuffer to ClearColor.
func (d *Device) Clear() error {
	w, h := d.win.FramebufferSize()
	gl.Viewport(0, 0, int32(w), int32(h))
	d.check.after("glViewport")
	gl.Clear(gl.COLOR_BUFFER_BIT)
	d.check.after("glClear")
	return d.check.take()
}

// Present samples the render target onto the quad, swaps buffers and polls
// window events.
func (d *Device) Present() error {
	gl.UseProgram(d.progs.render)
	d.check.after("glUseProgram")
	gl.ActiveTexture(gl.TEXTURE0 + mold.TextureUnitTarget)
	d.check.after("glActiveTexture")
	gl.BindTexture(gl.TEXTURE_2D, d.texture)
	d.check.after("glBindTexture")
	d.quad.draw()
	d.check.after("glDrawElements")
	if err := d.check.take(); err != nil {
		return err
	}
	d.win.swap()
	return nil
}

// Close releases GL objects in reverse order of allocation.
func (d *Device) Close() {
	if d.texture != 0 {
		gl.DeleteTextures(1, &d.texture)
		d.texture = 0
	}
	if d.ssbo != 0 {
		gl.DeleteBuffers(1, &d.ssbo)
		d.ssbo = 0
	}
	if d.ubo != 0 {
		gl.DeleteBuffers(1, &d.ubo)
		d.ubo = 0
	}
	if d.quad != nil {
		d.quad.release()
		d.quad = nil
	}
	d.progs.release()
}

func bytesPtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return gl.Ptr(b)
}
