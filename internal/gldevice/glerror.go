package gldevice

import (
	"fmt"
	"log"
	"unsafe"

	"github.com/go-gl/gl/v4.5-core/gl"
)

// Error is a GL error code reported after a call.
type Error struct {
	Code uint32
	Call string
}

func (e *Error) Error() string {
	return fmt.Sprintf("OpenGL error %s (0x%04x) after %s", errorName(e.Code), e.Code, e.Call)
}

func errorName(code uint32) string {
	switch code {
	case gl.INVALID_ENUM:
		return "INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "INVALID_OPERATION"
	case gl.STACK_OVERFLOW:
		return "STACK_OVERFLOW"
	case gl.STACK_UNDERFLOW:
		return "STACK_UNDERFLOW"
	case gl.OUT_OF_MEMORY:
		return "OUT_OF_MEMORY"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "INVALID_FRAMEBUFFER_OPERATION"
	}
	return "UNKNOWN"
}

// checker drains glGetError after each call when debugging is enabled. The
// first error sticks until take is called.
type checker struct {
	enabled bool
	err     error
}

func (c *checker) after(call string) {
	if !c.enabled {
		return
	}
	for {
		code := gl.GetError()
		if code == gl.NO_ERROR {
			return
		}
		log.Printf("[OpenGL error] (0x%04x): %s", code, call)
		if c.err == nil {
			c.err = &Error{Code: code, Call: call}
		}
	}
}

func (c *checker) take() error {
	err := c.err
	c.err = nil
	return err
}

// installDebugCallback forwards driver debug messages to the log.
func installDebugCallback() {
	gl.Enable(gl.DEBUG_OUTPUT)
	gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
	gl.DebugMessageCallback(func(source, gltype, id, severity uint32, _ int32, message string, _ unsafe.Pointer) {
		if severity == gl.DEBUG_SEVERITY_NOTIFICATION {
			return
		}
		log.Printf("[OpenGL debug] source=0x%x type=0x%x id=%d severity=0x%x: %s", source, gltype, id, severity, message)
	}, nil)
}
