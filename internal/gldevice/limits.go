package gldevice

import (
	"github.com/go-gl/gl/v4.5-core/gl"

	"github.com/Distortions81/mold-simulation/internal/mold"
)

// QueryLimits reads the compute limits of the current context.
func QueryLimits() mold.Limits {
	var l mold.Limits
	for i := uint32(0); i < 3; i++ {
		var v int32
		gl.GetIntegeri_v(gl.MAX_COMPUTE_WORK_GROUP_COUNT, i, &v)
		l.MaxWorkGroupCount[i] = uint32(v)
		gl.GetIntegeri_v(gl.MAX_COMPUTE_WORK_GROUP_SIZE, i, &v)
		l.MaxWorkGroupSize[i] = uint32(v)
	}
	var invocs int32
	gl.GetIntegerv(gl.MAX_COMPUTE_WORK_GROUP_INVOCATIONS, &invocs)
	l.MaxWorkGroupInvocs = uint32(invocs)
	return l
}
