package gldevice

import "github.com/go-gl/gl/v4.5-core/gl"

// Full screen quad: position xy, texcoord uv.
var (
	quadVertices = []float32{
		-1, -1, 0, 0,
		1, -1, 1, 0,
		-1, 1, 0, 1,
		1, 1, 1, 1,
	}
	quadIndices = []uint32{
		0, 1, 2,
		1, 2, 3,
	}
)

const quadStride = 4 * 4

type quad struct {
	vao, vbo, ibo uint32
}

func newQuad() *quad {
	q := &quad{}
	gl.GenVertexArrays(1, &q.vao)
	gl.BindVertexArray(q.vao)

	gl.GenBuffers(1, &q.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, q.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &q.ibo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, q.ibo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(quadIndices)*4, gl.Ptr(quadIndices), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, quadStride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, quadStride, 2*4)

	gl.BindVertexArray(0)
	return q
}

func (q *quad) draw() {
	gl.BindVertexArray(q.vao)
	gl.DrawElements(gl.TRIANGLES, int32(len(quadIndices)), gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

func (q *quad) release() {
	gl.DeleteBuffers(1, &q.ibo)
	gl.DeleteBuffers(1, &q.vbo)
	gl.DeleteVertexArrays(1, &q.vao)
}
