package softgpu

import (
	"math"

	"github.com/chewxy/math32"

	"github.com/Distortions81/mold-simulation/internal/mold"
)

// Kernel constants, kept equal to the ones in the default GLSL sources.
const (
	diffuseDecay   = 0.35
	sensorAngle    = 0.6
	sensorDistance = 9.0
	turnSpeed      = 6.0
)

// pixelKernel computes the new value of the pixel at (x, y).
type pixelKernel func(d *Device, x, y int) [4]float32

// agentKernel updates agent id in place.
type agentKernel func(d *Device, id int)

func diffusePixel(d *Device, x, y int) [4]float32 {
	var sum [4]float32
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			p := d.target.at(x+dx, y+dy)
			for c := range sum {
				sum[c] += p[c]
			}
		}
	}
	decay := diffuseDecay * d.state.DeltaTime
	var out [4]float32
	for c := 0; c < 3; c++ {
		out[c] = max(sum[c]/9-decay, 0)
	}
	out[3] = 1
	return out
}

func postProcessPixel(d *Device, x, y int) [4]float32 {
	p := d.target.at(x, y)
	return [4]float32{p[0] / (1 + p[0]), p[1] / (1 + p[1]), p[2] / (1 + p[2]), 1}
}

func sense(d *Device, a *mold.Agent, offset float32) float32 {
	angle := a.Angle + offset
	px := a.Position[0] + sensorDistance*math32.Cos(angle)
	py := a.Position[1] + sensorDistance*math32.Sin(angle)
	p := d.target.at(int(math32.Floor(px)), int(math32.Floor(py)))
	return p[0]*a.Signature[0] + p[1]*a.Signature[1] + p[2]*a.Signature[2]
}

func hash(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

func updateAgent(d *Device, id int) {
	a := &d.agents[id]
	w, h := float32(d.target.width), float32(d.target.height)
	dt := d.state.DeltaTime

	left := sense(d, a, sensorAngle)
	center := sense(d, a, 0)
	right := sense(d, a, -sensorAngle)
	jitter := float32(hash(uint32(id)^math.Float32bits(a.Position[0]))) / 4294967295.0

	turn := turnSpeed * dt
	switch {
	case center < left && center < right:
		a.Angle += (jitter - 0.5) * 2 * turn
	case left > right:
		a.Angle += jitter * turn
	case right > left:
		a.Angle -= jitter * turn
	}

	step := d.speed * dt * 60
	a.Position[0] = floorMod(a.Position[0]+step*math32.Cos(a.Angle), w)
	a.Position[1] = floorMod(a.Position[1]+step*math32.Sin(a.Angle), h)

	// floorMod keeps the position inside the target, so the pixel is too.
	d.target.set(int(a.Position[0]), int(a.Position[1]),
		[4]float32{a.Signature[0], a.Signature[1], a.Signature[2], 1})
}

// floorMod matches GLSL mod: the result has the sign of m.
func floorMod(v, m float32) float32 {
	r := v - m*math32.Floor(v/m)
	if r >= m {
		r = 0
	}
	return r
}
