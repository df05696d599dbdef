package softgpu

// target stores the RGBA32F render target. Texture-space stages write into
// scratch and commit once every worker has finished, so reads during a
// dispatch always see the image as it was when the dispatch started.
type target struct {
	width, height int
	pix           []float32
	scratch       []float32
}

func newTarget(width, height int) *target {
	return &target{
		width:  width,
		height: height,
		pix:    make([]float32, width*height*4),
	}
}

// at returns the pixel at (x, y), wrapping coordinates like a repeat sampler.
func (t *target) at(x, y int) [4]float32 {
	x = wrap(x, t.width)
	y = wrap(y, t.height)
	i := (y*t.width + x) * 4
	return [4]float32{t.pix[i], t.pix[i+1], t.pix[i+2], t.pix[i+3]}
}

func (t *target) set(x, y int, v [4]float32) {
	i := (y*t.width + x) * 4
	copy(t.pix[i:i+4], v[:])
}

// ensureScratch returns a scratch region for n pixels.
func (t *target) ensureScratch(n int) []float32 {
	if cap(t.scratch) < n*4 {
		t.scratch = make([]float32, n*4)
	}
	t.scratch = t.scratch[:n*4]
	return t.scratch
}

// commit copies a w x h scratch region back into the image at (ox, oy),
// skipping anything outside the image.
func (t *target) commit(ox, oy, w, h int) {
	for y := 0; y < h; y++ {
		py := oy + y
		if py >= t.height {
			break
		}
		cols := min(w, t.width-ox)
		if cols <= 0 {
			return
		}
		src := t.scratch[y*w*4 : (y*w+cols)*4]
		dst := (py*t.width + ox) * 4
		copy(t.pix[dst:dst+cols*4], src)
	}
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// clampCoord constrains v to lie within the inclusive [min, max] range.
func clampCoord(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
