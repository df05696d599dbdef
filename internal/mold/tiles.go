package mold

import "iter"

// TextureTiles yields the square tiles covering a width x height texture in
// row-major order, v outer and u inner. size must divide both dimensions.
func TextureTiles(width, height, size uint32) iter.Seq[Tile2D] {
	return func(yield func(Tile2D) bool) {
		if size == 0 {
			return
		}
		for v := uint32(0); v < height; v += size {
			for u := uint32(0); u < width; u += size {
				if !yield(Tile2D{Size: size, OffsetU: u, OffsetV: v}) {
					return
				}
			}
		}
	}
}

// AgentTiles yields the contiguous index ranges covering count agents. size
// must divide count.
func AgentTiles(count, size uint32) iter.Seq[Tile1D] {
	return func(yield func(Tile1D) bool) {
		if size == 0 {
			return
		}
		for u := uint32(0); u < count; u += size {
			if !yield(Tile1D{Size: size, Offset: u}) {
				return
			}
		}
	}
}
