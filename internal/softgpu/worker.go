package softgpu

import (
	"runtime"
	"sync"
)

// parallelRows calls fn for every row in [0, rows), splitting the rows into
// contiguous bands, one goroutine per CPU. It returns once every band is done.
func parallelRows(rows int, fn func(y int)) {
	if rows <= 0 {
		return
	}
	workers := min(runtime.NumCPU(), rows)
	if workers <= 1 {
		for y := 0; y < rows; y++ {
			fn(y)
		}
		return
	}
	rowsPer := (rows + workers - 1) / workers
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		y0 := i * rowsPer
		if y0 >= rows {
			break
		}
		y1 := min(y0+rowsPer, rows)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				fn(y)
			}
		}(y0, y1)
	}
	wg.Wait()
}
