package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"
)

// profiler owns the profiles requested with -cpuprofile and -memprofile.
type profiler struct {
	cpu      *os.File
	heapPath string
	once     sync.Once
}

// startProfiling starts the CPU profile when cpuPath is set. The heap profile
// is written by Stop.
func startProfiling(cpuPath, heapPath string) (*profiler, error) {
	p := &profiler{heapPath: heapPath}
	if cpuPath == "" {
		return p, nil
	}
	f, err := os.Create(cpuPath)
	if err != nil {
		return nil, fmt.Errorf("creating cpu profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("starting cpu profile: %w", err)
	}
	p.cpu = f
	return p, nil
}

// Stop flushes every profile. It is safe to call more than once.
func (p *profiler) Stop() {
	p.once.Do(func() {
		if p.cpu != nil {
			pprof.StopCPUProfile()
			_ = p.cpu.Close()
		}
		if p.heapPath == "" {
			return
		}
		f, err := os.Create(p.heapPath)
		if err != nil {
			log.Printf("heap profile: %v", err)
			return
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Printf("heap profile: %v", err)
		}
	})
}
