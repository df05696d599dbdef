package main

import "time"

// Command defaults. Simulation parameters live in mold.Config and are loaded
// from the TOML file named by -config.
const (
	backendGL   = "gl"
	backendSoft = "soft"

	defaultBackend   = backendGL
	statsLogInterval = 5 * time.Second
)
