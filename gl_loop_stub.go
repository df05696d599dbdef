//go:build nogl

package main

import (
	"context"
	"errors"

	"github.com/Distortions81/mold-simulation/internal/mold"
)

func runGL(context.Context, mold.Config) (uint64, error) {
	return 0, errors.New("OpenGL support is not enabled; rebuild without -tags nogl or use -backend=soft")
}
