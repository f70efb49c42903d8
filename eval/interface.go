package eval

import (
	"context"
	"io"
)

// FinderHandle is the subset of a running finder process the coordinator
// and finder reader need: a readable stderr stream and non-blocking exit
// polling. *Finder satisfies this interface; tests substitute a fake.
type FinderHandle interface {
	Stderr() io.Reader
	Exited() bool
	Wait() (int, error)
	Kill() error
}

// Driver is the evaluator entry point the traversal coordinator depends
// on. RealDriver is the production implementation (os/exec child
// processes); graph package tests substitute an in-process fake so the
// coordinator's concurrency properties can be exercised without a real
// Nix evaluator.
type Driver interface {
	StartFinder(ctx context.Context) (FinderHandle, error)
	Describe(ctx context.Context, attributePath string) (*DescribeResult, error)
}

// RealDriver is the production Driver backed by the evaluator binary.
type RealDriver struct {
	Config Config
}

// NewRealDriver builds a Driver bound to the given evaluator config.
func NewRealDriver(cfg Config) RealDriver {
	return RealDriver{Config: cfg}
}

// StartFinder launches a real finder child process.
func (d RealDriver) StartFinder(ctx context.Context) (FinderHandle, error) {
	return StartFinder(ctx, d.Config)
}

// Describe synchronously runs a real describer child process.
func (d RealDriver) Describe(ctx context.Context, attributePath string) (*DescribeResult, error) {
	return Describe(ctx, d.Config, attributePath)
}
