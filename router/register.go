package router

import (
	"context"
	"fmt"
	"sync"
)

// Factory constructs a Router from a validated Config.
type Factory func(ctx context.Context, cfg Config) (Router, error)

var (
	driverMu sync.RWMutex
	driver   Factory
)

// Register installs the Router implementation used by New. It is intended to
// be called from the init function of a Kalibr client package, so a blank
// import wires the implementation in. Register panics if called twice;
// tests and embedders that need per-instance routers should pass a Factory
// explicitly instead.
func Register(f Factory) {
	driverMu.Lock()
	defer driverMu.Unlock()
	if f == nil {
		panic("router: Register with nil Factory")
	}
	if driver != nil {
		panic(ErrDuplicateDriver)
	}
	driver = f
}

// New constructs a Router with the registered Factory. It returns
// ErrUnavailable when no implementation has been registered and validates
// cfg before handing it to the Factory.
func New(ctx context.Context, cfg Config) (Router, error) {
	driverMu.RLock()
	f := driver
	driverMu.RUnlock()
	if f == nil {
		return nil, ErrUnavailable
	}
	return Open(ctx, cfg, f)
}

// Open constructs a Router with an explicit Factory, bypassing the global
// registration. Config validation and nil-Router checks match New.
func Open(ctx context.Context, cfg Config, f Factory) (Router, error) {
	if f == nil {
		return nil, ErrUnavailable
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("router: initialize: %w", err)
	}
	if r == nil {
		return nil, ErrNilRouter
	}
	return r, nil
}
