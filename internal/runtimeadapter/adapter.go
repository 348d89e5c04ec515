// Package runtimeadapter defines the narrow capability surface every other
// component depends on instead of a container runtime SDK directly
// (spec.md §4.A). internal/runtimeadapter/dockeradapter provides the only
// implementation today.
package runtimeadapter

import (
	"context"
	"errors"
	"time"

	"github.com/arcane-autoheal/autoheal/internal/model"
)

var (
	// ErrRuntimeUnavailable is returned on connectivity loss to the runtime.
	ErrRuntimeUnavailable = errors.New("runtimeadapter: runtime unavailable")
	// ErrNotFound is returned when a container id/name no longer exists.
	ErrNotFound = errors.New("runtimeadapter: container not found")
)

// RestartResult reports the outcome of a restart call without forcing the
// caller to distinguish "adapter returned an error" from "timed out" —
// both are a failed attempt per spec.md §4.F.
type RestartResult struct {
	Ok     bool
	Reason string
}

// Adapter isolates every runtime SDK call behind this interface; every
// other core component is runtime-agnostic.
type Adapter interface {
	ListContainers(ctx context.Context, all bool) ([]model.Observation, error)
	Inspect(ctx context.Context, idOrName string) (model.Observation, error)
	Restart(ctx context.Context, idOrName string, timeout time.Duration) RestartResult

	// StreamStartEvents delivers container-start events on the returned
	// channel until ctx is canceled. The implementation owns reconnection;
	// callers must drain the channel promptly but must never block the
	// scheduler waiting on it (spec.md §5).
	StreamStartEvents(ctx context.Context) <-chan model.StartEvent

	ProbeHTTP(ctx context.Context, endpoint string, expectedStatus int, timeout time.Duration) error
	ProbeTCP(ctx context.Context, host string, port int, timeout time.Duration) error
	ProbeExec(ctx context.Context, containerID string, argv []string, timeout time.Duration) error
}
