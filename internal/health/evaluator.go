// Package health implements the Health Evaluator (spec.md §4.D): maps a
// runtime Observation, plus an optional custom Probe, to a Verdict.
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/arcane-autoheal/autoheal/internal/model"
)

// Prober runs a single custom health-check attempt. Implementations live in
// the runtime adapter (HTTP/TCP/exec); health depends only on this narrow
// interface so it stays runtime-agnostic, the same seam the teacher draws
// between services and DockerClientService. The signature matches
// runtimeadapter.Adapter's probe methods so an Adapter can be passed
// straight through as a Prober.
type Prober interface {
	ProbeHTTP(ctx context.Context, endpoint string, expectedStatus int, timeout time.Duration) error
	ProbeTCP(ctx context.Context, host string, port int, timeout time.Duration) error
	ProbeExec(ctx context.Context, containerID string, argv []string, timeout time.Duration) error
}

// Evaluator is the Health Evaluator. It holds no mutable state.
type Evaluator struct {
	prober Prober
}

func New(prober Prober) *Evaluator {
	return &Evaluator{prober: prober}
}

// Evaluate returns the Verdict for obs, running probe's retry budget when a
// custom probe is configured for this container (spec.md §4.D).
func (e *Evaluator) Evaluate(ctx context.Context, obs model.Observation, probe model.Probe) model.Verdict {
	switch obs.State {
	case model.StateExited, model.StateDead:
		if obs.ExitCode != nil && *obs.ExitCode == 0 {
			return model.VerdictExitedOk
		}
		return model.VerdictExitedFail
	case model.StateCreated:
		return model.VerdictUnknown
	case model.StateRunning, model.StateRestarting, model.StatePaused:
		// fall through to health-status handling below
	default:
		return model.VerdictUnknown
	}

	if obs.HealthStatus == model.HealthStarting {
		return model.VerdictStarting
	}
	if obs.HealthStatus == model.HealthUnhealthy {
		return model.VerdictUnhealthy
	}

	// Native status is healthy or none; consult the custom probe, if any.
	if probe.Empty() {
		return model.VerdictHealthy
	}

	if e.runProbe(ctx, obs, probe) {
		return model.VerdictHealthy
	}
	return model.VerdictUnhealthy
}

// runProbe executes up to probe.Retries attempts, succeeding on the first
// attempt that passes (spec.md §4.D: "success = any attempt succeeds;
// failure = all exhausted").
func (e *Evaluator) runProbe(ctx context.Context, obs model.Observation, probe model.Probe) bool {
	if e.prober == nil {
		slog.WarnContext(ctx, "custom probe configured but no prober wired; treating as pass-through", "container", obs.Name)
		return true
	}

	retries := probe.Retries
	if retries < 1 {
		retries = 1
	}

	timeout := time.Duration(probe.TimeoutS) * time.Second

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		var err error
		switch probe.Kind {
		case model.ProbeHTTP:
			err = e.prober.ProbeHTTP(ctx, probe.HTTP.Endpoint, probe.HTTP.ExpectedStatus, timeout)
		case model.ProbeTCP:
			err = e.prober.ProbeTCP(ctx, obs.Name, probe.TCP.Port, timeout)
		case model.ProbeExec:
			err = e.prober.ProbeExec(ctx, obs.RuntimeID, probe.Exec.Argv, timeout)
		default:
			return true
		}
		if err == nil {
			return true
		}
		lastErr = err
	}

	slog.DebugContext(ctx, "custom probe exhausted retries", "container", obs.Name, "retries", retries, "error", lastErr)
	return false
}
