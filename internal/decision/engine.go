package decision

import (
	"fmt"
	"math"
	"time"

	"github.com/arcane-autoheal/autoheal/internal/model"
)

// maxBackoffDelay is the implementation-defined ceiling spec.md §4.E leaves
// open ("e.g., 3600s").
const maxBackoffDelay = time.Hour

// History is the slice of the Config & State Store the Decision Engine
// consults. Kept as an interface so this package never imports internal/store
// and stays trivially unit-testable with a fake.
type History interface {
	RestartCount(stableID string, window time.Duration, now time.Time) (count int, last time.Time)
	LastRestart(stableID string) (time.Time, bool)
	IsQuarantined(stableID string) (bool, time.Time)
}

// Engine is the Decision Engine. It holds no mutable state of its own —
// all history is read from the History passed to Decide.
type Engine struct{}

func New() *Engine { return &Engine{} }

// Decide applies the rule-precedence chain from spec.md §4.E and returns
// exactly one Action.
func (e *Engine) Decide(stableID string, obs model.Observation, verdict model.Verdict, cfg model.PolicyConfig, hist History, now time.Time, maintenanceActive bool) model.Action {
	// Rule 1: maintenance gate.
	if maintenanceActive {
		return model.Action{Kind: model.ActionNop, Reason: "maintenance active"}
	}

	quarantined, _ := hist.IsQuarantined(stableID)

	// Rule 2: quarantine auto-release.
	if quarantined && verdict == model.VerdictHealthy && obs.State == model.StateRunning {
		return model.Action{Kind: model.ActionAutoUnquarantine, Reason: "recovered while quarantined"}
	}

	// Rule 3: quarantine block.
	if quarantined {
		return model.Action{Kind: model.ActionNop, Reason: "quarantined"}
	}

	// Rule 4: manual-stop respect.
	if verdict == model.VerdictExitedOk && cfg.Restart.RespectManualStop {
		return model.Action{Kind: model.ActionNop, Reason: "exited cleanly, manual stop respected"}
	}

	// Rule 5: cooldown.
	window := time.Duration(cfg.Restart.WindowSeconds) * time.Second
	k, _ := hist.RestartCount(stableID, window, now)
	if last, ok := hist.LastRestart(stableID); ok {
		cooldown := time.Duration(cfg.Restart.CooldownSeconds) * time.Second
		if now.Sub(last) < cooldown {
			return model.Action{Kind: model.ActionNop, Reason: "cooldown active"}
		}
	}

	// Rule 6: mode gate.
	if !triggers(cfg.Restart.Mode, verdict) {
		return model.Action{Kind: model.ActionNop, Reason: "no trigger for current verdict"}
	}

	// Rule 7: window quota.
	if k >= cfg.Restart.MaxRestarts {
		return model.Action{Kind: model.ActionQuarantine, Reason: fmt.Sprintf("restart quota exceeded: %d/%d in window", k, cfg.Restart.MaxRestarts)}
	}

	delay := ComputeBackoffDelay(cfg.Restart.Backoff, k)
	reason := string(verdict)
	if obs.ExitCode != nil {
		reason = fmt.Sprintf("%s (exit_code=%d)", reason, *obs.ExitCode)
	}
	return model.Action{Kind: model.ActionRestart, Reason: reason, ExitCode: obs.ExitCode, Delay: delay}
}

// triggers implements the mode gate (spec.md §4.E rule 6).
func triggers(mode string, verdict model.Verdict) bool {
	switch mode {
	case model.ModeOnFailure:
		return verdict == model.VerdictExitedFail
	case model.ModeHealth:
		return verdict == model.VerdictUnhealthy
	case model.ModeBoth:
		return verdict == model.VerdictUnhealthy || verdict == model.VerdictExitedFail
	default:
		return false
	}
}

// ComputeBackoffDelay computes initial_seconds × multiplier^k, capped at
// maxBackoffDelay. k is the 0-based count of restarts already recorded in
// the window. Returns 0 when backoff is disabled.
func ComputeBackoffDelay(cfg model.BackoffConfig, k int) time.Duration {
	if !cfg.Enabled {
		return 0
	}
	multiplier := cfg.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	seconds := float64(cfg.InitialSeconds) * math.Pow(multiplier, float64(k))
	delay := time.Duration(seconds * float64(time.Second))
	if delay > maxBackoffDelay {
		return maxBackoffDelay
	}
	if delay < 0 {
		return 0
	}
	return delay
}
