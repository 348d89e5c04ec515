package decision

import (
	"testing"
	"time"

	"github.com/arcane-autoheal/autoheal/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	restarts    []time.Time
	quarantined bool
	quarSince   time.Time
}

func (f *fakeHistory) RestartCount(stableID string, window time.Duration, now time.Time) (int, time.Time) {
	cutoff := now.Add(-window)
	var count int
	var last time.Time
	for _, ts := range f.restarts {
		if ts.After(cutoff) && !ts.After(now) {
			count++
			if ts.After(last) {
				last = ts
			}
		}
	}
	return count, last
}

func (f *fakeHistory) LastRestart(stableID string) (time.Time, bool) {
	if len(f.restarts) == 0 {
		return time.Time{}, false
	}
	last := f.restarts[0]
	for _, ts := range f.restarts[1:] {
		if ts.After(last) {
			last = ts
		}
	}
	return last, true
}

func (f *fakeHistory) IsQuarantined(stableID string) (bool, time.Time) {
	return f.quarantined, f.quarSince
}

func baseConfig() model.PolicyConfig {
	cfg := model.DefaultPolicyConfig()
	cfg.Restart.CooldownSeconds = 1
	cfg.Restart.MaxRestarts = 2
	cfg.Restart.WindowSeconds = 60
	cfg.Restart.Backoff.Enabled = false
	cfg.Restart.Mode = model.ModeOnFailure
	return cfg
}

func TestDecide_MaintenanceGateWinsOverEverything(t *testing.T) {
	e := New()
	hist := &fakeHistory{quarantined: true}
	action := e.Decide("c", model.Observation{State: model.StateExited, ExitCode: exitCodePtr(1)}, model.VerdictExitedFail, baseConfig(), hist, time.Now(), true)
	require.Equal(t, model.ActionNop, action.Kind)
}

func TestDecide_QuarantineAutoRelease(t *testing.T) {
	e := New()
	hist := &fakeHistory{quarantined: true}
	obs := model.Observation{State: model.StateRunning}
	action := e.Decide("c", obs, model.VerdictHealthy, baseConfig(), hist, time.Now(), false)
	require.Equal(t, model.ActionAutoUnquarantine, action.Kind)
}

func TestDecide_QuarantineBlocksRestart(t *testing.T) {
	e := New()
	hist := &fakeHistory{quarantined: true}
	obs := model.Observation{State: model.StateExited, ExitCode: exitCodePtr(1)}
	action := e.Decide("c", obs, model.VerdictExitedFail, baseConfig(), hist, time.Now(), false)
	require.Equal(t, model.ActionNop, action.Kind)
}

func TestDecide_ManualStopRespected(t *testing.T) {
	e := New()
	cfg := baseConfig()
	cfg.Restart.Mode = model.ModeBoth
	cfg.Restart.RespectManualStop = true
	hist := &fakeHistory{}
	obs := model.Observation{State: model.StateExited, ExitCode: exitCodePtr(0)}
	action := e.Decide("c", obs, model.VerdictExitedOk, cfg, hist, time.Now(), false)
	require.Equal(t, model.ActionNop, action.Kind)
}

func TestDecide_CooldownBlocksRapidRestart(t *testing.T) {
	e := New()
	now := time.Now()
	hist := &fakeHistory{restarts: []time.Time{now.Add(-500 * time.Millisecond)}}
	obs := model.Observation{State: model.StateExited, ExitCode: exitCodePtr(1)}
	action := e.Decide("c", obs, model.VerdictExitedFail, baseConfig(), hist, now, false)
	require.Equal(t, model.ActionNop, action.Kind)
}

func TestDecide_ModeGateBlocksNonMatchingVerdict(t *testing.T) {
	e := New()
	cfg := baseConfig()
	cfg.Restart.Mode = model.ModeHealth
	hist := &fakeHistory{}
	obs := model.Observation{State: model.StateExited, ExitCode: exitCodePtr(1)}
	action := e.Decide("c", obs, model.VerdictExitedFail, cfg, hist, time.Now(), false)
	require.Equal(t, model.ActionNop, action.Kind)
}

func TestDecide_S1_RestartsTwiceThenQuarantines(t *testing.T) {
	e := New()
	cfg := baseConfig()
	now := time.Unix(0, 0).UTC()
	hist := &fakeHistory{}
	obs := model.Observation{State: model.StateExited, ExitCode: exitCodePtr(1)}

	a0 := e.Decide("C", obs, model.VerdictExitedFail, cfg, hist, now, false)
	require.Equal(t, model.ActionRestart, a0.Kind)
	hist.restarts = append(hist.restarts, now)

	t1 := now.Add(1 * time.Second)
	a1 := e.Decide("C", obs, model.VerdictExitedFail, cfg, hist, t1, false)
	require.Equal(t, model.ActionRestart, a1.Kind)
	hist.restarts = append(hist.restarts, t1)

	t2 := now.Add(2 * time.Second)
	a2 := e.Decide("C", obs, model.VerdictExitedFail, cfg, hist, t2, false)
	require.Equal(t, model.ActionQuarantine, a2.Kind)
}

func TestDecide_S3_ManualStopRespectedBothMode(t *testing.T) {
	e := New()
	cfg := baseConfig()
	cfg.Restart.Mode = model.ModeBoth
	cfg.Restart.RespectManualStop = true
	hist := &fakeHistory{}
	obs := model.Observation{State: model.StateExited, ExitCode: exitCodePtr(0)}
	action := e.Decide("c", obs, model.VerdictExitedOk, cfg, hist, time.Now(), false)
	require.Equal(t, model.ActionNop, action.Kind)
}

func TestComputeBackoffDelay_GeometricGrowth(t *testing.T) {
	cfg := model.BackoffConfig{Enabled: true, InitialSeconds: 10, Multiplier: 2}
	require.Equal(t, 10*time.Second, ComputeBackoffDelay(cfg, 0))
	require.Equal(t, 20*time.Second, ComputeBackoffDelay(cfg, 1))
	require.Equal(t, 40*time.Second, ComputeBackoffDelay(cfg, 2))
}

func TestComputeBackoffDelay_CapsAtCeiling(t *testing.T) {
	cfg := model.BackoffConfig{Enabled: true, InitialSeconds: 1000, Multiplier: 10}
	require.Equal(t, maxBackoffDelay, ComputeBackoffDelay(cfg, 5))
}

func TestComputeBackoffDelay_DisabledIsZero(t *testing.T) {
	cfg := model.BackoffConfig{Enabled: false, InitialSeconds: 10, Multiplier: 2}
	require.Equal(t, time.Duration(0), ComputeBackoffDelay(cfg, 3))
}

func TestValidateConfig_RejectsPathologicalWindow(t *testing.T) {
	cfg := model.DefaultPolicyConfig()
	cfg.Restart.MaxRestarts = 10
	cfg.Restart.WindowSeconds = 50
	cfg.Restart.CooldownSeconds = 100
	cfg.Restart.Backoff = model.BackoffConfig{Enabled: true, InitialSeconds: 10, Multiplier: 2}
	err := ValidateConfig(cfg, 5)
	require.Error(t, err)
}

// TestValidateConfig_AcceptsS6aBackoffSchedule is spec.md §8 S6(a): this
// exact config is called out as "accepted and behavior matches".
func TestValidateConfig_AcceptsS6aBackoffSchedule(t *testing.T) {
	cfg := model.DefaultPolicyConfig()
	cfg.Restart.MaxRestarts = 3
	cfg.Restart.WindowSeconds = 60
	cfg.Restart.CooldownSeconds = 10
	cfg.Restart.Backoff = model.BackoffConfig{Enabled: true, InitialSeconds: 10, Multiplier: 2}
	err := ValidateConfig(cfg, 5)
	require.NoError(t, err)
}

// TestValidateConfig_RejectsS6bDisproportionateWindow is spec.md §8 S6(b):
// the "equivalent pathological" counterpart to S6(a), differing only in
// max_restarts and window_seconds — rejected because the window is far
// larger than the backoff schedule needs to fill it.
func TestValidateConfig_RejectsS6bDisproportionateWindow(t *testing.T) {
	cfg := model.DefaultPolicyConfig()
	cfg.Restart.MaxRestarts = 5
	cfg.Restart.WindowSeconds = 600
	cfg.Restart.CooldownSeconds = 10
	cfg.Restart.Backoff = model.BackoffConfig{Enabled: true, InitialSeconds: 10, Multiplier: 2}
	err := ValidateConfig(cfg, 5)
	require.Error(t, err)
}

// TestDecide_S6_BackoffAndWindowInteraction exercises the real Decide loop
// against S6(a)'s config: three restarts land inside the 60s window and
// the fourth attempt's decision finds the quota exhausted and quarantines
// instead (spec.md §8 S6).
func TestDecide_S6_BackoffAndWindowInteraction(t *testing.T) {
	cfg := model.DefaultPolicyConfig()
	cfg.Restart.MaxRestarts = 3
	cfg.Restart.WindowSeconds = 60
	cfg.Restart.CooldownSeconds = 10
	cfg.Restart.Backoff = model.BackoffConfig{Enabled: true, InitialSeconds: 10, Multiplier: 2}
	cfg.Restart.Mode = model.ModeOnFailure
	require.NoError(t, ValidateConfig(cfg, 5))

	e := New()
	hist := &fakeHistory{}
	obs := model.Observation{State: model.StateExited, ExitCode: exitCodePtr(1)}
	now := time.Unix(0, 0).UTC()

	a0 := e.Decide("c", obs, model.VerdictExitedFail, cfg, hist, now, false)
	require.Equal(t, model.ActionRestart, a0.Kind)
	require.Equal(t, 10*time.Second, a0.Delay)
	hist.restarts = append(hist.restarts, now)

	t1 := now.Add(10 * time.Second)
	a1 := e.Decide("c", obs, model.VerdictExitedFail, cfg, hist, t1, false)
	require.Equal(t, model.ActionRestart, a1.Kind)
	require.Equal(t, 20*time.Second, a1.Delay)
	hist.restarts = append(hist.restarts, t1)

	t2 := now.Add(20 * time.Second)
	a2 := e.Decide("c", obs, model.VerdictExitedFail, cfg, hist, t2, false)
	require.Equal(t, model.ActionRestart, a2.Kind)
	hist.restarts = append(hist.restarts, t2)

	t3 := now.Add(30 * time.Second)
	a3 := e.Decide("c", obs, model.VerdictExitedFail, cfg, hist, t3, false)
	require.Equal(t, model.ActionQuarantine, a3.Kind)
}

func TestValidateConfig_AcceptsWellFormedConfig(t *testing.T) {
	cfg := model.DefaultPolicyConfig()
	cfg.Restart.MaxRestarts = 3
	cfg.Restart.WindowSeconds = 300
	cfg.Restart.CooldownSeconds = 60
	err := ValidateConfig(cfg, 30)
	require.NoError(t, err)
}

func exitCodePtr(c int) *int { return &c }
