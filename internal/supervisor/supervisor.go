// Package supervisor is the Supervisor Loop (spec.md §4.F): the tick
// driver that lists containers, fans a bounded worker pool out over them,
// and actuates whatever the Decision Engine returns.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arcane-autoheal/autoheal/internal/decision"
	"github.com/arcane-autoheal/autoheal/internal/health"
	"github.com/arcane-autoheal/autoheal/internal/identity"
	"github.com/arcane-autoheal/autoheal/internal/model"
	"github.com/arcane-autoheal/autoheal/internal/runtimeadapter"
	"github.com/arcane-autoheal/autoheal/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency  = 8
	maxConcurrency      = 32
	defaultRestartGrace = 10 * time.Second
)

// Notifier is the fire-and-forget notification fan-out seam; see
// internal/notify for the shoutrrr-backed implementation. Nil is valid —
// notifications are optional.
type Notifier interface {
	Notify(ctx context.Context, subject, message string)
}

// Supervisor owns one tick of the control loop. Durable state lives in the
// store; the one piece of in-memory state it keeps itself is the last
// computed verdict per StableId, so a control-plane read between ticks
// doesn't have to re-run custom probes outside the tick cadence (mirrors
// the teacher's dashboard summary-caching pattern).
type Supervisor struct {
	Adapter     runtimeadapter.Adapter
	Store       *store.Store
	Engine      *decision.Engine
	Health      *health.Evaluator
	Notifier    Notifier
	Concurrency int

	verdictsMu sync.RWMutex
	verdicts   map[string]model.Verdict
}

func New(adapter runtimeadapter.Adapter, st *store.Store, engine *decision.Engine, evaluator *health.Evaluator, notifier Notifier) *Supervisor {
	return &Supervisor{
		Adapter:     adapter,
		Store:       st,
		Engine:      engine,
		Health:      evaluator,
		Notifier:    notifier,
		Concurrency: defaultConcurrency,
		verdicts:    map[string]model.Verdict{},
	}
}

// LastVerdict returns the most recently computed health verdict for
// stableID, if any container carrying that identity has been evaluated
// since startup.
func (s *Supervisor) LastVerdict(stableID string) (model.Verdict, bool) {
	s.verdictsMu.RLock()
	defer s.verdictsMu.RUnlock()
	v, ok := s.verdicts[stableID]
	return v, ok
}

func (s *Supervisor) recordVerdict(stableID string, verdict model.Verdict) {
	s.verdictsMu.Lock()
	defer s.verdictsMu.Unlock()
	s.verdicts[stableID] = verdict
}

// Tick runs one full pass over the fleet (spec.md §4.F). It never returns
// an error: every per-container failure is absorbed into an event record.
func (s *Supervisor) Tick(ctx context.Context) {
	if s.Store.IsMaintenanceActive() {
		slog.DebugContext(ctx, "tick skipped: maintenance active")
		return
	}

	observations, err := s.Adapter.ListContainers(ctx, true)
	if err != nil {
		slog.WarnContext(ctx, "tick: failed to list containers", "error", err)
		return
	}

	cfg := s.Store.Config()

	limit := s.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}
	if limit > maxConcurrency {
		limit = maxConcurrency
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, obs := range observations {
		obs := obs
		g.Go(func() error {
			s.processContainer(groupCtx, obs, cfg)
			return nil
		})
	}
	_ = g.Wait()
}

// processContainer resolves identity, applies the selection filter,
// evaluates health, asks the Decision Engine for an action, and actuates
// it. Per-id serialization (spec.md invariant 3) is not implied by
// g.Wait alone — that only bounds goroutines within a single Tick, not
// across two overlapping Tick invocations — so it also depends on the
// driver never scheduling two ticks concurrently (see Driver's
// SkipIfStillRunning chain) plus actuateRestart recording the restart
// timestamp before it sleeps out the backoff delay.
func (s *Supervisor) processContainer(ctx context.Context, obs model.Observation, cfg model.PolicyConfig) {
	stableID, _ := identity.Resolve(obs.Labels, obs.Name, obs.ComposeProject, obs.ComposeService, obs.ShortID)

	if !decision.Monitored(stableID, obs, cfg) {
		return
	}

	probe := cfg.CustomHealthChecks[stableID]
	verdict := s.Health.Evaluate(ctx, obs, probe)
	s.recordVerdict(stableID, verdict)

	now := time.Now().UTC()
	maintenanceActive := s.Store.IsMaintenanceActive()
	action := s.Engine.Decide(stableID, obs, verdict, cfg, s.Store, now, maintenanceActive)

	switch action.Kind {
	case model.ActionRestart:
		s.actuateRestart(ctx, stableID, obs, action)
	case model.ActionQuarantine:
		s.actuateQuarantine(ctx, stableID, obs, action)
	case model.ActionAutoUnquarantine:
		s.actuateAutoUnquarantine(ctx, stableID, obs)
	case model.ActionNop:
		if verdict == model.VerdictUnhealthy || verdict == model.VerdictExitedFail {
			s.appendEvent(ctx, stableID, obs, model.EventHealthFailed, model.StatusInfo, action.Reason, 0)
		}
	}
}

func (s *Supervisor) actuateRestart(ctx context.Context, stableID string, obs model.Observation, action model.Action) {
	// Record the moment this restart was decided, before the backoff
	// delay is slept out, not after (spec.md §4.F: the pending attempt's
	// *scheduled* time acts as last_restart_ts while deferred). Recording
	// first means a tick that overlaps this one's deferred sleep — should
	// the scheduler ever let one through — sees the pending attempt via
	// the cooldown rule instead of deciding to restart a second time.
	now := time.Now().UTC()
	if err := s.Store.RecordRestart(stableID, now); err != nil {
		slog.ErrorContext(ctx, "failed to persist restart record", "stable_id", stableID, "error", err)
		return
	}

	if action.Delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(action.Delay):
		}
	}

	result := s.Adapter.Restart(ctx, obs.RuntimeID, defaultRestartGrace)
	if result.Ok {
		s.appendEvent(ctx, stableID, obs, model.EventRestart, model.StatusSuccess, action.Reason, 0)
		s.notify(ctx, "container restarted", stableID+": "+action.Reason)
		return
	}

	// A failed restart attempt still counts toward the quota (spec.md
	// open-question decision: kept) — the timestamp is already recorded.
	s.appendEvent(ctx, stableID, obs, model.EventRestart, model.StatusFailure, result.Reason, 0)
}

func (s *Supervisor) actuateQuarantine(ctx context.Context, stableID string, obs model.Observation, action model.Action) {
	if err := s.Store.Quarantine(stableID, time.Now().UTC(), action.Reason); err != nil {
		slog.ErrorContext(ctx, "failed to persist quarantine", "stable_id", stableID, "error", err)
		return
	}
	s.appendEvent(ctx, stableID, obs, model.EventQuarantine, model.StatusInfo, action.Reason, 0)
	s.notify(ctx, "container quarantined", stableID+": "+action.Reason)
}

func (s *Supervisor) actuateAutoUnquarantine(ctx context.Context, stableID string, obs model.Observation) {
	if err := s.Store.Unquarantine(stableID); err != nil {
		slog.ErrorContext(ctx, "failed to persist auto-unquarantine", "stable_id", stableID, "error", err)
		return
	}
	s.appendEvent(ctx, stableID, obs, model.EventAutoUnquarantine, model.StatusSuccess, "recovered", 0)
	s.notify(ctx, "container recovered", stableID+" auto-unquarantined")
}

func (s *Supervisor) appendEvent(ctx context.Context, stableID string, obs model.Observation, kind model.EventKind, status model.EventStatus, message string, attempt int) {
	ev := model.Event{
		TsUTC:        time.Now().UTC(),
		StableID:     stableID,
		ContainerID:  obs.RuntimeID,
		Kind:         kind,
		Status:       status,
		Message:      message,
		AttemptCount: attempt,
	}
	if err := s.Store.AppendEvent(ev); err != nil {
		slog.ErrorContext(ctx, "failed to persist event", "stable_id", stableID, "kind", kind, "error", err)
	}
}

func (s *Supervisor) notify(ctx context.Context, subject, message string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Notify(ctx, subject, message)
}
