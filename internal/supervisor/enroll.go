package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/arcane-autoheal/autoheal/internal/decision"
	"github.com/arcane-autoheal/autoheal/internal/identity"
	"github.com/arcane-autoheal/autoheal/internal/model"
	"github.com/arcane-autoheal/autoheal/internal/runtimeadapter"
)

// EnrollListener is the Auto-Enroll Listener (spec.md §4.G): it consumes
// the adapter's decoupled start-event channel on its own goroutine,
// independent of the tick scheduler, and enrolls opted-in containers into
// the selection set.
type EnrollListener struct {
	adapter runtimeadapter.Adapter
	store   Store
}

// Store is the slice of internal/store.Store the listener needs; kept as
// an interface so this file can be unit-tested with a fake.
type Store interface {
	Config() model.PolicyConfig
	UpdateConfig(model.PolicyConfig) error
	AppendEvent(model.Event) error
}

func NewEnrollListener(adapter runtimeadapter.Adapter, st Store) *EnrollListener {
	return &EnrollListener{adapter: adapter, store: st}
}

// Run blocks consuming start events until ctx is canceled. Call it in its
// own goroutine; it never touches the tick scheduler's loop.
func (l *EnrollListener) Run(ctx context.Context) {
	events := l.adapter.StreamStartEvents(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			l.handle(ctx, ev)
		}
	}
}

func (l *EnrollListener) handle(ctx context.Context, ev model.StartEvent) {
	cfg := l.store.Config()

	stableID, _ := identity.Resolve(ev.Labels, ev.Name, ev.Labels[identity.ComposeProjectLabel], ev.Labels[identity.ComposeServiceLabel], shortID(ev.RuntimeID))

	if !decision.HasOptInLabel(ev.Labels, cfg.Monitor.OptInLabel) {
		return
	}
	if containsString(cfg.Containers.Selected, stableID) || containsString(cfg.Containers.Excluded, stableID) {
		return // idempotent: already enrolled or explicitly excluded
	}

	cfg.Containers.Selected = append(cfg.Containers.Selected, stableID)
	if err := l.store.UpdateConfig(cfg); err != nil {
		slog.ErrorContext(ctx, "auto-enroll: failed to persist selection", "stable_id", stableID, "error", err)
		return
	}

	_ = l.store.AppendEvent(model.Event{
		TsUTC:    time.Now().UTC(),
		StableID: stableID,
		Kind:     model.EventAutoMonitor,
		Status:   model.StatusInfo,
		Message:  "auto-enrolled via opt-in label on container start",
	})
	slog.InfoContext(ctx, "auto-enrolled container", "stable_id", stableID)
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func shortID(full string) string {
	if len(full) >= 12 {
		return full[:12]
	}
	return full
}
