// Package control is the Core facade (spec.md §6): the set of operations a
// control plane — HTTP API, CLI, or anything else — drives the core
// through. It never talks to the runtime or the filesystem directly; every
// mutation goes through the store, and every container listing goes
// through the adapter.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arcane-autoheal/autoheal/internal/decision"
	"github.com/arcane-autoheal/autoheal/internal/identity"
	"github.com/arcane-autoheal/autoheal/internal/model"
	"github.com/arcane-autoheal/autoheal/internal/runtimeadapter"
	"github.com/arcane-autoheal/autoheal/internal/store"
)

// Status is the computed fleet summary (spec.md §6: "Get status").
type Status struct {
	Total         int  `json:"total"`
	Monitored     int  `json:"monitored"`
	Quarantined   int  `json:"quarantined"`
	Maintenance   bool `json:"maintenance"`
}

// ContainerView is a single container's listing row, with the fields the
// control plane computes on top of a raw Observation (spec.md §6: "List
// containers with computed fields").
type ContainerView struct {
	StableID            string               `json:"stable_id"`
	RuntimeID            string              `json:"runtime_id"`
	Name                 string              `json:"name"`
	State                model.ContainerState `json:"state"`
	Monitored            bool                `json:"monitored"`
	Quarantined           bool               `json:"quarantined"`
	RecentRestartCount    int                `json:"recent_restart_count"`
	Verdict              model.Verdict        `json:"verdict,omitempty"`
}

// VerdictSource supplies the supervisor's last-computed health verdict for a
// StableId, if one has been recorded since startup. Satisfied by
// *supervisor.Supervisor; left nil, ListContainers simply omits the field
// (the CLI opens a Core with no live supervisor running).
type VerdictSource interface {
	LastVerdict(stableID string) (model.Verdict, bool)
}

// Core wires the store and runtime adapter together behind the operations
// spec.md §6 requires. It holds no state of its own.
type Core struct {
	Store    *store.Store
	Adapter  runtimeadapter.Adapter
	Verdicts VerdictSource
}

func New(st *store.Store, adapter runtimeadapter.Adapter) *Core {
	return &Core{Store: st, Adapter: adapter}
}

// WithVerdicts attaches a verdict source (typically the running
// *supervisor.Supervisor) so ListContainers can surface each container's
// last probe result without re-running it outside the tick cadence.
func (c *Core) WithVerdicts(v VerdictSource) *Core {
	c.Verdicts = v
	return c
}

// Status reports fleet-wide counters.
func (c *Core) Status(ctx context.Context) (Status, error) {
	observations, err := c.Adapter.ListContainers(ctx, true)
	if err != nil {
		return Status{}, fmt.Errorf("control: list containers: %w", err)
	}
	cfg := c.Store.Config()

	st := Status{
		Total:       len(observations),
		Quarantined: len(c.Store.QuarantinedIDs()),
		Maintenance: c.Store.IsMaintenanceActive(),
	}
	for _, obs := range observations {
		stableID, _ := identity.Resolve(obs.Labels, obs.Name, obs.ComposeProject, obs.ComposeService, obs.ShortID)
		if decision.Monitored(stableID, obs, cfg) {
			st.Monitored++
		}
	}
	return st, nil
}

// ListContainers returns one ContainerView per live container, computing
// monitored/quarantined/restart-count fields against the current config
// and history.
func (c *Core) ListContainers(ctx context.Context) ([]ContainerView, error) {
	observations, err := c.Adapter.ListContainers(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("control: list containers: %w", err)
	}
	cfg := c.Store.Config()
	window := time.Duration(cfg.Restart.WindowSeconds) * time.Second

	views := make([]ContainerView, 0, len(observations))
	for _, obs := range observations {
		stableID, _ := identity.Resolve(obs.Labels, obs.Name, obs.ComposeProject, obs.ComposeService, obs.ShortID)
		quarantined, _ := c.Store.IsQuarantined(stableID)
		count, _ := c.Store.RestartCount(stableID, window, time.Now().UTC())
		view := ContainerView{
			StableID:           stableID,
			RuntimeID:          obs.RuntimeID,
			Name:               obs.Name,
			State:              obs.State,
			Monitored:          decision.Monitored(stableID, obs, cfg),
			Quarantined:        quarantined,
			RecentRestartCount: count,
		}
		if c.Verdicts != nil {
			if v, ok := c.Verdicts.LastVerdict(stableID); ok {
				view.Verdict = v
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// resolveToken maps a user-supplied identifier (name, short id, runtime
// id, or StableId) to the StableId the rest of the core keys everything
// by. Tokens that match no live observation are echoed back unchanged so
// operations still work against a container that has since been removed
// (spec.md §4.B).
func (c *Core) resolveToken(ctx context.Context, token string) string {
	observations, err := c.Adapter.ListContainers(ctx, true)
	if err != nil {
		return token
	}
	idObs := make([]identity.Observation, 0, len(observations))
	for _, obs := range observations {
		stableID, _ := identity.Resolve(obs.Labels, obs.Name, obs.ComposeProject, obs.ComposeService, obs.ShortID)
		idObs = append(idObs, identity.Observation{
			Name:      obs.Name,
			ShortID:   obs.ShortID,
			RuntimeID: obs.RuntimeID,
			StableID:  stableID,
		})
	}
	return identity.ResolveToken(token, idObs)
}

// Select adds token (resolved to a StableId) to the selection set,
// removing it from the exclusion set if present (spec.md §6: "Select
// containers (accept any identifier; the core resolves to StableId)").
func (c *Core) Select(ctx context.Context, token string) error {
	stableID := c.resolveToken(ctx, token)
	cfg := c.Store.Config()
	cfg.Containers.Excluded = removeString(cfg.Containers.Excluded, stableID)
	if !containsString(cfg.Containers.Selected, stableID) {
		cfg.Containers.Selected = append(cfg.Containers.Selected, stableID)
	}
	return c.Store.UpdateConfig(cfg)
}

// Deselect adds token to the exclusion set and removes it from selection.
func (c *Core) Deselect(ctx context.Context, token string) error {
	stableID := c.resolveToken(ctx, token)
	cfg := c.Store.Config()
	cfg.Containers.Selected = removeString(cfg.Containers.Selected, stableID)
	if !containsString(cfg.Containers.Excluded, stableID) {
		cfg.Containers.Excluded = append(cfg.Containers.Excluded, stableID)
	}
	return c.Store.UpdateConfig(cfg)
}

// UpdateConfig validates cfg against its own monitor.interval_seconds and,
// only if it passes, persists it atomically (spec.md §6: "Update configuration
// (atomic, validating)"; spec.md §7: ConfigValidation policy — reject,
// current config unchanged).
func (c *Core) UpdateConfig(cfg model.PolicyConfig) error {
	if err := decision.ValidateConfig(cfg, cfg.Monitor.IntervalSeconds); err != nil {
		return err
	}
	return c.Store.UpdateConfig(cfg)
}

// Events returns the current event log (oldest-first).
func (c *Core) Events() []model.Event {
	return c.Store.Snapshot().Events
}

// ClearEvents empties the event log.
func (c *Core) ClearEvents() error {
	return c.Store.ClearEvents()
}

// AppendEvent lets a control-plane caller record an out-of-band event
// (e.g. "operator acknowledged alert").
func (c *Core) AppendEvent(e model.Event) error {
	return c.Store.AppendEvent(e)
}

// ManualRestart restarts token's container immediately, bypassing
// cooldown (spec.md §6: "Manual restart of a container (bypasses
// cooldown; still recorded)").
func (c *Core) ManualRestart(ctx context.Context, token string) error {
	stableID := c.resolveToken(ctx, token)
	obs, err := c.Adapter.Inspect(ctx, token)
	if err != nil {
		return fmt.Errorf("control: inspect %s: %w", token, err)
	}

	now := time.Now().UTC()
	if err := c.Store.RecordRestart(stableID, now); err != nil {
		return fmt.Errorf("control: record restart: %w", err)
	}

	result := c.Adapter.Restart(ctx, obs.RuntimeID, 10*time.Second)
	status := model.StatusSuccess
	msg := "manual restart"
	if !result.Ok {
		status = model.StatusFailure
		msg = result.Reason
	}
	return c.Store.AppendEvent(model.Event{
		TsUTC:       now,
		StableID:    stableID,
		ContainerID: obs.RuntimeID,
		Kind:        model.EventManualRestart,
		Status:      status,
		Message:     msg,
	})
}

// ManualUnquarantine clears token's quarantine state and restart history
// (spec.md §6: "Manual unquarantine (clears history)").
func (c *Core) ManualUnquarantine(ctx context.Context, token string) error {
	stableID := c.resolveToken(ctx, token)
	if err := c.Store.Unquarantine(stableID); err != nil {
		return err
	}
	return c.Store.AppendEvent(model.Event{
		TsUTC:    time.Now().UTC(),
		StableID: stableID,
		Kind:     model.EventManualUnquarantine,
		Status:   model.StatusSuccess,
		Message:  "manually unquarantined",
	})
}

// SetMaintenance flips the maintenance gate.
func (c *Core) SetMaintenance(active bool) error {
	return c.Store.SetMaintenance(active, time.Now().UTC())
}

// ExportConfig serializes the current policy config as a single JSON
// document (spec.md §6: "Export/import configuration as a single JSON
// document").
func (c *Core) ExportConfig() ([]byte, error) {
	return json.MarshalIndent(c.Store.Config(), "", "  ")
}

// ImportConfig parses and validates a full policy config document before
// replacing the current one.
func (c *Core) ImportConfig(doc []byte) error {
	var cfg model.PolicyConfig
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return fmt.Errorf("control: parse config document: %w", err)
	}
	return c.UpdateConfig(cfg)
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func removeString(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
