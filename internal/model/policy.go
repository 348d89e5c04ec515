package model

import "slices"

// PolicyConfig is the full, durable configuration the decision engine and
// selection filter consult. It is the in-memory/on-disk shape of
// data/config.json's top level (monitor, containers, restart, filters,
// custom_health_checks) plus the passthrough sections (ui, alerts,
// observability, notifications) the control plane owns but the core never
// interprets.
type PolicyConfig struct {
	Monitor            MonitorConfig            `json:"monitor"`
	Containers         ContainersConfig         `json:"containers"`
	Restart            RestartConfig            `json:"restart"`
	Filters            FiltersConfig            `json:"filters"`
	CustomHealthChecks map[string]Probe         `json:"custom_health_checks"`
	UI                 UIConfig                 `json:"ui"`
	Alerts             map[string]any           `json:"alerts,omitempty"`
	Observability      map[string]any           `json:"observability,omitempty"`
	Notifications      map[string]any           `json:"notifications,omitempty"`
}

type MonitorConfig struct {
	IntervalSeconds int    `json:"interval_seconds"`
	OptInLabel      string `json:"opt_in_label"`
	IncludeAll      bool   `json:"include_all"`
}

type ContainersConfig struct {
	Selected []string `json:"selected"`
	Excluded []string `json:"excluded"`
	// RestartCounts is a legacy field retained only for round-tripping
	// wire-compatible config.json documents; the core never reads it —
	// live counts come from the restart_counts.json history.
	RestartCounts map[string]int `json:"restart_counts,omitempty"`
}

type RestartConfig struct {
	Mode              string        `json:"mode"`
	CooldownSeconds   int           `json:"cooldown_seconds"`
	MaxRestarts       int           `json:"max_restarts"`
	WindowSeconds     int           `json:"window_seconds"`
	Backoff           BackoffConfig `json:"backoff"`
	RespectManualStop bool          `json:"respect_manual_stop"`
}

type BackoffConfig struct {
	Enabled        bool    `json:"enabled"`
	InitialSeconds int     `json:"initial_seconds"`
	Multiplier     float64 `json:"multiplier"`
}

type FiltersConfig struct {
	WhitelistNames  []string `json:"whitelist_names,omitempty"`
	BlacklistNames  []string `json:"blacklist_names,omitempty"`
	WhitelistLabels []string `json:"whitelist_labels,omitempty"`
	BlacklistLabels []string `json:"blacklist_labels,omitempty"`
}

type UIConfig struct {
	MaxLogEntries int `json:"max_log_entries"`
}

// Restart modes.
const (
	ModeOnFailure = "on-failure"
	ModeHealth    = "health"
	ModeBoth      = "both"
)

// DefaultPolicyConfig returns the documented defaults from spec.md §3/§6.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Monitor: MonitorConfig{
			IntervalSeconds: 30,
			OptInLabel:      "autoheal=true",
			IncludeAll:      false,
		},
		Containers: ContainersConfig{
			Selected: []string{},
			Excluded: []string{},
		},
		Restart: RestartConfig{
			Mode:            ModeOnFailure,
			CooldownSeconds: 60,
			MaxRestarts:     3,
			WindowSeconds:   300,
			Backoff: BackoffConfig{
				Enabled:        true,
				InitialSeconds: 10,
				Multiplier:     2,
			},
			RespectManualStop: true,
		},
		CustomHealthChecks: map[string]Probe{},
		UI: UIConfig{
			MaxLogEntries: 50,
		},
	}
}

// Clone returns a deep-enough copy safe for a reader to hold without racing
// a concurrent UpdateConfig. Used by the store's snapshot method.
func (c PolicyConfig) Clone() PolicyConfig {
	clone := c
	clone.Containers.Selected = slices.Clone(c.Containers.Selected)
	clone.Containers.Excluded = slices.Clone(c.Containers.Excluded)
	if c.Containers.RestartCounts != nil {
		clone.Containers.RestartCounts = make(map[string]int, len(c.Containers.RestartCounts))
		for k, v := range c.Containers.RestartCounts {
			clone.Containers.RestartCounts[k] = v
		}
	}
	clone.Filters.WhitelistNames = slices.Clone(c.Filters.WhitelistNames)
	clone.Filters.BlacklistNames = slices.Clone(c.Filters.BlacklistNames)
	clone.Filters.WhitelistLabels = slices.Clone(c.Filters.WhitelistLabels)
	clone.Filters.BlacklistLabels = slices.Clone(c.Filters.BlacklistLabels)
	if c.CustomHealthChecks != nil {
		clone.CustomHealthChecks = make(map[string]Probe, len(c.CustomHealthChecks))
		for k, v := range c.CustomHealthChecks {
			clone.CustomHealthChecks[k] = v
		}
	}
	return clone
}
