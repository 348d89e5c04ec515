// Package decision implements the Decision Engine (spec.md §4.E): the
// selection filter and rule-precedence chain that map a container
// observation, its health verdict, and its history to an Action.
package decision

import (
	"strings"

	"github.com/arcane-autoheal/autoheal/internal/model"
)

// Monitored reports whether obs passes the selection filter (spec.md
// §4.E), given the resolved StableId and the current policy config.
func Monitored(stableID string, obs model.Observation, cfg model.PolicyConfig) bool {
	if contains(cfg.Containers.Excluded, stableID) {
		return false
	}
	if matchesName(cfg.Filters.BlacklistNames, obs.Name) || matchesLabels(cfg.Filters.BlacklistLabels, obs.Labels) {
		return false
	}

	if contains(cfg.Containers.Selected, stableID) {
		return true
	}
	if cfg.Monitor.IncludeAll {
		return true
	}
	if HasOptInLabel(obs.Labels, cfg.Monitor.OptInLabel) {
		return true
	}
	if matchesName(cfg.Filters.WhitelistNames, obs.Name) || matchesLabels(cfg.Filters.WhitelistLabels, obs.Labels) {
		return true
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func matchesName(patterns []string, name string) bool {
	trimmed := strings.TrimPrefix(name, "/")
	for _, p := range patterns {
		if p == trimmed {
			return true
		}
	}
	return false
}

func matchesLabels(patterns []string, labels map[string]string) bool {
	for _, p := range patterns {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			if _, present := labels[p]; present {
				return true
			}
			continue
		}
		if labels[k] == v {
			return true
		}
	}
	return false
}

// HasOptInLabel is exported: the auto-enroll listener (spec.md §4.G)
// applies the exact same opt-in check the selection filter does.
// HasOptInLabel reports whether labels carry optInLabel, which is
// formatted "key=value" (spec.md default "autoheal=true"); a bare key with
// no "=value" matches on presence alone.
func HasOptInLabel(labels map[string]string, optInLabel string) bool {
	k, v, ok := strings.Cut(optInLabel, "=")
	if !ok {
		_, present := labels[optInLabel]
		return present
	}
	return labels[k] == v
}
