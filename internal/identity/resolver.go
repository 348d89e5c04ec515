// Package identity computes the stable identifier that lets the supervisor
// track a logical container across runtime recreation (spec.md §3, §4.B).
// Every function here is pure: no I/O, no shared state.
package identity

import "strings"

const (
	// MonitoringIDLabel takes priority over every other derivation path.
	MonitoringIDLabel = "monitoring.id"
	ComposeProjectLabel = "com.docker.compose.project"
	ComposeServiceLabel = "com.docker.compose.service"
)

// Source reports which derivation path produced a StableId, useful for
// logging and tests.
type Source string

const (
	SourceLabel     Source = "label"
	SourceCompose   Source = "compose"
	SourceName      Source = "name"
	SourceShortID   Source = "short_id"
)

// Resolve computes the StableId for a single observation using the fixed
// priority order from spec.md §3: monitoring.id label, then
// {compose_project}_{compose_service}, then the trimmed container name,
// then the short container id as a last-resort legacy fallback.
func Resolve(labels map[string]string, name, composeProject, composeService, shortID string) (string, Source) {
	if id, ok := labels[MonitoringIDLabel]; ok {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			return trimmed, SourceLabel
		}
	}

	if composeProject != "" && composeService != "" {
		return composeProject + "_" + composeService, SourceCompose
	}

	if trimmedName := strings.TrimPrefix(strings.TrimSpace(name), "/"); trimmedName != "" {
		return trimmedName, SourceName
	}

	return shortID, SourceShortID
}

// Observation is the minimal view Resolve's companion lookup needs from a
// runtime observation; kept separate from model.Observation so this package
// has no dependency on the runtime adapter's richer type.
type Observation struct {
	Name           string
	ShortID        string
	RuntimeID      string
	StableID       string
	ComposeProject string
	ComposeService string
}

// ResolveToken maps a user-supplied token — a raw name, short id, full id,
// or an already-resolved StableId — to the StableId of whichever current
// observation it matches. If nothing matches, the token is echoed back so
// that records keyed by a StableId that no longer has a live container
// remain valid (spec.md §4.B).
func ResolveToken(token string, observations []Observation) string {
	token = strings.TrimSpace(token)
	for _, o := range observations {
		if token == o.StableID || token == o.Name || token == o.ShortID || token == o.RuntimeID {
			return o.StableID
		}
	}
	return token
}

// LooksLikeFullContainerID reports whether s looks like a 64-char hex
// container id, the backward-compatibility shape spec.md §4.C's store
// accepts for legacy selection/history keys.
func LooksLikeFullContainerID(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		if !isHex {
			return false
		}
	}
	return true
}
