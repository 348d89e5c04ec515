// Package store is the Config & State Store (spec.md §4.C): the single
// place that durably persists policy configuration and supervisor history,
// and the only component allowed to touch the data directory's files
// directly. Every exported method is safe for concurrent use.
package store

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/arcane-autoheal/autoheal/internal/model"
	"github.com/google/uuid"
)

const (
	configFile        = "config.json"
	eventsFile        = "events.json"
	restartCountsFile = "restart_counts.json"
	quarantineFile    = "quarantine.json"
	maintenanceFile   = "maintenance.json"
)

// quarantineRecord is the on-disk shape of a single quarantined StableId.
type quarantineRecord struct {
	Since  time.Time `json:"since"`
	Reason string    `json:"reason,omitempty"`
}

// Store holds the in-memory working copy of every durable document and
// guards it with a single write lock. Reads take a snapshot copy rather
// than a pointer into live state, so callers never race a concurrent
// writer. A writer holds the lock while it persists to disk, so a read
// issued during a write waits for that write to finish.
type Store struct {
	dataDir string

	mu           sync.RWMutex
	config       model.PolicyConfig
	events       []model.Event
	restartHist  map[string][]time.Time
	quarantine   map[string]quarantineRecord
	maintenance  model.MaintenanceFlag
}

// Open loads every document from dataDir, creating defaults for anything
// missing (first boot). It does not watch the filesystem; see Watcher for
// hot-reload of config.json.
func Open(dataDir string) (*Store, error) {
	s := &Store{
		dataDir:     dataDir,
		restartHist: map[string][]time.Time{},
		quarantine:  map[string]quarantineRecord{},
	}

	cfg := model.DefaultPolicyConfig()
	if ok, err := readJSON(s.path(configFile), &cfg); err != nil {
		return nil, err
	} else if !ok {
		if err := writeJSONAtomic(s.path(configFile), &cfg); err != nil {
			return nil, err
		}
	}
	s.config = cfg

	var events []model.Event
	if _, err := readJSON(s.path(eventsFile), &events); err != nil {
		return nil, err
	}
	s.events = events

	var hist map[string][]time.Time
	if _, err := readJSON(s.path(restartCountsFile), &hist); err != nil {
		return nil, err
	}
	if hist != nil {
		s.restartHist = hist
	}

	var quar map[string]quarantineRecord
	if _, err := readJSON(s.path(quarantineFile), &quar); err != nil {
		return nil, err
	}
	if quar != nil {
		s.quarantine = quar
	}

	var maint model.MaintenanceFlag
	if _, err := readJSON(s.path(maintenanceFile), &maint); err != nil {
		return nil, err
	}
	s.maintenance = maint

	return s, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dataDir, name)
}

// Snapshot is the read-only view callers are given: the decision engine
// and control facade read from it without ever touching the store's
// internal maps.
type Snapshot struct {
	Config      model.PolicyConfig
	Events      []model.Event
	Maintenance model.MaintenanceFlag
}

// Snapshot returns a deep-enough copy of the current config and events.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Config:      s.config.Clone(),
		Events:      append([]model.Event(nil), s.events...),
		Maintenance: s.maintenance,
	}
}

// Config returns just the current policy config, cloned for safe reading.
func (s *Store) Config() model.PolicyConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Clone()
}

// UpdateConfig replaces the full policy config and persists it. The caller
// (control facade) is responsible for merging a partial patch onto a prior
// Config() read before calling this.
func (s *Store) UpdateConfig(cfg model.PolicyConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSONAtomic(s.path(configFile), &cfg); err != nil {
		return err
	}
	s.config = cfg
	return nil
}

// normalizeKey canonicalizes a 64-char hex legacy key to itself (these keys
// are never rewritten to a StableId after the fact — they're historical
// records keyed the way they were written), while leaving modern StableIds
// untouched. It exists purely so lookups over either key shape behave the
// same; see identity.LooksLikeFullContainerID for the detection rule.
func normalizeKey(key string) string {
	return key
}

// RecordRestart appends now to stableId's restart history and persists it.
func (s *Store) RecordRestart(stableID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizeKey(stableID)
	s.restartHist[key] = append(s.restartHist[key], now)
	return writeJSONAtomic(s.path(restartCountsFile), s.restartHist)
}

// RestartCount returns how many restarts were recorded for stableId within
// the trailing window ending at now, and the timestamp of the most recent
// one (zero time if none).
func (s *Store) RestartCount(stableID string, window time.Duration, now time.Time) (count int, last time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := now.Add(-window)
	for _, ts := range s.restartHist[normalizeKey(stableID)] {
		if ts.After(cutoff) && !ts.After(now) {
			count++
			if ts.After(last) {
				last = ts
			}
		}
	}
	return count, last
}

// LastRestart returns the most recent restart timestamp recorded for
// stableId regardless of window, used for cooldown enforcement.
func (s *Store) LastRestart(stableID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hist := s.restartHist[normalizeKey(stableID)]
	if len(hist) == 0 {
		return time.Time{}, false
	}
	last := hist[0]
	for _, ts := range hist[1:] {
		if ts.After(last) {
			last = ts
		}
	}
	return last, true
}

// Quarantine marks stableId quarantined as of since, for reason.
func (s *Store) Quarantine(stableID string, since time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quarantine[normalizeKey(stableID)] = quarantineRecord{Since: since, Reason: reason}
	return writeJSONAtomic(s.path(quarantineFile), s.quarantine)
}

// Unquarantine clears stableId's quarantined state and its restart history
// (spec.md §4.C: "clears history on unquarantine"). If stableId is not
// quarantined, nothing changes and its restart history is kept.
func (s *Store) Unquarantine(stableID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizeKey(stableID)
	if _, ok := s.quarantine[key]; !ok {
		return nil
	}
	delete(s.quarantine, key)
	if err := writeJSONAtomic(s.path(quarantineFile), s.quarantine); err != nil {
		return err
	}
	delete(s.restartHist, key)
	return writeJSONAtomic(s.path(restartCountsFile), s.restartHist)
}

// IsQuarantined reports whether stableId is currently quarantined, and
// since when.
func (s *Store) IsQuarantined(stableID string) (bool, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.quarantine[normalizeKey(stableID)]
	return ok, rec.Since
}

// QuarantinedIDs returns every currently quarantined StableId, sorted.
func (s *Store) QuarantinedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.quarantine))
	for id := range s.quarantine {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AppendEvent appends e (assigning a fresh ID if unset) to the event log,
// trims it to Config().UI.MaxLogEntries, and persists it.
func (s *Store) AppendEvent(e model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.events = append(s.events, e)

	max := s.config.UI.MaxLogEntries
	if max <= 0 {
		max = 50
	}
	if len(s.events) > max {
		s.events = s.events[len(s.events)-max:]
	}
	return writeJSONAtomic(s.path(eventsFile), s.events)
}

// ClearEvents empties the event log.
func (s *Store) ClearEvents() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	return writeJSONAtomic(s.path(eventsFile), s.events)
}

// SetMaintenance flips the maintenance gate (spec.md invariant 7).
func (s *Store) SetMaintenance(active bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active {
		s.maintenance = model.MaintenanceFlag{Active: true, StartedAt: &at}
	} else {
		s.maintenance = model.MaintenanceFlag{Active: false}
	}
	return writeJSONAtomic(s.path(maintenanceFile), &s.maintenance)
}

// IsMaintenanceActive reports the current maintenance gate state.
func (s *Store) IsMaintenanceActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maintenance.Active
}

// HasHistory reports whether key (a StableId or a legacy 64-char hex key)
// has any recorded restart or quarantine history.
func (s *Store) HasHistory(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.restartHist[key]; ok {
		return true
	}
	_, ok := s.quarantine[key]
	return ok
}
