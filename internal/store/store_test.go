package store

import (
	"testing"
	"time"

	"github.com/arcane-autoheal/autoheal/internal/model"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesDefaultsOnFirstBoot(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	cfg := s.Config()
	require.Equal(t, model.DefaultPolicyConfig(), cfg)
}

func TestOpen_ReloadsPersistedConfig(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(dir)
	require.NoError(t, err)

	cfg := s1.Config()
	cfg.Monitor.IntervalSeconds = 15
	require.NoError(t, s1.UpdateConfig(cfg))

	s2, err := Open(dir)
	require.NoError(t, err)
	require.Equal(t, 15, s2.Config().Monitor.IntervalSeconds)
}

func TestRestartCount_WindowExpiry(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	now := time.Now()
	old := now.Add(-31 * time.Minute)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordRestart("web", old))
	}

	count, _ := s.RestartCount("web", 30*time.Minute, now)
	require.Equal(t, 0, count)
}

func TestRestartCount_MixedTimestamps(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	now := time.Now()
	old := now.Add(-31 * time.Minute)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordRestart("web", old))
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, s.RecordRestart("web", now))
	}

	count, last := s.RestartCount("web", 30*time.Minute, now)
	require.Equal(t, 4, count)
	require.WithinDuration(t, now, last, time.Second)
}

func TestRestartCount_IsolatedPerStableId(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, s.RecordRestart("web", now))
	require.NoError(t, s.RecordRestart("web", now))

	countWeb, _ := s.RestartCount("web", time.Hour, now)
	countOther, _ := s.RestartCount("worker", time.Hour, now)
	require.Equal(t, 2, countWeb)
	require.Equal(t, 0, countOther)
}

func TestQuarantineLifecycle(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	ok, _ := s.IsQuarantined("web")
	require.False(t, ok)

	now := time.Now()
	require.NoError(t, s.RecordRestart("web", now))
	require.NoError(t, s.Quarantine("web", now, "window exceeded"))

	ok, since := s.IsQuarantined("web")
	require.True(t, ok)
	require.WithinDuration(t, now, since, time.Second)
	require.Equal(t, []string{"web"}, s.QuarantinedIDs())

	require.NoError(t, s.Unquarantine("web"))
	ok, _ = s.IsQuarantined("web")
	require.False(t, ok)

	count, _ := s.RestartCount("web", time.Hour, now)
	require.Equal(t, 0, count, "unquarantine must clear restart history")
}

func TestAppendEvent_TrimsToMaxLogEntries(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	cfg := s.Config()
	cfg.UI.MaxLogEntries = 3
	require.NoError(t, s.UpdateConfig(cfg))

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendEvent(model.Event{StableID: "web", Kind: model.EventRestart, Status: model.StatusSuccess}))
	}

	snap := s.Snapshot()
	require.Len(t, snap.Events, 3)
}

func TestClearEvents(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.AppendEvent(model.Event{StableID: "web", Kind: model.EventRestart}))
	require.NoError(t, s.ClearEvents())
	require.Empty(t, s.Snapshot().Events)
}

func TestMaintenanceGate(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	require.False(t, s.IsMaintenanceActive())

	require.NoError(t, s.SetMaintenance(true, time.Now()))
	require.True(t, s.IsMaintenanceActive())

	require.NoError(t, s.SetMaintenance(false, time.Time{}))
	require.False(t, s.IsMaintenanceActive())
}

func TestHasHistory(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	require.False(t, s.HasHistory("web"))

	require.NoError(t, s.RecordRestart("web", time.Now()))
	require.True(t, s.HasHistory("web"))
}
