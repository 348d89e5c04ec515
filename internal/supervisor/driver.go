package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Driver fires Tick on a fixed-interval schedule, grounded on the
// teacher's JobScheduler wrapper around robfig/cron.
type Driver struct {
	supervisor *Supervisor
	cron       *cron.Cron
	entryID    cron.EntryID
}

// NewDriver builds a driver that ticks every interval. A *Cron is used
// (rather than a bare ticker) so the interval can later be expressed as a
// full cron expression without changing the wiring. SkipIfStillRunning
// guarantees the scheduler never runs two ticks for the same entry
// concurrently — without it a slow tick (e.g. one still sleeping out a
// restart's backoff delay) could overlap the next firing and let two
// ticks decide to restart the same container (spec.md invariant 3).
func NewDriver(s *Supervisor) *Driver {
	return &Driver{
		supervisor: s,
		cron:       cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// Start schedules the tick at the given interval and begins running it in
// the background. ctx governs every tick's lifetime, not the scheduler
// itself — Stop governs the scheduler.
func (d *Driver) Start(ctx context.Context, interval time.Duration) error {
	spec := fmt.Sprintf("@every %s", interval.String())
	id, err := d.cron.AddFunc(spec, func() {
		start := time.Now()
		d.supervisor.Tick(ctx)
		slog.DebugContext(ctx, "tick completed", "elapsed", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("supervisor: schedule tick: %w", err)
	}
	d.entryID = id
	d.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for any in-flight tick to finish
// (spec.md §5: "the tick driver stops enqueuing new work, in-flight
// workers finish").
func (d *Driver) Stop() {
	stopCtx := d.cron.Stop()
	<-stopCtx.Done()
}
