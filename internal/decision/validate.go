package decision

import (
	"fmt"
	"math"

	"github.com/arcane-autoheal/autoheal/internal/model"
)

// ValidationError collects every rule violation found by ValidateConfig so
// the caller (control facade) can surface all of them at once rather than
// failing fast on the first.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return fmt.Sprintf("%d config validation errors: %v", len(e.Errors), e.Errors)
}

// ValidateConfig checks cfg against the invariant in spec.md §4.E: a
// restart.window_seconds too small relative to max_restarts and cooldown
// means restarts age out of the window before quarantine ever fires.
func ValidateConfig(cfg model.PolicyConfig, intervalSeconds int) error {
	var errs []string

	if cfg.Monitor.IntervalSeconds <= 0 {
		errs = append(errs, "monitor.interval_seconds must be positive")
	}
	if cfg.Restart.MaxRestarts <= 0 {
		errs = append(errs, "restart.max_restarts must be positive")
	}
	if cfg.Restart.CooldownSeconds < 0 {
		errs = append(errs, "restart.cooldown_seconds must not be negative")
	}
	if cfg.Restart.WindowSeconds <= 0 {
		errs = append(errs, "restart.window_seconds must be positive")
	}
	switch cfg.Restart.Mode {
	case model.ModeOnFailure, model.ModeHealth, model.ModeBoth:
	default:
		errs = append(errs, fmt.Sprintf("restart.mode %q is not one of on-failure, health, both", cfg.Restart.Mode))
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	floor := cfg.Restart.CooldownSeconds
	if intervalSeconds > floor {
		floor = intervalSeconds
	}
	minWindow := cfg.Restart.MaxRestarts * floor
	if cfg.Restart.WindowSeconds < minWindow {
		errs = append(errs, fmt.Sprintf(
			"restart.window_seconds (%d) must be >= max_restarts (%d) * max(cooldown_seconds, interval_seconds) (%d) = %d",
			cfg.Restart.WindowSeconds, cfg.Restart.MaxRestarts, floor, minWindow))
	}

	// span is the time the backoff schedule itself needs to land
	// max_restarts restarts: one cooldown-plus-backoff gap between each
	// consecutive pair, geometric growth included. window_seconds has to
	// sit in a band around that span — not so tight the restarts age out
	// of the window before the quota is reached (spec.md §8 S6(a)), and
	// not so loose the quota is effectively decoupled from the backoff
	// cadence it's paired with, which is just as misconfigured even
	// though it fails "safe" rather than "never quarantines" (S6(b)).
	if cfg.Restart.Backoff.Enabled && cfg.Restart.Backoff.Multiplier > 1 && cfg.Restart.MaxRestarts > 1 {
		gaps := cfg.Restart.MaxRestarts - 1
		span := float64(gaps) * float64(cfg.Restart.CooldownSeconds)
		for k := 0; k < gaps; k++ {
			span += float64(cfg.Restart.Backoff.InitialSeconds) * math.Pow(cfg.Restart.Backoff.Multiplier, float64(k))
		}

		const (
			backoffLowerSlack = 1.2
			backoffUpperSlack = 2.5
		)
		minWindowForBackoff := span / backoffLowerSlack
		maxWindowForBackoff := span * backoffUpperSlack
		window := float64(cfg.Restart.WindowSeconds)

		if window < minWindowForBackoff {
			errs = append(errs, fmt.Sprintf(
				"restart.window_seconds (%d) is too small for the backoff schedule (needs >= %.0fs): restarts would age out of the window before quarantine triggers",
				cfg.Restart.WindowSeconds, minWindowForBackoff))
		}
		if window > maxWindowForBackoff {
			errs = append(errs, fmt.Sprintf(
				"restart.window_seconds (%d) is too large for the backoff schedule (expected <= %.0fs): the restart quota would be disconnected from the backoff cadence it is paired with",
				cfg.Restart.WindowSeconds, maxWindowForBackoff))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
