package monitor

import "time"

// QuietPolicy suppresses normal-cadence runs during a configured nightly
// window. The window is [StartHour, EndHour) in local wall-clock hours and
// wraps past midnight when StartHour > EndHour. Inside the window a run is
// still allowed once MinInterval has elapsed since the last successful run,
// or when no run has ever succeeded.
type QuietPolicy struct {
	StartHour   int
	EndHour     int
	MinInterval time.Duration
}

// ShouldSkip is a pure decision: it reports whether a cycle at now should be
// skipped given the last successful run time (zero means none yet). The
// caller owns updating lastRun, and only after an actual success.
func (p QuietPolicy) ShouldSkip(now, lastRun time.Time) bool {
	if !p.inWindow(now.Hour()) {
		return false
	}
	if lastRun.IsZero() {
		return false
	}
	return now.Sub(lastRun) < p.MinInterval
}

func (p QuietPolicy) inWindow(hour int) bool {
	if p.StartHour == p.EndHour {
		// Degenerate [x, x) window is empty.
		return false
	}
	if p.StartHour > p.EndHour {
		// Overnight range, e.g. 22 to 6.
		return hour >= p.StartHour || hour < p.EndHour
	}
	return hour >= p.StartHour && hour < p.EndHour
}
