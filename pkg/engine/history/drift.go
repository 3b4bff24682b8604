package history

import "fmt"

// ShrinkThreshold is the fractional drop in discovered instances that raises an alert.
const ShrinkThreshold = 0.2

// Drift compares the latest run against the one before it.
type Drift struct {
	Previous   int
	Current    int
	Delta      int
	FailedRise int
	Alerts     []string
}

// Analyze derives fleet drift signals. Dry runs are ignored.
func Analyze(history []Snapshot) Drift {
	var real []Snapshot
	for _, s := range history {
		if !s.DryRun {
			real = append(real, s)
		}
	}
	if len(real) == 0 {
		return Drift{}
	}

	current := real[len(real)-1]
	if len(real) < 2 {
		return Drift{Current: current.Discovered}
	}
	prev := real[len(real)-2]

	d := Drift{
		Previous:   prev.Discovered,
		Current:    current.Discovered,
		Delta:      current.Discovered - prev.Discovered,
		FailedRise: current.Failed - prev.Failed,
	}

	// A large drop usually means an account or region stopped answering, not decommissioning.
	if prev.Discovered > 0 && float64(-d.Delta)/float64(prev.Discovered) >= ShrinkThreshold {
		d.Alerts = append(d.Alerts, fmt.Sprintf("[WARNING] FLEET SHRINK: discovered instances fell from %d to %d", prev.Discovered, current.Discovered))
	}
	if current.Accounts < prev.Accounts {
		d.Alerts = append(d.Alerts, fmt.Sprintf("[WARNING] ACCOUNTS LOST: %d accounts scanned, previously %d", current.Accounts, prev.Accounts))
	}
	if d.FailedRise > 0 {
		d.Alerts = append(d.Alerts, fmt.Sprintf("[CRITICAL] FAILURES RISING: %d failed assets, previously %d", current.Failed, prev.Failed))
	}
	return d
}
