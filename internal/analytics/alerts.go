package analytics

import "time"

// Staleness alert messages.
const (
	AlertNoEdits24h = "No edits from team in last 24 hours"
	AlertNoEdits3d  = "No edits from team in last 3 days"
)

const (
	staleAfter     = 24 * time.Hour
	longStaleAfter = 3 * 24 * time.Hour
)

// staleAlerts evaluates both thresholds independently. A nil last means no
// event had a usable timestamp, which fires both.
func staleAlerts(last *time.Time, now time.Time) []string {
	alerts := []string{}
	if last == nil || now.Sub(*last) > staleAfter {
		alerts = append(alerts, AlertNoEdits24h)
	}
	if last == nil || now.Sub(*last) > longStaleAfter {
		alerts = append(alerts, AlertNoEdits3d)
	}
	return alerts
}
