package sync

import (
	"time"

	"ms-ticket-sync/internal/models"
)

// settleAfter is how long past an event's date its orders keep changing:
// refunds and late scans settle within one calendar day.
const settleAfter = 24 * time.Hour

// NeedsUpdate reports whether an event's orders/status require a refresh: no
// sync has ever happened, or the last one ran before the event settled
// (event date + 1 day). A sync stamped exactly at date+1 is settled.
func NeedsUpdate(eventDate, lastSync time.Time) bool {
	if lastSync.IsZero() {
		return true
	}
	return lastSync.Before(eventDate.Add(settleAfter))
}

// StatusFor derives an event's status from its date: LIVE until one day
// after the event, PAST afterwards.
func StatusFor(eventDate, now time.Time) string {
	if now.After(eventDate.Add(settleAfter)) {
		return models.StatusPast
	}
	return models.StatusLive
}
