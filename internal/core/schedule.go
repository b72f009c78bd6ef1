package core

import (
	"sort"
	"strings"
	"time"
)

// UpcomingLimit caps the upcoming scheduled payments view.
const UpcomingLimit = 3

// scheduledMarkers are matched case-insensitively against the description.
var scheduledMarkers = []string{"scheduled", "programada"}

// IsScheduled reports whether tx is a planned future payment relative to now.
func IsScheduled(tx Transaction, now time.Time) bool {
	if tx.Kind != Payment || !tx.Date.After(now) {
		return false
	}
	desc := strings.ToLower(tx.Description)
	for _, m := range scheduledMarkers {
		if strings.Contains(desc, m) {
			return true
		}
	}
	return false
}

// UpcomingScheduled returns at most UpcomingLimit scheduled payments, earliest
// first. Payments sharing a date keep their input order.
func UpcomingScheduled(txs []Transaction, now time.Time) []Transaction {
	var out []Transaction
	for _, tx := range txs {
		if IsScheduled(tx, now) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	if len(out) > UpcomingLimit {
		out = out[:UpcomingLimit]
	}
	return out
}
