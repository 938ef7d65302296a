package store

import "time"

type Freshness string

const (
	NoData   Freshness = "none"
	Realtime Freshness = "realtime"
	Recent   Freshness = "recent"
	Stale    Freshness = "stale"
)

const (
	RealtimeWindow = 5 * time.Second
	RecentWindow   = 60 * time.Second
)

// Classify buckets the age of last relative to now.
func Classify(last, now time.Time) Freshness {
	if last.IsZero() {
		return NoData
	}
	age := now.Sub(last)
	switch {
	case age <= RealtimeWindow:
		return Realtime
	case age <= RecentWindow:
		return Recent
	default:
		return Stale
	}
}
