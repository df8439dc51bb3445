package posture

import (
	"fmt"
	"time"

	"iot-posture-monitor/internal/domain/device"
)

// DefaultStaleAfter is how long a device may stay silent before it raises an alert.
const DefaultStaleAfter = time.Hour

// AlertCounting selects how AlertsToday combines vulnerable and stale devices.
type AlertCounting string

const (
	// CountAdditive adds the vulnerable count and the stale count, so a device
	// that is both contributes twice.
	CountAdditive AlertCounting = "additive"
	// CountDistinct counts each device meeting either condition once.
	CountDistinct AlertCounting = "distinct"
)

func ParseAlertCounting(s string) (AlertCounting, error) {
	switch AlertCounting(s) {
	case "", CountAdditive:
		return CountAdditive, nil
	case CountDistinct:
		return CountDistinct, nil
	default:
		return "", fmt.Errorf("unknown alert counting mode %q", s)
	}
}

type AggregateOptions struct {
	StaleAfter time.Duration
	Counting   AlertCounting
}

func DefaultAggregateOptions() AggregateOptions {
	return AggregateOptions{StaleAfter: DefaultStaleAfter, Counting: CountAdditive}
}

// Summary holds the dashboard KPIs for a set of verdicts.
type Summary struct {
	Total       int `json:"total"`
	Vulnerable  int `json:"vulnerable"`
	Outdated    int `json:"outdated"`
	AlertsToday int `json:"alerts_today"`
}

// Aggregate reduces verdicts into a Summary. lastSeen is keyed by device ID;
// devices without an entry are never counted as stale.
func Aggregate(verdicts []Verdict, lastSeen map[uint]time.Time, now time.Time, opts AggregateOptions) Summary {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}

	var s Summary
	stale, distinct := 0, 0
	for _, v := range verdicts {
		s.Total++

		vulnerable := v.Status == StatusVulnerable
		if vulnerable {
			s.Vulnerable++
		}
		if !v.UpToDate {
			s.Outdated++
		}

		seen, ok := lastSeen[v.DeviceID]
		isStale := ok && now.Sub(seen) > opts.StaleAfter
		if isStale {
			stale++
		}
		if vulnerable || isStale {
			distinct++
		}
	}

	if opts.Counting == CountDistinct {
		s.AlertsToday = distinct
	} else {
		s.AlertsToday = s.Vulnerable + stale
	}
	return s
}

// LastSeenIndex collects the last-seen timestamps of devices that have one.
func LastSeenIndex(devices []*device.Device) map[uint]time.Time {
	idx := make(map[uint]time.Time, len(devices))
	for _, d := range devices {
		if d.LastSeenAt != nil {
			idx[d.ID] = *d.LastSeenAt
		}
	}
	return idx
}
