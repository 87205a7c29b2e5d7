// Package pacing decides how many donors a search round should notify and how
// long the next round should wait. Every function is pure: callers pass the
// clock and the configured delay window explicitly.
package pacing

import (
	"math"
	"time"

	"github.com/tbourn/donor-search/internal/config"
	"github.com/tbourn/donor-search/internal/domain"
)

const (
	// urgentBuffer and regularBuffer are the extra donors notified on top of
	// the bags still needed, to offset declines and no-shows.
	urgentBuffer  = 2
	regularBuffer = 1

	// horizonDays and horizonBags are the values at which the time and
	// quantity factors saturate to 1.
	horizonDays = 7.0
	horizonBags = 10.0
)

// UrgencyBuffer returns the number of extra donors to notify for urgency.
func UrgencyBuffer(urgency domain.UrgencyLevel) int {
	if urgency == domain.Urgent {
		return urgentBuffer
	}
	return regularBuffer
}

// DonorsToNotify returns remainingBags plus the urgency buffer, or 0 when
// nothing is needed.
func DonorsToNotify(remainingBags int, urgency domain.UrgencyLevel) int {
	if remainingBags <= 0 {
		return 0
	}
	return remainingBags + UrgencyBuffer(urgency)
}

// DelayPeriod returns the wait before the next retry round, always within
// [b.Min, b.Max]. The delay grows with the time left until the donation and
// with the number of bags still needed; a satisfied request (0 bags) gets
// the maximum.
func DelayPeriod(remainingBags int, donation, now time.Time, b config.DelayBounds) time.Duration {
	if remainingBags <= 0 {
		return b.Max
	}
	days := donation.Sub(now).Hours() / 24
	timeFactor := clamp01(days / horizonDays)
	bagsFactor := clamp01(float64(remainingBags) / horizonBags)

	weight := (timeFactor + bagsFactor) / 2
	d := b.Min + time.Duration(weight*float64(b.Max-b.Min))
	return clampDur(d, b.Min, b.Max)
}

// ReinstateDelay returns the cooldown before a reinstated search restarts
// from the seeker's own cell: the retry delay scaled by multiplier, never
// shorter than b.Max and never longer than ceiling.
func ReinstateDelay(remainingBags int, donation, now time.Time, b config.DelayBounds, multiplier float64, ceiling time.Duration) time.Duration {
	base := DelayPeriod(remainingBags, donation, now, b)
	d := time.Duration(math.Round(float64(base) * multiplier))
	if ceiling < b.Max {
		ceiling = b.Max
	}
	return clampDur(d, b.Max, ceiling)
}

func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func clampDur(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
