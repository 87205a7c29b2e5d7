package pacing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tbourn/donor-search/internal/config"
	"github.com/tbourn/donor-search/internal/domain"
)

var (
	urgent  = config.DelayBounds{Min: 15 * time.Minute, Max: 2 * time.Hour}
	regular = config.DelayBounds{Min: time.Hour, Max: 12 * time.Hour}
	now     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func TestUrgencyBuffer(t *testing.T) {
	assert.Equal(t, 2, UrgencyBuffer(domain.Urgent))
	assert.Equal(t, 1, UrgencyBuffer(domain.Regular))
	assert.Equal(t, 1, UrgencyBuffer("unknown"))
	assert.Greater(t, UrgencyBuffer(domain.Urgent), UrgencyBuffer(domain.Regular))
}

func TestDonorsToNotify(t *testing.T) {
	assert.Equal(t, 4, DonorsToNotify(2, domain.Urgent))
	assert.Equal(t, 3, DonorsToNotify(2, domain.Regular))
	assert.Equal(t, 0, DonorsToNotify(0, domain.Urgent))
	assert.Equal(t, 0, DonorsToNotify(-3, domain.Regular))
}

func TestDelayPeriod_WithinBounds(t *testing.T) {
	for _, b := range []config.DelayBounds{urgent, regular} {
		for _, bags := range []int{0, 1, 3, 10, 50} {
			for _, offset := range []time.Duration{-48 * time.Hour, 0, time.Hour, 72 * time.Hour, 30 * 24 * time.Hour} {
				d := DelayPeriod(bags, now.Add(offset), now, b)
				assert.GreaterOrEqual(t, d, b.Min, "bags=%d offset=%s", bags, offset)
				assert.LessOrEqual(t, d, b.Max, "bags=%d offset=%s", bags, offset)
			}
		}
	}
}

func TestDelayPeriod_ZeroBagsIsMax(t *testing.T) {
	assert.Equal(t, urgent.Max, DelayPeriod(0, now.Add(time.Hour), now, urgent))
	assert.Equal(t, regular.Max, DelayPeriod(0, now, now, regular))
}

func TestDelayPeriod_Monotonic(t *testing.T) {
	soon := DelayPeriod(2, now.Add(6*time.Hour), now, regular)
	later := DelayPeriod(2, now.Add(5*24*time.Hour), now, regular)
	assert.Less(t, soon, later, "less time remaining => shorter delay")

	few := DelayPeriod(1, now.Add(48*time.Hour), now, regular)
	many := DelayPeriod(8, now.Add(48*time.Hour), now, regular)
	assert.Less(t, few, many, "fewer bags => shorter delay")
}

func TestDelayPeriod_PastDonationUsesBagsOnly(t *testing.T) {
	d := DelayPeriod(5, now.Add(-time.Hour), now, urgent)
	// time factor 0, bags factor 0.5 => weight 0.25
	want := urgent.Min + (urgent.Max-urgent.Min)/4
	assert.Equal(t, want, d)
}

func TestReinstateDelay(t *testing.T) {
	d := ReinstateDelay(2, now.Add(24*time.Hour), now, urgent, 2, 24*time.Hour)
	assert.GreaterOrEqual(t, d, urgent.Max)
	assert.LessOrEqual(t, d, 24*time.Hour)

	// Scaled value above the ceiling is clamped.
	d = ReinstateDelay(10, now.Add(30*24*time.Hour), now, regular, 4, 24*time.Hour)
	assert.Equal(t, 24*time.Hour, d)

	// A ceiling below the retry max never undercuts the retry max.
	d = ReinstateDelay(1, now, now, regular, 1, time.Minute)
	assert.Equal(t, regular.Max, d)
}
