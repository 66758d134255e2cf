package energy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xaenox/watt-guardian/internal/models"
)

var base = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func entriesAt(offsets ...time.Duration) []models.EnergyEntry {
	entries := make([]models.EnergyEntry, len(offsets))
	for i, off := range offsets {
		entries[i] = models.EnergyEntry{Timestamp: base.Add(off), EnergyKWh: 1}
	}
	return entries
}

func TestNewEntry(t *testing.T) {
	e := NewEntry(2, 0.25, base)
	require.Equal(t, base, e.Timestamp)
	require.InDelta(t, 0.5, e.EnergyKWh, 1e-9)
	require.Equal(t, 2.0, e.PowerKW)
}

func TestTrimHistoryIsStrict(t *testing.T) {
	history := entriesAt(-25*time.Hour, -24*time.Hour, -23*time.Hour, 0)
	kept := TrimHistory(history, 24*time.Hour, base)

	require.Len(t, kept, 2)
	for _, e := range kept {
		require.True(t, e.Timestamp.After(base.Add(-24*time.Hour)))
	}

	kept[0].EnergyKWh = 99
	require.Equal(t, 1.0, history[2].EnergyKWh, "trim must not alias its input")
}

func TestTotals(t *testing.T) {
	apps := []models.Appliance{
		{IsOn: true, CurrentPowerKW: 1.5, History: entriesAt(0, time.Minute)},
		{IsOn: false, CurrentPowerKW: 3, History: entriesAt(0)},
	}
	require.InDelta(t, 3.0, TotalUsage(apps), 1e-9)
	require.InDelta(t, 1.5, TotalCurrentPower(apps), 1e-9)
	require.InDelta(t, 60.0, Cost(3, 20), 1e-9)
	require.InDelta(t, 0.85, CarbonFootprint(1), 1e-9)
}

func TestCategoryUsage(t *testing.T) {
	apps := []models.Appliance{
		{Category: "kitchen", DailyUsage: 2},
		{Category: "", DailyUsage: 1},
		{Category: "kitchen", DailyUsage: 0.5},
		{Category: "cooling", DailyUsage: 6},
	}
	require.Equal(t, []models.ChartPoint{
		{Label: "Kitchen", Value: 2.5},
		{Label: "Other", Value: 1},
		{Label: "Cooling", Value: 6},
	}, CategoryUsage(apps))
}

func TestTrendOf(t *testing.T) {
	rising := []models.EnergyEntry{
		{Timestamp: base.Add(2 * time.Minute), EnergyKWh: 2},
		{Timestamp: base, EnergyKWh: 1},
		{Timestamp: base.Add(3 * time.Minute), EnergyKWh: 2},
		{Timestamp: base.Add(time.Minute), EnergyKWh: 1},
	}
	require.Equal(t, TrendIncreasing, TrendOf(rising))

	falling := []models.EnergyEntry{
		{Timestamp: base, EnergyKWh: 2},
		{Timestamp: base.Add(time.Minute), EnergyKWh: 1},
	}
	require.Equal(t, TrendDecreasing, TrendOf(falling))

	require.Equal(t, TrendStable, TrendOf(entriesAt(0, time.Minute)))
	require.Equal(t, TrendStable, TrendOf(nil))
}

func TestPeakEntry(t *testing.T) {
	_, ok := PeakEntry(nil)
	require.False(t, ok)

	history := []models.EnergyEntry{
		{Timestamp: base, EnergyKWh: 1},
		{Timestamp: base.Add(time.Minute), EnergyKWh: 3},
		{Timestamp: base.Add(2 * time.Minute), EnergyKWh: 3},
	}
	peak, ok := PeakEntry(history)
	require.True(t, ok)
	require.Equal(t, base.Add(time.Minute), peak.Timestamp)
}

func TestRelativeTime(t *testing.T) {
	cases := []struct {
		age  time.Duration
		want string
	}{
		{10 * time.Second, "Just now"},
		{time.Minute, "1 minute ago"},
		{10 * time.Minute, "10 minutes ago"},
		{time.Hour, "1 hour ago"},
		{5 * time.Hour, "5 hours ago"},
		{48 * time.Hour, "2 days ago"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, RelativeTime(base.Add(-c.age), base), c.age.String())
	}
	require.Equal(t, "3/4/2026", RelativeTime(base.AddDate(0, 0, -10), base))
}

func TestCapitalize(t *testing.T) {
	require.Equal(t, "Kitchen", Capitalize("kitchen"))
	require.Equal(t, "", Capitalize(""))
}

func TestFilterAppliances(t *testing.T) {
	apps := []models.Appliance{
		{ID: 1, CurrentPowerKW: 1.2, IsSmartDevice: true, Category: "cooling", Location: "Bedroom"},
		{ID: 2, CurrentPowerKW: 0.5, Category: "kitchen", Location: "Kitchen"},
		{ID: 3, CurrentPowerKW: 0.1, IsSmartDevice: true, Category: "lighting", Location: "Living Room"},
	}
	ids := func(list []models.Appliance) []int {
		var out []int
		for _, a := range list {
			out = append(out, a.ID)
		}
		return out
	}

	require.Equal(t, []int{1, 2, 3}, ids(FilterAppliances(apps, TierAll, "all")))
	require.Equal(t, []int{1}, ids(FilterAppliances(apps, TierHigh, "")))
	require.Equal(t, []int{2}, ids(FilterAppliances(apps, TierMedium, "")))
	require.Equal(t, []int{3}, ids(FilterAppliances(apps, TierLow, "")))
	require.Equal(t, []int{1, 3}, ids(FilterAppliances(apps, TierAll, "smart")))
	require.Equal(t, []int{2}, ids(FilterAppliances(apps, TierAll, "regular")))
	require.Equal(t, []int{3}, ids(FilterAppliances(apps, TierAll, "living room")))
	require.Equal(t, []int{2}, ids(FilterAppliances(apps, TierAll, "kitchen")))
}

func TestHistorySeries(t *testing.T) {
	var history []models.EnergyEntry
	for i := 0; i < 10; i++ {
		history = append(history, models.EnergyEntry{Timestamp: base.Add(-time.Duration(i) * time.Hour), EnergyKWh: float64(i)})
	}
	history = append(history, models.EnergyEntry{Timestamp: base.AddDate(0, 0, -3)})

	day := HistorySeries(history, RangeDay, base)
	require.Len(t, day, 10)
	require.True(t, day[0].Timestamp.Before(day[1].Timestamp))

	week := HistorySeries(history, RangeWeek, base)
	require.Len(t, week, 3) // 11 points, every 4th
	require.Equal(t, base.AddDate(0, 0, -3), week[0].Timestamp)
}
