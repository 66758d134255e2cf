// Package energy holds the pure calculations shared by the simulation,
// the assistant and the HTTP report: sample generation, history
// retention, totals, trends and display helpers.
package energy

import (
	"fmt"
	"sort"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/xaenox/watt-guardian/internal/models"
)

// CarbonIntensity is the average kg of CO2 emitted per kWh.
const CarbonIntensity = 0.85

// NewEntry builds the sample for one tick: the energy a constant draw of
// powerKW would use over sampleHours.
func NewEntry(powerKW, sampleHours float64, now time.Time) models.EnergyEntry {
	return models.EnergyEntry{
		Timestamp: now,
		EnergyKWh: powerKW * sampleHours,
		PowerKW:   powerKW,
	}
}

// TrimHistory keeps the entries strictly newer than now-retention. The
// result never aliases history.
func TrimHistory(history []models.EnergyEntry, retention time.Duration, now time.Time) []models.EnergyEntry {
	cutoff := now.Add(-retention)
	kept := make([]models.EnergyEntry, 0, len(history))
	for _, e := range history {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}

// HistoryUsage sums the energy of every retained entry.
func HistoryUsage(history []models.EnergyEntry) float64 {
	var sum float64
	for _, e := range history {
		sum += e.EnergyKWh
	}
	return sum
}

// TotalUsage is the energy retained across all appliance histories.
func TotalUsage(appliances []models.Appliance) float64 {
	var sum float64
	for _, a := range appliances {
		sum += HistoryUsage(a.History)
	}
	return sum
}

// TotalCurrentPower sums the draw of appliances that are switched on.
func TotalCurrentPower(appliances []models.Appliance) float64 {
	var sum float64
	for _, a := range appliances {
		if a.IsOn {
			sum += a.CurrentPowerKW
		}
	}
	return sum
}

func Cost(energyKWh, rate float64) float64 {
	return energyKWh * rate
}

func CarbonFootprint(energyKWh float64) float64 {
	return energyKWh * CarbonIntensity
}

// CategoryUsage groups appliances by category (missing categories count
// as "Other") and sums their daily usage. Groups keep first-seen order
// and labels are capitalised.
func CategoryUsage(appliances []models.Appliance) []models.ChartPoint {
	var points []models.ChartPoint
	index := make(map[string]int)
	for _, a := range appliances {
		category := a.Category
		if category == "" {
			category = "Other"
		}
		i, ok := index[category]
		if !ok {
			i = len(points)
			index[category] = i
			points = append(points, models.ChartPoint{Label: Capitalize(category)})
		}
		points[i].Value += a.DailyUsage
	}
	return points
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// TrendOf compares the mean energy of the older half of history against
// the newer half. Changes within 5% are stable.
func TrendOf(history []models.EnergyEntry) Trend {
	if len(history) < 2 {
		return TrendStable
	}
	sorted := SortedHistory(history)
	mid := len(sorted) / 2
	first := HistoryUsage(sorted[:mid]) / float64(mid)
	second := HistoryUsage(sorted[mid:]) / float64(len(sorted)-mid)
	if first == 0 {
		if second > 0 {
			return TrendIncreasing
		}
		return TrendStable
	}

	change := (second - first) / first * 100
	switch {
	case change > 5:
		return TrendIncreasing
	case change < -5:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// PeakEntry returns the entry with the highest energy; the earliest wins
// on ties.
func PeakEntry(history []models.EnergyEntry) (models.EnergyEntry, bool) {
	if len(history) == 0 {
		return models.EnergyEntry{}, false
	}
	peak := history[0]
	for _, e := range history[1:] {
		if e.EnergyKWh > peak.EnergyKWh {
			peak = e
		}
	}
	return peak, true
}

// SortedHistory returns a time-ordered copy of history.
func SortedHistory(history []models.EnergyEntry) []models.EnergyEntry {
	sorted := make([]models.EnergyEntry, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// RelativeTime renders the age of ts as a short label.
func RelativeTime(ts, now time.Time) string {
	diff := int(now.Sub(ts) / time.Second)
	switch {
	case diff < 60:
		return "Just now"
	case diff < 3600:
		return plural(diff/60, "minute")
	case diff < 86400:
		return plural(diff/3600, "hour")
	case diff < 604800:
		return plural(diff/86400, "day")
	default:
		return ts.Format("1/2/2006")
	}
}

func plural(n int, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss ago", n, unit)
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}
