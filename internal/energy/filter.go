package energy

import (
	"strings"
	"time"

	"github.com/xaenox/watt-guardian/internal/models"
)

type PowerTier string

const (
	TierAll    PowerTier = "all"
	TierHigh   PowerTier = "high"
	TierMedium PowerTier = "medium"
	TierLow    PowerTier = "low"
)

const (
	highTierKW   = 0.8
	mediumTierKW = 0.3
)

func (t PowerTier) includes(powerKW float64) bool {
	switch t {
	case TierHigh:
		return powerKW >= highTierKW
	case TierMedium:
		return powerKW >= mediumTierKW && powerKW < highTierKW
	case TierLow:
		return powerKW < mediumTierKW
	default:
		return true
	}
}

// FilterAppliances applies the dashboard power tier and the secondary
// filter: "all", "smart", "regular", or a category or location name.
func FilterAppliances(appliances []models.Appliance, tier PowerTier, filter string) []models.Appliance {
	filter = strings.TrimSpace(filter)
	result := make([]models.Appliance, 0, len(appliances))
	for _, a := range appliances {
		if !tier.includes(a.CurrentPowerKW) {
			continue
		}
		switch {
		case filter == "" || strings.EqualFold(filter, "all"):
		case strings.EqualFold(filter, "smart"):
			if !a.IsSmartDevice {
				continue
			}
		case strings.EqualFold(filter, "regular"):
			if a.IsSmartDevice {
				continue
			}
		default:
			if !strings.EqualFold(a.Category, filter) && !strings.EqualFold(a.Location, filter) {
				continue
			}
		}
		result = append(result, a)
	}
	return result
}

type ChartRange string

const (
	RangeDay   ChartRange = "day"
	RangeWeek  ChartRange = "week"
	RangeMonth ChartRange = "month"
)

// HistorySeries prepares history for charting: time-ordered, limited to
// the range window and down-sampled for the longer ranges.
func HistorySeries(history []models.EnergyEntry, r ChartRange, now time.Time) []models.EnergyEntry {
	var cutoff time.Time
	step := 1
	switch r {
	case RangeWeek:
		cutoff = now.AddDate(0, 0, -7)
		step = 4
	case RangeMonth:
		cutoff = now.AddDate(0, -1, 0)
		step = 12
	default:
		cutoff = now.AddDate(0, 0, -1)
	}

	var windowed []models.EnergyEntry
	for _, e := range SortedHistory(history) {
		if !e.Timestamp.Before(cutoff) {
			windowed = append(windowed, e)
		}
	}

	series := make([]models.EnergyEntry, 0, len(windowed))
	for i, e := range windowed {
		if i%step == 0 {
			series = append(series, e)
		}
	}
	return series
}
