package energy

import (
	"time"

	"github.com/xaenox/watt-guardian/internal/models"
)

type ApplianceReport struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Category       string     `json:"category"`
	IsOn           bool       `json:"is_on"`
	CurrentPowerKW float64    `json:"current_power_kw"`
	UsageKWh       float64    `json:"usage_kwh"`
	Cost           float64    `json:"cost"`
	Trend          Trend      `json:"trend"`
	PeakAt         *time.Time `json:"peak_at,omitempty"`
}

// Report summarises a snapshot the way the dashboard's report page does.
type Report struct {
	GeneratedAt       time.Time           `json:"generated_at"`
	TotalUsageKWh     float64             `json:"total_usage_kwh"`
	TotalCost         float64             `json:"total_cost"`
	CarbonKg          float64             `json:"carbon_kg"`
	CurrentPowerKW    float64             `json:"current_power_kw"`
	BudgetKWh         *float64            `json:"budget_kwh,omitempty"`
	BudgetUsedPercent *float64            `json:"budget_used_percent,omitempty"`
	CostBudget        float64             `json:"cost_budget,omitempty"`
	ByCategory        []models.ChartPoint `json:"by_category"`
	Appliances        []ApplianceReport   `json:"appliances"`
}

func NewReport(snap models.Snapshot) Report {
	r := Report{
		GeneratedAt:    snap.TakenAt,
		TotalUsageKWh:  snap.TotalUsage,
		TotalCost:      Cost(snap.TotalUsage, snap.EnergyRate),
		CarbonKg:       CarbonFootprint(snap.TotalUsage),
		CurrentPowerKW: snap.TotalCurrentPower,
		ByCategory:     CategoryUsage(snap.Appliances),
		Appliances:     make([]ApplianceReport, 0, len(snap.Appliances)),
	}
	if snap.Budget != nil {
		budget := *snap.Budget
		used := snap.TotalUsage / budget * 100
		r.BudgetKWh = &budget
		r.BudgetUsedPercent = &used
		r.CostBudget = snap.CostBudget
	}
	for _, a := range snap.Appliances {
		usage := HistoryUsage(a.History)
		ar := ApplianceReport{
			ID:             a.ID,
			Name:           a.Name,
			Category:       a.Category,
			IsOn:           a.IsOn,
			CurrentPowerKW: a.CurrentPowerKW,
			UsageKWh:       usage,
			Cost:           Cost(usage, snap.EnergyRate),
			Trend:          TrendOf(a.History),
		}
		if peak, ok := PeakEntry(a.History); ok {
			at := peak.Timestamp
			ar.PeakAt = &at
		}
		r.Appliances = append(r.Appliances, ar)
	}
	return r
}
