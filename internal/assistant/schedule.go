package assistant

import (
	"fmt"
	"strings"

	"github.com/xaenox/watt-guardian/internal/models"
)

const (
	peakHours    = "2 PM - 6 PM"
	offPeakHours = "10 PM - 6 AM"

	// appliances drawing more than this are moved to off-peak hours
	highDrawKW = 1.0
)

// BuildSchedule renders the morning / peak / off-peak recommendation. The
// off-peak section lists, per category in first-seen order, every
// appliance of categories that contain at least one high-draw device.
func BuildSchedule(appliances []models.Appliance) string {
	var order []string
	groups := make(map[string][]models.Appliance)
	for _, a := range appliances {
		category := a.Category
		if category == "" {
			category = "Other"
		}
		if _, ok := groups[category]; !ok {
			order = append(order, category)
		}
		groups[category] = append(groups[category], a)
	}

	lines := []string{
		"🌅 Morning (6 AM - 10 AM):",
		"- Run dishwasher and washing machine for morning loads",
		"- Use natural light instead of artificial lighting when possible",
		"",
		fmt.Sprintf("🏢 Peak Hours (%s) - Minimize Usage:", peakHours),
		"- Adjust thermostat by 2-3 degrees to reduce HVAC load",
		"- Avoid running major appliances during these hours",
		"",
		fmt.Sprintf("🌙 Evening Off-Peak (%s):", offPeakHours),
		"- Schedule high-energy appliances like:",
	}
	for _, category := range order {
		apps := groups[category]
		high := false
		names := make([]string, len(apps))
		for i, a := range apps {
			names[i] = a.Name
			if a.CurrentPowerKW > highDrawKW {
				high = true
			}
		}
		if high {
			lines = append(lines, fmt.Sprintf("  • %s: %s", category, strings.Join(names, ", ")))
		}
	}
	return strings.Join(lines, "\n")
}
