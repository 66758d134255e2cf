package simulation

import (
	"time"

	"github.com/xaenox/watt-guardian/internal/models"
	"github.com/xaenox/watt-guardian/internal/random"
)

type seedAppliance struct {
	name     string
	icon     models.Icon
	minPower float64
	maxPower float64
	isOn     bool
	isSmart  bool
	category string
	location string
	daily    float64
	monthly  float64
}

var seedAppliances = []seedAppliance{
	{"Refrigerator", models.IconRefrigerator, 0.1, 0.5, true, true, "kitchen", "Kitchen", 2.4, 72},
	{"Television", models.IconTv, 0.05, 0.3, true, true, "entertainment", "Living Room", 1.2, 36},
	{"Heater", models.IconFlame, 0.5, 1.5, true, false, "heating", "Living Room", 8, 240},
	{"Washing Machine", models.IconShirt, 0.4, 1.2, false, true, "laundry", "Utility Room", 1.8, 54},
	{"Dishwasher", models.IconUtensils, 0.3, 1.0, false, true, "kitchen", "Kitchen", 1.5, 45},
	{"Air Conditioner", models.IconFan, 0.8, 2.0, true, true, "cooling", "Bedroom", 6, 180},
	{"Microwave Oven", models.IconUtensils, 0.7, 1.2, false, false, "kitchen", "Kitchen", 0.8, 24},
	{"Water Pump", models.IconDroplets, 0.3, 0.8, true, false, "utility", "Basement", 2, 60},
	{"Living Room Lights", models.IconLightbulb, 0.05, 0.2, true, true, "lighting", "Living Room", 1, 30},
}

// DefaultAppliances returns the household the dashboard starts with, with
// initial power drawn from each device's typical range.
func DefaultAppliances(src random.Source) []models.Appliance {
	appliances := make([]models.Appliance, len(seedAppliances))
	for i, s := range seedAppliances {
		appliances[i] = models.Appliance{
			ID:             i + 1,
			Name:           s.name,
			Icon:           s.icon,
			Category:       s.category,
			Location:       s.location,
			CurrentPowerKW: random.Between(src, s.minPower, s.maxPower),
			IsOn:           s.isOn,
			IsSmartDevice:  s.isSmart,
			History:        []models.EnergyEntry{},
			DailyUsage:     s.daily,
			MonthlyUsage:   s.monthly,
		}
	}
	return appliances
}

// DefaultNotifications returns the back-dated notifications shown on first
// load.
func DefaultNotifications(now time.Time) []models.Notification {
	ago := func(d time.Duration) time.Time { return now.Add(-d) }
	const day = 24 * time.Hour
	return []models.Notification{
		{ID: 1, Title: "Energy Budget Alert", Message: "You're approaching 90% of your daily energy budget.",
			Timestamp: ago(10 * time.Minute), Type: models.NotificationWarning, ActionURL: "/budget", ActionText: "View Budget"},
		{ID: 2, Title: "Refrigerator Energy Spike", Message: "Your refrigerator is consuming 30% more energy than usual.",
			Timestamp: ago(time.Hour), Type: models.NotificationAlert, ActionURL: "/appliances/1", ActionText: "Check Appliance"},
		{ID: 3, Title: "Energy Saving Tip", Message: "Lowering your thermostat by 1°F could save up to 3% on heating costs.",
			Timestamp: ago(3 * time.Hour), Type: models.NotificationInfo, IsRead: true},
		{ID: 4, Title: "Monthly Report Available", Message: "Your April energy report is now available to view.",
			Timestamp: ago(day), Type: models.NotificationInfo, IsRead: true, ActionURL: "/reports", ActionText: "View Report"},
		{ID: 5, Title: "Energy Goal Achieved", Message: "Congratulations! You met your energy reduction goal this week.",
			Timestamp: ago(2 * day), Type: models.NotificationSuccess, IsRead: true},
		{ID: 6, Title: "New Device Detected", Message: "A new smart device has been detected on your network: Smart Thermostat.",
			Timestamp: ago(3 * day), Type: models.NotificationInfo, IsRead: true, ActionURL: "/devices/new", ActionText: "Configure Device"},
		{ID: 7, Title: "Peak Energy Hours", Message: "Energy rates will be higher between 4-7 PM today. Consider reducing usage during this time.",
			Timestamp: ago(4 * time.Hour), Type: models.NotificationWarning},
		{ID: 8, Title: "Air Conditioner Maintenance", Message: "Your air conditioner filter may need cleaning based on recent usage patterns.",
			Timestamp: ago(5 * day), Type: models.NotificationInfo, IsRead: true},
	}
}
