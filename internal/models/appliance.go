package models

import (
	"strings"
	"time"
)

// EnergyEntry is one telemetry sample in an appliance history.
type EnergyEntry struct {
	Timestamp time.Time `json:"timestamp"`
	EnergyKWh float64   `json:"energy_kwh"`
	PowerKW   float64   `json:"power_kw,omitempty"`
}

// Appliance represents a monitored device with its power and usage telemetry
type Appliance struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	Icon           Icon          `json:"icon"`
	Category       string        `json:"category,omitempty"`
	Location       string        `json:"location,omitempty"`
	CurrentPowerKW float64       `json:"current_power_kw"`
	IsOn           bool          `json:"is_on"`
	IsSmartDevice  bool          `json:"is_smart_device"`
	History        []EnergyEntry `json:"history,omitempty"`
	DailyUsage     float64       `json:"daily_usage"`
	MonthlyUsage   float64       `json:"monthly_usage"`
}

// Clone returns a copy that shares no history storage with a.
func (a Appliance) Clone() Appliance {
	c := a
	c.History = make([]EnergyEntry, len(a.History))
	copy(c.History, a.History)
	return c
}

// DeviceSpec carries the caller-supplied fields for a new appliance.
type DeviceSpec struct {
	Name          string `json:"name"`
	Icon          Icon   `json:"icon"`
	Category      string `json:"category"`
	Location      string `json:"location"`
	IsSmartDevice bool   `json:"is_smart_device"`
}

// Normalize trims the fields and fills the category from the icon when it
// was left empty.
func (s DeviceSpec) Normalize() DeviceSpec {
	s.Name = strings.TrimSpace(s.Name)
	s.Category = strings.TrimSpace(s.Category)
	s.Location = strings.TrimSpace(s.Location)
	if !s.Icon.Valid() {
		s.Icon = IconPlug
	}
	if s.Category == "" {
		s.Category = s.Icon.DefaultCategory()
	}
	return s
}

// Icon identifies the renderer glyph for an appliance. The set is closed;
// anything outside it resolves to IconPlug.
type Icon string

const (
	IconLightbulb    Icon = "Lightbulb"
	IconTv           Icon = "Tv"
	IconFan          Icon = "Fan"
	IconRefrigerator Icon = "Refrigerator"
	IconUtensils     Icon = "Utensils"
	IconFlame        Icon = "Flame"
	IconShirt        Icon = "Shirt"
	IconSmartphone   Icon = "Smartphone"
	IconLaptop       Icon = "Laptop"
	IconCpu          Icon = "Cpu"
	IconPlug         Icon = "Plug"
	IconDroplets     Icon = "Droplets"
)

var iconCategories = map[Icon]string{
	IconLightbulb:    "lighting",
	IconTv:           "entertainment",
	IconFan:          "cooling",
	IconRefrigerator: "kitchen",
	IconUtensils:     "kitchen",
	IconFlame:        "heating",
	IconShirt:        "laundry",
	IconSmartphone:   "electronics",
	IconLaptop:       "electronics",
	IconCpu:          "electronics",
	IconPlug:         "other",
	IconDroplets:     "utility",
}

// ParseIcon resolves a case-insensitive icon name. The boolean is false
// when the name is unknown, in which case IconPlug is returned.
func ParseIcon(name string) (Icon, bool) {
	name = strings.TrimSpace(name)
	for icon := range iconCategories {
		if strings.EqualFold(string(icon), name) {
			return icon, true
		}
	}
	return IconPlug, false
}

func (i Icon) Valid() bool {
	_, ok := iconCategories[i]
	return ok
}

// DefaultCategory is the category the add-device flow preselects for i.
func (i Icon) DefaultCategory() string {
	if c, ok := iconCategories[i]; ok {
		return c
	}
	return "other"
}

func (i *Icon) UnmarshalText(text []byte) error {
	*i, _ = ParseIcon(string(text))
	return nil
}
