package models

import (
	"errors"
	"math"
	"time"
)

var (
	ErrInvalidBudget = errors.New("budget must be a positive number")
	ErrInvalidRate   = errors.New("energy rate must be a positive number")
)

// ValidateBudget rejects non-positive and non-finite daily budgets.
func ValidateBudget(kwh float64) error {
	if !isPositiveFinite(kwh) {
		return ErrInvalidBudget
	}
	return nil
}

// ValidateRate rejects non-positive and non-finite energy rates.
func ValidateRate(rate float64) error {
	if !isPositiveFinite(rate) {
		return ErrInvalidRate
	}
	return nil
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type ReplyKind string

const (
	KindText       ReplyKind = "text"
	KindChart      ReplyKind = "chart"
	KindSuggestion ReplyKind = "suggestion"
	KindError      ReplyKind = "error"
	KindSuccess    ReplyKind = "success"
)

// ChartPoint is one labelled bar of a chart payload. Order is significant.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Reply is what the assistant returns for one user message
type Reply struct {
	Text        string       `json:"text"`
	Kind        ReplyKind    `json:"kind"`
	ChartData   []ChartPoint `json:"chart_data,omitempty"`
	Suggestions []string     `json:"suggestions,omitempty"`
}

// Message represents one entry of a conversation log
type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	Sender         Sender       `json:"sender"`
	Text           string       `json:"text"`
	Kind           ReplyKind    `json:"kind"`
	ChartData      []ChartPoint `json:"chart_data,omitempty"`
	Suggestions    []string     `json:"suggestions,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// DialogueState is the one piece of context carried between replies.
type DialogueState int

const (
	DialogueIdle DialogueState = iota
	DialogueAwaitingScheduleConfirmation
)

func (s DialogueState) String() string {
	switch s {
	case DialogueAwaitingScheduleConfirmation:
		return "awaiting_schedule_confirmation"
	default:
		return "idle"
	}
}

type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
)

// Snapshot is a read-only view of the dashboard state. Slices are copies
// and may be modified by the caller.
type Snapshot struct {
	Status            Status         `json:"status"`
	Appliances        []Appliance    `json:"appliances"`
	TotalUsage        float64        `json:"total_usage_kwh"`
	Budget            *float64       `json:"budget_kwh"`
	EnergyRate        float64        `json:"energy_rate"`
	Notifications     []Notification `json:"notifications"`
	UnreadCount       int            `json:"unread_count"`
	BudgetAlert       bool           `json:"budget_alert"`
	TotalCurrentPower float64        `json:"total_current_power_kw"`
	CostBudget        float64        `json:"cost_budget"`
	TakenAt           time.Time      `json:"taken_at"`
}

// Appliance looks up an appliance by id.
func (s Snapshot) Appliance(id int) (Appliance, bool) {
	for _, a := range s.Appliances {
		if a.ID == id {
			return a, true
		}
	}
	return Appliance{}, false
}
