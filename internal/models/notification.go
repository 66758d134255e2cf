package models

import "time"

type NotificationType string

const (
	NotificationWarning NotificationType = "warning"
	NotificationAlert   NotificationType = "alert"
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
)

// IsAlert reports whether t belongs on the alerts tab.
func (t NotificationType) IsAlert() bool {
	return t == NotificationWarning || t == NotificationAlert
}

// Notification is a user-facing event record. Time is a relative label
// derived from Timestamp and refreshed periodically.
type Notification struct {
	ID         int64            `json:"id"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	Type       NotificationType `json:"type"`
	Timestamp  time.Time        `json:"timestamp"`
	Time       string           `json:"time"`
	IsRead     bool             `json:"is_read"`
	ActionURL  string           `json:"action_url,omitempty"`
	ActionText string           `json:"action_text,omitempty"`
}

// NotificationTab selects a subset of notifications for listing.
type NotificationTab string

const (
	TabAll    NotificationTab = "all"
	TabUnread NotificationTab = "unread"
	TabAlerts NotificationTab = "alerts"
)

// Includes reports whether n is shown on tab. Unknown tabs show everything.
func (tab NotificationTab) Includes(n Notification) bool {
	switch tab {
	case TabUnread:
		return !n.IsRead
	case TabAlerts:
		return n.Type.IsAlert()
	default:
		return true
	}
}
