package simulation

import (
	"time"

	"github.com/xaenox/watt-guardian/internal/models"
)

// state is never mutated once published; every update works on a clone.
type state struct {
	status             models.Status
	appliances         []models.Appliance
	budget             *float64
	energyRate         float64
	notifications      []models.Notification // newest first
	nextApplianceID    int
	lastNotificationID int64
}

func (s *state) clone() *state {
	c := *s
	// History slices are shared: they are only ever replaced, never
	// written in place.
	c.appliances = make([]models.Appliance, len(s.appliances))
	copy(c.appliances, s.appliances)
	c.notifications = make([]models.Notification, len(s.notifications))
	copy(c.notifications, s.notifications)
	if s.budget != nil {
		b := *s.budget
		c.budget = &b
	}
	return &c
}

func (s *state) appliance(id int) *models.Appliance {
	for i := range s.appliances {
		if s.appliances[i].ID == id {
			return &s.appliances[i]
		}
	}
	return nil
}

func (s *state) notification(id int64) *models.Notification {
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			return &s.notifications[i]
		}
	}
	return nil
}

// hasUnread reports whether an unread notification satisfies match.
func (s *state) hasUnread(match func(models.Notification) bool) bool {
	for _, n := range s.notifications {
		if !n.IsRead && match(n) {
			return true
		}
	}
	return false
}

// push prepends a notification with a time-derived id that is strictly
// greater than every id issued before.
func (s *state) push(n models.Notification, now time.Time) models.Notification {
	id := now.UnixMilli()
	if id <= s.lastNotificationID {
		id = s.lastNotificationID + 1
	}
	s.lastNotificationID = id

	n.ID = id
	n.Timestamp = now
	n.Time = "Just now"
	n.IsRead = false
	s.notifications = append([]models.Notification{n}, s.notifications...)
	return n
}
