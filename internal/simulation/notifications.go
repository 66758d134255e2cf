package simulation

import (
	"sort"
	"time"

	"github.com/xaenox/watt-guardian/internal/energy"
	"github.com/xaenox/watt-guardian/internal/models"
	"github.com/xaenox/watt-guardian/internal/telemetry"
)

type SortOrder string

const (
	NewestFirst SortOrder = "newest"
	OldestFirst SortOrder = "oldest"
)

// Notifications lists the notifications on tab in the requested order.
func (e *Engine) Notifications(tab models.NotificationTab, order SortOrder) []models.Notification {
	all := e.current.Load().notifications
	list := make([]models.Notification, 0, len(all))
	for _, n := range all {
		if tab.Includes(n) {
			list = append(list, n)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if order == OldestFirst {
			return list[i].Timestamp.Before(list[j].Timestamp)
		}
		return list[i].Timestamp.After(list[j].Timestamp)
	})
	return list
}

// Notify records a notification raised outside the simulation, such as a
// user request.
func (e *Engine) Notify(title, message string, t models.NotificationType) models.Notification {
	var created models.Notification
	e.update(func(s *state, now time.Time) []telemetry.Event {
		ev := notify(s, now, models.Notification{Title: title, Message: message, Type: t})
		created = *ev.Notification
		return []telemetry.Event{ev}
	})
	return created
}

func (e *Engine) MarkNotificationRead(id int64) {
	e.setRead(id, true)
}

func (e *Engine) MarkNotificationUnread(id int64) {
	e.setRead(id, false)
}

func (e *Engine) setRead(id int64, read bool) {
	e.update(func(s *state, _ time.Time) []telemetry.Event {
		if n := s.notification(id); n != nil {
			n.IsRead = read
		}
		return nil
	})
}

// MarkAllRead marks every notification read, as closing the panel does.
func (e *Engine) MarkAllRead() {
	e.update(func(s *state, _ time.Time) []telemetry.Event {
		for i := range s.notifications {
			s.notifications[i].IsRead = true
		}
		return nil
	})
}

func (e *Engine) DeleteNotification(id int64) {
	e.update(func(s *state, _ time.Time) []telemetry.Event {
		kept := s.notifications[:0]
		for _, n := range s.notifications {
			if n.ID != id {
				kept = append(kept, n)
			}
		}
		s.notifications = kept
		return nil
	})
}

func (e *Engine) ClearNotifications() {
	e.update(func(s *state, _ time.Time) []telemetry.Event {
		s.notifications = []models.Notification{}
		return nil
	})
}

// RefreshNotificationTimes recomputes the relative time labels. Timestamps
// and read flags are left alone.
func (e *Engine) RefreshNotificationTimes() {
	e.update(func(s *state, now time.Time) []telemetry.Event {
		for i := range s.notifications {
			s.notifications[i].Time = energy.RelativeTime(s.notifications[i].Timestamp, now)
		}
		return nil
	})
}
