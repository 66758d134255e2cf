package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xaenox/watt-guardian/internal/models"
	"github.com/xaenox/watt-guardian/internal/random"
)

func TestNotificationIDsAreMonotonic(t *testing.T) {
	e, _ := newReadyEngine(t, DefaultConfig(), nil, random.NewSequence(0.5))

	a := e.Notify("A", "first", models.NotificationInfo)
	b := e.Notify("B", "second", models.NotificationInfo)
	c := e.Notify("C", "third", models.NotificationInfo)

	require.Equal(t, start.UnixMilli(), a.ID)
	require.Greater(t, b.ID, a.ID)
	require.Greater(t, c.ID, b.ID)
	require.Equal(t, "Just now", c.Time)
}

func TestNotificationCommands(t *testing.T) {
	e, clock := newReadyEngine(t, DefaultConfig(), nil, random.NewSequence(0.5))

	warn := e.Notify("Peak Energy Hours", "rates are higher", models.NotificationWarning)
	clock.Advance(time.Minute)
	info := e.Notify("Tip", "use LEDs", models.NotificationInfo)
	clock.Advance(time.Minute)
	alert := e.Notify("Heater High Power Alert", "high", models.NotificationAlert)

	require.Equal(t, 3, e.Snapshot().UnreadCount)

	e.MarkNotificationRead(info.ID)
	require.Equal(t, []int64{alert.ID, warn.ID}, ids(e.Notifications(models.TabUnread, NewestFirst)))

	e.MarkNotificationUnread(info.ID)
	require.Equal(t, 3, e.Snapshot().UnreadCount)

	require.Equal(t, []int64{warn.ID, alert.ID}, ids(e.Notifications(models.TabAlerts, OldestFirst)))
	require.Equal(t, []int64{alert.ID, info.ID, warn.ID}, ids(e.Notifications(models.TabAll, NewestFirst)))

	e.DeleteNotification(info.ID)
	e.DeleteNotification(12345)
	require.Len(t, e.Snapshot().Notifications, 2)

	e.MarkAllRead()
	require.Zero(t, e.Snapshot().UnreadCount)

	e.ClearNotifications()
	require.Empty(t, e.Snapshot().Notifications)
}

func TestRefreshNotificationTimesOnlyTouchesLabels(t *testing.T) {
	e, clock := newReadyEngine(t, DefaultConfig(), nil, random.NewSequence(0.5))
	n := e.Notify("Tip", "use LEDs", models.NotificationInfo)
	e.MarkNotificationRead(n.ID)

	clock.Advance(2 * time.Hour)
	e.RefreshNotificationTimes()

	got := e.Snapshot().Notifications[0]
	require.Equal(t, "2 hours ago", got.Time)
	require.Equal(t, n.Timestamp, got.Timestamp)
	require.True(t, got.IsRead)
}

func ids(list []models.Notification) []int64 {
	out := make([]int64, len(list))
	for i, n := range list {
		out[i] = n.ID
	}
	return out
}
