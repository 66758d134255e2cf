package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/watt-guardian/internal/models"
	"github.com/xaenox/watt-guardian/internal/telemetry"
)

func TestMemoryStorageConversation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(3)

	state, err := s.DialogueState(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, models.DialogueIdle, state)

	for _, text := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.AppendMessage(ctx, models.Message{ConversationID: "c1", Text: text}))
	}
	msgs, err := s.Messages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "b", msgs[0].Text)

	msgs[0].Text = "changed"
	again, _ := s.Messages(ctx, "c1")
	require.Equal(t, "b", again[0].Text)

	require.NoError(t, s.SetDialogueState(ctx, "c1", models.DialogueAwaitingScheduleConfirmation))
	state, _ = s.DialogueState(ctx, "c1")
	require.Equal(t, models.DialogueAwaitingScheduleConfirmation, state)

	empty, err := s.Messages(ctx, "other")
	require.NoError(t, err)
	require.Empty(t, empty)

	require.NoError(t, s.ClearConversation(ctx, "c1"))
	msgs, _ = s.Messages(ctx, "c1")
	require.Empty(t, msgs)
	state, _ = s.DialogueState(ctx, "c1")
	require.Equal(t, models.DialogueIdle, state)
}

func TestMemoryStoragePruneIdle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(0)
	require.NoError(t, s.AppendMessage(ctx, models.Message{ConversationID: "old"}))

	require.Zero(t, s.PruneIdle(time.Now().Add(-time.Hour)))
	require.Equal(t, 1, s.PruneIdle(time.Now().Add(time.Second)))
	msgs, _ := s.Messages(ctx, "old")
	require.Empty(t, msgs)
}

func newMockArchive(t *testing.T) (*PostgresArchive, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS energy_entries").
		WillReturnResult(sqlmock.NewResult(0, 0))
	archive, err := NewPostgresArchiveFromDB(db)
	require.NoError(t, err)
	return archive, mock
}

func TestPostgresArchiveBatchesSamples(t *testing.T) {
	archive, mock := newMockArchive(t)
	ts := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO energy_entries (appliance_id, appliance_name, ts, energy_kwh, power_kw) VALUES ($1, $2, $3, $4, $5), ($6, $7, $8, $9, $10)")).
		WithArgs(1, "Refrigerator", ts, 0.05, 0.2, 3, "Heater", ts, 0.3, 1.2).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := archive.Write(context.Background(), telemetry.Event{
		Kind: telemetry.EventSamples,
		At:   ts,
		Samples: []telemetry.Sample{
			{ApplianceID: 1, ApplianceName: "Refrigerator", Entry: models.EnergyEntry{Timestamp: ts, EnergyKWh: 0.05, PowerKW: 0.2}},
			{ApplianceID: 3, ApplianceName: "Heater", Entry: models.EnergyEntry{Timestamp: ts, EnergyKWh: 0.3, PowerKW: 1.2}},
		},
	})
	require.NoError(t, err)

	require.NoError(t, archive.Write(context.Background(), telemetry.Event{Kind: telemetry.EventSamples}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresArchiveNotification(t *testing.T) {
	archive, mock := newMockArchive(t)
	ts := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	n := &models.Notification{ID: 42, Title: "Heater Turned Off", Message: "saved", Type: models.NotificationSuccess, Timestamp: ts}

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(int64(42), "Heater Turned Off", "saved", "success", ts).
		WillReturnError(errors.New("connection reset"))

	err := archive.Write(context.Background(), telemetry.Event{Kind: telemetry.EventNotification, Notification: n})
	require.ErrorContains(t, err, "notification 42")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresArchiveSchemaFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	_, err = NewPostgresArchiveFromDB(db)
	require.ErrorContains(t, err, "permission denied")
}
