package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/watt-guardian/internal/energy"
	"github.com/xaenox/watt-guardian/internal/models"
	"github.com/xaenox/watt-guardian/internal/simulation"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests int
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fakeEngine struct {
	snap   models.Snapshot
	budget float64
}

func (f *fakeEngine) Snapshot() models.Snapshot { return f.snap }

func (f *fakeEngine) SetBudget(kwh float64) error {
	if err := models.ValidateBudget(kwh); err != nil {
		return err
	}
	f.budget = kwh
	f.snap.Budget = &kwh
	f.snap.CostBudget = kwh * f.snap.EnergyRate
	return nil
}

func (f *fakeEngine) Notifications(tab models.NotificationTab, _ simulation.SortOrder) []models.Notification {
	var out []models.Notification
	for _, n := range f.snap.Notifications {
		if tab.Includes(n) {
			out = append(out, n)
		}
	}
	return out
}

type fakeChat struct {
	conversations []string
	err           error
}

func (f *fakeChat) Send(_ context.Context, id, text string) (models.Message, error) {
	f.conversations = append(f.conversations, id)
	if f.err != nil {
		return models.Message{}, f.err
	}
	return models.Message{
		ConversationID: id,
		Sender:         models.SenderBot,
		Text:           "You said: " + text,
		Kind:           models.KindText,
		Suggestions:    []string{"Show me my usage"},
	}, nil
}

func (f *fakeChat) Welcome(_ context.Context, id string) (models.Message, error) {
	return models.Message{ConversationID: id, Text: "Hello!", Kind: models.KindText}, nil
}

func (f *fakeChat) Reset(_ context.Context, id string) (models.Message, error) {
	return models.Message{ConversationID: id, Text: "Cleared.", Kind: models.KindText}, nil
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI, *fakeEngine, *fakeChat) {
	t.Helper()
	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	engine := &fakeEngine{snap: models.Snapshot{
		EnergyRate: 20,
		Appliances: []models.Appliance{
			{ID: 1, Name: "Heater", Location: "Living Room", IsOn: true, CurrentPowerKW: 1.25, Category: "heating", DailyUsage: 8},
			{ID: 2, Name: "Dishwasher", Location: "Kitchen", Category: "kitchen", DailyUsage: 1.5},
		},
		Notifications: []models.Notification{
			{ID: 1, Title: "Energy Budget Alert", Message: "Over 90%.", Type: models.NotificationWarning},
			{ID: 2, Title: "Old news", Message: "Read already.", Type: models.NotificationInfo, IsRead: true},
		},
	}}
	chat := &fakeChat{}
	b := newBot(api, engine, chat, RateConfig{MessagesPerSecond: 100, Burst: 100}, zap.NewNop())
	return b, api, engine, chat
}

func textMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: chatID}, Text: text}
}

func commandMessage(chatID int64, text string) *tgbotapi.Message {
	m := textMessage(chatID, text)
	length := len(text)
	if i := strings.Index(text, " "); i >= 0 {
		length = i
	}
	m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	return m
}

func TestTextGoesToAssistant(t *testing.T) {
	b, api, _, chat := newTestBot(t)

	b.handleMessage(context.Background(), textMessage(42, "how much energy?"))

	require.Equal(t, []string{"tg-42"}, chat.conversations)
	msg := api.last(t)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, 7, msg.ReplyToMessageID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, msg.ParseMode)
	assert.Equal(t, "You said: how much energy?", msg.Text)
	_, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	assert.True(t, ok)
	assert.Equal(t, 1, api.requests)
}

func TestAssistantFailureSendsError(t *testing.T) {
	b, api, _, chat := newTestBot(t)
	chat.err = errors.New("store down")

	b.handleMessage(context.Background(), textMessage(1, "hi"))
	assert.True(t, strings.HasPrefix(api.last(t).Text, "⚠️"))
}

func TestBudgetCommand(t *testing.T) {
	b, api, engine, _ := newTestBot(t)

	b.handleMessage(context.Background(), commandMessage(1, "/budget 15"))
	assert.Equal(t, 15.0, engine.budget)
	assert.Contains(t, api.last(t).Text, "15.0 kWh")
	assert.Contains(t, api.last(t).Text, "300.00")

	b.handleMessage(context.Background(), commandMessage(1, "/budget -2"))
	assert.Equal(t, 15.0, engine.budget)
	assert.Contains(t, api.last(t).Text, "Usage: /budget")

	b.handleMessage(context.Background(), commandMessage(1, "/budget"))
	assert.Contains(t, api.last(t).Text, "Usage: /budget")
}

func TestReadOnlyCommands(t *testing.T) {
	b, api, _, _ := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(ctx, commandMessage(1, "/devices"))
	assert.Contains(t, api.last(t).Text, "Heater \\(Living Room\\): on, 1\\.25 kW")
	assert.Contains(t, api.last(t).Text, "Dishwasher \\(Kitchen\\): off")

	b.handleMessage(ctx, commandMessage(1, "/notifications"))
	assert.Contains(t, api.last(t).Text, "Energy Budget Alert")
	assert.NotContains(t, api.last(t).Text, "Old news")

	b.handleMessage(ctx, commandMessage(1, "/start"))
	assert.Equal(t, "Hello\\!", api.last(t).Text)

	b.handleMessage(ctx, commandMessage(1, "/reset"))
	assert.Equal(t, "Cleared\\.", api.last(t).Text)

	b.handleMessage(ctx, commandMessage(1, "/bogus"))
	assert.Contains(t, api.last(t).Text, "Unknown command")
}

func TestRateLimitPerChat(t *testing.T) {
	b, api, _, chat := newTestBot(t)
	b.rate = RateConfig{MessagesPerSecond: 0.001, Burst: 1}

	b.handleMessage(context.Background(), textMessage(1, "one"))
	b.handleMessage(context.Background(), textMessage(1, "two"))
	b.handleMessage(context.Background(), textMessage(2, "three"))

	assert.Equal(t, []string{"tg-1", "tg-2"}, chat.conversations)
	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Contains(t, api.sent[1].Text, "too quickly")
}

func TestStartStopsOnCancel(t *testing.T) {
	b, api, _, chat := newTestBot(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	api.updates <- tgbotapi.Update{Message: textMessage(5, "hello")}
	api.updates <- tgbotapi.Update{}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	api.mu.Lock()
	assert.True(t, api.stopped)
	api.mu.Unlock()
	assert.Equal(t, []string{"tg-5"}, chat.conversations)
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, "1\\.5 kW \\(on\\)\\!", escapeMarkdown("1.5 kW (on)!"))
	assert.Equal(t, "a\\\\b", escapeMarkdown(`a\b`))
}

func TestFormatReplyWithChart(t *testing.T) {
	text := formatReply(models.Message{
		Text: "Here's your usage.",
		Kind: models.KindChart,
		ChartData: []models.ChartPoint{
			{Label: "Kitchen", Value: 4.2},
		},
	})
	assert.Equal(t, "Here's your usage\\.\n\n• Kitchen: 4\\.20 kWh", text)

	assert.True(t, strings.HasPrefix(formatReply(models.Message{Text: "x", Kind: models.KindError}), "⚠️ "))
}

func TestFormatReport(t *testing.T) {
	budget := 10.0
	r := energy.NewReport(models.Snapshot{
		EnergyRate: 20,
		TotalUsage: 5,
		Budget:     &budget,
		Appliances: []models.Appliance{{Name: "Heater", Category: "heating", DailyUsage: 5}},
	})
	text := formatReport(r)
	assert.Contains(t, text, "Total: 5\\.00 kWh \\(100\\.00\\)")
	assert.Contains(t, text, "Budget: 50% of 10\\.0 kWh")
	assert.Contains(t, text, "Heating: 5\\.00 kWh")

	noBudget := formatReport(energy.NewReport(models.Snapshot{EnergyRate: 20}))
	assert.Contains(t, noBudget, "not set")
}

func TestFormatNotificationsLimit(t *testing.T) {
	list := make([]models.Notification, 7)
	for i := range list {
		list[i] = models.Notification{Title: "T", Message: "m"}
	}
	text := formatNotifications(list, 5)
	assert.Contains(t, text, "\\(7\\)")
	assert.Contains(t, text, "\\.\\.\\.and 2 more")
	assert.Contains(t, formatNotifications(nil, 5), "all caught up")
}

func TestPruneLimitersDropsIdleChats(t *testing.T) {
	b, _, _, _ := newTestBot(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.handleMessage(context.Background(), textMessage(1, "early"))
	now = now.Add(time.Hour)
	b.handleMessage(context.Background(), textMessage(2, "late"))

	require.Equal(t, 1, b.PruneLimiters(now.Add(-30*time.Minute)))
	b.mu.Lock()
	_, kept := b.limiters[2]
	_, dropped := b.limiters[1]
	b.mu.Unlock()
	assert.True(t, kept)
	assert.False(t, dropped)
	assert.Zero(t, b.PruneLimiters(now.Add(-30*time.Minute)))
}
