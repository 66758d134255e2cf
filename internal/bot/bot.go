// Package bot is the Telegram front end for the dashboard. Free text goes
// to the assistant; slash commands read the engine directly.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xaenox/watt-guardian/internal/energy"
	"github.com/xaenox/watt-guardian/internal/models"
	"github.com/xaenox/watt-guardian/internal/simulation"
)

const maxListedNotifications = 5

type Engine interface {
	Snapshot() models.Snapshot
	SetBudget(kwh float64) error
	Notifications(tab models.NotificationTab, order simulation.SortOrder) []models.Notification
}

type Chat interface {
	Send(ctx context.Context, conversationID, text string) (models.Message, error)
	Welcome(ctx context.Context, conversationID string) (models.Message, error)
	Reset(ctx context.Context, conversationID string) (models.Message, error)
}

// botAPI is the part of *tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type RateConfig struct {
	MessagesPerSecond float64
	Burst             int
}

type Bot struct {
	api    botAPI
	engine Engine
	chat   Chat
	logger *zap.Logger

	rate     RateConfig
	mu       sync.Mutex
	limiters map[int64]*chatLimiter
	now      func() time.Time
	wg       sync.WaitGroup
}

type chatLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

func New(token string, engine Engine, chat Chat, rateCfg RateConfig, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))
	return newBot(api, engine, chat, rateCfg, logger), nil
}

func newBot(api botAPI, engine Engine, chat Chat, rateCfg RateConfig, logger *zap.Logger) *Bot {
	if rateCfg.MessagesPerSecond <= 0 {
		rateCfg.MessagesPerSecond = 1
	}
	if rateCfg.Burst <= 0 {
		rateCfg.Burst = 5
	}
	return &Bot{
		api:      api,
		engine:   engine,
		chat:     chat,
		logger:   logger,
		rate:     rateCfg,
		limiters: make(map[int64]*chatLimiter),
		now:      time.Now,
	}
}

// Start consumes updates until ctx is cancelled, then waits for in-flight
// messages to finish.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(m *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleMessage(ctx, m)
			}(update.Message)
		}
	}
}

func (b *Bot) limiter(chatID int64) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.limiters[chatID]
	if !ok {
		l = &chatLimiter{Limiter: rate.NewLimiter(rate.Limit(b.rate.MessagesPerSecond), b.rate.Burst)}
		b.limiters[chatID] = l
	}
	l.lastSeen = b.now()
	return l.Limiter
}

// PruneLimiters forgets the rate limiters of chats silent since before
// cutoff and reports how many were removed.
func (b *Bot) PruneLimiters(cutoff time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for id, l := range b.limiters {
		if l.lastSeen.Before(cutoff) {
			delete(b.limiters, id)
			n++
		}
	}
	return n
}

func conversationID(chatID int64) string {
	return "tg-" + strconv.FormatInt(chatID, 10)
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !b.limiter(chatID).Allow() {
		b.logger.Warn("Rate limited chat", zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "You're sending messages too quickly. Please wait a moment.")
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	text := message.Text
	if text == "" {
		text = message.Caption
	}
	if strings.TrimSpace(text) == "" {
		b.sendMessage(chatID, "I can only read text messages.")
		return
	}

	b.sendTyping(chatID)
	reply, err := b.chat.Send(ctx, conversationID(chatID), text)
	if err != nil {
		b.logger.Error("Failed to answer message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Sorry, I couldn't process your message. Please try again.")
		return
	}
	b.sendReply(chatID, message.MessageID, reply)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(ctx, message)
	case "help":
		b.sendMessage(message.Chat.ID, helpText)
	case "devices":
		b.sendMarkdown(message.Chat.ID, formatDevices(b.engine.Snapshot().Appliances))
	case "usage":
		b.sendMarkdown(message.Chat.ID, formatReport(energy.NewReport(b.engine.Snapshot())))
	case "budget":
		b.handleBudget(message)
	case "notifications":
		unread := b.engine.Notifications(models.TabUnread, simulation.NewestFirst)
		b.sendMarkdown(message.Chat.ID, formatNotifications(unread, maxListedNotifications))
	case "reset":
		b.handleReset(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	welcome, err := b.chat.Welcome(ctx, conversationID(message.Chat.ID))
	if err != nil {
		b.logger.Error("Failed to open conversation",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, something went wrong. Please try again later.")
		return
	}
	b.sendReply(message.Chat.ID, 0, welcome)
}

func (b *Bot) handleReset(ctx context.Context, message *tgbotapi.Message) {
	msg, err := b.chat.Reset(ctx, conversationID(message.Chat.ID))
	if err != nil {
		b.logger.Error("Failed to reset conversation",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't clear the chat history.")
		return
	}
	b.sendReply(message.Chat.ID, 0, msg)
}

func (b *Bot) handleBudget(message *tgbotapi.Message) {
	kwh, err := parseBudget(message.CommandArguments())
	if err == nil {
		err = b.engine.SetBudget(kwh)
	}
	if err != nil {
		b.sendErrorMessage(message.Chat.ID, "Usage: /budget <kWh>, for example /budget 15")
		return
	}
	snap := b.engine.Snapshot()
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Daily budget set to %.1f kWh (about %.2f at the current rate).", kwh, snap.CostBudget))
}

func parseBudget(arg string) (float64, error) {
	kwh, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil {
		return 0, err
	}
	return kwh, models.ValidateBudget(kwh)
}

func (b *Bot) sendTyping(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug("Failed to send chat action", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendReply(chatID int64, replyToID int, reply models.Message) {
	msg := tgbotapi.NewMessage(chatID, formatReply(reply))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyToMessageID = replyToID
	if kb, ok := suggestionKeyboard(reply.Suggestions); ok {
		msg.ReplyMarkup = kb
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send reply",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	b.sendMessage(chatID, "⚠️ "+text)
}
