package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/watt-guardian/internal/classifier"
	"github.com/xaenox/watt-guardian/internal/models"
	"github.com/xaenox/watt-guardian/internal/storage"
)

var ErrEmptyMessage = errors.New("message is empty")

const clearedText = "Chat history cleared. How can I help you today?"

// Engine is the part of the simulation the assistant reads and commands.
type Engine interface {
	Snapshot() models.Snapshot
	ToggleApplianceState(id int, isOn bool)
}

type Metrics interface {
	ChatReplied(intent string, latency time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ChatReplied(string, time.Duration) {}

// Service is the chat entry point shared by every transport. Messages are
// handled one at a time so a reply is complete before the next input is
// read.
type Service struct {
	engine    Engine
	responder *Responder
	store     storage.ConversationStore
	metrics   Metrics
	now       func() time.Time
	logger    *zap.Logger

	mu sync.Mutex
}

func NewService(engine Engine, responder *Responder, store storage.ConversationStore, metrics Metrics, logger *zap.Logger) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		engine:    engine,
		responder: responder,
		store:     store,
		metrics:   metrics,
		now:       time.Now,
		logger:    logger,
	}
}

// Send records the user's message, evaluates it against the current
// snapshot and returns the stored bot reply.
func (s *Service) Send(ctx context.Context, conversationID, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	state, err := s.store.DialogueState(ctx, conversationID)
	if err != nil {
		return models.Message{}, fmt.Errorf("load dialogue state: %w", err)
	}

	user := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         models.SenderUser,
		Text:           text,
		Kind:           models.KindText,
		CreatedAt:      start,
	}
	if err := s.store.AppendMessage(ctx, user); err != nil {
		return models.Message{}, fmt.Errorf("save user message: %w", err)
	}

	resp := s.responder.Respond(ctx, Request{
		Text:     text,
		Snapshot: s.engine.Snapshot(),
		State:    state,
	}, s.engine)

	bot := s.botMessage(conversationID, resp.Reply)
	if err := s.store.AppendMessage(ctx, bot); err != nil {
		return models.Message{}, fmt.Errorf("save reply: %w", err)
	}
	if err := s.store.SetDialogueState(ctx, conversationID, resp.Next); err != nil {
		return models.Message{}, fmt.Errorf("save dialogue state: %w", err)
	}

	latency := s.now().Sub(start)
	s.metrics.ChatReplied(string(resp.Intent), latency)
	s.logger.Info("Chat reply",
		zap.String("conversation_id", conversationID),
		zap.String("intent", string(resp.Intent)),
		zap.String("kind", string(resp.Reply.Kind)),
		zap.Stringer("next_state", resp.Next),
		zap.Duration("latency", latency))
	return bot, nil
}

// Welcome opens a conversation with the greeting. An existing conversation
// is left alone and its last message is returned.
func (s *Service) Welcome(ctx context.Context, conversationID string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.store.Messages(ctx, conversationID)
	if err != nil {
		return models.Message{}, fmt.Errorf("load history: %w", err)
	}
	if len(history) > 0 {
		return history[len(history)-1], nil
	}
	msg := s.botMessage(conversationID, Welcome())
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return models.Message{}, fmt.Errorf("save welcome: %w", err)
	}
	return msg, nil
}

// Reset clears the conversation log and dialogue state.
func (s *Service) Reset(ctx context.Context, conversationID string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ClearConversation(ctx, conversationID); err != nil {
		return models.Message{}, fmt.Errorf("clear conversation: %w", err)
	}
	msg := s.botMessage(conversationID, models.Reply{
		Text:        clearedText,
		Kind:        models.KindText,
		Suggestions: classifier.StarterSuggestions(),
	})
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return models.Message{}, fmt.Errorf("save reset message: %w", err)
	}
	return msg, nil
}

func (s *Service) History(ctx context.Context, conversationID string) ([]models.Message, error) {
	return s.store.Messages(ctx, conversationID)
}

func (s *Service) botMessage(conversationID string, reply models.Reply) models.Message {
	return models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         models.SenderBot,
		Text:           reply.Text,
		Kind:           reply.Kind,
		ChartData:      reply.ChartData,
		Suggestions:    reply.Suggestions,
		CreatedAt:      s.now(),
	}
}
