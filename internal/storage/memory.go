package storage

import (
	"context"
	"sync"
	"time"

	"github.com/xaenox/watt-guardian/internal/models"
)

const DefaultMaxMessages = 200

type conversation struct {
	messages   []models.Message
	state      models.DialogueState
	lastUsedAt time.Time
}

// MemoryStorage keeps conversations for the lifetime of the process. Each
// conversation retains its most recent maxMessages messages.
type MemoryStorage struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	maxMessages   int
}

func NewMemoryStorage(maxMessages int) *MemoryStorage {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &MemoryStorage{
		conversations: make(map[string]*conversation),
		maxMessages:   maxMessages,
	}
}

func (s *MemoryStorage) get(id string) *conversation {
	c, exists := s.conversations[id]
	if !exists {
		c = &conversation{}
		s.conversations[id] = c
	}
	c.lastUsedAt = time.Now()
	return c
}

func (s *MemoryStorage) AppendMessage(ctx context.Context, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(msg.ConversationID)
	c.messages = append(c.messages, msg)
	if over := len(c.messages) - s.maxMessages; over > 0 {
		c.messages = append([]models.Message(nil), c.messages[over:]...)
	}
	return nil
}

func (s *MemoryStorage) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, exists := s.conversations[conversationID]; exists {
		return append([]models.Message(nil), c.messages...), nil
	}
	return []models.Message{}, nil
}

func (s *MemoryStorage) ClearConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, conversationID)
	return nil
}

func (s *MemoryStorage) DialogueState(ctx context.Context, conversationID string) (models.DialogueState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, exists := s.conversations[conversationID]; exists {
		return c.state, nil
	}
	return models.DialogueIdle, nil
}

func (s *MemoryStorage) SetDialogueState(ctx context.Context, conversationID string, state models.DialogueState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.get(conversationID).state = state
	return nil
}

// PruneIdle drops conversations unused since before cutoff and reports how
// many were removed.
func (s *MemoryStorage) PruneIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.conversations {
		if c.lastUsedAt.Before(cutoff) {
			delete(s.conversations, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
