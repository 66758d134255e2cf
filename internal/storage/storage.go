package storage

import (
	"context"

	"github.com/xaenox/watt-guardian/internal/models"
)

// ConversationStore keeps chat logs and the dialogue state of each
// conversation.
type ConversationStore interface {
	AppendMessage(ctx context.Context, msg models.Message) error
	Messages(ctx context.Context, conversationID string) ([]models.Message, error)
	ClearConversation(ctx context.Context, conversationID string) error
	Close() error

	// Embed DialogueStore interface
	DialogueStore
}

type DialogueStore interface {
	DialogueState(ctx context.Context, conversationID string) (models.DialogueState, error)
	SetDialogueState(ctx context.Context, conversationID string, state models.DialogueState) error
}
