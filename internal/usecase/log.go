package usecase

import (
	"strings"

	"github.com/google/uuid"

	"repotalk/internal/domain"
)

// conversationLog is the append-only turn record. It has no locking of its
// own: the owning controller's mutex guards every mutation and read.
type conversationLog struct {
	messages []domain.Message
}

func (l *conversationLog) append(role domain.Role, content string) domain.Message {
	message := domain.Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	}
	l.messages = append(l.messages, message)
	return message
}

func (l *conversationLog) snapshot() []domain.Message {
	out := make([]domain.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *conversationLog) size() int {
	return len(l.messages)
}

// welcomeMessage builds the assistant turn that seeds a fresh conversation
// after a successful ingestion.
func welcomeMessage(repoURL string) string {
	name := repoDisplayName(repoURL)
	return "Repository ingested successfully! I'm ready to answer questions about " +
		name + ". What would you like to know?"
}

func repoDisplayName(repoURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(repoURL), "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(trimmed, ".git")
	if trimmed == "" {
		return "this repository"
	}
	return trimmed
}
