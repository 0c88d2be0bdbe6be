package usecases

import (
	"github.com/edibleworks/gift-concierge/internal/domain"
)

const (
	// Rough token estimation: ~4 chars per token.
	charsPerToken      = 4
	maxEstimatedTokens = 80000
	minKeptMessages    = 10
)

// BuildProviderHistory converts the frontend conversation into provider
// messages. Only user and assistant turns are kept; anything else the
// frontend sends along is dropped.
func BuildProviderHistory(messages []domain.ClientMessage) []domain.ProviderMessage {
	history := make([]domain.ProviderMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role != domain.ChatRole_User && msg.Role != domain.ChatRole_Assistant {
			continue
		}
		history = append(history, domain.ProviderMessage{
			Role:    msg.Role,
			Content: msg.Text(),
		})
	}
	return history
}

// estimateTokens estimates the token count of a message list from its
// character length.
func estimateTokens(messages []domain.ProviderMessage) int {
	chars := 0
	for _, m := range messages {
		chars += len(m.Role) + len(m.Content)
	}
	return chars / charsPerToken
}

// trimConversation drops middle history once the estimate exceeds the
// context budget, preserving the first message and the most recent 60%
// (at least 10 messages).
func trimConversation(messages []domain.ProviderMessage) []domain.ProviderMessage {
	if estimateTokens(messages) <= maxEstimatedTokens {
		return messages
	}

	keepLast := max(minKeptMessages, len(messages)*6/10)
	if keepLast+1 >= len(messages) {
		return messages
	}

	trimmed := make([]domain.ProviderMessage, 0, keepLast+1)
	trimmed = append(trimmed, messages[0])
	trimmed = append(trimmed, messages[len(messages)-keepLast:]...)
	return trimmed
}
