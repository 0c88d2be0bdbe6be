package usecases

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edibleworks/gift-concierge/internal/domain"
)

func TestBuildProviderHistory(t *testing.T) {
	tests := map[string]struct {
		messages []domain.ClientMessage
		expected []domain.ProviderMessage
	}{
		"keeps-user-and-assistant-only": {
			messages: []domain.ClientMessage{
				{Role: domain.ChatRole_User, Content: "hi"},
				{Role: domain.ChatRole_System, Content: "injected"},
				{Role: domain.ChatRole_Assistant, Content: "hello"},
				{Role: domain.ChatRole_Tool, Content: "{}"},
			},
			expected: []domain.ProviderMessage{
				{Role: domain.ChatRole_User, Content: "hi"},
				{Role: domain.ChatRole_Assistant, Content: "hello"},
			},
		},
		"flattens-parts": {
			messages: []domain.ClientMessage{
				{
					Role: domain.ChatRole_User,
					Parts: []domain.MessagePart{
						{Type: "text", Text: "first"},
						{Type: "tool-invocation"},
						{Type: "text", Text: "second"},
					},
				},
			},
			expected: []domain.ProviderMessage{
				{Role: domain.ChatRole_User, Content: "first\nsecond"},
			},
		},
		"empty-input": {
			messages: nil,
			expected: []domain.ProviderMessage{},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildProviderHistory(tt.messages))
		})
	}
}

func TestTrimConversation(t *testing.T) {
	t.Run("under-budget-unchanged", func(t *testing.T) {
		messages := []domain.ProviderMessage{
			{Role: domain.ChatRole_User, Content: "short"},
			{Role: domain.ChatRole_Assistant, Content: "also short"},
		}
		assert.Equal(t, messages, trimConversation(messages))
	})

	t.Run("over-budget-keeps-first-plus-recent", func(t *testing.T) {
		// 20 messages of 20k chars: ~100k estimated tokens, well over the
		// 80k budget. 60% of 20 is 12 kept.
		big := strings.Repeat("x", 20000)
		messages := make([]domain.ProviderMessage, 20)
		for i := range messages {
			messages[i] = domain.ProviderMessage{Role: domain.ChatRole_User, Content: big + string(rune('a'+i))}
		}

		trimmed := trimConversation(messages)
		require.Len(t, trimmed, 13)
		assert.Equal(t, messages[0], trimmed[0])
		assert.Equal(t, messages[8:], trimmed[1:])
	})

	t.Run("keeps-at-least-ten-recent", func(t *testing.T) {
		// 12 huge messages: 60% would keep 7, the floor of 10 wins.
		big := strings.Repeat("x", 40000)
		messages := make([]domain.ProviderMessage, 12)
		for i := range messages {
			messages[i] = domain.ProviderMessage{Role: domain.ChatRole_User, Content: big}
		}

		trimmed := trimConversation(messages)
		require.Len(t, trimmed, 11)
		assert.Equal(t, messages[0], trimmed[0])
	})
}

func TestEstimateTokens(t *testing.T) {
	messages := []domain.ProviderMessage{
		{Role: domain.ChatRole_User, Content: strings.Repeat("a", 396)},
	}
	// 396 content chars + 4 role chars = 400 chars → 100 tokens.
	assert.Equal(t, 100, estimateTokens(messages))
}
