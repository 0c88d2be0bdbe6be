package domain

// ChatRole represents the role of a chat message.
type ChatRole string

const (
	ChatRole_User      ChatRole = "user"
	ChatRole_Assistant ChatRole = "assistant"
	ChatRole_System    ChatRole = "system"
	ChatRole_Tool      ChatRole = "tool"
)

// MessagePart is one typed part of a multi-part client message.
type MessagePart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ClientMessage is a chat message as submitted by the frontend. A message
// carries either a flat Content string or a list of typed Parts.
type ClientMessage struct {
	Role    ChatRole      `json:"role"`
	Content string        `json:"content"`
	Parts   []MessagePart `json:"parts,omitempty"`
}

// Text flattens the message into plain text. All text-typed parts are joined
// with newlines in their original order; when no text parts exist the flat
// Content field is used. Parts of other types are skipped silently.
func (m ClientMessage) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}

	text := ""
	for _, part := range m.Parts {
		if part.Type != "text" || part.Text == "" {
			continue
		}
		if text != "" {
			text += "\n"
		}
		text += part.Text
	}
	if text == "" {
		return m.Content
	}
	return text
}

// ProviderMessage is a message in the model-facing conversation. The message
// list for one request is append-only: messages are never mutated once
// appended, only new ones are added as tool calls and results accumulate.
type ProviderMessage struct {
	Role       ChatRole
	Content    string
	ToolCallID *string
	ToolCalls  []ToolCall
}
