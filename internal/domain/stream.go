package domain

// StreamEventType discriminates the events of the UI message stream protocol.
type StreamEventType string

const (
	StreamEventType_Start               StreamEventType = "start"
	StreamEventType_StartStep           StreamEventType = "start-step"
	StreamEventType_TextStart           StreamEventType = "text-start"
	StreamEventType_TextDelta           StreamEventType = "text-delta"
	StreamEventType_TextEnd             StreamEventType = "text-end"
	StreamEventType_ToolInputAvailable  StreamEventType = "tool-input-available"
	StreamEventType_ToolOutputAvailable StreamEventType = "tool-output-available"
	StreamEventType_FinishStep          StreamEventType = "finish-step"
	StreamEventType_Finish              StreamEventType = "finish"
)

// StreamEvent is one protocol event. Only the fields relevant to the event
// type are populated; the JSON shape on the wire carries only those.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	MessageID    string          `json:"messageId,omitempty"`
	ID           string          `json:"id,omitempty"`
	Delta        string          `json:"delta,omitempty"`
	ToolCallID   string          `json:"toolCallId,omitempty"`
	ToolName     string          `json:"toolName,omitempty"`
	Input        any             `json:"input,omitempty"`
	Output       any             `json:"output,omitempty"`
	FinishReason string          `json:"finishReason,omitempty"`
}

// StreamEventCallback is called for each event produced during a chat turn.
// Returning an error aborts the stream.
type StreamEventCallback func(event StreamEvent) error
