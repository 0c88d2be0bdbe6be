package usecases

import (
	"context"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edibleworks/gift-concierge/internal/common"
	"github.com/edibleworks/gift-concierge/internal/domain"
	"github.com/edibleworks/gift-concierge/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.yaml.in/yaml/v3"
)

const (
	// Upper bound on tool-calling rounds before the assistant gives up.
	maxToolSteps = 5

	// Final text is re-chunked for smoother frontend rendering.
	finalTextChunkSize = 20

	// Keep tool calling deterministic to reduce malformed arguments.
	chatTemperature = 0.2
	chatTopP        = 0.7
	chatMaxTokens   = 4096

	apologyText = "I'm sorry, I wasn't able to complete my search. Could you try rephrasing your request?"
)

// SystemPromptVersion identifies the active concierge prompt, surfaced on the
// health endpoint for observability.
const SystemPromptVersion = "v2.1"

//go:embed prompts/system.yml
var systemPrompt embed.FS

// StreamChat defines the interface for the StreamChat use case.
type StreamChat interface {
	// Execute runs one conversational turn and emits protocol events through
	// onEvent as they become available.
	Execute(ctx context.Context, messages []domain.ClientMessage, onEvent domain.StreamEventCallback) error
}

// StreamChatImpl is the implementation of the StreamChat use case.
type StreamChatImpl struct {
	provider     domain.ModelProvider
	toolRegistry domain.ToolRegistry
	timeProvider domain.CurrentTimeProvider
}

// NewStreamChatImpl creates a new instance of StreamChatImpl.
func NewStreamChatImpl(
	provider domain.ModelProvider,
	toolRegistry domain.ToolRegistry,
	timeProvider domain.CurrentTimeProvider,
) StreamChatImpl {
	return StreamChatImpl{
		provider:     provider,
		toolRegistry: toolRegistry,
		timeProvider: timeProvider,
	}
}

// Execute runs the tool-calling loop for one chat turn. Tool failures are
// absorbed into the conversation; model invocation errors propagate to the
// caller with whatever events were already emitted left standing.
func (sc StreamChatImpl) Execute(ctx context.Context, messages []domain.ClientMessage, onEvent domain.StreamEventCallback) error {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	history := trimConversation(BuildProviderHistory(messages))
	if len(history) == 0 {
		err := domain.NewValidationErr("messages must contain at least one user or assistant turn")
		telemetry.RecordErrorAndStatus(span, err)
		return err
	}

	system, err := sc.buildSystemPrompt()
	if telemetry.RecordErrorAndStatus(span, err) {
		return err
	}

	allMessages := make([]domain.ProviderMessage, 0, len(system)+len(history))
	allMessages = append(allMessages, system...)
	allMessages = append(allMessages, history...)

	emitter := &eventEmitter{onEvent: onEvent}
	if err := emitter.emit(domain.StreamEvent{
		Type:      domain.StreamEventType_Start,
		MessageID: newMessageID(),
	}); err != nil {
		return err
	}

	var totalUsage domain.Usage
	defer func() {
		RecordLLMTokensUsed(spanCtx, totalUsage.PromptTokens, totalUsage.CompletionTokens)
	}()

	var finalText *string
	tools := sc.toolRegistry.List()

	for step := 0; step < maxToolSteps; step++ {
		if err := emitter.emit(domain.StreamEvent{Type: domain.StreamEventType_StartStep}); err != nil {
			return err
		}

		resp, err := sc.provider.Invoke(spanCtx, sc.chatRequest(allMessages, tools))
		if telemetry.RecordErrorAndStatus(span, err) {
			return err
		}
		totalUsage.Add(resp.Usage)

		if len(resp.ToolCalls) == 0 {
			finalText = &resp.Content
			break
		}

		// Text the model produced before calling tools is emitted as one
		// whole segment.
		if strings.TrimSpace(resp.Content) != "" {
			if err := emitter.textSegment(resp.Content); err != nil {
				return err
			}
		}

		allMessages = append(allMessages, domain.ProviderMessage{
			Role:      domain.ChatRole_Assistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			if err := emitter.emit(domain.StreamEvent{
				Type:       domain.StreamEventType_ToolInputAvailable,
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Input:      decodeJSONValue(call.Arguments),
			}); err != nil {
				return err
			}

			result := sc.toolRegistry.Call(spanCtx, call)

			if err := emitter.emit(domain.StreamEvent{
				Type:       domain.StreamEventType_ToolOutputAvailable,
				ToolCallID: call.ID,
				Output:     decodeJSONValue(result.Content),
			}); err != nil {
				return err
			}

			allMessages = append(allMessages, result)
		}

		if err := emitter.emit(domain.StreamEvent{Type: domain.StreamEventType_FinishStep}); err != nil {
			return err
		}
	}

	switch {
	case finalText != nil && strings.TrimSpace(*finalText) != "":
		if err := emitter.chunkedTextSegment(*finalText, finalTextChunkSize); err != nil {
			return err
		}
		if err := emitter.emit(domain.StreamEvent{Type: domain.StreamEventType_FinishStep}); err != nil {
			return err
		}

	case finalText != nil:
		// The model answered with empty content. Ask again, streaming this
		// time, inside a fresh step.
		if err := emitter.emit(domain.StreamEvent{Type: domain.StreamEventType_StartStep}); err != nil {
			return err
		}
		if err := sc.streamFreshAnswer(spanCtx, span, allMessages, tools, emitter); err != nil {
			return err
		}
		if err := emitter.emit(domain.StreamEvent{Type: domain.StreamEventType_FinishStep}); err != nil {
			return err
		}

	default:
		// Step budget exhausted without a final answer.
		if err := emitter.emit(domain.StreamEvent{Type: domain.StreamEventType_StartStep}); err != nil {
			return err
		}
		if err := emitter.textSegment(apologyText); err != nil {
			return err
		}
		if err := emitter.emit(domain.StreamEvent{Type: domain.StreamEventType_FinishStep}); err != nil {
			return err
		}
	}

	return emitter.emit(domain.StreamEvent{
		Type:         domain.StreamEventType_Finish,
		FinishReason: "stop",
	})
}

func (sc StreamChatImpl) chatRequest(messages []domain.ProviderMessage, tools []domain.ToolDefinition) domain.ChatRequest {
	return domain.ChatRequest{
		Messages:    messages,
		Tools:       tools,
		Temperature: common.Ptr(chatTemperature),
		TopP:        common.Ptr(chatTopP),
		MaxTokens:   common.Ptr(chatMaxTokens),
	}
}

// streamFreshAnswer opens one text segment and fills it with deltas from a
// streaming model call.
func (sc StreamChatImpl) streamFreshAnswer(
	ctx context.Context,
	span trace.Span,
	messages []domain.ProviderMessage,
	tools []domain.ToolDefinition,
	emitter *eventEmitter,
) error {
	segmentID := emitter.nextSegmentID()
	if err := emitter.emit(domain.StreamEvent{Type: domain.StreamEventType_TextStart, ID: segmentID}); err != nil {
		return err
	}

	err := sc.provider.Stream(ctx, sc.chatRequest(messages, tools), func(delta string) error {
		if delta == "" {
			return nil
		}
		return emitter.emit(domain.StreamEvent{
			Type:  domain.StreamEventType_TextDelta,
			ID:    segmentID,
			Delta: delta,
		})
	})
	if telemetry.RecordErrorAndStatus(span, err) {
		return err
	}

	return emitter.emit(domain.StreamEvent{Type: domain.StreamEventType_TextEnd, ID: segmentID})
}

// buildSystemPrompt loads the embedded concierge prompt and renders the
// current date into it for seasonal awareness.
func (sc StreamChatImpl) buildSystemPrompt() ([]domain.ProviderMessage, error) {
	file, err := systemPrompt.Open("prompts/system.yml")
	if err != nil {
		return nil, fmt.Errorf("failed to open system prompt: %w", err)
	}
	defer file.Close() //nolint:errcheck

	messages := []domain.ProviderMessage{}
	if err := yaml.NewDecoder(file).Decode(&messages); err != nil {
		return nil, fmt.Errorf("failed to decode system prompt: %w", err)
	}

	now := sc.timeProvider.Now()
	for i, msg := range messages {
		if msg.Role == domain.ChatRole_System {
			messages[i].Content = fmt.Sprintf(msg.Content, now.Format("Monday, January 2, 2006"))
		}
	}

	return messages, nil
}

// eventEmitter forwards protocol events and assigns monotonically increasing
// text segment ids within one chat turn.
type eventEmitter struct {
	onEvent      domain.StreamEventCallback
	segmentIndex int
}

func (e *eventEmitter) emit(event domain.StreamEvent) error {
	return e.onEvent(event)
}

func (e *eventEmitter) nextSegmentID() string {
	id := fmt.Sprintf("text-%d", e.segmentIndex)
	e.segmentIndex++
	return id
}

// textSegment emits a complete text segment as a single delta.
func (e *eventEmitter) textSegment(text string) error {
	return e.chunkedTextSegment(text, len(text))
}

// chunkedTextSegment emits one text segment split into fixed-size rune
// chunks.
func (e *eventEmitter) chunkedTextSegment(text string, chunkSize int) error {
	segmentID := e.nextSegmentID()
	if err := e.emit(domain.StreamEvent{Type: domain.StreamEventType_TextStart, ID: segmentID}); err != nil {
		return err
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i += chunkSize {
		end := min(i+chunkSize, len(runes))
		if err := e.emit(domain.StreamEvent{
			Type:  domain.StreamEventType_TextDelta,
			ID:    segmentID,
			Delta: string(runes[i:end]),
		}); err != nil {
			return err
		}
	}

	return e.emit(domain.StreamEvent{Type: domain.StreamEventType_TextEnd, ID: segmentID})
}

// newMessageID creates a short unique id for the assistant message.
func newMessageID() string {
	id := uuid.New()
	return "msg-" + hex.EncodeToString(id[:])[:12]
}

// decodeJSONValue parses raw JSON for event payloads so the frontend
// receives structured objects. Malformed JSON is passed through as text.
func decodeJSONValue(raw string) any {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	return value
}
