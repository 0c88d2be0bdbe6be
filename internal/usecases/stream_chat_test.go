package usecases

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edibleworks/gift-concierge/internal/domain"
)

type scriptedProvider struct {
	responses   []domain.ChatResponse
	invokeErr   error
	invokeCalls int
	lastRequest domain.ChatRequest

	streamDeltas []string
	streamErr    error
	streamCalls  int
}

func (p *scriptedProvider) Invoke(_ context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	p.invokeCalls++
	p.lastRequest = req
	if p.invokeErr != nil {
		return domain.ChatResponse{}, p.invokeErr
	}
	if p.invokeCalls > len(p.responses) {
		return domain.ChatResponse{}, fmt.Errorf("unexpected invoke call %d", p.invokeCalls)
	}
	return p.responses[p.invokeCalls-1], nil
}

func (p *scriptedProvider) Stream(_ context.Context, req domain.ChatRequest, onDelta domain.TextDeltaCallback) error {
	p.streamCalls++
	p.lastRequest = req
	if p.streamErr != nil {
		return p.streamErr
	}
	for _, delta := range p.streamDeltas {
		if err := onDelta(delta); err != nil {
			return err
		}
	}
	return nil
}

type recordingRegistry struct {
	outputs map[string]string
	calls   []domain.ToolCall
}

func (r *recordingRegistry) Call(_ context.Context, call domain.ToolCall) domain.ProviderMessage {
	r.calls = append(r.calls, call)
	content, ok := r.outputs[call.Name]
	if !ok {
		content = `{"success":true,"products":[]}`
	}
	return domain.ProviderMessage{
		Role:       domain.ChatRole_Tool,
		ToolCallID: &call.ID,
		Content:    content,
	}
}

func (r *recordingRegistry) StatusMessage(string) string { return "" }

func (r *recordingRegistry) List() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{Type: "function", Function: domain.ToolFunction{Name: "search"}},
		{Type: "function", Function: domain.ToolFunction{Name: "find_similar"}},
	}
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type eventCollector struct {
	events []domain.StreamEvent
}

func (c *eventCollector) callback() domain.StreamEventCallback {
	return func(event domain.StreamEvent) error {
		c.events = append(c.events, event)
		return nil
	}
}

func (c *eventCollector) types() []domain.StreamEventType {
	types := make([]domain.StreamEventType, len(c.events))
	for i, e := range c.events {
		types[i] = e.Type
	}
	return types
}

func (c *eventCollector) joinedText() string {
	var b strings.Builder
	for _, e := range c.events {
		if e.Type == domain.StreamEventType_TextDelta {
			b.WriteString(e.Delta)
		}
	}
	return b.String()
}

func newTestStreamChat(provider *scriptedProvider, registry *recordingRegistry) StreamChatImpl {
	return NewStreamChatImpl(
		provider,
		registry,
		fixedClock{now: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)},
	)
}

func userTurn(text string) []domain.ClientMessage {
	return []domain.ClientMessage{{Role: domain.ChatRole_User, Content: text}}
}

func toolCallResponse(content string, calls ...domain.ToolCall) domain.ChatResponse {
	return domain.ChatResponse{Content: content, ToolCalls: calls}
}

func TestStreamChatExecute_DirectAnswer(t *testing.T) {
	provider := &scriptedProvider{
		responses: []domain.ChatResponse{{Content: "Hi! What's the occasion?"}},
	}
	registry := &recordingRegistry{}
	collector := &eventCollector{}

	err := newTestStreamChat(provider, registry).Execute(context.Background(), userTurn("hello"), collector.callback())
	require.NoError(t, err)

	assert.Equal(t, []domain.StreamEventType{
		domain.StreamEventType_Start,
		domain.StreamEventType_StartStep,
		domain.StreamEventType_TextStart,
		domain.StreamEventType_TextDelta,
		domain.StreamEventType_TextDelta,
		domain.StreamEventType_TextEnd,
		domain.StreamEventType_FinishStep,
		domain.StreamEventType_Finish,
	}, collector.types())

	assert.Equal(t, "Hi! What's the occasion?", collector.joinedText())
	assert.Equal(t, "stop", collector.events[len(collector.events)-1].FinishReason)
	assert.Equal(t, 1, provider.invokeCalls)
	assert.Zero(t, provider.streamCalls)
	assert.Len(t, provider.lastRequest.Tools, 2)
}

func TestStreamChatExecute_MessageID(t *testing.T) {
	provider := &scriptedProvider{responses: []domain.ChatResponse{{Content: "ok"}}}
	collector := &eventCollector{}

	err := newTestStreamChat(provider, &recordingRegistry{}).Execute(context.Background(), userTurn("hi"), collector.callback())
	require.NoError(t, err)

	require.NotEmpty(t, collector.events)
	assert.Equal(t, domain.StreamEventType_Start, collector.events[0].Type)
	assert.Regexp(t, regexp.MustCompile(`^msg-[0-9a-f]{12}$`), collector.events[0].MessageID)
}

func TestStreamChatExecute_ChunksFinalText(t *testing.T) {
	// 45 chars: expect chunks of 20, 20 and 5.
	text := strings.Repeat("abcde", 9)
	provider := &scriptedProvider{responses: []domain.ChatResponse{{Content: text}}}
	collector := &eventCollector{}

	err := newTestStreamChat(provider, &recordingRegistry{}).Execute(context.Background(), userTurn("hi"), collector.callback())
	require.NoError(t, err)

	deltas := []string{}
	for _, e := range collector.events {
		if e.Type == domain.StreamEventType_TextDelta {
			deltas = append(deltas, e.Delta)
		}
	}
	require.Len(t, deltas, 3)
	assert.Len(t, deltas[0], 20)
	assert.Len(t, deltas[1], 20)
	assert.Len(t, deltas[2], 5)
	assert.Equal(t, text, strings.Join(deltas, ""))
}

func TestStreamChatExecute_ToolCallFlow(t *testing.T) {
	provider := &scriptedProvider{
		responses: []domain.ChatResponse{
			toolCallResponse(
				"Let me look that up.",
				domain.ToolCall{ID: "call-1", Name: "search", Arguments: `{"keyword":"cakes"}`},
				domain.ToolCall{ID: "call-2", Name: "search", Arguments: `{"keyword":"flowers"}`},
			),
			{Content: "Here are options."},
		},
	}
	registry := &recordingRegistry{outputs: map[string]string{
		"search": `{"success":true,"resultCount":3,"products":[]}`,
	}}
	collector := &eventCollector{}

	err := newTestStreamChat(provider, registry).Execute(context.Background(), userTurn("cakes and flowers"), collector.callback())
	require.NoError(t, err)

	assert.Equal(t, []domain.StreamEventType{
		domain.StreamEventType_Start,
		domain.StreamEventType_StartStep,
		domain.StreamEventType_TextStart,
		domain.StreamEventType_TextDelta,
		domain.StreamEventType_TextEnd,
		domain.StreamEventType_ToolInputAvailable,
		domain.StreamEventType_ToolOutputAvailable,
		domain.StreamEventType_ToolInputAvailable,
		domain.StreamEventType_ToolOutputAvailable,
		domain.StreamEventType_FinishStep,
		domain.StreamEventType_StartStep,
		domain.StreamEventType_TextStart,
		domain.StreamEventType_TextDelta,
		domain.StreamEventType_TextEnd,
		domain.StreamEventType_FinishStep,
		domain.StreamEventType_Finish,
	}, collector.types())

	// Tool events correlate by id, in model order.
	var toolEvents []domain.StreamEvent
	for _, e := range collector.events {
		if e.Type == domain.StreamEventType_ToolInputAvailable || e.Type == domain.StreamEventType_ToolOutputAvailable {
			toolEvents = append(toolEvents, e)
		}
	}
	require.Len(t, toolEvents, 4)
	assert.Equal(t, "call-1", toolEvents[0].ToolCallID)
	assert.Equal(t, "search", toolEvents[0].ToolName)
	assert.Equal(t, map[string]any{"keyword": "cakes"}, toolEvents[0].Input)
	assert.Equal(t, "call-1", toolEvents[1].ToolCallID)
	assert.Equal(t, "call-2", toolEvents[2].ToolCallID)
	assert.Equal(t, "call-2", toolEvents[3].ToolCallID)

	output, ok := toolEvents[1].Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, output["success"])

	// Tools executed sequentially in model order.
	require.Len(t, registry.calls, 2)
	assert.Equal(t, "call-1", registry.calls[0].ID)
	assert.Equal(t, "call-2", registry.calls[1].ID)

	// Text segment ids increase monotonically.
	assert.Equal(t, "text-0", collector.events[2].ID)
	assert.Equal(t, "text-1", collector.events[11].ID)

	// Second invoke sees the assistant tool-call turn plus both results.
	require.Equal(t, 2, provider.invokeCalls)
	messages := provider.lastRequest.Messages
	require.GreaterOrEqual(t, len(messages), 4)
	last3 := messages[len(messages)-3:]
	assert.Equal(t, domain.ChatRole_Assistant, last3[0].Role)
	assert.Len(t, last3[0].ToolCalls, 2)
	assert.Equal(t, domain.ChatRole_Tool, last3[1].Role)
	assert.Equal(t, "call-1", *last3[1].ToolCallID)
	assert.Equal(t, domain.ChatRole_Tool, last3[2].Role)
	assert.Equal(t, "call-2", *last3[2].ToolCallID)
}

func TestStreamChatExecute_NoPreToolTextSegment(t *testing.T) {
	provider := &scriptedProvider{
		responses: []domain.ChatResponse{
			toolCallResponse("  ", domain.ToolCall{ID: "call-1", Name: "search", Arguments: `{"keyword":"cake"}`}),
			{Content: "Done."},
		},
	}
	collector := &eventCollector{}

	err := newTestStreamChat(provider, &recordingRegistry{}).Execute(context.Background(), userTurn("cake"), collector.callback())
	require.NoError(t, err)

	// Whitespace-only pre-tool content produces no text segment in the tool
	// step; the final answer still gets text-0.
	assert.Equal(t, []domain.StreamEventType{
		domain.StreamEventType_Start,
		domain.StreamEventType_StartStep,
		domain.StreamEventType_ToolInputAvailable,
		domain.StreamEventType_ToolOutputAvailable,
		domain.StreamEventType_FinishStep,
		domain.StreamEventType_StartStep,
		domain.StreamEventType_TextStart,
		domain.StreamEventType_TextDelta,
		domain.StreamEventType_TextEnd,
		domain.StreamEventType_FinishStep,
		domain.StreamEventType_Finish,
	}, collector.types())
	assert.Equal(t, "text-0", collector.events[6].ID)
}

func TestStreamChatExecute_StepBudgetExhausted(t *testing.T) {
	keepSearching := toolCallResponse("", domain.ToolCall{ID: "c", Name: "search", Arguments: `{"keyword":"x"}`})
	provider := &scriptedProvider{
		responses: []domain.ChatResponse{
			keepSearching, keepSearching, keepSearching, keepSearching, keepSearching,
			// A sixth response exists but must never be requested.
			{Content: "should not appear"},
		},
	}
	collector := &eventCollector{}

	err := newTestStreamChat(provider, &recordingRegistry{}).Execute(context.Background(), userTurn("hi"), collector.callback())
	require.NoError(t, err)

	assert.Equal(t, 5, provider.invokeCalls)
	assert.Zero(t, provider.streamCalls)
	assert.Equal(t, apologyText, collector.joinedText())
	assert.Equal(t, domain.StreamEventType_Finish, collector.events[len(collector.events)-1].Type)

	startSteps := 0
	for _, e := range collector.events {
		if e.Type == domain.StreamEventType_StartStep {
			startSteps++
		}
	}
	// Five tool steps plus the apology step.
	assert.Equal(t, 6, startSteps)
}

func TestStreamChatExecute_EmptyFinalTextStreamsFresh(t *testing.T) {
	provider := &scriptedProvider{
		responses:    []domain.ChatResponse{{Content: ""}},
		streamDeltas: []string{"Here ", "you ", "go!"},
	}
	collector := &eventCollector{}

	err := newTestStreamChat(provider, &recordingRegistry{}).Execute(context.Background(), userTurn("hi"), collector.callback())
	require.NoError(t, err)

	assert.Equal(t, 1, provider.invokeCalls)
	assert.Equal(t, 1, provider.streamCalls)
	assert.Equal(t, "Here you go!", collector.joinedText())

	// Deltas are forwarded exactly as received, not re-chunked.
	deltas := []string{}
	for _, e := range collector.events {
		if e.Type == domain.StreamEventType_TextDelta {
			deltas = append(deltas, e.Delta)
		}
	}
	assert.Equal(t, []string{"Here ", "you ", "go!"}, deltas)
}

func TestStreamChatExecute_InvokeErrorPropagates(t *testing.T) {
	provider := &scriptedProvider{invokeErr: fmt.Errorf("model unavailable")}
	collector := &eventCollector{}

	err := newTestStreamChat(provider, &recordingRegistry{}).Execute(context.Background(), userTurn("hi"), collector.callback())
	require.Error(t, err)
	assert.ErrorContains(t, err, "model unavailable")

	// Events already emitted stand; nothing is rolled back or finished.
	assert.Equal(t, []domain.StreamEventType{
		domain.StreamEventType_Start,
		domain.StreamEventType_StartStep,
	}, collector.types())
}

func TestStreamChatExecute_EmptyMessages(t *testing.T) {
	provider := &scriptedProvider{}
	collector := &eventCollector{}

	err := newTestStreamChat(provider, &recordingRegistry{}).Execute(context.Background(), nil, collector.callback())
	require.Error(t, err)
	var validationErr *domain.ValidationErr
	assert.ErrorAs(t, err, &validationErr)
	assert.Empty(t, collector.events)
	assert.Zero(t, provider.invokeCalls)
}

func TestStreamChatExecute_SystemPromptCarriesDate(t *testing.T) {
	provider := &scriptedProvider{responses: []domain.ChatResponse{{Content: "ok"}}}
	collector := &eventCollector{}

	err := newTestStreamChat(provider, &recordingRegistry{}).Execute(context.Background(), userTurn("hi"), collector.callback())
	require.NoError(t, err)

	require.NotEmpty(t, provider.lastRequest.Messages)
	system := provider.lastRequest.Messages[0]
	assert.Equal(t, domain.ChatRole_System, system.Role)
	assert.Contains(t, system.Content, "Tuesday, August 25, 2026")
	assert.Contains(t, system.Content, "Edible Gift Concierge")
}
