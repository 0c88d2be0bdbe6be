package modelapi

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/cleitonmarx/symbiont/depend"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/edibleworks/gift-concierge/internal/domain"
	"github.com/edibleworks/gift-concierge/internal/telemetry"
)

// ProviderAdapter adapts APIClient to the domain model interfaces.
type ProviderAdapter struct {
	client         APIClient
	chatModel      string
	embeddingModel string
}

// NewProviderAdapter creates a new adapter bound to the configured models.
func NewProviderAdapter(client APIClient, chatModel, embeddingModel string) ProviderAdapter {
	return ProviderAdapter{
		client:         client,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
	}
}

// Invoke implements domain.ModelProvider.
func (a ProviderAdapter) Invoke(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	resp, err := a.client.Chat(spanCtx, a.toChatRequest(req))
	if telemetry.RecordErrorAndStatus(span, err) {
		return domain.ChatResponse{}, err
	}
	if len(resp.Choices) == 0 {
		err := errors.New("no choices in response")
		telemetry.RecordErrorAndStatus(span, err)
		return domain.ChatResponse{}, err
	}

	msg := resp.Choices[0].Message
	res := domain.ChatResponse{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		res.ToolCalls = append(res.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if resp.Usage != nil {
		res.Usage = domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return res, nil
}

// Stream implements domain.ModelProvider.
func (a ProviderAdapter) Stream(ctx context.Context, req domain.ChatRequest, onDelta domain.TextDeltaCallback) error {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	adapterReq := a.toChatRequest(req)
	adapterReq.StreamOptions = &StreamOptions{IncludeUsage: true}

	err := a.client.ChatStream(spanCtx, adapterReq, func(chunk StreamChunk) error {
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := onDelta(choice.Delta.Content); err != nil {
				return err
			}
		}
		return nil
	})
	telemetry.RecordErrorAndStatus(span, err)
	return err
}

// VectorizeQuery implements domain.SemanticEncoder.
func (a ProviderAdapter) VectorizeQuery(ctx context.Context, query string) (domain.EmbeddingVector, error) {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	vec, err := a.embed(spanCtx, query)
	if telemetry.RecordErrorAndStatus(span, err) {
		return domain.EmbeddingVector{}, err
	}
	return vec, nil
}

// VectorizeProduct implements domain.SemanticEncoder.
func (a ProviderAdapter) VectorizeProduct(ctx context.Context, product domain.Product) (domain.EmbeddingVector, error) {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	vec, err := a.embed(spanCtx, product.Document())
	if telemetry.RecordErrorAndStatus(span, err) {
		return domain.EmbeddingVector{}, err
	}
	return vec, nil
}

func (a ProviderAdapter) embed(ctx context.Context, input string) (domain.EmbeddingVector, error) {
	resp, err := a.client.Embeddings(ctx, EmbeddingsRequest{Model: a.embeddingModel, Input: input})
	if err != nil {
		return domain.EmbeddingVector{}, err
	}
	if len(resp.Data) == 0 {
		return domain.EmbeddingVector{}, errors.New("no embedding data in response")
	}
	return domain.EmbeddingVector{
		Vector:      resp.Data[0].Embedding,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}

func (a ProviderAdapter) toChatRequest(req domain.ChatRequest) ChatRequest {
	adapterReq := ChatRequest{
		Model:       a.chatModel,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Messages:    make([]ChatMessage, len(req.Messages)),
		Tools:       make([]Tool, len(req.Tools)),
	}

	for i, msg := range req.Messages {
		adpMsg := ChatMessage{
			Role:       string(msg.Role),
			ToolCallID: msg.ToolCallID,
			Content:    msg.Content,
		}
		for _, toolCall := range msg.ToolCalls {
			adpMsg.ToolCalls = append(adpMsg.ToolCalls, ToolCall{
				ID:   toolCall.ID,
				Type: "function",
				Function: ToolCallFunction{
					Name:      toolCall.Name,
					Arguments: toolCall.Arguments,
				},
			})
		}
		adapterReq.Messages[i] = adpMsg
	}

	for i, def := range req.Tools {
		tool := Tool{
			Type: def.Type,
			Function: ToolFunc{
				Description: def.Function.Description,
				Name:        def.Function.Name,
				Parameters: ToolFuncParameters{
					Type:       def.Function.Parameters.Type,
					Properties: make(map[string]ToolFuncParameterDetail),
					Required:   []string{},
				},
			},
		}

		for paramName, field := range def.Function.Parameters.Properties {
			tool.Function.Parameters.Properties[paramName] = ToolFuncParameterDetail{
				Type:        field.Type,
				Description: field.Description,
			}
			if field.Required {
				tool.Function.Parameters.Required = append(tool.Function.Parameters.Required, paramName)
			}
		}
		sort.Strings(tool.Function.Parameters.Required)
		adapterReq.Tools[i] = tool
	}

	return adapterReq
}

// InitModelProvider initializes the model provider dependency.
type InitModelProvider struct {
	ModelHost      string `config:"LLM_MODEL_HOST"`
	APIKey         string `config:"LLM_API_KEY" default:""`
	ChatModel      string `config:"LLM_CHAT_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel string `config:"LLM_EMBEDDING_MODEL" default:"text-embedding-3-small"`
}

// Initialize registers the model interfaces. Model calls are long-lived and
// not idempotent, so this client is instrumented but never retries.
func (i InitModelProvider) Initialize(ctx context.Context) (context.Context, error) {
	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(
			http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(telemetry.SpanNameFormatter),
		),
	}
	adapter := NewProviderAdapter(NewAPIClient(i.ModelHost, i.APIKey, httpClient), i.ChatModel, i.EmbeddingModel)
	depend.Register[domain.ModelProvider](adapter)
	depend.Register[domain.SemanticEncoder](adapter)
	return ctx, nil
}
