package usecases

import (
	"context"

	"github.com/cleitonmarx/symbiont/depend"

	"github.com/edibleworks/gift-concierge/internal/domain"
)

// InitStreamChat registers the StreamChat use case in the dependency container.
type InitStreamChat struct {
	Provider     domain.ModelProvider       `resolve:""`
	ToolRegistry domain.ToolRegistry        `resolve:""`
	TimeProvider domain.CurrentTimeProvider `resolve:""`
}

func (i InitStreamChat) Initialize(ctx context.Context) (context.Context, error) {
	depend.Register[StreamChat](NewStreamChatImpl(
		i.Provider,
		i.ToolRegistry,
		i.TimeProvider,
	))
	return ctx, nil
}

// InitCompareProducts registers the CompareProducts use case in the dependency container.
type InitCompareProducts struct {
	Provider     domain.ModelProvider       `resolve:""`
	TimeProvider domain.CurrentTimeProvider `resolve:""`
}

func (i InitCompareProducts) Initialize(ctx context.Context) (context.Context, error) {
	depend.Register[CompareProducts](NewCompareProductsImpl(
		i.Provider,
		i.TimeProvider,
	))
	return ctx, nil
}

// InitIngestProducts registers the IngestProducts use case in the dependency container.
type InitIngestProducts struct {
	SearchClient    domain.SearchClient    `resolve:""`
	SemanticEncoder domain.SemanticEncoder `resolve:""`
	ProductIndex    domain.ProductIndex    `resolve:""`
}

func (i InitIngestProducts) Initialize(ctx context.Context) (context.Context, error) {
	depend.Register[IngestProducts](NewIngestProductsImpl(
		i.SearchClient,
		i.SemanticEncoder,
		i.ProductIndex,
	))
	return ctx, nil
}
