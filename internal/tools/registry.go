package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/cleitonmarx/symbiont/depend"
	"github.com/edibleworks/gift-concierge/internal/domain"
)

// Manager dispatches tool calls to the registered tools.
type Manager struct {
	tools map[string]domain.Tool
}

// NewManager creates a tool registry. Registering a tool with an empty or
// duplicate name is a construction error.
func NewManager(registered ...domain.Tool) (Manager, error) {
	toolMap := make(map[string]domain.Tool, len(registered))
	for _, tool := range registered {
		name := tool.Definition().Function.Name
		if name == "" {
			return Manager{}, fmt.Errorf("tool registered with an empty name")
		}
		if _, exists := toolMap[name]; exists {
			return Manager{}, fmt.Errorf("tool %q registered twice", name)
		}
		toolMap[name] = tool
	}
	return Manager{tools: toolMap}, nil
}

// Call invokes the named tool. An unknown tool name yields a structured
// failure payload so the model can recover, never an error.
func (m Manager) Call(ctx context.Context, call domain.ToolCall) domain.ProviderMessage {
	tool, exists := m.tools[call.Name]
	if !exists {
		return toolResult(call.ID, map[string]any{
			"success": false,
			"message": fmt.Sprintf("The tool %q is not available. Use one of the provided tools instead.", call.Name),
		})
	}
	return tool.Call(ctx, call)
}

// StatusMessage returns a friendly status message for the given tool name.
func (m Manager) StatusMessage(toolName string) string {
	if tool, ok := m.tools[toolName]; ok {
		if msg := tool.StatusMessage(); msg != "" {
			return msg
		}
	}
	return "⏳ Working on it..."
}

// List returns all registered tool definitions, sorted by name.
func (m Manager) List() []domain.ToolDefinition {
	res := make([]domain.ToolDefinition, 0, len(m.tools))
	for _, tool := range m.tools {
		res = append(res, tool.Definition())
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Function.Name < res[j].Function.Name
	})
	return res
}

// InitToolRegistry wires the catalog tools into the DI container.
type InitToolRegistry struct {
	SearchClient    domain.SearchClient    `resolve:""`
	ProductIndex    domain.ProductIndex    `resolve:""`
	SemanticEncoder domain.SemanticEncoder `resolve:""`
}

func (i InitToolRegistry) Initialize(ctx context.Context) (context.Context, error) {
	registry, err := NewManager(
		NewProductSearcher(i.SearchClient),
		NewSimilarProductFinder(i.ProductIndex, i.SearchClient, i.SemanticEncoder),
	)
	if err != nil {
		return ctx, fmt.Errorf("failed to build tool registry: %w", err)
	}

	depend.Register[domain.ToolRegistry](registry)
	return ctx, nil
}
