package domain

import "context"

// ToolCall is one tool invocation requested by the model. Arguments is the
// raw JSON object text exactly as the model produced it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Tool represents a catalog tool the model can invoke.
type Tool interface {
	// Definition returns the tool schema advertised to the model.
	Definition() ToolDefinition
	// StatusMessage returns a user-friendly status line for this tool.
	StatusMessage() string
	// Call executes the tool and returns a tool-role message with the result
	// payload. Failures are reported inside the payload, never as an error.
	Call(ctx context.Context, call ToolCall) ProviderMessage
}

// ToolRegistry dispatches tool calls by name.
type ToolRegistry interface {
	// Call executes the named tool. An unknown name yields a structured
	// failure payload, not an error.
	Call(ctx context.Context, call ToolCall) ProviderMessage
	// StatusMessage returns a friendly status message for the given tool name.
	StatusMessage(toolName string) string
	// List returns the definitions of all registered tools.
	List() []ToolDefinition
}

// ToolDefinition represents a tool schema as advertised to the model.
type ToolDefinition struct {
	Type     string
	Function ToolFunction
}

// ToolFunction represents a function tool for the model.
type ToolFunction struct {
	Description string
	Name        string
	Parameters  ToolFunctionParameters
}

// ToolFunctionParameters represents the parameters schema for a function tool.
type ToolFunctionParameters struct {
	Type       string
	Properties map[string]ToolFunctionParameterDetail
}

// ToolFunctionParameterDetail represents a single parameter in the schema.
type ToolFunctionParameterDetail struct {
	Type        string
	Description string
	Required    bool
}
