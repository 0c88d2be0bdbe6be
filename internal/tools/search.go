package tools

import (
	"context"
	"fmt"

	"github.com/edibleworks/gift-concierge/internal/domain"
)

const maxProductsPerSearch = 15

// NewProductSearcher creates the catalog keyword search tool.
func NewProductSearcher(client domain.SearchClient) ProductSearcher {
	return ProductSearcher{client: client}
}

// ProductSearcher searches the live catalog by keyword with optional price
// and delivery filters.
type ProductSearcher struct {
	client domain.SearchClient
}

// StatusMessage returns a status message about the tool execution.
func (s ProductSearcher) StatusMessage() string {
	return "🔎 Searching the catalog..."
}

// Definition returns the tool definition for ProductSearcher.
func (s ProductSearcher) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        "search",
			Description: "Search the Edible Arrangements product catalog by keyword. Returns products with names, prices, descriptions, images, and direct product page URLs. Use this tool whenever you need to find or recommend products. You can call this tool multiple times with different keywords to get diverse results. NEVER recommend products without first searching for them using this tool. IMPORTANT: When the user specifies a budget, you MUST set max_price. When the user asks for premium/upscale options, you MUST set min_price. DELIVERY: When the user asks for delivery/shipping/same-day options, you MUST set delivery_filter to 'delivery' to exclude in-store pickup only items. MULTI-CATEGORY: When the user requests multiple distinct product types (e.g., 'cakes and flowers'), make SEPARATE tool calls for each category, never combine them into a single keyword.",
			Parameters: domain.ToolFunctionParameters{
				Type: "object",
				Properties: map[string]domain.ToolFunctionParameterDetail{
					"keyword": {
						Type:        "string",
						Description: "Search keyword, e.g. 'chocolate strawberries' or 'birthday'. REQUIRED.",
						Required:    true,
					},
					"max_price": {
						Type:        "number",
						Description: "Optional strict upper price bound. Only products priced below this value are returned.",
						Required:    false,
					},
					"min_price": {
						Type:        "number",
						Description: "Optional inclusive lower price bound.",
						Required:    false,
					},
					"zip_code": {
						Type:        "string",
						Description: "Optional ZIP code to scope availability.",
						Required:    false,
					},
					"delivery_filter": {
						Type:        "string",
						Description: "Optional fulfillment filter: 'delivery', 'pickup' or 'any'. Defaults to 'any'.",
						Required:    false,
					},
				},
			},
		},
	}
}

// Call executes the catalog search. All failures are reported inside the
// payload so the conversation can continue.
func (s ProductSearcher) Call(ctx context.Context, call domain.ToolCall) domain.ProviderMessage {
	params := struct {
		Keyword        string   `json:"keyword"`
		MaxPrice       *float64 `json:"max_price"`
		MinPrice       *float64 `json:"min_price"`
		ZipCode        *string  `json:"zip_code"`
		DeliveryFilter *string  `json:"delivery_filter"`
	}{}

	if err := unmarshalToolInput(call.Arguments, &params); err != nil {
		return toolResult(call.ID, map[string]any{
			"success": false,
			"message": fmt.Sprintf("I couldn't understand the search request (%s). Please try again.", err.Error()),
		})
	}

	delivery := parseDeliveryFilter(params.DeliveryFilter)
	zipCode := ""
	if params.ZipCode != nil {
		zipCode = *params.ZipCode
	}

	products, err := s.client.Search(ctx, params.Keyword, zipCode)
	if err != nil {
		return toolResult(call.ID, map[string]any{
			"success":  false,
			"message":  fmt.Sprintf("I had trouble searching for %q. The product catalog might be temporarily unavailable.", params.Keyword),
			"products": []llmProduct{},
		})
	}

	// Strict upper bound, inclusive lower bound.
	filtered := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if params.MaxPrice != nil && p.Price >= *params.MaxPrice {
			continue
		}
		if params.MinPrice != nil && p.Price < *params.MinPrice {
			continue
		}
		filtered = append(filtered, p)
	}
	filtered = applyDeliveryFilter(filtered, delivery)

	filters := appliedFilters{
		MaxPrice:       params.MaxPrice,
		MinPrice:       params.MinPrice,
		DeliveryFilter: string(delivery),
	}

	if len(filtered) == 0 {
		deliveryInfo := ""
		switch delivery {
		case domain.DeliveryFilter_Delivery:
			deliveryInfo = " with delivery available"
		case domain.DeliveryFilter_Pickup:
			deliveryInfo = " for in-store pickup"
		}
		return toolResult(call.ID, map[string]any{
			"success":        false,
			"message":        fmt.Sprintf("No products found for %q%s%s. Try a different search term or adjust the filters.", params.Keyword, priceInfo(params.MaxPrice, params.MinPrice), deliveryInfo),
			"products":       []llmProduct{},
			"appliedFilters": filters,
		})
	}

	top := filtered
	if len(top) > maxProductsPerSearch {
		top = top[:maxProductsPerSearch]
	}

	return toolResult(call.ID, map[string]any{
		"success":        true,
		"keyword":        params.Keyword,
		"resultCount":    len(filtered),
		"products":       toLLMProducts(top),
		"appliedFilters": filters,
	})
}
