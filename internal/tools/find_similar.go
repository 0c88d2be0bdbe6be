package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/edibleworks/gift-concierge/internal/domain"
	"github.com/edibleworks/gift-concierge/internal/usecases"
)

const (
	maxProductsPerSimilarity = 10
	maxAttributeKeywords     = 3
)

// NewSimilarProductFinder creates the vector similarity tool.
func NewSimilarProductFinder(
	index domain.ProductIndex,
	client domain.SearchClient,
	encoder domain.SemanticEncoder,
) SimilarProductFinder {
	return SimilarProductFinder{
		index:   index,
		client:  client,
		encoder: encoder,
	}
}

// SimilarProductFinder finds alternatives to a product the user already
// likes. The vector index is the primary signal; a live keyword search over
// the stated attributes supplies fresh secondary results.
type SimilarProductFinder struct {
	index   domain.ProductIndex
	client  domain.SearchClient
	encoder domain.SemanticEncoder
}

// StatusMessage returns a status message about the tool execution.
func (f SimilarProductFinder) StatusMessage() string {
	return "✨ Finding similar treats..."
}

// Definition returns the tool definition for SimilarProductFinder.
func (f SimilarProductFinder) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.ToolFunction{
			Name:        "find_similar",
			Description: "Find products similar to one the user already likes using vector similarity search. Use this when a user says they like a specific product but want alternatives, or asks for 'something similar' or 'more like this'. IMPORTANT: When the user asks for 'premium' or 'more upscale' versions, set min_price to the original product's price. When the user says 'under $X' or specifies a budget, set max_price to X.",
			Parameters: domain.ToolFunctionParameters{
				Type: "object",
				Properties: map[string]domain.ToolFunctionParameterDetail{
					"product_name": {
						Type:        "string",
						Description: "Exact name of the product the user likes. REQUIRED.",
						Required:    true,
					},
					"attributes": {
						Type:        "string",
						Description: "Comma-separated attributes describing the product, e.g. 'chocolate, strawberries, gift box'. REQUIRED.",
						Required:    true,
					},
					"max_price": {
						Type:        "number",
						Description: "Optional inclusive upper price bound.",
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

// Call executes the similarity lookup. All failures are reported inside the
// payload so the conversation can continue.
func (f SimilarProductFinder) Call(ctx context.Context, call domain.ToolCall) domain.ProviderMessage {
	params := struct {
		ProductName    string   `json:"product_name"`
		Attributes     string   `json:"attributes"`
		MaxPrice       *float64 `json:"max_price"`
		MinPrice       *float64 `json:"min_price"`
		ZipCode        *string  `json:"zip_code"`
		DeliveryFilter *string  `json:"delivery_filter"`
	}{}

	if err := unmarshalToolInput(call.Arguments, &params); err != nil {
		return toolResult(call.ID, map[string]any{
			"success": false,
			"message": fmt.Sprintf("I couldn't understand the request (%s). Please try again.", err.Error()),
		})
	}

	delivery := parseDeliveryFilter(params.DeliveryFilter)
	zipCode := ""
	if params.ZipCode != nil {
		zipCode = *params.ZipCode
	}

	query := params.ProductName + " " + params.Attributes
	embedding, err := f.encoder.VectorizeQuery(ctx, query)
	if err != nil {
		return f.failure(call, params.ProductName)
	}
	if embedding.TotalTokens > 0 {
		usecases.RecordLLMTokensEmbedding(ctx, embedding.TotalTokens)
	}

	// Fetch extra rows so post-merge filtering still fills the cap.
	vectorResults, err := f.index.Similar(
		ctx,
		embedding.Vector,
		maxProductsPerSimilarity+5,
		domain.PriceRange{Min: params.MinPrice, Max: params.MaxPrice},
		delivery,
	)
	if err != nil {
		return f.failure(call, params.ProductName)
	}

	apiResults, err := f.client.Search(ctx, attributeKeywords(params.Attributes), zipCode)
	if err != nil {
		return f.failure(call, params.ProductName)
	}

	// Vector results first (higher relevance), then API results, de-duplicated
	// by name and excluding the original product.
	seen := map[string]bool{strings.ToLower(params.ProductName): true}
	merged := make([]domain.Product, 0, len(vectorResults)+len(apiResults))
	for _, p := range append(append([]domain.Product{}, vectorResults...), apiResults...) {
		nameLower := strings.ToLower(p.Name)
		if seen[nameLower] {
			continue
		}
		seen[nameLower] = true
		merged = append(merged, p)
	}

	// Inclusive on both bounds, unlike search's strict upper bound. API
	// results were not filtered upstream.
	filtered := make([]domain.Product, 0, len(merged))
	for _, p := range merged {
		if params.MaxPrice != nil && p.Price > *params.MaxPrice {
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
		if delivery == domain.DeliveryFilter_Delivery {
			deliveryInfo = " with delivery available"
		}
		return toolResult(call.ID, map[string]any{
			"success":         false,
			"message":         fmt.Sprintf("I couldn't find similar products to %q%s%s. Let me try a different search approach.", params.ProductName, priceInfo(params.MaxPrice, params.MinPrice), deliveryInfo),
			"originalProduct": params.ProductName,
			"products":        []llmProduct{},
			"appliedFilters":  filters,
		})
	}

	top := filtered
	if len(top) > maxProductsPerSimilarity {
		top = top[:maxProductsPerSimilarity]
	}

	return toolResult(call.ID, map[string]any{
		"success":            true,
		"originalProduct":    params.ProductName,
		"searchedAttributes": params.Attributes,
		"resultCount":        len(filtered),
		"products":           toLLMProducts(top),
		"appliedFilters":     filters,
		"searchStrategy": map[string]int{
			"vectorResults": len(vectorResults),
			"apiResults":    len(apiResults),
			"merged":        len(filtered),
		},
	})
}

func (f SimilarProductFinder) failure(call domain.ToolCall, productName string) domain.ProviderMessage {
	return toolResult(call.ID, map[string]any{
		"success":         false,
		"message":         "I had trouble finding similar products. Let me try a regular search instead.",
		"originalProduct": productName,
		"products":        []llmProduct{},
	})
}

// attributeKeywords derives the secondary search keyword from the
// comma-separated attributes: price tokens are dropped and only the first
// few attributes are used.
func attributeKeywords(attributes string) string {
	kept := make([]string, 0, maxAttributeKeywords)
	for _, a := range strings.Split(attributes, ",") {
		a = strings.TrimSpace(a)
		if a == "" || strings.HasPrefix(a, "$") {
			continue
		}
		kept = append(kept, a)
		if len(kept) == maxAttributeKeywords {
			break
		}
	}
	return strings.Join(kept, " ")
}
