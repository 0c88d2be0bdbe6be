package usecases

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/edibleworks/gift-concierge/internal/common"
	"github.com/edibleworks/gift-concierge/internal/domain"
	"github.com/edibleworks/gift-concierge/internal/telemetry"
	"github.com/toon-format/toon-go"
	"go.yaml.in/yaml/v3"
)

const compareMaxTokens = 2048

//go:embed prompts/compare.yml
var comparePrompt embed.FS

// CompareContext carries what is known about the gifting situation.
type CompareContext struct {
	Recipient    string   `json:"recipient"`
	Occasion     string   `json:"occasion"`
	Budget       string   `json:"budget"`
	Preferences  []string `json:"preferences"`
	DietaryNeeds []string `json:"dietaryNeeds"`
	DeliveryDate string   `json:"deliveryDate"`
}

// CompareProducts is the use case interface for the product comparison
// helper.
type CompareProducts interface {
	// Execute renders a comparison prompt for the given products and returns
	// the model's analysis.
	Execute(ctx context.Context, products []domain.Product, giftContext CompareContext) (string, error)
}

// CompareProductsImpl is the implementation of the CompareProducts use case.
type CompareProductsImpl struct {
	provider     domain.ModelProvider
	timeProvider domain.CurrentTimeProvider
}

// NewCompareProductsImpl creates a new instance of CompareProductsImpl.
func NewCompareProductsImpl(provider domain.ModelProvider, timeProvider domain.CurrentTimeProvider) CompareProductsImpl {
	return CompareProductsImpl{
		provider:     provider,
		timeProvider: timeProvider,
	}
}

// Execute issues exactly one model call, no tools bound. Model failures
// propagate to the caller.
func (cp CompareProductsImpl) Execute(ctx context.Context, products []domain.Product, giftContext CompareContext) (string, error) {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	if len(products) < 2 {
		err := domain.NewValidationErr("at least two products are required for a comparison")
		telemetry.RecordErrorAndStatus(span, err)
		return "", err
	}

	messages, err := cp.buildPromptMessages(products, giftContext)
	if telemetry.RecordErrorAndStatus(span, err) {
		return "", err
	}

	resp, err := cp.provider.Invoke(spanCtx, domain.ChatRequest{
		Messages:  messages,
		MaxTokens: common.Ptr(compareMaxTokens),
	})
	if telemetry.RecordErrorAndStatus(span, err) {
		return "", err
	}

	RecordLLMTokensUsed(spanCtx, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return strings.TrimSpace(resp.Content), nil
}

// buildPromptMessages renders the embedded comparison prompt with the
// product attributes, the gift context and a compact structured payload.
func (cp CompareProductsImpl) buildPromptMessages(products []domain.Product, giftContext CompareContext) ([]domain.ProviderMessage, error) {
	payload, err := toon.MarshalString(products, toon.WithLengthMarkers(true))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal product payload: %w", err)
	}

	file, err := comparePrompt.Open("prompts/compare.yml")
	if err != nil {
		return nil, fmt.Errorf("failed to open compare prompt: %w", err)
	}
	defer file.Close() //nolint:errcheck

	messages := []domain.ProviderMessage{}
	if err := yaml.NewDecoder(file).Decode(&messages); err != nil {
		return nil, fmt.Errorf("failed to decode compare prompt: %w", err)
	}

	for i, msg := range messages {
		if msg.Role == domain.ChatRole_User {
			messages[i].Content = fmt.Sprintf(
				msg.Content,
				cp.renderProducts(products),
				cp.renderContext(giftContext),
				payload,
			)
		}
	}

	return messages, nil
}

func (cp CompareProductsImpl) renderProducts(products []domain.Product) string {
	var b strings.Builder
	for i, p := range products {
		fmt.Fprintf(&b, "Product %d: %s\n", i+1, orDefault(p.Name, "Unknown"))
		fmt.Fprintf(&b, "  Price: %s\n", orDefault(p.PriceFormatted, "N/A"))
		fmt.Fprintf(&b, "  Description: %s\n", orDefault(p.Description, "N/A"))
		if p.AllergyInfo != "" {
			fmt.Fprintf(&b, "  Allergens: %s\n", p.AllergyInfo)
		}
		if p.Ingredients != "" {
			fmt.Fprintf(&b, "  Ingredients: %s\n", p.Ingredients)
		}
		if p.Occasion != "" {
			fmt.Fprintf(&b, "  Occasion: %s\n", p.Occasion)
		}
		if p.Category != "" {
			fmt.Fprintf(&b, "  Category: %s\n", p.Category)
		}
		if p.IsOneHourDelivery {
			b.WriteString("  Same-Day Delivery: Yes\n")
		}
		if p.SizeCount > 1 {
			fmt.Fprintf(&b, "  Size Options: %d\n", p.SizeCount)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (cp CompareProductsImpl) renderContext(giftContext CompareContext) string {
	parts := []string{}
	if giftContext.Recipient != "" {
		parts = append(parts, "Recipient: "+giftContext.Recipient)
	}
	if giftContext.Occasion != "" {
		parts = append(parts, "Occasion: "+giftContext.Occasion)
	}
	if giftContext.Budget != "" {
		parts = append(parts, "Budget: "+giftContext.Budget)
	}
	if len(giftContext.Preferences) > 0 {
		parts = append(parts, "Preferences: "+strings.Join(giftContext.Preferences, ", "))
	}
	if len(giftContext.DietaryNeeds) > 0 {
		parts = append(parts, "Dietary Needs: "+strings.Join(giftContext.DietaryNeeds, ", "))
	}
	if giftContext.DeliveryDate != "" {
		parts = append(parts, "Delivery Date: "+cp.renderDeliveryDate(giftContext.DeliveryDate))
	}

	if len(parts) == 0 {
		return "No specific context provided."
	}
	return strings.Join(parts, "\n")
}

// renderDeliveryDate normalizes a free-text delivery date when it can be
// parsed, keeping the raw text otherwise.
func (cp CompareProductsImpl) renderDeliveryDate(raw string) string {
	now := cp.timeProvider.Now()
	if t, ok := domain.ExtractTimeFromText(raw, now, now.Location()); ok {
		return t.Format("Monday, January 2, 2006")
	}
	return raw
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
