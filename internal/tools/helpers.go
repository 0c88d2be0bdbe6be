package tools

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/edibleworks/gift-concierge/internal/domain"
)

// llmProduct is the product shape sent back to the model inside tool
// payloads. It mirrors the frontend product card fields.
type llmProduct struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	PriceFormatted    string  `json:"priceFormatted"`
	Description       string  `json:"description"`
	ProductURL        string  `json:"productUrl"`
	ImageURL          string  `json:"imageUrl"`
	Category          string  `json:"category"`
	Occasion          string  `json:"occasion"`
	IsOneHourDelivery bool    `json:"isOneHourDelivery"`
	Promo             string  `json:"promo"`
	ProductImageTag   string  `json:"productImageTag"`
	AllergyInfo       string  `json:"allergyInfo"`
	Ingredients       string  `json:"ingredients"`
	SizeCount         int     `json:"sizeCount"`
}

func toLLMProducts(products []domain.Product) []llmProduct {
	res := make([]llmProduct, len(products))
	for i, p := range products {
		res[i] = llmProduct{
			ID:                p.ID,
			Name:              p.Name,
			Price:             p.Price,
			PriceFormatted:    p.PriceFormatted,
			Description:       p.Description,
			ProductURL:        p.ProductURL,
			ImageURL:          p.ImageURL,
			Category:          p.Category,
			Occasion:          p.Occasion,
			IsOneHourDelivery: p.IsOneHourDelivery,
			Promo:             p.Promo,
			ProductImageTag:   p.ProductImageTag,
			AllergyInfo:       p.AllergyInfo,
			Ingredients:       p.Ingredients,
			SizeCount:         p.SizeCount,
		}
	}
	return res
}

// appliedFilters echoes the effective filters back to the model so it can
// explain empty results. Null price bounds are serialized explicitly.
type appliedFilters struct {
	MaxPrice       *float64 `json:"maxPrice"`
	MinPrice       *float64 `json:"minPrice"`
	DeliveryFilter string   `json:"deliveryFilter"`
}

// toolResult wraps a payload into a tool-role message for the model.
func toolResult(callID string, payload any) domain.ProviderMessage {
	content, err := json.Marshal(payload)
	if err != nil {
		content = fmt.Appendf(nil, `{"success":false,"message":"I ran into an internal problem preparing the result.","details":%q}`, err.Error())
	}
	return domain.ProviderMessage{
		Role:       domain.ChatRole_Tool,
		ToolCallID: &callID,
		Content:    string(content),
	}
}

// unmarshalToolInput unmarshals tool arguments from a JSON string into the
// target struct, ensuring that only a single JSON object is present and that
// there are no unknown fields.
func unmarshalToolInput(arguments string, target any) error {
	decoder := json.NewDecoder(strings.NewReader(arguments))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return err
	}

	// Reject trailing JSON values after the first object.
	var extra any
	if err := decoder.Decode(&extra); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return fmt.Errorf("tool arguments must contain a single JSON object")
}

// parseDeliveryFilter maps the model-supplied string to a DeliveryFilter.
// Unknown values fall back to "any" rather than failing the call.
func parseDeliveryFilter(s *string) domain.DeliveryFilter {
	if s == nil {
		return domain.DeliveryFilter_Any
	}
	switch strings.ToLower(strings.TrimSpace(*s)) {
	case string(domain.DeliveryFilter_Delivery):
		return domain.DeliveryFilter_Delivery
	case string(domain.DeliveryFilter_Pickup):
		return domain.DeliveryFilter_Pickup
	default:
		return domain.DeliveryFilter_Any
	}
}

// applyDeliveryFilter narrows products by their delivery tag. "delivery"
// excludes anything tagged in-store or pickup-only; "pickup" keeps only
// in-store or pickup tagged items.
func applyDeliveryFilter(products []domain.Product, filter domain.DeliveryFilter) []domain.Product {
	switch filter {
	case domain.DeliveryFilter_Delivery:
		kept := make([]domain.Product, 0, len(products))
		for _, p := range products {
			tag := strings.ToLower(p.ProductImageTag)
			if strings.Contains(tag, "in-store") || strings.Contains(tag, "pickup only") {
				continue
			}
			kept = append(kept, p)
		}
		return kept
	case domain.DeliveryFilter_Pickup:
		kept := make([]domain.Product, 0, len(products))
		for _, p := range products {
			tag := strings.ToLower(p.ProductImageTag)
			if strings.Contains(tag, "in-store") || strings.Contains(tag, "pickup") {
				kept = append(kept, p)
			}
		}
		return kept
	default:
		return products
	}
}

// priceInfo renders the human-readable price clause for "no results"
// messages: the max bound wins when both are set.
func priceInfo(maxPrice, minPrice *float64) string {
	switch {
	case maxPrice != nil:
		return " under $" + formatPrice(*maxPrice)
	case minPrice != nil:
		return " above $" + formatPrice(*minPrice)
	default:
		return ""
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
