package domain

import (
	"context"
	"fmt"
	"strings"
)

// Product is a normalized catalog product as exposed to the model and the
// frontend.
type Product struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	PriceFormatted    string  `json:"priceFormatted"`
	Description       string  `json:"description,omitempty"`
	ProductURL        string  `json:"productUrl,omitempty"`
	ImageURL          string  `json:"imageUrl,omitempty"`
	ThumbnailURL      string  `json:"thumbnailUrl,omitempty"`
	Category          string  `json:"category,omitempty"`
	Occasion          string  `json:"occasion,omitempty"`
	IsOneHourDelivery bool    `json:"isOneHourDelivery"`
	Promo             string  `json:"promo,omitempty"`
	ProductImageTag   string  `json:"productImageTag,omitempty"`
	AllergyInfo       string  `json:"allergyInfo,omitempty"`
	Ingredients       string  `json:"ingredients,omitempty"`
	SizeCount         int     `json:"sizeCount,omitempty"`
}

// SameProduct reports whether two products are the same item for
// de-duplication purposes. Identity is the case-insensitive name.
func (p Product) SameProduct(other Product) bool {
	return strings.EqualFold(p.Name, other.Name)
}

// Document renders the product as a text document optimized for embedding.
func (p Product) Document() string {
	parts := []string{
		"Product: " + p.Name,
		"Price: " + p.PriceFormatted,
	}
	if p.Description != "" {
		parts = append(parts, "Description: "+p.Description)
	}
	if p.Category != "" {
		parts = append(parts, "Category: "+p.Category)
	}
	if p.Occasion != "" {
		parts = append(parts, "Occasion: "+p.Occasion)
	}
	if p.AllergyInfo != "" {
		parts = append(parts, "Allergy Info: "+p.AllergyInfo)
	}
	if p.Ingredients != "" {
		parts = append(parts, "Ingredients: "+p.Ingredients)
	}
	if p.IsOneHourDelivery {
		parts = append(parts, "Delivery: Same-day delivery available")
	}
	if p.ProductImageTag != "" {
		parts = append(parts, "Tag: "+p.ProductImageTag)
	}
	if p.SizeCount > 1 {
		parts = append(parts, fmt.Sprintf("Sizes: %d size options available", p.SizeCount))
	}
	if p.Promo != "" {
		parts = append(parts, "Promo: "+p.Promo)
	}
	return strings.Join(parts, " | ")
}

// DeliveryFilter narrows results by fulfillment mode.
type DeliveryFilter string

const (
	DeliveryFilter_Any      DeliveryFilter = "any"
	DeliveryFilter_Delivery DeliveryFilter = "delivery"
	DeliveryFilter_Pickup   DeliveryFilter = "pickup"
)

// SearchClient looks products up in the live catalog.
type SearchClient interface {
	// Search returns normalized products for the keyword, scoped to zipCode
	// when non-empty.
	Search(ctx context.Context, keyword, zipCode string) ([]Product, error)
}

// PriceRange bounds a similarity query on the index side. Nil fields are
// unbounded.
type PriceRange struct {
	Min *float64
	Max *float64
}

// ProductIndex is the vector similarity index over ingested products.
type ProductIndex interface {
	// Similar returns up to limit products ordered by ascending cosine
	// distance from the embedding, with price and delivery filters applied
	// in the query.
	Similar(ctx context.Context, embedding []float64, limit int, price PriceRange, delivery DeliveryFilter) ([]Product, error)
	// Upsert stores products with their embeddings, replacing existing rows
	// by product id.
	Upsert(ctx context.Context, products []Product, embeddings [][]float64) error
	// Count returns the number of indexed products.
	Count(ctx context.Context) (int, error)
}
