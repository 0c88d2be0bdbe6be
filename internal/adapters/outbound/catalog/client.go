// Package catalog provides the client for the Edible Arrangements search API
// with product normalization and a short-lived in-process cache.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"

	"github.com/cleitonmarx/symbiont/depend"

	"github.com/edibleworks/gift-concierge/internal/domain"
	"github.com/edibleworks/gift-concierge/internal/telemetry"
)

// searchResult is a raw record from the search API.
type searchResult struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	MinPrice          *float64 `json:"minPrice"`
	MaxPrice          *float64 `json:"maxPrice"`
	Price             *float64 `json:"price"`
	Image             string   `json:"image"`
	Thumbnail         string   `json:"thumbnail"`
	URL               string   `json:"url"`
	Category          string   `json:"category"`
	Occasion          string   `json:"occasion"`
	AllergyInfo       string   `json:"allergyinformation"`
	IngredientNames   string   `json:"ingrediantNames"` // typo matches the API
	Number            string   `json:"number"`
	LiveSku           *bool    `json:"liveSku"`
	IsOneHourDelivery bool     `json:"isOneHourDelivery"`
	ProductImageTag   string   `json:"productImageTag"`
	Promo             string   `json:"promo"`
	SizeCount         int      `json:"sizeCount"`
}

type searchRequest struct {
	Keyword string `json:"keyword"`
	ZipCode string `json:"zipCode,omitempty"`
}

// Client queries the catalog search API and caches normalized results.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *searchCache
}

// NewClient creates a catalog client. Results are cached per keyword and zip
// code for a short TTL.
func NewClient(baseURL string, httpClient *http.Client, clock domain.CurrentTimeProvider) *Client {
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		cache:   newSearchCache(clock),
	}
}

// Search implements domain.SearchClient.
func (c *Client) Search(ctx context.Context, keyword, zipCode string) ([]domain.Product, error) {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	if cached, ok := c.cache.get(keyword, zipCode); ok {
		return cached, nil
	}

	raw, err := c.fetch(spanCtx, keyword, zipCode)
	if telemetry.RecordErrorAndStatus(span, err) {
		return nil, err
	}

	products := make([]domain.Product, 0, len(raw))
	for _, item := range raw {
		if item.LiveSku != nil && !*item.LiveSku {
			continue
		}
		products = append(products, c.normalize(item))
	}

	c.cache.set(keyword, zipCode, products)
	return products, nil
}

func (c *Client) fetch(ctx context.Context, keyword, zipCode string) ([]searchResult, error) {
	endpoint, err := url.JoinPath(c.baseURL, "/api/search/")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	body, err := json.Marshal(searchRequest{Keyword: keyword, ZipCode: zipCode})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "EdibleGiftConcierge/2.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-2xx response: %s: %s", resp.Status, string(respBody))
	}

	var raw []searchResult
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return raw, nil
}

// normalize converts a raw API record into the domain product shape.
func (c *Client) normalize(raw searchResult) domain.Product {
	productURL := c.baseURL
	if raw.URL != "" {
		productURL, _ = url.JoinPath(c.baseURL, "fruit-gifts", raw.URL)
	}

	imageURL := raw.Image
	if imageURL == "" {
		imageURL = raw.Thumbnail
	}
	thumbnailURL := raw.Thumbnail
	if thumbnailURL == "" {
		thumbnailURL = imageURL
	}

	id := firstNonEmpty(raw.ID, raw.Number, raw.Name)
	name := raw.Name
	if name == "" {
		name = "Edible Arrangement"
	}

	price := pickPrice(raw.MinPrice, raw.MaxPrice, raw.Price)

	return domain.Product{
		ID:                id,
		Name:              name,
		Price:             math.Round(price*100) / 100,
		PriceFormatted:    fmt.Sprintf("$%.2f", price),
		Description:       raw.Description,
		ProductURL:        productURL,
		ImageURL:          imageURL,
		ThumbnailURL:      thumbnailURL,
		Category:          raw.Category,
		Occasion:          raw.Occasion,
		IsOneHourDelivery: raw.IsOneHourDelivery,
		Promo:             raw.Promo,
		ProductImageTag:   raw.ProductImageTag,
		AllergyInfo:       raw.AllergyInfo,
		Ingredients:       raw.IngredientNames,
		SizeCount:         raw.SizeCount,
	}
}

// pickPrice returns the first present, non-zero candidate.
func pickPrice(candidates ...*float64) float64 {
	for _, c := range candidates {
		if c != nil && *c != 0 {
			return *c
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// InitSearchClient initializes the catalog search client dependency.
type InitSearchClient struct {
	HttpClient   *http.Client               `resolve:""`
	TimeProvider domain.CurrentTimeProvider `resolve:""`
	BaseURL      string                     `config:"CATALOG_BASE_URL" default:"https://www.ediblearrangements.com"`
}

// Initialize registers the search client.
func (i InitSearchClient) Initialize(ctx context.Context) (context.Context, error) {
	depend.Register[domain.SearchClient](NewClient(i.BaseURL, i.HttpClient, i.TimeProvider))
	return ctx, nil
}
