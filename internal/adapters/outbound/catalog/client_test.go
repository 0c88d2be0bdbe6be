package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edibleworks/gift-concierge/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newCatalogServer(t *testing.T, results []map[string]any, requests *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requests++
		assert.Equal(t, "/api/search/", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		json.NewEncoder(w).Encode(results) //nolint:errcheck
	}))
}

func TestClientSearch_Normalization(t *testing.T) {
	requests := 0
	server := newCatalogServer(t, []map[string]any{
		{
			"id":                 "sku-1",
			"name":               "Berry Box",
			"minPrice":           39.99,
			"maxPrice":           59.99,
			"url":                "berry-box",
			"image":              "https://cdn.example.com/berry.jpg",
			"description":        "A box of berries.",
			"isOneHourDelivery":  true,
			"ingrediantNames":    "Strawberries, Chocolate",
			"allergyinformation": "Contains: Milk",
			"sizeCount":          2,
		},
	}, &requests)
	defer server.Close()

	clock := &fakeClock{now: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)}
	products, err := NewClient(server.URL, http.DefaultClient, clock).Search(context.Background(), "berries", "")
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "sku-1", p.ID)
	assert.Equal(t, "Berry Box", p.Name)
	// minPrice wins over maxPrice.
	assert.Equal(t, 39.99, p.Price)
	assert.Equal(t, "$39.99", p.PriceFormatted)
	assert.Equal(t, server.URL+"/fruit-gifts/berry-box", p.ProductURL)
	assert.Equal(t, "https://cdn.example.com/berry.jpg", p.ImageURL)
	assert.Equal(t, "https://cdn.example.com/berry.jpg", p.ThumbnailURL)
	assert.Equal(t, "Strawberries, Chocolate", p.Ingredients)
	assert.Equal(t, "Contains: Milk", p.AllergyInfo)
	assert.True(t, p.IsOneHourDelivery)
	assert.Equal(t, 2, p.SizeCount)
}

func TestClientSearch_NormalizationFallbacks(t *testing.T) {
	requests := 0
	server := newCatalogServer(t, []map[string]any{
		{
			"number":    "num-9",
			"price":     25.0,
			"thumbnail": "https://cdn.example.com/thumb.jpg",
		},
	}, &requests)
	defer server.Close()

	clock := &fakeClock{now: time.Now()}
	products, err := NewClient(server.URL, http.DefaultClient, clock).Search(context.Background(), "anything", "")
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "num-9", p.ID)
	assert.Equal(t, "Edible Arrangement", p.Name)
	assert.Equal(t, 25.0, p.Price)
	// Without a slug the product links to the storefront root.
	assert.Equal(t, server.URL, p.ProductURL)
	assert.Equal(t, "https://cdn.example.com/thumb.jpg", p.ImageURL)
	assert.Equal(t, "https://cdn.example.com/thumb.jpg", p.ThumbnailURL)
}

func TestClientSearch_DropsDeadSkus(t *testing.T) {
	requests := 0
	server := newCatalogServer(t, []map[string]any{
		{"id": "live", "name": "Live", "price": 10.0, "liveSku": true},
		{"id": "unknown", "name": "Unknown", "price": 10.0},
		{"id": "dead", "name": "Dead", "price": 10.0, "liveSku": false},
	}, &requests)
	defer server.Close()

	clock := &fakeClock{now: time.Now()}
	products, err := NewClient(server.URL, http.DefaultClient, clock).Search(context.Background(), "cake", "")
	require.NoError(t, err)

	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"Live", "Unknown"}, names)
}

func TestClientSearch_CacheHitWithinTTL(t *testing.T) {
	requests := 0
	server := newCatalogServer(t, []map[string]any{
		{"id": "sku-1", "name": "Cake", "price": 30.0},
	}, &requests)
	defer server.Close()

	clock := &fakeClock{now: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)}
	client := NewClient(server.URL, http.DefaultClient, clock)

	_, err := client.Search(context.Background(), "Cake", "06460")
	require.NoError(t, err)

	// Same keyword modulo case and whitespace reuses the cached result.
	clock.advance(time.Minute)
	_, err = client.Search(context.Background(), "  cake ", "06460")
	require.NoError(t, err)
	assert.Equal(t, 1, requests)

	// A different zip code is a different cache entry.
	_, err = client.Search(context.Background(), "cake", "10001")
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestClientSearch_CacheExpiresAfterTTL(t *testing.T) {
	requests := 0
	server := newCatalogServer(t, []map[string]any{
		{"id": "sku-1", "name": "Cake", "price": 30.0},
	}, &requests)
	defer server.Close()

	clock := &fakeClock{now: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)}
	client := NewClient(server.URL, http.DefaultClient, clock)

	_, err := client.Search(context.Background(), "cake", "")
	require.NoError(t, err)

	clock.advance(2*time.Minute + time.Second)
	_, err = client.Search(context.Background(), "cake", "")
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestSearchCache_EvictsOldestInserted(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := newSearchCache(clock)

	for i := 0; i < maxCacheSize+1; i++ {
		cache.set(fmt.Sprintf("keyword-%03d", i), "", []domain.Product{{ID: fmt.Sprintf("%d", i)}})
	}

	_, ok := cache.get("keyword-000", "")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = cache.get("keyword-001", "")
	assert.True(t, ok)
	_, ok = cache.get(fmt.Sprintf("keyword-%03d", maxCacheSize), "")
	assert.True(t, ok)
}

func TestClientSearch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	clock := &fakeClock{now: time.Now()}
	_, err := NewClient(server.URL, http.DefaultClient, clock).Search(context.Background(), "cake", "")
	require.Error(t, err)
	assert.ErrorContains(t, err, "non-2xx response")
}
