package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/edibleworks/gift-concierge/internal/domain"
	"github.com/edibleworks/gift-concierge/internal/telemetry"
)

// DefaultIngestKeywords bootstraps the vector index with a diverse slice of
// the catalog when no explicit keywords are provided.
var DefaultIngestKeywords = []string{
	"chocolate strawberries",
	"fruit arrangement",
	"birthday",
	"thank you",
	"sympathy",
	"valentines",
	"cake",
	"cookies",
	"gift basket",
	"corporate gift",
	"flowers",
	"get well",
	"anniversary",
	"congratulations",
	"new baby",
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	KeywordsSearched int `json:"keywordsSearched"`
	TotalFetched     int `json:"totalFetched"`
	UniqueProducts   int `json:"uniqueProducts"`
	Upserted         int `json:"upserted"`
	IndexTotal       int `json:"indexTotal"`
}

// IngestProducts is the use case interface for crawling catalog keywords
// into the vector index.
type IngestProducts interface {
	Execute(ctx context.Context, keywords []string) (IngestReport, error)
}

// IngestProductsImpl is the implementation of the IngestProducts use case.
type IngestProductsImpl struct {
	searchClient domain.SearchClient
	encoder      domain.SemanticEncoder
	index        domain.ProductIndex
}

// NewIngestProductsImpl creates a new instance of IngestProductsImpl.
func NewIngestProductsImpl(
	searchClient domain.SearchClient,
	encoder domain.SemanticEncoder,
	index domain.ProductIndex,
) IngestProductsImpl {
	return IngestProductsImpl{
		searchClient: searchClient,
		encoder:      encoder,
		index:        index,
	}
}

// Execute fetches products for each keyword, de-duplicates them by id,
// embeds the survivors and upserts them into the index.
func (ip IngestProductsImpl) Execute(ctx context.Context, keywords []string) (IngestReport, error) {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	cleaned := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	if len(cleaned) == 0 {
		cleaned = DefaultIngestKeywords
	}

	report := IngestReport{KeywordsSearched: len(cleaned)}

	seen := map[string]bool{}
	unique := []domain.Product{}
	for _, keyword := range cleaned {
		products, err := ip.searchClient.Search(spanCtx, keyword, "")
		if err != nil {
			telemetry.RecordErrorAndStatus(span, err)
			return IngestReport{}, fmt.Errorf("failed to fetch products for %q: %w", keyword, err)
		}
		report.TotalFetched += len(products)

		for _, p := range products {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			unique = append(unique, p)
		}
	}
	report.UniqueProducts = len(unique)

	if len(unique) > 0 {
		embeddings := make([][]float64, len(unique))
		for i, p := range unique {
			vector, err := ip.encoder.VectorizeProduct(spanCtx, p)
			if err != nil {
				telemetry.RecordErrorAndStatus(span, err)
				return IngestReport{}, fmt.Errorf("failed to embed product %q: %w", p.Name, err)
			}
			if vector.TotalTokens > 0 {
				RecordLLMTokensEmbedding(spanCtx, vector.TotalTokens)
			}
			embeddings[i] = vector.Vector
		}

		if err := ip.index.Upsert(spanCtx, unique, embeddings); err != nil {
			telemetry.RecordErrorAndStatus(span, err)
			return IngestReport{}, fmt.Errorf("failed to upsert products: %w", err)
		}
		report.Upserted = len(unique)
	}

	total, err := ip.index.Count(spanCtx)
	if telemetry.RecordErrorAndStatus(span, err) {
		return IngestReport{}, fmt.Errorf("failed to count indexed products: %w", err)
	}
	report.IndexTotal = total

	return report, nil
}
