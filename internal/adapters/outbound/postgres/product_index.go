package postgres

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/cleitonmarx/symbiont/depend"
	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/edibleworks/gift-concierge/internal/domain"
	"github.com/edibleworks/gift-concierge/internal/telemetry"
)

// pickupOnlyTag marks products that cannot be delivered.
const pickupOnlyTag = "In-Store Pickup Only"

var productFields = []string{
	"id",
	"name",
	"price",
	"price_formatted",
	"description",
	"product_url",
	"image_url",
	"thumbnail_url",
	"category",
	"occasion",
	"is_one_hour_delivery",
	"promo",
	"product_image_tag",
	"allergy_info",
	"ingredients",
	"size_count",
}

// ProductIndex implements domain.ProductIndex on a pgvector-backed table.
type ProductIndex struct {
	sb squirrel.StatementBuilderType
}

// NewProductIndex creates a new instance of ProductIndex.
func NewProductIndex(br squirrel.BaseRunner) ProductIndex {
	return ProductIndex{
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).RunWith(br),
	}
}

// Similar returns up to limit products ordered by ascending cosine distance
// from the embedding, with price and delivery filters applied in SQL.
func (pi ProductIndex) Similar(ctx context.Context, embedding []float64, limit int, price domain.PriceRange, delivery domain.DeliveryFilter) ([]domain.Product, error) {
	spanCtx, span := telemetry.Start(ctx, trace.WithAttributes(
		attribute.Int("limit", limit),
	))
	defer span.End()

	if limit <= 0 {
		return nil, domain.NewValidationErr("limit must be greater than 0")
	}
	if len(embedding) == 0 {
		return nil, domain.NewValidationErr("embedding must not be empty")
	}

	qry := pi.sb.
		Select(productFields...).
		From("products").
		Where(squirrel.NotEq{"embedding": nil}).
		OrderByClause(squirrel.Expr(
			"embedding <=> ?",
			pgvector.NewVector(toFloat32Truncated(embedding)),
		)).
		Limit(uint64(limit))

	if price.Max != nil {
		qry = qry.Where(squirrel.Lt{"price": *price.Max})
	}
	if price.Min != nil {
		qry = qry.Where(squirrel.GtOrEq{"price": *price.Min})
	}

	switch delivery {
	case domain.DeliveryFilter_Delivery:
		qry = qry.Where(squirrel.NotEq{"product_image_tag": pickupOnlyTag})
	case domain.DeliveryFilter_Pickup:
		qry = qry.Where(squirrel.Eq{"product_image_tag": pickupOnlyTag})
	}

	rows, err := qry.QueryContext(spanCtx)
	if telemetry.RecordErrorAndStatus(span, err) {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Price,
			&p.PriceFormatted,
			&p.Description,
			&p.ProductURL,
			&p.ImageURL,
			&p.ThumbnailURL,
			&p.Category,
			&p.Occasion,
			&p.IsOneHourDelivery,
			&p.Promo,
			&p.ProductImageTag,
			&p.AllergyInfo,
			&p.Ingredients,
			&p.SizeCount,
		)
		if telemetry.RecordErrorAndStatus(span, err) {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); telemetry.RecordErrorAndStatus(span, err) {
		return nil, err
	}
	return products, nil
}

// Upsert stores products with their embeddings, replacing existing rows by
// product id.
func (pi ProductIndex) Upsert(ctx context.Context, products []domain.Product, embeddings [][]float64) error {
	spanCtx, span := telemetry.Start(ctx, trace.WithAttributes(
		attribute.Int("products", len(products)),
	))
	defer span.End()

	if len(products) != len(embeddings) {
		return domain.NewValidationErr("products and embeddings must have the same length")
	}
	if len(products) == 0 {
		return nil
	}

	qry := pi.sb.
		Insert("products").
		Columns(append(append([]string{}, productFields...), "embedding")...)

	for i, p := range products {
		qry = qry.Values(
			p.ID,
			p.Name,
			p.Price,
			p.PriceFormatted,
			p.Description,
			p.ProductURL,
			p.ImageURL,
			p.ThumbnailURL,
			p.Category,
			p.Occasion,
			p.IsOneHourDelivery,
			p.Promo,
			p.ProductImageTag,
			p.AllergyInfo,
			p.Ingredients,
			p.SizeCount,
			pgvector.NewVector(toFloat32Truncated(embeddings[i])),
		)
	}

	qry = qry.Suffix(`ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		price = EXCLUDED.price,
		price_formatted = EXCLUDED.price_formatted,
		description = EXCLUDED.description,
		product_url = EXCLUDED.product_url,
		image_url = EXCLUDED.image_url,
		thumbnail_url = EXCLUDED.thumbnail_url,
		category = EXCLUDED.category,
		occasion = EXCLUDED.occasion,
		is_one_hour_delivery = EXCLUDED.is_one_hour_delivery,
		promo = EXCLUDED.promo,
		product_image_tag = EXCLUDED.product_image_tag,
		allergy_info = EXCLUDED.allergy_info,
		ingredients = EXCLUDED.ingredients,
		size_count = EXCLUDED.size_count,
		embedding = EXCLUDED.embedding,
		updated_at = now()`)

	_, err := qry.ExecContext(spanCtx)
	if telemetry.RecordErrorAndStatus(span, err) {
		return err
	}
	return nil
}

// Count returns the number of indexed products.
func (pi ProductIndex) Count(ctx context.Context) (int, error) {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	var count int
	err := pi.sb.
		Select("count(*)").
		From("products").
		QueryRowContext(spanCtx).
		Scan(&count)
	if telemetry.RecordErrorAndStatus(span, err) {
		return 0, err
	}
	return count, nil
}

// InitProductIndex is a Symbiont initializer for ProductIndex.
type InitProductIndex struct {
	DB *sql.DB `resolve:""`
}

// Initialize registers the ProductIndex in the dependency container.
func (i InitProductIndex) Initialize(ctx context.Context) (context.Context, error) {
	depend.Register[domain.ProductIndex](NewProductIndex(i.DB))
	return ctx, nil
}

func toFloat32Truncated(input []float64) []float32 {
	f32 := make([]float32, len(input))
	for i, v := range input {
		f32[i] = float32(v)
	}
	return f32
}
