package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

type postgresRepo struct {
	pool           *pgxpool.Pool
	logger         *zap.Logger
	fallbackLocale string
}

// NewPostgres returns a Repository backed by Postgres. Translated fields fall
// back to fallbackLocale when the requested locale is missing.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger, fallbackLocale string) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger, fallbackLocale: fallbackLocale}
}

func (r *postgresRepo) FindByIDs(ctx context.Context, ids []string, locale string) ([]domain.Variant, error) {
	keys := make([]int64, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			r.logger.Debug("catalog repo: skip malformed variant id", zap.String("variant_id", id))
			continue
		}
		keys = append(keys, n)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	const q = `
SELECT v.id::text, v.product_id::text, v.sku, v.price::text, v.compare_at_price::text, v.quantity, v.options, v.image,
       p.code, p.title, p.description, p.product_type, p.main_image
FROM variants v
JOIN products p ON p.id = v.product_id
WHERE v.id = ANY($1) AND v.deleted_at IS NULL AND p.deleted_at IS NULL
ORDER BY v.id ASC
`
	rows, err := r.pool.Query(ctx, q, keys)
	if err != nil {
		r.logger.Error("catalog repo: find variants", zap.Int("count", len(keys)), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Variant
	for rows.Next() {
		var (
			v                                 domain.Variant
			price                             string
			compareAt                         *string
			options, image                    []byte
			title, description, mainImageJSON []byte
		)
		if err := rows.Scan(
			&v.ID,
			&v.ProductID,
			&v.SKU,
			&price,
			&compareAt,
			&v.Quantity,
			&options,
			&image,
			&v.Product.Code,
			&title,
			&description,
			&v.Product.ProductType,
			&mainImageJSON,
		); err != nil {
			return nil, err
		}
		v.Product.ID = v.ProductID
		if err := r.decodeVariant(&v, price, compareAt, options, image, locale); err != nil {
			r.logger.Error("catalog repo: decode variant", zap.String("variant_id", v.ID), zap.Error(err))
			return nil, err
		}
		if err := r.decodeProduct(&v.Product, title, description, mainImageJSON, locale); err != nil {
			r.logger.Error("catalog repo: decode product", zap.String("product_id", v.ProductID), zap.Error(err))
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("catalog repo: find variants rows", zap.Error(err))
		return nil, err
	}
	r.logger.Debug("catalog repo: find variants", zap.Int("requested", len(keys)), zap.Int("found", len(result)), zap.String("locale", locale))
	return result, nil
}

func (r *postgresRepo) UpsertProduct(ctx context.Context, in ProductInput) (string, error) {
	title, err := json.Marshal(in.Title)
	if err != nil {
		return "", err
	}
	description, err := json.Marshal(in.Description)
	if err != nil {
		return "", err
	}
	mainImage, err := marshalImage(in.MainImage)
	if err != nil {
		return "", err
	}

	const q = `
INSERT INTO products (code, title, description, product_type, main_image)
VALUES ($1, $2::jsonb, $3::jsonb, $4, $5::jsonb)
ON CONFLICT (code) DO UPDATE SET
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    product_type = EXCLUDED.product_type,
    main_image = EXCLUDED.main_image,
    deleted_at = NULL,
    updated_at = now()
RETURNING id::text
`
	var id string
	if err := r.pool.QueryRow(ctx, q, in.Code, string(title), string(description), in.ProductType, mainImage).Scan(&id); err != nil {
		r.logger.Error("catalog repo: upsert product", zap.String("code", in.Code), zap.Error(err))
		return "", err
	}
	r.logger.Info("catalog repo: upserted product", zap.String("code", in.Code), zap.String("product_id", id))
	return id, nil
}

func (r *postgresRepo) UpsertVariant(ctx context.Context, in VariantInput) (string, error) {
	options, err := json.Marshal(in.Options)
	if err != nil {
		return "", err
	}
	image, err := marshalImage(in.Image)
	if err != nil {
		return "", err
	}
	var compareAt *string
	if in.CompareAtPrice.Valid {
		s := in.CompareAtPrice.Decimal.String()
		compareAt = &s
	}

	const q = `
INSERT INTO variants (product_id, sku, price, compare_at_price, quantity, options, image)
VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6::jsonb, $7::jsonb)
ON CONFLICT (sku) DO UPDATE SET
    product_id = EXCLUDED.product_id,
    price = EXCLUDED.price,
    compare_at_price = EXCLUDED.compare_at_price,
    quantity = EXCLUDED.quantity,
    options = EXCLUDED.options,
    image = EXCLUDED.image,
    deleted_at = NULL,
    updated_at = now()
RETURNING id::text
`
	var id string
	if err := r.pool.QueryRow(ctx, q, in.ProductID, in.SKU, in.Price.String(), compareAt, in.Quantity, string(options), image).Scan(&id); err != nil {
		r.logger.Error("catalog repo: upsert variant", zap.String("sku", in.SKU), zap.Error(err))
		return "", err
	}
	r.logger.Info("catalog repo: upserted variant", zap.String("sku", in.SKU), zap.String("variant_id", id))
	return id, nil
}

func (r *postgresRepo) decodeVariant(v *domain.Variant, price string, compareAt *string, options, image []byte, locale string) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return fmt.Errorf("price %q: %w", price, err)
	}
	v.Price = p
	if compareAt != nil {
		c, err := decimal.NewFromString(*compareAt)
		if err != nil {
			return fmt.Errorf("compare_at_price %q: %w", *compareAt, err)
		}
		v.CompareAtPrice = decimal.NewNullDecimal(c)
	}
	if len(options) > 0 {
		var tr domain.Translations
		if err := json.Unmarshal(options, &tr); err != nil {
			return fmt.Errorf("options: %w", err)
		}
		v.Options = tr.Resolve(locale, r.fallbackLocale)
	}
	v.Image, err = unmarshalImage(image)
	return err
}

func (r *postgresRepo) decodeProduct(p *domain.Product, title, description, mainImage []byte, locale string) error {
	var titles, descriptions domain.Translations
	if len(title) > 0 {
		if err := json.Unmarshal(title, &titles); err != nil {
			return fmt.Errorf("title: %w", err)
		}
	}
	if len(description) > 0 {
		if err := json.Unmarshal(description, &descriptions); err != nil {
			return fmt.Errorf("description: %w", err)
		}
	}
	p.Title = titles.Text(locale, r.fallbackLocale)
	p.Description = descriptions.Text(locale, r.fallbackLocale)
	img, err := unmarshalImage(mainImage)
	if err != nil {
		return err
	}
	p.MainImage = img
	return nil
}

func marshalImage(img *domain.Image) (*string, error) {
	if img == nil || img.URL == "" {
		return nil, nil
	}
	raw, err := json.Marshal(img)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}

func unmarshalImage(raw []byte) (*domain.Image, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var img domain.Image
	if err := json.Unmarshal(raw, &img); err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	if img.URL == "" {
		return nil, nil
	}
	return &img, nil
}
