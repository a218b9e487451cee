package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// ProductInput describes a product to insert or update, keyed by Code.
type ProductInput struct {
	Code        string
	Title       domain.Translations
	Description domain.Translations
	ProductType string
	MainImage   *domain.Image
}

// VariantInput describes a variant to insert or update, keyed by SKU.
type VariantInput struct {
	ProductID      string
	SKU            string
	Price          decimal.Decimal
	CompareAtPrice decimal.NullDecimal
	Quantity       int
	Options        domain.Translations
	Image          *domain.Image
}

type Repository interface {
	// FindByIDs returns the live variants among ids, resolved to locale.
	// Unknown, malformed and soft-deleted ids are left out.
	FindByIDs(ctx context.Context, ids []string, locale string) ([]domain.Variant, error)
	UpsertProduct(ctx context.Context, in ProductInput) (string, error)
	UpsertVariant(ctx context.Context, in VariantInput) (string, error)
}
