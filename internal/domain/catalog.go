package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Image describes a stored media file attached to a product or variant.
type Image struct {
	ID       string `json:"id,omitempty"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
	URL      string `json:"url"`
	Srcset   string `json:"srcset,omitempty"`
}

// Product carries the display fields of a catalog product, already resolved
// to a single locale.
type Product struct {
	ID          string `json:"id"`
	Code        string `json:"code,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ProductType string `json:"product_type"`
	MainImage   *Image `json:"main_image,omitempty"`
}

// Variant is a purchasable SKU of a product with its own price and stock.
type Variant struct {
	ID             string              `json:"id"`
	ProductID      string              `json:"productId"`
	SKU            string              `json:"sku"`
	Price          decimal.Decimal     `json:"price"`
	CompareAtPrice decimal.NullDecimal `json:"compareAtPrice"`
	Quantity       int                 `json:"quantity"`
	Options        json.RawMessage     `json:"options,omitempty"`
	Image          *Image              `json:"image,omitempty"`
	Product        Product             `json:"product"`
}
