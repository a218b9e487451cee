package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/catalog"
)

type CatalogWriter interface {
	UpsertProduct(ctx context.Context, in catalog.ProductInput) (string, error)
	UpsertVariant(ctx context.Context, in catalog.VariantInput) (string, error)
}

// Stats counts the rows written by a run.
type Stats struct {
	Products int
	Variants int
}

// CSVImporter loads products and their variants from a CSV export. A row
// with a code starts a product; rows without one add variants to it.
type CSVImporter struct {
	reader *csv.Reader
	repo   CatalogWriter
	logger *zap.Logger
}

func NewCSVImporter(r io.Reader, repo CatalogWriter, logger *zap.Logger) *CSVImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{reader: csvr, repo: repo, logger: logger}
}

// Run parses every row and upserts products and variants in file order.
func (i *CSVImporter) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	headers, err := i.reader.Read()
	if err != nil {
		return stats, fmt.Errorf("read headers: %w", err)
	}
	cols := newColumns(headers)
	if _, ok := cols.index["sku"]; !ok {
		return stats, errors.New("missing sku column")
	}

	var productID string
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return stats, fmt.Errorf("read row %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		if code := cols.pick(record, "code"); code != "" {
			product, err := cols.product(record)
			if err != nil {
				return stats, fmt.Errorf("row %d: %w", line, err)
			}
			productID, err = i.repo.UpsertProduct(ctx, product)
			if err != nil {
				return stats, fmt.Errorf("upsert product %q: %w", code, err)
			}
			stats.Products++
		}

		if cols.pick(record, "sku") == "" {
			continue
		}
		if productID == "" {
			return stats, fmt.Errorf("row %d: variant before any product", line)
		}
		variant, err := cols.variant(record, productID)
		if err != nil {
			return stats, fmt.Errorf("row %d: %w", line, err)
		}
		if _, err := i.repo.UpsertVariant(ctx, variant); err != nil {
			return stats, fmt.Errorf("upsert variant %q: %w", variant.SKU, err)
		}
		stats.Variants++
	}

	i.logger.Info("importer: catalog loaded", zap.Int("products", stats.Products), zap.Int("variants", stats.Variants))
	return stats, nil
}

type columns struct {
	index map[string]int
	// locales maps a translated field to its locale columns, e.g.
	// "title" -> {"en": 1, "ar": 2}.
	locales map[string]map[string]int
}

func newColumns(headers []string) columns {
	c := columns{index: make(map[string]int, len(headers)), locales: map[string]map[string]int{}}
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		c.index[h] = i
		if field, locale, ok := strings.Cut(h, "."); ok && locale != "" {
			if c.locales[field] == nil {
				c.locales[field] = map[string]int{}
			}
			c.locales[field][locale] = i
		}
	}
	return c
}

func (c columns) pick(record []string, key string) string {
	pos, ok := c.index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func (c columns) text(record []string, field string) domain.Translations {
	values := map[string]string{}
	for locale, pos := range c.locales[field] {
		if pos < len(record) {
			values[locale] = strings.TrimSpace(record[pos])
		}
	}
	return domain.TextTranslations(values)
}

// options accepts a JSON object per locale, or plain text.
func (c columns) options(record []string) domain.Translations {
	out := domain.Translations{}
	for locale, pos := range c.locales["options"] {
		if pos >= len(record) {
			continue
		}
		v := strings.TrimSpace(record[pos])
		if v == "" {
			continue
		}
		if json.Valid([]byte(v)) {
			out[locale] = json.RawMessage(v)
			continue
		}
		raw, _ := json.Marshal(v)
		out[locale] = raw
	}
	return out
}

func (c columns) product(record []string) (catalog.ProductInput, error) {
	in := catalog.ProductInput{
		Code:        c.pick(record, "code"),
		Title:       c.text(record, "title"),
		Description: c.text(record, "description"),
		ProductType: c.pick(record, "product_type"),
		MainImage:   image(c.pick(record, "main_image_url")),
	}
	if len(in.Title) == 0 {
		return in, fmt.Errorf("product %q has no title", in.Code)
	}
	if in.ProductType == "" {
		in.ProductType = "physical"
	}
	return in, nil
}

func (c columns) variant(record []string, productID string) (catalog.VariantInput, error) {
	in := catalog.VariantInput{
		ProductID: productID,
		SKU:       c.pick(record, "sku"),
		Options:   c.options(record),
		Image:     image(c.pick(record, "image_url")),
	}

	price, err := decimal.NewFromString(c.pick(record, "price"))
	if err != nil || price.IsNegative() {
		return in, fmt.Errorf("variant %q: invalid price %q", in.SKU, c.pick(record, "price"))
	}
	in.Price = price

	if v := c.pick(record, "compare_at_price"); v != "" {
		cmp, err := decimal.NewFromString(v)
		if err != nil {
			return in, fmt.Errorf("variant %q: invalid compare_at_price %q", in.SKU, v)
		}
		in.CompareAtPrice = decimal.NewNullDecimal(cmp)
	}

	if v := c.pick(record, "quantity"); v != "" {
		qty, err := strconv.Atoi(v)
		if err != nil || qty < 0 {
			return in, fmt.Errorf("variant %q: invalid quantity %q", in.SKU, v)
		}
		in.Quantity = qty
	}
	return in, nil
}

func image(url string) *domain.Image {
	if url == "" {
		return nil
	}
	name := url
	if i := strings.LastIndex(url, "/"); i >= 0 && i < len(url)-1 {
		name = url[i+1:]
	}
	return &domain.Image{URL: url, FileName: name}
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
