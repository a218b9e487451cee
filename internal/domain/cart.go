package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Cart payloads and cart tokens carry prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// MaxQuantity is the largest quantity a line can hold. It matches the
// cart_items.quantity INTEGER column.
const MaxQuantity = math.MaxInt32

// CanonicalVariantID trims id and rewrites integer ids in their decimal
// form, so "042" and "42" name the same variant. Other ids are kept as is.
func CanonicalVariantID(id string) string {
	id = strings.TrimSpace(id)
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return id
}

// LineItem is one variant held in a cart. Total is Price * Quantity as of the
// last mutation and is recomputed whenever the item changes.
type LineItem struct {
	VariantID string          `json:"item_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

// PersistedLineItem is the durable per-user row: quantity only, prices are
// always resolved from the catalog.
type PersistedLineItem struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// Snapshot is the serialized cart shared by the client token and events.
type Snapshot struct {
	Items    map[string]LineItem `json:"items"`
	Subtotal decimal.Decimal     `json:"subtotal"`
}

// Cart is a request-scoped set of line items keyed by variant id.
// It is not safe for concurrent use.
type Cart struct {
	items map[string]LineItem
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{items: make(map[string]LineItem)}
}

// FromSnapshot rebuilds a cart from its serialized form. Entries with an
// empty key or a non-positive quantity are dropped, the map key wins over
// item_id and totals are recomputed from price and quantity.
func FromSnapshot(s Snapshot) *Cart {
	c := NewCart()
	for id, item := range s.Items {
		if id == "" || item.Quantity <= 0 {
			continue
		}
		item.VariantID = id
		item.Quantity = min(item.Quantity, MaxQuantity)
		c.put(item)
	}
	return c
}

// CartFromPersisted builds a cart from durable rows, pricing each row with
// priceOf. Rows with a non-positive quantity are skipped.
func CartFromPersisted(rows []PersistedLineItem, priceOf func(variantID string) decimal.Decimal) *Cart {
	c := NewCart()
	for _, row := range rows {
		if row.VariantID == "" || row.Quantity <= 0 {
			continue
		}
		c.put(LineItem{VariantID: row.VariantID, Quantity: min(row.Quantity, MaxQuantity), Price: priceOf(row.VariantID)})
	}
	return c
}

// Add increments the quantity of variantID, creating the line if needed, and
// reprices the whole line at unitPrice. The quantity saturates at
// MaxQuantity.
func (c *Cart) Add(variantID string, unitPrice decimal.Decimal, quantity int) {
	item, ok := c.items[variantID]
	if !ok {
		item = LineItem{VariantID: variantID}
	}
	if quantity >= MaxQuantity-item.Quantity {
		item.Quantity = MaxQuantity
	} else {
		item.Quantity += quantity
	}
	item.Price = unitPrice
	c.put(item)
}

// Remove decrements the quantity of variantID. A line whose quantity would
// drop to zero or below is deleted. Unknown variants are ignored.
func (c *Cart) Remove(variantID string, unitPrice decimal.Decimal, quantity int) {
	item, ok := c.items[variantID]
	if !ok {
		return
	}
	if item.Quantity-quantity <= 0 {
		delete(c.items, variantID)
		return
	}
	item.Quantity -= quantity
	item.Price = unitPrice
	c.put(item)
}

// Subtotal sums every line total.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.items {
		sum = sum.Add(item.Total)
	}
	return sum
}

// Len reports the number of distinct variants in the cart.
func (c *Cart) Len() int {
	return len(c.items)
}

// Item returns the line for variantID.
func (c *Cart) Item(variantID string) (LineItem, bool) {
	item, ok := c.items[variantID]
	return item, ok
}

// Items returns the lines ordered by variant id (numerically when both ids
// are integers).
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return lessVariantID(out[i].VariantID, out[j].VariantID)
	})
	return out
}

// VariantIDs returns the ids held by the cart in Items order.
func (c *Cart) VariantIDs() []string {
	items := c.Items()
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.VariantID)
	}
	return ids
}

// Persisted returns the durable form of the cart.
func (c *Cart) Persisted() []PersistedLineItem {
	items := c.Items()
	rows := make([]PersistedLineItem, 0, len(items))
	for _, item := range items {
		rows = append(rows, PersistedLineItem{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	return rows
}

// Snapshot serializes the cart.
func (c *Cart) Snapshot() Snapshot {
	items := make(map[string]LineItem, len(c.items))
	for id, item := range c.items {
		items[id] = item
	}
	return Snapshot{Items: items, Subtotal: c.Subtotal()}
}

func (c *Cart) put(item LineItem) {
	item.Total = item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
	c.items[item.VariantID] = item
}

func (c *Cart) clone() *Cart {
	out := NewCart()
	if c == nil {
		return out
	}
	for id, item := range c.items {
		out.items[id] = item
	}
	return out
}

func lessVariantID(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}
