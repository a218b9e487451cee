package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/events"
)

// ErrInvalidQuantity is returned for add/remove quantities below 1.
var ErrInvalidQuantity = fmt.Errorf("%w: quantity must be a positive integer", domain.ErrInvalidInput)

// ErrQuantityTooLarge is returned for add/remove quantities above
// domain.MaxQuantity.
var ErrQuantityTooLarge = fmt.Errorf("%w: quantity may not be greater than %d", domain.ErrInvalidInput, domain.MaxQuantity)

// ErrVariantRequired is returned when no variant id is supplied.
var ErrVariantRequired = fmt.Errorf("%w: variant is required", domain.ErrInvalidInput)

type cartStore interface {
	Load(ctx context.Context, userID string) ([]domain.PersistedLineItem, error)
	Sync(ctx context.Context, userID string, items []domain.PersistedLineItem) error
}

type variantLookup interface {
	FindByIDs(ctx context.Context, ids []string, locale string) ([]domain.Variant, error)
}

type snapshotCodec interface {
	Encode(s domain.Snapshot) (string, error)
	Decode(token string) (*domain.Snapshot, bool)
}

type publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Service reconciles the client cart token with the persisted cart of an
// authenticated user, applies one mutation and prices the result.
type Service struct {
	store     cartStore
	variants  variantLookup
	codec     snapshotCodec
	publisher publisher
	logger    *zap.Logger
}

// New builds a Service. publisher may be nil to disable cart events.
func New(store cartStore, variants variantLookup, codec snapshotCodec, publisher publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, variants: variants, codec: codec, publisher: publisher, logger: logger}
}

// Request carries the caller context of one cart operation.
type Request struct {
	// UserID is empty for anonymous callers.
	UserID string
	// Token is the client cart token, possibly empty or malformed.
	Token  string
	Locale string
}

func (r Request) authenticated() bool {
	return r.UserID != ""
}

// Result is the outcome of a cart operation. Token is empty when the client
// token should be left as is.
type Result struct {
	Cart  PricedCart
	Token string
}

// PricedCart is the displayable cart, priced from current catalog data.
type PricedCart struct {
	Items    map[string]PricedItem `json:"items"`
	Subtotal decimal.Decimal       `json:"subtotal"`
}

type PricedItem struct {
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
	Item     ItemView        `json:"item"`
}

// ItemView describes a variant in a priced cart.
type ItemView struct {
	ID                string              `json:"id"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	SKU               string              `json:"sku"`
	Options           json.RawMessage     `json:"options"`
	CompareAtPrice    decimal.NullDecimal `json:"compareAtPrice"`
	Price             decimal.Decimal     `json:"price"`
	ProductType       string              `json:"product_type"`
	AvailableQuantity int                 `json:"available_quantity"`
	Image             *domain.Image       `json:"image"`
	MainImage         *domain.Image       `json:"main_image"`
}

type cartUpdatedEvent struct {
	UserID   string          `json:"userId"`
	Items    map[string]int  `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type mutation func(c *domain.Cart, variantID string, unitPrice decimal.Decimal, quantity int)

// Show returns the priced cart without mutating or persisting anything.
func (s *Service) Show(ctx context.Context, req Request) (*Result, error) {
	merged, catalog, err := s.load(ctx, req, "")
	if err != nil {
		return nil, err
	}
	return &Result{Cart: present(merged, catalog)}, nil
}

// Add increments variantID by quantity.
func (s *Service) Add(ctx context.Context, req Request, variantID string, quantity int) (*Result, error) {
	return s.mutate(ctx, req, "add", variantID, quantity, (*domain.Cart).Add)
}

// Remove decrements variantID by quantity, deleting the line when it would
// drop to zero or below.
func (s *Service) Remove(ctx context.Context, req Request, variantID string, quantity int) (*Result, error) {
	return s.mutate(ctx, req, "remove", variantID, quantity, (*domain.Cart).Remove)
}

func (s *Service) mutate(ctx context.Context, req Request, op, variantID string, quantity int, apply mutation) (*Result, error) {
	variantID = domain.CanonicalVariantID(variantID)
	if variantID == "" {
		return nil, ErrVariantRequired
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity > domain.MaxQuantity {
		return nil, ErrQuantityTooLarge
	}

	merged, catalog, err := s.load(ctx, req, variantID)
	if err != nil {
		return nil, err
	}
	variant, ok := catalog[variantID]
	if !ok {
		return nil, fmt.Errorf("variant %s: %w", variantID, domain.ErrNotFound)
	}

	apply(merged, variantID, variant.Price, quantity)
	priced := present(merged, catalog)

	// The token is built first so a failure leaves storage untouched.
	token, err := s.codec.Encode(merged.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}

	if req.authenticated() {
		if err := s.store.Sync(ctx, req.UserID, merged.Persisted()); err != nil {
			s.logger.Error("cart: sync failed", zap.String("op", op), zap.String("user_id", req.UserID), zap.Error(err))
			return nil, fmt.Errorf("sync cart: %w", err)
		}
		s.publish(ctx, req.UserID, merged, priced.Subtotal)
	}

	s.logger.Info("cart: updated",
		zap.String("op", op),
		zap.String("variant_id", variantID),
		zap.Int("quantity", quantity),
		zap.Bool("authenticated", req.authenticated()),
		zap.Int("lines", merged.Len()),
	)
	return &Result{Cart: priced, Token: token}, nil
}

// load merges the client token with the persisted cart and resolves every
// variant involved, plus target when set, with a single lookup.
func (s *Service) load(ctx context.Context, req Request, target string) (*domain.Cart, map[string]domain.Variant, error) {
	var client *domain.Cart
	if snap, ok := s.codec.Decode(req.Token); ok {
		client = domain.FromSnapshot(*snap)
	} else if req.Token != "" {
		s.logger.Debug("cart: ignoring unreadable cart token")
	}

	var rows []domain.PersistedLineItem
	if req.authenticated() {
		var err error
		rows, err = s.store.Load(ctx, req.UserID)
		if err != nil {
			s.logger.Error("cart: load persisted", zap.String("user_id", req.UserID), zap.Error(err))
			return nil, nil, fmt.Errorf("load cart: %w", err)
		}
	}

	ids := collectIDs(client, rows, target)
	catalog := make(map[string]domain.Variant, len(ids))
	if len(ids) > 0 {
		variants, err := s.variants.FindByIDs(ctx, ids, req.Locale)
		if err != nil {
			return nil, nil, fmt.Errorf("lookup variants: %w", err)
		}
		for _, v := range variants {
			catalog[v.ID] = v
		}
	}

	persisted := domain.CartFromPersisted(rows, func(id string) decimal.Decimal {
		return catalog[id].Price
	})
	return domain.Merge(client, persisted), catalog, nil
}

func (s *Service) publish(ctx context.Context, userID string, c *domain.Cart, subtotal decimal.Decimal) {
	if s.publisher == nil {
		return
	}
	evt := cartUpdatedEvent{UserID: userID, Items: make(map[string]int, c.Len()), Subtotal: subtotal}
	for _, item := range c.Items() {
		evt.Items[item.VariantID] = item.Quantity
	}
	body, err := json.Marshal(evt)
	if err != nil {
		s.logger.Warn("cart: encode event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, events.CartUpdated, body); err != nil {
		s.logger.Warn("cart: publish event", zap.String("user_id", userID), zap.Error(err))
	}
}

// present prices every line at the current catalog price. Lines whose
// variant is gone are left out.
func present(c *domain.Cart, catalog map[string]domain.Variant) PricedCart {
	out := PricedCart{Items: make(map[string]PricedItem, c.Len()), Subtotal: decimal.Zero}
	for _, item := range c.Items() {
		v, ok := catalog[item.VariantID]
		if !ok {
			continue
		}
		total := v.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		out.Items[item.VariantID] = PricedItem{
			Quantity: item.Quantity,
			Total:    total,
			Item: ItemView{
				ID:                v.ID,
				Title:             v.Product.Title,
				Description:       v.Product.Description,
				SKU:               v.SKU,
				Options:           v.Options,
				CompareAtPrice:    v.CompareAtPrice,
				Price:             v.Price,
				ProductType:       v.Product.ProductType,
				AvailableQuantity: v.Quantity,
				Image:             v.Image,
				MainImage:         v.Product.MainImage,
			},
		}
		out.Subtotal = out.Subtotal.Add(total)
	}
	return out
}

func collectIDs(client *domain.Cart, rows []domain.PersistedLineItem, target string) []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if client != nil {
		for _, id := range client.VariantIDs() {
			add(id)
		}
	}
	for _, row := range rows {
		add(row.VariantID)
	}
	add(target)
	return ids
}
