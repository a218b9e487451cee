package cart

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

const cartKeyPrefix = "cart:"

type redisRepo struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedis returns a Repository keeping each user's cart in a hash of
// variant id to quantity.
func NewRedis(client *redis.Client, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisRepo{client: client, logger: logger}
}

func (r *redisRepo) Load(ctx context.Context, userID string) ([]domain.PersistedLineItem, error) {
	fields, err := r.client.HGetAll(ctx, cartKeyPrefix+userID).Result()
	if err != nil {
		r.logger.Error("cart repo: redis load", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	items := make([]domain.PersistedLineItem, 0, len(fields))
	for variantID, raw := range fields {
		qty, err := strconv.Atoi(raw)
		if err != nil || qty <= 0 {
			r.logger.Warn("cart repo: drop malformed redis field", zap.String("user_id", userID), zap.String("variant_id", variantID), zap.String("value", raw))
			continue
		}
		items = append(items, domain.PersistedLineItem{VariantID: variantID, Quantity: qty})
	}
	return items, nil
}

func (r *redisRepo) Sync(ctx context.Context, userID string, items []domain.PersistedLineItem) error {
	key := cartKeyPrefix + userID
	values := make([]interface{}, 0, len(items)*2)
	for _, item := range items {
		if item.VariantID == "" || item.Quantity <= 0 {
			continue
		}
		values = append(values, item.VariantID, item.Quantity)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values...)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("cart repo: redis sync", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	r.logger.Debug("cart repo: redis synced", zap.String("user_id", userID), zap.Int("rows", len(values)/2))
	return nil
}
