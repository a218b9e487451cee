package cart

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by the cart_items table.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Load(ctx context.Context, userID string) ([]domain.PersistedLineItem, error) {
	const q = `
SELECT variant_id::text, quantity
FROM cart_items
WHERE user_id = $1
ORDER BY variant_id ASC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		r.logger.Error("cart repo: load", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	items := []domain.PersistedLineItem{}
	for rows.Next() {
		var item domain.PersistedLineItem
		if err := rows.Scan(&item.VariantID, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("cart repo: load rows", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return items, nil
}

func (r *postgresRepo) Sync(ctx context.Context, userID string, items []domain.PersistedLineItem) error {
	keep := make([]int64, 0, len(items))
	rows := make([]domain.PersistedLineItem, 0, len(items))
	for _, item := range items {
		id, err := strconv.ParseInt(item.VariantID, 10, 64)
		if err != nil || item.Quantity <= 0 {
			r.logger.Warn("cart repo: skip unstorable line", zap.String("user_id", userID), zap.String("variant_id", item.VariantID), zap.Int("quantity", item.Quantity))
			continue
		}
		keep = append(keep, id)
		rows = append(rows, item)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	removed, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND NOT (variant_id = ANY($2))`, userID, keep)
	if err != nil {
		r.logger.Error("cart repo: delete stale rows", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	// Variants removed from the catalog are skipped rather than failing the
	// whole sync on the foreign key.
	const upsert = `
INSERT INTO cart_items (user_id, variant_id, quantity)
SELECT $1, $2, $3
WHERE EXISTS (SELECT 1 FROM variants WHERE id = $2)
ON CONFLICT (user_id, variant_id) DO UPDATE SET
    quantity = EXCLUDED.quantity,
    updated_at = now()
`
	for i, item := range rows {
		if _, err := tx.Exec(ctx, upsert, userID, keep[i], item.Quantity); err != nil {
			r.logger.Error("cart repo: upsert row", zap.String("user_id", userID), zap.String("variant_id", item.VariantID), zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.logger.Debug("cart repo: synced", zap.String("user_id", userID), zap.Int("rows", len(rows)), zap.Int64("removed", removed.RowsAffected()))
	return nil
}
