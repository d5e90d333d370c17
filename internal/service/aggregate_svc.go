package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/model"
)

// AggregateService rebuilds the precomputed distribution rows for a block
// from the raw ledger. The rebuild replaces the block's aggregate rows
// wholesale inside one transaction, so readers never observe a partial
// distribution.
type AggregateService struct {
	pool *pgxpool.Pool
}

func NewAggregateService(pool *pgxpool.Pool) *AggregateService {
	return &AggregateService{pool: pool}
}

// aggregationKeyExpr extracts the value a row counts toward: selectedOption
// for option types, value otherwise. Must agree with InteractionData.Key.
const aggregationKeyExpr = `COALESCE(NULLIF(interaction_data->>'selectedOption', ''), interaction_data->>'value', '')`

// RecalculateBlockAggregate recomputes interaction_aggregates for one block.
func (s *AggregateService) RecalculateBlockAggregate(ctx context.Context, articleID, blockID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM interaction_aggregates
		WHERE article_id = $1 AND block_id = $2`,
		articleID, blockID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO interaction_aggregates (article_id, block_id, option_value, interaction_count)
		SELECT article_id, block_id, `+aggregationKeyExpr+`, COUNT(*)
		FROM interactions
		WHERE article_id = $1 AND block_id = $2
		GROUP BY article_id, block_id, `+aggregationKeyExpr,
		articleID, blockID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ComputeBlockStats runs the GROUP BY directly against the ledger without
// touching the aggregate table. Read-only; used for consistency checks.
func (s *AggregateService) ComputeBlockStats(ctx context.Context, articleID, blockID string) (model.InteractionStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+aggregationKeyExpr+` AS option_value, COUNT(*)
		FROM interactions
		WHERE article_id = $1 AND block_id = $2
		GROUP BY option_value`,
		articleID, blockID)
	if err != nil {
		return model.ZeroStats(), err
	}
	defer rows.Close()

	stats := model.ZeroStats()
	for rows.Next() {
		var value string
		var count int64
		if err := rows.Scan(&value, &count); err != nil {
			return model.ZeroStats(), err
		}
		stats.Distribution[value] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return model.ZeroStats(), err
	}
	return stats, nil
}
