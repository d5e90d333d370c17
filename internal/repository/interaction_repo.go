package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/model"
)

// InteractionRepo persists the append-only interaction ledger.
//
// Schema (migrations/001_interactions.sql):
//
//	interactions(id, article_id, block_id, engagement_type, user_identifier,
//	             interaction_data JSONB, created_at)
//	interaction_aggregates(article_id, block_id, option_value,
//	                       interaction_count)
//
// A partial unique index on (article_id, block_id, user_identifier) covers
// the exclusive-choice engagement types only. That constraint is the sole
// synchronization primitive for duplicate prevention; no application-level
// locking exists anywhere in this service.
type InteractionRepo struct {
	pool *pgxpool.Pool
}

func NewInteractionRepo(pool *pgxpool.Pool) *InteractionRepo {
	return &InteractionRepo{pool: pool}
}

// exclusiveTypesPredicate must match the partial index predicate exactly,
// so ON CONFLICT can resolve against it.
const exclusiveTypesPredicate = `engagement_type IN ('poll','quiz','reaction','comparison','thermometer','ranking')`

// InsertExclusive records an exclusive-choice interaction. Returns
// inserted=false when the (article, block, device) triple already holds a
// row — the duplicate-vote case. Zero rows are written in that case.
func (r *InteractionRepo) InsertExclusive(ctx context.Context, in model.Interaction) (inserted bool, err error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO interactions (article_id, block_id, engagement_type, user_identifier, interaction_data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (article_id, block_id, user_identifier)
		WHERE `+exclusiveTypesPredicate+`
		DO NOTHING`,
		in.ArticleID, in.BlockID, string(in.EngagementType), in.DeviceID, in.Data)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	r.notifyChange(ctx, in.ArticleID, in.BlockID)
	return true, nil
}

// InsertRepeatable records a repeatable-action interaction (counter, slider).
// Every call produces a new row; the uniqueness index never applies.
func (r *InteractionRepo) InsertRepeatable(ctx context.Context, in model.Interaction) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO interactions (article_id, block_id, engagement_type, user_identifier, interaction_data)
		VALUES ($1, $2, $3, $4, $5)`,
		in.ArticleID, in.BlockID, string(in.EngagementType), in.DeviceID, in.Data)
	if err != nil {
		return err
	}
	r.notifyChange(ctx, in.ArticleID, in.BlockID)
	return nil
}

// notifyChange wakes the aggregate worker. Best-effort: a missed
// notification only delays the precomputed path until the next write.
func (r *InteractionRepo) notifyChange(ctx context.Context, articleID, blockID string) {
	_, _ = r.pool.Exec(ctx, `SELECT pg_notify('interaction_changes', $1)`, articleID+"/"+blockID)
}

// GetAggregate reads the precomputed distribution for a block in a single
// round trip. A block with no aggregate rows yields zero stats, not an error.
func (r *InteractionRepo) GetAggregate(ctx context.Context, articleID, blockID string) (model.InteractionStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT option_value, interaction_count
		FROM interaction_aggregates
		WHERE article_id = $1 AND block_id = $2`,
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

// ListInteractions fetches the raw ledger rows for one block, oldest first.
// Fallback path when the aggregate table is stale or unreadable.
func (r *InteractionRepo) ListInteractions(ctx context.Context, articleID, blockID string) ([]model.Interaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, article_id, block_id, engagement_type, user_identifier, interaction_data, created_at
		FROM interactions
		WHERE article_id = $1 AND block_id = $2
		ORDER BY id`,
		articleID, blockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Interaction
	for rows.Next() {
		var in model.Interaction
		var engagementType string
		if err := rows.Scan(&in.ID, &in.ArticleID, &in.BlockID, &engagementType, &in.DeviceID, &in.Data, &in.CreatedAt); err != nil {
			return nil, err
		}
		in.EngagementType = model.EngagementType(engagementType)
		out = append(out, in)
	}
	return out, rows.Err()
}

// HasInteracted reports whether a device already holds a row for the block.
func (r *InteractionRepo) HasInteracted(ctx context.Context, articleID, blockID, deviceID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM interactions
			WHERE article_id = $1 AND block_id = $2 AND user_identifier = $3
		)`,
		articleID, blockID, deviceID).Scan(&exists)
	return exists, err
}

// ListArticleAggregates returns the precomputed stats of every block in an
// article, keyed by block ID.
func (r *InteractionRepo) ListArticleAggregates(ctx context.Context, articleID string) (map[string]model.InteractionStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT block_id, option_value, interaction_count
		FROM interaction_aggregates
		WHERE article_id = $1`,
		articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := make(map[string]model.InteractionStats)
	for rows.Next() {
		var blockID, value string
		var count int64
		if err := rows.Scan(&blockID, &value, &count); err != nil {
			return nil, err
		}
		stats, ok := blocks[blockID]
		if !ok {
			stats = model.ZeroStats()
		}
		stats.Distribution[value] = count
		stats.Total += count
		blocks[blockID] = stats
	}
	return blocks, rows.Err()
}

// ListArticleInteractions fetches every ledger row of an article for export.
func (r *InteractionRepo) ListArticleInteractions(ctx context.Context, articleID string) ([]model.Interaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, article_id, block_id, engagement_type, user_identifier, interaction_data, created_at
		FROM interactions
		WHERE article_id = $1
		ORDER BY block_id, id`,
		articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Interaction
	for rows.Next() {
		var in model.Interaction
		var engagementType string
		if err := rows.Scan(&in.ID, &in.ArticleID, &in.BlockID, &engagementType, &in.DeviceID, &in.Data, &in.CreatedAt); err != nil {
			return nil, err
		}
		in.EngagementType = model.EngagementType(engagementType)
		out = append(out, in)
	}
	return out, rows.Err()
}
