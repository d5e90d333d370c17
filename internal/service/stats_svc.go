package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/model"
)

// InteractionReader is the store surface the stats service needs.
// *repository.InteractionRepo satisfies it.
type InteractionReader interface {
	GetAggregate(ctx context.Context, articleID, blockID string) (model.InteractionStats, error)
	ListInteractions(ctx context.Context, articleID, blockID string) ([]model.Interaction, error)
	HasInteracted(ctx context.Context, articleID, blockID, deviceID string) (bool, error)
	ListArticleAggregates(ctx context.Context, articleID string) (map[string]model.InteractionStats, error)
	ListArticleInteractions(ctx context.Context, articleID string) ([]model.Interaction, error)
}

// StatsService serves interaction distributions. Read order: Redis cache,
// then the precomputed aggregate table, then a raw ledger scan reduced in
// process. Both storage paths produce identical numbers for the same rows;
// when every path fails the service degrades to zero stats instead of
// surfacing an error.
type StatsService struct {
	store InteractionReader
	cache *CacheService
}

func NewStatsService(store InteractionReader, cache *CacheService) *StatsService {
	return &StatsService{store: store, cache: cache}
}

// GetStats returns the current distribution for a block. Never errors.
func (s *StatsService) GetStats(ctx context.Context, articleID, blockID string) model.InteractionStats {
	if s.cache != nil {
		if stats, ok := s.cache.GetStats(ctx, articleID, blockID); ok {
			return stats
		}
	}

	stats, err := s.store.GetAggregate(ctx, articleID, blockID)
	if err != nil {
		log.Warn().Err(err).Str("article", articleID).Str("block", blockID).
			Msg("stats: aggregate path failed, falling back to raw scan")
		interactions, scanErr := s.store.ListInteractions(ctx, articleID, blockID)
		if scanErr != nil {
			log.Error().Err(scanErr).Str("article", articleID).Str("block", blockID).
				Msg("stats: raw scan failed, serving zero stats")
			return model.ZeroStats()
		}
		stats = Reduce(interactions)
	}

	if s.cache != nil {
		if err := s.cache.SetStats(ctx, articleID, blockID, stats); err != nil {
			log.Warn().Err(err).Msg("cache: set stats failed")
		}
	}
	return stats
}

// HasVoted reports whether a device already interacted with a block. On
// store failure it degrades to false so the voting affordance still renders;
// the uniqueness constraint catches the duplicate on submit anyway.
func (s *StatsService) HasVoted(ctx context.Context, articleID, blockID, deviceID string) bool {
	voted, err := s.store.HasInteracted(ctx, articleID, blockID, deviceID)
	if err != nil {
		log.Warn().Err(err).Str("article", articleID).Str("block", blockID).
			Msg("stats: hasVoted check failed, assuming not voted")
		return false
	}
	return voted
}

// GetArticleStats returns stats for every block of an article in one call.
// Blocks the aggregate worker has not flushed yet are filled in from a raw
// ledger scan, so a freshly voted block never vanishes from the snapshot.
func (s *StatsService) GetArticleStats(ctx context.Context, articleID string) (map[string]model.InteractionStats, error) {
	blocks, aggErr := s.store.ListArticleAggregates(ctx, articleID)
	if aggErr != nil {
		log.Warn().Err(aggErr).Str("article", articleID).
			Msg("stats: article aggregate path failed, falling back to raw scan")
		blocks = make(map[string]model.InteractionStats)
	}

	rows, err := s.store.ListArticleInteractions(ctx, articleID)
	if err != nil {
		if aggErr != nil {
			return nil, err
		}
		return blocks, nil
	}

	byBlock := make(map[string][]model.Interaction)
	for _, row := range rows {
		byBlock[row.BlockID] = append(byBlock[row.BlockID], row)
	}
	for blockID, blockRows := range byBlock {
		if _, ok := blocks[blockID]; !ok {
			blocks[blockID] = Reduce(blockRows)
		}
	}
	return blocks, nil
}

// Reduce folds raw ledger rows into a distribution. This is the fallback
// computation and must agree exactly with the aggregate table for the same
// underlying rows.
func Reduce(interactions []model.Interaction) model.InteractionStats {
	stats := model.ZeroStats()
	for _, in := range interactions {
		stats.Distribution[in.Data.Key()]++
		stats.Total++
	}
	return stats
}
