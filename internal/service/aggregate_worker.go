package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// blockRecalculator rebuilds one block's precomputed distribution.
// *AggregateService satisfies it.
type blockRecalculator interface {
	RecalculateBlockAggregate(ctx context.Context, articleID, blockID string) error
}

// finalFlushTimeout bounds the shutdown flush so a wedged database cannot
// hang process exit.
const finalFlushTimeout = 10 * time.Second

// AggregateWorker listens for PostgreSQL NOTIFY on the 'interaction_changes'
// channel and batches aggregate recomputation. If 50 votes hit block X in
// one window, it recalculates once.
type AggregateWorker struct {
	pool        *pgxpool.Pool
	aggSvc      blockRecalculator
	cache       *CacheService
	batchWindow time.Duration

	mu      sync.Mutex
	pending map[string]struct{} // "articleID/blockID" pairs awaiting recomputation
}

// NewAggregateWorker creates an aggregate recomputation worker.
func NewAggregateWorker(pool *pgxpool.Pool, aggSvc blockRecalculator, cache *CacheService) *AggregateWorker {
	return &AggregateWorker{
		pool:        pool,
		aggSvc:      aggSvc,
		cache:       cache,
		batchWindow: 5 * time.Second,
		pending:     make(map[string]struct{}),
	}
}

// Start begins listening for interaction_changes notifications and
// processing batches. Blocks until ctx is cancelled.
func (w *AggregateWorker) Start(ctx context.Context) {
	log.Info().Dur("batch_window", w.batchWindow).Msg("aggregate-worker: starting")

	for {
		if err := w.listenLoop(ctx); err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("aggregate-worker: stopping (context cancelled)")
				return
			}
			log.Warn().Err(err).Msg("aggregate-worker: listen error, reconnecting in 5s")
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				log.Info().Msg("aggregate-worker: stopping (context cancelled)")
				return
			}
		}
	}
}

// listenLoop acquires a dedicated connection, LISTENs on interaction_changes,
// and collects notifications into the pending set.
func (w *AggregateWorker) listenLoop(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, "LISTEN interaction_changes")
	if err != nil {
		return err
	}
	log.Info().Msg("aggregate-worker: listening on interaction_changes")

	flushCtx, flushCancel := context.WithCancel(ctx)
	defer flushCancel()
	go w.flushLoop(flushCtx)

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		pair := notification.Payload
		if pair == "" {
			continue
		}

		w.mu.Lock()
		w.pending[pair] = struct{}{}
		w.mu.Unlock()
	}
}

// flushLoop drains the pending set every batch window.
func (w *AggregateWorker) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(w.batchWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush(ctx)
		case <-ctx.Done():
			// Final flush before exit, bounded so shutdown cannot hang.
			flushCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
			w.flush(flushCtx)
			cancel()
			return
		}
	}
}

// flush recomputes the aggregate of every pending block.
func (w *AggregateWorker) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}

	// Swap out the pending map
	batch := w.pending
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	recalculated := 0
	for pair := range batch {
		articleID, blockID, ok := splitPair(pair)
		if !ok {
			continue
		}

		if err := w.aggSvc.RecalculateBlockAggregate(ctx, articleID, blockID); err != nil {
			log.Warn().Err(err).Str("article", articleID).Str("block", blockID).
				Msg("aggregate-worker: recalculate error")
			continue
		}

		// Invalidate Redis cache so next read gets fresh data
		if w.cache != nil {
			if err := w.cache.InvalidateStats(ctx, articleID, blockID); err != nil {
				log.Warn().Err(err).Msg("aggregate-worker: cache invalidate error")
			}
		}

		recalculated++
	}

	if recalculated > 0 {
		log.Debug().Int("blocks", recalculated).Int("notifications", len(batch)).
			Msg("aggregate-worker: batch complete")
	}
}

func splitPair(pair string) (articleID, blockID string, ok bool) {
	i := strings.IndexByte(pair, '/')
	if i <= 0 || i == len(pair)-1 {
		return "", "", false
	}
	return pair[:i], pair[i+1:], true
}
