package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/model"
)

// Outcome classifies the result of a submission attempt.
type Outcome int

const (
	// OutcomeAccepted means exactly one durable row was written.
	OutcomeAccepted Outcome = iota
	// OutcomeDuplicate means the device already voted on this block. Not an
	// error: zero rows written, stats untouched.
	OutcomeDuplicate
	// OutcomeTransientFailure means the store was unreachable. Deliberately
	// ambiguous between "not recorded" and "recorded but ack lost"; callers
	// must tolerate both readings.
	OutcomeTransientFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "transient_failure"
	}
}

// InteractionWriter is the store surface the submission service needs.
// *repository.InteractionRepo satisfies it.
type InteractionWriter interface {
	InsertExclusive(ctx context.Context, in model.Interaction) (bool, error)
	InsertRepeatable(ctx context.Context, in model.Interaction) error
}

// SubmitService validates an interaction against its type's uniqueness
// policy and writes it to the ledger.
type SubmitService struct {
	store InteractionWriter
	cache *CacheService
}

func NewSubmitService(store InteractionWriter, cache *CacheService) *SubmitService {
	return &SubmitService{store: store, cache: cache}
}

// ErrUnknownType rejects submissions for types the ledger does not record.
type ErrUnknownType struct {
	Type model.EngagementType
}

func (e ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown engagement type: %s", e.Type)
}

// Submit records one interaction. The uniqueness policy is consulted exactly
// once, here; nothing downstream branches on engagement type again.
func (s *SubmitService) Submit(ctx context.Context, in model.Interaction) (Outcome, error) {
	policy, ok := model.PolicyFor(in.EngagementType)
	if !ok {
		return OutcomeTransientFailure, ErrUnknownType{Type: in.EngagementType}
	}

	var outcome Outcome
	switch policy {
	case model.ExclusiveChoice:
		inserted, err := s.store.InsertExclusive(ctx, in)
		if err != nil {
			return OutcomeTransientFailure, err
		}
		if !inserted {
			outcome = OutcomeDuplicate
		} else {
			outcome = OutcomeAccepted
		}
	default:
		if err := s.store.InsertRepeatable(ctx, in); err != nil {
			return OutcomeTransientFailure, err
		}
		outcome = OutcomeAccepted
	}

	// Accepted writes make the cached distribution stale immediately.
	// Duplicates change nothing, so the cache stays valid.
	if outcome == OutcomeAccepted && s.cache != nil {
		if err := s.cache.InvalidateStats(ctx, in.ArticleID, in.BlockID); err != nil {
			log.Warn().Err(err).Str("article", in.ArticleID).Msg("cache: invalidate stats failed")
		}
	}

	return outcome, nil
}
