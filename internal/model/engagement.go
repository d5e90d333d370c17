package model

// EngagementType identifies the kind of interactive block a reader engages with.
type EngagementType string

const (
	TypePoll        EngagementType = "poll"
	TypeQuiz        EngagementType = "quiz"
	TypeSlider      EngagementType = "slider"
	TypeComparison  EngagementType = "comparison"
	TypeReaction    EngagementType = "reaction"
	TypeCounter     EngagementType = "counter"
	TypeThermometer EngagementType = "thermometer"
	TypeRanking     EngagementType = "ranking"
)

// UniquenessPolicy classifies how many interactions a single device may
// record on one block.
type UniquenessPolicy int

const (
	// ExclusiveChoice allows at most one interaction per (article, block, device).
	ExclusiveChoice UniquenessPolicy = iota
	// RepeatableAction allows unlimited interactions per device.
	RepeatableAction
)

// policies is the single source of truth for per-type uniqueness. Types not
// present here are not votable (countdown, timeline, etc. never reach the
// ledger).
var policies = map[EngagementType]UniquenessPolicy{
	TypePoll:        ExclusiveChoice,
	TypeQuiz:        ExclusiveChoice,
	TypeComparison:  ExclusiveChoice,
	TypeReaction:    ExclusiveChoice,
	TypeThermometer: ExclusiveChoice,
	TypeRanking:     ExclusiveChoice,
	TypeCounter:     RepeatableAction,
	TypeSlider:      RepeatableAction,
}

// PolicyFor returns the uniqueness policy for an engagement type.
// ok is false for unknown or non-votable types.
func PolicyFor(t EngagementType) (UniquenessPolicy, bool) {
	p, ok := policies[t]
	return p, ok
}

// IsVotable reports whether the type records interactions at all.
func IsVotable(t EngagementType) bool {
	_, ok := policies[t]
	return ok
}

// VotableTypes returns the engagement types accepted by the ledger,
// in no particular order.
func VotableTypes() []EngagementType {
	out := make([]EngagementType, 0, len(policies))
	for t := range policies {
		out = append(out, t)
	}
	return out
}
