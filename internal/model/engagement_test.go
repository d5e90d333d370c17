package model

import "testing"

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		engagementType EngagementType
		want           UniquenessPolicy
	}{
		{TypePoll, ExclusiveChoice},
		{TypeQuiz, ExclusiveChoice},
		{TypeReaction, ExclusiveChoice},
		{TypeComparison, ExclusiveChoice},
		{TypeThermometer, ExclusiveChoice},
		{TypeRanking, ExclusiveChoice},
		{TypeCounter, RepeatableAction},
		{TypeSlider, RepeatableAction},
	}
	for _, tt := range tests {
		t.Run(string(tt.engagementType), func(t *testing.T) {
			got, ok := PolicyFor(tt.engagementType)
			if !ok {
				t.Fatalf("PolicyFor(%s) not found", tt.engagementType)
			}
			if got != tt.want {
				t.Errorf("PolicyFor(%s) = %v, want %v", tt.engagementType, got, tt.want)
			}
		})
	}
}

func TestPolicyFor_UnknownTypes(t *testing.T) {
	// Presentation-only block kinds never reach the ledger.
	for _, unknown := range []EngagementType{"countdown", "timeline", "flipcard", "accordion", "cta", "testimonial", ""} {
		if _, ok := PolicyFor(unknown); ok {
			t.Errorf("PolicyFor(%q) should not resolve", unknown)
		}
		if IsVotable(unknown) {
			t.Errorf("IsVotable(%q) = true, want false", unknown)
		}
	}
}

func TestVotableTypes_Complete(t *testing.T) {
	types := VotableTypes()
	if len(types) != 8 {
		t.Fatalf("VotableTypes() returned %d types, want 8", len(types))
	}
	for _, tt := range types {
		if !IsVotable(tt) {
			t.Errorf("VotableTypes() returned non-votable %s", tt)
		}
	}
}

func TestInteractionDataKey(t *testing.T) {
	tests := []struct {
		name string
		data InteractionData
		want string
	}{
		{"option only", InteractionData{SelectedOption: "Sim"}, "Sim"},
		{"value only", InteractionData{Value: "75"}, "75"},
		{"option wins over value", InteractionData{SelectedOption: "Sim", Value: "75"}, "Sim"},
		{"both empty", InteractionData{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.data.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestZeroStats(t *testing.T) {
	stats := ZeroStats()
	if stats.Total != 0 {
		t.Errorf("ZeroStats total = %d, want 0", stats.Total)
	}
	if stats.Distribution == nil {
		t.Error("ZeroStats distribution should be non-nil")
	}
	if len(stats.Distribution) != 0 {
		t.Errorf("ZeroStats distribution has %d entries, want 0", len(stats.Distribution))
	}
}
