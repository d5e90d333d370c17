package service

import (
	"context"
	"testing"
	"time"
)

// stuckRecalculator blocks until its context is cancelled, as a wedged
// database would.
type stuckRecalculator struct{}

func (stuckRecalculator) RecalculateBlockAggregate(ctx context.Context, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestWorker_FlushHonorsContextDeadline(t *testing.T) {
	w := NewAggregateWorker(nil, stuckRecalculator{}, nil)
	w.pending["art-1/blk-1"] = struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.flush(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("flush did not return after its context expired")
	}
}

func TestSplitPair(t *testing.T) {
	tests := []struct {
		pair      string
		articleID string
		blockID   string
		ok        bool
	}{
		{"art-1/blk-1", "art-1", "blk-1", true},
		{"art-1/", "", "", false},
		{"/blk-1", "", "", false},
		{"no-separator", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		articleID, blockID, ok := splitPair(tt.pair)
		if articleID != tt.articleID || blockID != tt.blockID || ok != tt.ok {
			t.Errorf("splitPair(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.pair, articleID, blockID, ok, tt.articleID, tt.blockID, tt.ok)
		}
	}
}
