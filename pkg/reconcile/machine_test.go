package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer backs a Machine with controllable outcomes and stats.
type fakeServer struct {
	mu      sync.Mutex
	outcome Outcome
	err     error
	stats   Stats
	submits int
	fetches int
}

func (s *fakeServer) submit(context.Context, string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits++
	return s.outcome, s.err
}

func (s *fakeServer) fetch(context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	return s.stats.Clone(), nil
}

func (s *fakeServer) setStats(stats Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
}

func newTestMachine(srv *fakeServer, repeatable bool, notices *[]string) *Machine {
	cfg := Config{
		Repeatable:      repeatable,
		RefreshInterval: time.Hour, // ticks never fire; tests call Refresh directly
		Submit:          srv.submit,
		Fetch:           srv.fetch,
	}
	if notices != nil {
		cfg.OnNotice = func(msg string) { *notices = append(*notices, msg) }
	}
	return NewMachine(cfg)
}

func TestMachine_AcceptedVote(t *testing.T) {
	srv := &fakeServer{outcome: Accepted, stats: Stats{Distribution: map[string]int64{}}}
	m := newTestMachine(srv, false, nil)

	require.Equal(t, Unvoted, m.State())

	ok := m.Submit(context.Background(), "Sim")
	require.True(t, ok)
	assert.Equal(t, Voted, m.State())
	assert.False(t, m.ViaDuplicate())

	// Optimistic stats already reflect the accepted vote.
	display := m.Display()
	assert.Equal(t, int64(1), display.Total)
	assert.Equal(t, int64(1), display.Distribution["Sim"])
}

func TestMachine_OptimisticUpdateVisibleWhilePending(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	m := NewMachine(Config{
		RefreshInterval: time.Hour,
		Submit: func(context.Context, string) (Outcome, error) {
			close(entered)
			<-release
			return Accepted, nil
		},
		Fetch: func(context.Context) (Stats, error) {
			return Stats{Distribution: map[string]int64{}}, nil
		},
	})

	done := make(chan struct{})
	go func() {
		m.Submit(context.Background(), "Sim")
		close(done)
	}()

	<-entered
	// Network result unknown, but the reader already sees their vote.
	assert.Equal(t, Pending, m.State())
	assert.Equal(t, int64(1), m.Display().Total)

	// A second attempt while one is in flight is ignored, not queued.
	assert.False(t, m.Submit(context.Background(), "Não"))

	close(release)
	<-done
	assert.Equal(t, Voted, m.State())
}

func TestMachine_DuplicateRenderedAsVoted(t *testing.T) {
	var notices []string
	srv := &fakeServer{outcome: Duplicate}
	m := newTestMachine(srv, false, &notices)

	ok := m.Submit(context.Background(), "Sim")
	require.True(t, ok)

	// Duplicate is not an error: no notice, same terminal state as accepted.
	assert.Equal(t, Voted, m.State())
	assert.True(t, m.ViaDuplicate())
	assert.Empty(t, notices)

	// The optimistic increment survives until refresh corrects it.
	assert.Equal(t, int64(1), m.Display().Total)

	// Authoritative refresh overwrites the informational skew.
	srv.setStats(Stats{Total: 1, Distribution: map[string]int64{"Não": 1}})
	m.Refresh(context.Background())
	display := m.Display()
	assert.Equal(t, int64(1), display.Total)
	assert.Equal(t, int64(1), display.Distribution["Não"])
	assert.Zero(t, display.Distribution["Sim"])
}

func TestMachine_TransientFailureRollsBack(t *testing.T) {
	var notices []string
	srv := &fakeServer{err: errors.New("network down")}
	m := newTestMachine(srv, false, &notices)

	ok := m.Submit(context.Background(), "Sim")
	require.True(t, ok)

	// Rolled back to pre-submission display and re-enabled.
	assert.Equal(t, Unvoted, m.State())
	assert.Equal(t, int64(0), m.Display().Total)
	assert.Len(t, notices, 1)

	// The affordance accepts a retry.
	srv.mu.Lock()
	srv.err = nil
	srv.outcome = Accepted
	srv.mu.Unlock()
	assert.True(t, m.Submit(context.Background(), "Sim"))
	assert.Equal(t, Voted, m.State())
}

func TestMachine_ExclusiveVotedIsTerminal(t *testing.T) {
	srv := &fakeServer{outcome: Accepted}
	m := newTestMachine(srv, false, nil)

	require.True(t, m.Submit(context.Background(), "Sim"))
	assert.False(t, m.Submit(context.Background(), "Não"))

	srv.mu.Lock()
	submits := srv.submits
	srv.mu.Unlock()
	assert.Equal(t, 1, submits)
}

func TestMachine_RepeatableKeepsAccepting(t *testing.T) {
	srv := &fakeServer{outcome: Accepted}
	m := newTestMachine(srv, true, nil)

	for i := 0; i < 4; i++ {
		require.True(t, m.Submit(context.Background(), "click"), "submission %d", i+1)
		assert.Equal(t, Unvoted, m.State())
	}

	display := m.Display()
	assert.Equal(t, int64(4), display.Total)
	assert.Equal(t, int64(4), display.Distribution["click"])
}

func TestMachine_RefreshReplacesWholesale(t *testing.T) {
	srv := &fakeServer{outcome: Accepted}
	m := newTestMachine(srv, false, nil)

	require.True(t, m.Submit(context.Background(), "Sim"))
	assert.Equal(t, int64(1), m.Display().Total)

	// Server now reflects the vote: total must stay 1, no flicker upward.
	srv.setStats(Stats{Total: 1, Distribution: map[string]int64{"Sim": 1}})
	m.Refresh(context.Background())
	display := m.Display()
	assert.Equal(t, int64(1), display.Total)
	assert.Equal(t, int64(1), display.Distribution["Sim"])
}

func TestMachine_FetchStraddlingSubmitIsDiscarded(t *testing.T) {
	fetchEntered := make(chan struct{})
	fetchRelease := make(chan struct{})
	m := NewMachine(Config{
		RefreshInterval: time.Hour,
		Submit: func(context.Context, string) (Outcome, error) {
			return Accepted, nil
		},
		Fetch: func(context.Context) (Stats, error) {
			close(fetchEntered)
			<-fetchRelease
			// Pre-vote snapshot: the fetch left before the write landed.
			return Stats{Total: 0, Distribution: map[string]int64{}}, nil
		},
	})

	done := make(chan struct{})
	go func() {
		m.Refresh(context.Background())
		close(done)
	}()

	<-fetchEntered
	// The submission begins AND finishes while the fetch is on the wire.
	require.True(t, m.Submit(context.Background(), "Sim"))
	require.Equal(t, Voted, m.State())

	close(fetchRelease)
	<-done

	// The stale snapshot must not erase the accepted vote.
	display := m.Display()
	assert.Equal(t, int64(1), display.Total)
	assert.Equal(t, int64(1), display.Distribution["Sim"])
}

func TestMachine_CheckVotedGatesOnStart(t *testing.T) {
	srv := &fakeServer{outcome: Accepted}
	m := NewMachine(Config{
		RefreshInterval: time.Hour,
		Submit:          srv.submit,
		Fetch:           srv.fetch,
		CheckVoted:      func(context.Context) (bool, error) { return true, nil },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	assert.Equal(t, Voted, m.State())
	assert.False(t, m.Submit(ctx, "Sim"))
}

func TestMachine_StopIsIdempotent(t *testing.T) {
	srv := &fakeServer{outcome: Accepted}
	m := newTestMachine(srv, false, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.Stop()
	assert.NotPanics(t, m.Stop)
}

func TestMachine_PeriodicRefreshRuns(t *testing.T) {
	srv := &fakeServer{stats: Stats{Total: 7, Distribution: map[string]int64{"Sim": 7}}}
	m := NewMachine(Config{
		RefreshInterval: 10 * time.Millisecond,
		Submit:          srv.submit,
		Fetch:           srv.fetch,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	assert.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return srv.fetches >= 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, int64(7), m.Display().Total)
}
