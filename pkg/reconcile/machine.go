// Package reconcile implements the per-block client state machine that
// merges optimistic local updates with authoritative server statistics.
// One Machine is created per rendered engagement block and torn down with it.
package reconcile

import (
	"context"
	"sync"
	"time"
)

// State is the lifecycle position of a block's machine.
type State int

const (
	// Unvoted shows the voting affordance.
	Unvoted State = iota
	// Pending has a submission in flight; the affordance is disabled.
	Pending
	// Voted is terminal for exclusive-choice blocks and shows results.
	Voted
)

func (s State) String() string {
	switch s {
	case Unvoted:
		return "unvoted"
	case Pending:
		return "pending"
	default:
		return "voted"
	}
}

// Outcome mirrors the server's submission classification.
type Outcome int

const (
	Accepted Outcome = iota
	Duplicate
	TransientFailure
)

// Stats is the client-side copy of a block's distribution.
type Stats struct {
	Total        int64
	Distribution map[string]int64
}

// Clone returns an independent copy; Distribution is never shared.
func (s Stats) Clone() Stats {
	out := Stats{Total: s.Total, Distribution: make(map[string]int64, len(s.Distribution))}
	for k, v := range s.Distribution {
		out.Distribution[k] = v
	}
	return out
}

// DefaultRefreshInterval matches the web client's 10-second stats poll.
const DefaultRefreshInterval = 10 * time.Second

// Config wires a Machine to its block.
type Config struct {
	// Repeatable marks counter/slider blocks: no terminal Voted state,
	// every submission is independent.
	Repeatable bool

	// RefreshInterval overrides DefaultRefreshInterval when positive.
	RefreshInterval time.Duration

	// Submit performs the network submission for this block and returns the
	// server's classification. Required.
	Submit func(ctx context.Context, payload string) (Outcome, error)

	// Fetch retrieves the authoritative stats for this block. Required.
	Fetch func(ctx context.Context) (Stats, error)

	// CheckVoted reports whether this device already voted, for gating the
	// result view on mount. Optional.
	CheckVoted func(ctx context.Context) (bool, error)

	// OnNotice receives the soft, dismissible message shown on transient
	// failure. Optional; never called for Duplicate.
	OnNotice func(message string)
}

// Machine reconciles one block's optimistic and authoritative state.
//
// It keeps two separate values: a confirmed snapshot (the last successful
// fetch) and a pending delta (optimistic increments the server has not yet
// reflected). The two are composed only for display and the pending delta is
// discarded wholesale whenever a fresh confirmed snapshot lands.
type Machine struct {
	cfg Config

	mu           sync.Mutex
	state        State
	viaDuplicate bool
	confirmed    Stats
	pending      Stats
	inFlight     bool
	submitGen    uint64

	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewMachine(cfg Config) *Machine {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	return &Machine{
		cfg:       cfg,
		state:     Unvoted,
		confirmed: Stats{Distribution: map[string]int64{}},
		pending:   Stats{Distribution: map[string]int64{}},
		stopCh:    make(chan struct{}),
	}
}

// Start performs the mount-time work — voted check plus initial fetch — and
// launches the periodic refresh. The refresh runs until Stop or ctx
// cancellation, whichever comes first.
func (m *Machine) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	if m.cfg.CheckVoted != nil && !m.cfg.Repeatable {
		if voted, err := m.cfg.CheckVoted(ctx); err == nil && voted {
			m.mu.Lock()
			m.state = Voted
			m.mu.Unlock()
		}
	}
	m.refresh(ctx)

	go m.refreshLoop(ctx)
}

// Stop cancels the periodic refresh. Idempotent; must be called on block
// teardown so no timer outlives its block.
func (m *Machine) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Submit records one interaction attempt. Returns false when the attempt is
// ignored: another submission is in flight, or an exclusive-choice block has
// already been voted. The optimistic increment is visible through Display
// immediately, before the network result is known.
func (m *Machine) Submit(ctx context.Context, payload string) bool {
	m.mu.Lock()
	if m.inFlight || (!m.cfg.Repeatable && m.state != Unvoted) {
		m.mu.Unlock()
		return false
	}
	m.inFlight = true
	m.submitGen++
	m.state = Pending
	m.pending.Total++
	m.pending.Distribution[payload]++
	m.mu.Unlock()

	outcome, err := m.cfg.Submit(ctx, payload)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false

	if err != nil || outcome == TransientFailure {
		// Roll back exactly this attempt's increment and re-enable the
		// affordance.
		m.pending.Total--
		m.pending.Distribution[payload]--
		if m.pending.Distribution[payload] <= 0 {
			delete(m.pending.Distribution, payload)
		}
		m.state = Unvoted
		if m.cfg.OnNotice != nil {
			m.cfg.OnNotice("Não foi possível registrar sua interação. Tente novamente.")
		}
		return true
	}

	if m.cfg.Repeatable {
		// Counter/slider blocks never reach a terminal state.
		m.state = Unvoted
		return true
	}

	m.state = Voted
	if outcome == Duplicate {
		// Rendered identically to an accepted vote; the optimistic increment
		// is informational only and the next refresh corrects it.
		m.viaDuplicate = true
	}
	return true
}

// Display composes the confirmed snapshot with the pending optimistic delta.
// The result is an independent copy safe for the caller to hold.
func (m *Machine) Display() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.confirmed.Clone()
	out.Total += m.pending.Total
	for k, v := range m.pending.Distribution {
		out.Distribution[k] += v
	}
	return out
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ViaDuplicate reports whether the Voted state was reached through a
// duplicate signal rather than an accepted write.
func (m *Machine) ViaDuplicate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viaDuplicate
}

// Refresh forces an immediate authoritative fetch, outside the timer.
func (m *Machine) Refresh(ctx context.Context) {
	m.refresh(ctx)
}

func (m *Machine) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.refresh(ctx)
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// refresh replaces the confirmed snapshot wholesale and discards the pending
// delta. A failed fetch is skipped, not fatal; the next tick tries again.
// While a submission is in flight the tick is skipped too, and the snapshot
// is only installed when no submission started after the fetch began — a
// fetch that predates a write would otherwise erase its optimistic increment
// until the next tick.
func (m *Machine) refresh(ctx context.Context) {
	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return
	}
	gen := m.submitGen
	m.mu.Unlock()

	stats, err := m.cfg.Fetch(ctx)
	if err != nil {
		return
	}
	if stats.Distribution == nil {
		stats.Distribution = map[string]int64{}
	}

	m.mu.Lock()
	if !m.inFlight && gen == m.submitGen {
		m.confirmed = stats.Clone()
		m.pending = Stats{Distribution: map[string]int64{}}
	}
	m.mu.Unlock()
}
