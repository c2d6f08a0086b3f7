package hitl

import (
	"fmt"
	"log"
	"sync"
	"time"

	"daytrade-core/internal/events"
	"daytrade-core/internal/risk"
)

// Pending is an intent parked for human review.
type Pending struct {
	Intent      *risk.Intent `json:"intent"`
	Verdict     risk.Verdict `json:"verdict"`
	SubmittedAt time.Time    `json:"submitted_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Resolution is the human's (or the timeout's) answer for one pending intent.
type Resolution struct {
	Intent   *risk.Intent `json:"intent"`
	Verdict  risk.Verdict `json:"verdict"`
	Approved bool         `json:"approved"`
	By       string       `json:"by"`
	Reason   string       `json:"reason,omitempty"`
}

// Gate parks intents whose guardrail verdict demands human review. Unresolved
// intents auto-reject at the timeout; an expired or unknown id resolves to an
// error, never a trade.
type Gate struct {
	mu      sync.Mutex
	pending map[string]*Pending
	timers  map[string]*time.Timer
	timeout time.Duration
	out     chan Resolution
	bus     *events.Bus // nil in tests
}

// NewGate builds a gate with the given review timeout.
func NewGate(timeout time.Duration, bus *events.Bus) *Gate {
	return &Gate{
		pending: make(map[string]*Pending),
		timers:  make(map[string]*time.Timer),
		timeout: timeout,
		out:     make(chan Resolution, 16),
		bus:     bus,
	}
}

// Resolutions is the stream the trade executor consumes.
func (g *Gate) Resolutions() <-chan Resolution { return g.out }

// Submit parks an intent for review and arms its timeout.
func (g *Gate) Submit(intent *risk.Intent, verdict risk.Verdict, now time.Time) {
	g.mu.Lock()
	p := &Pending{
		Intent:      intent,
		Verdict:     verdict,
		SubmittedAt: now,
		ExpiresAt:   now.Add(g.timeout),
	}
	g.pending[intent.ID] = p
	id := intent.ID
	g.timers[id] = time.AfterFunc(g.timeout, func() {
		if err := g.Resolve(id, false, "system", "review timeout"); err == nil {
			log.Printf("[HITL] %s auto-rejected on timeout", id)
		}
	})
	g.mu.Unlock()

	log.Printf("[HITL] %s parked for review: %v", intent.ID, verdict.Triggers)
	if g.bus != nil {
		g.bus.Publish(events.EventIntentPending, *p)
	}
}

// Resolve answers a pending intent. The resolution is delivered to the
// executor channel without holding the gate lock.
func (g *Gate) Resolve(id string, approved bool, by, reason string) error {
	g.mu.Lock()
	p, okP := g.pending[id]
	if !okP {
		g.mu.Unlock()
		return fmt.Errorf("no pending intent %s", id)
	}
	delete(g.pending, id)
	if t := g.timers[id]; t != nil {
		t.Stop()
		delete(g.timers, id)
	}
	g.mu.Unlock()

	res := Resolution{
		Intent:   p.Intent,
		Verdict:  p.Verdict,
		Approved: approved,
		By:       by,
		Reason:   reason,
	}
	select {
	case g.out <- res:
	default:
		log.Printf("[HITL] resolution channel full, dropping %s", id)
	}

	if g.bus != nil {
		ev := events.EventIntentRejected
		if approved {
			ev = events.EventIntentApproved
		}
		g.bus.Publish(ev, res)
	}
	return nil
}

// List returns a copy of every pending intent.
func (g *Gate) List() []Pending {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Pending, 0, len(g.pending))
	for _, p := range g.pending {
		out = append(out, *p)
	}
	return out
}
