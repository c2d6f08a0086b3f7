package position

import (
	"strings"
	"time"
)

// State is the lifecycle phase of a position.
type State string

const (
	StateOpen            State = "OPEN"
	StatePartiallyClosed State = "PARTIALLY_CLOSED"
	StateClosed          State = "CLOSED"
)

// ExitReason labels why a position (or a slice of it) was closed. When more
// than one exit condition holds on the same tick, the earlier reason in this
// order wins.
type ExitReason string

const (
	ExitStopLoss         ExitReason = "stop_loss"
	ExitTarget           ExitReason = "target"
	ExitTrailingStop     ExitReason = "trailing_stop"
	ExitTimeExit         ExitReason = "time_exit"
	ExitStructureBreak   ExitReason = "structure_break"
	ExitVolumeDivergence ExitReason = "volume_divergence"
	ExitBiasFlip         ExitReason = "bias_flip"
	ExitPartialTier1     ExitReason = "partial_tier_1"
	ExitPartialTier2     ExitReason = "partial_tier_2"
	ExitFlatten          ExitReason = "flatten_all"
)

// Position is one open long. Qty is the remaining quantity after partials;
// InitialQty never changes.
type Position struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Sector         string    `json:"sector,omitempty"`
	Side           string    `json:"side"`
	Qty            int       `json:"qty"`
	InitialQty     int       `json:"initial_qty"`
	EntryPrice     float64   `json:"entry_price"`
	CurrentPrice   float64   `json:"current_price"`
	PeakPrice      float64   `json:"peak_price"`
	StopLoss       float64   `json:"stop_loss"`
	Target         float64   `json:"target"`
	StrategyID     string    `json:"strategy_id"`
	TrailingActive bool      `json:"trailing_active"`
	Tier1Done      bool      `json:"tier1_done"`
	Tier2Done      bool      `json:"tier2_done"`
	State          State     `json:"state"`
	EntryAt        time.Time `json:"entry_at"`
	RealizedPnL    float64   `json:"realized_pnl"` // across partials so far
}

// GainPct is the unrealized move from entry at the current price.
func (p *Position) GainPct() float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice
}

// Value is the remaining notional at the current price.
func (p *Position) Value() float64 { return float64(p.Qty) * p.CurrentPrice }

func (p *Position) partialsFired() string {
	var tags []string
	if p.Tier1Done {
		tags = append(tags, "t1")
	}
	if p.Tier2Done {
		tags = append(tags, "t2")
	}
	return strings.Join(tags, ",")
}

func parsePartials(s string) (t1, t2 bool) {
	for _, tag := range strings.Split(s, ",") {
		switch tag {
		case "t1":
			t1 = true
		case "t2":
			t2 = true
		}
	}
	return
}

// Closure is one realized exit, full or partial.
type Closure struct {
	PositionID string     `json:"position_id"`
	Symbol     string     `json:"symbol"`
	Qty        int        `json:"qty"`
	ExitPrice  float64    `json:"exit_price"` // slippage-adjusted fill
	PnL        float64    `json:"pnl"`        // net of fees
	Fees       float64    `json:"fees"`
	Reason     ExitReason `json:"reason"`
	Final      bool       `json:"final"`
	At         time.Time  `json:"at"`
}
