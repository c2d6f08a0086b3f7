package risk

import (
	"time"

	"daytrade-core/internal/market"
	"daytrade-core/internal/state"
)

// Intent is a fully specified trade proposal: what the ensemble wants to do,
// sized, before any guardrail has seen it.
type Intent struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Sector         string    `json:"sector,omitempty"`
	Side           string    `json:"side"` // always BUY, long-only core
	Entry          float64   `json:"entry"`
	StopLoss       float64   `json:"stop_loss"`
	Target         float64   `json:"target"`
	Qty            int       `json:"qty"`
	StrategyID     string    `json:"strategy_id"`
	Confidence     float64   `json:"confidence"`      // lead vote confidence
	Agreeing       int       `json:"agreeing"`        // ensemble confluence count
	MeanConfidence float64   `json:"mean_confidence"` // mean of agreeing voters
	Rationale      string    `json:"rationale,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Value is the notional the intent deploys at its proposed quantity.
func (i *Intent) Value() float64 { return float64(i.Qty) * i.Entry }

// RiskAmount is the loss if the stop fires at the proposed quantity.
func (i *Intent) RiskAmount() float64 {
	return float64(i.Qty) * (i.Entry - i.StopLoss)
}

// Exposure summarizes one open position for concentration checks.
type Exposure struct {
	Symbol string
	Sector string
	Value  float64
}

// Input is everything one chain evaluation reads. Built once per intent by
// the caller; the chain never reaches outside it except for side effects on
// the tracker.
type Input struct {
	Intent    *Intent
	Snapshot  *market.Snapshot
	Context   market.RegimeContext
	State     state.DailyState
	Exposures []Exposure
	Now       time.Time
}

// Verdict is the chain's decision for one intent. Exactly one of Approved
// or a populated FailedCheck; HITL triggers never reject on their own.
type Verdict struct {
	Approved     bool     `json:"approved"`
	HITLRequired bool     `json:"hitl_required"`
	Triggers     []string `json:"hitl_triggers,omitempty"`
	FailedCheck  string   `json:"failed_check,omitempty"`
	Category     string   `json:"category,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	AdjustedQty  int      `json:"adjusted_qty"`
	Adjustments  []string `json:"adjustments,omitempty"`
	// PreferredWindow marks intents arriving in a historically favorable
	// intraday window. Annotation only; it never changes the verdict.
	PreferredWindow bool `json:"preferred_window"`
	ChecksRun       int  `json:"checks_run"`
}

type status int

const (
	pass status = iota
	reject
	adjust
)

// outcome is one check's result against the working intent.
type outcome struct {
	status status
	reason string
	qty    int // valid when status == adjust
}

func ok() outcome                { return outcome{status: pass} }
func fail(reason string) outcome { return outcome{status: reject, reason: reason} }

func resize(qty int, reason string) outcome {
	return outcome{status: adjust, qty: qty, reason: reason}
}
