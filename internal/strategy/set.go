package strategy

import (
	"fmt"

	"daytrade-core/internal/market"
)

// ShapeConfig bounds every BUY vote before it reaches the ensemble. These are
// the non-negotiable per-vote constraints; the risk chain re-checks them with
// full daily context.
type ShapeConfig struct {
	MaxStopLossPct float64 `yaml:"max_stop_loss_pct"` // 0.10
	SlippageBufPct float64 `yaml:"slippage_buf_pct"`  // 0.001
	MinRiskReward  float64 `yaml:"min_risk_reward"`   // 1.0
}

// DefaultShapeConfig returns the standard vote-shaping bounds.
func DefaultShapeConfig() ShapeConfig {
	return ShapeConfig{
		MaxStopLossPct: 0.10,
		SlippageBufPct: 0.001,
		MinRiskReward:  1.0,
	}
}

// Set runs every registered evaluator against a snapshot. Strategies whose
// valid regimes do not include the current one are hard-skipped: they return
// WAIT with confidence 0 without their logic running, which is not a vote
// against.
type Set struct {
	strategies []Strategy
	shape      ShapeConfig
}

// NewSet builds an evaluator set with the given shaping bounds.
func NewSet(shape ShapeConfig) *Set {
	return &Set{shape: shape}
}

// Add registers a strategy implementation.
func (e *Set) Add(s Strategy) {
	e.strategies = append(e.strategies, s)
}

// Len returns the number of registered strategies.
func (e *Set) Len() int { return len(e.strategies) }

// Strategies returns the registered evaluators, in registration order.
func (e *Set) Strategies() []Strategy { return e.strategies }

// EvaluateAll produces exactly one vote per strategy for the snapshot.
func (e *Set) EvaluateAll(snap *market.Snapshot, rc market.RegimeContext) []Vote {
	votes := make([]Vote, 0, len(e.strategies))
	for _, s := range e.strategies {
		if !regimeValid(s.ValidRegimes(), rc.Regime) {
			votes = append(votes, waitVote(s.ID(), fmt.Sprintf("regime %s not valid", rc.Regime)))
			continue
		}
		votes = append(votes, e.shapeVote(s.Evaluate(snap, rc), snap.LTP))
	}
	return votes
}

// shapeVote demotes BUY votes that violate the stop-loss cap or whose
// risk:reward after slippage falls below the floor.
func (e *Set) shapeVote(v Vote, ltp float64) Vote {
	if v.Action != ActionBuy || v.Entry <= 0 {
		return v
	}

	slDist := (v.Entry - v.StopLoss) / v.Entry
	if slDist > e.shape.MaxStopLossPct {
		v.Action = ActionWait
		v.Reason = fmt.Sprintf("stop distance %.1f%% exceeds %.0f%% cap", slDist*100, e.shape.MaxStopLossPct*100)
		v.Confidence = 0
		return v
	}

	slippage := ltp * e.shape.SlippageBufPct
	adjEntry := v.Entry + slippage
	adjTarget := v.Target - slippage
	risk := adjEntry - v.StopLoss
	if risk <= 0 {
		v.Action = ActionWait
		v.Reason = "stop at or above slippage-adjusted entry"
		v.Confidence = 0
		return v
	}
	rr := (adjTarget - adjEntry) / risk
	if rr < e.shape.MinRiskReward {
		v.Action = ActionWait
		v.Reason = fmt.Sprintf("risk:reward %.2f below %.2f after slippage", rr, e.shape.MinRiskReward)
		v.Confidence = 0
	}
	return v
}
