package strategy

import (
	"time"

	"daytrade-core/internal/market"
)

// Action is the vote a strategy casts for one cycle.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionWait Action = "WAIT"
)

// Vote is a single strategy's decision for one snapshot. Produced once per
// cycle per strategy, never mutated.
type Vote struct {
	StrategyID string  `json:"strategy_id"`
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"` // 0-100
	Entry      float64 `json:"entry"`
	StopLoss   float64 `json:"stop_loss"`
	Target     float64 `json:"target"`
	Reason     string  `json:"reason"`
}

// Strategy is the one capability every evaluator variant implements.
// Evaluate must be pure: same snapshot and context, same vote.
type Strategy interface {
	ID() string
	Name() string
	ValidRegimes() []market.Regime
	Evaluate(snap *market.Snapshot, rc market.RegimeContext) Vote
}

// Decision is the aggregated verdict of one ensemble pass. Derived purely
// from the cycle's vote set; carries no persisted state.
type Decision struct {
	Verdict           Action               `json:"verdict"`
	Agreeing          int                  `json:"agreeing"`
	Total             int                  `json:"total"`
	MeanConfidence    float64              `json:"mean_confidence"`
	BullDominance     float64              `json:"bull_dominance"`
	InstitutionalBias bool                 `json:"institutional_bias"`
	Reason            string               `json:"reason,omitempty"`
	Lead              Vote                 `json:"lead"`
	Context           market.RegimeContext `json:"context"`
	Timestamp         time.Time            `json:"timestamp"`
	Breakdown         []Vote               `json:"breakdown"`
}

func waitVote(id, reason string) Vote {
	return Vote{StrategyID: id, Action: ActionWait, Reason: reason}
}

func regimeValid(regimes []market.Regime, r market.Regime) bool {
	for _, v := range regimes {
		if v == r {
			return true
		}
	}
	return false
}
