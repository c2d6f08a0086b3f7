package strategy

import (
	"fmt"
	"time"

	"daytrade-core/internal/market"
)

// Aggregator turns a cycle's vote set into one ensemble decision.
// The core is long-only: SELL votes are never produced, so the verdict is
// BUY or WAIT.
type Aggregator struct {
	MinAgreement  int     // default 3
	MinConfidence float64 // mean confidence of agreeing voters, default 70
}

// NewAggregator builds an aggregator with defaults where zero values are given.
func NewAggregator(minAgreement int, minConfidence float64) *Aggregator {
	if minAgreement <= 0 {
		minAgreement = 3
	}
	if minConfidence <= 0 {
		minConfidence = 70
	}
	return &Aggregator{MinAgreement: minAgreement, MinConfidence: minConfidence}
}

// Decide aggregates votes. The verdict is BUY only when the agreeing count
// meets the confluence minimum, the mean confidence of agreeing voters meets
// the confidence floor, and the vote is not an exact BUY/WAIT split; the
// split tie-break favors caution.
func (a *Aggregator) Decide(votes []Vote, rc market.RegimeContext, now time.Time) Decision {
	d := Decision{
		Verdict:   ActionWait,
		Total:     len(votes),
		Context:   rc,
		Timestamp: now,
		Breakdown: votes,
	}

	var (
		buyCount  int
		waitCount int
		confSum   float64
		lead      Vote
	)
	for _, v := range votes {
		switch v.Action {
		case ActionBuy:
			buyCount++
			confSum += v.Confidence
			if v.Confidence > lead.Confidence {
				lead = v
			}
		default:
			waitCount++
		}
	}

	d.Agreeing = buyCount
	if d.Total > 0 {
		d.BullDominance = float64(buyCount) / float64(d.Total)
	}

	if buyCount < a.MinAgreement {
		d.Reason = fmt.Sprintf("confluence %d below minimum %d", buyCount, a.MinAgreement)
		return d
	}

	mean := confSum / float64(buyCount)
	d.MeanConfidence = mean
	if mean < a.MinConfidence {
		d.Reason = fmt.Sprintf("mean confidence %.1f below minimum %.1f", mean, a.MinConfidence)
		return d
	}

	if buyCount == waitCount {
		d.Reason = "split vote, holding back"
		return d
	}

	d.Verdict = ActionBuy
	d.Lead = lead
	d.InstitutionalBias = rc.Bias1H == market.BiasBullish && buyCount > 4
	return d
}
