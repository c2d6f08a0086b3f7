package strategy

import (
	"testing"
	"time"

	"daytrade-core/internal/market"
)

func buyVote(id string, conf float64) Vote {
	return Vote{
		StrategyID: id,
		Action:     ActionBuy,
		Confidence: conf,
		Entry:      100,
		StopLoss:   98,
		Target:     104,
	}
}

func bullishContext() market.RegimeContext {
	return market.RegimeContext{
		Regime:  market.RegimeTrending,
		Bias1H:  market.BiasBullish,
		Trend15: market.BiasBullish,
	}
}

func TestAggregatorDecide(t *testing.T) {
	now := time.Date(2026, 8, 28, 11, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		votes       []Vote
		wantVerdict Action
		wantLead    string
	}{
		{
			name: "five agree above floor",
			votes: []Vote{
				buyVote("momentum", 85),
				buyVote("scalping", 80),
				buyVote("ma_cross", 88),
				buyVote("institutional_flow", 90),
				buyVote("stop_hunt", 85),
				waitVote("breakout", "no breakout"),
				waitVote("mean_reversion", "not oversold"),
				waitVote("rsi_reversal", "rsi neutral"),
				waitVote("vwap_pullback", "too far from vwap"),
			},
			wantVerdict: ActionBuy,
			wantLead:    "institutional_flow",
		},
		{
			name: "confluence below minimum",
			votes: []Vote{
				buyVote("momentum", 95),
				buyVote("scalping", 95),
				waitVote("breakout", ""),
				waitVote("ma_cross", ""),
			},
			wantVerdict: ActionWait,
		},
		{
			name: "mean confidence below floor",
			votes: []Vote{
				buyVote("momentum", 60),
				buyVote("scalping", 65),
				buyVote("ma_cross", 70),
				waitVote("breakout", ""),
			},
			wantVerdict: ActionWait,
		},
		{
			name: "exact split holds back",
			votes: []Vote{
				buyVote("momentum", 90),
				buyVote("scalping", 90),
				buyVote("ma_cross", 90),
				waitVote("breakout", ""),
				waitVote("mean_reversion", ""),
				waitVote("rsi_reversal", ""),
			},
			wantVerdict: ActionWait,
		},
	}

	agg := NewAggregator(3, 70)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := agg.Decide(tt.votes, bullishContext(), now)
			if d.Verdict != tt.wantVerdict {
				t.Fatalf("verdict = %s, want %s (%s)", d.Verdict, tt.wantVerdict, d.Reason)
			}
			if tt.wantLead != "" && d.Lead.StrategyID != tt.wantLead {
				t.Fatalf("lead = %s, want %s", d.Lead.StrategyID, tt.wantLead)
			}
		})
	}
}

func TestAggregatorDerivedFields(t *testing.T) {
	now := time.Now()
	votes := []Vote{
		buyVote("momentum", 85),
		buyVote("scalping", 80),
		buyVote("ma_cross", 88),
		buyVote("institutional_flow", 90),
		buyVote("stop_hunt", 85),
		waitVote("breakout", ""),
		waitVote("mean_reversion", ""),
		waitVote("rsi_reversal", ""),
		waitVote("vwap_pullback", ""),
	}

	d := NewAggregator(3, 70).Decide(votes, bullishContext(), now)
	if d.Verdict != ActionBuy {
		t.Fatalf("verdict = %s: %s", d.Verdict, d.Reason)
	}
	if d.Agreeing != 5 || d.Total != 9 {
		t.Fatalf("agreeing/total = %d/%d, want 5/9", d.Agreeing, d.Total)
	}
	if got, want := d.MeanConfidence, 85.6; got != want {
		t.Fatalf("mean confidence = %.2f, want %.2f", got, want)
	}
	if got := d.BullDominance; got < 0.55 || got > 0.56 {
		t.Fatalf("bull dominance = %.3f, want ~0.556", got)
	}
	if !d.InstitutionalBias {
		t.Fatal("expected institutional bias with bullish 1h and 5 agreeing")
	}
}

func TestAggregatorDefaults(t *testing.T) {
	agg := NewAggregator(0, 0)
	if agg.MinAgreement != 3 || agg.MinConfidence != 70 {
		t.Fatalf("defaults = %d/%.0f, want 3/70", agg.MinAgreement, agg.MinConfidence)
	}
}
