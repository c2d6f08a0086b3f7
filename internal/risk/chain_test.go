package risk

import (
	"math"
	"testing"
	"time"

	"daytrade-core/internal/market"
	"daytrade-core/internal/state"
)

var testNow = time.Date(2026, 8, 28, 11, 0, 0, 0, time.UTC)

func newTracker(capital, maxLoss float64) *state.Tracker {
	return state.NewTracker(nil, nil, "2026-08-28", capital, maxLoss)
}

func testIntent() *Intent {
	return &Intent{
		ID:             "intent-1",
		Symbol:         "TCS",
		Side:           "BUY",
		Entry:          100,
		StopLoss:       98,
		Target:         104,
		Qty:            10,
		StrategyID:     "momentum",
		Confidence:     85,
		Agreeing:       5,
		MeanConfidence: 85,
		CreatedAt:      testNow,
	}
}

func testInput(tr *state.Tracker) *Input {
	ltp := 100.0
	return &Input{
		Intent: testIntent(),
		Snapshot: &market.Snapshot{
			Symbol:    "TCS",
			LTP:       ltp,
			Open:      ltp,
			PrevClose: ltp,
			VWAP:      ltp * 0.997,
			VolRatio:  1.8,
			Bid:       ltp * 0.9995,
			Ask:       ltp * 1.0005,
			VIX:       15,
			Timestamp: testNow,
		},
		Context: market.RegimeContext{
			Regime:  market.RegimeTrending,
			Bias1H:  market.BiasBullish,
			Trend15: market.BiasBullish,
		},
		State: tr.Snapshot(),
		Now:   testNow,
	}
}

func TestChainApprovesHealthyIntent(t *testing.T) {
	tr := newTracker(10000, 200)
	c := NewChain(DefaultConfig(), tr)

	v := c.Evaluate(testInput(tr))
	if !v.Approved {
		t.Fatalf("rejected at %s/%s: %s", v.Category, v.FailedCheck, v.Reason)
	}
	if v.AdjustedQty != 10 {
		t.Fatalf("adjusted qty = %d, want 10 untouched", v.AdjustedQty)
	}
	// Zero trades executed today, so the first-trades trigger must fire.
	if !v.HITLRequired {
		t.Fatal("expected HITL on the first trades of the day")
	}
	found := false
	for _, trig := range v.Triggers {
		if trig == "first_trades_of_day" {
			found = true
		}
	}
	if !found {
		t.Fatalf("triggers = %v, want first_trades_of_day", v.Triggers)
	}
	// 11:00 falls in the 10:30-11:30 window; annotation only.
	if !v.PreferredWindow {
		t.Fatal("expected the preferred-window annotation")
	}
}

func TestChainSafeModeVeto(t *testing.T) {
	tr := newTracker(10000, 200)
	tr.TripSafeMode("manual")
	c := NewChain(DefaultConfig(), tr)

	v := c.Evaluate(testInput(tr))
	if v.Approved {
		t.Fatal("approved while safe mode active")
	}
	if v.FailedCheck != "safe_mode_active" {
		t.Fatalf("failed check = %s, want safe_mode_active", v.FailedCheck)
	}
	if v.ChecksRun != 1 {
		t.Fatalf("checks run = %d, want 1 (veto short-circuits)", v.ChecksRun)
	}
}

func TestChainShrinksToLossBudget(t *testing.T) {
	tr := newTracker(10000, 200)
	tr.ApplyClose(-180.50, 0, true) // 19.50 of budget left
	c := NewChain(DefaultConfig(), tr)

	v := c.Evaluate(testInput(tr))
	if !v.Approved {
		t.Fatalf("rejected at %s: %s", v.FailedCheck, v.Reason)
	}
	// Budget fit: floor(19.50/2) = 9. Per-trade risk cap then binds harder:
	// min(19.50*0.5, 500) = 9.75, floor(9.75/2) = 4.
	if v.AdjustedQty != 4 {
		t.Fatalf("adjusted qty = %d, want 4 (%v)", v.AdjustedQty, v.Adjustments)
	}
	if len(v.Adjustments) != 2 {
		t.Fatalf("adjustments = %v, want budget and risk-cap entries", v.Adjustments)
	}
}

func TestChainRejectsWhenOneShareBreaksBudget(t *testing.T) {
	tr := newTracker(10000, 200)
	tr.ApplyClose(-199, 0, true) // 1.00 left, per-share risk is 2.00
	c := NewChain(DefaultConfig(), tr)

	v := c.Evaluate(testInput(tr))
	if v.Approved {
		t.Fatal("approved past the loss budget")
	}
	if v.FailedCheck != "projected_loss_within_budget" {
		t.Fatalf("failed check = %s, want projected_loss_within_budget", v.FailedCheck)
	}
}

func TestChainLossCooldown(t *testing.T) {
	tr := newTracker(10000, 200)
	tr.RecordEntry("momentum", 1000, testNow.Add(-10*time.Minute))
	tr.ApplyClose(-10, 1000, true)
	c := NewChain(DefaultConfig(), tr)

	v := c.Evaluate(testInput(tr))
	if v.Approved {
		t.Fatal("approved inside the post-loss cooldown")
	}
	if v.FailedCheck != "loss_cooldown" {
		t.Fatalf("failed check = %s, want loss_cooldown", v.FailedCheck)
	}
}

func TestChainDuplicateSymbol(t *testing.T) {
	tr := newTracker(10000, 200)
	c := NewChain(DefaultConfig(), tr)

	in := testInput(tr)
	in.Exposures = []Exposure{{Symbol: "TCS", Value: 1000}}
	v := c.Evaluate(in)
	if v.Approved || v.FailedCheck != "duplicate_symbol" {
		t.Fatalf("verdict = %+v, want duplicate_symbol rejection", v)
	}
}

func TestChainMaxOpenPositions(t *testing.T) {
	tr := newTracker(10000, 200)
	c := NewChain(DefaultConfig(), tr)

	in := testInput(tr)
	in.Exposures = []Exposure{
		{Symbol: "INFY", Value: 1000},
		{Symbol: "SBIN", Value: 1000},
	}
	v := c.Evaluate(in)
	if v.Approved || v.FailedCheck != "max_open_positions" {
		t.Fatalf("verdict = %+v, want max_open_positions rejection", v)
	}
}

func TestChainEntryWindows(t *testing.T) {
	tr := newTracker(10000, 200)
	c := NewChain(DefaultConfig(), tr)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"before open buffer", time.Date(2026, 8, 28, 9, 20, 0, 0, time.UTC), "entry_window_open"},
		{"past entry cutoff", time.Date(2026, 8, 28, 14, 45, 0, 0, time.UTC), "entry_window_close"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testInput(tr)
			in.Now = tt.at
			in.Snapshot.Timestamp = tt.at
			v := c.Evaluate(in)
			if v.Approved || v.FailedCheck != tt.want {
				t.Fatalf("failed check = %s, want %s", v.FailedCheck, tt.want)
			}
		})
	}
}

func TestChainConsecutiveLossesHalt(t *testing.T) {
	tr := newTracker(10000, 200)
	for i := 0; i < 3; i++ {
		tr.ApplyClose(-10, 0, true)
	}
	c := NewChain(DefaultConfig(), tr)

	v := c.Evaluate(testInput(tr))
	if v.Approved || v.FailedCheck != "consecutive_losses" {
		t.Fatalf("failed check = %s, want consecutive_losses", v.FailedCheck)
	}
	if !tr.Snapshot().Halted {
		t.Fatal("expected the tracker halted as a side effect")
	}
}

func TestChainDrawdownTripsSafeMode(t *testing.T) {
	tr := newTracker(10000, 5000)
	tr.ApplyClose(-2000, 0, true) // 20% off peak
	c := NewChain(DefaultConfig(), tr)

	v := c.Evaluate(testInput(tr))
	if v.Approved || v.FailedCheck != "drawdown_limit" {
		t.Fatalf("failed check = %s, want drawdown_limit", v.FailedCheck)
	}
	if !tr.Snapshot().SafeMode {
		t.Fatal("expected safe mode tripped as a side effect")
	}
}

func TestChainStrategySwitchDiscipline(t *testing.T) {
	tests := []struct {
		name       string
		switchedAt time.Duration // before now
		confidence float64
		wantCheck  string // "" means approved
	}{
		{"switch after cooldown with strong signal", -30 * time.Minute, 85, ""},
		{"switch inside cooldown", -10 * time.Minute, 85, "switch_cooldown"},
		{"switch without improvement", -30 * time.Minute, 75, "switch_improvement"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTracker(10000, 200)
			tr.RecordEntry("scalping", 0, testNow.Add(tt.switchedAt))
			c := NewChain(DefaultConfig(), tr)

			in := testInput(tr)
			in.Intent.Confidence = tt.confidence
			v := c.Evaluate(in)
			if tt.wantCheck == "" {
				if !v.Approved {
					t.Fatalf("rejected at %s: %s", v.FailedCheck, v.Reason)
				}
				found := false
				for _, trig := range v.Triggers {
					if trig == "strategy_switch" {
						found = true
					}
				}
				if !found {
					t.Fatalf("triggers = %v, want strategy_switch", v.Triggers)
				}
				return
			}
			if v.Approved || v.FailedCheck != tt.wantCheck {
				t.Fatalf("failed check = %s, want %s", v.FailedCheck, tt.wantCheck)
			}
		})
	}
}

func TestChainBearishBiasBlocksLongs(t *testing.T) {
	tr := newTracker(10000, 200)
	c := NewChain(DefaultConfig(), tr)

	in := testInput(tr)
	in.Context.Bias1H = market.BiasBearish
	v := c.Evaluate(in)
	if v.Approved || v.FailedCheck != "bias_alignment" {
		t.Fatalf("failed check = %s, want bias_alignment", v.FailedCheck)
	}
}

func TestChainMarketConditionRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		want   string
	}{
		{"vix spike", func(in *Input) { in.Snapshot.VIX = 35 }, "vix_limit"},
		{"wide spread", func(in *Input) {
			in.Snapshot.Bid = 99.0
			in.Snapshot.Ask = 100.0
		}, "spread_limit"},
		{"thin volume", func(in *Input) { in.Snapshot.VolRatio = 1.1 }, "volume_ratio_floor"},
		{"large gap", func(in *Input) { in.Snapshot.Open = 107; in.Snapshot.PrevClose = 100 }, "gap_limit"},
		{"price ran away", func(in *Input) { in.Snapshot.LTP = 102 }, "price_deviation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTracker(10000, 200)
			c := NewChain(DefaultConfig(), tr)
			in := testInput(tr)
			tt.mutate(in)
			v := c.Evaluate(in)
			if v.Approved || v.FailedCheck != tt.want {
				t.Fatalf("failed check = %s, want %s (%s)", v.FailedCheck, tt.want, v.Reason)
			}
		})
	}
}

func TestChainCapitalCapAdjustsQty(t *testing.T) {
	tr := newTracker(10000, 10000) // budget wide open so only the cap binds
	c := NewChain(DefaultConfig(), tr)

	in := testInput(tr)
	in.Intent.Qty = 30 // 3000 notional vs 2000 cap
	v := c.Evaluate(in)
	if !v.Approved {
		t.Fatalf("rejected at %s: %s", v.FailedCheck, v.Reason)
	}
	if v.AdjustedQty != 20 {
		t.Fatalf("adjusted qty = %d, want 20 under the 2000 cap (%v)", v.AdjustedQty, v.Adjustments)
	}
}

func TestChainIdempotentVerdict(t *testing.T) {
	tr := newTracker(10000, 200)
	c := NewChain(DefaultConfig(), tr)

	first := c.Evaluate(testInput(tr))
	second := c.Evaluate(testInput(tr))
	if first.Approved != second.Approved || first.AdjustedQty != second.AdjustedQty {
		t.Fatalf("verdicts differ: %+v vs %+v", first, second)
	}
}

func TestIntentDerivedAmounts(t *testing.T) {
	i := testIntent()
	if got := i.Value(); got != 1000 {
		t.Fatalf("value = %.2f, want 1000", got)
	}
	if got := i.RiskAmount(); math.Abs(got-20) > 1e-9 {
		t.Fatalf("risk amount = %.2f, want 20", got)
	}
}
