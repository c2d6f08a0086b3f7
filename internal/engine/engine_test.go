package engine

import (
	"context"
	"testing"
	"time"

	"daytrade-core/internal/broker"
	"daytrade-core/internal/hitl"
	"daytrade-core/internal/market"
	"daytrade-core/internal/position"
	"daytrade-core/internal/risk"
	"daytrade-core/internal/state"
	"daytrade-core/internal/strategy"
)

// stubFeed returns one fixed, strongly bullish snapshot for every symbol.
type stubFeed struct {
	at time.Time
}

func (f *stubFeed) Snapshot(sym string) market.Snapshot {
	ltp := 100.0
	return market.Snapshot{
		Symbol:    sym,
		LTP:       ltp,
		Open:      ltp,
		PrevClose: ltp,
		VolRatio:  1.9,
		VWAP:      ltp * 0.997,
		EMA9:      ltp * 0.999,
		EMA21:     ltp * 0.996,
		EMA50:     ltp * 0.99,
		RSI:       55,
		BBUpper:   ltp * 1.02,
		BBLower:   ltp * 0.98,
		Bid:       ltp * 0.9995,
		Ask:       ltp * 1.0005,
		VIX:       15,
		RangeHigh: ltp * 0.99,
		Timestamp: f.at,
	}
}

type fixture struct {
	eng       *Engine
	tracker   *state.Tracker
	positions *position.Manager
	gate      *hitl.Gate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tracker := state.NewTracker(nil, nil, "2026-08-28", 10000, 200)
	riskCfg := risk.DefaultConfig()
	// Tests run at arbitrary wall-clock times; open the windows wide.
	riskCfg.EntryStartMinute = 0
	riskCfg.EntryEndMinute = 24 * 60

	positions := position.NewManager(position.DefaultExitConfig(), tracker, nil, nil)
	gate := hitl.NewGate(time.Minute, nil)

	eng := New(Options{
		SymbolList:     []string{"TCS"},
		Feed:           &stubFeed{at: time.Now()},
		Set:            strategy.DefaultSet(),
		Aggregator:     strategy.NewAggregator(riskCfg.MinAgreement, riskCfg.MinConfidence),
		Chain:          risk.NewChain(riskCfg, tracker),
		RiskConfig:     riskCfg,
		Tracker:        tracker,
		Positions:      positions,
		Gate:           gate,
		Broker:         broker.NewPaper(0.001, 20, time.Minute),
		SnapshotMaxAge: time.Hour,
	})
	return &fixture{eng: eng, tracker: tracker, positions: positions, gate: gate}
}

func TestCycleParksFirstTradeForReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.eng.Cycle(ctx)

	pending := f.gate.List()
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want the first trade parked for review", len(pending))
	}
	if f.tracker.Snapshot().TradesExecuted != 0 {
		t.Fatal("trade executed before approval")
	}

	p := pending[0]
	if p.Intent.Symbol != "TCS" || p.Intent.Side != "BUY" {
		t.Fatalf("pending intent = %+v", p.Intent)
	}
	if p.Intent.Qty <= 0 {
		t.Fatalf("pending qty = %d, want a sized intent", p.Intent.Qty)
	}

	// Approve and execute the resolution by hand; Start would do this via
	// the resolution loop.
	if err := f.gate.Resolve(p.Intent.ID, true, "operator", ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	res := <-f.gate.Resolutions()
	f.eng.execute(ctx, res.Intent)

	if got := len(f.positions.List()); got != 1 {
		t.Fatalf("open positions = %d, want 1", got)
	}
	if f.tracker.Snapshot().TradesExecuted != 1 {
		t.Fatal("tracker missed the executed entry")
	}
}

func TestCycleSkipsSymbolWithOpenPosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.positions.Open(&risk.Intent{
		Symbol: "TCS", Side: "BUY", Qty: 5, StopLoss: 98, Target: 112, StrategyID: "momentum",
	}, 100, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	f.eng.Cycle(ctx)
	if got := len(f.gate.List()); got != 0 {
		t.Fatalf("pending = %d, want no new intent while the symbol is held", got)
	}
}

func TestCycleExecutesDirectlyAfterFirstTrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Two prior entries on the lead strategy: no review triggers remain.
	earlier := time.Now().Add(-30 * time.Minute)
	f.tracker.RecordEntry("scalping", 0, earlier)
	f.tracker.RecordEntry("scalping", 0, earlier.Add(5*time.Minute))

	f.eng.Cycle(ctx)

	if got := len(f.gate.List()); got != 0 {
		t.Fatalf("pending = %d, want direct execution with no triggers", got)
	}
	if got := len(f.positions.List()); got != 1 {
		t.Fatalf("open positions = %d, want 1", got)
	}
}

func TestMonitorFlattensOnSafeMode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.positions.Open(&risk.Intent{
		Symbol: "TCS", Side: "BUY", Qty: 5, StopLoss: 98, Target: 112, StrategyID: "momentum",
	}, 100, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	f.tracker.TripSafeMode("test")
	f.eng.Monitor(ctx)

	if got := len(f.positions.List()); got != 0 {
		t.Fatalf("open positions = %d, want 0 after safe-mode flatten", got)
	}
}

func TestCycleRespectsSafeModeVeto(t *testing.T) {
	f := newFixture(t)
	f.tracker.TripSafeMode("test")

	f.eng.Cycle(context.Background())
	if got := len(f.gate.List()); got != 0 {
		t.Fatalf("pending = %d, want none while safe mode holds", got)
	}
	if got := len(f.positions.List()); got != 0 {
		t.Fatalf("positions = %d, want none while safe mode holds", got)
	}
}
