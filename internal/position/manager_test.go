package position

import (
	"math"
	"testing"
	"time"

	"daytrade-core/internal/market"
	"daytrade-core/internal/risk"
	"daytrade-core/internal/state"
)

var tradingHour = time.Date(2026, 8, 28, 11, 0, 0, 0, time.UTC)

func newTestManager() (*Manager, *state.Tracker) {
	tr := state.NewTracker(nil, nil, "2026-08-28", 10000, 200)
	return NewManager(DefaultExitConfig(), tr, nil, nil), tr
}

func tick(sym string, ltp float64) *market.Snapshot {
	return &market.Snapshot{
		Symbol:    sym,
		LTP:       ltp,
		VWAP:      ltp * 0.997,
		EMA9:      ltp * 0.999,
		EMA21:     ltp * 0.996,
		VolRatio:  1.5,
		Timestamp: tradingHour,
	}
}

func bullish() market.RegimeContext {
	return market.RegimeContext{
		Regime:  market.RegimeTrending,
		Bias1H:  market.BiasBullish,
		Trend15: market.BiasBullish,
	}
}

func openTest(t *testing.T, m *Manager, sym string, qty int, fill, stop, target float64) {
	t.Helper()
	_, err := m.Open(&risk.Intent{
		ID:         "intent-" + sym,
		Symbol:     sym,
		Side:       "BUY",
		Entry:      fill,
		StopLoss:   stop,
		Target:     target,
		Qty:        qty,
		StrategyID: "momentum",
	}, fill, tradingHour)
	if err != nil {
		t.Fatalf("open %s: %v", sym, err)
	}
}

func TestTrailingAndPartialPath(t *testing.T) {
	m, tr := newTestManager()
	openTest(t, m, "TCS", 20, 100.60, 98.50, 112)

	// +3.1%: trailing arms, stop ratchets behind peak, tier 1 takes 30%.
	closures := m.MarkPrice(tick("TCS", 103.70), bullish(), tradingHour)
	if len(closures) != 1 || closures[0].Reason != ExitPartialTier1 || closures[0].Qty != 6 {
		t.Fatalf("tier1 closures = %+v", closures)
	}
	p, okP := m.Get("TCS")
	if !okP {
		t.Fatal("position gone after partial")
	}
	if p.Qty != 14 || p.State != StatePartiallyClosed {
		t.Fatalf("after tier1: qty=%d state=%s", p.Qty, p.State)
	}
	if !p.TrailingActive {
		t.Fatal("trailing not armed past the activation gain")
	}
	if want := 103.70 * 0.99; math.Abs(p.StopLoss-want) > 1e-9 {
		t.Fatalf("stop = %.4f, want trail %.4f", p.StopLoss, want)
	}

	// +6.2%: tier 2 takes 50% of the remainder.
	closures = m.MarkPrice(tick("TCS", 106.80), bullish(), tradingHour)
	if len(closures) != 1 || closures[0].Reason != ExitPartialTier2 || closures[0].Qty != 7 {
		t.Fatalf("tier2 closures = %+v", closures)
	}

	// New peak only ratchets the stop. It never moves back down.
	m.MarkPrice(tick("TCS", 108.54), bullish(), tradingHour)
	p, _ = m.Get("TCS")
	peakStop := 108.54 * 0.99
	if math.Abs(p.StopLoss-peakStop) > 1e-9 {
		t.Fatalf("stop = %.4f, want %.4f", p.StopLoss, peakStop)
	}
	m.MarkPrice(tick("TCS", 108.00), bullish(), tradingHour)
	p, _ = m.Get("TCS")
	if math.Abs(p.StopLoss-peakStop) > 1e-9 {
		t.Fatalf("stop moved down to %.4f on a pullback", p.StopLoss)
	}

	// Pullback through the trail closes the rest; the final leg also pays the
	// entry brokerage.
	closures = m.MarkPrice(tick("TCS", 107.40), bullish(), tradingHour)
	if len(closures) != 1 {
		t.Fatalf("closures = %+v, want final trail exit", closures)
	}
	final := closures[0]
	if final.Reason != ExitTrailingStop || !final.Final || final.Qty != 7 {
		t.Fatalf("final closure = %+v", final)
	}
	if final.Fees != 40 {
		t.Fatalf("final fees = %.2f, want 40 (entry and exit legs)", final.Fees)
	}
	if _, still := m.Get("TCS"); still {
		t.Fatal("position still open after final close")
	}

	s := tr.Snapshot()
	if s.OpenPositionCount != 0 {
		t.Fatalf("open position count = %d, want 0", s.OpenPositionCount)
	}
	if s.ConsecutiveLosses != 0 {
		t.Fatalf("consecutive losses = %d, the round trip was profitable", s.ConsecutiveLosses)
	}
	if math.Abs(s.RealizedPnL-27.48) > 0.01 {
		t.Fatalf("realized pnl = %.4f, want ~27.48", s.RealizedPnL)
	}
}

func TestStopLossExit(t *testing.T) {
	m, tr := newTestManager()
	openTest(t, m, "TCS", 10, 100, 98, 112)

	closures := m.MarkPrice(tick("TCS", 97.90), bullish(), tradingHour)
	if len(closures) != 1 || closures[0].Reason != ExitStopLoss || !closures[0].Final {
		t.Fatalf("closures = %+v, want final stop-loss exit", closures)
	}

	s := tr.Snapshot()
	if s.ConsecutiveLosses != 1 {
		t.Fatalf("consecutive losses = %d, want 1", s.ConsecutiveLosses)
	}
	// (97.90*0.999 - 100) * 10 - 40
	if math.Abs(s.RealizedPnL-(-61.979)) > 0.01 {
		t.Fatalf("realized pnl = %.4f, want ~-61.98", s.RealizedPnL)
	}
	if math.Abs(s.LossBudgetRemaining-138.021) > 0.01 {
		t.Fatalf("budget remaining = %.4f, want ~138.02", s.LossBudgetRemaining)
	}
}

func TestTimeExitAtForceWindow(t *testing.T) {
	m, _ := newTestManager()
	openTest(t, m, "TCS", 10, 100, 98, 112)

	late := time.Date(2026, 8, 28, 15, 5, 0, 0, time.UTC)
	snap := tick("TCS", 101)
	snap.Timestamp = late
	closures := m.MarkPrice(snap, bullish(), late)
	if len(closures) != 1 || closures[0].Reason != ExitTimeExit {
		t.Fatalf("closures = %+v, want time exit", closures)
	}
}

func TestBiasFlipExit(t *testing.T) {
	m, _ := newTestManager()
	openTest(t, m, "TCS", 10, 100, 98, 112)

	rc := bullish()
	rc.Bias1H = market.BiasBearish
	closures := m.MarkPrice(tick("TCS", 101), rc, tradingHour)
	if len(closures) != 1 || closures[0].Reason != ExitBiasFlip {
		t.Fatalf("closures = %+v, want bias flip exit", closures)
	}
}

func TestExitPriorityStopBeforeBiasFlip(t *testing.T) {
	m, _ := newTestManager()
	openTest(t, m, "TCS", 10, 100, 98, 112)

	rc := bullish()
	rc.Bias1H = market.BiasBearish
	closures := m.MarkPrice(tick("TCS", 97.50), rc, tradingHour)
	if len(closures) != 1 || closures[0].Reason != ExitStopLoss {
		t.Fatalf("closures = %+v, want stop loss to win the priority", closures)
	}
}

func TestFlattenAll(t *testing.T) {
	m, tr := newTestManager()
	openTest(t, m, "TCS", 10, 100, 98, 112)
	openTest(t, m, "INFY", 5, 200, 196, 220)

	closures := m.FlattenAll(ExitFlatten, tradingHour)
	if len(closures) != 2 {
		t.Fatalf("closures = %d, want 2", len(closures))
	}
	for _, c := range closures {
		if c.Reason != ExitFlatten || !c.Final {
			t.Fatalf("closure = %+v, want final flatten", c)
		}
	}
	if len(m.List()) != 0 {
		t.Fatal("book not empty after flatten")
	}
	if tr.Snapshot().OpenPositionCount != 0 {
		t.Fatal("tracker still counts open positions")
	}
}

func TestDuplicateOpenRejected(t *testing.T) {
	m, _ := newTestManager()
	openTest(t, m, "TCS", 10, 100, 98, 112)

	_, err := m.Open(&risk.Intent{Symbol: "TCS", Side: "BUY", Qty: 5,
		StopLoss: 98, Target: 112}, 100, tradingHour)
	if err == nil {
		t.Fatal("expected error opening a second position in the same symbol")
	}
}

func TestPartialKeepsOneShare(t *testing.T) {
	m, _ := newTestManager()
	openTest(t, m, "TCS", 1, 100, 98, 112)

	closures := m.MarkPrice(tick("TCS", 103.5), bullish(), tradingHour)
	if len(closures) != 0 {
		t.Fatalf("closures = %+v, a single share must not partial out", closures)
	}
	p, okP := m.Get("TCS")
	if !okP || p.Qty != 1 {
		t.Fatalf("position = %+v, want 1 share still on", p)
	}
	if !p.Tier1Done {
		t.Fatal("tier1 flag should fire even when no shares come off")
	}
}
