package position

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"daytrade-core/internal/events"
	"daytrade-core/internal/market"
	"daytrade-core/internal/risk"
	"daytrade-core/internal/state"
	"daytrade-core/pkg/db"
)

// ExitConfig bounds the exit machinery. Percentages are fractions of the
// entry price unless noted.
type ExitConfig struct {
	TrailingActivatePct float64 `json:"trailing_activate_pct"` // gain to arm trailing
	TrailingDistancePct float64 `json:"trailing_distance_pct"` // behind peak
	Tier1GainPct        float64 `json:"tier1_gain_pct"`
	Tier1ExitFrac       float64 `json:"tier1_exit_frac"` // of remaining qty
	Tier2GainPct        float64 `json:"tier2_gain_pct"`
	Tier2ExitFrac       float64 `json:"tier2_exit_frac"`
	ForceExitMinute     int     `json:"force_exit_minute"`
	VolDivergenceFloor  float64 `json:"vol_divergence_floor"`
	SlippagePct         float64 `json:"slippage_pct"`
	BrokeragePerOrder   float64 `json:"brokerage_per_order"`
}

// DefaultExitConfig returns the standard exit thresholds.
func DefaultExitConfig() ExitConfig {
	return ExitConfig{
		TrailingActivatePct: 0.02,
		TrailingDistancePct: 0.01,
		Tier1GainPct:        0.03,
		Tier1ExitFrac:       0.30,
		Tier2GainPct:        0.06,
		Tier2ExitFrac:       0.50,
		ForceExitMinute:     15 * 60,
		VolDivergenceFloor:  0.7,
		SlippagePct:         0.001,
		BrokeragePerOrder:   20,
	}
}

// Manager owns every open position and drives the exit machinery against
// incoming snapshots. One position per symbol.
type Manager struct {
	mu       sync.RWMutex
	bySymbol map[string]*Position
	cfg      ExitConfig
	tracker  *state.Tracker
	database *db.Database // nil in tests
	bus      *events.Bus  // nil in tests
}

// NewManager builds an empty position book.
func NewManager(cfg ExitConfig, tracker *state.Tracker, database *db.Database, bus *events.Bus) *Manager {
	return &Manager{
		bySymbol: make(map[string]*Position),
		cfg:      cfg,
		tracker:  tracker,
		database: database,
		bus:      bus,
	}
}

// Rehydrate loads open positions from the database after a restart.
func (m *Manager) Rehydrate() error {
	if m.database == nil {
		return nil
	}
	rows, err := m.database.ListOpenPositions()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		t1, t2 := parsePartials(r.PartialsFired)
		p := &Position{
			ID:             r.ID,
			Symbol:         r.Symbol,
			Side:           r.Side,
			Qty:            r.Qty,
			InitialQty:     r.Qty,
			EntryPrice:     r.EntryPrice,
			CurrentPrice:   r.CurrentPrice,
			PeakPrice:      r.PeakPrice,
			StopLoss:       r.StopLoss,
			Target:         r.Target,
			StrategyID:     r.StrategyID,
			TrailingActive: r.TrailingActive,
			Tier1Done:      t1,
			Tier2Done:      t2,
			State:          State(r.State),
			EntryAt:        r.EntryAt,
		}
		m.bySymbol[p.Symbol] = p
		log.Printf("[POSITION] rehydrated %s qty=%d entry=%.2f state=%s", p.Symbol, p.Qty, p.EntryPrice, p.State)
	}
	return nil
}

// Open books a new position from an approved, filled intent. fillPrice is the
// slippage-adjusted execution price reported by the broker.
func (m *Manager) Open(intent *risk.Intent, fillPrice float64, now time.Time) (*Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bySymbol[intent.Symbol]; exists {
		return nil, fmt.Errorf("position already open in %s", intent.Symbol)
	}

	p := &Position{
		ID:           uuid.NewString(),
		Symbol:       intent.Symbol,
		Sector:       intent.Sector,
		Side:         intent.Side,
		Qty:          intent.Qty,
		InitialQty:   intent.Qty,
		EntryPrice:   fillPrice,
		CurrentPrice: fillPrice,
		PeakPrice:    fillPrice,
		StopLoss:     intent.StopLoss,
		Target:       intent.Target,
		StrategyID:   intent.StrategyID,
		State:        StateOpen,
		EntryAt:      now,
	}
	m.bySymbol[p.Symbol] = p

	m.tracker.RecordEntry(p.StrategyID, float64(p.Qty)*p.EntryPrice, now)
	m.persistLocked(p)
	log.Printf("[POSITION] opened %s qty=%d entry=%.2f sl=%.2f target=%.2f strategy=%s",
		p.Symbol, p.Qty, p.EntryPrice, p.StopLoss, p.Target, p.StrategyID)
	if m.bus != nil {
		m.bus.Publish(events.EventPositionOpened, *p)
	}
	return p, nil
}

// MarkPrice applies one snapshot to the position in its symbol, if any. Full
// exits are checked first in priority order; trailing management and partial
// tiers only run when no full exit fires. Returns the closures realized on
// this tick.
func (m *Manager) MarkPrice(snap *market.Snapshot, rc market.RegimeContext, now time.Time) []Closure {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, okP := m.bySymbol[snap.Symbol]
	if !okP {
		return nil
	}

	p.CurrentPrice = snap.LTP
	if snap.LTP > p.PeakPrice {
		p.PeakPrice = snap.LTP
	}

	if reason := m.fullExitReason(p, snap, rc, now); reason != "" {
		return []Closure{m.closeLocked(p, snap.LTP, p.Qty, reason, now)}
	}

	var closures []Closure
	gain := p.GainPct()

	// Trailing: arm at the activation gain, move the stop to breakeven, then
	// ratchet behind the peak. The stop never moves down.
	if !p.TrailingActive && gain >= m.cfg.TrailingActivatePct {
		p.TrailingActive = true
		if p.StopLoss < p.EntryPrice {
			p.StopLoss = p.EntryPrice
		}
		log.Printf("[POSITION] %s trailing armed at %.2f, stop -> breakeven %.2f", p.Symbol, snap.LTP, p.StopLoss)
	}
	if p.TrailingActive {
		if trail := p.PeakPrice * (1 - m.cfg.TrailingDistancePct); trail > p.StopLoss {
			p.StopLoss = trail
		}
	}

	// Partial tiers fire once each, on the remaining quantity, and always
	// leave at least one share on.
	if !p.Tier1Done && gain >= m.cfg.Tier1GainPct {
		p.Tier1Done = true
		if qty := partialQty(p.Qty, m.cfg.Tier1ExitFrac); qty > 0 {
			closures = append(closures, m.closeLocked(p, snap.LTP, qty, ExitPartialTier1, now))
		}
	}
	if p.State != StateClosed && !p.Tier2Done && gain >= m.cfg.Tier2GainPct {
		p.Tier2Done = true
		if qty := partialQty(p.Qty, m.cfg.Tier2ExitFrac); qty > 0 {
			closures = append(closures, m.closeLocked(p, snap.LTP, qty, ExitPartialTier2, now))
		}
	}

	if p.State != StateClosed {
		m.persistLocked(p)
	}
	return closures
}

// fullExitReason returns the first exit condition that holds, or "".
func (m *Manager) fullExitReason(p *Position, snap *market.Snapshot, rc market.RegimeContext, now time.Time) ExitReason {
	switch {
	case snap.LTP <= p.StopLoss && !p.TrailingActive:
		return ExitStopLoss
	case snap.LTP >= p.Target:
		return ExitTarget
	case snap.LTP <= p.StopLoss && p.TrailingActive:
		return ExitTrailingStop
	case now.Hour()*60+now.Minute() >= m.cfg.ForceExitMinute:
		return ExitTimeExit
	case snap.EMA9 > 0 && snap.EMA9 < snap.EMA21 && snap.LTP < snap.VWAP:
		return ExitStructureBreak
	case p.GainPct() >= m.cfg.Tier1GainPct && snap.VolRatio > 0 && snap.VolRatio < m.cfg.VolDivergenceFloor:
		return ExitVolumeDivergence
	case rc.Bias1H == market.BiasBearish:
		return ExitBiasFlip
	}
	return ""
}

// partialQty rounds the slice down and keeps at least one share in the book.
func partialQty(remaining int, frac float64) int {
	qty := int(math.Floor(float64(remaining) * frac))
	if qty >= remaining {
		qty = remaining - 1
	}
	if qty < 0 {
		qty = 0
	}
	return qty
}

// closeLocked realizes qty shares at price less slippage. Each exit order
// pays brokerage; the entry order's brokerage is charged on the final close.
func (m *Manager) closeLocked(p *Position, price float64, qty int, reason ExitReason, now time.Time) Closure {
	fill := price * (1 - m.cfg.SlippagePct)
	final := qty >= p.Qty

	fees := m.cfg.BrokeragePerOrder
	if final {
		qty = p.Qty
		fees += m.cfg.BrokeragePerOrder // entry leg
	}

	pnl := (fill-p.EntryPrice)*float64(qty) - fees
	released := float64(qty) * p.EntryPrice

	p.Qty -= qty
	p.RealizedPnL += pnl

	c := Closure{
		PositionID: p.ID,
		Symbol:     p.Symbol,
		Qty:        qty,
		ExitPrice:  fill,
		PnL:        pnl,
		Fees:       fees,
		Reason:     reason,
		Final:      final,
		At:         now,
	}

	if final {
		p.State = StateClosed
		delete(m.bySymbol, p.Symbol)
		m.tracker.ApplyClose(pnl, released, p.RealizedPnL < 0)
		if m.database != nil {
			if err := m.database.DeletePosition(p.ID); err != nil {
				log.Printf("[POSITION] delete %s: %v", p.ID, err)
			}
		}
	} else {
		p.State = StatePartiallyClosed
		m.tracker.ApplyPartial(pnl, released)
		m.persistLocked(p)
	}

	m.recordTrade(p, &c)
	log.Printf("[POSITION] %s %s qty=%d fill=%.2f pnl=%.2f final=%v", p.Symbol, reason, qty, fill, pnl, final)
	if m.bus != nil {
		if final {
			m.bus.Publish(events.EventPositionClosed, c)
		} else {
			m.bus.Publish(events.EventPartialExit, c)
		}
	}
	return c
}

func (m *Manager) recordTrade(p *Position, c *Closure) {
	if m.database == nil {
		return
	}
	err := m.database.InsertTrade(&db.TradeRow{
		ID:         uuid.NewString(),
		PositionID: p.ID,
		Symbol:     p.Symbol,
		Side:       p.Side,
		Qty:        c.Qty,
		EntryPrice: p.EntryPrice,
		ExitPrice:  c.ExitPrice,
		PnL:        c.PnL,
		Fees:       c.Fees,
		Reason:     string(c.Reason),
		ClosedAt:   c.At,
	})
	if err != nil {
		log.Printf("[POSITION] record trade: %v", err)
	}
}

// FlattenAll force-closes every open position at its last marked price.
// Safe-mode activation and the force-exit window both land here.
func (m *Manager) FlattenAll(reason ExitReason, now time.Time) []Closure {
	m.mu.Lock()
	defer m.mu.Unlock()

	var closures []Closure
	for _, p := range m.bySymbol {
		closures = append(closures, m.closeLocked(p, p.CurrentPrice, p.Qty, reason, now))
	}
	return closures
}

// Get returns a copy of the position in symbol, if open.
func (m *Manager) Get(symbol string) (Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, okP := m.bySymbol[symbol]
	if !okP {
		return Position{}, false
	}
	return *p, true
}

// List returns copies of every open position.
func (m *Manager) List() []Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Position, 0, len(m.bySymbol))
	for _, p := range m.bySymbol {
		out = append(out, *p)
	}
	return out
}

// Exposures summarizes the open book for the guardrail chain.
func (m *Manager) Exposures() []risk.Exposure {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]risk.Exposure, 0, len(m.bySymbol))
	for _, p := range m.bySymbol {
		out = append(out, risk.Exposure{Symbol: p.Symbol, Sector: p.Sector, Value: p.Value()})
	}
	return out
}

func (m *Manager) persistLocked(p *Position) {
	if m.database == nil {
		return
	}
	err := m.database.UpsertPosition(&db.PositionRow{
		ID:             p.ID,
		Symbol:         p.Symbol,
		Side:           p.Side,
		Qty:            p.Qty,
		EntryPrice:     p.EntryPrice,
		CurrentPrice:   p.CurrentPrice,
		PeakPrice:      p.PeakPrice,
		StopLoss:       p.StopLoss,
		Target:         p.Target,
		StrategyID:     p.StrategyID,
		TrailingActive: p.TrailingActive,
		PartialsFired:  p.partialsFired(),
		State:          string(p.State),
		EntryAt:        p.EntryAt,
	})
	if err != nil {
		log.Printf("[POSITION] persist %s: %v", p.Symbol, err)
	}
}
