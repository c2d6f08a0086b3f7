package state

import (
	"log"
	"sync"
	"time"

	"daytrade-core/internal/events"
	"daytrade-core/pkg/db"
)

// DailyState is the single per-day risk ledger every sizing and guardrail
// decision reads from. All mutation goes through Tracker so that related
// fields change together under one lock.
type DailyState struct {
	Date                string    `json:"date"`
	Capital             float64   `json:"capital"` // starting capital for the day
	RealizedPnL         float64   `json:"realized_pnl"`
	LossBudgetRemaining float64   `json:"loss_budget_remaining"`
	DeployedCapital     float64   `json:"deployed_capital"`
	TradesExecuted      int       `json:"trades_executed"`
	OpenPositionCount   int       `json:"open_position_count"`
	ConsecutiveLosses   int       `json:"consecutive_losses"`
	PeakCapital         float64   `json:"peak_capital"` // peak intraday equity
	Drawdown            float64   `json:"drawdown"`     // fraction off peak
	SafeMode            bool      `json:"safe_mode"`
	SafeModeReason      string    `json:"safe_mode_reason,omitempty"`
	Halted              bool      `json:"halted"`
	HaltReason          string    `json:"halt_reason,omitempty"`
	LastStrategyID      string    `json:"last_strategy_id,omitempty"`
	LastSwitchAt        time.Time `json:"last_switch_at"`
	LastTradeAt         time.Time `json:"last_trade_at"`
}

// Equity is starting capital plus realized PnL. Unrealized PnL is deliberately
// excluded: the ledger only moves on fills.
func (s *DailyState) Equity() float64 {
	return s.Capital + s.RealizedPnL
}

// Tracker owns the daily state. Safe for concurrent use.
type Tracker struct {
	mu           sync.Mutex
	state        DailyState
	maxDailyLoss float64
	database     *db.Database // nil in tests
	bus          *events.Bus  // nil in tests
}

// NewTracker starts a fresh day ledger. Pass a nil database for in-memory use.
func NewTracker(database *db.Database, bus *events.Bus, date string, capital, maxDailyLoss float64) *Tracker {
	t := &Tracker{
		maxDailyLoss: maxDailyLoss,
		database:     database,
		bus:          bus,
	}
	t.state = freshState(date, capital, maxDailyLoss)
	t.persist()
	return t
}

func freshState(date string, capital, maxDailyLoss float64) DailyState {
	return DailyState{
		Date:                date,
		Capital:             capital,
		LossBudgetRemaining: maxDailyLoss,
		PeakCapital:         capital,
	}
}

// Load rehydrates the tracker from the database for date. Returns false when
// no row exists, in which case the tracker keeps its fresh state.
func (t *Tracker) Load(date string) (bool, error) {
	if t.database == nil {
		return false, nil
	}
	row, err := t.database.GetDailyState(date)
	if err == db.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = DailyState{
		Date:                row.Date,
		Capital:             row.Capital,
		RealizedPnL:         row.RealizedPnL,
		LossBudgetRemaining: row.LossBudgetRemaining,
		DeployedCapital:     row.DeployedCapital,
		TradesExecuted:      row.TradesExecuted,
		OpenPositionCount:   row.OpenPositionCount,
		ConsecutiveLosses:   row.ConsecutiveLosses,
		PeakCapital:         row.PeakCapital,
		Drawdown:            row.Drawdown,
		SafeMode:            row.SafeMode,
		SafeModeReason:      row.SafeModeReason,
		Halted:              row.Halted,
		HaltReason:          row.HaltReason,
		LastStrategyID:      row.LastStrategyID,
		LastSwitchAt:        row.LastSwitchAt,
		LastTradeAt:         row.LastTradeAt,
	}
	return true, nil
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() DailyState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// RecordEntry books a new open position: deployed capital, trade count, last
// trade time, and strategy switch tracking move together.
func (t *Tracker) RecordEntry(strategyID string, deployed float64, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.DeployedCapital += deployed
	t.state.TradesExecuted++
	t.state.OpenPositionCount++
	t.state.LastTradeAt = now
	if strategyID != "" && strategyID != t.state.LastStrategyID {
		t.state.LastStrategyID = strategyID
		t.state.LastSwitchAt = now
	}
	t.persistLocked()
}

// ApplyPartial books a partial close: released capital and realized PnL move,
// but the position stays open so counts are untouched.
func (t *Tracker) ApplyPartial(pnl, released float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applyRealizedLocked(pnl, released)
	t.persistLocked()
}

// ApplyClose books a full close. wasLoss reflects the whole position's result
// across partials and drives the consecutive-loss counter.
func (t *Tracker) ApplyClose(pnl, released float64, wasLoss bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.OpenPositionCount > 0 {
		t.state.OpenPositionCount--
	}
	if wasLoss {
		t.state.ConsecutiveLosses++
	} else {
		t.state.ConsecutiveLosses = 0
	}
	t.applyRealizedLocked(pnl, released)
	t.persistLocked()
}

// applyRealizedLocked recomputes every derived field from realized PnL in one
// step, so the budget invariant holds at every observable point:
// loss_budget_remaining = maxDailyLoss - max(0, -realized_pnl), floored at 0.
func (t *Tracker) applyRealizedLocked(pnl, released float64) {
	t.state.RealizedPnL += pnl
	t.state.DeployedCapital -= released
	if t.state.DeployedCapital < 0 {
		t.state.DeployedCapital = 0
	}

	loss := -t.state.RealizedPnL
	if loss < 0 {
		loss = 0
	}
	remaining := t.maxDailyLoss - loss
	if remaining < 0 {
		remaining = 0
	}
	t.state.LossBudgetRemaining = remaining

	equity := t.state.Equity()
	if equity > t.state.PeakCapital {
		t.state.PeakCapital = equity
	}
	if t.state.PeakCapital > 0 {
		t.state.Drawdown = (t.state.PeakCapital - equity) / t.state.PeakCapital
	}

	if remaining <= 0 && !t.state.SafeMode {
		t.tripSafeModeLocked("daily loss budget exhausted")
	}
}

// TripSafeMode blocks all new entries until a manual reset. Sticky within the
// trading day.
func (t *Tracker) TripSafeMode(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.SafeMode {
		return
	}
	t.tripSafeModeLocked(reason)
	t.persistLocked()
}

func (t *Tracker) tripSafeModeLocked(reason string) {
	t.state.SafeMode = true
	t.state.SafeModeReason = reason
	log.Printf("[STATE] SAFE MODE: %s", reason)
	if t.bus != nil {
		t.bus.Publish(events.EventSafeMode, map[string]string{"reason": reason})
	}
}

// ResetSafeMode clears safe mode. Only an explicit operator action calls this;
// nothing in the decision loop does.
func (t *Tracker) ResetSafeMode() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.SafeMode {
		return
	}
	t.state.SafeMode = false
	t.state.SafeModeReason = ""
	log.Printf("[STATE] safe mode reset by operator")
	t.persistLocked()
}

// Halt stops new entries for the rest of the day. Unlike safe mode it does not
// force open positions flat.
func (t *Tracker) Halt(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Halted {
		return
	}
	t.state.Halted = true
	t.state.HaltReason = reason
	log.Printf("[STATE] trading halted: %s", reason)
	if t.bus != nil {
		t.bus.Publish(events.EventRiskAlert, map[string]string{"halt": reason})
	}
	t.persistLocked()
}

// Rollover archives the current day and opens a fresh ledger. Realized PnL
// carries into the next day's starting capital; safe mode and halt do not.
func (t *Tracker) Rollover(date string) DailyState {
	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.state
	if t.database != nil {
		row := t.rowLocked()
		row.Archived = true
		if err := t.database.UpsertDailyState(row); err != nil {
			log.Printf("[STATE] archive %s: %v", old.Date, err)
		}
	}

	t.state = freshState(date, old.Equity(), t.maxDailyLoss)
	t.persistLocked()
	log.Printf("[STATE] rolled over %s -> %s, capital %.2f", old.Date, date, t.state.Capital)
	if t.bus != nil {
		t.bus.Publish(events.EventDailyRollover, map[string]string{"date": date})
	}
	return old
}

func (t *Tracker) persist() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.persistLocked()
}

func (t *Tracker) persistLocked() {
	if t.database == nil {
		return
	}
	if err := t.database.UpsertDailyState(t.rowLocked()); err != nil {
		log.Printf("[STATE] persist: %v", err)
	}
}

func (t *Tracker) rowLocked() *db.DailyStateRow {
	s := t.state
	return &db.DailyStateRow{
		Date:                s.Date,
		Capital:             s.Capital,
		RealizedPnL:         s.RealizedPnL,
		LossBudgetRemaining: s.LossBudgetRemaining,
		DeployedCapital:     s.DeployedCapital,
		TradesExecuted:      s.TradesExecuted,
		OpenPositionCount:   s.OpenPositionCount,
		ConsecutiveLosses:   s.ConsecutiveLosses,
		PeakCapital:         s.PeakCapital,
		Drawdown:            s.Drawdown,
		SafeMode:            s.SafeMode,
		SafeModeReason:      s.SafeModeReason,
		Halted:              s.Halted,
		HaltReason:          s.HaltReason,
		LastStrategyID:      s.LastStrategyID,
		LastSwitchAt:        s.LastSwitchAt,
		LastTradeAt:         s.LastTradeAt,
	}
}
