package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// UpsertDailyState writes the full daily state row for its date.
func (d *Database) UpsertDailyState(r *DailyStateRow) error {
	_, err := d.DB.Exec(`
        INSERT INTO daily_states (
            date, capital, realized_pnl, loss_budget_remaining, deployed_capital,
            trades_executed, open_position_count, consecutive_losses, peak_capital,
            drawdown, safe_mode, safe_mode_reason, halted, halt_reason,
            last_strategy_id, last_switch_at, last_trade_at, archived, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(date) DO UPDATE SET
            capital=excluded.capital,
            realized_pnl=excluded.realized_pnl,
            loss_budget_remaining=excluded.loss_budget_remaining,
            deployed_capital=excluded.deployed_capital,
            trades_executed=excluded.trades_executed,
            open_position_count=excluded.open_position_count,
            consecutive_losses=excluded.consecutive_losses,
            peak_capital=excluded.peak_capital,
            drawdown=excluded.drawdown,
            safe_mode=excluded.safe_mode,
            safe_mode_reason=excluded.safe_mode_reason,
            halted=excluded.halted,
            halt_reason=excluded.halt_reason,
            last_strategy_id=excluded.last_strategy_id,
            last_switch_at=excluded.last_switch_at,
            last_trade_at=excluded.last_trade_at,
            archived=excluded.archived,
            updated_at=CURRENT_TIMESTAMP`,
		r.Date, r.Capital, r.RealizedPnL, r.LossBudgetRemaining, r.DeployedCapital,
		r.TradesExecuted, r.OpenPositionCount, r.ConsecutiveLosses, r.PeakCapital,
		r.Drawdown, r.SafeMode, r.SafeModeReason, r.Halted, r.HaltReason,
		r.LastStrategyID, r.LastSwitchAt, r.LastTradeAt, r.Archived)
	if err != nil {
		return fmt.Errorf("upsert daily state %s: %w", r.Date, err)
	}
	return nil
}

// GetDailyState loads the daily state row for date, or ErrNotFound.
func (d *Database) GetDailyState(date string) (*DailyStateRow, error) {
	r := &DailyStateRow{}
	var (
		safeReason, haltReason, lastStrategy sql.NullString
		switchAt, tradeAt                    sql.NullTime
	)
	err := d.DB.QueryRow(`
        SELECT date, capital, realized_pnl, loss_budget_remaining, deployed_capital,
               trades_executed, open_position_count, consecutive_losses, peak_capital,
               drawdown, safe_mode, safe_mode_reason, halted, halt_reason,
               last_strategy_id, last_switch_at, last_trade_at, archived
        FROM daily_states WHERE date = ?`, date).Scan(
		&r.Date, &r.Capital, &r.RealizedPnL, &r.LossBudgetRemaining, &r.DeployedCapital,
		&r.TradesExecuted, &r.OpenPositionCount, &r.ConsecutiveLosses, &r.PeakCapital,
		&r.Drawdown, &r.SafeMode, &safeReason, &r.Halted, &haltReason,
		&lastStrategy, &switchAt, &tradeAt, &r.Archived)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get daily state %s: %w", date, err)
	}
	r.SafeModeReason = safeReason.String
	r.HaltReason = haltReason.String
	r.LastStrategyID = lastStrategy.String
	r.LastSwitchAt = switchAt.Time
	r.LastTradeAt = tradeAt.Time
	return r, nil
}

// UpsertPosition writes the full position row.
func (d *Database) UpsertPosition(r *PositionRow) error {
	_, err := d.DB.Exec(`
        INSERT INTO positions (
            id, symbol, side, qty, entry_price, current_price, peak_price,
            stop_loss, target, strategy_id, trailing_active, partials_fired,
            state, entry_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(id) DO UPDATE SET
            qty=excluded.qty,
            current_price=excluded.current_price,
            peak_price=excluded.peak_price,
            stop_loss=excluded.stop_loss,
            target=excluded.target,
            trailing_active=excluded.trailing_active,
            partials_fired=excluded.partials_fired,
            state=excluded.state,
            updated_at=CURRENT_TIMESTAMP`,
		r.ID, r.Symbol, r.Side, r.Qty, r.EntryPrice, r.CurrentPrice, r.PeakPrice,
		r.StopLoss, r.Target, r.StrategyID, r.TrailingActive, r.PartialsFired,
		r.State, r.EntryAt)
	if err != nil {
		return fmt.Errorf("upsert position %s: %w", r.ID, err)
	}
	return nil
}

// DeletePosition removes a position row after close.
func (d *Database) DeletePosition(id string) error {
	if _, err := d.DB.Exec(`DELETE FROM positions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete position %s: %w", id, err)
	}
	return nil
}

// ListOpenPositions returns every position row not in CLOSED state.
func (d *Database) ListOpenPositions() ([]*PositionRow, error) {
	rows, err := d.DB.Query(`
        SELECT id, symbol, side, qty, entry_price, current_price, peak_price,
               stop_loss, target, strategy_id, trailing_active,
               partials_fired, state, entry_at
        FROM positions WHERE state != 'CLOSED'`)
	if err != nil {
		return nil, fmt.Errorf("list open positions: %w", err)
	}
	defer rows.Close()

	var out []*PositionRow
	for rows.Next() {
		r := &PositionRow{}
		var strategyID, partials sql.NullString
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Side, &r.Qty, &r.EntryPrice,
			&r.CurrentPrice, &r.PeakPrice, &r.StopLoss, &r.Target, &strategyID,
			&r.TrailingActive, &partials, &r.State, &r.EntryAt); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		r.StrategyID = strategyID.String
		r.PartialsFired = partials.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertTrade records a realized full or partial close.
func (d *Database) InsertTrade(r *TradeRow) error {
	_, err := d.DB.Exec(`
        INSERT INTO trades (id, position_id, symbol, side, qty, entry_price,
            exit_price, pnl, fees, reason, closed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PositionID, r.Symbol, r.Side, r.Qty, r.EntryPrice,
		r.ExitPrice, r.PnL, r.Fees, r.Reason, r.ClosedAt)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", r.ID, err)
	}
	return nil
}

// InsertIntent records a new trade intent.
func (d *Database) InsertIntent(r *IntentRow) error {
	_, err := d.DB.Exec(`
        INSERT INTO intents (id, symbol, side, entry, stop_loss, target, qty,
            strategy_id, confidence, expected_risk, rationale, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Symbol, r.Side, r.Entry, r.StopLoss, r.Target, r.Qty,
		r.StrategyID, r.Confidence, r.ExpectedRisk, r.Rationale, r.Status, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert intent %s: %w", r.ID, err)
	}
	return nil
}

// UpdateIntentStatus moves an intent through its lifecycle.
func (d *Database) UpdateIntentStatus(id, status string) error {
	if _, err := d.DB.Exec(`UPDATE intents SET status = ? WHERE id = ?`, status, id); err != nil {
		return fmt.Errorf("update intent %s: %w", id, err)
	}
	return nil
}

// InsertApproval records the risk chain verdict for an intent.
func (d *Database) InsertApproval(r *ApprovalRow) error {
	_, err := d.DB.Exec(`
        INSERT INTO approvals (intent_id, approved, adjusted_qty, hitl_required, check_id, reason)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(intent_id) DO UPDATE SET
            approved=excluded.approved,
            adjusted_qty=excluded.adjusted_qty,
            hitl_required=excluded.hitl_required,
            check_id=excluded.check_id,
            reason=excluded.reason`,
		r.IntentID, r.Approved, r.AdjustedQty, r.HITLRequired, r.CheckID, r.Reason)
	if err != nil {
		return fmt.Errorf("insert approval %s: %w", r.IntentID, err)
	}
	return nil
}
