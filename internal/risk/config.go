package risk

// Window is a clock interval in minutes from midnight.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Config carries every guardrail threshold. Percentages are fractions.
type Config struct {
	// Intent sanity.
	MaxStopLossPct float64 `json:"max_stop_loss_pct"`
	SlippageBufPct float64 `json:"slippage_buf_pct"`
	MinRiskReward  float64 `json:"min_risk_reward"`

	// Capital and sizing.
	MaxCapitalPerTrade float64 `json:"max_capital_per_trade"`
	MinCapitalPerTrade float64 `json:"min_capital_per_trade"`
	BrokeragePerOrder  float64 `json:"brokerage_per_order"`
	PerTradeRiskPct    float64 `json:"per_trade_risk_pct"` // of remaining loss budget
	PerTradeRiskAbs    float64 `json:"per_trade_risk_abs"`

	// Daily loss budget.
	MaxDailyLoss float64 `json:"max_daily_loss"`

	// Trade frequency.
	MaxTradesPerDay   int `json:"max_trades_per_day"`
	OrdersPerMinute   int `json:"orders_per_minute"`
	MinSpacingMinutes int `json:"min_spacing_minutes"`
	CooldownMinutes   int `json:"cooldown_minutes"` // after a loss

	// Position limits.
	MaxOpenPositions int     `json:"max_open_positions"`
	PositionConcPct  float64 `json:"position_concentration_pct"` // of equity
	PortfolioExpPct  float64 `json:"portfolio_exposure_pct"`
	SectorConcPct    float64 `json:"sector_concentration_pct"`

	// Market conditions.
	MaxVIX            float64 `json:"max_vix"`
	MaxSpreadPct      float64 `json:"max_spread_pct"`
	MinVolumeRatio    float64 `json:"min_volume_ratio"`
	MaxGapPct         float64 `json:"max_gap_pct"`
	MaxPriceDeviation float64 `json:"max_price_deviation"`

	// Time windows, minutes from midnight exchange time.
	EntryStartMinute int      `json:"entry_start_minute"` // 9:30, 15 min after open
	EntryEndMinute   int      `json:"entry_end_minute"`   // 14:30
	ForceExitMinute  int      `json:"force_exit_minute"`  // 15:00
	PreferredWindows []Window `json:"preferred_windows"`  // annotation only, never rejects

	// Ensemble quality.
	MinAgreement  int     `json:"min_agreement"`
	MinConfidence float64 `json:"min_confidence"`

	// Strategy discipline.
	SwitchCooldownMinutes int     `json:"switch_cooldown_minutes"`
	SwitchImprovement     float64 `json:"switch_improvement"` // confidence multiple

	// Account health.
	MaxDrawdownPct     float64 `json:"max_drawdown_pct"`
	MaxConsecutiveLoss int     `json:"max_consecutive_losses"`

	// HITL triggers.
	HITLFirstTrades   int     `json:"hitl_first_trades"`
	HITLConfidenceMin float64 `json:"hitl_confidence_min"`
}

// DefaultConfig returns the standard guardrail thresholds.
func DefaultConfig() Config {
	return Config{
		MaxStopLossPct: 0.10,
		SlippageBufPct: 0.001,
		MinRiskReward:  1.0,

		MaxCapitalPerTrade: 2000,
		MinCapitalPerTrade: 100,
		BrokeragePerOrder:  20,
		PerTradeRiskPct:    0.50,
		PerTradeRiskAbs:    500,

		MaxDailyLoss: 200,

		MaxTradesPerDay:   5,
		OrdersPerMinute:   10,
		MinSpacingMinutes: 5,
		CooldownMinutes:   20,

		MaxOpenPositions: 2,
		PositionConcPct:  0.40,
		PortfolioExpPct:  0.70,
		SectorConcPct:    0.50,

		MaxVIX:            30,
		MaxSpreadPct:      0.005,
		MinVolumeRatio:    1.5,
		MaxGapPct:         0.05,
		MaxPriceDeviation: 0.01,

		EntryStartMinute: 9*60 + 30,
		EntryEndMinute:   14*60 + 30,
		ForceExitMinute:  15 * 60,
		PreferredWindows: []Window{
			{Start: 10*60 + 30, End: 11*60 + 30},
			{Start: 13*60 + 30, End: 14*60 + 30},
		},

		MinAgreement:  3,
		MinConfidence: 70,

		SwitchCooldownMinutes: 20,
		SwitchImprovement:     1.15,

		MaxDrawdownPct:     0.15,
		MaxConsecutiveLoss: 3,

		HITLFirstTrades:   2,
		HITLConfidenceMin: 80,
	}
}
