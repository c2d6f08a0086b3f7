package risk

import (
	"log"
	"time"

	"golang.org/x/time/rate"

	"daytrade-core/internal/state"
)

// checkFn evaluates one guardrail against the working input. Checks must be
// side-effect free except for the two account-health trips, which go through
// the tracker.
type checkFn func(c *Chain, in *Input) outcome

type check struct {
	id string
	fn checkFn
}

type category struct {
	name   string
	checks []check
}

// Chain runs every guardrail category in a fixed order and fails fast on the
// first rejection. Quantity adjustments shrink the working intent in place;
// HITL triggers accumulate without rejecting. Evaluation is idempotent for a
// given input, except for the order rate limiter, which consumes a token each
// time the chain reaches it.
type Chain struct {
	cfg     Config
	tracker *state.Tracker
	limiter *rate.Limiter
	cats    []category
}

// NewChain builds the guardrail chain. The tracker receives safe-mode and
// halt side effects; it must not be nil.
func NewChain(cfg Config, tracker *state.Tracker) *Chain {
	c := &Chain{
		cfg:     cfg,
		tracker: tracker,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.OrdersPerMinute))/60, cfg.OrdersPerMinute),
	}
	c.cats = []category{
		{"intent_sanity", []check{
			{"side_is_buy", checkSideIsBuy},
			{"qty_positive", checkQtyPositive},
			{"prices_positive", checkPricesPositive},
			{"stop_below_entry", checkStopBelowEntry},
			{"target_above_entry", checkTargetAboveEntry},
			{"stop_loss_cap", checkStopLossCap},
			{"risk_reward_floor", checkRiskReward},
		}},
		{"account_health", []check{
			{"trading_halted", checkHalted},
			{"drawdown_limit", checkDrawdown},
			{"consecutive_losses", checkConsecutiveLosses},
		}},
		{"loss_budget", []check{
			{"budget_positive", checkBudgetPositive},
			{"projected_loss_within_budget", checkProjectedLoss},
		}},
		{"capital_sizing", []check{
			{"max_capital_per_trade", checkMaxCapital},
			{"per_trade_risk_cap", checkPerTradeRisk},
			{"affordability", checkAffordability},
			{"min_capital_floor", checkMinCapital},
		}},
		{"position_limits", []check{
			{"max_open_positions", checkMaxOpenPositions},
			{"duplicate_symbol", checkDuplicateSymbol},
			{"position_concentration", checkPositionConcentration},
			{"portfolio_exposure", checkPortfolioExposure},
			{"sector_concentration", checkSectorConcentration},
		}},
		{"trade_frequency", []check{
			{"max_trades_per_day", checkMaxTrades},
			{"min_trade_spacing", checkTradeSpacing},
			{"loss_cooldown", checkLossCooldown},
			{"orders_per_minute", checkOrderRate},
		}},
		{"time_windows", []check{
			{"entry_window_open", checkEntryWindowOpen},
			{"entry_window_close", checkEntryWindowClose},
		}},
		{"market_conditions", []check{
			{"vix_limit", checkVIX},
			{"spread_limit", checkSpread},
			{"volume_ratio_floor", checkVolumeRatio},
			{"gap_limit", checkGap},
			{"price_deviation", checkPriceDeviation},
		}},
		{"ensemble_quality", []check{
			{"min_agreement", checkAgreement},
			{"min_confidence", checkConfidence},
		}},
		{"strategy_discipline", []check{
			{"switch_cooldown", checkSwitchCooldown},
			{"switch_improvement", checkSwitchImprovement},
			{"bias_alignment", checkBiasAlignment},
			{"trend_alignment", checkTrendAlignment},
		}},
	}
	return c
}

// Evaluate runs the full chain. The safe-mode veto runs before any category:
// an intent arriving while safe mode is active is rejected with check id
// "safe_mode_active" so the audit trail shows the veto, not the category that
// would have fired next.
func (c *Chain) Evaluate(in *Input) Verdict {
	v := Verdict{AdjustedQty: in.Intent.Qty}

	if in.State.SafeMode {
		v.FailedCheck = "safe_mode_active"
		v.Category = "safe_mode"
		v.Reason = "safe mode active: " + in.State.SafeModeReason
		v.ChecksRun = 1
		log.Printf("[RISK] %s rejected: %s", in.Intent.Symbol, v.Reason)
		return v
	}
	v.ChecksRun = 1

	work := *in.Intent
	win := *in
	win.Intent = &work

	for _, cat := range c.cats {
		for _, ck := range cat.checks {
			v.ChecksRun++
			out := ck.fn(c, &win)
			switch out.status {
			case reject:
				v.FailedCheck = ck.id
				v.Category = cat.name
				v.Reason = out.reason
				v.AdjustedQty = 0
				log.Printf("[RISK] %s rejected at %s/%s: %s", work.Symbol, cat.name, ck.id, out.reason)
				return v
			case adjust:
				work.Qty = out.qty
				v.Adjustments = append(v.Adjustments, ck.id+": "+out.reason)
			}
		}
	}

	c.collectHITL(&win, &v)

	m := minutesOfDay(in.Now)
	for _, w := range c.cfg.PreferredWindows {
		if m >= w.Start && m < w.End {
			v.PreferredWindow = true
			break
		}
	}

	v.Approved = true
	v.AdjustedQty = work.Qty
	return v
}

// collectHITL appends the non-rejecting human-review triggers.
func (c *Chain) collectHITL(in *Input, v *Verdict) {
	if in.State.TradesExecuted < c.cfg.HITLFirstTrades {
		v.Triggers = append(v.Triggers, "first_trades_of_day")
	}
	if in.Intent.Confidence < c.cfg.HITLConfidenceMin {
		v.Triggers = append(v.Triggers, "low_confidence")
	}
	if in.State.LastStrategyID != "" && in.Intent.StrategyID != in.State.LastStrategyID {
		v.Triggers = append(v.Triggers, "strategy_switch")
	}
	v.HITLRequired = len(v.Triggers) > 0
}

// minutesOfDay returns the clock time as minutes from midnight.
func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
