package risk

import (
	"fmt"
	"math"

	"daytrade-core/internal/market"
)

// --- intent sanity ---

func checkSideIsBuy(c *Chain, in *Input) outcome {
	if in.Intent.Side != "BUY" {
		return fail(fmt.Sprintf("side %s not allowed, long-only", in.Intent.Side))
	}
	return ok()
}

func checkQtyPositive(c *Chain, in *Input) outcome {
	if in.Intent.Qty <= 0 {
		return fail(fmt.Sprintf("quantity %d must be positive", in.Intent.Qty))
	}
	return ok()
}

func checkPricesPositive(c *Chain, in *Input) outcome {
	i := in.Intent
	if i.Entry <= 0 || i.StopLoss <= 0 || i.Target <= 0 {
		return fail(fmt.Sprintf("non-positive price in intent: entry=%.2f sl=%.2f target=%.2f",
			i.Entry, i.StopLoss, i.Target))
	}
	return ok()
}

func checkStopBelowEntry(c *Chain, in *Input) outcome {
	if in.Intent.StopLoss >= in.Intent.Entry {
		return fail(fmt.Sprintf("stop %.2f not below entry %.2f", in.Intent.StopLoss, in.Intent.Entry))
	}
	return ok()
}

func checkTargetAboveEntry(c *Chain, in *Input) outcome {
	if in.Intent.Target <= in.Intent.Entry {
		return fail(fmt.Sprintf("target %.2f not above entry %.2f", in.Intent.Target, in.Intent.Entry))
	}
	return ok()
}

func checkStopLossCap(c *Chain, in *Input) outcome {
	dist := (in.Intent.Entry - in.Intent.StopLoss) / in.Intent.Entry
	if dist > c.cfg.MaxStopLossPct {
		return fail(fmt.Sprintf("stop distance %.1f%% exceeds %.0f%% cap",
			dist*100, c.cfg.MaxStopLossPct*100))
	}
	return ok()
}

func checkRiskReward(c *Chain, in *Input) outcome {
	i := in.Intent
	slip := i.Entry * c.cfg.SlippageBufPct
	risk := (i.Entry + slip) - i.StopLoss
	reward := (i.Target - slip) - (i.Entry + slip)
	if risk <= 0 {
		return fail("stop at or above slippage-adjusted entry")
	}
	if rr := reward / risk; rr < c.cfg.MinRiskReward {
		return fail(fmt.Sprintf("risk:reward %.2f below %.2f after slippage", rr, c.cfg.MinRiskReward))
	}
	return ok()
}

// --- account health ---

func checkHalted(c *Chain, in *Input) outcome {
	if in.State.Halted {
		return fail("trading halted for the day: " + in.State.HaltReason)
	}
	return ok()
}

func checkDrawdown(c *Chain, in *Input) outcome {
	if in.State.Drawdown >= c.cfg.MaxDrawdownPct {
		reason := fmt.Sprintf("drawdown %.1f%% at or above %.0f%% limit",
			in.State.Drawdown*100, c.cfg.MaxDrawdownPct*100)
		c.tracker.TripSafeMode(reason)
		return fail(reason)
	}
	return ok()
}

func checkConsecutiveLosses(c *Chain, in *Input) outcome {
	if in.State.ConsecutiveLosses >= c.cfg.MaxConsecutiveLoss {
		reason := fmt.Sprintf("%d consecutive losses", in.State.ConsecutiveLosses)
		c.tracker.Halt(reason)
		return fail(reason)
	}
	return ok()
}

// --- loss budget ---

func checkBudgetPositive(c *Chain, in *Input) outcome {
	if in.State.LossBudgetRemaining <= 0 {
		return fail("daily loss budget exhausted")
	}
	return ok()
}

// checkProjectedLoss shrinks the quantity until the stop-out loss fits the
// remaining budget. Rejects when even one share does not fit.
func checkProjectedLoss(c *Chain, in *Input) outcome {
	i := in.Intent
	perShare := i.Entry - i.StopLoss
	if float64(i.Qty)*perShare <= in.State.LossBudgetRemaining {
		return ok()
	}
	fit := int(math.Floor(in.State.LossBudgetRemaining / perShare))
	if fit < 1 {
		return fail(fmt.Sprintf("stop-out loss %.2f exceeds remaining budget %.2f even at qty 1",
			perShare, in.State.LossBudgetRemaining))
	}
	return resize(fit, fmt.Sprintf("qty %d -> %d to fit loss budget %.2f",
		i.Qty, fit, in.State.LossBudgetRemaining))
}

// --- capital and sizing ---

func checkMaxCapital(c *Chain, in *Input) outcome {
	i := in.Intent
	if i.Value() <= c.cfg.MaxCapitalPerTrade {
		return ok()
	}
	fit := int(math.Floor(c.cfg.MaxCapitalPerTrade / i.Entry))
	if fit < 1 {
		return fail(fmt.Sprintf("one share at %.2f exceeds per-trade capital cap %.2f",
			i.Entry, c.cfg.MaxCapitalPerTrade))
	}
	return resize(fit, fmt.Sprintf("qty %d -> %d to fit capital cap %.2f", i.Qty, fit, c.cfg.MaxCapitalPerTrade))
}

func checkPerTradeRisk(c *Chain, in *Input) outcome {
	i := in.Intent
	limit := math.Min(in.State.LossBudgetRemaining*c.cfg.PerTradeRiskPct, c.cfg.PerTradeRiskAbs)
	if i.RiskAmount() <= limit {
		return ok()
	}
	perShare := i.Entry - i.StopLoss
	fit := int(math.Floor(limit / perShare))
	if fit < 1 {
		return fail(fmt.Sprintf("per-share risk %.2f exceeds per-trade risk cap %.2f", perShare, limit))
	}
	return resize(fit, fmt.Sprintf("qty %d -> %d to fit risk cap %.2f", i.Qty, fit, limit))
}

func checkAffordability(c *Chain, in *Input) outcome {
	i := in.Intent
	available := in.State.Equity() - in.State.DeployedCapital
	cost := i.Value() + 2*c.cfg.BrokeragePerOrder // entry and eventual exit
	if cost <= available {
		return ok()
	}
	fit := int(math.Floor((available - 2*c.cfg.BrokeragePerOrder) / i.Entry))
	if fit < 1 {
		return fail(fmt.Sprintf("cost %.2f exceeds available capital %.2f", cost, available))
	}
	return resize(fit, fmt.Sprintf("qty %d -> %d to fit available capital %.2f", i.Qty, fit, available))
}

func checkMinCapital(c *Chain, in *Input) outcome {
	if v := in.Intent.Value(); v < c.cfg.MinCapitalPerTrade {
		return fail(fmt.Sprintf("position value %.2f below minimum %.2f after sizing",
			v, c.cfg.MinCapitalPerTrade))
	}
	return ok()
}

// --- position limits ---

func checkMaxOpenPositions(c *Chain, in *Input) outcome {
	if len(in.Exposures) >= c.cfg.MaxOpenPositions {
		return fail(fmt.Sprintf("%d positions open, limit %d", len(in.Exposures), c.cfg.MaxOpenPositions))
	}
	return ok()
}

func checkDuplicateSymbol(c *Chain, in *Input) outcome {
	for _, e := range in.Exposures {
		if e.Symbol == in.Intent.Symbol {
			return fail("position already open in " + in.Intent.Symbol)
		}
	}
	return ok()
}

func checkPositionConcentration(c *Chain, in *Input) outcome {
	i := in.Intent
	limit := in.State.Equity() * c.cfg.PositionConcPct
	if i.Value() <= limit {
		return ok()
	}
	fit := int(math.Floor(limit / i.Entry))
	if fit < 1 {
		return fail(fmt.Sprintf("one share exceeds position concentration limit %.2f", limit))
	}
	return resize(fit, fmt.Sprintf("qty %d -> %d to fit concentration limit %.2f", i.Qty, fit, limit))
}

func checkPortfolioExposure(c *Chain, in *Input) outcome {
	limit := in.State.Equity() * c.cfg.PortfolioExpPct
	total := in.Intent.Value()
	for _, e := range in.Exposures {
		total += e.Value
	}
	if total > limit {
		return fail(fmt.Sprintf("portfolio exposure %.2f would exceed limit %.2f", total, limit))
	}
	return ok()
}

func checkSectorConcentration(c *Chain, in *Input) outcome {
	if in.Intent.Sector == "" {
		return ok()
	}
	limit := in.State.Equity() * c.cfg.SectorConcPct
	total := in.Intent.Value()
	for _, e := range in.Exposures {
		if e.Sector == in.Intent.Sector {
			total += e.Value
		}
	}
	if total > limit {
		return fail(fmt.Sprintf("sector %s exposure %.2f would exceed limit %.2f",
			in.Intent.Sector, total, limit))
	}
	return ok()
}

// --- trade frequency ---

func checkMaxTrades(c *Chain, in *Input) outcome {
	if in.State.TradesExecuted >= c.cfg.MaxTradesPerDay {
		return fail(fmt.Sprintf("%d trades executed, daily limit %d",
			in.State.TradesExecuted, c.cfg.MaxTradesPerDay))
	}
	return ok()
}

func checkTradeSpacing(c *Chain, in *Input) outcome {
	if in.State.LastTradeAt.IsZero() {
		return ok()
	}
	elapsed := in.Now.Sub(in.State.LastTradeAt)
	if spacing := c.cfg.MinSpacingMinutes; elapsed.Minutes() < float64(spacing) {
		return fail(fmt.Sprintf("%.1f min since last trade, minimum spacing %d min",
			elapsed.Minutes(), spacing))
	}
	return ok()
}

func checkLossCooldown(c *Chain, in *Input) outcome {
	if in.State.ConsecutiveLosses == 0 || in.State.LastTradeAt.IsZero() {
		return ok()
	}
	elapsed := in.Now.Sub(in.State.LastTradeAt)
	if elapsed.Minutes() < float64(c.cfg.CooldownMinutes) {
		return fail(fmt.Sprintf("in post-loss cooldown, %.1f of %d min elapsed",
			elapsed.Minutes(), c.cfg.CooldownMinutes))
	}
	return ok()
}

func checkOrderRate(c *Chain, in *Input) outcome {
	if !c.limiter.Allow() {
		return fail(fmt.Sprintf("order rate above %d per minute", c.cfg.OrdersPerMinute))
	}
	return ok()
}

// --- time windows ---

func checkEntryWindowOpen(c *Chain, in *Input) outcome {
	if m := minutesOfDay(in.Now); m < c.cfg.EntryStartMinute {
		return fail(fmt.Sprintf("before entry window, opens at %02d:%02d",
			c.cfg.EntryStartMinute/60, c.cfg.EntryStartMinute%60))
	}
	return ok()
}

func checkEntryWindowClose(c *Chain, in *Input) outcome {
	if m := minutesOfDay(in.Now); m >= c.cfg.EntryEndMinute {
		return fail(fmt.Sprintf("past entry cutoff %02d:%02d, exit-only",
			c.cfg.EntryEndMinute/60, c.cfg.EntryEndMinute%60))
	}
	return ok()
}

// --- market conditions ---

func checkVIX(c *Chain, in *Input) outcome {
	if v := in.Snapshot.VIX; v > c.cfg.MaxVIX {
		return fail(fmt.Sprintf("VIX %.1f above %.0f limit", v, c.cfg.MaxVIX))
	}
	return ok()
}

func checkSpread(c *Chain, in *Input) outcome {
	if s := in.Snapshot.Spread(); s > c.cfg.MaxSpreadPct {
		return fail(fmt.Sprintf("spread %.2f%% above %.2f%% limit", s*100, c.cfg.MaxSpreadPct*100))
	}
	return ok()
}

func checkVolumeRatio(c *Chain, in *Input) outcome {
	if r := in.Snapshot.VolRatio; r < c.cfg.MinVolumeRatio {
		return fail(fmt.Sprintf("volume ratio %.2f below %.1f floor", r, c.cfg.MinVolumeRatio))
	}
	return ok()
}

func checkGap(c *Chain, in *Input) outcome {
	if g := math.Abs(in.Snapshot.GapPercent()); g > c.cfg.MaxGapPct {
		return fail(fmt.Sprintf("opening gap %.1f%% beyond %.0f%% limit", g*100, c.cfg.MaxGapPct*100))
	}
	return ok()
}

func checkPriceDeviation(c *Chain, in *Input) outcome {
	dev := math.Abs(in.Snapshot.LTP-in.Intent.Entry) / in.Intent.Entry
	if dev > c.cfg.MaxPriceDeviation {
		return fail(fmt.Sprintf("price moved %.2f%% from proposed entry, limit %.0f%%",
			dev*100, c.cfg.MaxPriceDeviation*100))
	}
	return ok()
}

// --- ensemble quality ---

func checkAgreement(c *Chain, in *Input) outcome {
	if in.Intent.Agreeing < c.cfg.MinAgreement {
		return fail(fmt.Sprintf("confluence %d below minimum %d", in.Intent.Agreeing, c.cfg.MinAgreement))
	}
	return ok()
}

func checkConfidence(c *Chain, in *Input) outcome {
	if in.Intent.MeanConfidence < c.cfg.MinConfidence {
		return fail(fmt.Sprintf("mean confidence %.1f below %.0f floor",
			in.Intent.MeanConfidence, c.cfg.MinConfidence))
	}
	return ok()
}

// --- strategy discipline ---

func isSwitch(in *Input) bool {
	return in.State.LastStrategyID != "" && in.Intent.StrategyID != in.State.LastStrategyID
}

func checkSwitchCooldown(c *Chain, in *Input) outcome {
	if !isSwitch(in) || in.State.LastSwitchAt.IsZero() {
		return ok()
	}
	elapsed := in.Now.Sub(in.State.LastSwitchAt)
	if elapsed.Minutes() < float64(c.cfg.SwitchCooldownMinutes) {
		return fail(fmt.Sprintf("strategy switch %.1f min after last, cooldown %d min",
			elapsed.Minutes(), c.cfg.SwitchCooldownMinutes))
	}
	return ok()
}

// checkSwitchImprovement demands a materially stronger signal before changing
// horses: the incoming confidence must clear the floor by the improvement
// multiple.
func checkSwitchImprovement(c *Chain, in *Input) outcome {
	if !isSwitch(in) {
		return ok()
	}
	required := c.cfg.MinConfidence * c.cfg.SwitchImprovement
	if in.Intent.Confidence < required {
		return fail(fmt.Sprintf("switch confidence %.1f below required %.1f (%.2fx floor)",
			in.Intent.Confidence, required, c.cfg.SwitchImprovement))
	}
	return ok()
}

func checkBiasAlignment(c *Chain, in *Input) outcome {
	if in.Context.Bias1H == market.BiasBearish {
		return fail("1h bias bearish, no long entries")
	}
	return ok()
}

func checkTrendAlignment(c *Chain, in *Input) outcome {
	if in.Context.Trend15 == market.BiasBearish {
		return fail("15m trend bearish, no long entries")
	}
	return ok()
}
