package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"daytrade-core/internal/broker"
	"daytrade-core/internal/events"
	"daytrade-core/internal/hitl"
	"daytrade-core/internal/market"
	"daytrade-core/internal/monitor"
	"daytrade-core/internal/position"
	"daytrade-core/internal/rationale"
	"daytrade-core/internal/risk"
	"daytrade-core/internal/state"
	"daytrade-core/internal/strategy"
	"daytrade-core/pkg/db"
)

// Feed supplies the per-cycle market view.
type Feed interface {
	Snapshot(symbol string) market.Snapshot
}

// Intent lifecycle statuses persisted to the intents table.
const (
	StatusCreated     = "created"
	StatusRejected    = "rejected"
	StatusPendingHITL = "pending_hitl"
	StatusApproved    = "approved"
	StatusExecuted    = "executed"
	StatusFailed      = "failed"
)

// Options wires the engine. Database, bus and rationale may be nil.
type Options struct {
	SymbolList     []string
	Feed           Feed
	Set            *strategy.Set
	Aggregator     *strategy.Aggregator
	Chain          *risk.Chain
	RiskConfig     risk.Config
	Tracker        *state.Tracker
	Positions      *position.Manager
	Gate           *hitl.Gate
	Broker         *broker.Paper
	Rationale      *rationale.Client
	Database       *db.Database
	Bus            *events.Bus
	CycleEvery     time.Duration
	MonitorEvery   time.Duration
	SnapshotMaxAge time.Duration
}

// Engine drives the decision loop: snapshot, evaluate, aggregate, guard,
// approve, execute, monitor. Cycles per symbol are strictly sequential, so
// the tracker never sees two entries race past a budget check.
type Engine struct {
	opts Options
	cron *cron.Cron

	cancel context.CancelFunc
}

// New builds the engine.
func New(opts Options) *Engine {
	if opts.CycleEvery == 0 {
		opts.CycleEvery = 60 * time.Second
	}
	if opts.MonitorEvery == 0 {
		opts.MonitorEvery = 5 * time.Second
	}
	if opts.SnapshotMaxAge == 0 {
		opts.SnapshotMaxAge = 90 * time.Second
	}
	return &Engine{opts: opts}
}

// Start schedules the decision and monitor loops and begins consuming HITL
// resolutions. Returns after scheduling; Stop shuts everything down.
func (e *Engine) Start(ctx context.Context) error {
	ctx, e.cancel = context.WithCancel(ctx)

	e.cron = cron.New()
	if _, err := e.cron.AddFunc("@every "+e.opts.CycleEvery.String(), func() { e.Cycle(ctx) }); err != nil {
		return err
	}
	if _, err := e.cron.AddFunc("@every "+e.opts.MonitorEvery.String(), func() { e.Monitor(ctx) }); err != nil {
		return err
	}
	if _, err := e.cron.AddFunc("5 0 * * *", func() { e.rollover() }); err != nil {
		return err
	}
	e.cron.Start()

	go e.resolutionLoop(ctx)

	log.Printf("[ENGINE] started: cycle every %s, monitor every %s, %d symbols",
		e.opts.CycleEvery, e.opts.MonitorEvery, len(e.opts.SymbolList))
	return nil
}

// Stop halts the schedules and the resolution consumer.
func (e *Engine) Stop() {
	if e.cron != nil {
		e.cron.Stop()
	}
	if e.cancel != nil {
		e.cancel()
	}
}

// Cycle runs one full decision pass over every symbol.
func (e *Engine) Cycle(ctx context.Context) {
	start := time.Now()
	defer func() {
		monitor.CyclesTotal.Inc()
		monitor.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	for _, sym := range e.opts.SymbolList {
		if ctx.Err() != nil {
			return
		}
		e.cycleSymbol(ctx, sym)
	}
	e.publishGauges()
}

func (e *Engine) cycleSymbol(ctx context.Context, sym string) {
	now := time.Now()

	snap := e.opts.Feed.Snapshot(sym)
	if err := snap.Validate(now, e.opts.SnapshotMaxAge); err != nil {
		log.Printf("[ENGINE] skip %s: %v", sym, err)
		return
	}
	rc := market.DeriveContext(&snap)

	votes := e.opts.Set.EvaluateAll(&snap, rc)
	decision := e.opts.Aggregator.Decide(votes, rc, now)
	monitor.DecisionsTotal.WithLabelValues(string(decision.Verdict)).Inc()
	if e.opts.Bus != nil {
		e.opts.Bus.Publish(events.EventDecision, decision)
	}

	if decision.Verdict != strategy.ActionBuy {
		return
	}
	if _, open := e.opts.Positions.Get(sym); open {
		return
	}

	intent := e.buildIntent(ctx, sym, &decision, now)
	if intent == nil {
		return
	}
	e.recordIntent(intent, StatusCreated)
	if e.opts.Bus != nil {
		e.opts.Bus.Publish(events.EventIntentCreated, *intent)
	}

	verdict := e.opts.Chain.Evaluate(&risk.Input{
		Intent:    intent,
		Snapshot:  &snap,
		Context:   rc,
		State:     e.opts.Tracker.Snapshot(),
		Exposures: e.opts.Positions.Exposures(),
		Now:       now,
	})
	e.recordApproval(intent.ID, &verdict)

	if !verdict.Approved {
		monitor.CheckRejectionsTotal.WithLabelValues(verdict.FailedCheck).Inc()
		monitor.IntentsTotal.WithLabelValues(StatusRejected).Inc()
		e.updateIntent(intent.ID, StatusRejected)
		if e.opts.Bus != nil {
			e.opts.Bus.Publish(events.EventIntentRejected, verdict)
		}
		return
	}
	intent.Qty = verdict.AdjustedQty

	if verdict.HITLRequired {
		monitor.IntentsTotal.WithLabelValues(StatusPendingHITL).Inc()
		e.updateIntent(intent.ID, StatusPendingHITL)
		e.opts.Gate.Submit(intent, verdict, now)
		return
	}

	e.updateIntent(intent.ID, StatusApproved)
	e.execute(ctx, intent)
}

// buildIntent sizes the trade from the lead vote. Initial quantity targets
// the per-trade capital cap; the chain shrinks it further as needed.
func (e *Engine) buildIntent(ctx context.Context, sym string, d *strategy.Decision, now time.Time) *risk.Intent {
	lead := d.Lead
	if lead.Entry <= 0 {
		return nil
	}
	qty := int(e.opts.RiskConfig.MaxCapitalPerTrade / lead.Entry)
	if qty < 1 {
		log.Printf("[ENGINE] %s: one share at %.2f exceeds capital cap", sym, lead.Entry)
		return nil
	}

	intent := &risk.Intent{
		ID:             uuid.NewString(),
		Symbol:         sym,
		Side:           "BUY",
		Entry:          lead.Entry,
		StopLoss:       lead.StopLoss,
		Target:         lead.Target,
		Qty:            qty,
		StrategyID:     lead.StrategyID,
		Confidence:     lead.Confidence,
		Agreeing:       d.Agreeing,
		MeanConfidence: d.MeanConfidence,
		CreatedAt:      now,
	}

	if e.opts.Rationale != nil {
		text, err := e.opts.Rationale.Explain(ctx, sym, d)
		if err != nil {
			log.Printf("[ENGINE] rationale unavailable for %s: %v", sym, err)
		} else {
			intent.Rationale = text
		}
	}
	return intent
}

// execute fills an approved intent and opens the position.
func (e *Engine) execute(ctx context.Context, intent *risk.Intent) {
	fill, err := e.opts.Broker.Execute(ctx, intent)
	if err != nil {
		if errors.Is(err, broker.ErrDuplicateIntent) {
			log.Printf("[ENGINE] %s: %v", intent.Symbol, err)
		} else {
			log.Printf("[ENGINE] execute %s: %v", intent.Symbol, err)
		}
		monitor.IntentsTotal.WithLabelValues(StatusFailed).Inc()
		e.updateIntent(intent.ID, StatusFailed)
		return
	}

	if _, err := e.opts.Positions.Open(intent, fill.Price, fill.At); err != nil {
		log.Printf("[ENGINE] open %s: %v", intent.Symbol, err)
		monitor.IntentsTotal.WithLabelValues(StatusFailed).Inc()
		e.updateIntent(intent.ID, StatusFailed)
		return
	}
	monitor.IntentsTotal.WithLabelValues(StatusExecuted).Inc()
	e.updateIntent(intent.ID, StatusExecuted)
}

// Monitor runs the fast loop: mark prices, fire exits, flatten on safe mode.
func (e *Engine) Monitor(ctx context.Context) {
	now := time.Now()

	st := e.opts.Tracker.Snapshot()
	if st.SafeMode {
		for _, c := range e.opts.Positions.FlattenAll(position.ExitFlatten, now) {
			monitor.ClosuresTotal.WithLabelValues(string(c.Reason)).Inc()
		}
		e.publishGauges()
		return
	}

	for _, sym := range e.opts.SymbolList {
		if ctx.Err() != nil {
			return
		}
		snap := e.opts.Feed.Snapshot(sym)
		if err := snap.Validate(now, e.opts.SnapshotMaxAge); err != nil {
			continue
		}
		rc := market.DeriveContext(&snap)
		for _, c := range e.opts.Positions.MarkPrice(&snap, rc, now) {
			monitor.ClosuresTotal.WithLabelValues(string(c.Reason)).Inc()
		}
	}
	e.publishGauges()
}

// resolutionLoop executes intents the reviewer approved and finalizes the
// rest.
func (e *Engine) resolutionLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-e.opts.Gate.Resolutions():
			if res.Approved {
				log.Printf("[ENGINE] %s approved by %s", res.Intent.ID, res.By)
				e.updateIntent(res.Intent.ID, StatusApproved)
				e.execute(ctx, res.Intent)
			} else {
				log.Printf("[ENGINE] %s rejected by %s: %s", res.Intent.ID, res.By, res.Reason)
				monitor.IntentsTotal.WithLabelValues(StatusRejected).Inc()
				e.updateIntent(res.Intent.ID, StatusRejected)
			}
		}
	}
}

func (e *Engine) rollover() {
	date := time.Now().Format("2006-01-02")
	old := e.opts.Tracker.Rollover(date)
	log.Printf("[ENGINE] day %s archived: pnl=%.2f trades=%d", old.Date, old.RealizedPnL, old.TradesExecuted)
}

func (e *Engine) publishGauges() {
	st := e.opts.Tracker.Snapshot()
	monitor.OpenPositions.Set(float64(len(e.opts.Positions.List())))
	monitor.RealizedPnL.Set(st.RealizedPnL)
	monitor.LossBudgetRemaining.Set(st.LossBudgetRemaining)
	if st.SafeMode {
		monitor.SafeModeActive.Set(1)
	} else {
		monitor.SafeModeActive.Set(0)
	}
}

func (e *Engine) recordIntent(i *risk.Intent, status string) {
	if e.opts.Database == nil {
		return
	}
	err := e.opts.Database.InsertIntent(&db.IntentRow{
		ID:           i.ID,
		Symbol:       i.Symbol,
		Side:         i.Side,
		Entry:        i.Entry,
		StopLoss:     i.StopLoss,
		Target:       i.Target,
		Qty:          i.Qty,
		StrategyID:   i.StrategyID,
		Confidence:   i.Confidence,
		ExpectedRisk: i.RiskAmount(),
		Rationale:    i.Rationale,
		Status:       status,
		CreatedAt:    i.CreatedAt,
	})
	if err != nil {
		log.Printf("[ENGINE] record intent: %v", err)
	}
}

func (e *Engine) updateIntent(id, status string) {
	if e.opts.Database == nil {
		return
	}
	if err := e.opts.Database.UpdateIntentStatus(id, status); err != nil {
		log.Printf("[ENGINE] update intent: %v", err)
	}
}

func (e *Engine) recordApproval(id string, v *risk.Verdict) {
	if e.opts.Database == nil {
		return
	}
	err := e.opts.Database.InsertApproval(&db.ApprovalRow{
		IntentID:     id,
		Approved:     v.Approved,
		AdjustedQty:  v.AdjustedQty,
		HITLRequired: v.HITLRequired,
		CheckID:      v.FailedCheck,
		Reason:       v.Reason,
	})
	if err != nil {
		log.Printf("[ENGINE] record approval: %v", err)
	}
}
