package strategy

import (
	"daytrade-core/internal/market"
)

// InstitutionalFlowParams tune the time-windowed accumulation evaluator.
type InstitutionalFlowParams struct {
	MinVolRatio float64 `yaml:"min_vol_ratio"` // sustained volume, e.g. 1.5
	StopPct     float64 `yaml:"stop_pct"`      // wider stop, e.g. 0.035
	TargetPct   float64 `yaml:"target_pct"`    // e.g. 0.08
	Confidence  float64 `yaml:"confidence"`    // e.g. 90
}

// instWindow is a clock window in which institutional accumulation is
// typically visible (late morning and post-lunch sessions).
type instWindow struct {
	fromHour, fromMin int
	toHour, toMin     int
	name              string
}

var instWindows = []instWindow{
	{10, 30, 11, 30, "late morning accumulation"},
	{13, 30, 14, 30, "post-lunch continuation"},
}

// InstitutionalFlow buys multi-signal confirmation (volume surge, price above
// VWAP, EMA stack) inside preferred institutional windows only.
type InstitutionalFlow struct {
	id     string
	params InstitutionalFlowParams
}

func NewInstitutionalFlow(id string, p InstitutionalFlowParams) *InstitutionalFlow {
	if p.MinVolRatio == 0 {
		p.MinVolRatio = 1.5
	}
	if p.StopPct == 0 {
		p.StopPct = 0.035
	}
	if p.TargetPct == 0 {
		p.TargetPct = 0.08
	}
	if p.Confidence == 0 {
		p.Confidence = 90
	}
	return &InstitutionalFlow{id: id, params: p}
}

func (s *InstitutionalFlow) ID() string   { return s.id }
func (s *InstitutionalFlow) Name() string { return "InstitutionalFlow" }

func (s *InstitutionalFlow) ValidRegimes() []market.Regime {
	return []market.Regime{market.RegimeTrending, market.RegimeVolatile}
}

func (s *InstitutionalFlow) Evaluate(snap *market.Snapshot, rc market.RegimeContext) Vote {
	h, m := snap.Timestamp.Hour(), snap.Timestamp.Minute()
	inWindow := false
	windowName := ""
	for _, w := range instWindows {
		cur := h*60 + m
		if cur >= w.fromHour*60+w.fromMin && cur <= w.toHour*60+w.toMin {
			inWindow = true
			windowName = w.name
			break
		}
	}
	if !inWindow {
		return waitVote(s.id, "outside institutional window")
	}
	if snap.LTP <= snap.VWAP {
		return waitVote(s.id, "price below VWAP")
	}
	if snap.VolRatio <= s.params.MinVolRatio {
		return waitVote(s.id, "volume not sustained")
	}
	if !(snap.LTP > snap.EMA9 && snap.EMA9 > snap.EMA21) {
		return waitVote(s.id, "EMA misalignment")
	}

	return Vote{
		StrategyID: s.id,
		Action:     ActionBuy,
		Confidence: s.params.Confidence,
		Entry:      snap.LTP,
		StopLoss:   snap.LTP * (1 - s.params.StopPct),
		Target:     snap.LTP * (1 + s.params.TargetPct),
		Reason:     "institutional accumulation detected (" + windowName + ")",
	}
}
