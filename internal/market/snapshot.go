package market

import (
	"fmt"
	"time"
)

// Regime classifies the current market character for strategy eligibility.
type Regime string

const (
	RegimeTrending Regime = "TRENDING"
	RegimeRanging  Regime = "RANGING"
	RegimeVolatile Regime = "VOLATILE"
)

// Bias is a directional read on a higher timeframe.
type Bias string

const (
	BiasBullish  Bias = "BULLISH"
	BiasBearish  Bias = "BEARISH"
	BiasSideways Bias = "SIDEWAYS"
)

// Snapshot is one immutable per-cycle view of an instrument. A snapshot is
// produced once by the data collaborator and never mutated afterwards.
type Snapshot struct {
	Symbol    string    `json:"symbol"`
	LTP       float64   `json:"ltp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	PrevClose float64   `json:"prev_close"`
	Volume    int64     `json:"volume"`
	VolRatio  float64   `json:"volume_ratio"` // vs 20-period average
	VWAP      float64   `json:"vwap"`
	EMA9      float64   `json:"ema_9"`
	EMA21     float64   `json:"ema_21"`
	EMA50     float64   `json:"ema_50"`
	RSI       float64   `json:"rsi"`
	BBUpper   float64   `json:"bb_upper"`
	BBLower   float64   `json:"bb_lower"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	VIX       float64   `json:"vix"`
	RangeHigh float64   `json:"opening_range_high"`
	Timestamp time.Time `json:"timestamp"`
}

// RegimeContext carries the multi-timeframe read a snapshot is judged under.
type RegimeContext struct {
	Regime  Regime `json:"regime"`
	Bias1H  Bias   `json:"bias_1h"`
	Trend15 Bias   `json:"trend_15m"`
}

// Validate rejects snapshots that are stale or missing fields the pipeline
// depends on. A failed validation skips the instrument for the cycle; it is
// never fatal.
func (s *Snapshot) Validate(now time.Time, maxAge time.Duration) error {
	if s.Symbol == "" {
		return fmt.Errorf("snapshot missing symbol")
	}
	if s.LTP <= 0 {
		return fmt.Errorf("snapshot %s: invalid last price %.2f", s.Symbol, s.LTP)
	}
	if s.VWAP <= 0 {
		return fmt.Errorf("snapshot %s: missing vwap", s.Symbol)
	}
	if s.Bid <= 0 || s.Ask <= 0 || s.Ask < s.Bid {
		return fmt.Errorf("snapshot %s: invalid quote bid=%.2f ask=%.2f", s.Symbol, s.Bid, s.Ask)
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("snapshot %s: missing timestamp", s.Symbol)
	}
	if age := now.Sub(s.Timestamp); age > maxAge {
		return fmt.Errorf("snapshot %s: stale by %s (max %s)", s.Symbol, age, maxAge)
	}
	return nil
}

// Spread returns the bid/ask spread as a fraction of the mid price.
func (s *Snapshot) Spread() float64 {
	mid := (s.Bid + s.Ask) / 2
	if mid <= 0 {
		return 0
	}
	return (s.Ask - s.Bid) / mid
}

// GapPercent returns the opening gap from the previous close as a fraction.
func (s *Snapshot) GapPercent() float64 {
	if s.PrevClose <= 0 {
		return 0
	}
	return (s.Open - s.PrevClose) / s.PrevClose
}

// DeriveContext classifies regime from the higher-timeframe EMA structure and
// the snapshot's position relative to VWAP. The 1h bias uses the EMA50 as a
// proxy for the hourly trend anchor; the 15m trend uses distance from VWAP.
func DeriveContext(s *Snapshot) RegimeContext {
	bias := BiasSideways
	switch {
	case s.LTP > s.EMA50 && s.EMA21 > s.EMA50:
		bias = BiasBullish
	case s.LTP < s.EMA50 && s.EMA21 < s.EMA50:
		bias = BiasBearish
	}

	trend := BiasSideways
	switch {
	case s.LTP > s.VWAP*1.002:
		trend = BiasBullish
	case s.LTP < s.VWAP*0.998:
		trend = BiasBearish
	}

	regime := RegimeRanging
	if trend != BiasSideways && bias != BiasSideways {
		regime = RegimeTrending
	}
	if s.VIX > 25 || s.VolRatio > 2.5 {
		regime = RegimeVolatile
	}

	return RegimeContext{Regime: regime, Bias1H: bias, Trend15: trend}
}
