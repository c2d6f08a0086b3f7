package db

import "time"

// DailyStateRow mirrors one row of daily_states.
type DailyStateRow struct {
	Date                string
	Capital             float64
	RealizedPnL         float64
	LossBudgetRemaining float64
	DeployedCapital     float64
	TradesExecuted      int
	OpenPositionCount   int
	ConsecutiveLosses   int
	PeakCapital         float64
	Drawdown            float64
	SafeMode            bool
	SafeModeReason      string
	Halted              bool
	HaltReason          string
	LastStrategyID      string
	LastSwitchAt        time.Time
	LastTradeAt         time.Time
	Archived            bool
}

// PositionRow mirrors one row of positions.
type PositionRow struct {
	ID             string
	Symbol         string
	Side           string
	Qty            int
	EntryPrice     float64
	CurrentPrice   float64
	PeakPrice      float64
	StopLoss       float64
	Target         float64
	StrategyID     string
	TrailingActive bool
	PartialsFired  string // comma-separated tier labels
	State          string
	EntryAt        time.Time
}

// TradeRow mirrors one row of trades (a full or partial close).
type TradeRow struct {
	ID         string
	PositionID string
	Symbol     string
	Side       string
	Qty        int
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	Fees       float64
	Reason     string
	ClosedAt   time.Time
}

// IntentRow mirrors one row of intents.
type IntentRow struct {
	ID           string
	Symbol       string
	Side         string
	Entry        float64
	StopLoss     float64
	Target       float64
	Qty          int
	StrategyID   string
	Confidence   float64
	ExpectedRisk float64
	Rationale    string
	Status       string
	CreatedAt    time.Time
}

// ApprovalRow mirrors one row of approvals (risk chain outcome per intent).
type ApprovalRow struct {
	IntentID     string
	Approved     bool
	AdjustedQty  int
	HITLRequired bool
	CheckID      string
	Reason       string
}
