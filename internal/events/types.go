package events

// Event enumerates high-level topics inside the decision core.
type Event string

const (
	EventSnapshot       Event = "market.snapshot"
	EventDecision       Event = "ensemble.decision"
	EventIntentCreated  Event = "intent.created"
	EventIntentApproved Event = "intent.approved"
	EventIntentRejected Event = "intent.rejected"
	EventIntentPending  Event = "intent.pending_hitl"
	EventPositionOpened Event = "position.opened"
	EventPositionClosed Event = "position.closed"
	EventPartialExit    Event = "position.partial_exit"
	EventSafeMode       Event = "risk.safe_mode"
	EventRiskAlert      Event = "risk.alert"
	EventDailyRollover  Event = "state.rollover"
)
