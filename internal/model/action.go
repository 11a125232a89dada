package model

// Signal is the per-bar position a strategy asks for.
// Only SignalFlat and SignalLong drive trades; any other value is carried
// through as the previous position but never opens or closes anything.
type Signal int

const (
	SignalFlat Signal = 0
	SignalLong Signal = 1
)

// Action is what happened to an instrument on a bar.
// Keep these values stable; they are written to CSV and JSON output.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// ActionFromTransition maps a signal change to a trade.
// Only 0->1 buys and only 1->0 sells.
func ActionFromTransition(prev, cur Signal) Action {
	switch {
	case prev == SignalFlat && cur == SignalLong:
		return ActionBuy
	case prev == SignalLong && cur == SignalFlat:
		return ActionSell
	default:
		return ActionHold
	}
}
