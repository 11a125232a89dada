package backtest

// PositionState is either Flat or Holding. The unexported marker keeps the
// set of variants closed to this package.
type PositionState interface {
	isPositionState()
}

// Flat means no shares are held.
type Flat struct{}

// Holding is an open long position bought with a single allocation.
type Holding struct {
	Shares     float64 `json:"shares"`
	EntryPrice float64 `json:"entry_price"`
}

func (Flat) isPositionState()    {}
func (Holding) isPositionState() {}

// IsHolding reports whether p is an open position.
func IsHolding(p PositionState) bool {
	_, ok := p.(Holding)
	return ok
}
