package strategy

import "multiasset-backtest/internal/model"

// Strategy turns a close history into one signal per bar.
//
// Implementations must be pure: the same input yields the same output, the
// input is never modified, and the signal at bar t may only depend on closes
// up to and including t. The engine calls Signals concurrently for different
// instruments.
type Strategy interface {
	Name() string
	Signals(series model.PriceSeries) ([]model.Signal, error)
}

// Info describes a strategy and its parameters for listings.
type Info struct {
	Name        string
	Description string
	Parameters  []ParamInfo
	// Lookahead is true for strategies that read future bars on purpose.
	Lookahead bool
}

type ParamInfo struct {
	Name        string
	Type        string // "float", "int", "string"
	Description string
	Default     any
}
