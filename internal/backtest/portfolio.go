package backtest

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"multiasset-backtest/internal/model"
)

var (
	ErrNonPositivePrice   = errors.New("price must be > 0")
	ErrNegativeAllocation = errors.New("allocation must be >= 0")
)

// Fill records one executed trade.
type Fill struct {
	Symbol string       `json:"symbol"`
	Side   model.Action `json:"side"`
	Price  float64      `json:"price"`
	Shares float64      `json:"shares"`
	Amount float64      `json:"amount"`
}

// Portfolio is the cash and position ledger for a single run.
// It is not safe for concurrent use.
type Portfolio struct {
	cash      float64
	trades    int
	positions map[string]PositionState
}

func NewPortfolio(initialCash float64) *Portfolio {
	return &Portfolio{
		cash:      initialCash,
		positions: make(map[string]PositionState),
	}
}

func (p *Portfolio) Cash() float64 { return p.cash }

// Trades counts executed buys plus executed sells.
func (p *Portfolio) Trades() int { return p.trades }

// Position returns Flat for symbols that were never bought.
func (p *Portfolio) Position(symbol string) PositionState {
	if pos, ok := p.positions[symbol]; ok {
		return pos
	}
	return Flat{}
}

// Positions returns a copy of every non-flat position.
func (p *Portfolio) Positions() map[string]Holding {
	out := make(map[string]Holding)
	for sym, pos := range p.positions {
		if h, ok := pos.(Holding); ok {
			out[sym] = h
		}
	}
	return out
}

// Buy spends the whole allocation on symbol at price. A zero allocation
// still opens a zero-share Holding and counts as a trade.
func (p *Portfolio) Buy(symbol string, price, allocation float64) (Fill, error) {
	if !(price > 0) || math.IsInf(price, 0) {
		return Fill{}, fmt.Errorf("buy %s at %v: %w", symbol, price, ErrNonPositivePrice)
	}
	if !(allocation >= 0) || math.IsInf(allocation, 0) {
		return Fill{}, fmt.Errorf("buy %s with %v: %w", symbol, allocation, ErrNegativeAllocation)
	}
	shares := allocation / price
	p.positions[symbol] = Holding{Shares: shares, EntryPrice: price}
	p.cash -= allocation
	p.trades++
	return Fill{Symbol: symbol, Side: model.ActionBuy, Price: price, Shares: shares, Amount: allocation}, nil
}

// Sell closes the position in symbol at price. Selling a flat symbol does
// nothing and reports false.
func (p *Portfolio) Sell(symbol string, price float64) (Fill, bool) {
	h, ok := p.Position(symbol).(Holding)
	if !ok {
		return Fill{}, false
	}
	proceeds := h.Shares * price
	p.cash += proceeds
	p.positions[symbol] = Flat{}
	p.trades++
	return Fill{Symbol: symbol, Side: model.ActionSell, Price: price, Shares: h.Shares, Amount: proceeds}, true
}

// MarkToMarket values the position in symbol at price.
func (p *Portfolio) MarkToMarket(symbol string, price float64) float64 {
	if h, ok := p.Position(symbol).(Holding); ok {
		return h.Shares * price
	}
	return 0
}

// HeldSymbols lists open positions in sorted order.
func (p *Portfolio) HeldSymbols() []string {
	out := make([]string, 0, len(p.positions))
	for sym, pos := range p.positions {
		if IsHolding(pos) {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}
