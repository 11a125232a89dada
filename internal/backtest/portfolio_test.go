package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiasset-backtest/internal/model"
)

func TestPortfolioSellFlatIsNoop(t *testing.T) {
	pf := NewPortfolio(1000)

	_, ok := pf.Sell("AAPL", 100)
	assert.False(t, ok)
	assert.Equal(t, 1000.0, pf.Cash())
	assert.Equal(t, 0, pf.Trades())
	assert.Equal(t, Flat{}, pf.Position("AAPL"))
}

func TestPortfolioRoundTrip(t *testing.T) {
	pf := NewPortfolio(1000)

	buy, err := pf.Buy("AAPL", 123.45, 400)
	require.NoError(t, err)
	assert.Equal(t, model.ActionBuy, buy.Side)
	assert.InDelta(t, 400/123.45, buy.Shares, 1e-12)
	assert.InDelta(t, 600.0, pf.Cash(), 1e-9)
	assert.Equal(t, Holding{Shares: 400 / 123.45, EntryPrice: 123.45}, pf.Position("AAPL"))

	sell, ok := pf.Sell("AAPL", 123.45)
	require.True(t, ok)
	assert.Equal(t, model.ActionSell, sell.Side)
	assert.InDelta(t, 1000.0, pf.Cash(), 1e-9)
	assert.Equal(t, 2, pf.Trades())
	assert.Equal(t, Flat{}, pf.Position("AAPL"))
	assert.Empty(t, pf.Positions())
}

func TestPortfolioBuyPreconditions(t *testing.T) {
	pf := NewPortfolio(1000)

	_, err := pf.Buy("AAPL", 0, 100)
	assert.ErrorIs(t, err, ErrNonPositivePrice)

	_, err = pf.Buy("AAPL", -1, 100)
	assert.ErrorIs(t, err, ErrNonPositivePrice)

	_, err = pf.Buy("AAPL", 100, -1)
	assert.ErrorIs(t, err, ErrNegativeAllocation)

	_, err = pf.Buy("AAPL", 100, math.NaN())
	assert.ErrorIs(t, err, ErrNegativeAllocation)

	assert.Equal(t, 1000.0, pf.Cash())
	assert.Equal(t, 0, pf.Trades())
}

func TestPortfolioZeroAllocationRoundTrip(t *testing.T) {
	pf := NewPortfolio(0)

	buy, err := pf.Buy("AAPL", 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, buy.Shares)
	assert.Equal(t, Holding{Shares: 0, EntryPrice: 100}, pf.Position("AAPL"))
	assert.Equal(t, []string{"AAPL"}, pf.HeldSymbols())
	assert.Equal(t, 1, pf.Trades())

	sell, ok := pf.Sell("AAPL", 120)
	require.True(t, ok)
	assert.Equal(t, 0.0, sell.Amount)
	assert.Equal(t, 0.0, pf.Cash())
	assert.Equal(t, 2, pf.Trades())
	assert.Equal(t, Flat{}, pf.Position("AAPL"))
}

func TestPortfolioMarkToMarket(t *testing.T) {
	pf := NewPortfolio(1000)
	assert.Equal(t, 0.0, pf.MarkToMarket("AAPL", 50))

	_, err := pf.Buy("AAPL", 100, 500)
	require.NoError(t, err)
	assert.InDelta(t, 250.0, pf.MarkToMarket("AAPL", 50), 1e-12)
	assert.InDelta(t, 500.0, pf.Cash(), 1e-12)
	assert.Equal(t, []string{"AAPL"}, pf.HeldSymbols())
}

func TestIsHolding(t *testing.T) {
	assert.False(t, IsHolding(Flat{}))
	assert.True(t, IsHolding(Holding{Shares: 1, EntryPrice: 1}))
}
