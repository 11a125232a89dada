package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"multiasset-backtest/internal/analysis"
	"multiasset-backtest/internal/api/models"
	"multiasset-backtest/internal/config"
	"multiasset-backtest/internal/data"
	"multiasset-backtest/internal/model"
)

// RankHandler handles ranking-related requests
type RankHandler struct {
	providers    ProviderFactory
	universePath string
	log          logrus.FieldLogger
}

// NewRankHandler creates a new rank handler
func NewRankHandler(providers ProviderFactory, universePath string, log logrus.FieldLogger) *RankHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RankHandler{providers: providers, universePath: universePath, log: log.WithField("handler", "rank")}
}

// RankSymbols handles GET /api/v1/rank
func (h *RankHandler) RankSymbols(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	if req.Provider == "" {
		req.Provider = config.DefaultProvider
	}

	var symbols []string
	if req.Symbols != "" {
		for _, s := range strings.Split(req.Symbols, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
	} else if h.universePath != "" {
		if u, err := data.LoadUniverse(h.universePath); err == nil {
			symbols = u.Symbols()
		}
	}
	if len(symbols) == 0 {
		writeError(c, http.StatusBadRequest, "SYMBOLS_REQUIRED",
			"Please specify symbols query parameter (comma-separated) or fetch a universe first", nil)
		return
	}

	src := models.DataSourceConfig{
		Provider:  req.Provider,
		Symbols:   symbols,
		Benchmark: "none",
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Interval:  req.Interval,
	}
	q, _, err := buildQuery(src)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_DATA_SOURCE", err.Error(), nil)
		return
	}
	p, err := h.providers(src)
	if err != nil {
		writeDataError(c, err)
		return
	}
	bars, err := p.Bars(c.Request.Context(), q)
	if err != nil {
		writeDataError(c, err)
		return
	}

	keys := make([]string, 0, len(bars))
	for sym := range bars {
		keys = append(keys, sym)
	}
	sort.Strings(keys)
	series := make([]model.PriceSeries, 0, len(keys))
	for _, sym := range keys {
		series = append(series, data.Series(sym, bars[sym]))
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	ranked := analysis.Top(analysis.RankByHindsight(series), limit)

	rankings := make([]models.Ranking, len(ranked))
	for i, r := range ranked {
		rankings[i] = models.Ranking{
			Rank:                 r.Rank,
			Symbol:               r.Symbol,
			Count:                r.Count,
			BuyAndHoldReturn:     r.BuyAndHoldReturn,
			HindsightReturn:      r.HindsightReturn,
			HindsightTrades:      r.HindsightTrades,
			AnnualizedVolatility: r.AnnualizedVolatility,
			MaxDrawdown:          r.MaxDrawdown,
			SpreadP95P05:         r.SpreadP95P05,
		}
	}

	c.JSON(http.StatusOK, models.RankResponse{Rankings: rankings})
}
