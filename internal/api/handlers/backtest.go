package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"multiasset-backtest/internal/api/models"
	"multiasset-backtest/internal/backtest"
	"multiasset-backtest/internal/config"
	"multiasset-backtest/internal/data"
	"multiasset-backtest/internal/model"
	"multiasset-backtest/internal/monitoring"
	"multiasset-backtest/internal/store"
	"multiasset-backtest/internal/strategy"
)

// RunStore persists finished runs so their ledgers can be fetched later.
type RunStore interface {
	SaveRun(ctx context.Context, run *store.Run) error
	GetRun(ctx context.Context, id string) (*store.Run, error)
	ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
}

// BacktestHandler handles backtest-related requests
type BacktestHandler struct {
	engine    *backtest.Engine
	providers ProviderFactory
	runs      RunStore
	presetDir string
	log       logrus.FieldLogger
}

// NewBacktestHandler creates a new backtest handler. runs may be nil, in
// which case nothing is persisted and ledger lookups return 503.
func NewBacktestHandler(providers ProviderFactory, runs RunStore, presetDir string, log logrus.FieldLogger) *BacktestHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BacktestHandler{
		engine:    backtest.New(log),
		providers: providers,
		runs:      runs,
		presetDir: presetDir,
		log:       log.WithField("handler", "backtest"),
	}
}

// RunBacktest handles POST /api/v1/backtest
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req models.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	strat, stratCfg, err := h.buildStrategy(req.Config)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error(), nil)
		return
	}

	ds, benchmark, ok := h.loadData(c, req.DataSource)
	if !ok {
		return
	}
	if req.Options.LimitBars > 0 {
		ds = ds.Truncate(req.Options.LimitBars)
	}

	result, err := h.runOne(c.Request.Context(), ds, strat, buildOptions(req.Config))
	if err != nil {
		status, code := engineErrorStatus(err)
		writeError(c, status, code, err.Error(), nil)
		return
	}

	id := h.save(c.Request.Context(), stratCfg, benchmark, result)

	response := models.BacktestResponse{
		ID:        id,
		Status:    "completed",
		Summary:   toSummary(result, benchmark),
		Positions: convertPositions(result.Positions),
		Params:    stratCfg.Params,
	}
	if req.Options.IncludeLedger {
		response.Ledger = convertLedger(result.Ledger)
	}
	if req.Options.IncludeFills {
		response.Fills = convertFills(result.Fills)
	}
	if lookahead(stratCfg.Name) {
		response.Warnings = append(response.Warnings,
			fmt.Sprintf("strategy %q reads future prices; treat the result as an upper bound", stratCfg.Name))
	}
	c.JSON(http.StatusOK, response)
}

// GetLedger handles GET /api/v1/backtest/:id/ledger
func (h *BacktestHandler) GetLedger(c *gin.Context) {
	if h.runs == nil {
		writeError(c, http.StatusServiceUnavailable, "STORE_DISABLED", "run storage is not configured; use include_ledger=true", nil)
		return
	}
	id := c.Param("id")
	run, err := h.runs.GetRun(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("no backtest with id %s", id), nil)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, models.LedgerResponse{
		ID:     run.ID,
		Ledger: convertLedger(run.Result.Ledger),
		Fills:  convertFills(run.Result.Fills),
	})
}

// ListRuns handles GET /api/v1/backtest/runs
func (h *BacktestHandler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusOK, gin.H{"runs": []models.RunInfo{}})
		return
	}
	limit := 20
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(c, http.StatusBadRequest, "INVALID_PARAM", "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}
	runs, err := h.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error(), nil)
		return
	}
	out := make([]models.RunInfo, 0, len(runs))
	for _, r := range runs {
		out = append(out, models.RunInfo{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			Summary: toSummary(&backtest.Result{
				Strategy:   r.Strategy,
				Symbols:    r.Symbols,
				Trades:     r.Trades,
				FinalValue: r.FinalValue,
				Metrics:    r.Metrics,
				Summary:    r.Summary,
			}, ""),
		})
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

// CompareBacktests handles POST /api/v1/backtest/compare
func (h *BacktestHandler) CompareBacktests(c *gin.Context) {
	var req models.CompareBacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	// Fetch data once
	ds, benchmark, ok := h.loadData(c, req.DataSource)
	if !ok {
		return
	}
	if req.Options.LimitBars > 0 {
		ds = ds.Truncate(req.Options.LimitBars)
	}

	comparison := make([]models.ComparisonResult, 0, len(req.Variations))
	for _, variation := range req.Variations {
		merged := mergeConfig(req.BaseConfig, variation.Config)
		entry := models.ComparisonResult{Name: variation.Name}

		strat, stratCfg, err := h.buildStrategy(merged)
		if err != nil {
			entry.Error = &models.ErrorDetail{Code: "INVALID_CONFIG", Message: err.Error()}
			comparison = append(comparison, entry)
			continue
		}
		result, err := h.runOne(c.Request.Context(), ds, strat, buildOptions(merged))
		if err != nil {
			_, code := engineErrorStatus(err)
			entry.Error = &models.ErrorDetail{Code: code, Message: err.Error()}
			comparison = append(comparison, entry)
			continue
		}
		summary := toSummary(result, benchmark)
		entry.Summary = &summary
		entry.ID = h.save(c.Request.Context(), stratCfg, benchmark, result)
		comparison = append(comparison, entry)
	}

	c.JSON(http.StatusOK, models.CompareBacktestResponse{Comparison: comparison})
}

// Helper methods

func (h *BacktestHandler) loadData(c *gin.Context, src models.DataSourceConfig) (model.Dataset, string, bool) {
	q, benchmark, err := buildQuery(src)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_DATA_SOURCE", err.Error(), nil)
		return model.Dataset{}, "", false
	}
	p, err := h.providers(src)
	if err != nil {
		writeDataError(c, err)
		return model.Dataset{}, "", false
	}
	ds, err := data.LoadDataset(c.Request.Context(), p, q, benchmark)
	if err != nil {
		h.log.WithError(err).WithField("provider", p.Name()).Warn("data load failed")
		writeDataError(c, err)
		return model.Dataset{}, "", false
	}
	return ds, benchmark, true
}

func (h *BacktestHandler) buildStrategy(req models.BacktestConfig) (strategy.Strategy, config.StrategyConfig, error) {
	cfg := config.StrategyConfig{Name: req.Strategy.Name, Params: req.Strategy.Params}
	if req.StrategyFile != "" {
		preset, err := loadPreset(h.presetDir, req.StrategyFile)
		if err != nil {
			return nil, cfg, err
		}
		cfg = config.MergeStrategy(preset.Strategy, cfg)
	}
	if cfg.Name == "" {
		return nil, cfg, errors.New("strategy.name or strategy_file is required")
	}
	strat, err := strategy.FromConfig(cfg.Name, cfg.Params)
	if err != nil {
		return nil, cfg, err
	}
	return strat, cfg, nil
}

func (h *BacktestHandler) runOne(ctx context.Context, ds model.Dataset, strat strategy.Strategy, opts backtest.Options) (*backtest.Result, error) {
	started := time.Now()
	result, err := h.engine.Run(ctx, ds, strat, opts)
	trades := 0
	if result != nil {
		trades = result.Trades
	}
	monitoring.RecordRun(strat.Name(), time.Since(started), trades, err)
	return result, err
}

func (h *BacktestHandler) save(ctx context.Context, cfg config.StrategyConfig, benchmark string, result *backtest.Result) string {
	if h.runs == nil {
		return ""
	}
	run := &store.Run{Strategy: cfg.Name, Params: cfg.Params, Benchmark: benchmark, Result: result}
	if err := h.runs.SaveRun(ctx, run); err != nil {
		h.log.WithError(err).Warn("failed to persist run")
		return ""
	}
	return run.ID
}

func buildOptions(req models.BacktestConfig) backtest.Options {
	opts := backtest.DefaultOptions()
	if req.InitialCapital > 0 {
		opts.InitialCapital = req.InitialCapital
	}
	if req.RiskFreeRate != nil {
		opts.RiskFreeRate = *req.RiskFreeRate
	}
	return opts
}

func mergeConfig(base, override models.BacktestConfig) models.BacktestConfig {
	merged := base
	if override.StrategyFile != "" {
		merged.StrategyFile = override.StrategyFile
	}
	if override.InitialCapital != 0 {
		merged.InitialCapital = override.InitialCapital
	}
	if override.RiskFreeRate != nil {
		merged.RiskFreeRate = override.RiskFreeRate
	}
	s := config.MergeStrategy(
		config.StrategyConfig{Name: base.Strategy.Name, Params: base.Strategy.Params},
		config.StrategyConfig{Name: override.Strategy.Name, Params: override.Strategy.Params},
	)
	merged.Strategy = models.StrategyConfig{Name: s.Name, Params: s.Params}
	return merged
}

func lookahead(name string) bool {
	for _, info := range strategy.DefaultRegistry().List() {
		if info.Name == name {
			return info.Lookahead
		}
	}
	return false
}
