package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"multiasset-backtest/internal/api/handlers"
	"multiasset-backtest/internal/api/middleware"
	"multiasset-backtest/internal/api/models"
	"multiasset-backtest/internal/data"
	"multiasset-backtest/internal/monitoring"
	"multiasset-backtest/internal/strategy"
)

// Deps is everything the HTTP API needs.
type Deps struct {
	Log          logrus.FieldLogger
	DataOptions  data.Options
	Providers    handlers.ProviderFactory // defaults to handlers.DefaultProviderFactory
	Runs         handlers.RunStore        // optional
	PresetDir    string
	UniversePath string
	StaticDir    string // optional web UI build
	CORSOrigins  []string
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Providers == nil {
		d.Providers = handlers.DefaultProviderFactory(d.DataOptions, d.Log)
	}

	router := gin.New()
	router.Use(middleware.CORS(d.CORSOrigins))
	router.Use(middleware.Logger(d.Log))
	router.Use(middleware.ErrorHandler(d.Log))

	backtestHandler := handlers.NewBacktestHandler(d.Providers, d.Runs, d.PresetDir, d.Log)
	presetHandler := handlers.NewPresetHandler(d.PresetDir, d.Log)
	providerHandler := handlers.NewProviderHandler(d.DataOptions, d.UniversePath, d.Log)
	strategyHandler := handlers.NewStrategyHandler(strategy.DefaultRegistry())
	rankHandler := handlers.NewRankHandler(d.Providers, d.UniversePath, d.Log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(monitoring.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/backtest", backtestHandler.RunBacktest)
		api.GET("/backtest/runs", backtestHandler.ListRuns)
		api.GET("/backtest/:id/ledger", backtestHandler.GetLedger)
		api.POST("/backtest/compare", backtestHandler.CompareBacktests)

		api.GET("/strategies", strategyHandler.ListStrategies)
		api.GET("/presets", presetHandler.ListPresets)
		api.GET("/presets/:id", presetHandler.GetPreset)

		api.GET("/providers", providerHandler.ListProviders)
		api.GET("/symbols", providerHandler.ListSymbols)

		api.GET("/rank", rankHandler.RankSymbols)
	}

	serveStatic(router, d.StaticDir, d.Log)
	return router
}

// serveStatic serves a single page app from dir when it exists. Unknown
// /api paths still get a JSON 404.
func serveStatic(router *gin.Engine, dir string, log logrus.FieldLogger) {
	notFound := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "NOT_FOUND", Message: "Not found"},
		})
	}
	if dir == "" {
		router.NoRoute(notFound)
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.WithField("dir", dir).Info("static directory not found, skipping static file serving")
		router.NoRoute(notFound)
		return
	}

	router.Static("/assets", filepath.Join(dir, "assets"))
	router.StaticFile("/favicon.ico", filepath.Join(dir, "favicon.ico"))
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			notFound(c)
			return
		}
		c.File(filepath.Join(dir, "index.html"))
	})
	log.WithField("dir", dir).Info("serving static files")
}
