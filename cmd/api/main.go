package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"multiasset-backtest/internal/api"
	"multiasset-backtest/internal/config"
	"multiasset-backtest/internal/data"
	"multiasset-backtest/internal/logging"
	"multiasset-backtest/internal/store"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	env := config.FromEnv()

	log, err := logging.New(logging.Config{
		Level:  env.LogLevel,
		Format: env.LogFormat,
		File:   os.Getenv("LOG_FILE"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	if wd, err := os.Getwd(); err == nil {
		log.WithField("dir", wd).Info("working directory")
	}

	// Set up Gin router
	if env.APIEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := api.Deps{
		Log: log,
		DataOptions: data.Options{
			CSVDir:   env.CSVDir,
			StoreDir: env.StoreDir,
			Cache:    true,
			Alpaca: data.AlpacaConfig{
				APIKey:    env.AlpacaAPIKey,
				APISecret: env.AlpacaAPISecret,
				BaseURL:   env.AlpacaDataURL,
			},
		},
		PresetDir:    filepath.Join(env.ConfigDir, "presets"),
		UniversePath: data.DefaultUniversePath(),
		StaticDir:    os.Getenv("STATIC_DIR"),
	}
	if deps.StaticDir == "" {
		deps.StaticDir = "./web/dist"
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		deps.CORSOrigins = strings.Split(origins, ",")
	}

	if env.ResultsDB != "" && env.ResultsDB != "none" {
		runs, err := store.NewSQLiteStore(env.ResultsDB)
		if err != nil {
			log.WithError(err).Fatal("failed to open results database")
		}
		defer runs.Close()
		deps.Runs = runs
		log.WithField("db", env.ResultsDB).Info("persisting runs")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", env.APIPort),
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("addr", srv.Addr).Info("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
