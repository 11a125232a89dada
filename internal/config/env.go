package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Env holds settings that come from the process environment rather than YAML.
type Env struct {
	AlpacaAPIKey    string
	AlpacaAPISecret string
	AlpacaDataURL   string
	LogLevel        string
	LogFormat       string
	APIPort         string
	APIEnv          string
	ConfigDir       string
	ResultsDB       string
	CSVDir          string
	StoreDir        string
}

// LoadDotEnv loads .env files if present. Missing files are not an error;
// variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func FromEnv() Env {
	return Env{
		AlpacaAPIKey:    os.Getenv("ALPACA_API_KEY"),
		AlpacaAPISecret: os.Getenv("ALPACA_API_SECRET"),
		AlpacaDataURL:   os.Getenv("ALPACA_DATA_URL"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "text"),
		APIPort:         getenv("API_PORT", "8080"),
		APIEnv:          getenv("API_ENV", "development"),
		ConfigDir:       getenv("CONFIG_DIR", "./configs"),
		ResultsDB:       getenv("RESULTS_DB", "./data/results.db"),
		CSVDir:          getenv("CSV_DIR", "./data/csv"),
		StoreDir:        getenv("STORE_DIR", "./data/bars"),
	}
}

// ApplyEnv lets the environment override logging and fill empty data dirs.
func (c *Config) ApplyEnv(env Env) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if c.Log.Level == "" {
		c.Log.Level = env.LogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = env.LogFormat
	}
	if c.Data.CSVDir == "" {
		c.Data.CSVDir = env.CSVDir
	}
	if c.Data.StoreDir == "" {
		c.Data.StoreDir = env.StoreDir
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
