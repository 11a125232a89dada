package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"multiasset-backtest/internal/api/models"
	"multiasset-backtest/internal/config"
	"multiasset-backtest/internal/data"
)

var providerDescriptions = map[string]models.ProviderInfo{
	"alpaca":  {Name: "Alpaca Market Data", Description: "Historical bars from the Alpaca data API (needs api key and secret)"},
	"csv":     {Name: "CSV files", Description: "One <SYMBOL>.csv file per instrument in the CSV directory"},
	"parquet": {Name: "Parquet store", Description: "Bars previously fetched into the local parquet store"},
}

// ProviderHandler lists data providers and the locally available symbols.
type ProviderHandler struct {
	opts         data.Options
	universePath string
	log          logrus.FieldLogger
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(opts data.Options, universePath string, log logrus.FieldLogger) *ProviderHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ProviderHandler{opts: opts, universePath: universePath, log: log.WithField("handler", "providers")}
}

// ListProviders handles GET /api/v1/providers
func (h *ProviderHandler) ListProviders(c *gin.Context) {
	names := data.Names()
	providers := make([]models.ProviderInfo, 0, len(names))
	for _, name := range names {
		info := providerDescriptions[name]
		info.ID = name
		switch name {
		case "alpaca":
			info.Configured = h.opts.Alpaca.APIKey != "" && h.opts.Alpaca.APISecret != ""
		case "csv":
			info.Configured = h.opts.CSVDir != ""
		case "parquet":
			info.Configured = h.opts.StoreDir != ""
		}
		providers = append(providers, info)
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}

// ListSymbols handles GET /api/v1/symbols
//
// Symbols come from the universe file first, then from any parquet files
// that are not listed there yet.
func (h *ProviderHandler) ListSymbols(c *gin.Context) {
	interval := c.DefaultQuery("interval", config.DefaultInterval)
	if _, err := data.ParseInterval(interval); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_PARAM", err.Error(), nil)
		return
	}

	bySymbol := make(map[string]models.SymbolInfo)
	var updatedAt string
	if h.universePath != "" {
		u, err := data.LoadUniverse(h.universePath)
		switch {
		case err == nil:
			updatedAt = u.UpdatedAt
			for _, inst := range u.Instruments {
				bySymbol[inst.Symbol] = models.SymbolInfo{
					Symbol:   inst.Symbol,
					Name:     inst.Name,
					Exchange: inst.Exchange,
					Provider: inst.Provider,
					Interval: inst.Interval,
					FirstBar: inst.FirstBar,
					LastBar:  inst.LastBar,
				}
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			h.log.WithError(err).Warn("failed to load universe")
		}
	}

	if h.opts.StoreDir != "" {
		stored, err := data.NewParquetStore(h.opts.StoreDir).ListSymbols(interval)
		if err != nil {
			h.log.WithError(err).Warn("failed to list parquet store")
		}
		for _, sym := range stored {
			if _, ok := bySymbol[sym]; !ok {
				bySymbol[sym] = models.SymbolInfo{Symbol: sym, Provider: "parquet", Interval: interval}
			}
		}
	}

	symbols := make([]models.SymbolInfo, 0, len(bySymbol))
	for _, s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i].Symbol < symbols[j].Symbol })

	c.JSON(http.StatusOK, gin.H{
		"symbols":    symbols,
		"updated_at": updatedAt,
		"count":      len(symbols),
	})
}
