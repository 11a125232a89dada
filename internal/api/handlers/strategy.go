package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"multiasset-backtest/internal/api/models"
	"multiasset-backtest/internal/strategy"
)

// StrategyHandler handles strategy-related requests
type StrategyHandler struct {
	registry *strategy.Registry
}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler(registry *strategy.Registry) *StrategyHandler {
	if registry == nil {
		registry = strategy.DefaultRegistry()
	}
	return &StrategyHandler{registry: registry}
}

// ListStrategies handles GET /api/v1/strategies
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	infos := h.registry.List()
	strategies := make([]models.StrategyInfo, 0, len(infos))
	for _, info := range infos {
		params := make([]models.ParameterInfo, 0, len(info.Parameters))
		for _, p := range info.Parameters {
			params = append(params, models.ParameterInfo{
				Name:        p.Name,
				Type:        p.Type,
				Description: p.Description,
				Default:     p.Default,
			})
		}
		strategies = append(strategies, models.StrategyInfo{
			Name:        info.Name,
			Description: info.Description,
			Parameters:  params,
			Lookahead:   info.Lookahead,
		})
	}
	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}
