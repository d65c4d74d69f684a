package handlers

import (
	"net/http"

	"papertrader/internal/services"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler handles performance reporting requests
type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// GetReport returns the full performance report for an account.
func (ah *AnalyticsHandler) GetReport(c *gin.Context) {
	report, err := ah.analytics.Report(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetEquityStats returns return, Sharpe ratio and max drawdown.
func (ah *AnalyticsHandler) GetEquityStats(c *gin.Context) {
	stats, err := ah.analytics.EquityStats(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetTradeStats returns win rate and profit factor figures.
func (ah *AnalyticsHandler) GetTradeStats(c *gin.Context) {
	stats, err := ah.analytics.TradeStats(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
