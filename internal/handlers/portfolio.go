package handlers

import (
	"net/http"

	"papertrader/internal/services"

	"github.com/gin-gonic/gin"
)

// PortfolioHandler handles position, equity and watchlist requests
type PortfolioHandler struct {
	portfolio *services.PortfolioService
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(portfolio *services.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio}
}

// GetPositions returns the account's holdings. realtime=true refreshes
// quotes from the exchange instead of using the cache.
func (ph *PortfolioHandler) GetPositions(c *gin.Context) {
	realtime := c.DefaultQuery("realtime", "false") == "true"

	positions, err := ph.portfolio.Positions(c.Request.Context(), accountParam(c), realtime)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"positions": positions,
		"count":     len(positions),
	})
}

// GetEquityHistory returns the daily equity series in date order.
func (ph *PortfolioHandler) GetEquityHistory(c *gin.Context) {
	points, err := ph.portfolio.EquityHistory(accountParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"equity": points,
		"count":  len(points),
	})
}

// SnapshotEquity writes today's equity point for every account.
func (ph *PortfolioHandler) SnapshotEquity(c *gin.Context) {
	written, err := ph.portfolio.SnapshotAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": written})
}

// GetWatchlist returns the cached quote rows.
func (ph *PortfolioHandler) GetWatchlist(c *gin.Context) {
	items, err := ph.portfolio.Watchlist()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"watchlist": items,
		"count":     len(items),
	})
}

type watchSymbolRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

// WatchSymbol adds a symbol to the quote cache and primes its price.
func (ph *PortfolioHandler) WatchSymbol(c *gin.Context) {
	var req watchSymbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := ph.portfolio.WatchSymbol(c.Request.Context(), req.Symbol)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// UnwatchSymbol removes a symbol from the quote cache.
func (ph *PortfolioHandler) UnwatchSymbol(c *gin.Context) {
	removed, err := ph.portfolio.UnwatchSymbol(c.Param("symbol"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "symbol not watched"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": c.Param("symbol")})
}

// RefreshWatchlist re-fetches quotes for every cached symbol.
func (ph *PortfolioHandler) RefreshWatchlist(c *gin.Context) {
	if err := ph.portfolio.RefreshWatchlist(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	items, err := ph.portfolio.Watchlist()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"watchlist": items,
		"count":     len(items),
	})
}
