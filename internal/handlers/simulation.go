package handlers

import (
	"net/http"

	"papertrader/internal/simulation"

	"github.com/gin-gonic/gin"
)

// SimulationHandler exposes the active fill simulation settings
type SimulationHandler struct {
	loader *simulation.Loader
}

// NewSimulationHandler creates a new simulation settings handler
func NewSimulationHandler(loader *simulation.Loader) *SimulationHandler {
	return &SimulationHandler{loader: loader}
}

// GetConfig returns the settings currently applied to new orders.
func (sh *SimulationHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"path":   sh.loader.Path(),
		"config": sh.loader.Get(),
	})
}

// ReloadConfig re-reads the settings file and applies it immediately.
func (sh *SimulationHandler) ReloadConfig(c *gin.Context) {
	cfg := sh.loader.Reload()
	c.JSON(http.StatusOK, gin.H{
		"path":   sh.loader.Path(),
		"config": cfg,
	})
}
