package handlers

import (
	"net/http"

	"papertrader/internal/services"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles account lifecycle requests
type AccountHandler struct {
	accounts       *services.AccountService
	defaultCapital float64
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts *services.AccountService, defaultCapital float64) *AccountHandler {
	return &AccountHandler{accounts: accounts, defaultCapital: defaultCapital}
}

type createAccountRequest struct {
	Name    string  `json:"name" binding:"required"`
	Capital float64 `json:"capital"`
}

// CreateAccount opens a new account with the given starting capital.
func (ah *AccountHandler) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Capital == 0 {
		req.Capital = ah.defaultCapital
	}

	account, err := ah.accounts.Create(req.Name, req.Capital)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

// ListAccounts returns every account with derived portfolio numbers.
func (ah *AccountHandler) ListAccounts(c *gin.Context) {
	summaries, err := ah.accounts.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accounts": summaries,
		"count":    len(summaries),
	})
}

// GetAccount returns one account with derived portfolio numbers.
func (ah *AccountHandler) GetAccount(c *gin.Context) {
	summary, err := ah.accounts.Get(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ResetAccount wipes all trading state and restores the initial capital.
func (ah *AccountHandler) ResetAccount(c *gin.Context) {
	account, err := ah.accounts.Reset(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// DeleteAccount removes the account and everything attached to it.
func (ah *AccountHandler) DeleteAccount(c *gin.Context) {
	if err := ah.accounts.Delete(c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("name")})
}

// GetCostStats returns cumulative commission, slippage and realized PnL.
func (ah *AccountHandler) GetCostStats(c *gin.Context) {
	stats, err := ah.accounts.CostStats(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
