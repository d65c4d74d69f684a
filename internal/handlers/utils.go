package handlers

import (
	"errors"
	"net/http"

	"papertrader/internal/engines/trading"
	"papertrader/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to HTTP status codes. Validation and
// balance failures are client errors; anything unexpected is a 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidOrder),
		errors.Is(err, trading.ErrInsufficientFunds),
		errors.Is(err, trading.ErrInsufficientPosition),
		errors.Is(err, trading.ErrNoPriceAvailable):
		status = http.StatusBadRequest
	case errors.Is(err, trading.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrAccountExists):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// accountParam reads the account from the query string, defaulting to the
// single-user account name.
func accountParam(c *gin.Context) string {
	return c.DefaultQuery("account", "default")
}
