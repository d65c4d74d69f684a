package handlers

import (
	"net/http"
	"strconv"

	"papertrader/internal/clock"
	"papertrader/internal/models"
	"papertrader/internal/services"

	"github.com/gin-gonic/gin"
)

// OrderHandler handles order placement and order/trade history requests
type OrderHandler struct {
	execution *services.ExecutionService
	portfolio *services.PortfolioService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(execution *services.ExecutionService, portfolio *services.PortfolioService) *OrderHandler {
	return &OrderHandler{execution: execution, portfolio: portfolio}
}

type placeOrderRequest struct {
	Account string  `json:"account"`
	Symbol  string  `json:"symbol" binding:"required"`
	Side    string  `json:"side" binding:"required"`
	Qty     int64   `json:"qty" binding:"required"`
	Price   float64 `json:"price"`
	Source  string  `json:"source"`
	Time    string  `json:"time"`
}

// PlaceOrder runs one order through the simulator and ledger.
func (oh *OrderHandler) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exec := services.ExecuteRequest{
		Account: req.Account,
		Symbol:  req.Symbol,
		Side:    models.OrderSide(req.Side),
		Qty:     req.Qty,
		Price:   req.Price,
		Source:  req.Source,
	}
	if exec.Account == "" {
		exec.Account = "default"
	}
	if req.Time != "" {
		t, err := clock.ParseISO(req.Time)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time: " + req.Time})
			return
		}
		exec.Time = &t
	}

	result, err := oh.execution.Execute(c.Request.Context(), exec)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetOrders returns recent orders for an account, newest first.
func (oh *OrderHandler) GetOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	orders, err := oh.portfolio.Orders(accountParam(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetTrades returns a page of the trade audit trail, newest first.
func (oh *OrderHandler) GetTrades(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	trades, total, err := oh.portfolio.Trades(accountParam(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trades": trades,
		"count":  len(trades),
		"total":  total,
	})
}
