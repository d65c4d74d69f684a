package main

import (
	"log"
	"time"

	"papertrader/internal/clock"
	"papertrader/internal/config"
	"papertrader/internal/database"
	"papertrader/internal/engines/trading"
	"papertrader/internal/handlers"
	"papertrader/internal/observability"
	"papertrader/internal/services"
	"papertrader/internal/simulation"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database and run migrations
	db, err := database.Connect(cfg.DatabaseType, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Simulation settings with hot reload
	loader := simulation.NewLoader(cfg.SimulationConfig)
	loader.Get()
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	if err := loader.Watch(stopWatch); err != nil {
		log.Printf("Config watch disabled: %v", err)
	}

	// Initialize services
	clk := clock.Real{}
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	calculator := simulation.NewSeededFillCalculator(time.Now().UnixNano())
	quoteService := services.NewBinanceQuoteService()
	ledger := trading.NewLedger(db, quoteService)
	executionService := services.NewExecutionService(db, ledger, calculator, loader, quoteService, clk, metrics)
	accountService := services.NewAccountService(db, clk)
	portfolioService := services.NewPortfolioService(db, ledger, quoteService, clk, metrics)
	analyticsService := services.NewAnalyticsService(db)

	if err := accountService.EnsureDefault("default", cfg.DefaultCapital); err != nil {
		log.Fatalf("Failed to ensure default account: %v", err)
	}

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// CORS middleware for development
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	orderHandler := handlers.NewOrderHandler(executionService, portfolioService)
	accountHandler := handlers.NewAccountHandler(accountService, cfg.DefaultCapital)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
	simulationHandler := handlers.NewSimulationHandler(loader)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes group
	api := r.Group("/api/v1")
	{
		api.GET("/health", healthHandler.Health)

		api.POST("/orders", orderHandler.PlaceOrder)
		api.GET("/orders", orderHandler.GetOrders)
		api.GET("/trades", orderHandler.GetTrades)

		accounts := api.Group("/accounts")
		{
			accounts.POST("", accountHandler.CreateAccount)
			accounts.GET("", accountHandler.ListAccounts)
			accounts.GET("/:name", accountHandler.GetAccount)
			accounts.POST("/:name/reset", accountHandler.ResetAccount)
			accounts.DELETE("/:name", accountHandler.DeleteAccount)
			accounts.GET("/:name/costs", accountHandler.GetCostStats)
			accounts.GET("/:name/report", analyticsHandler.GetReport)
			accounts.GET("/:name/equity-stats", analyticsHandler.GetEquityStats)
			accounts.GET("/:name/trade-stats", analyticsHandler.GetTradeStats)
		}

		portfolio := api.Group("/portfolio")
		{
			portfolio.GET("/positions", portfolioHandler.GetPositions)
			portfolio.GET("/equity", portfolioHandler.GetEquityHistory)
			portfolio.POST("/equity/snapshot", portfolioHandler.SnapshotEquity)
		}

		watchlist := api.Group("/watchlist")
		{
			watchlist.GET("", portfolioHandler.GetWatchlist)
			watchlist.POST("", portfolioHandler.WatchSymbol)
			watchlist.DELETE("/:symbol", portfolioHandler.UnwatchSymbol)
			watchlist.POST("/refresh", portfolioHandler.RefreshWatchlist)
		}

		sim := api.Group("/simulation")
		{
			sim.GET("/config", simulationHandler.GetConfig)
			sim.POST("/config/reload", simulationHandler.ReloadConfig)
		}
	}

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
