package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"papertrader/internal/clock"
	"papertrader/internal/dao"
	"papertrader/internal/database"
	"papertrader/internal/engines/trading"
	"papertrader/internal/models"
	"papertrader/internal/simulation"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, name string, capital float64) {
	t.Helper()
	require.NoError(t, db.Create(&models.Account{
		Name:           name,
		InitialCapital: capital,
		Cash:           capital,
	}).Error)
}

type stubQuoteService struct {
	prices map[string]float64
}

func (s stubQuoteService) GetQuote(ctx context.Context, symbol string) models.Quote {
	if price, ok := s.prices[symbol]; ok {
		return models.Quote{Symbol: symbol, Price: price, Valid: true}
	}
	return models.Quote{Symbol: symbol, Error: "unknown symbol"}
}

func (s stubQuoteService) GetQuotes(ctx context.Context, symbols []string) map[string]models.Quote {
	quotes := make(map[string]models.Quote, len(symbols))
	for _, symbol := range symbols {
		quotes[symbol] = s.GetQuote(context.Background(), symbol)
	}
	return quotes
}

func frictionlessLoader() *simulation.Loader {
	cfg := simulation.DefaultConfig()
	cfg.Slippage.Enabled = false
	cfg.Commission.Enabled = false
	cfg.PartialFill.Enabled = false
	cfg.Latency.Enabled = false
	loader := simulation.NewLoader("unused.yaml")
	loader.Set(cfg)
	return loader
}

func newTestExecution(t *testing.T, db *gorm.DB, quotes QuoteService) *ExecutionService {
	t.Helper()
	clk := clock.NewFixed(time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC))
	ledger := trading.NewLedger(db, nil)
	calc := simulation.NewSeededFillCalculator(1)
	return NewExecutionService(db, ledger, calc, frictionlessLoader(), quotes, clk, nil)
}

func TestExecuteBuyWithQuotedPrice(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 10000)
	svc := newTestExecution(t, db, stubQuoteService{prices: map[string]float64{"BTCUSDT": 100}})

	result, err := svc.Execute(context.Background(), ExecuteRequest{
		Account: "alice",
		Symbol:  "btcusdt",
		Side:    models.OrderSideBuy,
		Qty:     10,
	})
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", result.Trade.Symbol)
	assert.Equal(t, 100.0, result.Fill.ExecPrice)
	assert.Equal(t, 9000.0, result.Cash)
}

func TestExecuteUsesCallerPrice(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 10000)
	// Quote service would say 100; the caller's price wins
	svc := newTestExecution(t, db, stubQuoteService{prices: map[string]float64{"BTCUSDT": 100}})

	result, err := svc.Execute(context.Background(), ExecuteRequest{
		Account: "alice",
		Symbol:  "BTCUSDT",
		Side:    models.OrderSideBuy,
		Qty:     10,
		Price:   50,
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, result.Fill.ExecPrice)
	assert.Equal(t, 9500.0, result.Cash)
}

func TestExecuteNoPriceAvailable(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 10000)
	svc := newTestExecution(t, db, stubQuoteService{})

	_, err := svc.Execute(context.Background(), ExecuteRequest{
		Account: "alice",
		Symbol:  "DOGEUSDT",
		Side:    models.OrderSideBuy,
		Qty:     10,
	})
	assert.ErrorIs(t, err, trading.ErrNoPriceAvailable)
}

func TestExecuteNoQuoteServiceConfigured(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 10000)
	svc := newTestExecution(t, db, nil)

	_, err := svc.Execute(context.Background(), ExecuteRequest{
		Account: "alice",
		Symbol:  "BTCUSDT",
		Side:    models.OrderSideBuy,
		Qty:     10,
	})
	assert.ErrorIs(t, err, trading.ErrNoPriceAvailable)
}

func TestExecuteValidation(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 10000)
	svc := newTestExecution(t, db, nil)
	ctx := context.Background()

	cases := []ExecuteRequest{
		{Account: "alice", Symbol: "", Side: models.OrderSideBuy, Qty: 1, Price: 1},
		{Account: "", Symbol: "BTCUSDT", Side: models.OrderSideBuy, Qty: 1, Price: 1},
		{Account: "alice", Symbol: "BTCUSDT", Side: models.OrderSideBuy, Qty: 0, Price: 1},
		{Account: "alice", Symbol: "BTCUSDT", Side: models.OrderSideBuy, Qty: -5, Price: 1},
		{Account: "alice", Symbol: "BTCUSDT", Side: "short", Qty: 1, Price: 1},
		{Account: "alice", Symbol: "BTCUSDT", Side: models.OrderSideBuy, Qty: 1, Price: -1},
	}
	for _, req := range cases {
		_, err := svc.Execute(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidOrder, "%+v", req)
	}
}

func TestExecuteExplicitTimeDrivesEquityDate(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 10000)
	svc := newTestExecution(t, db, nil)

	at := time.Date(2023, 7, 15, 9, 0, 0, 0, time.UTC)
	result, err := svc.Execute(context.Background(), ExecuteRequest{
		Account: "alice",
		Symbol:  "BTCUSDT",
		Side:    models.OrderSideBuy,
		Qty:     10,
		Price:   100,
		Time:    &at,
	})
	require.NoError(t, err)
	assert.True(t, result.Trade.Time.Equal(at))

	point, err := dao.NewEquityDAO(db).Get("alice", "2023-07-15")
	require.NoError(t, err)
	assert.Equal(t, 10000.0, point.Equity)
}

func TestExecuteDefaultsSource(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 10000)
	svc := newTestExecution(t, db, nil)

	_, err := svc.Execute(context.Background(), ExecuteRequest{
		Account: "alice",
		Symbol:  "BTCUSDT",
		Side:    models.OrderSideBuy,
		Qty:     1,
		Price:   100,
	})
	require.NoError(t, err)

	orders, err := dao.NewOrderDAO(db).ListByAccount("alice", 1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "web", orders[0].Source)
}

func TestExecuteConcurrentSellsNeverOversell(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 10000)
	svc := newTestExecution(t, db, nil)
	ctx := context.Background()

	_, err := svc.Execute(ctx, ExecuteRequest{
		Account: "alice", Symbol: "BTCUSDT", Side: models.OrderSideBuy, Qty: 10, Price: 100,
	})
	require.NoError(t, err)

	results := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, err := svc.Execute(ctx, ExecuteRequest{
				Account: "alice", Symbol: "BTCUSDT", Side: models.OrderSideSell, Qty: 1, Price: 100,
			})
			results <- err
		}()
	}

	succeeded := 0
	for i := 0; i < 20; i++ {
		if err := <-results; err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, trading.ErrInsufficientPosition)
		}
	}
	assert.Equal(t, 10, succeeded)

	_, err = dao.NewPositionDAO(db).Get("alice", "BTCUSDT")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
