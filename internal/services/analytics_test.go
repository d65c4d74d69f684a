package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"papertrader/internal/dao"
	"papertrader/internal/engines/trading"
	"papertrader/internal/models"
)

func seedEquity(t *testing.T, db *gorm.DB, account string, values map[string]float64) {
	t.Helper()
	equityDAO := dao.NewEquityDAO(db)
	for date, equity := range values {
		require.NoError(t, equityDAO.UpsertWithTx(db, &models.EquityPoint{
			AccountName: account,
			Date:        date,
			Equity:      equity,
		}))
	}
}

func seedTrade(t *testing.T, db *gorm.DB, account string, side models.OrderSide, realizedPnl float64) {
	t.Helper()
	require.NoError(t, db.Create(&models.Trade{
		AccountName: account,
		Symbol:      "BTCUSDT",
		Side:        side,
		Qty:         1,
		Price:       100,
		Value:       100,
		Time:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		RealizedPnl: realizedPnl,
	}).Error)
}

func TestEquityStatsReturnAndDrawdown(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 100)
	seedEquity(t, db, "alice", map[string]float64{
		"2024-03-01": 100,
		"2024-03-02": 120,
		"2024-03-03": 90,
		"2024-03-04": 110,
	})

	stats, err := NewAnalyticsService(db).EquityStats("alice")
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01", stats.StartDate)
	assert.Equal(t, "2024-03-04", stats.EndDate)
	assert.Equal(t, 4, stats.Days)
	assert.Equal(t, 10.0, stats.TotalReturnPct)
	// Peak 120 to trough 90
	assert.Equal(t, 25.0, stats.MaxDrawdownPct)
	assert.Equal(t, "2024-03-02", stats.DrawdownPeakDate)
	assert.Equal(t, "2024-03-03", stats.DrawdownTroughDate)
	// Still 8.33% below the 120 peak at the end of the series
	assert.Equal(t, 8.33, stats.CurrentDrawdownPct)
}

func TestEquityStatsFlatSeries(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 100)
	seedEquity(t, db, "alice", map[string]float64{
		"2024-03-01": 100,
		"2024-03-02": 100,
		"2024-03-03": 100,
	})

	stats, err := NewAnalyticsService(db).EquityStats("alice")
	require.NoError(t, err)

	assert.Equal(t, 0.0, stats.TotalReturnPct)
	assert.Equal(t, 0.0, stats.SharpeRatio)
	assert.Equal(t, 0.0, stats.MaxDrawdownPct)
}

func TestEquityStatsEmptySeries(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 100)

	stats, err := NewAnalyticsService(db).EquityStats("alice")
	require.NoError(t, err)
	assert.Equal(t, &EquityStats{}, stats)
}

func TestEquityStatsUnknownAccount(t *testing.T) {
	db := testDB(t)

	_, err := NewAnalyticsService(db).EquityStats("nobody")
	assert.ErrorIs(t, err, trading.ErrAccountNotFound)
}

func TestTradeStats(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 100)
	// Buys carry no realized PnL and are not closed trades
	seedTrade(t, db, "alice", models.OrderSideBuy, 0)
	seedTrade(t, db, "alice", models.OrderSideBuy, 0)
	seedTrade(t, db, "alice", models.OrderSideSell, 50)
	seedTrade(t, db, "alice", models.OrderSideSell, 150)
	seedTrade(t, db, "alice", models.OrderSideSell, -100)

	stats, err := NewAnalyticsService(db).TradeStats("alice")
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalTrades)
	assert.Equal(t, 3, stats.ClosedTrades)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	assert.Equal(t, 66.67, stats.WinRate)
	assert.Equal(t, 2.0, stats.ProfitFactor) // 200 gross profit / 100 gross loss
	assert.Equal(t, 100.0, stats.AvgWin)
	assert.Equal(t, -100.0, stats.AvgLoss)
	assert.Equal(t, 150.0, stats.LargestWin)
	assert.Equal(t, -100.0, stats.LargestLoss)
	assert.Equal(t, 100.0, stats.TotalRealizedPnl)
}

func TestTradeStatsNoLosses(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 100)
	seedTrade(t, db, "alice", models.OrderSideSell, 50)

	stats, err := NewAnalyticsService(db).TradeStats("alice")
	require.NoError(t, err)

	assert.Equal(t, 100.0, stats.WinRate)
	// Undefined without losses; reported as zero
	assert.Equal(t, 0.0, stats.ProfitFactor)
}

func TestPositionAnalysisWeights(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 10000)
	ledger := trading.NewLedger(db, nil)
	ctx := context.Background()

	_, err := ledger.Apply(ctx, "alice", frictionlessFillForAccount("BTCUSDT", models.OrderSideBuy, 10, 100), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "test")
	require.NoError(t, err)
	_, err = ledger.Apply(ctx, "alice", frictionlessFillForAccount("ETHUSDT", models.OrderSideBuy, 5, 200), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "test")
	require.NoError(t, err)

	analyses, err := NewAnalyticsService(db).PositionAnalysis("alice")
	require.NoError(t, err)
	require.Len(t, analyses, 2)

	// Positions come back in symbol order; each worth 1000 of 10000 equity
	assert.Equal(t, "BTCUSDT", analyses[0].Symbol)
	assert.Equal(t, 1000.0, analyses[0].MarketValue)
	assert.Equal(t, 10.0, analyses[0].WeightPct)
	assert.Equal(t, 0.0, analyses[0].UnrealizedPnl)
	assert.Equal(t, "ETHUSDT", analyses[1].Symbol)
	assert.Equal(t, 10.0, analyses[1].WeightPct)
}

func TestReportBundlesAllViews(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice", 100)
	seedEquity(t, db, "alice", map[string]float64{"2024-03-01": 100})
	seedTrade(t, db, "alice", models.OrderSideSell, 25)

	report, err := NewAnalyticsService(db).Report("alice")
	require.NoError(t, err)

	assert.Equal(t, "alice", report.Account)
	require.NotNil(t, report.Equity)
	require.NotNil(t, report.Trades)
	require.NotNil(t, report.Costs)
	assert.Equal(t, 25.0, report.Costs.TotalRealizedPnl)
}
