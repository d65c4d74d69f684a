package services

import (
	"errors"
	"fmt"
	"math"

	"papertrader/internal/dao"
	"papertrader/internal/engines/trading"
	"papertrader/internal/models"

	"gorm.io/gorm"
)

const (
	tradingDaysPerYear = 252
	riskFreeRate       = 0.02
)

// EquityStats summarizes the equity curve of one account.
type EquityStats struct {
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
	Days               int     `json:"days"`
	StartEquity        float64 `json:"start_equity"`
	EndEquity          float64 `json:"end_equity"`
	TotalReturnPct     float64 `json:"total_return_pct"`
	SharpeRatio        float64 `json:"sharpe_ratio"`
	MaxDrawdownPct     float64 `json:"max_drawdown_pct"`
	DrawdownPeakDate   string  `json:"drawdown_peak_date,omitempty"`
	DrawdownTroughDate string  `json:"drawdown_trough_date,omitempty"`
	CurrentDrawdownPct float64 `json:"current_drawdown_pct"`
}

// PositionAnalysis is one holding's share of the portfolio, valued at the
// cached mark with average cost as fallback.
type PositionAnalysis struct {
	Symbol        string  `json:"symbol"`
	Qty           int64   `json:"qty"`
	AvgPrice      float64 `json:"avg_price"`
	MarkPrice     float64 `json:"mark_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
	WeightPct     float64 `json:"weight_pct"` // share of total equity
}

// TradeStats summarizes closed trades. Only sells realize PnL under average
// cost accounting, so the counts cover sell executions.
type TradeStats struct {
	TotalTrades      int     `json:"total_trades"`
	ClosedTrades     int     `json:"closed_trades"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	WinRate          float64 `json:"win_rate"`
	ProfitFactor     float64 `json:"profit_factor"`
	AvgWin           float64 `json:"avg_win"`
	AvgLoss          float64 `json:"avg_loss"`
	LargestWin       float64 `json:"largest_win"`
	LargestLoss      float64 `json:"largest_loss"`
	TotalRealizedPnl float64 `json:"total_realized_pnl"`
}

// Report bundles every analytics view for one account.
type Report struct {
	Account   string             `json:"account"`
	Equity    *EquityStats       `json:"equity"`
	Trades    *TradeStats        `json:"trades"`
	Positions []PositionAnalysis `json:"positions"`
	Costs     *dao.CostStats     `json:"costs"`
}

// AnalyticsService computes performance statistics from the equity history
// and the trade audit trail. Read-only; never touches account state.
type AnalyticsService struct {
	accountDAO   dao.AccountDAOInterface
	equityDAO    dao.EquityDAOInterface
	tradeDAO     dao.TradeDAOInterface
	positionDAO  dao.PositionDAOInterface
	watchlistDAO dao.WatchlistDAOInterface
}

// NewAnalyticsService creates an analytics service over the given database.
func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{
		accountDAO:   dao.NewAccountDAO(db),
		equityDAO:    dao.NewEquityDAO(db),
		tradeDAO:     dao.NewTradeDAO(db),
		positionDAO:  dao.NewPositionDAO(db),
		watchlistDAO: dao.NewWatchlistDAO(db),
	}
}

// EquityStats computes return, Sharpe ratio and max drawdown from the daily
// equity series. Needs at least two points for the ratio figures.
func (s *AnalyticsService) EquityStats(accountName string) (*EquityStats, error) {
	if err := s.checkAccount(accountName); err != nil {
		return nil, err
	}
	points, err := s.equityDAO.ListByAccount(accountName)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return &EquityStats{}, nil
	}

	first, last := points[0], points[len(points)-1]
	stats := &EquityStats{
		StartDate:   first.Date,
		EndDate:     last.Date,
		Days:        len(points),
		StartEquity: first.Equity,
		EndEquity:   last.Equity,
	}
	if first.Equity > 0 {
		stats.TotalReturnPct = round2((last.Equity/first.Equity - 1) * 100)
	}
	stats.SharpeRatio = round2(sharpeRatio(points))

	dd := measureDrawdown(points)
	stats.MaxDrawdownPct = round2(dd.maxPct)
	stats.DrawdownPeakDate = dd.peakDate
	stats.DrawdownTroughDate = dd.troughDate
	stats.CurrentDrawdownPct = round2(dd.currentPct)
	return stats, nil
}

// PositionAnalysis breaks the portfolio down by holding, with each position's
// weight against total equity.
func (s *AnalyticsService) PositionAnalysis(accountName string) ([]PositionAnalysis, error) {
	account, err := s.accountDAO.Get(accountName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", trading.ErrAccountNotFound, accountName)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	positions, err := s.positionDAO.ListByAccount(accountName)
	if err != nil {
		return nil, err
	}
	marks, err := s.watchlistDAO.LastPrices()
	if err != nil {
		return nil, err
	}

	analyses := make([]PositionAnalysis, 0, len(positions))
	totalValue := 0.0
	for _, pos := range positions {
		mark, ok := marks[pos.Symbol]
		if !ok {
			mark = pos.AvgPrice
		}
		value := float64(pos.Qty) * mark
		totalValue += value
		analyses = append(analyses, PositionAnalysis{
			Symbol:        pos.Symbol,
			Qty:           pos.Qty,
			AvgPrice:      pos.AvgPrice,
			MarkPrice:     mark,
			MarketValue:   round2(value),
			UnrealizedPnl: round2(float64(pos.Qty) * (mark - pos.AvgPrice)),
		})
	}

	equity := account.Cash + totalValue
	if equity > 0 {
		for i := range analyses {
			analyses[i].WeightPct = round2(analyses[i].MarketValue / equity * 100)
		}
	}
	return analyses, nil
}

// TradeStats computes win rate and profit factor from realized PnL.
func (s *AnalyticsService) TradeStats(accountName string) (*TradeStats, error) {
	if err := s.checkAccount(accountName); err != nil {
		return nil, err
	}
	trades, err := s.tradeDAO.ListByAccountAsc(accountName)
	if err != nil {
		return nil, err
	}

	stats := &TradeStats{TotalTrades: len(trades)}
	grossProfit, grossLoss := 0.0, 0.0
	for _, trade := range trades {
		if trade.Side != models.OrderSideSell {
			continue
		}
		stats.ClosedTrades++
		stats.TotalRealizedPnl += trade.RealizedPnl
		if trade.RealizedPnl >= 0 {
			stats.Wins++
			grossProfit += trade.RealizedPnl
			stats.LargestWin = math.Max(stats.LargestWin, trade.RealizedPnl)
		} else {
			stats.Losses++
			grossLoss += -trade.RealizedPnl
			stats.LargestLoss = math.Min(stats.LargestLoss, trade.RealizedPnl)
		}
	}

	if stats.ClosedTrades > 0 {
		stats.WinRate = round2(float64(stats.Wins) / float64(stats.ClosedTrades) * 100)
	}
	if stats.Wins > 0 {
		stats.AvgWin = round2(grossProfit / float64(stats.Wins))
	}
	if stats.Losses > 0 {
		stats.AvgLoss = round2(-grossLoss / float64(stats.Losses))
	}
	// Undefined without losses; zero keeps the JSON encodable.
	if grossLoss > 0 {
		stats.ProfitFactor = round2(grossProfit / grossLoss)
	}
	stats.TotalRealizedPnl = round2(stats.TotalRealizedPnl)
	stats.LargestWin = round2(stats.LargestWin)
	stats.LargestLoss = round2(stats.LargestLoss)
	return stats, nil
}

// Report assembles the full analytics view for one account.
func (s *AnalyticsService) Report(accountName string) (*Report, error) {
	equity, err := s.EquityStats(accountName)
	if err != nil {
		return nil, err
	}
	trades, err := s.TradeStats(accountName)
	if err != nil {
		return nil, err
	}
	positions, err := s.PositionAnalysis(accountName)
	if err != nil {
		return nil, err
	}
	costs, err := s.tradeDAO.CostStats(accountName)
	if err != nil {
		return nil, err
	}
	return &Report{
		Account:   accountName,
		Equity:    equity,
		Trades:    trades,
		Positions: positions,
		Costs:     costs,
	}, nil
}

func (s *AnalyticsService) checkAccount(accountName string) error {
	if _, err := s.accountDAO.Get(accountName); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", trading.ErrAccountNotFound, accountName)
		}
		return fmt.Errorf("failed to get account: %w", err)
	}
	return nil
}

// sharpeRatio annualizes daily equity returns against a 2% risk free rate.
// Zero when the series is too short or has no variance.
func sharpeRatio(points []models.EquityPoint) float64 {
	if len(points) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		if points[i-1].Equity <= 0 {
			continue
		}
		returns = append(returns, points[i].Equity/points[i-1].Equity-1)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}

	dailyRf := riskFreeRate / tradingDaysPerYear
	return (mean - dailyRf) / std * math.Sqrt(tradingDaysPerYear)
}

type drawdown struct {
	maxPct     float64
	peakDate   string
	troughDate string
	currentPct float64
}

// measureDrawdown finds the largest peak to trough decline, the dates it ran
// between, and the decline still open at the end of the series. Percentages
// are positive.
func measureDrawdown(points []models.EquityPoint) drawdown {
	var dd drawdown
	peak := 0.0
	peakDate := ""
	for _, p := range points {
		if p.Equity > peak {
			peak = p.Equity
			peakDate = p.Date
		}
		if peak <= 0 {
			continue
		}
		pct := (peak - p.Equity) / peak * 100
		if pct > dd.maxPct {
			dd.maxPct = pct
			dd.peakDate = peakDate
			dd.troughDate = p.Date
		}
		dd.currentPct = pct
	}
	return dd
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
