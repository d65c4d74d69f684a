package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"papertrader/internal/clock"
	"papertrader/internal/dao"
	"papertrader/internal/engines/trading"
	"papertrader/internal/models"
	"papertrader/internal/observability"

	"gorm.io/gorm"
)

// PositionView is a position with its market value at the chosen mark.
type PositionView struct {
	models.Position
	MarkPrice     float64 `json:"mark_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
	PnlPct        float64 `json:"pnl_pct"`
	Stale         bool    `json:"stale"`
}

// PortfolioService provides read views over positions and equity history,
// plus the daily snapshot sweep across all accounts.
type PortfolioService struct {
	ledger       *trading.Ledger
	accountDAO   dao.AccountDAOInterface
	positionDAO  dao.PositionDAOInterface
	orderDAO     dao.OrderDAOInterface
	tradeDAO     dao.TradeDAOInterface
	equityDAO    dao.EquityDAOInterface
	watchlistDAO dao.WatchlistDAOInterface
	quotes       QuoteService
	clk          clock.Clock
	metrics      *observability.Metrics
}

// NewPortfolioService wires the portfolio read side. quotes and metrics may
// be nil; views then fall back to cached prices.
func NewPortfolioService(db *gorm.DB, ledger *trading.Ledger, quotes QuoteService, clk clock.Clock, metrics *observability.Metrics) *PortfolioService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &PortfolioService{
		ledger:       ledger,
		accountDAO:   dao.NewAccountDAO(db),
		positionDAO:  dao.NewPositionDAO(db),
		orderDAO:     dao.NewOrderDAO(db),
		tradeDAO:     dao.NewTradeDAO(db),
		equityDAO:    dao.NewEquityDAO(db),
		watchlistDAO: dao.NewWatchlistDAO(db),
		quotes:       quotes,
		clk:          clk,
		metrics:      metrics,
	}
}

// Positions returns the account's holdings valued at live quotes when
// realtime is set, otherwise at the cached watchlist prices. A position
// whose symbol has no usable price is marked stale and valued at cost.
func (s *PortfolioService) Positions(ctx context.Context, accountName string, realtime bool) ([]PositionView, error) {
	if _, err := s.accountDAO.Get(accountName); err != nil {
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
	if realtime && s.quotes != nil && len(positions) > 0 {
		symbols := make([]string, 0, len(positions))
		for _, pos := range positions {
			symbols = append(symbols, pos.Symbol)
		}
		now := s.clk.Now()
		for symbol, quote := range s.quotes.GetQuotes(ctx, symbols) {
			if quote.Valid {
				marks[symbol] = quote.Price
				if err := s.watchlistDAO.UpdateQuote(symbol, quote.Price, now); err != nil {
					log.Printf("Failed to cache quote: symbol=%s error=%v", symbol, err)
				}
			}
		}
	}

	views := make([]PositionView, 0, len(positions))
	for _, pos := range positions {
		view := PositionView{Position: pos}
		mark, ok := marks[pos.Symbol]
		if !ok {
			mark = pos.AvgPrice
			view.Stale = true
		}
		view.MarkPrice = mark
		view.MarketValue = round2(float64(pos.Qty) * mark)
		view.UnrealizedPnl = round2(float64(pos.Qty) * (mark - pos.AvgPrice))
		if pos.AvgPrice > 0 {
			view.PnlPct = round2((mark/pos.AvgPrice - 1) * 100)
		}
		views = append(views, view)
	}
	return views, nil
}

// Orders returns the most recent orders for the account, newest first.
func (s *PortfolioService) Orders(accountName string, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.orderDAO.ListByAccount(accountName, limit)
}

// Trades returns a page of the trade audit trail, newest first.
func (s *PortfolioService) Trades(accountName string, limit, offset int) ([]models.Trade, int64, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	trades, err := s.tradeDAO.ListByAccount(accountName, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.tradeDAO.Count(accountName)
	if err != nil {
		return nil, 0, err
	}
	return trades, total, nil
}

// EquityHistory returns the daily equity series in date order.
func (s *PortfolioService) EquityHistory(accountName string) ([]models.EquityPoint, error) {
	return s.equityDAO.ListByAccount(accountName)
}

// SnapshotAll writes today's equity point for every account, sharing one
// quote batch across the sweep. Errors on individual accounts are logged
// and the sweep continues.
func (s *PortfolioService) SnapshotAll(ctx context.Context) (int, error) {
	accounts, err := s.accountDAO.List()
	if err != nil {
		return 0, err
	}
	date := clock.EquityDate(s.clk.Now())

	var quotes map[string]models.Quote
	if s.quotes != nil {
		symbols, err := s.heldSymbols(accounts)
		if err != nil {
			return 0, err
		}
		if len(symbols) > 0 {
			quotes = s.quotes.GetQuotes(ctx, symbols)
			s.cacheQuotes(quotes)
		}
	}

	written := 0
	for _, account := range accounts {
		if _, err := s.ledger.SnapshotEquity(ctx, account.Name, date, quotes); err != nil {
			log.Printf("Equity snapshot failed: account=%s date=%s error=%v", account.Name, date, err)
			continue
		}
		written++
		if s.metrics != nil {
			s.metrics.EquitySnapshots.Inc()
		}
	}
	log.Printf("Equity snapshot sweep: date=%s accounts=%d written=%d", date, len(accounts), written)
	return written, nil
}

// Watchlist returns the cached quote rows.
func (s *PortfolioService) Watchlist() ([]models.WatchlistItem, error) {
	return s.watchlistDAO.List()
}

// WatchSymbol adds a symbol to the quote cache and primes its price.
func (s *PortfolioService) WatchSymbol(ctx context.Context, symbol string) (*models.WatchlistItem, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	}
	if err := s.watchlistDAO.Add(symbol, symbol); err != nil {
		return nil, err
	}
	s.refreshSymbol(ctx, symbol)

	items, err := s.watchlistDAO.List()
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Symbol == symbol {
			return &items[i], nil
		}
	}
	return nil, fmt.Errorf("watchlist item missing after add: %s", symbol)
}

// UnwatchSymbol removes a symbol from the quote cache.
func (s *PortfolioService) UnwatchSymbol(symbol string) (bool, error) {
	return s.watchlistDAO.Remove(NormalizeSymbol(symbol))
}

// RefreshWatchlist re-fetches quotes for every cached symbol.
func (s *PortfolioService) RefreshWatchlist(ctx context.Context) error {
	if s.quotes == nil {
		return nil
	}
	items, err := s.watchlistDAO.List()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	symbols := make([]string, 0, len(items))
	for _, item := range items {
		symbols = append(symbols, item.Symbol)
	}
	s.cacheQuotes(s.quotes.GetQuotes(ctx, symbols))
	return nil
}

func (s *PortfolioService) refreshSymbol(ctx context.Context, symbol string) {
	if s.quotes == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	s.cacheQuotes(map[string]models.Quote{symbol: s.quotes.GetQuote(ctx, symbol)})
}

func (s *PortfolioService) cacheQuotes(quotes map[string]models.Quote) {
	now := s.clk.Now()
	for symbol, quote := range quotes {
		var err error
		if quote.Valid {
			err = s.watchlistDAO.UpdateQuote(symbol, quote.Price, now)
		} else {
			err = s.watchlistDAO.MarkFailed(symbol, quote.Error, now)
		}
		if err != nil {
			log.Printf("Failed to cache quote: symbol=%s error=%v", symbol, err)
		}
	}
}

func (s *PortfolioService) heldSymbols(accounts []models.Account) ([]string, error) {
	seen := make(map[string]struct{})
	symbols := make([]string, 0)
	for _, account := range accounts {
		positions, err := s.positionDAO.ListByAccount(account.Name)
		if err != nil {
			return nil, err
		}
		for _, pos := range positions {
			if _, ok := seen[pos.Symbol]; ok {
				continue
			}
			seen[pos.Symbol] = struct{}{}
			symbols = append(symbols, pos.Symbol)
		}
	}
	return symbols, nil
}
