package trading

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"papertrader/internal/clock"
	"papertrader/internal/dao"
	"papertrader/internal/lock"
	"papertrader/internal/models"
	"papertrader/internal/simulation"

	"gorm.io/gorm"
)

// QuoteProvider is the external market-data collaborator. Implementations
// must return an entry per requested symbol; Valid=false means no price.
type QuoteProvider interface {
	GetQuotes(ctx context.Context, symbols []string) map[string]models.Quote
}

const defaultQuoteTimeout = 10 * time.Second

// Ledger is the only component that mutates account, position, order, trade
// and equity rows. Each Apply runs under the account's lock and inside one
// database transaction: all rows update together or none do.
type Ledger struct {
	db           *gorm.DB
	accountDAO   dao.AccountDAOInterface
	positionDAO  dao.PositionDAOInterface
	orderDAO     dao.OrderDAOInterface
	tradeDAO     dao.TradeDAOInterface
	equityDAO    dao.EquityDAOInterface
	watchlistDAO dao.WatchlistDAOInterface
	quotes       QuoteProvider
	locks        *lock.KeyedMutex
	quoteTimeout time.Duration
}

// NewLedger creates a ledger over db. quotes may be nil, in which case equity
// snapshots mark positions at cached or cost prices.
func NewLedger(db *gorm.DB, quotes QuoteProvider) *Ledger {
	return &Ledger{
		db:           db,
		accountDAO:   dao.NewAccountDAO(db),
		positionDAO:  dao.NewPositionDAO(db),
		orderDAO:     dao.NewOrderDAO(db),
		tradeDAO:     dao.NewTradeDAO(db),
		equityDAO:    dao.NewEquityDAO(db),
		watchlistDAO: dao.NewWatchlistDAO(db),
		quotes:       quotes,
		locks:        lock.NewKeyedMutex(),
		quoteTimeout: defaultQuoteTimeout,
	}
}

// Apply executes a simulated fill against the account: validates, moves cash,
// reworks the position at weighted-average cost, appends the order and trade
// rows and refreshes today's equity point. Validation failure or any storage
// error leaves every row untouched.
func (l *Ledger) Apply(ctx context.Context, accountName string, fill simulation.Fill, execTime time.Time, source string) (*models.Trade, error) {
	l.locks.Lock(accountName)
	defer l.locks.Unlock(accountName)

	// Quote retrieval is network IO; do it before the transaction opens so a
	// slow collaborator never holds the write scope. The account lock keeps
	// the position set stable in the meantime.
	marks := l.collectMarks(ctx, accountName, fill.Symbol)

	tx := l.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	trade, err := l.applyTx(tx, accountName, fill, execTime, source, marks)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Cache the execution price for later equity marks. Best effort; the
	// trade is already committed.
	if err := l.watchlistDAO.Add(fill.Symbol, fill.Symbol); err != nil {
		log.Printf("watchlist add %s: %v", fill.Symbol, err)
	} else if err := l.watchlistDAO.UpdateQuote(fill.Symbol, fill.ExecPrice, execTime); err != nil {
		log.Printf("watchlist quote %s: %v", fill.Symbol, err)
	}

	log.Printf("applied fill: account=%s symbol=%s side=%s qty=%d price=%.4f commission=%.2f realized_pnl=%.2f",
		accountName, fill.Symbol, fill.Side, fill.FilledQty, fill.ExecPrice, fill.Commission, trade.RealizedPnl)

	return trade, nil
}

func (l *Ledger) applyTx(tx *gorm.DB, accountName string, fill simulation.Fill, execTime time.Time, source string, marks map[string]float64) (*models.Trade, error) {
	account, err := l.accountDAO.GetWithTx(tx, accountName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, accountName)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	var newCash float64
	var realizedPnl float64

	switch fill.Side {
	case models.OrderSideBuy:
		if account.Cash < fill.TotalCost {
			return nil, fmt.Errorf("%w: need %.2f (incl commission %.2f), available %.2f",
				ErrInsufficientFunds, fill.TotalCost, fill.Commission, account.Cash)
		}
		newCash = account.Cash - fill.TotalCost
		if err := l.applyBuy(tx, accountName, fill); err != nil {
			return nil, err
		}

	case models.OrderSideSell:
		realizedPnl, err = l.applySell(tx, accountName, fill)
		if err != nil {
			return nil, err
		}
		newCash = account.Cash + fill.TotalCost

	default:
		return nil, fmt.Errorf("invalid order side: %s", fill.Side)
	}

	if err := l.accountDAO.UpdateCashWithTx(tx, accountName, newCash); err != nil {
		return nil, err
	}

	status := models.OrderStatusFilled
	if fill.Partial {
		status = models.OrderStatusPartial
	}

	order := &models.Order{
		AccountName: accountName,
		Symbol:      fill.Symbol,
		Side:        fill.Side,
		Qty:         fill.FilledQty,
		Price:       fill.ExecPrice,
		Value:       fill.FilledValue,
		Time:        execTime,
		Status:      status,
		Source:      source,
	}
	if err := l.orderDAO.CreateWithTx(tx, order); err != nil {
		return nil, err
	}

	trade := &models.Trade{
		AccountName: accountName,
		Symbol:      fill.Symbol,
		Side:        fill.Side,
		Qty:         fill.FilledQty,
		Price:       fill.ExecPrice,
		Value:       fill.FilledValue,
		Time:        execTime,
		Commission:  fill.Commission,
		Slippage:    round2(fill.Slippage * float64(fill.FilledQty)),
		RealizedPnl: round2(realizedPnl),
	}
	if err := l.tradeDAO.CreateWithTx(tx, trade); err != nil {
		return nil, err
	}

	// Override the pre-fetched mark with the price we just executed at.
	marks[fill.Symbol] = fill.ExecPrice
	updated := *account
	updated.Cash = newCash
	if err := l.snapshotEquityTx(tx, &updated, clock.EquityDate(execTime), marks); err != nil {
		return nil, err
	}

	return trade, nil
}

// applyBuy folds the fill into the position at weighted-average cost. The
// unrounded fill value feeds the average so 2-decimal rounding of the stored
// trade value never drifts the cost basis.
func (l *Ledger) applyBuy(tx *gorm.DB, accountName string, fill simulation.Fill) error {
	position, err := l.positionDAO.GetWithTx(tx, accountName, fill.Symbol)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		position = &models.Position{
			AccountName: accountName,
			Symbol:      fill.Symbol,
			Qty:         fill.FilledQty,
			AvgPrice:    fill.ExecPrice,
		}
		return l.positionDAO.SaveWithTx(tx, position)
	}
	if err != nil {
		return fmt.Errorf("failed to load position: %w", err)
	}

	oldValue := float64(position.Qty) * position.AvgPrice
	addValue := float64(fill.FilledQty) * fill.ExecPrice
	newQty := position.Qty + fill.FilledQty

	position.AvgPrice = (oldValue + addValue) / float64(newQty)
	position.Qty = newQty
	return l.positionDAO.SaveWithTx(tx, position)
}

// applySell decrements the position, leaving the average price untouched, and
// returns the realized PnL against it. The row is removed at quantity zero.
func (l *Ledger) applySell(tx *gorm.DB, accountName string, fill simulation.Fill) (float64, error) {
	position, err := l.positionDAO.GetWithTx(tx, accountName, fill.Symbol)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: no holding in %s", ErrInsufficientPosition, fill.Symbol)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load position: %w", err)
	}
	if position.Qty < fill.FilledQty {
		return 0, fmt.Errorf("%w: %s requested %d, held %d",
			ErrInsufficientPosition, fill.Symbol, fill.FilledQty, position.Qty)
	}

	realizedPnl := float64(fill.FilledQty) * (fill.ExecPrice - position.AvgPrice)

	position.Qty -= fill.FilledQty
	if position.Qty == 0 {
		if err := l.positionDAO.DeleteWithTx(tx, position); err != nil {
			return 0, err
		}
		return realizedPnl, nil
	}
	return realizedPnl, l.positionDAO.SaveWithTx(tx, position)
}

// SnapshotEquity recomputes the account's equity point for asOfDate and
// replaces any existing row for that date. quotes may be nil; the ledger then
// asks the quote provider for the held symbols itself.
func (l *Ledger) SnapshotEquity(ctx context.Context, accountName, asOfDate string, quotes map[string]models.Quote) (*models.EquityPoint, error) {
	l.locks.Lock(accountName)
	defer l.locks.Unlock(accountName)

	var marks map[string]float64
	if quotes == nil {
		marks = l.collectMarks(ctx, accountName, "")
	} else {
		marks = l.marksFromQuotes(quotes)
	}

	tx := l.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	account, err := l.accountDAO.GetWithTx(tx, accountName)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, accountName)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := l.snapshotEquityTx(tx, account, asOfDate, marks); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return l.equityDAO.Get(accountName, asOfDate)
}

// snapshotEquityTx upserts the equity point for account at asOfDate, marking
// positions at the supplied prices with average price as the last fallback.
func (l *Ledger) snapshotEquityTx(tx *gorm.DB, account *models.Account, asOfDate string, marks map[string]float64) error {
	positions, err := l.positionDAO.ListByAccountWithTx(tx, account.Name)
	if err != nil {
		return err
	}

	positionValue := 0.0
	for _, position := range positions {
		price := position.AvgPrice
		if mark, ok := marks[position.Symbol]; ok && mark > 0 {
			price = mark
		}
		positionValue += float64(position.Qty) * price
	}

	equity := account.Cash + positionValue
	pnl := equity - account.InitialCapital
	pnlPct := 0.0
	if account.InitialCapital > 0 {
		pnlPct = pnl / account.InitialCapital * 100
	}

	point := &models.EquityPoint{
		AccountName: account.Name,
		Date:        asOfDate,
		Equity:      round2(equity),
		Pnl:         round2(pnl),
		PnlPct:      round2(pnlPct),
	}
	return l.equityDAO.UpsertWithTx(tx, point)
}

// collectMarks resolves a price per relevant symbol: live quote when the
// provider answers, cached watchlist price otherwise. Symbols with neither
// are absent and fall back to cost at valuation time.
func (l *Ledger) collectMarks(ctx context.Context, accountName, extraSymbol string) map[string]float64 {
	marks, err := l.watchlistDAO.LastPrices()
	if err != nil {
		log.Printf("watchlist prices: %v", err)
		marks = make(map[string]float64)
	}

	if l.quotes == nil {
		return marks
	}

	positions, err := l.positionDAO.ListByAccount(accountName)
	if err != nil {
		log.Printf("positions for marks: %v", err)
		return marks
	}

	symbols := make([]string, 0, len(positions)+1)
	for _, position := range positions {
		symbols = append(symbols, position.Symbol)
	}
	if extraSymbol != "" {
		seen := false
		for _, s := range symbols {
			if s == extraSymbol {
				seen = true
				break
			}
		}
		if !seen {
			symbols = append(symbols, extraSymbol)
		}
	}
	if len(symbols) == 0 {
		return marks
	}

	quoteCtx, cancel := context.WithTimeout(ctx, l.quoteTimeout)
	defer cancel()

	for symbol, quote := range l.quotes.GetQuotes(quoteCtx, symbols) {
		if quote.Valid && quote.Price > 0 {
			marks[symbol] = quote.Price
		}
	}
	return marks
}

func (l *Ledger) marksFromQuotes(quotes map[string]models.Quote) map[string]float64 {
	marks, err := l.watchlistDAO.LastPrices()
	if err != nil {
		marks = make(map[string]float64)
	}
	for symbol, quote := range quotes {
		if quote.Valid && quote.Price > 0 {
			marks[symbol] = quote.Price
		}
	}
	return marks
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
