package services

import (
	"errors"
	"fmt"
	"log"

	"papertrader/internal/clock"
	"papertrader/internal/dao"
	"papertrader/internal/engines/trading"
	"papertrader/internal/models"

	"gorm.io/gorm"
)

// ErrAccountExists is returned when creating an account whose name is taken.
var ErrAccountExists = errors.New("account already exists")

// AccountSummary is an account with its derived portfolio numbers.
type AccountSummary struct {
	models.Account
	Equity         float64 `json:"equity"`
	PositionsValue float64 `json:"positions_value"`
	PositionCount  int     `json:"position_count"`
	Pnl            float64 `json:"pnl"`
	PnlPct         float64 `json:"pnl_pct"`
}

// AccountService manages account lifecycle: creation, reset, deletion and
// summary views. Ledger mutations stay in the trading engine.
type AccountService struct {
	db           *gorm.DB
	accountDAO   dao.AccountDAOInterface
	positionDAO  dao.PositionDAOInterface
	orderDAO     dao.OrderDAOInterface
	tradeDAO     dao.TradeDAOInterface
	equityDAO    dao.EquityDAOInterface
	watchlistDAO dao.WatchlistDAOInterface
	clk          clock.Clock
}

// NewAccountService creates an account service over the given database.
func NewAccountService(db *gorm.DB, clk clock.Clock) *AccountService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &AccountService{
		db:           db,
		accountDAO:   dao.NewAccountDAO(db),
		positionDAO:  dao.NewPositionDAO(db),
		orderDAO:     dao.NewOrderDAO(db),
		tradeDAO:     dao.NewTradeDAO(db),
		equityDAO:    dao.NewEquityDAO(db),
		watchlistDAO: dao.NewWatchlistDAO(db),
		clk:          clk,
	}
}

// Create opens a new account with the given starting capital and seeds the
// first equity point so charts start at day zero.
func (s *AccountService) Create(name string, capital float64) (*models.Account, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidOrder)
	}
	if capital <= 0 {
		return nil, fmt.Errorf("%w: capital must be positive", ErrInvalidOrder)
	}
	if _, err := s.accountDAO.Get(name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check account: %w", err)
	}

	account := &models.Account{
		Name:           name,
		InitialCapital: capital,
		Cash:           capital,
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	if err := tx.Create(account).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	if err := s.seedEquityTx(tx, account); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit account creation: %w", err)
	}

	log.Printf("Account created: name=%s capital=%.2f", name, capital)
	return account, nil
}

// EnsureDefault creates the named account if it does not exist yet. Used at
// startup so a fresh database is immediately usable.
func (s *AccountService) EnsureDefault(name string, capital float64) error {
	_, err := s.accountDAO.Get(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check default account: %w", err)
	}
	_, err = s.Create(name, capital)
	return err
}

// Get returns the account with its portfolio valued against the cached
// quotes. Symbols without a cached price fall back to their average cost.
func (s *AccountService) Get(name string) (*AccountSummary, error) {
	account, err := s.accountDAO.Get(name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", trading.ErrAccountNotFound, name)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return s.summarize(account)
}

// List returns summaries for every account.
func (s *AccountService) List() ([]AccountSummary, error) {
	accounts, err := s.accountDAO.List()
	if err != nil {
		return nil, err
	}
	summaries := make([]AccountSummary, 0, len(accounts))
	for i := range accounts {
		summary, err := s.summarize(&accounts[i])
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// Reset wipes positions, orders, trades and equity history, restores cash to
// the initial capital and reseeds the equity series.
func (s *AccountService) Reset(name string) (*models.Account, error) {
	account, err := s.accountDAO.Get(name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", trading.ErrAccountNotFound, name)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	if err := s.wipeTx(tx, name); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := s.accountDAO.UpdateCashWithTx(tx, name, account.InitialCapital); err != nil {
		tx.Rollback()
		return nil, err
	}
	account.Cash = account.InitialCapital
	if err := s.seedEquityTx(tx, account); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit account reset: %w", err)
	}

	log.Printf("Account reset: name=%s capital=%.2f", name, account.InitialCapital)
	return account, nil
}

// Delete removes the account and everything attached to it.
func (s *AccountService) Delete(name string) error {
	tx := s.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	if err := s.wipeTx(tx, name); err != nil {
		tx.Rollback()
		return err
	}
	deleted, err := s.accountDAO.DeleteWithTx(tx, name)
	if err != nil {
		tx.Rollback()
		return err
	}
	if deleted == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: %s", trading.ErrAccountNotFound, name)
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit account deletion: %w", err)
	}

	log.Printf("Account deleted: name=%s", name)
	return nil
}

// CostStats returns the cumulative trading friction for the account.
func (s *AccountService) CostStats(name string) (*dao.CostStats, error) {
	if _, err := s.accountDAO.Get(name); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", trading.ErrAccountNotFound, name)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return s.tradeDAO.CostStats(name)
}

func (s *AccountService) summarize(account *models.Account) (*AccountSummary, error) {
	positions, err := s.positionDAO.ListByAccount(account.Name)
	if err != nil {
		return nil, err
	}
	marks, err := s.watchlistDAO.LastPrices()
	if err != nil {
		return nil, err
	}

	positionsValue := 0.0
	for _, pos := range positions {
		mark, ok := marks[pos.Symbol]
		if !ok {
			mark = pos.AvgPrice
		}
		positionsValue += float64(pos.Qty) * mark
	}

	equity := account.Cash + positionsValue
	pnl := equity - account.InitialCapital
	pnlPct := 0.0
	if account.InitialCapital > 0 {
		pnlPct = pnl / account.InitialCapital * 100
	}

	return &AccountSummary{
		Account:        *account,
		Equity:         round2(equity),
		PositionsValue: round2(positionsValue),
		PositionCount:  len(positions),
		Pnl:            round2(pnl),
		PnlPct:         round2(pnlPct),
	}, nil
}

func (s *AccountService) wipeTx(tx *gorm.DB, name string) error {
	if err := s.positionDAO.DeleteByAccountWithTx(tx, name); err != nil {
		return err
	}
	if err := s.orderDAO.DeleteByAccountWithTx(tx, name); err != nil {
		return err
	}
	if err := s.tradeDAO.DeleteByAccountWithTx(tx, name); err != nil {
		return err
	}
	return s.equityDAO.DeleteByAccountWithTx(tx, name)
}

func (s *AccountService) seedEquityTx(tx *gorm.DB, account *models.Account) error {
	point := &models.EquityPoint{
		AccountName: account.Name,
		Date:        clock.EquityDate(s.clk.Now()),
		Equity:      account.Cash,
		Pnl:         round2(account.Cash - account.InitialCapital),
		PnlPct:      0,
	}
	return s.equityDAO.UpsertWithTx(tx, point)
}
