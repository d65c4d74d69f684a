package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"papertrader/internal/clock"
	"papertrader/internal/dao"
	"papertrader/internal/engines/trading"
	"papertrader/internal/models"
	"papertrader/internal/observability"
	"papertrader/internal/simulation"

	"gorm.io/gorm"
)

// ErrInvalidOrder is returned for requests that fail shape validation before
// any simulation or ledger work happens.
var ErrInvalidOrder = errors.New("invalid order")

const quoteResolveTimeout = 10 * time.Second

// ExecuteRequest describes one order to run through the simulator.
type ExecuteRequest struct {
	Account string
	Symbol  string
	Side    models.OrderSide
	Qty     int64
	// Price is the caller's reference price. Zero means "resolve from the
	// quote service".
	Price  float64
	Source string
	// Time overrides the execution timestamp, for replays and backfills.
	Time *time.Time
}

// ExecutionResult carries everything the caller needs to render the outcome.
type ExecutionResult struct {
	Fill  simulation.Fill `json:"fill"`
	Trade *models.Trade   `json:"trade"`
	Cash  float64         `json:"cash"`
}

// ExecutionService runs orders through the full pipeline: price resolution,
// fill simulation, then the ledger transaction.
type ExecutionService struct {
	ledger     *trading.Ledger
	calculator *simulation.FillCalculator
	loader     *simulation.Loader
	quotes     QuoteService
	clk        clock.Clock
	metrics    *observability.Metrics
	accountDAO dao.AccountDAOInterface
}

// NewExecutionService wires the pipeline. quotes and metrics may be nil;
// without quotes every request must carry its own price.
func NewExecutionService(db *gorm.DB, ledger *trading.Ledger, calculator *simulation.FillCalculator, loader *simulation.Loader, quotes QuoteService, clk clock.Clock, metrics *observability.Metrics) *ExecutionService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &ExecutionService{
		ledger:     ledger,
		calculator: calculator,
		loader:     loader,
		quotes:     quotes,
		clk:        clk,
		metrics:    metrics,
		accountDAO: dao.NewAccountDAO(db),
	}
}

// Execute validates the request, resolves a price, simulates the fill and
// applies it to the account atomically.
func (s *ExecutionService) Execute(ctx context.Context, req ExecuteRequest) (*ExecutionResult, error) {
	started := time.Now()

	if err := s.validate(&req); err != nil {
		s.countRejection(err)
		return nil, err
	}

	price, err := s.resolvePrice(ctx, req)
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	execTime := s.clk.Now()
	if req.Time != nil {
		execTime = *req.Time
	}

	cfg := s.loader.Get()
	// Simulate before taking the account lock: the latency sleep must not
	// serialize unrelated orders on the same account.
	fill := s.calculator.Simulate(req.Symbol, req.Side, req.Qty, price, cfg)

	trade, err := s.ledger.Apply(ctx, req.Account, fill, execTime, req.Source)
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersExecuted.WithLabelValues(string(req.Side), string(tradeStatus(fill))).Inc()
		s.metrics.FillLatency.Observe(time.Since(started).Seconds())
	}

	account, err := s.accountDAO.Get(req.Account)
	if err != nil {
		return nil, fmt.Errorf("failed to reload account after execution: %w", err)
	}

	return &ExecutionResult{Fill: fill, Trade: trade, Cash: account.Cash}, nil
}

func (s *ExecutionService) validate(req *ExecuteRequest) error {
	req.Symbol = NormalizeSymbol(req.Symbol)
	if req.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	}
	if req.Account == "" {
		return fmt.Errorf("%w: account is required", ErrInvalidOrder)
	}
	if req.Qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrder, req.Qty)
	}
	if req.Side != models.OrderSideBuy && req.Side != models.OrderSideSell {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, req.Side)
	}
	if req.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidOrder)
	}
	if req.Source == "" {
		req.Source = "web"
	}
	return nil
}

// resolvePrice uses the caller's price when given, otherwise asks the quote
// service. An invalid quote rejects the order rather than executing at a
// stale or zero price.
func (s *ExecutionService) resolvePrice(ctx context.Context, req ExecuteRequest) (float64, error) {
	if req.Price > 0 {
		return req.Price, nil
	}
	if s.quotes == nil {
		return 0, fmt.Errorf("%w: no price given and no quote service configured", trading.ErrNoPriceAvailable)
	}

	ctx, cancel := context.WithTimeout(ctx, quoteResolveTimeout)
	defer cancel()

	quote := s.quotes.GetQuote(ctx, req.Symbol)
	if !quote.Valid {
		return 0, fmt.Errorf("%w: %s: %s", trading.ErrNoPriceAvailable, req.Symbol, quote.Error)
	}
	return quote.Price, nil
}

func (s *ExecutionService) countRejection(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.OrdersRejected.WithLabelValues(rejectionReason(err)).Inc()
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidOrder):
		return "invalid_order"
	case errors.Is(err, trading.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, trading.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, trading.ErrInsufficientPosition):
		return "insufficient_position"
	case errors.Is(err, trading.ErrNoPriceAvailable):
		return "no_price"
	default:
		return "internal"
	}
}

func tradeStatus(fill simulation.Fill) models.OrderStatus {
	if fill.Partial {
		return models.OrderStatusPartial
	}
	return models.OrderStatusFilled
}
