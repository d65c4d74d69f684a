package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"

	"papertrader/internal/models"
)

// QuoteService resolves current market prices for symbols. A quote with
// Valid=false carries the failure reason in Error; the price must not be used.
type QuoteService interface {
	GetQuote(ctx context.Context, symbol string) models.Quote
	GetQuotes(ctx context.Context, symbols []string) map[string]models.Quote
}

// NormalizeSymbol canonicalizes user input before lookups and storage.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// BinanceQuoteService fetches spot prices from the public Binance API.
type BinanceQuoteService struct {
	client       *binance.Client
	lastRequest  time.Time
	requestMutex sync.Mutex
}

// NewBinanceQuoteService creates a quote service backed by Binance spot
// tickers. No API key is needed for public price data.
func NewBinanceQuoteService() *BinanceQuoteService {
	return &BinanceQuoteService{
		client: binance.NewClient("", ""),
	}
}

// GetQuote fetches the latest price for a single symbol.
func (s *BinanceQuoteService) GetQuote(ctx context.Context, symbol string) models.Quote {
	symbol = NormalizeSymbol(symbol)
	s.waitForRateLimit()

	prices, err := s.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return models.Quote{Symbol: symbol, Error: err.Error()}
	}
	if len(prices) == 0 {
		return models.Quote{Symbol: symbol, Error: "symbol not found"}
	}
	return parsePrice(symbol, prices[0].Price)
}

// GetQuotes fetches latest prices for a batch of symbols in one request.
// Symbols the exchange does not know come back with Valid=false.
func (s *BinanceQuoteService) GetQuotes(ctx context.Context, symbols []string) map[string]models.Quote {
	quotes := make(map[string]models.Quote, len(symbols))
	if len(symbols) == 0 {
		return quotes
	}

	normalized := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = NormalizeSymbol(symbol)
		normalized = append(normalized, symbol)
		quotes[symbol] = models.Quote{Symbol: symbol, Error: "no quote returned"}
	}

	s.waitForRateLimit()
	prices, err := s.client.NewListPricesService().Symbols(normalized).Do(ctx)
	if err != nil {
		for _, symbol := range normalized {
			quotes[symbol] = models.Quote{Symbol: symbol, Error: err.Error()}
		}
		return quotes
	}

	for _, price := range prices {
		quotes[price.Symbol] = parsePrice(price.Symbol, price.Price)
	}
	return quotes
}

func parsePrice(symbol, raw string) models.Quote {
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return models.Quote{Symbol: symbol, Error: "unparseable price: " + raw}
	}
	if price <= 0 {
		return models.Quote{Symbol: symbol, Error: "non-positive price"}
	}
	return models.Quote{Symbol: symbol, Price: price, Valid: true}
}

// waitForRateLimit spaces requests at least 100ms apart. Binance allows far
// more for public endpoints; this keeps a misbehaving caller from tripping
// the IP ban threshold.
func (s *BinanceQuoteService) waitForRateLimit() {
	s.requestMutex.Lock()
	defer s.requestMutex.Unlock()

	minInterval := 100 * time.Millisecond
	elapsed := time.Since(s.lastRequest)
	if elapsed < minInterval {
		time.Sleep(minInterval - elapsed)
	}
	s.lastRequest = time.Now()
}
