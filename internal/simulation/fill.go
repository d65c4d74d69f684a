package simulation

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"papertrader/internal/models"
)

// Fill is the simulated execution outcome of one order request. Computed, not
// persisted; the ledger turns it into order/trade rows.
type Fill struct {
	Symbol         string           `json:"symbol"`
	Side           models.OrderSide `json:"side"`
	RequestedQty   int64            `json:"requested_qty"`
	FilledQty      int64            `json:"filled_qty"`
	FillRate       float64          `json:"fill_rate"`
	RequestedPrice float64          `json:"requested_price"`
	ExecPrice      float64          `json:"exec_price"`
	Slippage       float64          `json:"slippage"` // per-share slippage amount
	FilledValue    float64          `json:"filled_value"`
	Commission     float64          `json:"commission"`
	TotalCost      float64          `json:"total_cost"`
	Partial        bool             `json:"partial"`
}

// FillCalculator turns an order request into a Fill under a given config.
// Deterministic given its random source; safe for concurrent use.
type FillCalculator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	sleep func(time.Duration)
}

// NewFillCalculator builds a calculator around the given random source. Pass
// a seeded rand.New in tests for reproducible draws.
func NewFillCalculator(rng *rand.Rand) *FillCalculator {
	return &FillCalculator{
		rng:   rng,
		sleep: time.Sleep,
	}
}

// NewSeededFillCalculator is shorthand for a calculator with its own source.
func NewSeededFillCalculator(seed int64) *FillCalculator {
	return NewFillCalculator(rand.New(rand.NewSource(seed)))
}

// SetSleep replaces the latency sleep function. Tests use this to record
// requested delays instead of actually sleeping.
func (fc *FillCalculator) SetSleep(fn func(time.Duration)) {
	fc.sleep = fn
}

// uniform draws from U(0,1). rand.Rand is not safe for concurrent use.
func (fc *FillCalculator) uniform() float64 {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.rng.Float64()
}

// ApplySlippage moves the reference price against the taker: buys fill above,
// sells below. Returns the execution price and per-share slippage amount,
// both rounded to 4 decimals.
func (fc *FillCalculator) ApplySlippage(price float64, side models.OrderSide, cfg SlippageConfig) (execPrice, amount float64) {
	if !cfg.Enabled {
		return price, 0
	}

	switch cfg.Mode {
	case "percentage":
		amount = price * cfg.Value / 100
	case "fixed":
		amount = cfg.Value
	case "random":
		amount = price * cfg.Value / 100 * fc.uniform()
	default:
		amount = 0
	}

	if side == models.OrderSideBuy {
		execPrice = price + amount
	} else {
		execPrice = price - amount
	}

	return round4(execPrice), round4(amount)
}

// CalcCommission computes the fee on orderValue, rounded to 2 decimals.
func (fc *FillCalculator) CalcCommission(orderValue float64, cfg CommissionConfig) float64 {
	if !cfg.Enabled {
		return 0
	}

	var commission float64
	switch cfg.Mode {
	case "percentage":
		commission = math.Max(cfg.Minimum, orderValue*cfg.Rate)
	case "fixed":
		commission = cfg.PerTrade
	case "tiered":
		// Consume orderValue band by band; a tier without max_value is
		// unbounded and ends the walk.
		remaining := orderValue
		prevMax := 0.0
		for _, tier := range cfg.Tiers {
			tierMax := math.Inf(1)
			if tier.MaxValue != nil && *tier.MaxValue > 0 {
				tierMax = *tier.MaxValue
			}
			band := math.Min(remaining, tierMax-prevMax)
			if band > 0 {
				commission += band * tier.Rate
				remaining -= band
				prevMax = tierMax
			}
			if remaining <= 0 {
				break
			}
		}
	}

	return round2(commission)
}

// CalcPartialFill decides how much of qty actually fills. Orders below the
// value threshold always fill in full; above it the fill rate is drawn from
// U(min, max) and at least one share fills.
func (fc *FillCalculator) CalcPartialFill(orderValue float64, qty int64, cfg PartialFillConfig) (filledQty int64, fillRate float64) {
	if !cfg.Enabled || orderValue < cfg.Threshold {
		return qty, 1.0
	}

	rate := cfg.MinFillRate + (cfg.MaxFillRate-cfg.MinFillRate)*fc.uniform()
	filledQty = int64(math.Floor(float64(qty) * rate))
	if filledQty < 1 {
		filledQty = 1
	}
	// Report the achieved ratio, not the drawn one; flooring makes them differ.
	return filledQty, float64(filledQty) / float64(qty)
}

// ApplyLatency sleeps for a uniform draw from [MinMs, MaxMs]. A scheduling
// delay only; callers must invoke it before taking any account lock.
func (fc *FillCalculator) ApplyLatency(cfg LatencyConfig) {
	if !cfg.Enabled {
		return
	}
	span := float64(cfg.MaxMs - cfg.MinMs)
	delayMs := float64(cfg.MinMs) + span*fc.uniform()
	fc.sleep(time.Duration(delayMs * float64(time.Millisecond)))
}

// Simulate composes latency, partial fill, slippage and commission into a
// Fill. No shared state is touched beyond the RNG and the deliberate delay.
func (fc *FillCalculator) Simulate(symbol string, side models.OrderSide, qty int64, price float64, cfg Config) Fill {
	fc.ApplyLatency(cfg.Latency)

	orderValue := float64(qty) * price
	filledQty, fillRate := fc.CalcPartialFill(orderValue, qty, cfg.PartialFill)
	execPrice, slippage := fc.ApplySlippage(price, side, cfg.Slippage)

	filledValue := round2(float64(filledQty) * execPrice)
	commission := fc.CalcCommission(filledValue, cfg.Commission)

	var totalCost float64
	if side == models.OrderSideBuy {
		totalCost = filledValue + commission
	} else {
		totalCost = filledValue - commission
	}

	return Fill{
		Symbol:         symbol,
		Side:           side,
		RequestedQty:   qty,
		FilledQty:      filledQty,
		FillRate:       fillRate,
		RequestedPrice: price,
		ExecPrice:      execPrice,
		Slippage:       slippage,
		FilledValue:    filledValue,
		Commission:     commission,
		TotalCost:      round2(totalCost),
		Partial:        filledQty < qty,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
