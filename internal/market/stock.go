package market

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"time"
)

// Price bounds enforced on every mutation, simulated or explicit.
const (
	MinPrice = 0.01
	MaxPrice = 1_000_000.0

	// HistoryLimit bounds each stock's price history ring.
	HistoryLimit = 30
)

var (
	ErrStockNotFound   = errors.New("market: stock not found")
	ErrDuplicateSymbol = errors.New("market: duplicate symbol")
	ErrInvalidStock    = errors.New("market: invalid stock")
	ErrInvalidControls = errors.New("market: invalid controls")
	ErrInvalidBulk     = errors.New("market: invalid bulk transform")
)

var symbolRE = regexp.MustCompile(`^[A-Z][A-Z0-9.]{0,9}$`)

// PricePoint is one entry of a stock's bounded history ring.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// Stock is the per-session view of one simulated instrument.
type Stock struct {
	Symbol        string       `json:"symbol"`
	Name          string       `json:"name"`
	CurrentPrice  float64      `json:"currentPrice"`
	PreviousPrice float64      `json:"previousPrice"`
	InitialPrice  float64      `json:"initialPrice"`
	Change        float64      `json:"change"`
	PercentChange float64      `json:"percentChange"`
	Volume        int64        `json:"volume"`
	LastUpdated   time.Time    `json:"lastUpdated"`
	PriceHistory  []PricePoint `json:"priceHistory"`
}

// Controls holds the per-session simulator switches. Mutated only through
// validated patch updates.
type Controls struct {
	IsPaused           bool      `json:"isPaused"`
	UpdateIntervalMS   int       `json:"updateIntervalMs"`
	Volatility         float64   `json:"volatility"`
	SelectedCurrency   string    `json:"selectedCurrency"`
	IsEmergencyStopped bool      `json:"isEmergencyStopped"`
	LastUpdated        time.Time `json:"lastUpdated"`
}

// ControlsPatch is a partial controls update; nil fields are left untouched.
type ControlsPatch struct {
	IsPaused           *bool    `json:"isPaused"`
	UpdateIntervalMS   *int     `json:"updateIntervalMs"`
	Volatility         *float64 `json:"volatility"`
	SelectedCurrency   *string  `json:"selectedCurrency"`
	IsEmergencyStopped *bool    `json:"isEmergencyStopped"`
}

const (
	minUpdateIntervalMS = 250
	maxUpdateIntervalMS = 300_000
	maxVolatility       = 10.0
)

var supportedCurrencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "JPY": {}, "CAD": {}, "AUD": {},
}

// ValidateSymbol checks the symbol format (uppercase, 1-10 chars).
func ValidateSymbol(symbol string) error {
	if !symbolRE.MatchString(symbol) {
		return ErrInvalidStock
	}
	return nil
}

// ValidateNewStock rejects degenerate inputs before they ever reach a tick.
func ValidateNewStock(symbol, name string, price float64, volume int64) error {
	if err := ValidateSymbol(symbol); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 64 {
		return ErrInvalidStock
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return ErrInvalidStock
	}
	if price < MinPrice || price > MaxPrice {
		return ErrInvalidStock
	}
	if volume < 0 {
		return ErrInvalidStock
	}
	return nil
}

// Validate checks each present patch field against its allowed range.
func (p ControlsPatch) Validate() error {
	if p.UpdateIntervalMS != nil {
		if *p.UpdateIntervalMS < minUpdateIntervalMS || *p.UpdateIntervalMS > maxUpdateIntervalMS {
			return ErrInvalidControls
		}
	}
	if p.Volatility != nil {
		if *p.Volatility <= 0 || *p.Volatility > maxVolatility || math.IsNaN(*p.Volatility) {
			return ErrInvalidControls
		}
	}
	if p.SelectedCurrency != nil {
		if _, ok := supportedCurrencies[strings.ToUpper(*p.SelectedCurrency)]; !ok {
			return ErrInvalidControls
		}
	}
	return nil
}

func clampPrice(p float64) float64 {
	if p < MinPrice {
		return MinPrice
	}
	if p > MaxPrice {
		return MaxPrice
	}
	return p
}

func round2(p float64) float64 {
	return math.Round(p*100) / 100
}

// applyPrice moves the stock to newPrice, recomputes derived fields and pushes
// a history point. Callers must hold the owning Data lock and must skip calls
// when the rounded price is unchanged.
func (st *Stock) applyPrice(newPrice float64, now time.Time) {
	st.PreviousPrice = st.CurrentPrice
	st.CurrentPrice = newPrice
	st.Change = round2(st.CurrentPrice - st.PreviousPrice)
	if st.PreviousPrice > 0 {
		st.PercentChange = math.Round((st.Change/st.PreviousPrice)*10000) / 100
	}
	st.LastUpdated = now
	st.PriceHistory = append(st.PriceHistory, PricePoint{Timestamp: now, Price: newPrice})
	if len(st.PriceHistory) > HistoryLimit {
		st.PriceHistory = st.PriceHistory[len(st.PriceHistory)-HistoryLimit:]
	}
}

// clone deep-copies the stock so mutations never leak across sessions.
func (st *Stock) clone() Stock {
	out := *st
	out.PriceHistory = make([]PricePoint, len(st.PriceHistory))
	copy(out.PriceHistory, st.PriceHistory)
	return out
}
