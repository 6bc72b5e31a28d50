package market

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// SimConfig holds the tunables shared by the tick and bulk algorithms.
type SimConfig struct {
	MaxChangePercent  float64
	DefaultVolatility float64
}

// DefaultSimConfig returns the reference tunables.
func DefaultSimConfig() SimConfig {
	return SimConfig{MaxChangePercent: 2.0, DefaultVolatility: 2.0}
}

// DefaultControls returns the controls a fresh session starts with.
func DefaultControls(now time.Time) Controls {
	return Controls{
		IsPaused:           false,
		UpdateIntervalMS:   1000,
		Volatility:         2.0,
		SelectedCurrency:   "USD",
		IsEmergencyStopped: false,
		LastUpdated:        now,
	}
}

type seedStock struct {
	symbol string
	name   string
	price  float64
	volume int64
}

var defaultStocks = []seedStock{
	{symbol: "BNOX", name: "Bane&Ox Inc.", price: 185.75, volume: 1_250_000},
	{symbol: "GOOGL", name: "Alphabet Inc.", price: 176.30, volume: 22_100_000},
	{symbol: "MSFT", name: "Microsoft Corp.", price: 415.20, volume: 18_400_000},
}

const (
	backfillPoints   = HistoryLimit
	backfillInterval = time.Minute
)

// Data is the isolated mutable state attached to exactly one session: stocks,
// controls and free-form preferences. It is only ever reachable through its
// session, never via a global lookup, and every accessor copies values out,
// so state can never alias across sessions.
//
// The embedded mutex serializes request handlers racing the tick loop on the
// same session; different sessions never contend.
type Data struct {
	mu          sync.Mutex
	stocks      []*Stock
	controls    Controls
	preferences map[string]string
	rng         *rand.Rand
	cfg         SimConfig
	lastTick    time.Time
}

// NewData builds a session's initial state: the three default stocks with a
// fully backfilled history ring and default controls. The rng is owned by the
// returned Data; pass a seeded source for reproducible behavior.
func NewData(rng *rand.Rand, cfg SimConfig, now time.Time) *Data {
	d := &Data{
		controls:    DefaultControls(now),
		preferences: make(map[string]string),
		rng:         rng,
		cfg:         cfg,
		lastTick:    now,
	}
	for _, s := range defaultStocks {
		d.stocks = append(d.stocks, newStock(rng, s.symbol, s.name, s.price, s.volume, now))
	}
	return d
}

func newStock(rng *rand.Rand, symbol, name string, price float64, volume int64, now time.Time) *Stock {
	history := Backfill(rng, price, backfillPoints, backfillInterval, now)
	st := &Stock{
		Symbol:        symbol,
		Name:          name,
		CurrentPrice:  price,
		PreviousPrice: price,
		InitialPrice:  price,
		Volume:        volume,
		LastUpdated:   now,
		PriceHistory:  history,
	}
	if n := len(history); n > 1 {
		st.PreviousPrice = history[n-2].Price
		st.CurrentPrice = history[n-1].Price
		st.Change = round2(st.CurrentPrice - st.PreviousPrice)
		if st.PreviousPrice > 0 {
			st.PercentChange = round2(st.Change / st.PreviousPrice * 100)
		}
	}
	return st
}

// View is a deep-copied snapshot of one session's data.
type View struct {
	Stocks      []Stock           `json:"stocks"`
	Controls    Controls          `json:"controls"`
	Preferences map[string]string `json:"preferences"`
}

// Snapshot returns a deep copy of the full state.
func (d *Data) Snapshot() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Data) snapshotLocked() View {
	v := View{
		Stocks:      make([]Stock, 0, len(d.stocks)),
		Controls:    d.controls,
		Preferences: make(map[string]string, len(d.preferences)),
	}
	for _, st := range d.stocks {
		v.Stocks = append(v.Stocks, st.clone())
	}
	for k, val := range d.preferences {
		v.Preferences[k] = val
	}
	return v
}

// Stocks returns deep copies of all stocks.
func (d *Data) Stocks() []Stock {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Stock, 0, len(d.stocks))
	for _, st := range d.stocks {
		out = append(out, st.clone())
	}
	return out
}

// Stock returns a deep copy of one stock.
func (d *Data) Stock(symbol string) (Stock, error) {
	symbol = normalizeSymbol(symbol)
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.findLocked(symbol)
	if st == nil {
		return Stock{}, ErrStockNotFound
	}
	return st.clone(), nil
}

// Controls returns a copy of the current controls.
func (d *Data) Controls() Controls {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.controls
}

// UpdateControls applies a validated partial update and stamps LastUpdated.
func (d *Data) UpdateControls(patch ControlsPatch, now time.Time) (Controls, error) {
	if err := patch.Validate(); err != nil {
		return Controls{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if patch.IsPaused != nil {
		d.controls.IsPaused = *patch.IsPaused
	}
	if patch.UpdateIntervalMS != nil {
		d.controls.UpdateIntervalMS = *patch.UpdateIntervalMS
	}
	if patch.Volatility != nil {
		d.controls.Volatility = *patch.Volatility
	}
	if patch.SelectedCurrency != nil {
		d.controls.SelectedCurrency = strings.ToUpper(*patch.SelectedCurrency)
	}
	if patch.IsEmergencyStopped != nil {
		d.controls.IsEmergencyStopped = *patch.IsEmergencyStopped
	}
	d.controls.LastUpdated = now
	return d.controls, nil
}

// UpdatePreferences shallow-merges the given preference keys.
func (d *Data) UpdatePreferences(prefs map[string]string) map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range prefs {
		if v == "" {
			delete(d.preferences, k)
			continue
		}
		d.preferences[k] = v
	}
	out := make(map[string]string, len(d.preferences))
	for k, v := range d.preferences {
		out[k] = v
	}
	return out
}

// AddStock appends a validated stock with a freshly backfilled history.
func (d *Data) AddStock(symbol, name string, price float64, volume int64, now time.Time) (Stock, error) {
	symbol = normalizeSymbol(symbol)
	price = round2(price)
	if err := ValidateNewStock(symbol, name, price, volume); err != nil {
		return Stock{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findLocked(symbol) != nil {
		return Stock{}, ErrDuplicateSymbol
	}
	st := newStock(d.rng, symbol, strings.TrimSpace(name), price, volume, now)
	d.stocks = append(d.stocks, st)
	return st.clone(), nil
}

// SetPrice moves one stock to an explicit price.
func (d *Data) SetPrice(symbol string, price float64, now time.Time) (Stock, error) {
	symbol = normalizeSymbol(symbol)
	price = round2(price)
	if price < MinPrice || price > MaxPrice {
		return Stock{}, ErrInvalidStock
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.findLocked(symbol)
	if st == nil {
		return Stock{}, ErrStockNotFound
	}
	if price != st.CurrentPrice {
		st.applyPrice(price, now)
	}
	return st.clone(), nil
}

// RemoveStock deletes one stock.
func (d *Data) RemoveStock(symbol string) error {
	symbol = normalizeSymbol(symbol)
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, st := range d.stocks {
		if st.Symbol == symbol {
			d.stocks = append(d.stocks[:i], d.stocks[i+1:]...)
			return nil
		}
	}
	return ErrStockNotFound
}

func (d *Data) findLocked(symbol string) *Stock {
	for _, st := range d.stocks {
		if st.Symbol == symbol {
			return st
		}
	}
	return nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
