// Package pnl derives profit figures from a position set: net PnL, a
// short-lived direction flag, per-symbol totals, and bounded histories.
package pnl

import (
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/acctdash/broker"
	"github.com/rustyeddy/acctdash/journal"
	"github.com/shopspring/decimal"
)

const (
	DefaultHistorySize = 60
	DefaultFlashWindow = 2 * time.Second
	DefaultSampleEvery = 5 * time.Second
)

type Summary struct {
	Net       float64            `json:"net"`
	Direction broker.Direction   `json:"direction"`
	BySymbol  map[string]float64 `json:"bySymbol"`
}

type Aggregator struct {
	mu sync.Mutex

	now         func() time.Time
	flashWindow time.Duration
	capacity    int
	sink        journal.Journal

	account  string
	net      float64
	hasNet   bool
	dir      broker.Direction
	dirAt    time.Time
	bySymbol map[string]float64

	history *Ring
	symbols map[string]*Ring
}

type Option func(*Aggregator)

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func WithFlashWindow(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.flashWindow = d
		}
	}
}

func WithHistorySize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.capacity = n
		}
	}
}

// WithJournal records every sample to j as well.
func WithJournal(j journal.Journal) Option {
	return func(a *Aggregator) { a.sink = j }
}

func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		now:         time.Now,
		flashWindow: DefaultFlashWindow,
		capacity:    DefaultHistorySize,
	}
	for _, o := range opts {
		o(a)
	}
	a.resetLocked("")
	return a
}

// Reset clears all state and attributes future samples to accountID.
func (a *Aggregator) Reset(accountID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked(accountID)
}

func (a *Aggregator) resetLocked(accountID string) {
	a.account = accountID
	a.net = 0
	a.hasNet = false
	a.dir = broker.None
	a.dirAt = time.Time{}
	a.bySymbol = map[string]float64{}
	a.history = NewRing(a.capacity)
	a.symbols = map[string]*Ring{}
}

// Account returns the account id samples are attributed to.
func (a *Aggregator) Account() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.account
}

// Recompute derives the summary from positions. Net moving up or down sets
// the direction flag, which stays visible for the flash window.
func (a *Aggregator) Recompute(positions []broker.Position) Summary {
	net, bySymbol := Totals(positions)

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.hasNet {
		if d := broker.Compare(a.net, net); d != broker.None {
			a.dir = d
			a.dirAt = now
		}
	}
	a.net = net
	a.hasNet = true
	a.bySymbol = bySymbol

	return a.summaryLocked(now)
}

// Current returns the last computed summary.
func (a *Aggregator) Current() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summaryLocked(a.now())
}

func (a *Aggregator) summaryLocked(now time.Time) Summary {
	s := Summary{
		Net:      a.net,
		BySymbol: make(map[string]float64, len(a.bySymbol)),
	}
	for k, v := range a.bySymbol {
		s.BySymbol[k] = v
	}
	if a.dir != broker.None && now.Sub(a.dirAt) < a.flashWindow {
		s.Direction = a.dir
	}
	return s
}

// Totals sums profit overall and per symbol.
func Totals(positions []broker.Position) (float64, map[string]float64) {
	net := decimal.Zero
	per := map[string]decimal.Decimal{}
	for _, p := range positions {
		v := decimal.NewFromFloat(p.Profit)
		net = net.Add(v)
		per[p.Symbol] = per[p.Symbol].Add(v)
	}

	bySymbol := make(map[string]float64, len(per))
	for k, v := range per {
		bySymbol[k] = v.InexactFloat64()
	}
	return net.InexactFloat64(), bySymbol
}

// Sample appends the current net PnL to the history, and each symbol's PnL
// to its own history. Nothing is recorded while net PnL is zero.
func (a *Aggregator) Sample() (bool, error) {
	a.mu.Lock()
	if a.net == 0 {
		a.mu.Unlock()
		return false, nil
	}

	now := a.now()
	a.history.Push(Point{Time: now, Value: a.net})

	samples := []journal.Sample{{AccountID: a.account, Time: now, Value: a.net}}
	for sym, v := range a.bySymbol {
		r, ok := a.symbols[sym]
		if !ok {
			r = NewRing(a.capacity)
			a.symbols[sym] = r
		}
		r.Push(Point{Time: now, Value: v})
		samples = append(samples, journal.Sample{AccountID: a.account, Symbol: sym, Time: now, Value: v})
	}
	sink := a.sink
	a.mu.Unlock()

	if sink == nil {
		return true, nil
	}
	for _, s := range samples {
		if err := sink.RecordSample(s); err != nil {
			return true, err
		}
	}
	return true, nil
}

// History returns the net PnL series, oldest first.
func (a *Aggregator) History() []Point {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Points()
}

// SymbolHistory returns the series for sym, oldest first.
func (a *Aggregator) SymbolHistory(sym string) []Point {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.symbols[sym]
	if !ok {
		return nil
	}
	return r.Points()
}

// Symbols lists the symbols with a history, sorted.
func (a *Aggregator) Symbols() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.symbols))
	for k := range a.symbols {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Seed preloads the net history, e.g. from the journal after a restart.
func (a *Aggregator) Seed(points []Point) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range points {
		a.history.Push(p)
	}
}
