// Package interp nudges displayed prices between authoritative updates so
// the dashboard looks live. Nothing it writes is ever treated as real data.
package interp

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/rustyeddy/acctdash/broker"
	"github.com/rustyeddy/acctdash/internal/metrics"
	"github.com/rustyeddy/acctdash/store"
)

const (
	DefaultInterval = 500 * time.Millisecond

	// relative move per tick, as a fraction of the current price
	MinMove = 0.0001
	MaxMove = 0.0005
)

type Ticker struct {
	store    *store.Store
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger
	metrics  *metrics.Metrics

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Ticker)

func WithInterval(d time.Duration) Option {
	return func(t *Ticker) {
		if d > 0 {
			t.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Ticker) { t.now = now }
}

// WithRand replaces the random source; tests use a fixed seed.
func WithRand(r *rand.Rand) Option {
	return func(t *Ticker) { t.rnd = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Ticker) { t.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Ticker) { t.metrics = m }
}

func New(st *store.Store, opts ...Option) *Ticker {
	t := &Ticker{
		store:    st,
		interval: DefaultInterval,
		now:      time.Now,
		log:      slog.Default(),
		metrics:  metrics.Nop(),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Move returns the signed relative move for one tick.
func (t *Ticker) Move() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := MinMove + t.rnd.Float64()*(MaxMove-MinMove)
	if t.rnd.Intn(2) == 0 {
		m = -m
	}
	return m
}

// Tick perturbs every position of the selected account that has seen
// authoritative data and returns how many positions moved.
func (t *Ticker) Tick() int {
	id := t.store.Selected()
	if id == "" {
		return 0
	}

	now := t.now()
	moved := 0
	t.store.Update(id, func(a *broker.Account) {
		for i := range a.Positions {
			if Nudge(&a.Positions[i], t.Move(), now) {
				moved++
			}
		}
	})
	t.metrics.InterpolatedTicks.Add(float64(moved))
	return moved
}

// Nudge moves p by rel (a fraction of its current price) and adjusts the
// profit linearly. Positions without a LastUpdate are left alone.
func Nudge(p *broker.Position, rel float64, now time.Time) bool {
	if p.LastUpdate == nil {
		return false
	}

	delta := p.CurrentPrice * rel
	p.CurrentPrice += delta
	switch p.Side {
	case broker.Sell:
		p.Profit -= delta * p.Volume
	default:
		p.Profit += delta * p.Volume
	}

	p.TickDirection = broker.Compare(0, delta)
	ts := now
	p.LastTickTime = &ts
	p.IsRealData = false
	return true
}

// Run ticks until ctx is done.
func (t *Ticker) Run(ctx context.Context) error {
	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	t.log.Debug("interpolation ticker started", "interval", t.interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tk.C:
			t.Tick()
		}
	}
}
