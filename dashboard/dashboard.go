// Package dashboard wires the store, the ingester, the interpolation ticker
// and the PnL aggregator together and runs their loops.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/acctdash/broker"
	"github.com/rustyeddy/acctdash/ingest"
	"github.com/rustyeddy/acctdash/internal/metrics"
	"github.com/rustyeddy/acctdash/interp"
	"github.com/rustyeddy/acctdash/journal"
	"github.com/rustyeddy/acctdash/pnl"
	"github.com/rustyeddy/acctdash/store"
	"github.com/rustyeddy/acctdash/stream"
	"golang.org/x/sync/errgroup"
)

// Options configures a Dashboard. Zero durations take the package defaults.
type Options struct {
	TickInterval    time.Duration
	SampleInterval  time.Duration
	RefreshInterval time.Duration
	FlashWindow     time.Duration
	HistorySize     int

	// Account is preferred when a selection has to be made. Otherwise the
	// first account in the list is selected.
	Account string

	// NoRefresh disables the detail auto-refresh, for offline replays.
	NoRefresh bool

	Journal journal.Journal
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Clock   func() time.Time
}

const DefaultRefreshInterval = 10 * time.Second

type Dashboard struct {
	store  *store.Store
	ingest *ingest.Ingester
	ticker *interp.Ticker
	agg    *pnl.Aggregator

	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	account      string
	sampleEvery  time.Duration
	refreshEvery time.Duration
	noRefresh    bool

	connected atomic.Bool
}

func New(f ingest.Fetcher, opts Options) *Dashboard {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = pnl.DefaultSampleEvery
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}

	st := store.New()
	pnlOpts := []pnl.Option{
		pnl.WithClock(opts.Clock),
		pnl.WithFlashWindow(opts.FlashWindow),
		pnl.WithHistorySize(opts.HistorySize),
	}
	if opts.Journal != nil {
		pnlOpts = append(pnlOpts, pnl.WithJournal(opts.Journal))
	}

	d := &Dashboard{
		store: st,
		ingest: ingest.New(st, f,
			ingest.WithClock(opts.Clock),
			ingest.WithLogger(opts.Logger),
			ingest.WithMetrics(opts.Metrics),
		),
		ticker: interp.New(st,
			interp.WithInterval(opts.TickInterval),
			interp.WithClock(opts.Clock),
			interp.WithLogger(opts.Logger),
			interp.WithMetrics(opts.Metrics),
		),
		agg:          pnl.New(pnlOpts...),
		log:          opts.Logger,
		metrics:      opts.Metrics,
		now:          opts.Clock,
		account:      opts.Account,
		sampleEvery:  opts.SampleInterval,
		refreshEvery: opts.RefreshInterval,
		noRefresh:    opts.NoRefresh,
	}
	st.OnChange(d.changed)
	return d
}

func (d *Dashboard) Store() *store.Store { return d.store }
func (d *Dashboard) Ingester() *ingest.Ingester { return d.ingest }
func (d *Dashboard) Ticker() *interp.Ticker { return d.ticker }
func (d *Dashboard) Aggregator() *pnl.Aggregator { return d.agg }
func (d *Dashboard) Connected() bool { return d.connected.Load() }

// changed keeps the aggregator in step with the selected account, and
// picks an account when a new list leaves nothing selected.
func (d *Dashboard) changed(accountID string) {
	sel := d.store.Selected()
	if accountID == "" && sel == "" {
		if want := d.defaultAccount(); want != "" && d.store.Select(want) == nil {
			// Select notified again with the new id
			return
		}
	}
	if accountID != "" && accountID != sel {
		return
	}
	if d.agg.Account() != sel {
		d.agg.Reset(sel)
	}
	if sel == "" {
		d.metrics.NetPnL.Set(0)
		return
	}

	a, err := d.store.Account(sel)
	if err != nil {
		return
	}
	sum := d.agg.Recompute(a.Positions)
	d.metrics.NetPnL.Set(sum.Net)
}

func (d *Dashboard) defaultAccount() string {
	if d.account != "" && d.store.Has(d.account) {
		return d.account
	}
	if accts := d.store.Snapshot(); len(accts) > 0 {
		return accts[0].ID
	}
	return ""
}

// Select switches the dashboard to another account and fetches its detail.
func (d *Dashboard) Select(ctx context.Context, accountID string) error {
	if err := d.store.Select(accountID); err != nil {
		return fmt.Errorf("select %s: %w", accountID, err)
	}
	// the refresh outlives a request-scoped ctx
	d.ingest.Go(context.WithoutCancel(ctx), func(ctx context.Context) {
		_, _ = d.ingest.RefreshDetail(ctx, accountID)
	})
	return nil
}

// Start loads the account list, which selects the configured account (or
// the first one), and fetches the selected account's detail.
func (d *Dashboard) Start(ctx context.Context) error {
	if err := d.ingest.RefreshAccounts(ctx); err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	if d.account != "" && !d.store.Has(d.account) {
		d.log.Warn("configured account not found", "account", d.account)
	}

	sel := d.store.Selected()
	if sel == "" {
		d.log.Info("no accounts yet")
		return nil
	}
	if _, err := d.ingest.RefreshDetail(ctx, sel); err != nil {
		return fmt.Errorf("load account %s: %w", sel, err)
	}
	return nil
}

// Run drives the event source, the interpolation ticker, the PnL sampler
// and the detail auto-refresh until ctx is done. src may be nil, in which
// case the dashboard runs on REST refreshes alone.
func (d *Dashboard) Run(ctx context.Context, src stream.Source) error {
	g, ctx := errgroup.WithContext(ctx)

	if src != nil {
		g.Go(func() error {
			<-ctx.Done()
			if err := src.Close(); err != nil {
				d.log.Debug("closing event source", "err", err)
			}
			return nil
		})
		g.Go(func() error {
			return d.Drain(ctx, src)
		})
	}

	g.Go(func() error {
		if err := d.ticker.Run(ctx); ctx.Err() == nil {
			return err
		}
		return nil
	})

	g.Go(func() error {
		d.every(ctx, d.sampleEvery, d.sample)
		return nil
	})

	if !d.noRefresh {
		g.Go(func() error {
			d.every(ctx, d.refreshEvery, func() {
				if _, err := d.ingest.RefreshDetail(ctx, d.store.Selected()); err != nil && ctx.Err() == nil {
					d.log.Warn("auto-refresh failed", "err", err)
				}
			})
			return nil
		})
	}

	err := g.Wait()
	d.ingest.Wait()
	return err
}

// Drain feeds events from src into the ingester until the source ends or
// fails. Malformed messages are skipped. The end of the stream is not an
// error: the dashboard keeps going on REST refreshes.
func (d *Dashboard) Drain(ctx context.Context, src stream.Source) error {
	d.connected.Store(true)
	d.metrics.StreamConnected.Set(1)
	defer func() {
		d.connected.Store(false)
		d.metrics.StreamConnected.Set(0)
	}()

	for {
		ev, err := src.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, stream.ErrMalformed):
			d.log.Warn("skipping malformed event", "err", err)
			continue
		case errors.Is(err, io.EOF):
			d.log.Info("event stream closed")
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			d.log.Warn("event stream disconnected", "err", err)
			return nil
		}

		if err := d.ingest.Handle(ctx, ev); err != nil {
			d.log.Warn("skipping event", "event", ev.Name, "err", err)
		}
	}
}

func (d *Dashboard) sample() {
	if _, err := d.agg.Sample(); err != nil {
		d.log.Warn("journal write failed", "err", err)
	}
}

func (d *Dashboard) every(ctx context.Context, period time.Duration, fn func()) {
	tk := time.NewTicker(period)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			fn()
		}
	}
}

// State is a consistent-enough snapshot for rendering.
type State struct {
	Accounts  []broker.Account `json:"accounts"`
	Selected  string           `json:"selected"`
	Account   *broker.Account  `json:"account,omitempty"`
	Summary   pnl.Summary      `json:"summary"`
	History   []pnl.Point      `json:"history"`
	Freshness store.Freshness  `json:"freshness"`
	Connected bool             `json:"connected"`
	At        time.Time        `json:"at"`
}

func (d *Dashboard) State() State {
	now := d.now()
	s := State{
		Accounts:  d.store.Snapshot(),
		Selected:  d.store.Selected(),
		Summary:   d.agg.Current(),
		History:   d.agg.History(),
		Freshness: d.store.Staleness(now),
		Connected: d.connected.Load(),
		At:        now,
	}
	if s.Selected != "" {
		if a, err := d.store.Account(s.Selected); err == nil {
			s.Account = &a
		}
	}
	return s
}
