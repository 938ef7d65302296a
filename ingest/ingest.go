// Package ingest applies authoritative data to the store: REST snapshots
// and push events. Everything it writes is marked real and stamped with the
// processing time.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/acctdash/broker"
	"github.com/rustyeddy/acctdash/internal/metrics"
	"github.com/rustyeddy/acctdash/store"
	"github.com/rustyeddy/acctdash/stream"
)

// Fetcher is the part of the REST backend the ingester re-fetches from.
type Fetcher interface {
	ListAccounts(ctx context.Context) ([]broker.Account, error)
	GetAccount(ctx context.Context, id string) (broker.Account, error)
}

type Ingester struct {
	store   *store.Store
	fetch   Fetcher
	now     func() time.Time
	log     *slog.Logger
	metrics *metrics.Metrics

	refreshing atomic.Bool
	wg         sync.WaitGroup
}

type Option func(*Ingester)

func WithClock(now func() time.Time) Option {
	return func(in *Ingester) { in.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(in *Ingester) { in.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(in *Ingester) { in.metrics = m }
}

func New(st *store.Store, f Fetcher, opts ...Option) *Ingester {
	in := &Ingester{
		store:   st,
		fetch:   f,
		now:     time.Now,
		log:     slog.Default(),
		metrics: metrics.Nop(),
	}
	for _, o := range opts {
		o(in)
	}
	return in
}

// ApplyAccounts installs a "list accounts" response. List entries usually
// carry no positions; for those the positions and orders already held are
// kept until the next detail fetch.
func (in *Ingester) ApplyAccounts(accts []broker.Account) {
	now := in.now()

	next := make([]broker.Account, len(accts))
	for i, a := range accts {
		a = a.Clone()
		for j := range a.Positions {
			a.Positions[j].MarkReal(now)
		}
		next[i] = a
	}

	in.store.MergeAccounts(next)
	in.store.MarkRealData(now)
}

// ApplyDetail installs a "get account detail" response. Positions are
// authoritative; PriceChange is derived from the price held before.
func (in *Ingester) ApplyDetail(detail broker.Account) bool {
	now := in.now()

	prevPrice := make(map[string]float64)
	if old, err := in.store.Account(detail.ID); err == nil {
		for _, p := range old.Positions {
			prevPrice[p.ID] = p.CurrentPrice
		}
	}

	detail = detail.Clone()
	for i := range detail.Positions {
		p := &detail.Positions[i]
		if was, ok := prevPrice[p.ID]; ok {
			p.PriceChange = broker.Compare(was, p.CurrentPrice)
		}
		p.MarkReal(now)
	}

	if !in.store.ReplaceDetail(detail) {
		in.log.Debug("detail for unknown account dropped", "account", detail.ID)
		return false
	}
	in.store.MarkRealData(now)
	return true
}

// Handle applies one push event. Unknown event names are logged and ignored.
// The returned error only reports an undecodable payload.
func (in *Ingester) Handle(ctx context.Context, ev stream.Event) error {
	label := ev.Name
	if !stream.Known(label) {
		label = "unknown"
	}
	in.metrics.EventsTotal.WithLabelValues(label).Inc()

	now := in.now()
	switch ev.Name {
	case stream.InitialAccounts:
		accts := make([]broker.Account, len(ev.Accounts))
		for i, a := range ev.Accounts {
			a = a.Clone()
			for j := range a.Positions {
				a.Positions[j].MarkReal(now)
			}
			accts[i] = a
		}
		in.store.ReplaceAccounts(accts)

	case stream.AccountSynchronized, stream.AccountInformationUpdated:
		if ev.AccountInformation == nil {
			in.log.Debug("account event without information", "event", ev.Name, "account", ev.AccountID)
			return nil
		}
		in.upserted(ev, in.store.UpsertAccountInfo(ev.AccountID, *ev.AccountInformation))

	case stream.PositionUpdated:
		var patch positionPatch
		if err := json.Unmarshal(ev.Position, &patch); err != nil {
			return fmt.Errorf("%s: decode position: %w", ev.Name, err)
		}
		if patch.ID == nil || *patch.ID == "" {
			return fmt.Errorf("%s: position without id", ev.Name)
		}
		in.upserted(ev, in.store.Update(ev.AccountID, func(a *broker.Account) {
			applyPatch(a, patch, now)
		}))

	case stream.PositionsUpdated:
		ok := in.store.Update(ev.AccountID, func(a *broker.Account) {
			for _, p := range ev.Positions {
				upsertReal(a, p, now)
			}
		})
		in.upserted(ev, ok)
		in.Go(ctx, func(ctx context.Context) { in.RefreshDetail(ctx, ev.AccountID) })

	case stream.PositionRemoved:
		in.upserted(ev, in.store.RemovePosition(ev.AccountID, ev.PositionID))

	case stream.OrderCompleted:
		in.Go(ctx, func(ctx context.Context) { in.RefreshDetail(ctx, ev.AccountID) })

	case stream.AccountConnected, stream.AccountDisconnected:
		in.upserted(ev, in.store.SetConnection(ev.AccountID, ev.Name == stream.AccountConnected))
		in.Go(ctx, func(ctx context.Context) { _ = in.RefreshAccounts(ctx) })

	default:
		in.log.Warn("ignoring unknown event", "event", ev.Name)
		return nil
	}

	in.store.MarkRealData(now)
	return nil
}

func (in *Ingester) upserted(ev stream.Event, ok bool) {
	if !ok {
		in.log.Debug("event for unknown account dropped", "event", ev.Name, "account", ev.AccountID)
	}
}

// RefreshDetail re-fetches one account's detail. If another detail refresh
// is in flight the request is dropped and issued is false; the next
// scheduled refresh picks it up.
func (in *Ingester) RefreshDetail(ctx context.Context, accountID string) (issued bool, err error) {
	if accountID == "" {
		return false, nil
	}
	if !in.refreshing.CompareAndSwap(false, true) {
		in.metrics.RefreshDropped.Inc()
		in.log.Debug("detail refresh dropped, one already in flight", "account", accountID)
		return false, nil
	}
	defer in.refreshing.Store(false)

	detail, err := in.fetch.GetAccount(ctx, accountID)
	if err != nil {
		in.metrics.RefreshesTotal.WithLabelValues("detail", "error").Inc()
		in.log.Warn("detail refresh failed", "account", accountID, "err", err)
		return true, err
	}
	in.metrics.RefreshesTotal.WithLabelValues("detail", "ok").Inc()

	if detail.ID == "" {
		detail.ID = accountID
	}
	in.ApplyDetail(detail)
	return true, nil
}

// Refreshing reports whether a detail refresh is in flight.
func (in *Ingester) Refreshing() bool { return in.refreshing.Load() }

// RefreshAccounts re-fetches the account list. These are not coalesced; the
// last one to complete wins.
func (in *Ingester) RefreshAccounts(ctx context.Context) error {
	accts, err := in.fetch.ListAccounts(ctx)
	if err != nil {
		in.metrics.RefreshesTotal.WithLabelValues("list", "error").Inc()
		in.log.Warn("account list refresh failed", "err", err)
		return err
	}
	in.metrics.RefreshesTotal.WithLabelValues("list", "ok").Inc()
	in.ApplyAccounts(accts)
	return nil
}

// Go runs fn in the background, tracked by Wait.
func (in *Ingester) Go(ctx context.Context, fn func(ctx context.Context)) {
	in.wg.Add(1)
	go func() {
		defer in.wg.Done()
		fn(ctx)
	}()
}

// Wait blocks until background refreshes started by Handle have finished.
func (in *Ingester) Wait() { in.wg.Wait() }
