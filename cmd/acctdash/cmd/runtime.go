package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rustyeddy/acctdash/broker"
	"github.com/rustyeddy/acctdash/dashboard"
	"github.com/rustyeddy/acctdash/ingest"
	"github.com/rustyeddy/acctdash/internal/metrics"
	"github.com/rustyeddy/acctdash/journal"
	"github.com/rustyeddy/acctdash/pnl"
	"github.com/rustyeddy/acctdash/session"
	"github.com/rustyeddy/acctdash/stream"
)

var errOffline = errors.New("offline replay: no backend")

// offline stands in for the backend while replaying a recording.
type offline struct{}

func (offline) ListAccounts(ctx context.Context) ([]broker.Account, error) {
	return nil, errOffline
}

func (offline) GetAccount(ctx context.Context, id string) (broker.Account, error) {
	return broker.Account{}, errOffline
}

// newDashboard builds the runtime from the loaded config. The returned
// journal must be closed by the caller.
func newDashboard(f ingest.Fetcher, m *metrics.Metrics, noRefresh bool) (*dashboard.Dashboard, journal.Journal, error) {
	d, err := cfg.Durations()
	if err != nil {
		return nil, nil, err
	}

	j, err := journal.Open(cfg.Journal.Type, cfg.Journal.CSVPath, cfg.Journal.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}

	dash := dashboard.New(f, dashboard.Options{
		TickInterval:    d.TickInterval,
		SampleInterval:  d.SampleInterval,
		RefreshInterval: d.RefreshInterval,
		FlashWindow:     d.FlashWindow,
		HistorySize:     cfg.Dashboard.HistorySize,
		Account:         cfg.Dashboard.Account,
		NoRefresh:       noRefresh,
		Journal:         j,
		Logger:          slog.Default(),
		Metrics:         m,
	})
	return dash, j, nil
}

// seedHistory restores the selected account's net series from a SQLite
// journal so the sparkline survives restarts.
func seedHistory(dash *dashboard.Dashboard, j journal.Journal) {
	db, ok := j.(*journal.SQLite)
	if !ok {
		return
	}
	acct := dash.Aggregator().Account()
	if acct == "" {
		return
	}

	samples, err := db.ListSamples(journal.Query{AccountID: acct, Limit: cfg.Dashboard.HistorySize})
	if err != nil {
		slog.Warn("reading journaled history", "err", err)
		return
	}
	pts := make([]pnl.Point, len(samples))
	for i, s := range samples {
		pts[i] = pnl.Point{Time: s.Time, Value: s.Value}
	}
	dash.Aggregator().Seed(pts)
}

// openEvents dials the push-event connection. A failure is logged and nil
// is returned: the dashboard then runs on REST refreshes alone.
func openEvents(ctx context.Context, s *session.Session) stream.Source {
	url := cfg.Server.EventsURL
	if url == "" {
		u, err := stream.EventsURL(cfg.Server.BaseURL)
		if err != nil {
			slog.Warn("no events url", "err", err)
			return nil
		}
		url = u
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := stream.Dial(dialCtx, url, s.Token, s.HTTPCookies()...)
	if err != nil {
		slog.Warn("event stream unavailable, using REST refresh only", "url", url, "err", err)
		return nil
	}
	slog.Info("event stream connected", "url", url)
	return conn
}

// openReplay reads a recorded event file.
func openReplay(path string, every time.Duration) (stream.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	return stream.Paced(stream.NewReader(f), every), nil
}
