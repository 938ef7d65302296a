package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rustyeddy/acctdash/broker"
	"github.com/rustyeddy/acctdash/store"
	"github.com/rustyeddy/acctdash/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	mu       sync.Mutex
	accounts []broker.Account
	details  map[string]broker.Account
	listErr  error

	detailCalls atomic.Int32
}

func (b *backend) ListAccounts(ctx context.Context) ([]broker.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts, b.listErr
}

func (b *backend) GetAccount(ctx context.Context, id string) (broker.Account, error) {
	b.detailCalls.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.details[id], nil
}

func newBackend() *backend {
	return &backend{
		accounts: []broker.Account{
			{ID: "A", Info: broker.AccountInfo{Name: "alpha", Currency: "USD"}},
			{ID: "B", Info: broker.AccountInfo{Name: "beta", Currency: "EUR"}},
		},
		details: map[string]broker.Account{
			"A": {ID: "A", Positions: []broker.Position{
				{ID: "p1", Symbol: "EURUSD", Side: broker.Buy, Volume: 1, CurrentPrice: 1.1, Profit: 10},
				{ID: "p2", Symbol: "GBPUSD", Side: broker.Sell, Volume: 1, CurrentPrice: 1.3, Profit: -4},
			}},
			"B": {ID: "B", Positions: []broker.Position{
				{ID: "p9", Symbol: "USDJPY", Side: broker.Buy, Volume: 2, CurrentPrice: 150, Profit: 3},
			}},
		},
	}
}

func TestStartSelectsFirstAccount(t *testing.T) {
	b := newBackend()
	d := New(b, Options{})

	require.NoError(t, d.Start(context.Background()))

	assert.Equal(t, "A", d.Store().Selected())
	assert.Equal(t, int32(1), b.detailCalls.Load())
	assert.InDelta(t, 6.0, d.Aggregator().Current().Net, 1e-9)
	assert.Equal(t, "A", d.Aggregator().Account())
}

func TestStartConfiguredAccount(t *testing.T) {
	d := New(newBackend(), Options{Account: "B"})
	require.NoError(t, d.Start(context.Background()))
	assert.Equal(t, "B", d.Store().Selected())
	assert.InDelta(t, 3.0, d.Aggregator().Current().Net, 1e-9)
}

func TestStartMissingConfiguredAccountFallsBack(t *testing.T) {
	d := New(newBackend(), Options{Account: "Z"})
	require.NoError(t, d.Start(context.Background()))
	assert.Equal(t, "A", d.Store().Selected())
}

func TestStartListError(t *testing.T) {
	b := newBackend()
	b.listErr = errors.New("boom")
	d := New(b, Options{})

	err := d.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load accounts")
}

func TestStartNoAccounts(t *testing.T) {
	b := newBackend()
	b.accounts = nil
	d := New(b, Options{})

	require.NoError(t, d.Start(context.Background()))
	assert.Equal(t, "", d.Store().Selected())
}

func TestSelectResetsAggregator(t *testing.T) {
	b := newBackend()
	d := New(b, Options{})
	ctx := context.Background()
	require.NoError(t, d.Start(ctx))

	_, err := d.Aggregator().Sample()
	require.NoError(t, err)
	require.Len(t, d.Aggregator().History(), 1)

	require.NoError(t, d.Select(ctx, "B"))
	d.Ingester().Wait()

	assert.Equal(t, "B", d.Aggregator().Account())
	assert.Empty(t, d.Aggregator().History())
	assert.InDelta(t, 3.0, d.Aggregator().Current().Net, 1e-9)

	assert.ErrorIs(t, d.Select(ctx, "Z"), store.ErrUnknownAccount)
}

const replay = `# recorded session
{"event":"positionUpdated","accountId":"A","position":{"id":"p1","currentPrice":1.2,"profit":25}}
not json
{"event":"positionRemoved","accountId":"A","positionId":"p2"}
{"event":"somethingNew"}
`

func TestDrainAppliesEventsAndSkipsMalformed(t *testing.T) {
	b := newBackend()
	d := New(b, Options{})
	ctx := context.Background()
	require.NoError(t, d.Start(ctx))

	require.NoError(t, d.Drain(ctx, stream.NewReader(strings.NewReader(replay))))
	assert.False(t, d.Connected())

	a, err := d.Store().Account("A")
	require.NoError(t, err)
	require.Len(t, a.Positions, 1)
	assert.Equal(t, broker.Up, a.Positions[0].PriceChange)
	assert.True(t, a.Positions[0].IsRealData)
	assert.InDelta(t, 25.0, d.Aggregator().Current().Net, 1e-9)
}

func TestRunStopsOnCancel(t *testing.T) {
	b := newBackend()
	d := New(b, Options{
		TickInterval:    5 * time.Millisecond,
		SampleInterval:  5 * time.Millisecond,
		RefreshInterval: 5 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Start(ctx))

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, stream.NewReader(strings.NewReader(""))) }()

	assert.Eventually(t, func() bool {
		return len(d.Aggregator().History()) > 0 && b.detailCalls.Load() > 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestState(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	d := New(newBackend(), Options{Clock: func() time.Time { return now }})
	require.NoError(t, d.Start(context.Background()))

	s := d.State()
	assert.Len(t, s.Accounts, 2)
	assert.Equal(t, "A", s.Selected)
	require.NotNil(t, s.Account)
	assert.Len(t, s.Account.Positions, 2)
	assert.Equal(t, store.Realtime, s.Freshness)
	assert.False(t, s.Connected)
	assert.Equal(t, now, s.At)
}

func TestReplaySelectsFromInitialAccounts(t *testing.T) {
	d := New(newBackend(), Options{Account: "B", NoRefresh: true})
	ctx := context.Background()

	src := stream.NewReader(strings.NewReader(`{"event":"initialAccounts","accounts":[` +
		`{"id":"A","positions":[{"id":"p1","symbol":"EURUSD","type":"buy","volume":1,"profit":2}]},` +
		`{"id":"B","positions":[{"id":"p2","symbol":"GBPUSD","type":"sell","volume":1,"profit":-1.5}]}]}` + "\n"))
	require.NoError(t, d.Drain(ctx, src))

	assert.Equal(t, "B", d.Store().Selected())
	assert.InDelta(t, -1.5, d.Aggregator().Current().Net, 1e-9)
}
