package store

import (
	"testing"
	"time"

	"github.com/rustyeddy/acctdash/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) *Store {
	t.Helper()

	s := New()
	s.ReplaceAccounts([]broker.Account{
		{
			ID:        "A",
			Info:      broker.AccountInfo{Name: "alpha", Balance: 1000},
			Positions: []broker.Position{{ID: "p1", Symbol: "EURUSD"}, {ID: "p2", Symbol: "GBPUSD"}},
		},
		{
			ID:        "B",
			Positions: []broker.Position{{ID: "p1", Symbol: "USDJPY"}},
		},
	})
	return s
}

func TestReplaceAccounts(t *testing.T) {
	s := seed(t)

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "A", snap[0].ID)
	assert.Equal(t, "B", snap[1].ID)

	s.ReplaceAccounts([]broker.Account{{ID: "C"}})
	assert.False(t, s.Has("A"))
	assert.True(t, s.Has("C"))
}

func TestReplaceAccountsKeepsSelection(t *testing.T) {
	s := seed(t)
	require.NoError(t, s.Select("B"))

	s.ReplaceAccounts([]broker.Account{{ID: "B"}, {ID: "D"}})
	assert.Equal(t, "B", s.Selected())

	s.ReplaceAccounts([]broker.Account{{ID: "D"}})
	assert.Equal(t, "", s.Selected())
}

func TestMergeAccountsKeepsHeldPositions(t *testing.T) {
	s := seed(t)
	require.NoError(t, s.Select("A"))

	s.MergeAccounts([]broker.Account{
		{ID: "A", Info: broker.AccountInfo{Name: "renamed"}},
		{ID: "C", Positions: []broker.Position{{ID: "c1"}}},
	})

	a, err := s.Account("A")
	require.NoError(t, err)
	assert.Equal(t, "renamed", a.Info.Name)
	assert.Len(t, a.Positions, 2)
	c, _ := s.Account("C")
	assert.Len(t, c.Positions, 1)
	assert.False(t, s.Has("B"))
	assert.Equal(t, "A", s.Selected())
}

func TestMergeAccountsDoesNotRollBackUpdates(t *testing.T) {
	s := seed(t)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				s.MergeAccounts([]broker.Account{{ID: "A"}, {ID: "B"}})
			}
		}
	}()

	lost := 0
	for i := 1; i <= 5000; i++ {
		s.Update("A", func(a *broker.Account) {
			a.Positions[0].Profit = float64(i)
		})
		a, err := s.Account("A")
		require.NoError(t, err)
		if a.Positions[0].Profit != float64(i) {
			lost++
		}
	}
	close(stop)
	<-done

	assert.Zero(t, lost)
}

func TestSetConnection(t *testing.T) {
	s := seed(t)
	s.Update("A", func(a *broker.Account) { a.ConnectedToBroker = true })

	require.True(t, s.SetConnection("A", true))
	a, _ := s.Account("A")
	assert.True(t, a.Connected)
	assert.True(t, a.ConnectedToBroker)

	require.True(t, s.SetConnection("A", false))
	a, _ = s.Account("A")
	assert.False(t, a.Connected)
	assert.False(t, a.ConnectedToBroker)

	assert.False(t, s.SetConnection("Z", true))
}

func TestUpsertAccountInfoIdempotent(t *testing.T) {
	s := seed(t)
	info := broker.AccountInfo{Name: "renamed", Balance: 2000, Equity: 2100}

	assert.True(t, s.UpsertAccountInfo("A", info))
	first, err := s.Account("A")
	require.NoError(t, err)

	assert.True(t, s.UpsertAccountInfo("A", info))
	second, err := s.Account("A")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "renamed", second.Info.Name)
	assert.Len(t, second.Positions, 2)
}

func TestUnknownAccountIsNoop(t *testing.T) {
	s := seed(t)
	before := s.Snapshot()

	assert.False(t, s.UpsertAccountInfo("Z", broker.AccountInfo{Name: "ghost"}))
	assert.False(t, s.UpsertPosition("Z", broker.Position{ID: "p9"}))
	assert.False(t, s.RemovePosition("Z", "p1"))
	assert.False(t, s.ReplaceDetail(broker.Account{ID: "Z"}))

	assert.Equal(t, before, s.Snapshot())

	_, err := s.Account("Z")
	assert.ErrorIs(t, err, ErrUnknownAccount)
	assert.ErrorIs(t, s.Select("Z"), ErrUnknownAccount)
}

func TestUpsertPosition(t *testing.T) {
	s := seed(t)

	p := broker.Position{ID: "p1", Symbol: "EURUSD", Profit: 3}
	require.True(t, s.UpsertPosition("A", p))
	require.True(t, s.UpsertPosition("A", p))
	require.True(t, s.UpsertPosition("A", broker.Position{ID: "p3", Symbol: "AUDUSD"}))

	a, err := s.Account("A")
	require.NoError(t, err)
	require.Len(t, a.Positions, 3)
	assert.Equal(t, 3.0, a.Positions[0].Profit)
	assert.Equal(t, "p3", a.Positions[2].ID)
}

func TestRemovePositionScopedToAccount(t *testing.T) {
	s := seed(t)

	require.True(t, s.RemovePosition("A", "p1"))
	require.True(t, s.RemovePosition("A", "p1"))

	a, _ := s.Account("A")
	b, _ := s.Account("B")
	require.Len(t, a.Positions, 1)
	assert.Equal(t, "p2", a.Positions[0].ID)
	require.Len(t, b.Positions, 1)
	assert.Equal(t, "p1", b.Positions[0].ID)
}

func TestReplaceDetail(t *testing.T) {
	s := seed(t)
	s.Update("A", func(a *broker.Account) {
		a.Connected = true
		a.ConnectedToBroker = true
	})

	ok := s.ReplaceDetail(broker.Account{
		ID:        "A",
		Info:      broker.AccountInfo{Name: "fresh"},
		Positions: []broker.Position{{ID: "p7"}},
		Orders:    []broker.Order{{ID: "o1", State: "placed"}},
	})
	require.True(t, ok)

	a, _ := s.Account("A")
	assert.Equal(t, "fresh", a.Info.Name)
	require.Len(t, a.Positions, 1)
	assert.Equal(t, "p7", a.Positions[0].ID)
	require.Len(t, a.Orders, 1)
	assert.True(t, a.Connected)
	assert.True(t, a.ConnectedToBroker)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := seed(t)

	snap := s.Snapshot()
	snap[0].Positions[0].Profit = 99
	snap[0].Info.Name = "mutated"

	a, _ := s.Account("A")
	assert.Equal(t, 0.0, a.Positions[0].Profit)
	assert.Equal(t, "alpha", a.Info.Name)
}

func TestOnChange(t *testing.T) {
	s := New()

	var got []string
	s.OnChange(func(id string) { got = append(got, id) })

	s.ReplaceAccounts([]broker.Account{{ID: "A"}})
	s.UpsertPosition("A", broker.Position{ID: "p1"})
	s.UpsertPosition("Z", broker.Position{ID: "p1"})
	require.NoError(t, s.Select("A"))

	assert.Equal(t, []string{"", "A", "A"}, got)
}

func TestListenerMayReadStore(t *testing.T) {
	s := New()
	var seen int
	s.OnChange(func(id string) {
		if a, err := s.Account(id); err == nil {
			seen = len(a.Positions)
		}
	})

	s.ReplaceAccounts([]broker.Account{{ID: "A"}})
	s.UpsertPosition("A", broker.Position{ID: "p1"})
	assert.Equal(t, 1, seen)
}

func TestMarkRealDataIsMonotonic(t *testing.T) {
	s := New()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.MarkRealData(t0)
	s.MarkRealData(t0.Add(-time.Second))
	assert.Equal(t, t0, s.LastRealData())

	assert.Equal(t, Realtime, s.Staleness(t0.Add(2*time.Second)))
}

func TestClassify(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		last time.Time
		want Freshness
	}{
		{"never", time.Time{}, NoData},
		{"just now", now, Realtime},
		{"edge realtime", now.Add(-RealtimeWindow), Realtime},
		{"recent", now.Add(-30 * time.Second), Recent},
		{"stale", now.Add(-2 * time.Minute), Stale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.last, now))
		})
	}
}
