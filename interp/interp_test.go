package interp

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rustyeddy/acctdash/broker"
	"github.com/rustyeddy/acctdash/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func authoritative(p broker.Position) broker.Position {
	p.MarkReal(t0)
	return p
}

func TestNudgeBuyAndSell(t *testing.T) {
	now := t0.Add(time.Second)

	buy := authoritative(broker.Position{Side: broker.Buy, Volume: 2, CurrentPrice: 1.1000, Profit: 10})
	require.True(t, Nudge(&buy, 0.0002, now))
	d := 1.1000 * 0.0002
	assert.InDelta(t, 1.1000+d, buy.CurrentPrice, 1e-12)
	assert.InDelta(t, 10+d*2, buy.Profit, 1e-12)
	assert.Greater(t, buy.Profit, 10.0)
	assert.Equal(t, broker.Up, buy.TickDirection)

	sell := authoritative(broker.Position{Side: broker.Sell, Volume: 2, CurrentPrice: 1.1000, Profit: 10})
	require.True(t, Nudge(&sell, 0.0002, now))
	assert.InDelta(t, 10-d*2, sell.Profit, 1e-12)
	assert.Less(t, sell.Profit, 10.0)

	sell2 := authoritative(broker.Position{Side: broker.Sell, Volume: 1, CurrentPrice: 1.1000})
	require.True(t, Nudge(&sell2, -0.0003, now))
	assert.Greater(t, sell2.Profit, 0.0)
	assert.Equal(t, broker.Down, sell2.TickDirection)
}

func TestNudgeNeverMarksReal(t *testing.T) {
	now := t0.Add(time.Second)
	p := authoritative(broker.Position{Side: broker.Buy, Volume: 1, CurrentPrice: 1.2})

	require.True(t, Nudge(&p, 0.0001, now))
	assert.False(t, p.IsRealData)
	require.NotNil(t, p.LastUpdate)
	assert.Equal(t, t0, *p.LastUpdate, "LastUpdate is authoritative-only")
	require.NotNil(t, p.LastTickTime)
	assert.Equal(t, now, *p.LastTickTime)
}

func TestNudgeSkipsNeverUpdated(t *testing.T) {
	p := broker.Position{Side: broker.Buy, Volume: 1, CurrentPrice: 1.2, Profit: 3}
	before := p

	assert.False(t, Nudge(&p, 0.0005, t0))
	assert.Equal(t, before, p)
}

func TestMoveRange(t *testing.T) {
	tk := New(store.New(), WithRand(rand.New(rand.NewSource(42))))

	var ups, downs int
	for i := 0; i < 1000; i++ {
		m := tk.Move()
		assert.GreaterOrEqual(t, math.Abs(m), MinMove)
		assert.LessOrEqual(t, math.Abs(m), MaxMove)
		if m > 0 {
			ups++
		} else {
			downs++
		}
	}
	assert.Greater(t, ups, 300)
	assert.Greater(t, downs, 300)
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New()
	st.ReplaceAccounts([]broker.Account{
		{ID: "A", Positions: []broker.Position{
			authoritative(broker.Position{ID: "p1", Side: broker.Buy, Volume: 1, CurrentPrice: 1.1}),
			{ID: "p2", Side: broker.Sell, Volume: 1, CurrentPrice: 150.0, Profit: 7},
		}},
		{ID: "B", Positions: []broker.Position{
			authoritative(broker.Position{ID: "p1", Side: broker.Buy, Volume: 1, CurrentPrice: 1.3}),
		}},
	})
	return st
}

func TestTickOnlySelectedAccount(t *testing.T) {
	st := newStore(t)
	tk := New(st, WithRand(rand.New(rand.NewSource(1))), WithClock(func() time.Time { return t0.Add(time.Second) }))

	assert.Equal(t, 0, tk.Tick(), "nothing selected")

	require.NoError(t, st.Select("A"))
	assert.Equal(t, 1, tk.Tick())

	a, _ := st.Account("A")
	assert.NotEqual(t, 1.1, a.Positions[0].CurrentPrice)
	assert.False(t, a.Positions[0].IsRealData)
	assert.Equal(t, 150.0, a.Positions[1].CurrentPrice)
	assert.Equal(t, 7.0, a.Positions[1].Profit)
	assert.Nil(t, a.Positions[1].LastTickTime)

	b, _ := st.Account("B")
	assert.Equal(t, 1.3, b.Positions[0].CurrentPrice)
	assert.True(t, b.Positions[0].IsRealData)
}

func TestRunStopsOnCancel(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Select("A"))
	tk := New(st, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := tk.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	a, _ := st.Account("A")
	assert.NotNil(t, a.Positions[0].LastTickTime)
}
