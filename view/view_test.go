package view

import (
	"testing"
	"time"

	"github.com/rustyeddy/acctdash/broker"
	"github.com/rustyeddy/acctdash/dashboard"
	"github.com/rustyeddy/acctdash/pnl"
	"github.com/rustyeddy/acctdash/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		currency string
		want     string
	}{
		{"usd", 1234.5, "USD", "$1,234.50"},
		{"usd rounding", 0.005, "USD", "$0.01"},
		{"no currency", 12.345, "", "12.35"},
		{"unknown currency", 3, "XXXX", "3.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Money(tt.amount, tt.currency))
		})
	}
	assert.Equal(t, "+$2.00", Signed(2, "USD"))
}

func TestArrow(t *testing.T) {
	assert.Equal(t, "▲", Arrow(broker.Up))
	assert.Equal(t, "▼", Arrow(broker.Down))
	assert.Equal(t, "", Arrow(broker.None))
}

func state() dashboard.State {
	acct := broker.Account{
		ID:        "A",
		Connected: true,
		Info:      broker.AccountInfo{Name: "alpha", Login: "1001", Server: "Demo-1", Currency: "USD", Balance: 1000, Equity: 1006},
		Positions: []broker.Position{
			{ID: "p1", Symbol: "EURUSD", Side: broker.Buy, Volume: 1, OpenPrice: 1.1, CurrentPrice: 1.1010, Profit: 10, PriceChange: broker.Up, IsRealData: true},
			{ID: "p2", Symbol: "GBPUSD", Side: broker.Sell, Volume: 1, OpenPrice: 1.3, CurrentPrice: 1.3040, Profit: -4, TickDirection: broker.Down},
		},
		Orders: []broker.Order{{ID: "o1", Symbol: "USDJPY", Type: "limit", Volume: 0.5, OpenPrice: 150, State: "placed"}},
	}
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return dashboard.State{
		Accounts:  []broker.Account{acct, {ID: "B", Info: broker.AccountInfo{Name: "beta"}}},
		Selected:  "A",
		Account:   &acct,
		Summary:   pnl.Summary{Net: 6, Direction: broker.Up, BySymbol: map[string]float64{"EURUSD": 10, "GBPUSD": -4}},
		History:   []pnl.Point{{Time: t0, Value: 1}, {Time: t0.Add(5 * time.Second), Value: 6}},
		Freshness: store.Realtime,
		Connected: true,
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(state())

	assert.Contains(t, md, "# alpha")
	assert.Contains(t, md, "Data realtime, stream connected.")
	assert.Contains(t, md, "**+$6.00** ▲")
	assert.Contains(t, md, "Trend `▁█`")
	assert.Contains(t, md, "| EURUSD | buy | 1.00 | 1.10000 | 1.10100 ▲ | +$10.00 | live |")
	assert.Contains(t, md, "1.30400 ▼")
	assert.Contains(t, md, "est.")
	assert.Contains(t, md, "## Orders")
	assert.Contains(t, md, "| * | A | alpha | Demo-1 | online | $1,000.00 |")
}

func TestMarkdownNoSelection(t *testing.T) {
	s := state()
	s.Account = nil
	s.Selected = ""
	md := Markdown(s)
	assert.Contains(t, md, "# Accounts")
	assert.Contains(t, md, "| B | beta |")

	assert.Contains(t, Markdown(dashboard.State{}), "No accounts")
}

func TestRender(t *testing.T) {
	out, err := Render(Markdown(state()), "notty", 120)
	require.NoError(t, err)
	assert.Contains(t, out, "EURUSD")
	assert.Contains(t, out, "alpha")
}
