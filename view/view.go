// Package view renders dashboard state as markdown for the terminal.
package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rustyeddy/acctdash/broker"
	"github.com/rustyeddy/acctdash/dashboard"
	"github.com/rustyeddy/acctdash/pnl"
	"github.com/rustyeddy/acctdash/sparkline"
)

// Arrow marks a direction: "▲" up, "▼" down, "" otherwise.
func Arrow(d broker.Direction) string {
	switch d {
	case broker.Up:
		return "▲"
	case broker.Down:
		return "▼"
	}
	return ""
}

// Markdown renders the selected account, its PnL and the account list.
func Markdown(s dashboard.State) string {
	var b strings.Builder

	if s.Account == nil {
		b.WriteString("# Accounts\n\n")
		if len(s.Accounts) == 0 {
			b.WriteString("No accounts. Add one with `acctdash accounts add`.\n")
			return b.String()
		}
		writeAccounts(&b, s)
		return b.String()
	}

	a := s.Account
	cur := a.Info.Currency
	title := a.Info.Name
	if title == "" {
		title = a.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Login %s on %s. Data %s, stream %s.\n\n",
		orDash(a.Info.Login), orDash(a.Info.Server), s.Freshness, streamState(s.Connected))

	writeTable(&b, []string{"Balance", "Equity", "Margin", "Free margin", "Net PnL"}, [][]string{{
		Money(a.Info.Balance, cur),
		Money(a.Info.Equity, cur),
		Money(a.Info.Margin, cur),
		Money(a.Info.FreeMargin, cur),
		strings.TrimSpace("**" + Signed(s.Summary.Net, cur) + "** " + Arrow(s.Summary.Direction)),
	}})

	if bars := trend(s.History); bars != "" {
		fmt.Fprintf(&b, "\nTrend `%s`\n", bars)
	}

	b.WriteString("\n## Positions\n\n")
	if len(a.Positions) == 0 {
		b.WriteString("No open positions.\n")
	} else {
		rows := make([][]string, 0, len(a.Positions))
		for _, p := range a.Positions {
			rows = append(rows, []string{
				p.Symbol,
				string(p.Side),
				fmt.Sprintf("%.2f", p.Volume),
				fmt.Sprintf("%.5f", p.OpenPrice),
				strings.TrimSpace(fmt.Sprintf("%.5f %s", p.CurrentPrice, Arrow(tickOrChange(p)))),
				Signed(p.Profit, cur),
				source(p),
			})
		}
		writeTable(&b, []string{"Symbol", "Side", "Volume", "Open", "Current", "Profit", "Source"}, rows)
	}

	if len(s.Summary.BySymbol) > 0 {
		b.WriteString("\n## PnL by symbol\n\n")
		syms := make([]string, 0, len(s.Summary.BySymbol))
		for sym := range s.Summary.BySymbol {
			syms = append(syms, sym)
		}
		sort.Strings(syms)
		rows := make([][]string, len(syms))
		for i, sym := range syms {
			rows[i] = []string{sym, Signed(s.Summary.BySymbol[sym], cur)}
		}
		writeTable(&b, []string{"Symbol", "PnL"}, rows)
	}

	if len(a.Orders) > 0 {
		b.WriteString("\n## Orders\n\n")
		rows := make([][]string, len(a.Orders))
		for i, o := range a.Orders {
			rows[i] = []string{o.ID, o.Symbol, o.Type, fmt.Sprintf("%.2f", o.Volume), fmt.Sprintf("%.5f", o.OpenPrice), o.State}
		}
		writeTable(&b, []string{"ID", "Symbol", "Type", "Volume", "Price", "State"}, rows)
	}

	if len(s.Accounts) > 1 {
		b.WriteString("\n## Accounts\n\n")
		writeAccounts(&b, s)
	}
	return b.String()
}

// Render turns markdown into styled terminal output. An empty style picks
// one from the terminal.
func Render(markdown, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return out, nil
}

func writeAccounts(b *strings.Builder, s dashboard.State) {
	rows := make([][]string, len(s.Accounts))
	for i, a := range s.Accounts {
		mark := ""
		if a.ID == s.Selected {
			mark = "*"
		}
		conn := "offline"
		if a.Connected {
			conn = "online"
		}
		rows[i] = []string{mark, a.ID, orDash(a.Info.Name), orDash(a.Info.Server), conn, Money(a.Info.Balance, a.Info.Currency)}
	}
	writeTable(b, []string{"", "ID", "Name", "Server", "Status", "Balance"}, rows)
}

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, r := range rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

func trend(points []pnl.Point) string {
	vals := make([]float64, len(points))
	for i, p := range points {
		vals[i] = p.Value
	}
	return sparkline.Bars(vals)
}

// tickOrChange prefers the interpolation tick, which is newer than the
// last authoritative change when set.
func tickOrChange(p broker.Position) broker.Direction {
	if !p.IsRealData && p.TickDirection != broker.None {
		return p.TickDirection
	}
	return p.PriceChange
}

func source(p broker.Position) string {
	if p.IsRealData {
		return "live"
	}
	return "est."
}

func streamState(connected bool) string {
	if connected {
		return "connected"
	}
	return "disconnected"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
