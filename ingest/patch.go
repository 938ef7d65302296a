package ingest

import (
	"time"

	"github.com/rustyeddy/acctdash/broker"
)

// positionPatch is a positionUpdated payload. Nil fields were not sent and
// keep their stored value.
type positionPatch struct {
	ID           *string      `json:"id"`
	Symbol       *string      `json:"symbol"`
	Side         *broker.Side `json:"type"`
	Volume       *float64     `json:"volume"`
	OpenPrice    *float64     `json:"openPrice"`
	CurrentPrice *float64     `json:"currentPrice"`
	Profit       *float64     `json:"profit"`
}

func applyPatch(a *broker.Account, patch positionPatch, now time.Time) {
	i := a.PositionIndex(*patch.ID)
	known := i >= 0
	if !known {
		a.Positions = append(a.Positions, broker.Position{ID: *patch.ID})
		i = len(a.Positions) - 1
	}
	p := &a.Positions[i]

	if patch.CurrentPrice != nil {
		if known {
			p.PriceChange = broker.Compare(p.CurrentPrice, *patch.CurrentPrice)
		}
		p.CurrentPrice = *patch.CurrentPrice
	} else {
		p.PriceChange = broker.None
	}
	if patch.Symbol != nil {
		p.Symbol = *patch.Symbol
	}
	if patch.Side != nil {
		p.Side = *patch.Side
	}
	if patch.Volume != nil {
		p.Volume = *patch.Volume
	}
	if patch.OpenPrice != nil {
		p.OpenPrice = *patch.OpenPrice
	}
	if patch.Profit != nil {
		p.Profit = *patch.Profit
	}
	p.MarkReal(now)
}

// upsertReal writes a full authoritative position into a.
func upsertReal(a *broker.Account, p broker.Position, now time.Time) {
	p = p.Clone()
	if i := a.PositionIndex(p.ID); i >= 0 {
		p.PriceChange = broker.Compare(a.Positions[i].CurrentPrice, p.CurrentPrice)
		p.MarkReal(now)
		a.Positions[i] = p
		return
	}
	p.PriceChange = broker.None
	p.MarkReal(now)
	a.Positions = append(a.Positions, p)
}
