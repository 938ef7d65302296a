package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Backend is the REST surface of the trading-account service.
type Backend interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, id string) (Account, error)
	CreateAccount(ctx context.Context, req CreateAccountRequest) (Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// Side is the direction of a position.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide accepts the short form and the POSITION_TYPE_* form.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "position_type_buy", "order_type_buy":
		return Buy, nil
	case "sell", "position_type_sell", "order_type_sell":
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown position side %q", s)
	}
}

func (s *Side) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = ""
		return nil
	}
	side, err := ParseSide(raw)
	if err != nil {
		return err
	}
	*s = side
	return nil
}

// Direction of a price or PnL move. The zero value means no move.
type Direction string

const (
	None Direction = ""
	Up   Direction = "up"
	Down Direction = "down"
)

// Compare returns Up when next > prev, Down when next < prev and None otherwise.
func Compare(prev, next float64) Direction {
	switch {
	case next > prev:
		return Up
	case next < prev:
		return Down
	default:
		return None
	}
}

type AccountInfo struct {
	Name        string  `json:"name"`
	Login       string  `json:"login"`
	Server      string  `json:"server,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	Balance     float64 `json:"balance"`
	Equity      float64 `json:"equity"`
	Margin      float64 `json:"margin,omitempty"`
	FreeMargin  float64 `json:"freeMargin,omitempty"`
	MarginLevel float64 `json:"marginLevel"`
}

type Account struct {
	ID                string      `json:"id"`
	Connected         bool        `json:"connected"`
	ConnectedToBroker bool        `json:"connectedToBroker"`
	Info              AccountInfo `json:"accountInformation"`
	Positions         []Position  `json:"positions,omitempty"`
	Orders            []Order     `json:"orders,omitempty"`
}

// Position is an open position. LastUpdate and IsRealData are only ever set
// from authoritative data; TickDirection and LastTickTime only by
// interpolation.
type Position struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Side         Side    `json:"type"`
	Volume       float64 `json:"volume"`
	OpenPrice    float64 `json:"openPrice"`
	CurrentPrice float64 `json:"currentPrice"`
	Profit       float64 `json:"profit"`

	LastUpdate    *time.Time `json:"lastUpdate,omitempty"`
	PriceChange   Direction  `json:"priceChange,omitempty"`
	TickDirection Direction  `json:"tickDirection,omitempty"`
	LastTickTime  *time.Time `json:"lastTickTime,omitempty"`
	IsRealData    bool       `json:"isRealData"`
}

type Order struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Type      string  `json:"type"`
	Volume    float64 `json:"volume"`
	OpenPrice float64 `json:"openPrice"`
	State     string  `json:"state"`
}

// CreateAccountRequest is the body of POST /accounts.
type CreateAccountRequest struct {
	Login    string `json:"login"`
	Server   string `json:"server"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Clone returns a deep copy of the account.
func (a Account) Clone() Account {
	out := a
	if a.Positions != nil {
		out.Positions = make([]Position, len(a.Positions))
		for i, p := range a.Positions {
			out.Positions[i] = p.Clone()
		}
	}
	if a.Orders != nil {
		out.Orders = append([]Order(nil), a.Orders...)
	}
	return out
}

// Clone returns a copy that shares no time pointers with p.
func (p Position) Clone() Position {
	out := p
	if p.LastUpdate != nil {
		t := *p.LastUpdate
		out.LastUpdate = &t
	}
	if p.LastTickTime != nil {
		t := *p.LastTickTime
		out.LastTickTime = &t
	}
	return out
}

// MarkReal stamps the position as authoritative at t.
func (p *Position) MarkReal(t time.Time) {
	p.LastUpdate = &t
	p.TickDirection = None
	p.LastTickTime = nil
	p.IsRealData = true
}

// PositionIndex returns the index of the position with id, or -1.
func (a *Account) PositionIndex(id string) int {
	for i := range a.Positions {
		if a.Positions[i].ID == id {
			return i
		}
	}
	return -1
}
