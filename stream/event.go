package stream

import (
	"encoding/json"
	"fmt"

	"github.com/rustyeddy/acctdash/broker"
)

const (
	InitialAccounts           = "initialAccounts"
	AccountSynchronized       = "accountSynchronized"
	AccountInformationUpdated = "accountInformationUpdated"
	PositionsUpdated          = "positionsUpdated"
	PositionUpdated           = "positionUpdated"
	PositionRemoved           = "positionRemoved"
	OrderCompleted            = "orderCompleted"
	AccountConnected          = "accountConnected"
	AccountDisconnected       = "accountDisconnected"
)

// Event is one push message: {"event": <name>, ...payload}. Only the fields
// relevant to Name are populated.
type Event struct {
	Name               string              `json:"event"`
	AccountID          string              `json:"accountId,omitempty"`
	Accounts           []broker.Account    `json:"accounts,omitempty"`
	AccountInformation *broker.AccountInfo `json:"accountInformation,omitempty"`
	Positions          []broker.Position   `json:"positions,omitempty"`
	PositionID         string              `json:"positionId,omitempty"`
	Order              *broker.Order       `json:"order,omitempty"`

	// Position is kept raw so a partial update can tell absent fields from
	// zero values.
	Position json.RawMessage `json:"position,omitempty"`
}

// Decode parses a single message.
func Decode(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("stream: bad json: %w (msg=%q)", err, trimForErr(string(b)))
	}
	if ev.Name == "" {
		return Event{}, fmt.Errorf("stream: message without event tag (msg=%q)", trimForErr(string(b)))
	}
	return ev, nil
}

// Known reports whether name is one of the event names the dashboard handles.
func Known(name string) bool {
	switch name {
	case InitialAccounts, AccountSynchronized, AccountInformationUpdated,
		PositionsUpdated, PositionUpdated, PositionRemoved, OrderCompleted,
		AccountConnected, AccountDisconnected:
		return true
	}
	return false
}

func trimForErr(s string) string {
	const n = 200
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
