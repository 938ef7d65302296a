// Package store keeps the in-memory view of every known trading account.
//
// The Store exclusively owns Account, Position and Order records. Readers get
// deep copies. All mutations are keyed by account id (and position id where
// relevant), are idempotent, and serialize on a single mutex so the event
// ingester, the interpolation ticker and the REST refreshers can run on
// separate goroutines.
//
// An update for an account the store does not know is a no-op: the call
// reports false and nothing changes.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/rustyeddy/acctdash/broker"
)

var ErrUnknownAccount = errors.New("unknown account")

// Listener is called after a mutation touched the account with the given id.
// An empty id means the whole account list was replaced.
type Listener func(accountID string)

type Store struct {
	mu        sync.Mutex
	accounts  []*broker.Account
	byID      map[string]*broker.Account
	selected  string
	lastReal  time.Time
	listeners []Listener
}

func New() *Store {
	return &Store{byID: make(map[string]*broker.Account)}
}

// OnChange registers fn. Listeners run outside the store lock, in
// registration order, on the goroutine that made the change.
func (s *Store) OnChange(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(id string) {
	s.mu.Lock()
	ls := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range ls {
		fn(id)
	}
}

// ReplaceAccounts swaps in a new account list. The selection survives if the
// selected account is still present.
func (s *Store) ReplaceAccounts(accts []broker.Account) {
	s.mu.Lock()
	s.accounts = make([]*broker.Account, 0, len(accts))
	s.byID = make(map[string]*broker.Account, len(accts))
	for _, a := range accts {
		c := a.Clone()
		s.accounts = append(s.accounts, &c)
		s.byID[c.ID] = &c
	}
	if _, ok := s.byID[s.selected]; !ok {
		s.selected = ""
	}
	s.mu.Unlock()

	s.notify("")
}

// MergeAccounts installs a fresh account list. Entries that carry neither
// positions nor orders keep the ones currently held for that id. The lookup
// and the swap happen under one lock, so a concurrent update is never
// replaced by an older copy.
func (s *Store) MergeAccounts(accts []broker.Account) {
	s.mu.Lock()
	accounts := make([]*broker.Account, 0, len(accts))
	byID := make(map[string]*broker.Account, len(accts))
	for _, a := range accts {
		c := a.Clone()
		if c.Positions == nil && c.Orders == nil {
			if old, ok := s.byID[c.ID]; ok {
				held := old.Clone()
				c.Positions = held.Positions
				c.Orders = held.Orders
			}
		}
		accounts = append(accounts, &c)
		byID[c.ID] = &c
	}
	s.accounts = accounts
	s.byID = byID
	if _, ok := s.byID[s.selected]; !ok {
		s.selected = ""
	}
	s.mu.Unlock()

	s.notify("")
}

// UpsertAccountInfo overwrites the metadata of account id.
func (s *Store) UpsertAccountInfo(id string, info broker.AccountInfo) bool {
	return s.Update(id, func(a *broker.Account) {
		a.Info = info
	})
}

// SetConnection flips the connected flag of account id. A disconnected
// account is not connected to its broker either.
func (s *Store) SetConnection(id string, connected bool) bool {
	return s.Update(id, func(a *broker.Account) {
		a.Connected = connected
		if !connected {
			a.ConnectedToBroker = false
		}
	})
}

// UpsertPosition replaces the position with p.ID or appends p.
func (s *Store) UpsertPosition(id string, p broker.Position) bool {
	return s.Update(id, func(a *broker.Account) {
		if i := a.PositionIndex(p.ID); i >= 0 {
			a.Positions[i] = p.Clone()
			return
		}
		a.Positions = append(a.Positions, p.Clone())
	})
}

// RemovePosition deletes position positionID from account id.
func (s *Store) RemovePosition(id, positionID string) bool {
	return s.Update(id, func(a *broker.Account) {
		i := a.PositionIndex(positionID)
		if i < 0 {
			return
		}
		a.Positions = append(a.Positions[:i], a.Positions[i+1:]...)
	})
}

// ReplaceDetail replaces metadata, positions and orders of detail.ID. The
// connection flags are left alone; the detail endpoint does not own them.
func (s *Store) ReplaceDetail(detail broker.Account) bool {
	c := detail.Clone()
	return s.Update(detail.ID, func(a *broker.Account) {
		a.Info = c.Info
		a.Positions = c.Positions
		a.Orders = c.Orders
	})
}

// Update runs fn on account id under the store lock. fn must not call back
// into the store.
func (s *Store) Update(id string, fn func(a *broker.Account)) bool {
	s.mu.Lock()
	a, ok := s.byID[id]
	if ok {
		fn(a)
	}
	s.mu.Unlock()

	if ok {
		s.notify(id)
	}
	return ok
}

// Account returns a copy of account id.
func (s *Store) Account(id string) (broker.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return broker.Account{}, ErrUnknownAccount
	}
	return a.Clone(), nil
}

// Has reports whether account id is known.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	return ok
}

// Snapshot returns copies of all accounts in list order.
func (s *Store) Snapshot() []broker.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]broker.Account, len(s.accounts))
	for i, a := range s.accounts {
		out[i] = a.Clone()
	}
	return out
}

// Select makes id the selected account.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return ErrUnknownAccount
	}
	s.selected = id
	s.mu.Unlock()

	s.notify(id)
	return nil
}

// Selected returns the selected account id, or "".
func (s *Store) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// MarkRealData records that authoritative data arrived at t.
func (s *Store) MarkRealData(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.lastReal) {
		s.lastReal = t
	}
}

// LastRealData returns when authoritative data last arrived.
func (s *Store) LastRealData() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReal
}

// Staleness classifies the age of the newest authoritative data at now.
func (s *Store) Staleness(now time.Time) Freshness {
	return Classify(s.LastRealData(), now)
}
