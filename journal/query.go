package journal

import (
	"fmt"
	"strings"
	"time"
)

// Query selects samples. Zero fields do not filter, except Symbol: an empty
// Symbol selects the net series unless AllSymbols is set.
type Query struct {
	AccountID  string
	Symbol     string
	AllSymbols bool
	Since      time.Time
	Until      time.Time
	Limit      int
}

// ListSamples returns matching samples ordered by time. With a Limit the
// most recent Limit samples are returned, still oldest first.
func (j *SQLite) ListSamples(q Query) ([]Sample, error) {
	var (
		where []string
		args  []any
	)
	if q.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, q.AccountID)
	}
	if !q.AllSymbols {
		where = append(where, "symbol = ?")
		args = append(args, q.Symbol)
	}
	if !q.Since.IsZero() {
		where = append(where, "time >= ?")
		args = append(args, q.Since.UTC())
	}
	if !q.Until.IsZero() {
		where = append(where, "time < ?")
		args = append(args, q.Until.UTC())
	}

	stmt := "SELECT id, account_id, symbol, time, value FROM pnl_samples"
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY time DESC, id DESC"
	if q.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := j.db.Query(stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.ID, &s.AccountID, &s.Symbol, &s.Time, &s.Value); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, k := 0, len(out)-1; i < k; i, k = i+1, k-1 {
		out[i], out[k] = out[k], out[i]
	}
	return out, nil
}

// Accounts lists the account ids that have samples.
func (j *SQLite) Accounts() ([]string, error) {
	rows, err := j.db.Query(`SELECT DISTINCT account_id FROM pnl_samples ORDER BY account_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
