package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/acctdash/internal/id"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordSample(s Sample) error {
	if s.ID == "" {
		s.ID = id.At(s.Time)
	}
	_, err := j.db.Exec(`
		INSERT INTO pnl_samples (id, account_id, symbol, time, value)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.AccountID, s.Symbol, s.Time.UTC(), s.Value,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
