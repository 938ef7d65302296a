// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS pnl_samples (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	symbol TEXT NOT NULL DEFAULT '',
	time DATETIME NOT NULL,
	value REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pnl_samples_account_time ON pnl_samples(account_id, symbol, time);
`
