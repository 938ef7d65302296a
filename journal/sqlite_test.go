package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='pnl_samples'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "pnl_samples", name)
}

func TestSQLiteListSamples(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ts := t0.Add(time.Duration(i) * 5 * time.Second)
		require.NoError(t, j.RecordSample(Sample{AccountID: "A", Time: ts, Value: float64(i + 1)}))
		require.NoError(t, j.RecordSample(Sample{AccountID: "A", Symbol: "EURUSD", Time: ts, Value: float64(10 * (i + 1))}))
	}
	require.NoError(t, j.RecordSample(Sample{AccountID: "B", Time: t0, Value: -3}))

	net, err := j.ListSamples(Query{AccountID: "A"})
	require.NoError(t, err)
	require.Len(t, net, 5)
	assert.Equal(t, 1.0, net[0].Value)
	assert.Equal(t, 5.0, net[4].Value)
	assert.True(t, net[0].Time.Equal(t0))
	assert.NotEmpty(t, net[0].ID)

	sym, err := j.ListSamples(Query{AccountID: "A", Symbol: "EURUSD"})
	require.NoError(t, err)
	require.Len(t, sym, 5)
	assert.Equal(t, 50.0, sym[4].Value)

	last, err := j.ListSamples(Query{AccountID: "A", Limit: 2})
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, 4.0, last[0].Value)
	assert.Equal(t, 5.0, last[1].Value)

	window, err := j.ListSamples(Query{AccountID: "A", Since: t0.Add(5 * time.Second), Until: t0.Add(15 * time.Second)})
	require.NoError(t, err)
	require.Len(t, window, 2)

	all, err := j.ListSamples(Query{AllSymbols: true})
	require.NoError(t, err)
	assert.Len(t, all, 11)

	accts, err := j.Accounts()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, accts)
}
