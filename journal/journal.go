// journal/journal.go
package journal

import (
	"fmt"
	"time"
)

// Sample is one PnL history point. Symbol is empty for the account's net
// PnL.
type Sample struct {
	ID        string
	AccountID string
	Symbol    string
	Time      time.Time
	Value     float64
}

type Journal interface {
	RecordSample(Sample) error
	Close() error
}

// Open returns the journal for kind: "csv", "sqlite", or "none"/"" for a
// journal that drops everything.
func Open(kind, csvPath, dbPath string) (Journal, error) {
	switch kind {
	case "", "none":
		return Nop{}, nil
	case "csv":
		return NewCSV(csvPath)
	case "sqlite":
		return NewSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unknown journal type %q", kind)
	}
}

type Nop struct{}

func (Nop) RecordSample(Sample) error { return nil }
func (Nop) Close() error              { return nil }
