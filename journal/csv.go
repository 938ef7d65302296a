// journal/csv.go
package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/acctdash/internal/id"
)

var csvHeader = []string{"id", "account_id", "symbol", "time", "value"}

type CSVJournal struct {
	w *csv.Writer
	f *os.File
}

// NewCSV appends to path, writing the header when the file is new.
func NewCSV(path string) (*CSVJournal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &CSVJournal{w: w, f: f}, nil
}

func (j *CSVJournal) RecordSample(s Sample) error {
	if s.ID == "" {
		s.ID = id.At(s.Time)
	}
	err := j.w.Write([]string{
		s.ID,
		s.AccountID,
		s.Symbol,
		s.Time.UTC().Format(time.RFC3339Nano),
		f(s.Value),
	})
	if err != nil {
		return err
	}

	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		return err
	}
	return j.f.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
