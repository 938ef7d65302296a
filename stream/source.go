package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// Source yields push events until it is closed or the peer goes away.
// Next returns io.EOF on a clean end of stream.
type Source interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// ErrMalformed wraps decode failures so callers can skip the message and
// keep reading.
var ErrMalformed = errors.New("malformed event")

// Reader reads newline-delimited JSON events, as written by a recorder or
// served by a plain HTTP event stream.
type Reader struct {
	sc *bufio.Scanner
	rc io.Closer
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	// account snapshots can be long
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	rd := &Reader{sc: sc}
	if c, ok := r.(io.Closer); ok {
		rd.rc = c
	}
	return rd
}

func (r *Reader) Next(ctx context.Context) (Event, error) {
	for r.sc.Scan() {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		default:
		}

		line := strings.TrimSpace(r.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ev, err := Decode([]byte(line))
		if err != nil {
			return Event{}, errors.Join(ErrMalformed, err)
		}
		return ev, nil
	}

	if err := r.sc.Err(); err != nil {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		default:
		}
		return Event{}, err
	}
	return Event{}, io.EOF
}

func (r *Reader) Close() error {
	if r.rc == nil {
		return nil
	}
	return r.rc.Close()
}
