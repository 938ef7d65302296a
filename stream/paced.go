package stream

import (
	"context"
	"time"
)

type paced struct {
	Source
	every time.Duration
	first bool
}

// Paced delays every event after the first by every. It slows a recorded
// stream down to a watchable speed.
func Paced(src Source, every time.Duration) Source {
	if every <= 0 {
		return src
	}
	return &paced{Source: src, every: every, first: true}
}

func (p *paced) Next(ctx context.Context) (Event, error) {
	if !p.first {
		t := time.NewTimer(p.every)
		select {
		case <-ctx.Done():
			t.Stop()
			return Event{}, ctx.Err()
		case <-t.C:
		}
	}
	p.first = false
	return p.Source.Next(ctx)
}
