package pnl

import "time"

type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Ring is a fixed-capacity FIFO of points. Once full, each Push evicts the
// oldest point.
type Ring struct {
	buf   []Point
	start int
	n     int
}

func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]Point, capacity)}
}

func (r *Ring) Push(p Point) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = p
		r.n++
		return
	}
	r.buf[r.start] = p
	r.start = (r.start + 1) % len(r.buf)
}

// Points returns the contents, oldest first.
func (r *Ring) Points() []Point {
	out := make([]Point, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
