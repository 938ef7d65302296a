package pnl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(r *Ring) []float64 {
	pts := r.Points()
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Value
	}
	return out
}

func TestRingFIFO(t *testing.T) {
	r := NewRing(3)
	t0 := time.Unix(0, 0)

	for i := 1; i <= 5; i++ {
		r.Push(Point{Time: t0.Add(time.Duration(i) * time.Second), Value: float64(i)})
		assert.LessOrEqual(t, len(r.Points()), 3)
	}

	assert.Equal(t, []float64{3, 4, 5}, values(r))
	pts := r.Points()
	require.Len(t, pts, 3)
	assert.Equal(t, t0.Add(3*time.Second), pts[0].Time)
}

func TestRingPartial(t *testing.T) {
	r := NewRing(60)
	r.Push(Point{Value: 1})
	r.Push(Point{Value: 2})
	assert.Equal(t, []float64{1, 2}, values(r))
}

func TestRingMinimumCapacity(t *testing.T) {
	r := NewRing(0)
	r.Push(Point{Value: 1})
	r.Push(Point{Value: 2})
	assert.Equal(t, []float64{2}, values(r))
}
