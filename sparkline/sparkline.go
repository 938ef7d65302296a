// Package sparkline turns a numeric series into something drawable: an SVG
// polyline path for web front ends, or a row of block glyphs for terminals.
package sparkline

import (
	"math"
	"strconv"
	"strings"
)

// Path maps values onto a width x height box and returns an SVG path
// ("M x,y L x,y ..."). The largest value sits at y=0, the smallest at
// y=height; a flat series is drawn through the middle. Fewer than two values
// yield "".
func Path(values []float64, width, height float64) string {
	pts := Points(values, width, height)
	if len(pts) < 2 {
		return ""
	}

	var b strings.Builder
	for i, p := range pts {
		if i == 0 {
			b.WriteString("M")
		} else {
			b.WriteString(" L")
		}
		b.WriteString(coord(p[0]))
		b.WriteByte(',')
		b.WriteString(coord(p[1]))
	}
	return b.String()
}

// Points returns the normalized coordinates Path draws.
func Points(values []float64, width, height float64) [][2]float64 {
	if len(values) < 2 {
		return nil
	}

	lo, hi := bounds(values)
	span := hi - lo
	step := width / float64(len(values)-1)

	out := make([][2]float64, len(values))
	for i, v := range values {
		y := height / 2
		if span > 0 {
			y = height - (v-lo)/span*height
		}
		out[i] = [2]float64{float64(i) * step, y}
	}
	return out
}

var blocks = []rune("▁▂▃▄▅▆▇█")

// Bars renders values as unicode block glyphs, one per value.
func Bars(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	lo, hi := bounds(values)
	span := hi - lo

	var b strings.Builder
	for _, v := range values {
		idx := len(blocks) / 2
		if span > 0 {
			idx = int(math.Round((v - lo) / span * float64(len(blocks)-1)))
		}
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

func bounds(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func coord(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	if s == "-0.00" {
		return "0.00"
	}
	return s
}
