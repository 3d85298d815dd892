package filter

import (
	"fmt"
	"strings"
)

// Strategy decides which filter type each row is predicted with.
type Strategy uint8

const (
	// Keep reuses the type recorded in each row's tag.
	Keep Strategy = iota
	// Adaptive picks, per row, the type whose output has the smallest sum of
	// absolute values when read as signed bytes, and rewrites the tag.
	Adaptive
)

func (s Strategy) String() string {
	switch s {
	case Keep:
		return "keep"
	case Adaptive:
		return "adaptive"
	}
	return fmt.Sprintf("strategy(%d)", uint8(s))
}

// ParseStrategy maps a flag value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep":
		return Keep, nil
	case "adaptive":
		return Adaptive, nil
	}
	return 0, fmt.Errorf("unknown filter strategy %q", s)
}

// PredictWith filters raw scanlines using the given strategy and returns a new
// buffer whose tags record the type actually used.
func PredictWith(raw []byte, g Geometry, s Strategy) ([]byte, error) {
	if err := g.check(raw); err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	stride := g.Stride()
	prev := make([]byte, g.RowBytes)

	var scratch []byte
	if s == Adaptive {
		scratch = make([]byte, g.RowBytes)
	}

	for y := 0; y < g.Rows; y++ {
		line := raw[y*stride : (y+1)*stride]
		if err := checkTag(line[0], y); err != nil {
			return nil, err
		}
		cur := line[1:]
		dst := out[y*stride : (y+1)*stride]

		ft := Type(line[0])
		if s == Adaptive {
			ft = bestFilter(scratch, cur, prev, g.BPP)
		}
		dst[0] = byte(ft)
		filterRow(ft, dst[1:], cur, prev, g.BPP)
		prev = cur
	}
	return out, nil
}

// bestFilter runs every filter over cur and returns the one with the lowest
// sum of absolute signed residuals. Ties keep the lower type.
func bestFilter(scratch, cur, prev []byte, bpp int) Type {
	best, bestSum := None, -1
	for ft := None; ft < nFilter; ft++ {
		filterRow(ft, scratch, cur, prev, bpp)
		sum := 0
		for _, b := range scratch {
			sum += abs(int(int8(b)))
			if bestSum >= 0 && sum >= bestSum {
				break
			}
		}
		if bestSum < 0 || sum < bestSum {
			best, bestSum = ft, sum
		}
	}
	return best
}
