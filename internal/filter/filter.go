// Package filter implements the PNG scanline filters (filter method 0):
// reconstruction of raw bytes from a decompressed IDAT stream and the inverse
// prediction that produces a filtered stream again.
//
// Every scanline starts with a one-byte filter type tag. Filtering a byte
// depends on three neighbours: left (the byte one pixel to the left), up (the
// same byte in the previous scanline) and upLeft. Neighbours outside the image
// are zero. Rows depend on the previous row, so both directions run strictly
// row by row.
package filter

import (
	"fmt"

	perrors "github.com/svanichkin/lsbpng/internal/errors"
	"github.com/svanichkin/lsbpng/internal/png"
)

// Type is a scanline filter type tag.
type Type uint8

// Filter type, as per the PNG spec.
const (
	None Type = iota
	Sub
	Up
	Average
	Paeth
	nFilter
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Sub:
		return "sub"
	case Up:
		return "up"
	case Average:
		return "average"
	case Paeth:
		return "paeth"
	}
	return fmt.Sprintf("filter(%d)", uint8(t))
}

// Geometry describes the layout of a filtered stream.
type Geometry struct {
	Rows     int // number of scanlines
	RowBytes int // bytes per scanline, without the tag
	BPP      int // bytes per complete pixel, rounded up to 1
}

// GeometryOf derives the scanline layout from an IHDR header.
func GeometryOf(md png.Metadata) Geometry {
	return Geometry{
		Rows:     int(md.Height),
		RowBytes: md.ScanlineBytes(),
		BPP:      md.BytesPerPixel(),
	}
}

// Stride is the size of one scanline including its tag.
func (g Geometry) Stride() int { return g.RowBytes + 1 }

// Size is the size of the whole stream.
func (g Geometry) Size() int { return g.Stride() * g.Rows }

func (g Geometry) check(buf []byte) error {
	if g.Rows <= 0 || g.RowBytes <= 0 || g.BPP <= 0 || g.BPP > g.RowBytes {
		return perrors.NewFormatError("filter.geometry", fmt.Errorf("rows=%d rowBytes=%d bpp=%d", g.Rows, g.RowBytes, g.BPP))
	}
	if len(buf) != g.Size() {
		return perrors.NewFormatError("filter.geometry", fmt.Errorf("buffer is %d bytes, want %d", len(buf), g.Size()))
	}
	return nil
}

func checkTag(tag byte, row int) error {
	if Type(tag) >= nFilter {
		return perrors.NewFormatError("filter.tag", fmt.Errorf("row %d: filter type %d", row, tag))
	}
	return nil
}

// Reconstruct undoes the filters of a decompressed IDAT stream and returns a
// new buffer of raw scanlines. Tags are copied through unchanged.
func Reconstruct(filtered []byte, g Geometry) ([]byte, error) {
	if err := g.check(filtered); err != nil {
		return nil, err
	}
	out := make([]byte, len(filtered))
	stride := g.Stride()
	// prev stays all-zero for the first row.
	prev := make([]byte, g.RowBytes)
	for y := 0; y < g.Rows; y++ {
		line := filtered[y*stride : (y+1)*stride]
		if err := checkTag(line[0], y); err != nil {
			return nil, err
		}
		dst := out[y*stride : (y+1)*stride]
		dst[0] = line[0]
		unfilterRow(Type(line[0]), dst[1:], line[1:], prev, g.BPP)
		prev = dst[1:]
	}
	return out, nil
}

// Predict filters raw scanlines with the type recorded in each row's tag and
// returns a new buffer. Neighbours are always taken from raw.
func Predict(raw []byte, g Geometry) ([]byte, error) {
	return PredictWith(raw, g, Keep)
}

// unfilterRow writes the reconstruction of cdat into dst. prev is the
// previously reconstructed row.
func unfilterRow(ft Type, dst, cdat, prev []byte, bpp int) {
	switch ft {
	case None:
		copy(dst, cdat)
	case Sub:
		copy(dst[:bpp], cdat)
		for i := bpp; i < len(dst); i++ {
			dst[i] = cdat[i] + dst[i-bpp]
		}
	case Up:
		for i, p := range prev {
			dst[i] = cdat[i] + p
		}
	case Average:
		// The first pixel has no left neighbour.
		for i := 0; i < bpp; i++ {
			dst[i] = cdat[i] + prev[i]/2
		}
		for i := bpp; i < len(dst); i++ {
			dst[i] = cdat[i] + uint8((int(dst[i-bpp])+int(prev[i]))/2)
		}
	case Paeth:
		for i := 0; i < bpp; i++ {
			dst[i] = cdat[i] + paeth(0, prev[i], 0)
		}
		for i := bpp; i < len(dst); i++ {
			dst[i] = cdat[i] + paeth(dst[i-bpp], prev[i], prev[i-bpp])
		}
	}
}

// filterRow writes the filtered form of cur into dst. prev is the raw
// previous row (all zero for the first row).
func filterRow(ft Type, dst, cur, prev []byte, bpp int) {
	switch ft {
	case None:
		copy(dst, cur)
	case Sub:
		copy(dst[:bpp], cur)
		for i := bpp; i < len(cur); i++ {
			dst[i] = cur[i] - cur[i-bpp]
		}
	case Up:
		for i, p := range prev {
			dst[i] = cur[i] - p
		}
	case Average:
		for i := 0; i < bpp; i++ {
			dst[i] = cur[i] - prev[i]/2
		}
		for i := bpp; i < len(cur); i++ {
			dst[i] = cur[i] - uint8((int(cur[i-bpp])+int(prev[i]))/2)
		}
	case Paeth:
		for i := 0; i < bpp; i++ {
			dst[i] = cur[i] - paeth(0, prev[i], 0)
		}
		for i := bpp; i < len(cur); i++ {
			dst[i] = cur[i] - paeth(cur[i-bpp], prev[i], prev[i-bpp])
		}
	}
}

// paeth implements the Paeth predictor function as per the PNG specification.
// Ties resolve to left, then up, then upLeft.
func paeth(a, b, c uint8) uint8 {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
