// Package steg hides a message in the least significant bits of a PNG's raw
// (unfiltered) scanlines.
//
// One bit is stored per pixel, in the LSB of the pixel's first byte. Pixels
// are visited row by row, left to right, skipping each scanline's filter tag.
// The embedded unit is a 4-byte little-endian length followed by the message;
// every byte is written most significant bit first.
//
// Only bit depths up to 8 are supported. For sub-byte depths several pixels
// share a byte and the bit lands in whichever pixel owns that byte's LSB.
package steg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	perrors "github.com/svanichkin/lsbpng/internal/errors"
	"github.com/svanichkin/lsbpng/internal/png"
)

// prefixBytes is the size of the little-endian length prefix.
const prefixBytes = 4

// layout is the carrier geometry of one image.
type layout struct {
	rows        int
	stride      int // scanline size including the tag
	bpp         int
	pixelsInRow int
}

func layoutOf(md png.Metadata) (layout, error) {
	if md.BitDepth == 0 || md.Channels == 0 {
		return layout{}, perrors.NewFormatError("steg.layout", fmt.Errorf("bit depth %d, %d channels", md.BitDepth, md.Channels))
	}
	if md.BitDepth > 8 {
		return layout{}, perrors.NewCapacityError("steg.layout", 0, 0, fmt.Errorf("%d-bit samples are not supported", md.BitDepth))
	}
	if md.InterlaceMethod != 0 {
		return layout{}, perrors.NewFormatError("steg.layout", fmt.Errorf("interlaced images are not supported"))
	}
	row := md.ScanlineBytes()
	bpp := md.BytesPerPixel()
	return layout{
		rows:        int(md.Height),
		stride:      row + 1,
		bpp:         bpp,
		pixelsInRow: row / bpp,
	}, nil
}

func (l layout) capacity() int { return l.rows * l.pixelsInRow }

func (l layout) check(raw []byte) error {
	if len(raw) != l.stride*l.rows {
		return perrors.NewFormatError("steg.layout", fmt.Errorf("raw buffer is %d bytes, want %d", len(raw), l.stride*l.rows))
	}
	return nil
}

// cursor yields carrier byte offsets in embedding order.
type cursor struct {
	l       layout
	rowBase int
	px      int
}

func (l layout) cursor() cursor { return cursor{l: l} }

func (c *cursor) next() int {
	if c.px == c.l.pixelsInRow {
		c.px = 0
		c.rowBase += c.l.stride
	}
	i := c.rowBase + 1 + c.px*c.l.bpp
	c.px++
	return i
}

// Capacity returns the number of bits an image of md can carry.
func Capacity(md png.Metadata) (int, error) {
	l, err := layoutOf(md)
	if err != nil {
		return 0, err
	}
	return l.capacity(), nil
}

// MaxMessage returns the largest message, in bytes, that fits next to the
// length prefix.
func MaxMessage(md png.Metadata) (int, error) {
	bits, err := Capacity(md)
	if err != nil {
		return 0, err
	}
	return max(bits/8-prefixBytes, 0), nil
}

// Encode writes the length prefix and msg into raw in place. The capacity is
// checked before anything is written, so raw is unchanged on error.
func Encode(raw, msg []byte, md png.Metadata) error {
	l, err := layoutOf(md)
	if err != nil {
		return err
	}
	if err := l.check(raw); err != nil {
		return err
	}
	need := (uint64(len(msg)) + prefixBytes) * 8
	if need > uint64(l.capacity()) {
		return perrors.NewCapacityError("steg.encode", int(min(need, math.MaxInt32)), l.capacity(), nil)
	}

	payload := make([]byte, prefixBytes, prefixBytes+len(msg))
	binary.LittleEndian.PutUint32(payload, uint32(len(msg)))
	payload = append(payload, msg...)

	br := newBitReader(payload)
	c := l.cursor()
	for n := 0; n < int(need); n++ {
		i := c.next()
		raw[i] = raw[i]&0xFE | br.readBitFast()
	}
	return nil
}

// Decode recovers a message written by Encode.
func Decode(raw []byte, md png.Metadata) ([]byte, error) {
	l, err := layoutOf(md)
	if err != nil {
		return nil, err
	}
	if err := l.check(raw); err != nil {
		return nil, err
	}
	if l.capacity() < prefixBytes*8 {
		return nil, perrors.NewFormatError("steg.decode", fmt.Errorf("image holds %d bits, too few for a length prefix", l.capacity()))
	}

	c := l.cursor()
	read := func(n int) []byte {
		var buf bytes.Buffer
		buf.Grow(n)
		bw := newBitWriter(&buf)
		for i := 0; i < n*8; i++ {
			bw.writeBit(raw[c.next()] & 1)
		}
		return buf.Bytes()
	}

	length := binary.LittleEndian.Uint32(read(prefixBytes))
	need := (uint64(length) + prefixBytes) * 8
	if need > uint64(l.capacity()) {
		return nil, perrors.NewFormatError("steg.decode", fmt.Errorf("message length %d needs %d bits, image holds %d", length, need, l.capacity()))
	}
	return read(int(length)), nil
}
