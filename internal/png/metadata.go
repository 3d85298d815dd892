package png

import (
	"encoding/binary"
	"fmt"
	"math"

	perrors "github.com/svanichkin/lsbpng/internal/errors"
)

// Color type, as per the PNG spec.
const (
	ColorGrayscale      = 0
	ColorTrueColor      = 2
	ColorPaletted       = 3
	ColorGrayscaleAlpha = 4
	ColorTrueColorAlpha = 6
)

const ihdrLength = 13

// Metadata is the decoded IHDR header plus the channel count derived from
// the color type.
type Metadata struct {
	Width             uint32
	Height            uint32
	BitDepth          uint8
	ColorType         uint8
	CompressionMethod uint8
	FilterMethod      uint8
	InterlaceMethod   uint8
	Channels          uint8
}

// Channels returns the number of samples per pixel for a color type.
func Channels(colorType uint8) (uint8, error) {
	switch colorType {
	case ColorGrayscale:
		return 1, nil
	case ColorTrueColor:
		return 3, nil
	case ColorPaletted:
		return 1, nil
	case ColorGrayscaleAlpha:
		return 2, nil
	case ColorTrueColorAlpha:
		return 4, nil
	}
	return 0, perrors.NewFormatError("png.ihdr.color_type", fmt.Errorf("unknown color type %d", colorType))
}

// ParseIHDR decodes the 13-byte IHDR payload:
//
//	width(4) height(4) bitDepth(1) colorType(1) compression(1) filter(1) interlace(1)
func ParseIHDR(data []byte) (Metadata, error) {
	if len(data) != ihdrLength {
		return Metadata{}, perrors.NewFormatError("png.ihdr.length", fmt.Errorf("got %d bytes, want %d", len(data), ihdrLength))
	}
	md := Metadata{
		Width:             binary.BigEndian.Uint32(data[0:4]),
		Height:            binary.BigEndian.Uint32(data[4:8]),
		BitDepth:          data[8],
		ColorType:         data[9],
		CompressionMethod: data[10],
		FilterMethod:      data[11],
		InterlaceMethod:   data[12],
	}
	if md.Width == 0 || md.Height == 0 {
		return Metadata{}, perrors.NewFormatError("png.ihdr.dimensions", fmt.Errorf("%dx%d", md.Width, md.Height))
	}
	ch, err := Channels(md.ColorType)
	if err != nil {
		return Metadata{}, err
	}
	md.Channels = ch
	return md, nil
}

// Bytes encodes the metadata back into an IHDR payload.
func (m Metadata) Bytes() []byte {
	b := make([]byte, 0, ihdrLength)
	b = binary.BigEndian.AppendUint32(b, m.Width)
	b = binary.BigEndian.AppendUint32(b, m.Height)
	return append(b, m.BitDepth, m.ColorType, m.CompressionMethod, m.FilterMethod, m.InterlaceMethod)
}

// BitsPerPixel is bitDepth * channels.
func (m Metadata) BitsPerPixel() int {
	return int(m.BitDepth) * int(m.Channels)
}

// BytesPerPixel is ceil(bitDepth*channels/8); at least 1.
func (m Metadata) BytesPerPixel() int {
	return (m.BitsPerPixel() + 7) / 8
}

// ScanlineBytes is ceil(width*bitDepth*channels/8), the size of one scanline
// without its filter tag.
func (m Metadata) ScanlineBytes() int {
	return int((uint64(m.Width)*uint64(m.BitsPerPixel()) + 7) / 8)
}

// RawSize is the size of the decompressed IDAT stream:
// (ScanlineBytes+1) * height. It fails if the image is too large to address.
func (m Metadata) RawSize() (int, error) {
	row := (uint64(m.Width)*uint64(m.BitsPerPixel()) + 7) / 8
	total := (row + 1) * uint64(m.Height)
	if row > math.MaxInt32 || total > math.MaxInt32 {
		return 0, perrors.NewFormatError("png.ihdr.size", fmt.Errorf("%dx%d image is too large", m.Width, m.Height))
	}
	return int(total), nil
}

func (m Metadata) String() string {
	return fmt.Sprintf("%dx%d depth=%d color=%d channels=%d compression=%d filter=%d interlace=%d",
		m.Width, m.Height, m.BitDepth, m.ColorType, m.Channels, m.CompressionMethod, m.FilterMethod, m.InterlaceMethod)
}
