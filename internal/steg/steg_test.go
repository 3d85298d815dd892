package steg

import (
	"bytes"
	"math/rand"
	"testing"

	perrors "github.com/svanichkin/lsbpng/internal/errors"
	"github.com/svanichkin/lsbpng/internal/png"
)

func meta(w, h uint32, depth, colorType uint8) png.Metadata {
	ch, err := png.Channels(colorType)
	if err != nil {
		panic(err)
	}
	return png.Metadata{Width: w, Height: h, BitDepth: depth, ColorType: colorType, Channels: ch}
}

// rawFor returns a random raw buffer for md with valid filter tags.
func rawFor(rnd *rand.Rand, md png.Metadata) []byte {
	n, err := md.RawSize()
	if err != nil {
		panic(err)
	}
	raw := make([]byte, n)
	rnd.Read(raw)
	stride := md.ScanlineBytes() + 1
	for y := 0; y < int(md.Height); y++ {
		raw[y*stride] = byte(y % 5)
	}
	return raw
}

func TestCapacity_Gray100(t *testing.T) {
	md := meta(100, 100, 8, png.ColorGrayscale)
	bits, err := Capacity(md)
	if err != nil || bits != 10000 {
		t.Fatalf("Capacity = %d, %v", bits, err)
	}
	maxLen, err := MaxMessage(md)
	if err != nil || maxLen != 1246 {
		t.Fatalf("MaxMessage = %d, %v", maxLen, err)
	}

	rnd := rand.New(rand.NewSource(1))
	raw := rawFor(rnd, md)
	msg := make([]byte, 1246)
	rnd.Read(msg)
	if err := Encode(raw, msg, md); err != nil {
		t.Fatalf("Encode(1246): %v", err)
	}
	got, err := Decode(raw, md)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, msg) {
		t.Fatalf("decoded message differs")
	}

	before := append([]byte(nil), raw...)
	err = Encode(raw, append(msg, 'x'), md)
	if !perrors.IsCapacity(err) {
		t.Fatalf("Encode(1247): expected CapacityError, got %v", err)
	}
	if !bytes.Equal(raw, before) {
		t.Fatalf("buffer modified by failed Encode")
	}
}

func TestEncode_HiBitLayout(t *testing.T) {
	md := meta(48, 1, 8, png.ColorGrayscale)
	raw := bytes.Repeat([]byte{0xFF}, 49)
	raw[0] = 0 // filter tag

	if err := Encode(raw, []byte("Hi"), md); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "00000010" + "00000000" + "00000000" + "00000000" + "01001000" + "01101001"
	for i, ch := range want {
		b := raw[1+i]
		if got := b & 1; got != byte(ch-'0') {
			t.Fatalf("bit %d = %d, want %c", i, got, ch)
		}
		if b&0xFE != 0xFE {
			t.Fatalf("byte %d upper bits changed: %08b", i, b)
		}
	}
	if raw[0] != 0 {
		t.Fatalf("filter tag modified")
	}

	got, err := Decode(raw, md)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(got) != "Hi" {
		t.Fatalf("Decode = %q", got)
	}
}

func TestRoundTrip_Formats(t *testing.T) {
	tests := []struct {
		name string
		md   png.Metadata
	}{
		{"gray8", meta(37, 13, 8, png.ColorGrayscale)},
		{"rgb8", meta(21, 9, 8, png.ColorTrueColor)},
		{"rgba8", meta(16, 16, 8, png.ColorTrueColorAlpha)},
		{"gray_alpha8", meta(11, 30, 8, png.ColorGrayscaleAlpha)},
		{"paletted8", meta(40, 4, 8, png.ColorPaletted)},
		{"gray1", meta(10, 40, 1, png.ColorGrayscale)},
		{"gray2", meta(7, 40, 2, png.ColorGrayscale)},
		{"paletted4", meta(9, 30, 4, png.ColorPaletted)},
	}
	rnd := rand.New(rand.NewSource(42))
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			maxLen, err := MaxMessage(tc.md)
			if err != nil {
				t.Fatalf("MaxMessage: %v", err)
			}
			for _, n := range []int{0, 1, maxLen / 2, maxLen} {
				raw := rawFor(rnd, tc.md)
				msg := make([]byte, n)
				rnd.Read(msg)
				if err := Encode(raw, msg, tc.md); err != nil {
					t.Fatalf("Encode(%d): %v", n, err)
				}
				got, err := Decode(raw, tc.md)
				if err != nil {
					t.Fatalf("Decode(%d): %v", n, err)
				}
				if !bytes.Equal(got, msg) {
					t.Fatalf("round trip mismatch for %d bytes", n)
				}
			}
		})
	}
}

func TestEncode_TouchesOnlyCarrierBits(t *testing.T) {
	md := meta(5, 8, 8, png.ColorTrueColor) // bpp 3, 40 bits
	stride := md.ScanlineBytes() + 1
	carrier := map[int]bool{}
	for y := 0; y < 8; y++ {
		for px := 0; px < 5; px++ {
			carrier[y*stride+1+px*3] = true
		}
	}

	rnd := rand.New(rand.NewSource(9))
	raw := rawFor(rnd, md)
	before := append([]byte(nil), raw...)
	if err := Encode(raw, []byte{0xA5}, md); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := range raw {
		if carrier[i] {
			if raw[i]&0xFE != before[i]&0xFE {
				t.Fatalf("carrier byte %d: upper bits changed", i)
			}
			continue
		}
		if raw[i] != before[i] {
			t.Fatalf("non-carrier byte %d changed (%d -> %d)", i, before[i], raw[i])
		}
	}

	// The last carrier byte holds the last bit of 0xA5.
	if raw[7*stride+1+4*3]&1 != 1 {
		t.Fatalf("last carrier bit not set")
	}
}

func TestSixteenBitRejected(t *testing.T) {
	md := meta(10, 10, 16, png.ColorTrueColor)
	if _, err := Capacity(md); !perrors.IsCapacity(err) {
		t.Fatalf("Capacity: expected CapacityError, got %v", err)
	}
	raw := make([]byte, 10*(60+1))
	before := append([]byte(nil), raw...)
	if err := Encode(raw, []byte("x"), md); !perrors.IsCapacity(err) {
		t.Fatalf("Encode: expected CapacityError, got %v", err)
	}
	if !bytes.Equal(raw, before) {
		t.Fatalf("buffer modified")
	}
	if _, err := Decode(raw, md); !perrors.IsCapacity(err) {
		t.Fatalf("Decode: expected CapacityError, got %v", err)
	}
}

func TestDecode_Errors(t *testing.T) {
	md := meta(8, 8, 8, png.ColorGrayscale) // 64 bits
	stride := 9

	allOnes := bytes.Repeat([]byte{0xFF}, 8*stride)
	for y := 0; y < 8; y++ {
		allOnes[y*stride] = 0
	}

	tiny := meta(4, 4, 8, png.ColorGrayscale) // 16 bits, not even a prefix

	tests := []struct {
		name string
		raw  []byte
		md   png.Metadata
	}{
		{"length_overruns", allOnes, md},
		{"wrong_size", allOnes[:len(allOnes)-1], md},
		{"no_room_for_prefix", make([]byte, 4*5), tiny},
		{"interlaced", allOnes, func() png.Metadata { m := md; m.InterlaceMethod = 1; return m }()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.raw, tc.md); !perrors.IsFormat(err) {
				t.Fatalf("expected FormatError, got %v", err)
			}
		})
	}
}

func TestEncode_WrongSize(t *testing.T) {
	md := meta(8, 8, 8, png.ColorGrayscale)
	if err := Encode(make([]byte, 10), nil, md); !perrors.IsFormat(err) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestMaxMessage_Tiny(t *testing.T) {
	md := meta(2, 2, 8, png.ColorGrayscale)
	if n, err := MaxMessage(md); err != nil || n != 0 {
		t.Fatalf("MaxMessage = %d, %v", n, err)
	}
	raw := make([]byte, 2*3)
	if err := Encode(raw, nil, md); !perrors.IsCapacity(err) {
		t.Fatalf("expected CapacityError for prefix alone, got %v", err)
	}
}

func TestBitReaderWriter(t *testing.T) {
	in := []byte{0x80, 0x01, 0xA5, 0x3C}
	br := newBitReader(in)
	var buf bytes.Buffer
	bw := newBitWriter(&buf)
	for i := 0; i < len(in)*8; i++ {
		bw.writeBit(br.readBitFast())
	}
	if !bytes.Equal(buf.Bytes(), in) {
		t.Fatalf("got % x", buf.Bytes())
	}

	br = newBitReader([]byte{0x80})
	if br.readBitFast() != 1 || br.readBitFast() != 0 {
		t.Fatalf("bit order is not msb-first")
	}
}
