// Package stream wraps the compression primitives the pipeline needs: the
// zlib stream carried by PNG IDAT chunks and zstd for message payloads.
package stream

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"

	perrors "github.com/svanichkin/lsbpng/internal/errors"
	"github.com/svanichkin/lsbpng/internal/png"
)

// Codec compresses and decompresses an IDAT stream.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	// Decompress must return exactly expectedSize bytes or fail.
	Decompress(data []byte, expectedSize int) ([]byte, error)
}

// Zlib is the PNG compression method 0 codec (zlib-wrapped DEFLATE).
type Zlib struct {
	// Level is a flate level; zero means flate.BestCompression.
	Level int
}

// Default is the codec used when none is configured.
var Default Codec = Zlib{}

// ExpectedSize is the decompressed size of an IDAT stream for md. PNG does not
// record it, so it has to be derived from the header.
func ExpectedSize(md png.Metadata) (int, error) {
	return md.RawSize()
}

func (z Zlib) level() int {
	if z.Level == 0 {
		return flate.BestCompression
	}
	return z.Level
}

// Compress deflates data in one shot. The result may be larger than data.
func (z Zlib) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data)/2 + 64)

	zw, err := zlib.NewWriterLevel(&buf, z.level())
	if err != nil {
		return nil, perrors.NewCodecError("stream.deflate.init", err)
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, perrors.NewCodecError("stream.deflate.write", err)
	}
	if err := zw.Close(); err != nil {
		return nil, perrors.NewCodecError("stream.deflate.close", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates data into a buffer of exactly expectedSize bytes. A
// stream that ends early or holds more output than expected is an error, as
// is a bad zlib header or checksum.
func (z Zlib) Decompress(data []byte, expectedSize int) ([]byte, error) {
	if expectedSize < 0 {
		return nil, perrors.NewCodecError("stream.inflate", fmt.Errorf("negative expected size %d", expectedSize))
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, perrors.NewCodecError("stream.inflate.header", err)
	}
	defer zr.Close()

	out := make([]byte, expectedSize)
	if n, err := io.ReadFull(zr, out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, perrors.NewCodecError("stream.inflate", fmt.Errorf("short stream: got %d of %d bytes", n, expectedSize))
		}
		return nil, perrors.NewCodecError("stream.inflate", err)
	}

	// The stream must end here; reading to EOF also verifies the adler32 trailer.
	var extra [1]byte
	n, err := io.ReadFull(zr, extra[:])
	switch {
	case n > 0:
		return nil, perrors.NewCodecError("stream.inflate", fmt.Errorf("stream holds more than %d bytes", expectedSize))
	case errors.Is(err, io.EOF):
		return out, nil
	default:
		return nil, perrors.NewCodecError("stream.inflate.trailer", err)
	}
}
