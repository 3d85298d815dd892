package png

import (
	"fmt"

	perrors "github.com/svanichkin/lsbpng/internal/errors"
)

// Writer re-emits a PNG around a new compressed IDAT stream.
type Writer struct {
	// IDATSize is the maximum payload per IDAT chunk. Zero means DefaultIDATSize.
	IDATSize int
}

// Serialize writes chunks and payload with the default IDAT size.
func Serialize(chunks []Chunk, payload []byte) ([]byte, error) {
	var w Writer
	return w.Serialize(chunks, payload)
}

// Serialize writes the signature, every chunk except IEND in order (verbatim,
// with its original CRC), the payload split into IDAT chunks, and a fresh IEND.
// Chunks typed IEND are dropped wherever they appear.
func (w Writer) Serialize(chunks []Chunk, payload []byte) ([]byte, error) {
	size := w.IDATSize
	if size == 0 {
		size = DefaultIDATSize
	}
	if size < 0 || size > 0x7fffffff {
		return nil, perrors.NewFormatError("png.serialize.idat_size", fmt.Errorf("invalid IDAT size %d", size))
	}

	n := len(Signature)
	for _, c := range chunks {
		if c.Type != TypeIEND {
			n += c.Len()
		}
	}
	idats := (len(payload) + size - 1) / size
	if idats == 0 {
		idats = 1
	}
	n += len(payload) + idats*chunkOverhead + chunkOverhead

	out := make([]byte, 0, n)
	out = append(out, Signature...)
	for _, c := range chunks {
		if len(c.Type) != 4 {
			return nil, perrors.NewFormatError("png.serialize.chunk", fmt.Errorf("bad chunk type %q", c.Type))
		}
		if c.Type == TypeIEND {
			continue
		}
		out = c.appendTo(out)
	}

	for i := 0; i < idats; i++ {
		lo := i * size
		hi := min(lo+size, len(payload))
		out = NewChunk(TypeIDAT, payload[lo:hi]).appendTo(out)
	}

	return NewChunk(TypeIEND, nil).appendTo(out), nil
}
