package png

import (
	"encoding/binary"
	"fmt"
	"io"

	perrors "github.com/svanichkin/lsbpng/internal/errors"
)

// Parse splits a PNG file into its Store and the Metadata decoded from IHDR.
// It reads chunks until IEND has been consumed; anything after IEND is ignored.
//
// A CRC mismatch on a critical chunk fails the parse. Ancillary chunks with a
// bad CRC are kept verbatim and listed in Store.CRCErrors.
func Parse(b []byte) (*Store, Metadata, error) {
	if len(b) < len(Signature) || string(b[:len(Signature)]) != Signature {
		return nil, Metadata{}, perrors.NewFormatError("png.parse.signature", fmt.Errorf("not a PNG file"))
	}

	var (
		st       = &Store{}
		md       Metadata
		seenIHDR bool
		seenIEND bool
	)
	off := len(Signature)
	for !seenIEND {
		c, n, err := readChunk(b[off:])
		if err != nil {
			return nil, Metadata{}, perrors.NewFormatError(fmt.Sprintf("png.parse.chunk@%d", off), err)
		}
		off += n

		if !c.Valid() {
			if c.Critical() {
				return nil, Metadata{}, perrors.NewFormatError("png.parse.crc", fmt.Errorf("chunk %q: stored %08x, computed %08x", c.Type, c.CRC, Checksum(c.Type, c.Data)))
			}
			st.CRCErrors = append(st.CRCErrors, c.Type)
		}

		switch c.Type {
		case TypeIHDR:
			if seenIHDR {
				return nil, Metadata{}, perrors.NewFormatError("png.parse.ihdr", fmt.Errorf("duplicate IHDR"))
			}
			if md, err = ParseIHDR(c.Data); err != nil {
				return nil, Metadata{}, err
			}
			seenIHDR = true
			st.Chunks = append(st.Chunks, c)
		case TypeIDAT:
			if !seenIHDR {
				return nil, Metadata{}, perrors.NewFormatError("png.parse.idat", fmt.Errorf("IDAT before IHDR"))
			}
			st.addIDAT(c.Data)
		case TypeIEND:
			seenIEND = true
			st.Chunks = append(st.Chunks, c)
		default:
			st.Chunks = append(st.Chunks, c)
		}
	}

	if !seenIHDR {
		return nil, Metadata{}, perrors.NewFormatError("png.parse.ihdr", fmt.Errorf("missing IHDR"))
	}
	return st, md, nil
}

// readChunk decodes one chunk from the front of b and returns the number of
// bytes consumed. The chunk data is copied so the Store owns its buffers.
func readChunk(b []byte) (Chunk, int, error) {
	if len(b) < 8 {
		return Chunk{}, 0, io.ErrUnexpectedEOF
	}
	length := binary.BigEndian.Uint32(b[0:4])
	if length > 0x7fffffff {
		return Chunk{}, 0, fmt.Errorf("bad chunk length %d", length)
	}
	typ := b[4:8]
	for _, ch := range typ {
		if !(ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z') {
			return Chunk{}, 0, fmt.Errorf("bad chunk type %q", typ)
		}
	}
	end := 8 + int(length) + 4
	if end > len(b) {
		return Chunk{}, 0, fmt.Errorf("chunk %q length %d: %w", typ, length, io.ErrUnexpectedEOF)
	}
	data := make([]byte, length)
	copy(data, b[8:8+int(length)])
	return Chunk{
		Type: string(typ),
		Data: data,
		CRC:  binary.BigEndian.Uint32(b[8+int(length) : end]),
	}, end, nil
}
