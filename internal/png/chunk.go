// Package png models the PNG container: the signature, length/type/data/CRC
// chunk framing, the IHDR header and the split of a file into its concatenated
// IDAT stream and every other chunk.
package png

import (
	"encoding/binary"
	"hash/crc32"
)

// Signature is the fixed 8-byte header of every PNG file.
const Signature = "\x89PNG\r\n\x1a\n"

// Chunk types the codec treats specially.
const (
	TypeIHDR = "IHDR"
	TypeIDAT = "IDAT"
	TypeIEND = "IEND"
)

// DefaultIDATSize is the maximum payload of each IDAT chunk written by Serialize.
const DefaultIDATSize = 8192

// chunk = length(4) + type(4) + data + crc(4)
const chunkOverhead = 4 + 4 + 4

// Chunk is one length-prefixed, typed, CRC-framed record.
// CRC holds the value read from the file, which is not necessarily valid.
type Chunk struct {
	Type string
	Data []byte
	CRC  uint32
}

// NewChunk builds a chunk with a freshly computed CRC.
func NewChunk(typ string, data []byte) Chunk {
	return Chunk{Type: typ, Data: data, CRC: Checksum(typ, data)}
}

// Checksum returns CRC32(type ‖ data) as PNG defines it.
func Checksum(typ string, data []byte) uint32 {
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	return crc.Sum32()
}

// Valid reports whether the stored CRC matches the chunk contents.
func (c Chunk) Valid() bool {
	return c.CRC == Checksum(c.Type, c.Data)
}

// Critical reports whether the chunk is critical, i.e. the ancillary bit
// (bit 5 of the first type byte) is clear.
func (c Chunk) Critical() bool {
	return len(c.Type) == 4 && c.Type[0]&0x20 == 0
}

// Len returns the encoded size of the chunk including framing.
func (c Chunk) Len() int {
	return chunkOverhead + len(c.Data)
}

// appendTo writes the chunk verbatim, with the CRC it carries.
func (c Chunk) appendTo(dst []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(c.Data)))
	dst = append(dst, c.Type...)
	dst = append(dst, c.Data...)
	return binary.BigEndian.AppendUint32(dst, c.CRC)
}

// Store is a parsed PNG: every non-IDAT chunk in file order (IEND included)
// and the IDAT payloads concatenated in arrival order.
type Store struct {
	Chunks []Chunk
	IDAT   []byte
	// IDATSize is the running total of IDAT payload bytes.
	IDATSize int
	// IDATCount is the number of IDAT chunks the stream was assembled from.
	IDATCount int
	// CRCErrors lists ancillary chunk types whose CRC did not match. They
	// are still passed through.
	CRCErrors []string
}

// Types returns the types of the non-IDAT chunks in order.
func (s *Store) Types() []string {
	out := make([]string, len(s.Chunks))
	for i, c := range s.Chunks {
		out[i] = c.Type
	}
	return out
}

func (s *Store) addIDAT(data []byte) {
	s.IDAT = append(s.IDAT, data...)
	s.IDATSize += len(data)
	s.IDATCount++
}
