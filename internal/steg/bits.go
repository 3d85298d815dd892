package steg

import "bytes"

// bitWriter writes bits to a bytes.Buffer (msb-first in each byte).
type bitWriter struct {
	buf  *bytes.Buffer
	byte byte
	n    uint8 // number of bits written (0..8)
}

func newBitWriter(buf *bytes.Buffer) bitWriter {
	return bitWriter{buf: buf}
}

// writeBit writes a single bit (msb-first in byte).
func (bw *bitWriter) writeBit(bit byte) {
	bw.byte = bw.byte<<1 | bit&1
	bw.n++
	if bw.n == 8 {
		_ = bw.buf.WriteByte(bw.byte)
		bw.byte = 0
		bw.n = 0
	}
}

// bitReader reads bits from a byte slice (msb-first in each byte).
type bitReader struct {
	data []byte
	idx  int
	bit  uint8 // bit position in current byte (0..7), msb-first
}

func newBitReader(data []byte) bitReader {
	return bitReader{data: data}
}

// readBitFast returns the next bit as 0 or 1. The caller must ensure there is
// enough input data remaining.
func (br *bitReader) readBitFast() byte {
	b := (br.data[br.idx] >> (7 - br.bit)) & 1
	br.bit++
	if br.bit == 8 {
		br.bit = 0
		br.idx++
	}
	return b
}
