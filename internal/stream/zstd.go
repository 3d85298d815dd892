package stream

import (
	"sync"

	"github.com/klauspost/compress/zstd"

	perrors "github.com/svanichkin/lsbpng/internal/errors"
)

// maxPayloadMemory caps what a decoded message may expand to. A carrier image
// can hold far less than this, so anything larger is a corrupt or hostile frame.
const maxPayloadMemory = 64 << 20

// --- ZSTD helpers ---

func mustNewZstdEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(
		nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		panic(err)
	}
	return enc
}

func mustNewZstdDecoder() *zstd.Decoder {
	dec, err := zstd.NewReader(
		nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
		zstd.WithDecoderMaxMemory(maxPayloadMemory),
	)
	if err != nil {
		panic(err)
	}
	return dec
}

var zstdEncPool = sync.Pool{
	New: func() any {
		return mustNewZstdEncoder()
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		return mustNewZstdDecoder()
	},
}

// CompressPayload zstd-compresses a message before it is embedded. Short
// text usually grows by the frame header, so callers opt in explicitly.
func CompressPayload(data []byte) ([]byte, error) {
	enc := zstdEncPool.Get().(*zstd.Encoder)
	out := enc.EncodeAll(data, nil)
	zstdEncPool.Put(enc)
	return out, nil
}

// DecompressPayload reverses CompressPayload.
func DecompressPayload(data []byte) ([]byte, error) {
	dec := zstdDecPool.Get().(*zstd.Decoder)
	out, err := dec.DecodeAll(data, nil)
	zstdDecPool.Put(dec)
	if err != nil {
		return nil, perrors.NewCodecError("stream.zstd.decode", err)
	}
	return out, nil
}
