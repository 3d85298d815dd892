// Package pipeline sequences the codec stages:
//
//	parse -> decompress -> reconstruct -> embed/extract -> predict -> compress -> serialize
//
// Every stage either returns a new buffer or mutates one this package owns, and
// a run produces output only after all stages succeeded.
package pipeline

import (
	"fmt"
	"log/slog"

	perrors "github.com/svanichkin/lsbpng/internal/errors"
	"github.com/svanichkin/lsbpng/internal/filter"
	"github.com/svanichkin/lsbpng/internal/logger"
	"github.com/svanichkin/lsbpng/internal/png"
	"github.com/svanichkin/lsbpng/internal/steg"
	"github.com/svanichkin/lsbpng/internal/stream"
)

// Config controls a Pipeline. The zero value is usable.
type Config struct {
	// Codec compresses the IDAT stream. Nil means stream.Default.
	Codec stream.Codec
	// Strategy picks the filters written back to the output.
	Strategy filter.Strategy
	// IDATSize caps the payload of each output IDAT chunk. Zero means png.DefaultIDATSize.
	IDATSize int
	// CompressMessage zstd-compresses the message before embedding and
	// expects a compressed message when extracting.
	CompressMessage bool
	// Logger receives diagnostics. Nil means logger.Logger().
	Logger *slog.Logger
}

// Pipeline runs embed, extract and inspect on in-memory PNG files.
type Pipeline struct {
	codec    stream.Codec
	strategy filter.Strategy
	writer   png.Writer
	compress bool
	log      *slog.Logger
}

// New builds a Pipeline, applying defaults for unset fields.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		codec:    cfg.Codec,
		strategy: cfg.Strategy,
		writer:   png.Writer{IDATSize: cfg.IDATSize},
		compress: cfg.CompressMessage,
		log:      cfg.Logger,
	}
	if p.codec == nil {
		p.codec = stream.Default
	}
	if p.log == nil {
		p.log = logger.Logger()
	}
	return p
}

// decoded is the decoded state shared by all operations.
type decoded struct {
	store *png.Store
	md    png.Metadata
	geom  filter.Geometry
	raw   []byte
}

func (p *Pipeline) load(src []byte) (*decoded, error) {
	st, md, err := png.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	log := logger.WithImage(p.log, md.Width, md.Height, md.BitDepth, md.ColorType)
	log.Debug("parsed", "chunks", len(st.Chunks), "idat_chunks", st.IDATCount, "idat_bytes", st.IDATSize)
	if len(st.CRCErrors) > 0 {
		log.Warn("ancillary chunks with bad CRC passed through", "types", st.CRCErrors)
	}

	if md.InterlaceMethod != 0 {
		return nil, perrors.NewFormatError("pipeline.interlace", fmt.Errorf("interlace method %d is not supported", md.InterlaceMethod))
	}
	if md.CompressionMethod != 0 || md.FilterMethod != 0 {
		return nil, perrors.NewFormatError("pipeline.method", fmt.Errorf("compression method %d, filter method %d", md.CompressionMethod, md.FilterMethod))
	}

	size, err := stream.ExpectedSize(md)
	if err != nil {
		return nil, err
	}
	filtered, err := p.codec.Decompress(st.IDAT, size)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	geom := filter.GeometryOf(md)
	raw, err := filter.Reconstruct(filtered, geom)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: %w", err)
	}
	log.Debug("reconstructed", "raw_bytes", len(raw))
	return &decoded{store: st, md: md, geom: geom, raw: raw}, nil
}

// Embed hides msg in the PNG file src and returns the new file.
func (p *Pipeline) Embed(src, msg []byte) ([]byte, error) {
	img, err := p.load(src)
	if err != nil {
		return nil, err
	}

	payload := msg
	if p.compress {
		if payload, err = stream.CompressPayload(msg); err != nil {
			return nil, fmt.Errorf("compress message: %w", err)
		}
		p.log.Debug("message compressed", "bytes", len(msg), "compressed_bytes", len(payload))
	}

	if err := steg.Encode(img.raw, payload, img.md); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	filtered, err := filter.PredictWith(img.raw, img.geom, p.strategy)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	idat, err := p.codec.Compress(filtered)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	out, err := p.writer.Serialize(img.store.Chunks, idat)
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	p.log.Info("message embedded", "message_bytes", len(msg), "embedded_bytes", len(payload),
		"idat_in", img.store.IDATSize, "idat_out", len(idat), "file_bytes", len(out))
	return out, nil
}

// Extract recovers a message hidden by Embed.
func (p *Pipeline) Extract(src []byte) ([]byte, error) {
	img, err := p.load(src)
	if err != nil {
		return nil, err
	}
	msg, err := steg.Decode(img.raw, img.md)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if p.compress {
		if msg, err = stream.DecompressPayload(msg); err != nil {
			return nil, fmt.Errorf("decompress message: %w", err)
		}
	}
	p.log.Info("message extracted", "message_bytes", len(msg))
	return msg, nil
}
