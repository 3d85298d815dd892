package pipeline

import (
	"errors"
	"fmt"
	"io"
	"strings"

	perrors "github.com/svanichkin/lsbpng/internal/errors"
	"github.com/svanichkin/lsbpng/internal/png"
	"github.com/svanichkin/lsbpng/internal/steg"
)

// Report describes a carrier image.
type Report struct {
	Metadata   png.Metadata
	Chunks     []string // non-IDAT chunk types in file order
	IDATChunks int
	IDATBytes  int
	RawBytes   int
	// FilterCounts is the number of scanlines per filter type (index = tag).
	FilterCounts [5]int
	// CapacityBits and MaxMessage are zero when Unsupported is set.
	CapacityBits int
	MaxMessage   int
	// Unsupported explains why the image cannot carry a message, if it cannot.
	Unsupported string
	CRCErrors   []string
}

// Inspect decodes src far enough to report its geometry and capacity.
func (p *Pipeline) Inspect(src []byte) (*Report, error) {
	img, err := p.load(src)
	if err != nil {
		return nil, err
	}
	r := &Report{
		Metadata:   img.md,
		Chunks:     img.store.Types(),
		IDATChunks: img.store.IDATCount,
		IDATBytes:  img.store.IDATSize,
		RawBytes:   len(img.raw),
		CRCErrors:  img.store.CRCErrors,
	}
	stride := img.geom.Stride()
	for y := 0; y < img.geom.Rows; y++ {
		r.FilterCounts[img.raw[y*stride]]++
	}

	bits, err := steg.Capacity(img.md)
	if err != nil {
		if !perrors.IsCapacity(err) {
			return nil, err
		}
		r.Unsupported = capacityReason(err)
		return r, nil
	}
	r.CapacityBits = bits
	r.MaxMessage, _ = steg.MaxMessage(img.md)
	return r, nil
}

func capacityReason(err error) string {
	var ce *perrors.CapacityError
	if errors.As(err, &ce) && ce.Err != nil {
		return ce.Err.Error()
	}
	return err.Error()
}

// WriteTo prints the report in a human readable form.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	md := r.Metadata
	fmt.Fprintf(&b, "size:        %dx%d\n", md.Width, md.Height)
	fmt.Fprintf(&b, "bit depth:   %d\n", md.BitDepth)
	fmt.Fprintf(&b, "color type:  %d (%d channels)\n", md.ColorType, md.Channels)
	fmt.Fprintf(&b, "compression: %d, filter: %d, interlace: %d\n", md.CompressionMethod, md.FilterMethod, md.InterlaceMethod)
	fmt.Fprintf(&b, "chunks:      %s\n", strings.Join(r.Chunks, " "))
	fmt.Fprintf(&b, "IDAT:        %d bytes in %d chunks\n", r.IDATBytes, r.IDATChunks)
	fmt.Fprintf(&b, "raw:         %d bytes\n", r.RawBytes)
	fmt.Fprintf(&b, "filters:     none=%d sub=%d up=%d average=%d paeth=%d\n",
		r.FilterCounts[0], r.FilterCounts[1], r.FilterCounts[2], r.FilterCounts[3], r.FilterCounts[4])
	if r.Unsupported != "" {
		fmt.Fprintf(&b, "capacity:    unsupported (%s)\n", r.Unsupported)
	} else {
		fmt.Fprintf(&b, "capacity:    %d bits, %d message bytes\n", r.CapacityBits, r.MaxMessage)
	}
	if len(r.CRCErrors) > 0 {
		fmt.Fprintf(&b, "bad CRC:     %s\n", strings.Join(r.CRCErrors, " "))
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
