package errors

import (
	stdErrors "errors"
	"fmt"
)

// FormatError reports input that is not a well-formed PNG for this pipeline:
// bad signature, truncated chunk stream, bad IHDR, unknown color type,
// out-of-range filter tag, or a hidden message length that overruns the image.
type FormatError struct {
	Op  string // operation that detected the problem (e.g. "png.parse.signature")
	Err error  // underlying cause (may be nil)
}

func (e *FormatError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("format error: %s", e.Op)
	}
	return fmt.Sprintf("format error: %s: %v", e.Op, e.Err)
}
func (e *FormatError) Unwrap() error { return e.Err }

// CodecError reports a compression or decompression failure, including a
// decompressed size that does not match the size the caller expected.
type CodecError struct {
	Op  string
	Err error
}

func (e *CodecError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("codec error: %s", e.Op)
	}
	return fmt.Sprintf("codec error: %s: %v", e.Op, e.Err)
}
func (e *CodecError) Unwrap() error { return e.Err }

// CapacityError reports a message that does not fit into the carrier image,
// or a carrier the steganography codec cannot use at all.
type CapacityError struct {
	Op        string
	Need      int // bits required (0 if not applicable)
	Available int // bits available (0 if not applicable)
	Err       error
}

func (e *CapacityError) Error() string {
	base := fmt.Sprintf("capacity error: %s", e.Op)
	if e.Need > 0 || e.Available > 0 {
		base += fmt.Sprintf(" (need %d bits, have %d)", e.Need, e.Available)
	}
	if e.Err != nil {
		return base + ": " + e.Err.Error()
	}
	return base
}
func (e *CapacityError) Unwrap() error { return e.Err }

// IsFormat returns true if err is (or wraps) a FormatError.
func IsFormat(err error) bool {
	var fe *FormatError
	return err != nil && stdErrors.As(err, &fe)
}

// IsCodec returns true if err is (or wraps) a CodecError.
func IsCodec(err error) bool {
	var ce *CodecError
	return err != nil && stdErrors.As(err, &ce)
}

// IsCapacity returns true if err is (or wraps) a CapacityError.
func IsCapacity(err error) bool {
	var ce *CapacityError
	return err != nil && stdErrors.As(err, &ce)
}

// Constructors (encourage contextual wrapping with %w when used by callers).
func NewFormatError(op string, cause error) error { return &FormatError{Op: op, Err: cause} }
func NewCodecError(op string, cause error) error  { return &CodecError{Op: op, Err: cause} }
func NewCapacityError(op string, need, available int, cause error) error {
	return &CapacityError{Op: op, Need: need, Available: available, Err: cause}
}

// Usage pattern example:
//  if len(b) < 8 {
//      return NewFormatError("png.parse.signature", io.ErrUnexpectedEOF)
//  }
// Keep layering context with fmt.Errorf("...: %w", err).
