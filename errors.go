package pklib

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the exploder and imploder, grounded on the
// teacher's own var-block of sentinel errors (blast.ErrHeader et al.) and
// on the corpus's general habit of exposing errors.New sentinels for
// callers to test with errors.Is (see woozymasta/lzss/errors.go).
var (
	// ErrInvalidHeader is returned when the 2-byte compression header
	// carries an unrecognized mode or dictionary size.
	ErrInvalidHeader = errors.New("pklib: invalid header")
	// ErrUnexpectedEOF is returned when the input ends before an end
	// marker is decoded.
	ErrUnexpectedEOF = errors.New("pklib: unexpected end of compressed stream")
	// ErrInvalidDistance is returned when a decoded back-reference
	// points before the start of the output produced so far.
	ErrInvalidDistance = errors.New("pklib: invalid distance in compressed stream")
	// ErrInvalidLengthCode is returned when the decoder reads a length
	// code for a reserved length (517 or 518, between the longest match
	// and the end-of-stream marker), or one whose copy would run past the
	// output buffer.
	ErrInvalidLengthCode = errors.New("pklib: invalid length code in compressed stream")
	// ErrInvalidDictionarySize is returned by ImplodeBytes, and by an
	// ImplodeWriter's Write and Finish, when dict is not one of Size1K,
	// Size2K, or Size4K.
	ErrInvalidDictionarySize = errors.New("pklib: invalid dictionary size")
	// ErrInvalidMode is returned by ImplodeBytes, and by an ImplodeWriter's
	// Write and Finish, when mode is not Binary or ASCII.
	ErrInvalidMode = errors.New("pklib: invalid compression mode")
	// ErrWriterFinished is returned by Write after Finish has already
	// been called on an ImplodeWriter.
	ErrWriterFinished = errors.New("pklib: write after Finish")
)

// HeaderError reports the specific byte and value that failed header
// validation, for callers that want more than ErrInvalidHeader's fixed
// text (see spec's InvalidHeader(byte, value) taxonomy entry).
type HeaderError struct {
	Offset int
	Value  byte
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("pklib: invalid header byte %d: 0x%02x", e.Offset, e.Value)
}

func (e *HeaderError) Unwrap() error { return ErrInvalidHeader }

// DistanceError reports the offending distance and the amount of output
// produced so far when a back-reference is rejected as invalid.
type DistanceError struct {
	Distance uint32
	Produced uint32
}

func (e *DistanceError) Error() string {
	return fmt.Sprintf("pklib: distance %d exceeds %d bytes of output produced so far", e.Distance, e.Produced)
}

func (e *DistanceError) Unwrap() error { return ErrInvalidDistance }
