package pklib

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// implodedAIAIAIAIAIAIA is a known-good "imploded" stream (Binary mode,
// 1K dictionary) that decodes to "AIAIAIAIAIAIA". This exact byte vector
// is used across the PKLib/blast.c test corpora this module descends
// from, so it doubles as a cross-check that the switch from a
// runtime-built canonical Huffman decode to PKLib's static-table decode
// still agrees on the wire format both approaches read.
var implodedAIAIAIAIAIAIA = []byte{0x00, 0x04, 0x82, 0x24, 0x25, 0x8f, 0x80, 0x7f}

func TestExplodeBytesKnownVector(t *testing.T) {
	got, err := ExplodeBytes(implodedAIAIAIAIAIAIA)
	if err != nil {
		t.Fatalf("ExplodeBytes: %v", err)
	}
	want := "AIAIAIAIAIAIA"
	if string(got) != want {
		t.Fatalf("ExplodeBytes = %q, want %q", got, want)
	}
}

func TestExplodeReaderKnownVector(t *testing.T) {
	r, err := NewExplodeReader(bytes.NewReader(implodedAIAIAIAIAIAIA))
	if err != nil {
		t.Fatalf("NewExplodeReader: %v", err)
	}
	if r.Mode() != Binary {
		t.Errorf("Mode() = %v, want Binary", r.Mode())
	}
	if r.DictionarySize() != Size1K {
		t.Errorf("DictionarySize() = %v, want Size1K", r.DictionarySize())
	}

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(out) != "AIAIAIAIAIAIA" {
		t.Fatalf("ReadAll = %q", out)
	}
}

func TestExplodeReaderPoisonsAfterError(t *testing.T) {
	r, err := NewExplodeReader(bytes.NewReader([]byte{0x00, 0x04, 0x00}))
	if err != nil {
		t.Fatalf("NewExplodeReader: %v", err)
	}

	buf := make([]byte, 16)
	_, err1 := r.Read(buf)
	if err1 == nil {
		t.Fatal("expected an error decoding a truncated stream")
	}

	// The error is reported exactly once; every subsequent Read goes
	// silent rather than replaying it.
	n2, err2 := r.Read(buf)
	if err2 != nil {
		t.Fatalf("second Read returned an error, want nil: %v", err2)
	}
	if n2 != 0 {
		t.Fatalf("second Read returned %d bytes, want 0", n2)
	}

	n3, err3 := r.Read(buf)
	if err3 != nil || n3 != 0 {
		t.Fatalf("third Read = (%d, %v), want (0, nil)", n3, err3)
	}
}

func TestExplodeBytesInvalidHeaderMode(t *testing.T) {
	_, err := ExplodeBytes([]byte{0x02, 0x04, 0x00})
	var headerErr *HeaderError
	if !errors.As(err, &headerErr) {
		t.Fatalf("expected *HeaderError, got %v (%T)", err, err)
	}
	if headerErr.Offset != 0 || headerErr.Value != 0x02 {
		t.Fatalf("unexpected HeaderError fields: %+v", headerErr)
	}
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("expected errors.Is(err, ErrInvalidHeader) to hold")
	}
}

func TestExplodeBytesInvalidHeaderDictSize(t *testing.T) {
	_, err := ExplodeBytes([]byte{0x00, 0x09, 0x00})
	var headerErr *HeaderError
	if !errors.As(err, &headerErr) {
		t.Fatalf("expected *HeaderError, got %v (%T)", err, err)
	}
	if headerErr.Offset != 1 || headerErr.Value != 0x09 {
		t.Fatalf("unexpected HeaderError fields: %+v", headerErr)
	}
}

func TestExplodeBytesShortHeader(t *testing.T) {
	_, err := ExplodeBytes([]byte{0x00, 0x04})
	if !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestExplodeBytesTruncatedStream(t *testing.T) {
	truncated := implodedAIAIAIAIAIAIA[:5]
	_, err := ExplodeBytes(truncated)
	if err == nil {
		t.Fatal("expected an error decoding a truncated stream")
	}
}

func TestExplodeBytesEmptyInput(t *testing.T) {
	_, err := ExplodeBytes(nil)
	if !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF for empty input, got %v", err)
	}
}

// buildReservedLengthStream hand-emits a header followed by a single
// length code for repLength, using the compressor's own literal/length
// table so the codeword is guaranteed bit-correct without emitting a
// distance (the decoder is expected to reject the length before it
// ever asks for one).
func buildReservedLengthStream(t *testing.T, repLength uint32) []byte {
	t.Helper()
	var out bytes.Buffer
	c := &compressorState{}
	if err := c.initialize(Binary, Size1K); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	c.writer = &out

	c.outBuff[0] = uint8(c.ctype)
	c.outBuff[1] = uint8(c.dsizeBits)
	c.outBytes = 2
	for i := 2; i < len(c.outBuff); i++ {
		c.outBuff[i] = 0
	}
	c.outBits = 0

	idx := repLength + 0xFE
	c.outputBits(uint32(c.chBits[idx]), uint32(c.chCodes[idx]))
	c.writeEndMarker()
	return out.Bytes()
}

func TestExplodeBytesRejectsReservedLengthGap(t *testing.T) {
	// 517 and 518 sit between the longest length compress ever emits
	// (maxRepLength, 516) and the end-of-stream sentinel (519). No
	// correct encoder produces either; only a corrupted or hostile
	// stream would.
	for _, repLength := range []uint32{517, 518} {
		stream := buildReservedLengthStream(t, repLength)
		_, err := ExplodeBytes(stream)
		if !errors.Is(err, ErrInvalidLengthCode) {
			t.Fatalf("repLength=%d: expected ErrInvalidLengthCode, got %v", repLength, err)
		}
	}
}
