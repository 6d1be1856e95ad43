/*
Package pklib implements the PKWare Data Compression Library ("implode"
compressor / "explode" decompressor), the sliding-window LZ + static-Huffman
codec used inside legacy PKWare archives and, historically, inside MPQ
archives. Output produced by ImplodeWriter/ImplodeBytes is byte-for-byte
what PKWare's own implode() would have produced for the same input, mode,
and dictionary size, and ExplodeReader/ExplodeBytes decode that same wire
format bit-for-bit.

For example, to decompress an in-memory buffer:

	out, err := pklib.ExplodeBytes(compressed)

Or to decompress while reading from an arbitrary source:

	r, err := pklib.NewExplodeReader(src)
	io.Copy(dst, r)
*/
package pklib

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

/*
 * Copyright (c) 2018 Josh Varga
 * Original C version: Copyright (c) Ladislav Zezula 2003
 *
 * This software is provided 'as-is', without any express or implied
 * warranty. In no event will the authors be held liable for any damages
 * arising from the use of this software.
 *
 * Permission is granted to anyone to use this software for any purpose,
 * including commercial applications, and to alter it and redistribute it
 * freely, subject to the following restrictions:
 *
 * 1. The origin of this software must not be misrepresented; you must not
 *    claim that you wrote the original software. If you use this software
 *    in a product, an acknowledgment in the product documentation would be
 *    appreciated but is not required.
 * 2. Altered source versions must be plainly marked as such, and must not be
 *    misrepresented as being the original software.
 * 3. This notice may not be removed or altered from any source distribution.
 *
 * This code has been adapted to Go from Ladislav Zezula's explode.c found in
 * https://github.com/ladislav-zezula/StormLib/blob/master/src/pklib/explode.c
 * The literal/length/distance decode tables and GenDecodeTabs/GenAscTabs
 * table generators are direct ports; the surrounding io.Reader plumbing
 * follows this package's own conventions.
 */

const (
	inBuffSize  = 0x800
	outBuffSize = 0x2204

	// Values decodeLit can return in addition to a literal byte
	// (0x000-0x0FF) or a length code (0x100-0x304).
	literalEndOfStream = 0x305
	literalError       = 0x306
)

// explodeState mirrors PKLib's TDcmpStruct decompression half: a bit
// buffer over a small input window, the four decode tables built once per
// stream, and a circular output buffer sized so that back-references can
// always find their source without a separate dictionary buffer.
type explodeState struct {
	reader io.Reader

	ctype     Mode
	dsizeBits uint32
	dsizeMask uint32

	bitBuff   uint32
	extraBits uint32

	inBuff  [inBuffSize]byte
	inPos   int
	inBytes int

	lengthCodes  [256]uint8
	distPosCodes [256]uint8
	ascii        asciiDecodeTables

	outBuff   [outBuffSize]byte
	outputPos int
	totalOut  int // bytes already flushed to the caller, excluding outBuff's current partial window
}

// wasteBits drops n bits from the bit buffer, refilling from the
// underlying reader when fewer than n bits remain. Port of PKLib's
// WasteBits. ok is false at end of input; err is non-nil only on a
// genuine I/O failure.
func (s *explodeState) wasteBits(n uint32) (ok bool, err error) {
	if n <= s.extraBits {
		s.extraBits -= n
		s.bitBuff >>= n
		return true, nil
	}

	s.bitBuff >>= s.extraBits

	if s.inPos >= s.inBytes {
		s.inPos = 0
		s.inBytes, err = s.reader.Read(s.inBuff[:])
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		if s.inBytes == 0 {
			return false, nil
		}
	}

	s.bitBuff |= uint32(s.inBuff[s.inPos]) << 8
	s.inPos++

	s.bitBuff >>= n - s.extraBits
	s.extraBits = s.extraBits + 8 - n
	return true, nil
}

// decodeLit decodes the next literal or length code. Return values:
//
//	0x000-0x0FF  literal byte
//	0x100-0x304  length code (actual length = value - 0xFE)
//	0x305        end of stream
//	0x306        decode error (caller should stop; caller's own bookkeeping
//	             has already run out of clean input to recover from)
//
// Port of PKLib's DecodeLit.
func (s *explodeState) decodeLit() (uint32, error) {
	if s.bitBuff&1 != 0 {
		if ok, err := s.wasteBits(1); err != nil {
			return 0, err
		} else if !ok {
			return literalError, nil
		}

		lengthCode := uint32(s.lengthCodes[s.bitBuff&0xFF])
		if ok, err := s.wasteBits(uint32(lenBits[lengthCode])); err != nil {
			return 0, err
		} else if !ok {
			return literalError, nil
		}

		final := lengthCode
		if extra := exLenBits[lengthCode]; extra != 0 {
			extraLength := s.bitBuff & ((1 << extra) - 1)
			ok, err := s.wasteBits(uint32(extra))
			if err != nil {
				return 0, err
			}
			if !ok && lengthCode+uint32(extraLength) != 0x10E {
				return literalError, nil
			}
			final = uint32(lenBase[lengthCode]) + extraLength
		}

		return final + 0x100, nil
	}

	if ok, err := s.wasteBits(1); err != nil {
		return 0, err
	} else if !ok {
		return literalError, nil
	}

	if s.ctype == Binary {
		b := s.bitBuff & 0xFF
		if ok, err := s.wasteBits(8); err != nil {
			return 0, err
		} else if !ok {
			return literalError, nil
		}
		return b, nil
	}

	var value uint32
	if s.bitBuff&0xFF != 0 {
		value = uint32(s.ascii.tab1[s.bitBuff&0xFF])
		if value == 0xFF {
			if s.bitBuff&0x3F != 0 {
				if ok, err := s.wasteBits(4); err != nil {
					return 0, err
				} else if !ok {
					return literalError, nil
				}
				value = uint32(s.ascii.tab2[s.bitBuff&0xFF])
			} else {
				if ok, err := s.wasteBits(6); err != nil {
					return 0, err
				} else if !ok {
					return literalError, nil
				}
				value = uint32(s.ascii.tab3[s.bitBuff&0x7F])
			}
		}
	} else {
		if ok, err := s.wasteBits(8); err != nil {
			return 0, err
		} else if !ok {
			return literalError, nil
		}
		value = uint32(s.ascii.tab4[s.bitBuff&0xFF])
	}

	if ok, err := s.wasteBits(uint32(s.ascii.chBits[value])); err != nil {
		return 0, err
	} else if !ok {
		return literalError, nil
	}
	return value, nil
}

// decodeDist decodes the backward distance for a repLength-byte match.
// Port of PKLib's DecodeDist. Returns 0 on stream exhaustion (the caller
// treats a zero distance as ErrInvalidDistance, matching PKLib).
func (s *explodeState) decodeDist(repLength uint32) (uint32, error) {
	distPosCode := s.distPosCodes[s.bitBuff&0xFF]
	distPosBits := distBits[distPosCode]

	if ok, err := s.wasteBits(uint32(distPosBits)); err != nil {
		return 0, err
	} else if !ok {
		return 0, nil
	}

	var distance uint32
	if repLength == 2 {
		distance = uint32(distPosCode)<<2 | (s.bitBuff & 0x03)
		if ok, err := s.wasteBits(2); err != nil {
			return 0, err
		} else if !ok {
			return 0, nil
		}
	} else {
		distance = uint32(distPosCode)<<s.dsizeBits | (s.bitBuff & s.dsizeMask)
		if ok, err := s.wasteBits(s.dsizeBits); err != nil {
			return 0, err
		} else if !ok {
			return 0, nil
		}
	}

	return distance + 1, nil
}

// initialize reads the 2-byte header, primes the bit buffer with the
// third header byte (PKLib folds it directly into bitBuff), and builds
// this stream's decode tables.
func (s *explodeState) initialize(r io.Reader) error {
	s.reader = r

	var header [3]byte
	n, err := io.ReadFull(r, header[:])
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: only %d header bytes available", ErrUnexpectedEOF, n)
		}
		return err
	}

	switch header[0] {
	case 0:
		s.ctype = Binary
	case 1:
		s.ctype = ASCII
	default:
		return &HeaderError{Offset: 0, Value: header[0]}
	}

	s.dsizeBits = uint32(header[1])
	if _, ok := dictionarySizeFromBits(s.dsizeBits); !ok {
		return &HeaderError{Offset: 1, Value: header[1]}
	}
	s.dsizeMask = 0xFFFF >> (16 - s.dsizeBits)

	s.bitBuff = uint32(header[2])
	s.extraBits = 0

	genDecodeTable(s.lengthCodes[:], lenCode[:], lenBits[:])
	genDecodeTable(s.distPosCodes[:], distCode[:], distBits[:])

	if s.ctype == ASCII {
		s.ascii.build()
	}

	s.outputPos = 0x1000
	return nil
}

// expand runs the main decompression loop, appending decoded bytes to out
// until the stream's end marker is decoded or an error occurs.
func (s *explodeState) expand(out *bytes.Buffer) error {
	for {
		literal, err := s.decodeLit()
		if err != nil {
			return err
		}

		switch {
		case literal == literalEndOfStream:
			if s.outputPos > 0x1000 {
				out.Write(s.outBuff[0x1000:s.outputPos])
			}
			return nil

		case literal == literalError:
			return ErrUnexpectedEOF

		case literal >= 0x100:
			repLength := literal - 0xFE
			// literal values 0x303-0x304 decode to lengths 517/518, a gap
			// between the longest length an encoder can ever produce
			// (maxRepLength, 516) and the end-of-stream sentinel (519,
			// literal 0x305, handled above). A stream can only reach here
			// with a corrupted or hostile length code; reject it rather
			// than run the copy loop below with an out-of-range length.
			if repLength > maxRepLength {
				return ErrInvalidLengthCode
			}

			minusDist, err := s.decodeDist(repLength)
			if err != nil {
				return err
			}
			if minusDist == 0 {
				return &DistanceError{Distance: 0, Produced: uint32(s.totalOut + s.outputPos - 0x1000)}
			}

			targetPos := s.outputPos
			available := s.totalOut + (targetPos - 0x1000)
			if int(minusDist) > available {
				return &DistanceError{Distance: minusDist, Produced: uint32(available)}
			}
			sourcePos := targetPos - int(minusDist)

			// Matches PKLib's own buffer sizing, but a corrupted length
			// still shouldn't be trusted blindly against the backing array.
			if targetPos+int(repLength) > len(s.outBuff) {
				return ErrInvalidLengthCode
			}

			for i := 0; i < int(repLength); i++ {
				s.outBuff[targetPos+i] = s.outBuff[sourcePos+i]
			}
			s.outputPos += int(repLength)

		default:
			s.outBuff[s.outputPos] = byte(literal)
			s.outputPos++
		}

		if s.outputPos >= 0x2000 {
			out.Write(s.outBuff[0x1000:0x2000])
			s.totalOut += 0x1000
			copy(s.outBuff[:], s.outBuff[0x1000:s.outputPos])
			s.outputPos -= 0x1000
		}
	}
}

// ExplodeBytes decompresses a complete "imploded" buffer and returns the
// original data.
func ExplodeBytes(compressed []byte) ([]byte, error) {
	r, err := NewExplodeReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// ExplodeReader decompresses PKWare DCL "imploded" data read from an
// underlying io.Reader. It implements io.Reader. Once it returns a
// non-nil error other than io.EOF, it is poisoned: every subsequent Read
// returns (0, nil) without touching the underlying reader again — the
// error is reported exactly once, not replayed.
type ExplodeReader struct {
	state    explodeState
	out      bytes.Buffer
	err      error
	expanded bool
	poisoned bool
}

// NewExplodeReader creates an ExplodeReader over r, reading and
// validating the 2-byte compression header immediately.
func NewExplodeReader(r io.Reader) (*ExplodeReader, error) {
	er := &ExplodeReader{}
	if err := er.state.initialize(r); err != nil {
		return nil, err
	}
	return er, nil
}

// Mode reports the literal coding mode read from the stream's header.
func (r *ExplodeReader) Mode() Mode { return r.state.ctype }

// DictionarySize reports the sliding-window size read from the stream's
// header.
func (r *ExplodeReader) DictionarySize() DictionarySize {
	d, _ := dictionarySizeFromBits(r.state.dsizeBits)
	return d
}

// Read implements io.Reader, decompressing eagerly on the first call and
// then serving from the fully-decompressed buffer.
func (r *ExplodeReader) Read(p []byte) (int, error) {
	if r.poisoned {
		return 0, nil
	}
	if r.err != nil {
		r.poisoned = true
		return 0, nil
	}
	if !r.expanded {
		r.expanded = true
		if err := r.state.expand(&r.out); err != nil {
			r.err = err
			return 0, err
		}
	}
	n, err := r.out.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		r.err = err
	}
	return n, err
}
