package pklib

import "testing"

func TestBytePairHash(t *testing.T) {
	// StormLib's implode.c and this codec's own historical Rust
	// predecessor both fix this exact formula; getting it wrong produces
	// a compressor that still round-trips against itself but can't
	// interoperate with any other PKLib-compatible implementation.
	got := bytePairHash('A', 'B')
	want := uint16('A')*4 + uint16('B')*5
	if got != want {
		t.Fatalf("bytePairHash('A','B') = %d, want %d", got, want)
	}
}

func TestGenDecodeTableCoversFullByteRange(t *testing.T) {
	var dst [256]uint8
	genDecodeTable(dst[:], lenCode[:], lenBits[:])

	// Every possible 8-bit lookahead must resolve to some length-code
	// tier: the sixteen length codes' Huffman codewords, at their
	// respective bit lengths, must partition the full byte space.
	seen := make(map[uint8]bool)
	for _, v := range dst {
		seen[v] = true
	}
	if len(seen) != 16 {
		t.Fatalf("decode table resolves to %d distinct codes, want 16", len(seen))
	}
}

func TestAsciiDecodeTablesBuildIsDeterministic(t *testing.T) {
	var a, b asciiDecodeTables
	a.build()
	b.build()
	if a != b {
		t.Fatalf("asciiDecodeTables.build() is not deterministic")
	}
}

func TestDictionarySizeBitsRoundTrip(t *testing.T) {
	for _, d := range []DictionarySize{Size1K, Size2K, Size4K} {
		bits, _, ok := d.bits()
		if !ok {
			t.Fatalf("%v.bits() reported not ok", d)
		}
		got, ok := dictionarySizeFromBits(bits)
		if !ok || got != d {
			t.Fatalf("dictionarySizeFromBits(%d) = %v, %v; want %v, true", bits, got, ok, d)
		}
	}
}
