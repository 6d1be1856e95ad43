package pklib

/*
 * Static tables for PKWare Data Compression Library "implode"/"explode".
 * Adapted to Go from Ladislav Zezula's StormLib pklib/implode.c and
 * explode.c (https://github.com/ladislav-zezula/StormLib), the same
 * reference used for the encoder in implode.go. Values are byte-for-byte
 * identical to the original tables; only the Go representation differs.
 */

// distBits gives, for each of the 64 distance position codes, the number
// of bits used to Huffman-code that code (before the dsizeBits/2-bit
// distance-offset suffix).
var distBits = [64]uint8{
	0x02, 0x04, 0x04, 0x05, 0x05, 0x05, 0x05, 0x06, 0x06, 0x06, 0x06, 0x06, 0x06, 0x06, 0x06, 0x06,
	0x06, 0x06, 0x06, 0x06, 0x06, 0x06, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07,
	0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07,
	0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08,
}

// distCode is the Huffman code (bit-reversed, LSB first) for each of the
// 64 distance position codes.
var distCode = [64]uint8{
	0x03, 0x0D, 0x05, 0x19, 0x09, 0x11, 0x01, 0x3E, 0x1E, 0x2E, 0x0E, 0x36, 0x16, 0x26, 0x06, 0x3A,
	0x1A, 0x2A, 0x0A, 0x32, 0x12, 0x22, 0x42, 0x02, 0x7C, 0x3C, 0x5C, 0x1C, 0x6C, 0x2C, 0x4C, 0x0C,
	0x74, 0x34, 0x54, 0x14, 0x64, 0x24, 0x44, 0x04, 0x78, 0x38, 0x58, 0x18, 0x68, 0x28, 0x48, 0x08,
	0xF0, 0x70, 0xB0, 0x30, 0xD0, 0x50, 0x90, 0x10, 0xE0, 0x60, 0xA0, 0x20, 0xC0, 0x40, 0x80, 0x00,
}

// exLenBits gives the number of extra length bits following each of the
// 16 length codes.
var exLenBits = [16]uint8{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
}

// lenBits gives the Huffman code bit length for each of the 16 length
// codes.
var lenBits = [16]uint8{
	0x03, 0x02, 0x03, 0x03, 0x04, 0x04, 0x04, 0x05, 0x05, 0x05, 0x05, 0x06, 0x06, 0x06, 0x07, 0x07,
}

// lenCode is the Huffman code (bit-reversed, LSB first) for each of the
// 16 length codes.
var lenCode = [16]uint8{
	0x05, 0x03, 0x01, 0x06, 0x0A, 0x02, 0x0C, 0x14, 0x04, 0x18, 0x08, 0x30, 0x10, 0x20, 0x40, 0x00,
}

// lenBase gives the length value (biased by -2) represented by the
// smallest extra-bits value at each length-code tier; decodedLength =
// lenBase[code] + extraBits, and the final literal fed to the shared
// literal/length alphabet is decodedLength+0x100 (see decodeLit).
var lenBase = [16]uint16{
	0x0000, 0x0001, 0x0002, 0x0003, 0x0004, 0x0005, 0x0006, 0x0007,
	0x0008, 0x000A, 0x000E, 0x0016, 0x0026, 0x0046, 0x0086, 0x0106,
}

// chBitsAsc gives the ASCII-mode Huffman code bit length for each of the
// 256 possible literal byte values.
var chBitsAsc = [256]uint8{
	0x0B, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x08, 0x07, 0x0C, 0x0C, 0x07, 0x0C, 0x0C,
	0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0D, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C,
	0x04, 0x0A, 0x08, 0x0C, 0x0A, 0x0C, 0x0A, 0x08, 0x07, 0x07, 0x08, 0x09, 0x07, 0x06, 0x07, 0x08,
	0x07, 0x06, 0x07, 0x07, 0x07, 0x07, 0x08, 0x07, 0x07, 0x08, 0x08, 0x0C, 0x0B, 0x07, 0x09, 0x0B,
	0x0C, 0x06, 0x07, 0x06, 0x06, 0x05, 0x07, 0x08, 0x08, 0x06, 0x0B, 0x09, 0x06, 0x07, 0x06, 0x06,
	0x07, 0x0B, 0x06, 0x06, 0x06, 0x07, 0x09, 0x08, 0x09, 0x09, 0x0B, 0x08, 0x0B, 0x09, 0x0C, 0x08,
	0x0C, 0x05, 0x06, 0x06, 0x06, 0x05, 0x06, 0x06, 0x06, 0x05, 0x0B, 0x07, 0x05, 0x06, 0x05, 0x05,
	0x06, 0x0A, 0x05, 0x05, 0x05, 0x05, 0x08, 0x07, 0x08, 0x08, 0x0A, 0x0B, 0x0B, 0x0C, 0x0C, 0x0C,
	0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D,
	0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D,
	0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D,
	0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C,
	0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C,
	0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C,
	0x0D, 0x0C, 0x0D, 0x0D, 0x0D, 0x0C, 0x0D, 0x0D, 0x0D, 0x0C, 0x0D, 0x0D, 0x0D, 0x0D, 0x0C, 0x0D,
	0x0D, 0x0D, 0x0C, 0x0C, 0x0C, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D,
}

// chCodeAsc is the ASCII-mode Huffman code (bit-reversed, LSB first) for
// each of the 256 possible literal byte values.
var chCodeAsc = [256]uint16{
	0x0490, 0x0FE0, 0x07E0, 0x0BE0, 0x03E0, 0x0DE0, 0x05E0, 0x09E0,
	0x01E0, 0x00B8, 0x0062, 0x0EE0, 0x06E0, 0x0022, 0x0AE0, 0x02E0,
	0x0CE0, 0x04E0, 0x08E0, 0x00E0, 0x0F60, 0x0760, 0x0B60, 0x0360,
	0x0D60, 0x0560, 0x1240, 0x0960, 0x0160, 0x0E60, 0x0660, 0x0A60,
	0x000F, 0x0250, 0x0038, 0x0260, 0x0050, 0x0C60, 0x0390, 0x00D8,
	0x0042, 0x0002, 0x0058, 0x01B0, 0x007C, 0x0029, 0x003C, 0x0098,
	0x005C, 0x0009, 0x001C, 0x006C, 0x002C, 0x004C, 0x0018, 0x000C,
	0x0074, 0x00E8, 0x0068, 0x0460, 0x0090, 0x0034, 0x00B0, 0x0710,
	0x0860, 0x0031, 0x0054, 0x0011, 0x0021, 0x0017, 0x0014, 0x00A8,
	0x0028, 0x0001, 0x0310, 0x0130, 0x003E, 0x0064, 0x001E, 0x002E,
	0x0024, 0x0510, 0x000E, 0x0036, 0x0016, 0x0044, 0x0030, 0x00C8,
	0x01D0, 0x00D0, 0x0110, 0x0048, 0x0610, 0x0150, 0x0060, 0x0088,
	0x0FA0, 0x0007, 0x0026, 0x0006, 0x003A, 0x001B, 0x001A, 0x002A,
	0x000A, 0x000B, 0x0210, 0x0004, 0x0013, 0x0032, 0x0003, 0x001D,
	0x0012, 0x0190, 0x000D, 0x0015, 0x0005, 0x0019, 0x0008, 0x0078,
	0x00F0, 0x0070, 0x0290, 0x0410, 0x0010, 0x07A0, 0x0BA0, 0x03A0,
	0x0240, 0x1C40, 0x0C40, 0x1440, 0x0440, 0x1840, 0x0840, 0x1040,
	0x0040, 0x1F80, 0x0F80, 0x1780, 0x0780, 0x1B80, 0x0B80, 0x1380,
	0x0380, 0x1D80, 0x0D80, 0x1580, 0x0580, 0x1980, 0x0980, 0x1180,
	0x0180, 0x1E80, 0x0E80, 0x1680, 0x0680, 0x1A80, 0x0A80, 0x1280,
	0x0280, 0x1C80, 0x0C80, 0x1480, 0x0480, 0x1880, 0x0880, 0x1080,
	0x0080, 0x1F00, 0x0F00, 0x1700, 0x0700, 0x1B00, 0x0B00, 0x1300,
	0x0DA0, 0x05A0, 0x09A0, 0x01A0, 0x0EA0, 0x06A0, 0x0AA0, 0x02A0,
	0x0CA0, 0x04A0, 0x08A0, 0x00A0, 0x0F20, 0x0720, 0x0B20, 0x0320,
	0x0D20, 0x0520, 0x0920, 0x0120, 0x0E20, 0x0620, 0x0A20, 0x0220,
	0x0C20, 0x0420, 0x0820, 0x0020, 0x0FC0, 0x07C0, 0x0BC0, 0x03C0,
	0x0DC0, 0x05C0, 0x09C0, 0x01C0, 0x0EC0, 0x06C0, 0x0AC0, 0x02C0,
	0x0CC0, 0x04C0, 0x08C0, 0x00C0, 0x0F40, 0x0740, 0x0B40, 0x0340,
	0x0300, 0x0D40, 0x1D00, 0x0D00, 0x1500, 0x0540, 0x0500, 0x1900,
	0x0900, 0x0940, 0x1100, 0x0100, 0x1E00, 0x0E00, 0x0140, 0x1600,
	0x0600, 0x1A00, 0x0E40, 0x0640, 0x0A40, 0x0A00, 0x1200, 0x0200,
	0x1C00, 0x0C00, 0x1400, 0x0400, 0x1800, 0x0800, 0x1000, 0x0000,
}

// bytePairHash hashes a two-byte prefix into the compressor's hash-chain
// table. The multipliers are load-bearing: they are what StormLib's
// implode.c uses, and any other combination produces a different (still
// valid, but non-interoperable) compressed stream.
func bytePairHash(b0, b1 byte) uint16 {
	return uint16(b0)*4 + uint16(b1)*5
}

// genDecodeTable builds the reverse lookup used by the decoder: peeking
// 8 bits of input and indexing this table yields the code whose Huffman
// codeword is a prefix of those bits, in O(1). Port of PKLib's
// GenDecodeTabs, applied here to both the length-code and
// distance-position-code alphabets.
func genDecodeTable(dst []uint8, codes []uint8, bits []uint8) {
	for i := range codes {
		length := uint32(1) << bits[i]
		index := uint32(codes[i])
		for index < 0x100 {
			if int(index) < len(dst) {
				dst[index] = uint8(i)
			}
			index += length
		}
	}
}

// asciiDecodeTables holds the four-way disambiguation tables PKLib builds
// for ASCII-mode literal decoding (GenAscTabs), keyed by how many bits of
// the shared 8-bit code window a literal's code actually occupies.
type asciiDecodeTables struct {
	chBits [256]uint8
	tab1   [256]uint8 // offs2c34: codes needing <= 8 bits
	tab2   [256]uint8 // offs2d34: codes needing 8 + 4 bits
	tab3   [128]uint8 // offs2e34: codes needing 8 + 6 bits
	tab4   [256]uint8 // offs2eb4: codes needing 8 + 8 bits
}

// build runs PKLib's GenAscTabs algorithm over the shared chCodeAsc
// table, producing the tables decodeLit uses to resolve an ASCII literal
// in at most three levels of indirection.
func (a *asciiDecodeTables) build() {
	a.chBits = chBitsAsc
	for count := 0xFF; count >= 0; count-- {
		code := chCodeAsc[count]
		bits := a.chBits[count]

		switch {
		case bits <= 8:
			add := uint32(1) << bits
			for acc := uint32(code); acc < 0x100; acc += add {
				a.tab1[acc] = uint8(count)
			}
		case code&0xFF != 0:
			a.tab1[code&0xFF] = 0xFF
			if code&0x3F != 0 {
				bits -= 4
				a.chBits[count] = bits
				add := uint32(1) << bits
				for acc := uint32(code) >> 4; acc < 0x100; acc += add {
					a.tab2[acc] = uint8(count)
				}
			} else {
				bits -= 6
				a.chBits[count] = bits
				add := uint32(1) << bits
				for acc := uint32(code) >> 6; acc < 0x80; acc += add {
					a.tab3[acc] = uint8(count)
				}
			}
		default:
			bits -= 8
			a.chBits[count] = bits
			add := uint32(1) << bits
			for acc := uint32(code) >> 8; acc < 0x100; acc += add {
				a.tab4[acc] = uint8(count)
			}
		}
	}
}
