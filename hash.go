package pklib

/*
 * Hash-chain match finder for the imploder. Ported from Ladislav Zezula's
 * SortBuffer/FindRep in StormLib's pklib/implode.c, by way of
 * JoshVarga/blast's writer.go, which is the most complete Go port of this
 * pair available: it keeps FindRep's "try a match one byte later" lookahead
 * and the offs09BC helper table that a simplified reimplementation
 * (original_source's implode/hash.rs and implode/pattern.rs) drops.
 */

// maxRepLength is the longest back-reference the compressor emits and the
// decoder accepts. The length alphabet also has codes for 517 and 518;
// expand rejects those with ErrInvalidLengthCode.
const maxRepLength = 0x204

// sortBuffer builds phashToIndex/phashOffs over workBuff[bufferBegin:bufferEnd)
// so that findRep can locate, in O(1), the start of the ascending list of
// positions at which any two-byte prefix occurs; findRep walks that list
// from the oldest in-window occurrence forward. Port of PKLib's
// SortBuffer: a three-pass counting sort keyed by bytePairHash.
func (c *compressorState) sortBuffer(bufferBegin, bufferEnd uint32) {
	for i := range c.phashToIndex {
		c.phashToIndex[i] = 0
	}

	for pos := bufferBegin; pos < bufferEnd; pos++ {
		c.phashToIndex[bytePairHash(c.workBuff[pos], c.workBuff[pos+1])]++
	}

	var total uint16
	for i := range c.phashToIndex {
		total += c.phashToIndex[i]
		c.phashToIndex[i] = total
	}

	for pos := bufferEnd; pos > bufferBegin; {
		pos--
		h := bytePairHash(c.workBuff[pos], c.workBuff[pos+1])
		c.phashToIndex[h]--
		c.phashOffs[c.phashToIndex[h]] = uint16(pos)
	}
}

// findRep searches for the longest prior occurrence of the byte sequence
// starting at workBuffOffset, storing the winning backward distance
// (biased by -1) in c.distance and returning the match length, or 0 if no
// match of at least 2 bytes exists. Port of PKLib's FindRep, including the
// "is there a longer match starting one byte into this one" refinement
// PKLib runs via the offs09BC helper table once an initial match is found.
func (c *compressorState) findRep(workBuffOffset uint32) uint32 {
	hash := uint32(bytePairHash(c.workBuff[workBuffOffset], c.workBuff[workBuffOffset+1]))
	minOffs := uint16(workBuffOffset - c.dsizeBytes + 1)
	phashOffsIndex := uint32(c.phashToIndex[hash])

	phashOffs := phashOffsIndex
	if c.phashOffs[phashOffs] < minOffs {
		for c.phashOffs[phashOffs] < minOffs {
			phashOffsIndex++
			phashOffs++
		}
		c.phashToIndex[hash] = uint16(phashOffsIndex)
	}

	phashOffs = phashOffsIndex
	prevRep := uint32(c.phashOffs[phashOffs])
	repLimit := int64(workBuffOffset) - 1

	if int64(prevRep) >= repLimit {
		return 0
	}

	var (
		repLength      = uint32(1)
		equalByteCount uint32
	)

	for {
		inputPtr := workBuffOffset
		if c.workBuff[inputPtr] == c.workBuff[prevRep] &&
			c.workBuff[inputPtr+repLength-1] == c.workBuff[prevRep+repLength-1] {
			prevRep++
			inputPtr++
			equalByteCount = 2

			for equalByteCount < maxRepLength {
				prevRep++
				inputPtr++
				if c.workBuff[prevRep] != c.workBuff[inputPtr] {
					break
				}
				equalByteCount++
			}

			if equalByteCount >= repLength {
				c.distance = workBuffOffset - prevRep + equalByteCount - 1
				repLength = equalByteCount
				if repLength > 10 {
					break
				}
			}
		}

		phashOffsIndex++
		phashOffs++
		prevRep = uint32(c.phashOffs[phashOffs])

		if int64(prevRep) >= repLimit {
			if repLength >= 2 {
				return repLength
			}
			return 0
		}
	}

	if equalByteCount == maxRepLength {
		c.distance--
		return equalByteCount
	}

	phashOffs = phashOffsIndex
	if int64(c.phashOffs[phashOffs+1]) >= repLimit {
		return repLength
	}

	// Determine whether a later occurrence of this same PAIR_HASH leads to
	// a longer overall match than the first one found above. Example:
	// "EEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEEQQQQQQQQQQQQXYZEEEEEEEEEEEEEEEEQQQQQQQQQQQQ" —
	// the first match found off the leading run of E's is much shorter than
	// the match available a few bytes later that also covers the run of Q's.
	c.offs09BC[0] = 0xFFFF
	c.offs09BC[1] = 0
	var diVal uint16
	var offsInRep uint32 = 1

	for offsInRep < repLength {
		if c.workBuff[workBuffOffset+offsInRep] != c.workBuff[workBuffOffset+uint32(diVal)] {
			diVal = c.offs09BC[diVal]
			if diVal != 0xFFFF {
				continue
			}
		}
		offsInRep++
		diVal++
		c.offs09BC[offsInRep] = diVal
	}

	prevRep = uint32(c.phashOffs[phashOffs])
	prevRepEnd := prevRep + repLength
	repLength2 := repLength

	for {
		if v := c.offs09BC[repLength2]; v != 0xFFFF {
			repLength2 = uint32(v)
		} else {
			repLength2 = 0
		}
		phashOffs = phashOffsIndex

		// Always step to the next candidate at least once, then skip those
		// that don't reach the end of the first found repetition.
		for {
			phashOffs++
			phashOffsIndex++
			prevRep = uint32(c.phashOffs[phashOffs])
			if int64(prevRep) >= repLimit {
				return repLength
			}
			if prevRep+repLength2 >= prevRepEnd {
				break
			}
		}

		preLastByte := c.workBuff[workBuffOffset+repLength-2]
		if preLastByte == c.workBuff[prevRep+repLength-2] {
			if prevRep+repLength2 != prevRepEnd {
				prevRepEnd = prevRep
				repLength2 = 0
			}
		} else {
			phashOffs = phashOffsIndex
			for c.workBuff[prevRep+repLength-2] != preLastByte || c.workBuff[prevRep] != c.workBuff[workBuffOffset] {
				phashOffs++
				phashOffsIndex++
				prevRep = uint32(c.phashOffs[phashOffs])
				if int64(prevRep) >= repLimit {
					return repLength
				}
			}
			prevRepEnd = prevRep + 2
			repLength2 = 2
		}

		for c.workBuff[prevRepEnd] == c.workBuff[workBuffOffset+repLength2] {
			repLength2++
			if repLength2 >= maxRepLength {
				break
			}
			prevRepEnd++
		}

		if repLength2 >= repLength {
			c.distance = workBuffOffset - prevRep - 1
			repLength = repLength2
			if repLength == maxRepLength {
				return repLength
			}

			for offsInRep < repLength2 {
				if c.workBuff[workBuffOffset+offsInRep] != c.workBuff[workBuffOffset+uint32(diVal)] {
					diVal = c.offs09BC[diVal]
					if diVal != 0xFFFF {
						continue
					}
				}
				diVal++
				offsInRep++
				c.offs09BC[offsInRep] = diVal
			}
		}
	}
}
