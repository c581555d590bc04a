// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package umi implements approximate matching of unique molecular identifiers
// (UMIs) against read sequences, along with extraction of UMI tokens from
// read names.
//
// Ambiguous bases ('N'/'n') never match anything, including themselves, so
// every position holding one contributes a mismatch.
package umi

import (
	"bytes"
	"encoding/binary"
)

const (
	wordOnes = 0x0101010101010101
	wordHigh = 0x8080808080808080
)

// nonzeroBytes returns the number of nonzero bytes in x.  SWAR trick: fold
// each byte's bits into its LSB, mask, then sum the LSBs horizontally with a
// multiply.
func nonzeroBytes(x uint64) int {
	x |= x >> 4
	x |= x >> 2
	x |= x >> 1
	x &= wordOnes
	return int((x * wordOnes) >> 56)
}

// ambiguityMask returns a word with 0x80 in each byte position of x holding
// 'N' or 'n', and 0x00 elsewhere.
func ambiguityMask(x uint64) uint64 {
	// Case-fold, then apply the usual zero-byte bit-hack to the bytes that
	// should now equal 'n'.
	y := (x | 0x2020202020202020) ^ 0x6e6e6e6e6e6e6e6e
	return (y - wordOnes) &^ y & wordHigh
}

func ambiguous(c byte) bool {
	return c == 'N' || c == 'n'
}

// HammingDistance returns the number of positions at which a and b differ,
// counting any position holding an ambiguous base in either operand as a
// difference.  It panics if the slices are of unequal length.
//
// The word-at-a-time path is equivalent to a per-byte comparison loop; it
// exists only for speed.
func HammingDistance(a, b []byte) int {
	if len(a) != len(b) {
		panic("umi.HammingDistance: unequal-length sequences")
	}
	var (
		d int
		i int
	)
	for ; i+8 <= len(a); i += 8 {
		w1 := binary.LittleEndian.Uint64(a[i:])
		w2 := binary.LittleEndian.Uint64(b[i:])
		d += nonzeroBytes((w1 ^ w2) | ambiguityMask(w1) | ambiguityMask(w2))
	}
	for ; i < len(a); i++ {
		if a[i] != b[i] || ambiguous(a[i]) || ambiguous(b[i]) {
			d++
		}
	}
	return d
}

// Contains reports whether some window of read with the same length as umi
// has HammingDistance at most maxMismatches from umi.  Windows are scanned
// left to right and the first qualifying one wins; the location is not
// reported.
//
// With maxMismatches == 0 the scan is a plain byte-equality substring search:
// a window equal to an N-containing umi counts as a hit there even though its
// HammingDistance is nonzero.
func Contains(umi, read []byte, maxMismatches int) bool {
	if len(read) < len(umi) {
		return false
	}
	if maxMismatches == 0 {
		return bytes.Contains(read, umi)
	}

	nChunks := maxMismatches + 1
	if len(umi) < nChunks {
		// Chunking a UMI this short buys no pruning; compute the full
		// distance for every window.
		for i := 0; i+len(umi) <= len(read); i++ {
			if HammingDistance(umi, read[i:i+len(umi)]) <= maxMismatches {
				return true
			}
		}
		return false
	}

	// Pigeonhole pruning: split umi into maxMismatches+1 contiguous chunks.
	// A window within tolerance has too few mismatches to touch every chunk,
	// so at least one chunk must match exactly; the full distance is computed
	// only for windows passing that test.
	chunkSize := len(umi) / nChunks
	for i := 0; i+len(umi) <= len(read); i++ {
		window := read[i : i+len(umi)]
		for c := 0; c < nChunks; c++ {
			start := c * chunkSize
			end := start + chunkSize
			if c == nChunks-1 {
				end = len(umi) // last chunk absorbs the remainder
			}
			if bytes.Equal(umi[start:end], window[start:end]) {
				if HammingDistance(umi, window) <= maxMismatches {
					return true
				}
				break
			}
		}
	}
	return false
}
