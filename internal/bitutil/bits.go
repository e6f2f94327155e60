// Package bitutil decodes beacon-chain aggregation-bit hex strings into
// boolean vectors, and implements the OR-aggregation and mask-selection
// operations the attestation analyzer is built on.
package bitutil

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/go-bitfield"
)

// ErrNoDelimiterBit is returned when a hex-decoded bit vector contains no
// set bit at all, meaning the mandatory delimiter bit is missing.
var ErrNoDelimiterBit = errors.New("bitutil: no delimiter bit found")

// ErrLengthMismatch is returned by AggregateBits and ApplyMask when their
// inputs don't share a common length.
var ErrLengthMismatch = errors.New("bitutil: vector length mismatch")

// DecodeHex runs the three-stage aggregation-bits decode pipeline
// described by the beacon API: hex to bits, per-byte endianness swap,
// and trailing-delimiter-bit trim. The "0x" prefix is optional.
func DecodeHex(h string) ([]bool, error) {
	h = strings.TrimPrefix(h, "0x")
	raw, err := hex.DecodeString(h)
	if err != nil {
		return nil, errors.Wrap(err, "bitutil: invalid hex")
	}
	bits := hexToBits(raw)
	switchEndianness(bits)
	return deleteZeroBits(bits)
}

// hexToBits expands each byte into its 8 constituent bits, MSB first,
// matching the natural big-endian reading order of a hex dump.
func hexToBits(raw []byte) []bool {
	bits := make([]bool, 0, len(raw)*8)
	for _, b := range raw {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (b>>uint(i))&1 == 1)
		}
	}
	return bits
}

// switchEndianness reverses each consecutive 8-bit group in place. After
// this pass, bit i is the i-th validator in committee order.
func switchEndianness(bits []bool) {
	for start := 0; start+8 <= len(bits); start += 8 {
		for i, j := start, start+7; i < j; i, j = i+1, j-1 {
			bits[i], bits[j] = bits[j], bits[i]
		}
	}
}

// deleteZeroBits finds the position of the last set bit (the delimiter)
// and discards it together with everything after it.
func deleteZeroBits(bits []bool) ([]bool, error) {
	last := -1
	for i, b := range bits {
		if b {
			last = i
		}
	}
	if last == -1 {
		return nil, ErrNoDelimiterBit
	}
	out := make([]bool, last)
	copy(out, bits[:last])
	return out, nil
}

// AggregateBits computes a per-position OR across any number of
// equal-length bit vectors. It is backed by a packed bitfield.Bitlist so
// the mutable-array-of-booleans the decode pipeline works with is only
// ever materialized transiently; the aggregate itself is a packed bitset.
func AggregateBits(vectors [][]bool) ([]bool, error) {
	if len(vectors) == 0 {
		return []bool{}, nil
	}
	n := len(vectors[0])
	for _, v := range vectors[1:] {
		if len(v) != n {
			return nil, ErrLengthMismatch
		}
	}
	acc := toBitlist(vectors[0])
	for _, v := range vectors[1:] {
		var err error
		acc, err = acc.Or(toBitlist(v))
		if err != nil {
			return nil, err
		}
	}
	return fromBitlist(acc, n), nil
}

// ApplyMask returns the subset of items whose matching bit is true. items
// and bits must have equal length. Items are validator indices in every
// call site this package has; a generic version isn't worth the
// go-version bump the rest of this module otherwise has no need for.
func ApplyMask(items []uint64, bits []bool) ([]uint64, error) {
	if len(items) != len(bits) {
		return nil, ErrLengthMismatch
	}
	out := make([]uint64, 0, len(items))
	for i, b := range bits {
		if b {
			out = append(out, items[i])
		}
	}
	return out, nil
}

// toBitlist packs a boolean vector into a bitfield.Bitlist of the same
// logical length (the library's own delimiter bit is not meaningful here
// since length is tracked externally; NewBitlist already reserves it, so
// bits beyond index n-1 are simply left unset and ignored by fromBitlist).
func toBitlist(bits []bool) bitfield.Bitlist {
	b := bitfield.NewBitlist(uint64(len(bits)))
	for i, v := range bits {
		if v {
			b.SetBitAt(uint64(i), true)
		}
	}
	return b
}

func fromBitlist(b bitfield.Bitlist, n int) []bool {
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		out[i] = b.BitAt(uint64(i))
	}
	return out
}
