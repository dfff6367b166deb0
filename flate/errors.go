// Package flate implements the raw RFC 1951 DEFLATE codec: a push-style
// encoder that drives LZ77 match-finding and canonical Huffman coding,
// and a decoder state machine that mirrors it bit for bit.
//
// Both halves follow the teacher's zran/flate continuation style, where a
// session carries its own state and eval() runs it forward until it must
// suspend. Where the teacher's Decompressor threads a `Step func(*Decompressor)`
// continuation directly, this package uses an explicit state-tag enum
// instead (spec.md §9 "Continuation-passing state" asks for exactly that
// translation when moving out of a closure-friendly source language).
package flate

import (
	"errors"
	"fmt"
)

// ErrInvalidLevel reports a compression level outside 0..9.
var ErrInvalidLevel = errors.New("flate: invalid level")

// ErrInvalidWBits reports a window size exponent outside 8..15.
var ErrInvalidWBits = errors.New("flate: invalid wbits")

// ErrInvalidBlockType reports a block header whose BTYPE field is the
// reserved value 11. The decoder also returns it for a literal/length
// symbol of 286 or 287, which no valid block uses.
var ErrInvalidBlockType = errors.New("flate: invalid block type")

// ErrInvalidStoredLength reports a stored block whose NLEN field is not
// the one's complement of LEN.
var ErrInvalidStoredLength = errors.New("flate: stored block length/complement mismatch")

// ErrInvalidDictionary reports a dynamic block's code-length RLE symbols
// (16/17/18) running before the first code or past the declared alphabet.
var ErrInvalidDictionary = errors.New("flate: invalid dynamic code-length sequence")

// ErrInvalidDistanceCode reports a distance symbol of 30 or 31, which RFC
// 1951 reserves and never assigns.
var ErrInvalidDistanceCode = errors.New("flate: invalid distance code")

// ErrParanoidFrequencies reports SetFrequencies(paranoid=true) being
// given frequencies that assign zero weight to a symbol the pending hunk
// buffer actually uses.
var ErrParanoidFrequencies = errors.New("flate: frequency table missing a symbol in use")

// ErrInvalidDistance reports a match distance larger than the window can
// currently satisfy.
type ErrInvalidDistance struct {
	Distance int
	Max      int
}

func (e *ErrInvalidDistance) Error() string {
	return fmt.Sprintf("flate: invalid distance %d exceeds window of %d", e.Distance, e.Max)
}

// InternalError reports a bug in this package itself, mirroring the
// teacher's own zran/flate.InternalError.
type InternalError string

func (e InternalError) Error() string { return "flate: internal error: " + string(e) }
