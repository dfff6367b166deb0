// Package huffman implements RFC 1951's canonical Huffman codes: building a
// length-limited code-length vector from symbol frequencies, assigning
// canonical codes to a length vector, and decoding against a two-level
// lookup table built from a length vector.
//
// The decode table shape (a 9-bit primary chunk table plus overflow link
// tables for codes longer than 9 bits) is the teacher's own
// zran/flate/inflate.go HuffmanDecoder, copied almost unchanged because it
// already is the two-level table spec.md §9 asks for. The RFC 1951 §3.2.5
// length/distance base-and-extra-bits tables and the §3.2.7 code-length
// alphabet order are grounded on google/wuffs's lib/flatecut, which carries
// them as the same four arrays under the same names. The encoder's
// frequency-to-length-vector construction is grounded on
// flanglet/kanzi-go's HuffmanEncoder.computeCodeLengths: an in-place,
// allocation-free variant of the Moffat package-merge algorithm
// (computeInPlaceSizesPhase1/2) that derives optimal code lengths by
// sorting symbols by frequency and folding the two smallest weights
// together, rather than building an explicit binary tree.
package huffman

// CodeOrder is the order in which dynamic-block code-length codes are
// transmitted, RFC 1951 section 3.2.7.
var CodeOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// MaxCodeLen is the longest canonical code RFC 1951 permits.
const MaxCodeLen = 15

// MaxLit is the largest literal/length alphabet a dynamic block's HLIT
// field can declare (0..255 literals, 256 end-of-block, 257..285 length
// codes, plus the two reserved slots 286/287 that HLIT's 5-bit range
// admits but that never appear in a valid stream).
const MaxLit = 288

// MaxDist is the size of the distance alphabet.
const MaxDist = 30

// NumCodeLenCodes is the size of the code-length alphabet used to compress
// a dynamic block's own Huffman tables.
const NumCodeLenCodes = 19

// LengthBase and LengthExtra give, for length symbol s in 257..285, the
// base match length and number of extra bits that follow it on the wire.
// Indexed by s-257. RFC 1951 section 3.2.5.
var LengthBase = [29]int{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
	35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
}

var LengthExtra = [29]uint{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
	3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
}

// DistBase and DistExtra give, for distance symbol s in 0..29, the base
// distance and number of extra bits that follow it on the wire.
var DistBase = [30]int{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
	257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577,
}

var DistExtra = [30]uint{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
}

// CodeLenExtra gives the number of extra bits that follow a code-length
// alphabet symbol of 16 ("repeat previous"), 17 ("repeat zero, short") or
// 18 ("repeat zero, long").
func CodeLenExtra(symbol int) (base, extra int) {
	switch symbol {
	case 16:
		return 3, 2
	case 17:
		return 3, 3
	case 18:
		return 11, 7
	default:
		return 0, 0
	}
}

// FixedLitLengths and FixedDistLengths are the literal/length and distance
// code-length vectors RFC 1951 section 3.2.6 fixes for a static Huffman
// block. The distance vector covers all 32 five-bit codes, including the
// two (30 and 31) that never appear in a valid stream, so that it forms a
// complete code.
var FixedLitLengths = buildFixedLitLengths()
var FixedDistLengths = buildFixedDistLengths()

func buildFixedLitLengths() []int {
	lens := make([]int, MaxLit)
	for i := 0; i <= 143; i++ {
		lens[i] = 8
	}
	for i := 144; i <= 255; i++ {
		lens[i] = 9
	}
	for i := 256; i <= 279; i++ {
		lens[i] = 7
	}
	for i := 280; i <= 287; i++ {
		lens[i] = 8
	}
	return lens
}

func buildFixedDistLengths() []int {
	lens := make([]int, 32)
	for i := range lens {
		lens[i] = 5
	}
	return lens
}
